package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// Remote site errors
	ErrTransientAuth      = errors.New("csrf token rejected")
	ErrDataFetch          = errors.New("could not fetch account data")
	ErrSubmissionRejected = errors.New("site rejected submission")
	ErrNetwork            = errors.New("network error")

	ErrEditInProgress = errors.New("another edit of this account is in progress")
	ErrAuditDisabled  = errors.New("edit audit is not configured")
)
