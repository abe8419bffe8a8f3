package adapter

import "context"

// AccountDataResponse is the raw outcome of getAccountData. Row is only
// populated for a 200 response whose body decoded.
type AccountDataResponse struct {
	StatusCode int
	Row        []string
	Body       string
}

// EditAccountRequest carries the fields of a full editAccount submission.
type EditAccountRequest struct {
	AccountID   string
	Email       string
	Password    string
	BackupCodes string
	Group       string
	CSRFToken   string
}

type EditAccountResponse struct {
	StatusCode int
	Body       string
}

// SenderSite is the port to the third-party panel holding sender accounts.
// Status codes are returned rather than mapped so the caller owns the
// retry and token refresh policy.
type SenderSite interface {
	// CSRFToken returns the cached token, fetching it when none is cached.
	CSRFToken(ctx context.Context) (string, error)
	// InvalidateCSRF drops the cached token so the next call refetches it.
	InvalidateCSRF()
	GetAccountData(ctx context.Context, accountID, csrfToken string) (*AccountDataResponse, error)
	EditAccount(ctx context.Context, req EditAccountRequest) (*EditAccountResponse, error)
}
