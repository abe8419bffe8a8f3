package model

import (
	"fmt"
	"time"
)

// ErrorKey identifies one recurring failure.
type ErrorKey struct {
	Worker    string `json:"worker"`
	Operation string `json:"operation"`
	ErrorType string `json:"error_type"`
}

func (k ErrorKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Worker, k.Operation, k.ErrorType)
}

// ErrorState is the in-memory notification state of an active error.
type ErrorState struct {
	Key            ErrorKey  `json:"key"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSent       time.Time `json:"last_sent"`
	LastOccurrence time.Time `json:"last_occurrence"`
	Count          int       `json:"count"`
	Details        string    `json:"details"`
}
