package session

import (
	"fmt"

	"github.com/me/expensectl/internal/api"
)

// FailureKind classifies a failed login or signup.
type FailureKind int

const (
	NoFailure FailureKind = iota
	// NetworkFailure: the authentication endpoint could not be reached.
	NetworkFailure
	// RejectedCredentials: the endpoint answered with a non-success status.
	RejectedCredentials
	// MalformedResponse: success status, but no usable token or user.
	MalformedResponse
	// PersistFailure: authentication worked but the record could not be saved.
	PersistFailure
)

func (k FailureKind) String() string {
	switch k {
	case NoFailure:
		return "none"
	case NetworkFailure:
		return "network_failure"
	case RejectedCredentials:
		return "rejected_credentials"
	case MalformedResponse:
		return "malformed_response"
	case PersistFailure:
		return "persist_failure"
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// Result is the outcome of Login or Signup. Reason is set whenever OK is
// false and is meant to be shown to the user.
type Result struct {
	OK     bool
	Reason string
	Kind   FailureKind
}

// Err returns nil for a successful result, or an error carrying Reason.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &ResultError{Kind: r.Kind, Reason: r.Reason}
}

// ResultError adapts a failed Result to the error interface.
type ResultError struct {
	Kind   FailureKind
	Reason string
}

func (e *ResultError) Error() string { return e.Reason }

func failed(kind FailureKind, reason string) Result {
	return Result{Kind: kind, Reason: reason}
}

func kindOf(k api.FailureKind) FailureKind {
	switch k {
	case api.NetworkFailure:
		return NetworkFailure
	case api.RejectedRequest:
		return RejectedCredentials
	default:
		return MalformedResponse
	}
}
