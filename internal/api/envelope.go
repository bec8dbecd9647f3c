package api

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a request did not produce data.
type FailureKind int

const (
	// NetworkFailure: the request never reached the server or no response came back.
	NetworkFailure FailureKind = iota + 1
	// RejectedRequest: the server answered with a non-2xx status.
	RejectedRequest
	// MalformedResponse: 2xx, but the body could not be decoded into the expected type.
	MalformedResponse
)

func (k FailureKind) String() string {
	switch k {
	case NetworkFailure:
		return "network_failure"
	case RejectedRequest:
		return "rejected_request"
	case MalformedResponse:
		return "malformed_response"
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// Sentinels for errors.Is against a *Failure.
var (
	ErrNetwork   = errors.New("network failure")
	ErrRejected  = errors.New("request rejected")
	ErrMalformed = errors.New("malformed response")
)

// Failure describes a request that did not yield data.
type Failure struct {
	Kind    FailureKind
	Status  int    // HTTP status; 0 for network failures
	Message string // human-readable reason, shown to the user as-is
	Err     error  // underlying cause, if any
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Is matches the sentinel for the failure's kind.
func (f *Failure) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return f.Kind == NetworkFailure
	case ErrRejected:
		return f.Kind == RejectedRequest
	case ErrMalformed:
		return f.Kind == MalformedResponse
	}
	return false
}

// Envelope is the result of every API call. Exactly one of Data and Err is
// set once the call returns.
type Envelope[T any] struct {
	Data *T
	Err  *Failure
}

// OK reports whether the call produced data.
func (e Envelope[T]) OK() bool {
	return e.Err == nil && e.Data != nil
}

// Message returns the failure message, or fallback when the call failed
// without one. It returns "" for successful calls.
func (e Envelope[T]) Message(fallback string) string {
	if e.OK() {
		return ""
	}
	if e.Err == nil || e.Err.Message == "" {
		return fallback
	}
	return e.Err.Message
}

// Result converts the envelope to Go's usual (value, error) pair.
func (e Envelope[T]) Result() (*T, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Data, nil
}

func success[T any](v *T) Envelope[T] {
	return Envelope[T]{Data: v}
}

func failure[T any](f *Failure) Envelope[T] {
	return Envelope[T]{Err: f}
}
