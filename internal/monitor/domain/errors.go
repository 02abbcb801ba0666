package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why a pull request fetch failed.
type ErrorKind int

const (
	ErrorKindUnknown      ErrorKind = iota // Unclassified failure
	ErrorKindNotFound                      // PR or repository does not exist (or is not visible yet)
	ErrorKindUnauthorized                  // Credentials missing, invalid, or lacking scope
	ErrorKindRateLimited                   // Primary or secondary rate limit hit
	ErrorKindNetwork                       // Transport failure talking to the code host
	ErrorKindCanceled                      // Context canceled or deadline exceeded
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNotFound:
		return "not_found"
	case ErrorKindUnauthorized:
		return "unauthorized"
	case ErrorKindRateLimited:
		return "rate_limited"
	case ErrorKindNetwork:
		return "network"
	case ErrorKindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// FetchError is a classified failure to fetch a pull request.
type FetchError struct {
	Kind ErrorKind
	Ref  PRRef
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetching %s: %s", e.Ref, e.Kind)
	}
	return fmt.Sprintf("fetching %s: %s: %v", e.Ref, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(kind ErrorKind, ref PRRef, err error) *FetchError {
	return &FetchError{
		Kind: kind,
		Ref:  ref,
		Err:  err,
	}
}

// NewNotFoundError creates a FetchError for a pull request that does not exist.
func NewNotFoundError(ref PRRef) *FetchError {
	return NewFetchError(ErrorKindNotFound, ref, nil)
}

// KindOf returns the classification of err. Context errors are reported as
// canceled even when they were not wrapped in a FetchError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrorKindUnknown
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindCanceled
	}
	return ErrorKindUnknown
}

// IsNotFound checks if an error is or wraps a not-found FetchError.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == ErrorKindNotFound
}

// IsRetryable reports whether another attempt could succeed. Not-found is
// retryable because a freshly opened PR may not be visible through the API
// immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case ErrorKindNotFound, ErrorKindRateLimited, ErrorKindNetwork:
		return true
	default:
		return false
	}
}
