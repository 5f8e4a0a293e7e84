package collector

import (
	"errors"
	"fmt"
)

// FailureKind classifies a failed fetch
type FailureKind string

const (
	FailureNetwork   FailureKind = "network"
	FailureAuth      FailureKind = "auth"
	FailureMalformed FailureKind = "malformed"
)

// FetchError is the CollectorFailure of one source
type FetchError struct {
	Source Source
	Kind   FailureKind
	Err    error
}

// NewFetchError wraps err as a failure of source
func NewFetchError(source Source, kind FailureKind, err error) *FetchError {
	return &FetchError{Source: source, Kind: kind, Err: err}
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("collector %s: %s failure: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or FailureNetwork when err is not a
// *FetchError
func KindOf(err error) FailureKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return FailureNetwork
}
