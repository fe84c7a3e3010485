package network

import (
	"errors"
	"fmt"
)

var (
	ErrPolicyDenied = errors.New("disallowed by robots policy")
	ErrFetchFailed  = errors.New("fetch failed")
	ErrParseFailed  = errors.New("unusable document")
	ErrBlocked      = errors.New("blocked by anti-bot page")
	ErrNoProxies    = errors.New("no proxies available")
)

// FetchError carries the failure kind (one of the sentinels above) with request context.
type FetchError struct {
	Kind   error
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	msg := e.Kind.Error() + ": " + e.URL
	if e.Status != 0 {
		msg += fmt.Sprintf(" (http %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func fetchError(kind error, target string, status int, err error) *FetchError {
	return &FetchError{Kind: kind, URL: target, Status: status, Err: err}
}
