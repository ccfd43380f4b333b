package domain

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application.
var (
	ErrMissingMAC     = errors.New("host has no mac address")
	ErrSourceNotFound = errors.New("source not found")
	ErrPollInProgress = errors.New("poll already in progress")
	ErrNotStarted     = errors.New("source not started")
)

// ErrorKind classifies poll failures for logs and metrics
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindConnect       ErrorKind = "connect"
	KindHTTPStatus    ErrorKind = "http_status"
	KindNormalization ErrorKind = "normalization"
	KindOther         ErrorKind = "other"
)

// ConnectError is a transport failure or timeout talking to the scanner
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// HTTPStatusError is a non-2xx response from the scanner
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// NormalizationError means the payload's top-level shape was not recognized
type NormalizationError struct {
	Reason string
	Err    error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalize payload: %s: %v", e.Reason, e.Err)
	}
	return "normalize payload: " + e.Reason
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// Classify returns the kind of a poll error
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var connErr *ConnectError
	var statusErr *HTTPStatusError
	var normErr *NormalizationError
	switch {
	case errors.As(err, &connErr):
		return KindConnect
	case errors.As(err, &statusErr):
		return KindHTTPStatus
	case errors.As(err, &normErr):
		return KindNormalization
	default:
		return KindOther
	}
}
