package errors

import (
	"errors"
	"fmt"
)

// Custom error types for the URL shortener application

// ErrInvalidURL is returned when the destination is missing or is not an absolute http(s) URL
var ErrInvalidURL = errors.New("invalid URL. Include protocol (http/https)")

// ErrInvalidShortCode is returned when a custom code does not match [A-Za-z0-9_-]{3,30}
var ErrInvalidShortCode = errors.New("customCode must be 3-30 chars [A-Za-z0-9-_]")

// ErrCodeConflict is returned when a custom code is already reserved, expired or not
var ErrCodeConflict = errors.New("customCode already in use")

// ErrInvalidExpiry is returned when expireAt cannot be parsed into a timestamp
var ErrInvalidExpiry = errors.New("invalid expireAt timestamp")

// ErrShortCodeGenerationFailed is returned when we can't generate a unique short code
// within the configured number of attempts
var ErrShortCodeGenerationFailed = errors.New("failed to generate unique short code")

// ErrShortCodeNotFound is returned when a short code doesn't exist in the store
var ErrShortCodeNotFound = errors.New("short code not found")

// ErrLinkExpired is returned when a link exists but its expiry is in the past
var ErrLinkExpired = errors.New("short link has expired")

// ErrDuplicateCode is returned by stores that enforce code uniqueness on insert
var ErrDuplicateCode = errors.New("duplicate short code")

// ErrDuplicateID is returned when a record id is already used by another code
var ErrDuplicateID = errors.New("duplicate link id")

// ErrInvalidRecord is returned when an imported record breaks the analytics invariants
var ErrInvalidRecord = errors.New("invalid link record")

// ErrStoreUnavailable wraps every persistence I/O failure
var ErrStoreUnavailable = errors.New("link store unavailable")

// StoreFailure wraps a driver error so that errors.Is(err, ErrStoreUnavailable) holds.
func StoreFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// ErrClickRecordingFailed is returned when click recording fails
type ErrClickRecordingFailed struct {
	Code   string
	Reason string
}

func (e ErrClickRecordingFailed) Error() string {
	return fmt.Sprintf("failed to record click for code %s: %s", e.Code, e.Reason)
}

// ErrURLCheckFailed is returned when URL health check fails
type ErrURLCheckFailed struct {
	URL    string
	Reason string
}

func (e ErrURLCheckFailed) Error() string {
	return fmt.Sprintf("failed to check URL %s: %s", e.URL, e.Reason)
}

// ErrConfigLoad is returned when configuration loading fails
type ErrConfigLoad struct {
	Path   string
	Reason string
}

func (e ErrConfigLoad) Error() string {
	return fmt.Sprintf("failed to load config from %s: %s", e.Path, e.Reason)
}
