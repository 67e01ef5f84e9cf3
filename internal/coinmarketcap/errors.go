package coinmarketcap

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is returned when the lookup term is empty or blank.
	ErrEmptyQuery = errors.New("coinmarketcap: no query found")

	// ErrNotFound signals that no catalog entry matched any requested term.
	// It is a normal outcome, not a failure.
	ErrNotFound = errors.New("coinmarketcap: no matching coin")

	// ErrSnapshotMissing is returned by a CacheStore holding no snapshot.
	ErrSnapshotMissing = errors.New("coinmarketcap: no catalog snapshot")
)

// APIError is a failure reported by the CoinMarketCap service itself:
// bad or missing key, exhausted plan credits, rate limiting, outages.
type APIError struct {
	StatusCode int    // HTTP status, 0 when the envelope carried the error
	ErrorCode  int    // status.error_code from the response envelope
	Message    string // status.error_message
}

func (e *APIError) Error() string {
	if e.ErrorCode != 0 {
		return fmt.Sprintf("coinmarketcap api error %d (http %d): %s", e.ErrorCode, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("coinmarketcap api error (http %d): %s", e.StatusCode, e.Message)
}

// CacheCorruptError reports a persisted catalog snapshot that could not be
// read back. The snapshot is left in place.
type CacheCorruptError struct {
	Store string
	Err   error
}

func (e *CacheCorruptError) Error() string {
	return fmt.Sprintf("catalog snapshot %s is unreadable: %v", e.Store, e.Err)
}

func (e *CacheCorruptError) Unwrap() error { return e.Err }

// classifyFetchError decides which lookup failures reach the caller.
// Service errors, blank queries and unreadable snapshots are returned
// unchanged; anything else yields nil and is reported as "no results".
// Cancellation of the caller's context is checked before this runs.
func classifyFetchError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	var corrupt *CacheCorruptError
	if errors.As(err, &corrupt) {
		return err
	}
	if errors.Is(err, ErrEmptyQuery) {
		return err
	}
	return nil
}
