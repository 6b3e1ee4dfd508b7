package feed

import (
	"errors"
	"fmt"
)

// ErrDiscoveryExhausted is returned only after every discovery
// candidate has been tried and none yielded a parsable feed.
var ErrDiscoveryExhausted = errors.New("no feed found at or near the given URL")

// NetworkError marks a fetch that failed before any feed document was
// obtained: connection failures, timeouts, HTTP error statuses. It is
// recoverable per feed; the cached articles stay untouched.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError marks a response that arrived but could not be understood
// as any supported feed format. Terminal for the cycle for that feed;
// the cached articles stay untouched.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
