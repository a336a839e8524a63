// Package scanerr defines the closed set of error kinds every venue
// driver and the scanner facade map failures onto.
package scanerr

import (
	"errors"
	"fmt"
)

var (
	ErrHealthCheckFailed = errors.New("health check failed")
	ErrHttpTransport     = errors.New("http transport error")
	ErrInvalidSymbol     = errors.New("invalid symbol")
	ErrParseError        = errors.New("parse error")
	ErrWsRpcError        = errors.New("ws/rpc error")
)

// ApiError wraps a venue's well-formed but non-success envelope.
type ApiError struct {
	Venue   string
	Code    string
	Message string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("%s: api error (code=%s): %s", e.Venue, e.Code, e.Message)
}

func NewApiError(venue, code, message string) error {
	return &ApiError{Venue: venue, Code: code, Message: message}
}

// Wrap prefixes err with the venue name and chains it to kind via %w so
// callers can errors.Is/errors.As through both layers.
func Wrap(venue string, kind error, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", venue, kind)
	}
	return fmt.Errorf("%s: %w: %v", venue, kind, err)
}
