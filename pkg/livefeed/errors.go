package livefeed

import "errors"

var (
	ErrFeedTimeout    = errors.New("sensor feed timed out")
	ErrConnectionLost = errors.New("connection to water sensor lost")
	ErrUnauthorized   = errors.New("sensor feed rejected the api key")
	ErrInvalidFeedURL = errors.New("invalid sensor feed url")
	ErrMalformed      = errors.New("malformed status message")
)
