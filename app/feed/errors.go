package feed

import (
	"errors"
	"fmt"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrMissingField    = errors.New("missing required field")
)

// ConfigError reports an unreadable or invalid channel configuration file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("channel config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// FetchError reports a failed feed request.
type FetchError struct {
	ChannelID  string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch feed %s: HTTP %d: %v", e.ChannelID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch feed %s: %v", e.ChannelID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a malformed feed document or an entry missing a
// required field.
type ParseError struct {
	ChannelID string
	Entry     int
	Err       error
}

func (e *ParseError) Error() string {
	if e.Entry > 0 {
		return fmt.Sprintf("parse feed %s: entry %d: %v", e.ChannelID, e.Entry, e.Err)
	}
	return fmt.Sprintf("parse feed %s: %v", e.ChannelID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
