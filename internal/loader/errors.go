package loader

import (
	"errors"
	"fmt"
)

// ErrNoRows is returned when a load path produced no usable rows.
var ErrNoRows = errors.New("no usable rows")

// ParseError is a transient primary-parser failure. It triggers the fallback path.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FetchError is a transport failure: a non-success status or a network/file error.
type FetchError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// LoadError is fatal for a load attempt. Reason carries the primary failure that
// sent the loader down the fallback path, when there was one.
type LoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("load %s: fallback after %q failed: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
