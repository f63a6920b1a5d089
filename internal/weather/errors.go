package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned when the user has not granted location access.
	ErrPermissionDenied = errors.New("location permission not granted")

	// ErrLocationUnavailable is returned when location acquisition exhausted its retries.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrSourceUnavailable marks network or server failures of a data source.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrDecode marks a corrupt cache payload or a malformed source payload.
	ErrDecode = errors.New("decode error")

	// ErrNotCovered is returned by sources that have no data for a region.
	ErrNotCovered = errors.New("location not covered by source")

	// ErrCacheMiss is returned when no cache entry exists for a key.
	ErrCacheMiss = errors.New("no cached weather for key")

	// ErrNotFound is returned when a saved location does not exist.
	ErrNotFound = errors.New("not found")
)

// SourceError wraps a failure of one named data source.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrSourceUnavailable) match any SourceError.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// NewSourceError wraps err as a failure of source. A nil err stays nil.
func NewSourceError(source string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Source: source, Err: err}
}
