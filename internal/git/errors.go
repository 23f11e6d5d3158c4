package git

import (
	"errors"
	"fmt"
)

// Sentinel errors describing why an extraction was aborted.
var (
	ErrTipUnresolved    = errors.New("tip cannot be resolved")
	ErrMalformedMarker  = errors.New("marker is not a well-formed commit id")
	ErrMarkerNotFound   = errors.New("marker commit not found")
	ErrGraphUnreadable  = errors.New("commit graph cannot be walked")
	ErrCommitUnreadable = errors.New("commit cannot be loaded")
)

// GraphError is returned for failures that abort a whole extraction.
// It matches both its Kind sentinel and the underlying cause with errors.Is.
type GraphError struct {
	Op   string
	Kind error
	Err  error
}

func (e *GraphError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *GraphError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func graphError(op string, kind, err error) *GraphError {
	return &GraphError{Op: op, Kind: kind, Err: err}
}

// IsMarkerRejected reports whether err means the stored marker can no longer
// be used, e.g. after history was rewritten.
func IsMarkerRejected(err error) bool {
	return errors.Is(err, ErrMarkerNotFound) || errors.Is(err, ErrMalformedMarker)
}
