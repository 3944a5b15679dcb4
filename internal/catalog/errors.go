package catalog

import (
	"errors"
	"fmt"
)

// ErrItemNotFound is returned by detail lookups for ids the catalog does not know.
var ErrItemNotFound = errors.New("catalog item not found")

// UpstreamError wraps a network, status or decode failure of a catalog call.
// Callers recover from it locally; it never reaches end users directly.
type UpstreamError struct {
	Op   string // discover|details|count
	Page int    // discover page, 0 when not applicable
	Err  error
}

func (e *UpstreamError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("catalog %s page %d: %v", e.Op, e.Page, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StatusError is the error for a non-2xx catalog response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog returned status %d: %s", e.Code, e.Body)
}
