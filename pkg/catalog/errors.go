package catalog

import "fmt"

// ParseError reports a malformed catalog source.
type ParseError struct {
	Source string // file path or format label
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse catalog %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse catalog %s: %s", e.Source, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EmptyCatalogError reports a source that parsed cleanly but yielded
// zero usable items.
type EmptyCatalogError struct {
	Source string
}

func (e *EmptyCatalogError) Error() string {
	return fmt.Sprintf("catalog %s contains no usable items", e.Source)
}

// InsufficientItemsError reports a reservation that exceeds the
// unassigned remainder of the catalog.
type InsufficientItemsError struct {
	Requested int
	Remaining int
}

func (e *InsufficientItemsError) Error() string {
	return fmt.Sprintf("requested %d items but only %d remain unassigned", e.Requested, e.Remaining)
}
