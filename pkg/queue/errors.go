package queue

import "fmt"

// NotFoundError reports a lookup for an unknown queue ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("queue %s not found", e.ID) }

// InvalidTransitionError reports an attempted edge outside the state graph.
type InvalidTransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("queue %s: illegal transition %s -> %s", e.ID, e.From, e.To)
}

// ValidationError reports bad enqueue input. Caller's fault, never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid queue request: " + e.Reason }

// StateVersionError reports a state file written by an unknown schema
// version. Failing fast here beats silently truncating newer data.
type StateVersionError struct {
	Path    string
	Version string
}

func (e *StateVersionError) Error() string {
	return fmt.Sprintf("state file %s has unsupported version %q", e.Path, e.Version)
}

// CatalogInUseError reports an attempted catalog swap while unfinished
// queues still reference the loaded items.
type CatalogInUseError struct {
	Active int
}

func (e *CatalogInUseError) Error() string {
	return fmt.Sprintf("cannot replace catalog: %d unfinished queue(s) still reference it", e.Active)
}
