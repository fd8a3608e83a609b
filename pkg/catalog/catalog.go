// Package catalog holds the ordered backlog of work items and the
// reservation cursor. Items are immutable once loaded; queues reference
// them by index range, never by copy. The cursor advances only when a
// range is reserved for a queue, so reloading the same catalog never
// reassigns items already promised to an existing queue.
package catalog

import (
	"strings"
	"sync"
)

// WorkItem is one unit of creative input submitted to the platform.
type WorkItem struct {
	Title  string `json:"title" yaml:"title"`
	Lyrics string `json:"lyrics" yaml:"lyrics"`
	Style  string `json:"style" yaml:"style"`
}

// complete reports whether all required fields are non-empty.
func (w WorkItem) complete() bool {
	return strings.TrimSpace(w.Title) != "" &&
		strings.TrimSpace(w.Lyrics) != "" &&
		strings.TrimSpace(w.Style) != ""
}

// Range is a half-open [Start, End) slice of catalog indices reserved
// for a single queue.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of items in the range.
func (r Range) Len() int { return r.End - r.Start }

// Catalog is the in-memory view of the loaded items plus the cursor.
// It carries no persistence of its own: the queue store snapshots it
// into the shared state file after every reservation.
type Catalog struct {
	mu     sync.Mutex
	items  []WorkItem
	cursor int
}

// New builds a catalog from previously persisted items and cursor.
func New(items []WorkItem, cursor int) *Catalog {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(items) {
		cursor = len(items)
	}
	return &Catalog{items: items, cursor: cursor}
}

// Reserve advances the cursor by count and returns the reserved range.
// Ranges handed out by successive calls are disjoint and contiguous.
func (c *Catalog) Reserve(count int) (Range, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if count <= 0 {
		return Range{}, &InsufficientItemsError{Requested: count, Remaining: len(c.items) - c.cursor}
	}
	if c.cursor+count > len(c.items) {
		return Range{}, &InsufficientItemsError{Requested: count, Remaining: len(c.items) - c.cursor}
	}
	r := Range{Start: c.cursor, End: c.cursor + count}
	c.cursor = r.End
	return r, nil
}

// Unreserve rolls the cursor back by count. The queue store uses it when
// persisting a freshly created queue fails after the range was granted.
func (c *Catalog) Unreserve(count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor -= count
	if c.cursor < 0 {
		c.cursor = 0
	}
}

// Slice returns copies of the items in r, in catalog order.
func (c *Catalog) Slice(r Range) []WorkItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]WorkItem, 0, r.Len())
	for i := r.Start; i < r.End && i < len(c.items); i++ {
		out = append(out, c.items[i])
	}
	return out
}

// Len returns the total number of loaded items.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Remaining returns the number of items not yet reserved.
func (c *Catalog) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) - c.cursor
}

// Cursor returns the current reservation cursor.
func (c *Catalog) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Snapshot returns the items and cursor for persistence.
func (c *Catalog) Snapshot() ([]WorkItem, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]WorkItem, len(c.items))
	copy(items, c.items)
	return items, c.cursor
}

// Equal reports whether other contains exactly the same items in the
// same order. Used to detect an attempted catalog swap while queues
// still reference the loaded one.
func (c *Catalog) Equal(other []WorkItem) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) != len(other) {
		return false
	}
	for i := range c.items {
		if c.items[i] != other[i] {
			return false
		}
	}
	return true
}
