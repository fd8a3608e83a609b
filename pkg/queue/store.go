// Package queue is the durable state machine for batch jobs. The store
// owns a single versioned JSON state file holding the work catalog, its
// reservation cursor and every queue entry. Every mutation rewrites the
// whole file via write-temp-then-rename before the mutating call
// returns, so a crash at any point leaves either the old or the new
// state on disk, never a partial one.
package queue

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"croon/pkg/atomicfile"
	"croon/pkg/catalog"
)

// StateVersion is the schema version written to the state file.
const StateVersion = "1"

// Batch size bounds enforced at enqueue time.
const (
	MinBatchSize = 1
	MaxBatchSize = 10
)

// AccountDirectory answers whether an account may back a new queue.
// The account registry implements it.
type AccountDirectory interface {
	CheckEnabled(name string) error
}

// stateFile is the on-disk shape of the store.
type stateFile struct {
	Version     string             `json:"version"`
	Items       []catalog.WorkItem `json:"items"`
	Cursor      int                `json:"cursor"`
	Queues      []Entry            `json:"queues"`
	LastUpdated time.Time          `json:"last_updated"`
}

// Store is the durable queue collection plus the catalog it assigns
// items from. Safe for concurrent use; pause/cancel requests may arrive
// from a different goroutine than the engine's worker.
type Store struct {
	mu      sync.Mutex
	path    string
	cat     *catalog.Catalog
	queues  map[string]Entry
	nowFunc func() time.Time
	newID   func() string
}

// Open loads the store at path. A missing file starts empty; an
// unrecognized version fails fast with StateVersionError.
func Open(path string) (*Store, error) {
	s := &Store{
		path:    path,
		queues:  make(map[string]Entry),
		nowFunc: time.Now,
		newID:   func() string { return uuid.NewString() },
	}

	var raw stateFile
	err := atomicfile.ReadJSON(path, &raw)
	switch {
	case os.IsNotExist(err):
		s.cat = catalog.New(nil, 0)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load queue state: %w", err)
	}

	if raw.Version != StateVersion {
		return nil, &StateVersionError{Path: path, Version: raw.Version}
	}

	s.cat = catalog.New(raw.Items, raw.Cursor)
	for _, e := range raw.Queues {
		if e.ID == "" || !e.Status.Known() {
			continue // skip malformed entries rather than refusing the whole file
		}
		s.queues[e.ID] = e
	}
	return s, nil
}

// SetNowFunc overrides the clock (for testing).
func (s *Store) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = now
}

// SetIDFunc overrides queue ID generation (for testing).
func (s *Store) SetIDFunc(gen func() string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newID = gen
}

// Catalog exposes the store-owned catalog for read access.
func (s *Store) Catalog() *catalog.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat
}

func (s *Store) persistLocked() error {
	items, cursor := s.cat.Snapshot()
	raw := stateFile{
		Version:     StateVersion,
		Items:       items,
		Cursor:      cursor,
		Queues:      s.sortedLocked(),
		LastUpdated: s.nowFunc().UTC(),
	}
	return atomicfile.WriteJSON(s.path, raw)
}

func (s *Store) sortedLocked() []Entry {
	out := make([]Entry, 0, len(s.queues))
	for _, e := range s.queues {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// LoadCatalog replaces the stored catalog items. Loading an identical
// catalog is a no-op; replacing it while unfinished queues reference the
// loaded items fails with CatalogInUseError.
func (s *Store) LoadCatalog(items []catalog.WorkItem) error {
	if len(items) == 0 {
		return &catalog.EmptyCatalogError{Source: "load"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cat.Len() > 0 && s.cat.Equal(items) {
		return nil
	}
	active := 0
	for _, e := range s.queues {
		if !e.Status.Terminal() {
			active++
		}
	}
	if active > 0 && s.cat.Len() > 0 {
		return &CatalogInUseError{Active: active}
	}

	prev := s.cat
	s.cat = catalog.New(items, 0)
	if err := s.persistLocked(); err != nil {
		s.cat = prev
		return err
	}
	return nil
}

// Create validates the request, reserves a contiguous range from the
// catalog and persists the new entry. The reservation is rolled back if
// persistence fails.
func (s *Store) Create(accounts AccountDirectory, accountName string, totalItems, batchSize int) (Entry, error) {
	if totalItems <= 0 {
		return Entry{}, &ValidationError{Reason: "total items must be positive"}
	}
	if batchSize < MinBatchSize || batchSize > MaxBatchSize {
		return Entry{}, &ValidationError{Reason: fmt.Sprintf("batch size must be between %d and %d", MinBatchSize, MaxBatchSize)}
	}
	if batchSize > totalItems {
		return Entry{}, &ValidationError{Reason: "batch size cannot exceed total items"}
	}
	if err := accounts.CheckEnabled(accountName); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.cat.Reserve(totalItems)
	if err != nil {
		return Entry{}, err
	}

	id := s.newID()
	for _, taken := s.queues[id]; taken; _, taken = s.queues[id] {
		id = s.newID()
	}

	e := Entry{
		ID:          id,
		AccountName: accountName,
		TotalItems:  totalItems,
		BatchSize:   batchSize,
		ItemRange:   r,
		Status:      StatusPending,
		CreatedAt:   s.nowFunc().UTC(),
	}
	s.queues[id] = e
	if err := s.persistLocked(); err != nil {
		delete(s.queues, id)
		s.cat.Unreserve(totalItems)
		return Entry{}, err
	}
	return e, nil
}

// Transition moves a queue along the state graph and persists the
// result. A transition into the queue's current state is an idempotent
// no-op, which resolves races between the engine and an external
// pause/cancel request. Illegal edges fail with InvalidTransitionError.
func (s *Store) Transition(id string, to Status) (Entry, error) {
	if !to.Known() {
		return Entry{}, &ValidationError{Reason: fmt.Sprintf("unknown status %q", to)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.queues[id]
	if !ok {
		return Entry{}, &NotFoundError{ID: id}
	}
	if e.Status == to {
		return e, nil
	}
	if !e.Status.CanTransition(to) {
		return Entry{}, &InvalidTransitionError{ID: id, From: e.Status, To: to}
	}

	now := s.nowFunc().UTC()
	if to == StatusRunning && e.StartedAt == nil {
		e.StartedAt = &now
	}
	if to.Terminal() {
		e.CompletedAt = &now
	}
	e.Status = to
	e.ProgressPercent = e.progress()

	s.queues[id] = e
	if err := s.persistLocked(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// RecordProgress adds delta fully finished items and advances the
// resume point past the item just attempted, then persists. nextItem is
// the queue-relative index of the next item to process; passing it on
// failures too keeps a resumed run from re-submitting items that were
// already attempted. items_completed never decreases and never exceeds
// total_items; the resume point is monotonic and derives current_batch.
func (s *Store) RecordProgress(id string, delta, nextItem int) (Entry, error) {
	if delta < 0 {
		return Entry{}, &ValidationError{Reason: "progress delta cannot be negative"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.queues[id]
	if !ok {
		return Entry{}, &NotFoundError{ID: id}
	}

	e.ItemsCompleted += delta
	if e.ItemsCompleted > e.TotalItems {
		e.ItemsCompleted = e.TotalItems
	}
	if nextItem > e.NextItem {
		e.NextItem = nextItem
	}
	if e.NextItem >= e.TotalItems {
		e.NextItem = e.TotalItems
		e.CurrentBatch = e.BatchCount()
	} else {
		e.CurrentBatch = e.NextItem / e.BatchSize
	}
	e.ProgressPercent = e.progress()

	s.queues[id] = e
	if err := s.persistLocked(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Get returns the queue with the given ID.
func (s *Store) Get(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.queues[id]
	if !ok {
		return Entry{}, &NotFoundError{ID: id}
	}
	return e, nil
}

// LoadAll returns every queue in creation (FIFO) order.
func (s *Store) LoadAll() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Runnable returns queues eligible for execution (pending or paused),
// in creation order.
func (s *Store) Runnable() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0)
	for _, e := range s.sortedLocked() {
		if e.Status == StatusPending || e.Status == StatusPaused {
			out = append(out, e)
		}
	}
	return out
}
