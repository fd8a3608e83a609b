package queue_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"croon/pkg/catalog"
	"croon/pkg/queue"
)

// fakeAccounts implements queue.AccountDirectory.
type fakeAccounts struct {
	disabled map[string]bool
	missing  map[string]bool
}

func (f *fakeAccounts) CheckEnabled(name string) error {
	if f.missing[name] {
		return fmt.Errorf("account %s not found", name)
	}
	if f.disabled[name] {
		return fmt.Errorf("account %s is disabled", name)
	}
	return nil
}

func allEnabled() *fakeAccounts { return &fakeAccounts{} }

func items(n int) []catalog.WorkItem {
	out := make([]catalog.WorkItem, n)
	for i := range out {
		out[i] = catalog.WorkItem{
			Title:  fmt.Sprintf("song %d", i),
			Lyrics: "la la",
			Style:  "pop",
		}
	}
	return out
}

func openStore(t *testing.T, n int) (*queue.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue_state.json")
	s, err := queue.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if n > 0 {
		if err := s.LoadCatalog(items(n)); err != nil {
			t.Fatalf("load catalog: %v", err)
		}
	}
	return s, path
}

func TestCreate_ReservesRangeAndPersists(t *testing.T) {
	s, path := openStore(t, 10)

	e1, err := s.Create(allEnabled(), "alice", 6, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	e2, err := s.Create(allEnabled(), "bob", 3, 3)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if e1.ItemRange.Start != 0 || e1.ItemRange.End != 6 {
		t.Fatalf("first range = %+v", e1.ItemRange)
	}
	if e2.ItemRange.Start != 6 || e2.ItemRange.End != 9 {
		t.Fatalf("second range = %+v", e2.ItemRange)
	}
	if e1.Status != queue.StatusPending {
		t.Fatalf("status = %s", e1.Status)
	}

	// Crash-and-reload: granted ranges and cursor must survive.
	reloaded, err := queue.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reloaded.Catalog().Cursor(); got != 9 {
		t.Fatalf("cursor after reload = %d, want 9", got)
	}
	re1, err := reloaded.Get(e1.ID)
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if re1.ItemRange != e1.ItemRange {
		t.Fatalf("range after reload = %+v, want %+v", re1.ItemRange, e1.ItemRange)
	}
}

func TestCreate_Validation(t *testing.T) {
	s, _ := openStore(t, 10)

	cases := []struct {
		name       string
		total      int
		batch      int
		wantReason string
	}{
		{"zero total", 0, 2, "positive"},
		{"batch too small", 5, 0, "between"},
		{"batch too large", 5, 11, "between"},
		{"batch exceeds total", 2, 5, "exceed"},
	}
	for _, tc := range cases {
		_, err := s.Create(allEnabled(), "alice", tc.total, tc.batch)
		var verr *queue.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestCreate_AccountChecks(t *testing.T) {
	s, _ := openStore(t, 10)

	accts := &fakeAccounts{missing: map[string]bool{"ghost": true}, disabled: map[string]bool{"old": true}}
	if _, err := s.Create(accts, "ghost", 2, 2); err == nil {
		t.Fatal("expected error for unknown account")
	}
	if _, err := s.Create(accts, "old", 2, 2); err == nil {
		t.Fatal("expected error for disabled account")
	}
	// No reservation may leak from the failed creates.
	if got := s.Catalog().Cursor(); got != 0 {
		t.Fatalf("cursor = %d, want 0", got)
	}
}

func TestCreate_InsufficientItems(t *testing.T) {
	s, _ := openStore(t, 4)
	if _, err := s.Create(allEnabled(), "alice", 3, 1); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := s.Create(allEnabled(), "alice", 2, 1)
	var insufficient *catalog.InsufficientItemsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientItemsError, got %v", err)
	}
}

func TestCreate_RegeneratesCollidingIDs(t *testing.T) {
	s, _ := openStore(t, 10)

	ids := []string{"dup", "dup", "unique"}
	s.SetIDFunc(func() string {
		id := ids[0]
		if len(ids) > 1 {
			ids = ids[1:]
		}
		return id
	})

	e1, err := s.Create(allEnabled(), "alice", 2, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	e2, err := s.Create(allEnabled(), "alice", 2, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e1.ID != "dup" || e2.ID != "unique" {
		t.Fatalf("ids = %s, %s", e1.ID, e2.ID)
	}
}

func TestTransition_LegalPath(t *testing.T) {
	s, _ := openStore(t, 6)
	e, err := s.Create(allEnabled(), "alice", 4, 2)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	running, err := s.Transition(e.ID, queue.StatusRunning)
	if err != nil {
		t.Fatalf("to running: %v", err)
	}
	if running.StartedAt == nil {
		t.Fatal("started_at not stamped")
	}

	done, err := s.Transition(e.ID, queue.StatusCompleted)
	if err != nil {
		t.Fatalf("to completed: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatal("completed_at not stamped")
	}
}

func TestTransition_TerminalStatesAreFinal(t *testing.T) {
	s, _ := openStore(t, 6)
	e, _ := s.Create(allEnabled(), "alice", 4, 2)
	if _, err := s.Transition(e.ID, queue.StatusRunning); err != nil {
		t.Fatalf("to running: %v", err)
	}
	if _, err := s.Transition(e.ID, queue.StatusCompleted); err != nil {
		t.Fatalf("to completed: %v", err)
	}

	_, err := s.Transition(e.ID, queue.StatusRunning)
	var invalid *queue.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError for completed -> running, got %v", err)
	}
}

func TestTransition_SameStateIsIdempotent(t *testing.T) {
	s, _ := openStore(t, 6)
	e, _ := s.Create(allEnabled(), "alice", 4, 2)
	if _, err := s.Transition(e.ID, queue.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// A racing second cancel resolves as a no-op, not an error.
	if _, err := s.Transition(e.ID, queue.StatusCancelled); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
}

func TestTransition_PauseResume(t *testing.T) {
	s, _ := openStore(t, 6)
	e, _ := s.Create(allEnabled(), "alice", 4, 2)
	for _, to := range []queue.Status{queue.StatusRunning, queue.StatusPaused, queue.StatusRunning} {
		if _, err := s.Transition(e.ID, to); err != nil {
			t.Fatalf("to %s: %v", to, err)
		}
	}
}

func TestTransition_UnknownQueue(t *testing.T) {
	s, _ := openStore(t, 6)
	_, err := s.Transition("nope", queue.StatusRunning)
	var notFound *queue.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestRecordProgress_MonotonicAndClamped(t *testing.T) {
	s, path := openStore(t, 6)
	e, _ := s.Create(allEnabled(), "alice", 4, 2)
	if _, err := s.Transition(e.ID, queue.StatusRunning); err != nil {
		t.Fatalf("to running: %v", err)
	}

	got, err := s.RecordProgress(e.ID, 2, 2)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if got.ItemsCompleted != 2 || got.ProgressPercent != 0.5 {
		t.Fatalf("after first record: %+v", got)
	}
	if got.NextItem != 2 || got.CurrentBatch != 1 {
		t.Fatalf("resume point after first record: %+v", got)
	}

	if _, err := s.RecordProgress(e.ID, -1, 2); err == nil {
		t.Fatal("negative delta accepted")
	}

	got, err = s.RecordProgress(e.ID, 10, 4)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if got.ItemsCompleted != 4 {
		t.Fatalf("items_completed = %d, want clamp at 4", got.ItemsCompleted)
	}

	// Durability: the clamped value is what a reload observes.
	reloaded, err := queue.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	re, _ := reloaded.Get(e.ID)
	if re.ItemsCompleted != 4 || re.NextItem != 4 || re.CurrentBatch != 2 {
		t.Fatalf("reloaded entry = %+v", re)
	}
}

func TestRecordProgress_ResumePointAdvancesOnFailuresToo(t *testing.T) {
	s, path := openStore(t, 6)
	e, _ := s.Create(allEnabled(), "alice", 4, 2)
	if _, err := s.Transition(e.ID, queue.StatusRunning); err != nil {
		t.Fatalf("to running: %v", err)
	}

	// Item 1 succeeds, item 2 fails: both are consumed, only one counts.
	if _, err := s.RecordProgress(e.ID, 1, 1); err != nil {
		t.Fatalf("record success: %v", err)
	}
	got, err := s.RecordProgress(e.ID, 0, 2)
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if got.ItemsCompleted != 1 || got.NextItem != 2 || got.CurrentBatch != 1 {
		t.Fatalf("after failed item: %+v", got)
	}

	// A stale replay cannot move the resume point backwards.
	got, err = s.RecordProgress(e.ID, 0, 1)
	if err != nil {
		t.Fatalf("stale record: %v", err)
	}
	if got.NextItem != 2 {
		t.Fatalf("resume point regressed to %d", got.NextItem)
	}

	// Crash-and-reload: a resumed run starts exactly past item 2.
	reloaded, err := queue.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	re, _ := reloaded.Get(e.ID)
	if re.NextItem != 2 || re.ItemsCompleted != 1 {
		t.Fatalf("reloaded entry = %+v", re)
	}
}

func TestOpen_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue_state.json")
	if err := os.WriteFile(path, []byte(`{"version":"99","queues":[]}`), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	_, err := queue.Open(path)
	var verr *queue.StateVersionError
	if !errors.As(err, &verr) {
		t.Fatalf("expected StateVersionError, got %v", err)
	}
}

func TestLoadCatalog_SwapRules(t *testing.T) {
	s, _ := openStore(t, 4)
	if _, err := s.Create(allEnabled(), "alice", 2, 1); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Identical reload is a no-op.
	if err := s.LoadCatalog(items(4)); err != nil {
		t.Fatalf("identical reload: %v", err)
	}
	// Swapping while an unfinished queue exists is rejected.
	err := s.LoadCatalog(items(7))
	var inUse *queue.CatalogInUseError
	if !errors.As(err, &inUse) {
		t.Fatalf("expected CatalogInUseError, got %v", err)
	}
}

func TestRunnable_FIFOOrder(t *testing.T) {
	s, _ := openStore(t, 9)
	e1, _ := s.Create(allEnabled(), "a", 3, 1)
	e2, _ := s.Create(allEnabled(), "b", 3, 1)
	e3, _ := s.Create(allEnabled(), "c", 3, 1)
	if _, err := s.Transition(e2.ID, queue.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	runnable := s.Runnable()
	if len(runnable) != 2 || runnable[0].ID != e1.ID || runnable[1].ID != e3.ID {
		t.Fatalf("runnable = %+v", runnable)
	}
}
