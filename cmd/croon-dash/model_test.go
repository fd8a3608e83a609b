package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"croon/pkg/catalog"
	"croon/pkg/queue"
)

func TestDefaultStatePath_EnvOverrides(t *testing.T) {
	t.Setenv("CROON_STATE_PATH", "/tmp/custom/state.json")
	if got := defaultStatePath(); got != "/tmp/custom/state.json" {
		t.Fatalf("state path = %q", got)
	}

	t.Setenv("CROON_STATE_PATH", "")
	t.Setenv("CROON_HOME", "/tmp/croonhome")
	if got := defaultStatePath(); got != filepath.Join("/tmp/croonhome", "queue_state.json") {
		t.Fatalf("state path = %q", got)
	}
}

func TestUpdate_StateMsgReplacesQueues(t *testing.T) {
	m := newModel()
	entries := []queue.Entry{
		{ID: "11111111-aaaa", AccountName: "alice", TotalItems: 6, BatchSize: 2, ItemsCompleted: 4, Status: queue.StatusRunning, ProgressPercent: 0.66, CreatedAt: time.Now()},
		{ID: "22222222-bbbb", AccountName: "bob", TotalItems: 3, BatchSize: 3, Status: queue.StatusPending, CreatedAt: time.Now()},
	}

	next, _ := m.Update(stateMsg(entries))
	got := next.(Model)
	if len(got.queues) != 2 {
		t.Fatalf("queues = %d, want 2", len(got.queues))
	}

	view := got.View()
	for _, want := range []string{"11111111", "alice", "running", "4/6", "bob", "pending"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestUpdate_QuitKeys(t *testing.T) {
	m := newModel()
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		_, cmd := m.Update(keyMsg(key))
		if cmd == nil {
			t.Fatalf("key %q should quit", key)
		}
		if msg := cmd(); msg != (tea.QuitMsg{}) {
			t.Fatalf("key %q produced %T, want QuitMsg", key, msg)
		}
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestLoadStateCmd_ReadsStoreWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue_state.json")

	store, err := queue.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	items := []catalog.WorkItem{
		{Title: "a", Lyrics: "l", Style: "s"},
		{Title: "b", Lyrics: "l", Style: "s"},
	}
	if err := store.LoadCatalog(items); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if _, err := store.Create(allowAll{}, "alice", 2, 2); err != nil {
		t.Fatalf("create: %v", err)
	}

	msg := loadStateCmd(path)()
	entries, ok := msg.(stateMsg)
	if !ok {
		t.Fatalf("msg = %T", msg)
	}
	if len(entries) != 1 || entries[0].AccountName != "alice" {
		t.Fatalf("entries = %+v", entries)
	}
}

type allowAll struct{}

func (allowAll) CheckEnabled(string) error { return nil }
