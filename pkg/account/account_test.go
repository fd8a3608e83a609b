package account_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"croon/pkg/account"
)

func openRegistry(t *testing.T) (*account.Registry, string) {
	t.Helper()
	dir := t.TempDir()
	reg, err := account.Open(filepath.Join(dir, "accounts.json"), filepath.Join(dir, "profiles"))
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	return reg, dir
}

func TestAdd_Get_List(t *testing.T) {
	reg, _ := openRegistry(t)

	if _, err := reg.Add("alice", "alice@example.com"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := reg.Add("bob", "bob@example.com"); err != nil {
		t.Fatalf("add: %v", err)
	}

	acct, err := reg.Get("alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acct.Email != "alice@example.com" || !acct.Enabled() {
		t.Fatalf("account = %+v", acct)
	}

	list := reg.List()
	if len(list) != 2 || list[0].Name != "alice" || list[1].Name != "bob" {
		t.Fatalf("list = %+v", list)
	}
}

func TestAdd_Duplicate(t *testing.T) {
	reg, _ := openRegistry(t)
	if _, err := reg.Add("alice", "a@x"); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err := reg.Add("alice", "b@x")
	var exists *account.ExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("expected ExistsError, got %v", err)
	}
}

func TestGet_Unknown(t *testing.T) {
	reg, _ := openRegistry(t)
	_, err := reg.Get("ghost")
	var notFound *account.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestSetStatus_DisableAndReload(t *testing.T) {
	reg, dir := openRegistry(t)
	if _, err := reg.Add("alice", "a@x"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := reg.SetStatus("alice", account.StatusDisabled); err != nil {
		t.Fatalf("disable: %v", err)
	}

	// Reopen from disk: the status change must have been persisted.
	reloaded, err := account.Open(filepath.Join(dir, "accounts.json"), filepath.Join(dir, "profiles"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	acct, err := reloaded.Get("alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acct.Enabled() {
		t.Fatal("account still enabled after disable + reload")
	}
}

func TestTouchLastUsed(t *testing.T) {
	reg, _ := openRegistry(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg.SetNowFunc(func() time.Time { return fixed })

	if _, err := reg.Add("alice", "a@x"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := reg.TouchLastUsed("alice"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	acct, _ := reg.Get("alice")
	if acct.LastUsed == nil || !acct.LastUsed.Equal(fixed) {
		t.Fatalf("last used = %v, want %v", acct.LastUsed, fixed)
	}
}

func TestRename_MovesProfileDir(t *testing.T) {
	reg, dir := openRegistry(t)
	if _, err := reg.Add("alice", "a@x"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := reg.ProfileDir("alice"); err != nil {
		t.Fatalf("profile dir: %v", err)
	}

	if err := reg.Rename("alice", "alicia"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "profiles", "alicia")); err != nil {
		t.Fatalf("renamed profile dir missing: %v", err)
	}
	if _, err := reg.Get("alice"); err == nil {
		t.Fatal("old name still resolves")
	}
}

func TestRemove_DeletesProfileOnRequest(t *testing.T) {
	reg, dir := openRegistry(t)
	if _, err := reg.Add("alice", "a@x"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := reg.ProfileDir("alice"); err != nil {
		t.Fatalf("profile dir: %v", err)
	}
	if err := reg.Remove("alice", true); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "profiles", "alice")); !os.IsNotExist(err) {
		t.Fatalf("profile dir still present: %v", err)
	}
}
