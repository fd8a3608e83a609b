// Package account manages the pool of platform accounts and their
// metadata. Each account owns a persistent browser profile directory;
// the registry file maps account names to everything else.
package account

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"croon/pkg/atomicfile"
)

// Status values for an account.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Account describes one platform account.
type Account struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	Status    string     `json:"status"`
}

// Enabled reports whether the account may be used for new queues.
func (a Account) Enabled() bool { return a.Status == StatusActive }

// NotFoundError reports a lookup for an unknown account.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("account %s not found", e.Name) }

// ExistsError reports an attempt to add a duplicate account name.
type ExistsError struct {
	Name string
}

func (e *ExistsError) Error() string { return fmt.Sprintf("account %s already exists", e.Name) }

// DisabledError reports an attempt to use a disabled account.
type DisabledError struct {
	Name string
}

func (e *DisabledError) Error() string { return fmt.Sprintf("account %s is disabled", e.Name) }

// Registry is the durable account pool. All mutations rewrite the
// registry file atomically before returning.
type Registry struct {
	mu          sync.Mutex
	path        string
	profilesDir string
	accounts    map[string]Account
	nowFunc     func() time.Time
}

// registryFile is the on-disk shape: name -> account (name omitted from
// the value, the key carries it).
type registryFile map[string]Account

// Open loads the registry at path, creating an empty one if the file
// does not exist. profilesDir is where per-account browser profiles live.
func Open(path, profilesDir string) (*Registry, error) {
	r := &Registry{
		path:        path,
		profilesDir: profilesDir,
		accounts:    make(map[string]Account),
		nowFunc:     time.Now,
	}

	var raw registryFile
	err := atomicfile.ReadJSON(path, &raw)
	switch {
	case os.IsNotExist(err):
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	for name, acct := range raw {
		acct.Name = name
		if acct.Status == "" {
			acct.Status = StatusActive
		}
		r.accounts[name] = acct
	}
	return r, nil
}

// SetNowFunc overrides the clock (for testing).
func (r *Registry) SetNowFunc(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nowFunc = now
}

func (r *Registry) saveLocked() error {
	out := make(registryFile, len(r.accounts))
	for name, acct := range r.accounts {
		stripped := acct
		stripped.Name = ""
		out[name] = stripped
	}
	return atomicfile.WriteJSON(r.path, out)
}

// Add registers a new active account.
func (r *Registry) Add(name, email string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[name]; ok {
		return Account{}, &ExistsError{Name: name}
	}
	acct := Account{
		Name:      name,
		Email:     email,
		CreatedAt: r.nowFunc().UTC(),
		Status:    StatusActive,
	}
	r.accounts[name] = acct
	if err := r.saveLocked(); err != nil {
		delete(r.accounts, name)
		return Account{}, err
	}
	return acct, nil
}

// Get returns the account by name.
func (r *Registry) Get(name string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[name]
	if !ok {
		return Account{}, &NotFoundError{Name: name}
	}
	return acct, nil
}

// List returns all accounts sorted by name.
func (r *Registry) List() []Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Account, 0, len(r.accounts))
	for _, acct := range r.accounts {
		out = append(out, acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetStatus enables or disables an account.
func (r *Registry) SetStatus(name, status string) error {
	if status != StatusActive && status != StatusDisabled {
		return fmt.Errorf("unknown account status %q", status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	acct.Status = status
	r.accounts[name] = acct
	return r.saveLocked()
}

// CheckEnabled returns nil when the account exists and is active,
// NotFoundError or DisabledError otherwise.
func (r *Registry) CheckEnabled(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	if !acct.Enabled() {
		return &DisabledError{Name: name}
	}
	return nil
}

// TouchLastUsed stamps the account's last-used time.
func (r *Registry) TouchLastUsed(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	now := r.nowFunc().UTC()
	acct.LastUsed = &now
	r.accounts[name] = acct
	return r.saveLocked()
}

// Rename changes an account's name and moves its profile directory.
func (r *Registry) Rename(oldName, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[oldName]
	if !ok {
		return &NotFoundError{Name: oldName}
	}
	if _, ok := r.accounts[newName]; ok {
		return &ExistsError{Name: newName}
	}

	oldProfile := filepath.Join(r.profilesDir, oldName)
	newProfile := filepath.Join(r.profilesDir, newName)
	if _, err := os.Stat(oldProfile); err == nil {
		if err := os.Rename(oldProfile, newProfile); err != nil {
			return fmt.Errorf("move profile dir: %w", err)
		}
	}

	delete(r.accounts, oldName)
	acct.Name = newName
	r.accounts[newName] = acct
	return r.saveLocked()
}

// Remove deletes an account and optionally its profile directory.
func (r *Registry) Remove(name string, deleteProfile bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[name]; !ok {
		return &NotFoundError{Name: name}
	}
	delete(r.accounts, name)
	if err := r.saveLocked(); err != nil {
		return err
	}
	if deleteProfile {
		if err := os.RemoveAll(filepath.Join(r.profilesDir, name)); err != nil {
			return fmt.Errorf("delete profile dir: %w", err)
		}
	}
	return nil
}

// ProfileDir returns the browser profile directory for name, creating
// it if needed.
func (r *Registry) ProfileDir(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[name]; !ok {
		return "", &NotFoundError{Name: name}
	}
	dir := filepath.Join(r.profilesDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create profile dir: %w", err)
	}
	return dir, nil
}
