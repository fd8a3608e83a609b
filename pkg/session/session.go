// Package session maps an account to a live, exclusive, time-bounded
// authenticated automation context. A session binds a profile lock, a
// running browser and an extracted bearer token. Sessions are never
// persisted; after a restart the engine must re-acquire.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// MaxLifetime is the advisory upper bound on a token's validity. The
// manager does not refresh proactively; expiry surfaces as an
// authorization failure on use.
const MaxLifetime = 24 * time.Hour

// DefaultTokenTimeout bounds how long Acquire waits for a token after
// navigation before failing with TokenError.
const DefaultTokenTimeout = 30 * time.Second

// Tab is one automation surface (a browser tab) bound to a session.
// Concrete tabs are owned by the browser driver; the engine treats them
// as opaque handles passed to the form filler.
type Tab interface {
	// Healthy probes whether the tab still responds.
	Healthy(ctx context.Context) bool
	Close() error
}

// Handle is a live browser bound to one account profile.
type Handle interface {
	// AuthToken navigates to the authenticated page and polls for the
	// session token until ctx expires.
	AuthToken(ctx context.Context) (string, error)
	// NewTab opens a fresh tab on the creation page.
	NewTab(ctx context.Context) (Tab, error)
	// Healthy probes whether the browser process is still alive.
	Healthy(ctx context.Context) bool
	Close() error
}

// Browser launches automation resources. The chromedp driver implements
// it in production; tests use stubs.
type Browser interface {
	Launch(ctx context.Context, profileDir string) (Handle, error)
}

// ProfileSource resolves an account's profile directory. The account
// registry implements it.
type ProfileSource interface {
	ProfileDir(name string) (string, error)
}

// UsageRecorder is implemented by profile sources that track when an
// account was last used; the account registry is one. Acquire stamps it
// on success, best-effort.
type UsageRecorder interface {
	TouchLastUsed(name string) error
}

// Session is a live authenticated automation context for one account.
type Session struct {
	AccountName string
	Token       string
	AcquiredAt  time.Time
	ExpiresAt   time.Time

	handle Handle
	lock   *ProfileLock

	mu       sync.Mutex
	released bool
}

// NewTab opens a tab bound to this session's browser.
func (s *Session) NewTab(ctx context.Context) (Tab, error) {
	return s.handle.NewTab(ctx)
}

// Healthy probes the underlying browser.
func (s *Session) Healthy(ctx context.Context) bool {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()
	return s.handle.Healthy(ctx)
}

// Manager acquires and releases sessions, enforcing the one-live-
// session-per-account rule through the profile lock.
type Manager struct {
	profiles     ProfileSource
	browser      Browser
	tokenTimeout time.Duration
	nowFunc      func() time.Time
	logger       *log.Logger
}

// NewManager builds a Manager. logger may be nil to discard.
func NewManager(profiles ProfileSource, browser Browser, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(discard{}, "", 0)
	}
	return &Manager{
		profiles:     profiles,
		browser:      browser,
		tokenTimeout: DefaultTokenTimeout,
		nowFunc:      time.Now,
		logger:       logger,
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// SetTokenTimeout overrides the bounded token wait (for testing).
func (m *Manager) SetTokenTimeout(d time.Duration) { m.tokenTimeout = d }

// SetNowFunc overrides the clock (for testing).
func (m *Manager) SetNowFunc(now func() time.Time) { m.nowFunc = now }

// Acquire takes the account's profile lock, launches the browser and
// extracts the session token. Exactly one live session per account can
// exist; a second Acquire fails with ProfileLockedError until the first
// is released.
func (m *Manager) Acquire(ctx context.Context, accountName string) (*Session, error) {
	profileDir, err := m.profiles.ProfileDir(accountName)
	if err != nil {
		return nil, fmt.Errorf("resolve profile for %s: %w", accountName, err)
	}

	lock, err := acquireProfileLock(accountName, profileDir)
	if err != nil {
		return nil, err
	}

	handle, err := m.browser.Launch(ctx, profileDir)
	if err != nil {
		lock.Release()
		return nil, &ProfileLaunchError{Account: accountName, Err: err}
	}

	tokenCtx, cancel := context.WithTimeout(ctx, m.tokenTimeout)
	defer cancel()
	token, err := handle.AuthToken(tokenCtx)
	if err != nil {
		handle.Close()
		lock.Release()
		return nil, &TokenError{Account: accountName, Err: err}
	}

	if rec, ok := m.profiles.(UsageRecorder); ok {
		if err := rec.TouchLastUsed(accountName); err != nil {
			m.logger.Printf("touch last used for %s: %v", accountName, err)
		}
	}

	now := m.nowFunc().UTC()
	m.logger.Printf("session acquired for %s (token length %d)", accountName, len(token))
	return &Session{
		AccountName: accountName,
		Token:       token,
		AcquiredAt:  now,
		ExpiresAt:   now.Add(MaxLifetime),
		handle:      handle,
		lock:        lock,
	}, nil
}

// Release closes the browser and drops the profile lock. Idempotent:
// double-release is a no-op, not an error.
func (m *Manager) Release(s *Session) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	s.mu.Unlock()

	closeErr := s.handle.Close()
	lockErr := s.lock.Release()
	m.logger.Printf("session released for %s", s.AccountName)
	if closeErr != nil {
		return fmt.Errorf("close browser: %w", closeErr)
	}
	return lockErr
}
