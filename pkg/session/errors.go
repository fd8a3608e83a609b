package session

import "fmt"

// ProfileLockedError reports that another live process holds the
// account's profile lock. This signals operator conflict, not a
// transient failure, so callers must not auto-retry.
type ProfileLockedError struct {
	Account string
	PID     int
}

func (e *ProfileLockedError) Error() string {
	return fmt.Sprintf("profile for account %s is locked by pid %d", e.Account, e.PID)
}

// ProfileLaunchError reports a failure to start the automation
// resource for an account's profile.
type ProfileLaunchError struct {
	Account string
	Err     error
}

func (e *ProfileLaunchError) Error() string {
	return fmt.Sprintf("launch browser for account %s: %v", e.Account, e.Err)
}

func (e *ProfileLaunchError) Unwrap() error { return e.Err }

// TokenError reports that no valid session token appeared within the
// bounded wait after navigating to the authenticated page.
type TokenError struct {
	Account string
	Err     error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("no session token for account %s: %v", e.Account, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }
