package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// lockFileName lives inside the profile directory and records the PID
// of the holder. Creation uses O_EXCL so two processes cannot both win;
// locks left behind by dead processes are reclaimed.
const lockFileName = "croon.lock"

// ProfileLock is an exclusive lock on one account's profile directory.
type ProfileLock struct {
	path     string
	released bool
}

// acquireProfileLock takes the lock for profileDir or returns
// ProfileLockedError naming the live holder.
func acquireProfileLock(account, profileDir string) (*ProfileLock, error) {
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	path := filepath.Join(profileDir, lockFileName)

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("write lock file: %w", errors.Join(werr, cerr))
			}
			return &ProfileLock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		pid, alive := lockHolder(path)
		if alive {
			return nil, &ProfileLockedError{Account: account, PID: pid}
		}
		// Stale lock from a dead process: reclaim and retry once.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reclaim stale lock: %w", err)
		}
	}
	return nil, &ProfileLockedError{Account: account}
}

// lockHolder reads the PID from the lock file and reports whether that
// process is still alive. Unreadable or garbled lock files count as
// stale.
func lockHolder(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	// Signal 0 probes existence without delivering anything.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return pid, false
	}
	return pid, true
}

// Release drops the lock. Safe to call more than once.
func (l *ProfileLock) Release() error {
	if l == nil || l.released {
		return nil
	}
	l.released = true
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}
