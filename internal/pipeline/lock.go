package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrLocked is returned when another run holds a fresh lease.
var ErrLocked = errors.New("another run is in progress")

// Lock is a lease file guarding against overlapping runs.
type Lock struct {
	path string
}

type lease struct {
	PID      int       `json:"pid"`
	Acquired time.Time `json:"acquired"`
}

// Acquire creates the lease file at path. A lease older than ttl is
// considered abandoned and taken over.
func Acquire(path string, ttl time.Duration, now time.Time) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			data, _ := json.Marshal(lease{PID: os.Getpid(), Acquired: now})
			_, werr := f.Write(data)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("writing lock file: %w", errors.Join(werr, cerr))
			}
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}
		if !stale(path, ttl, now) {
			return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, path)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale lock: %w", err)
		}
	}
	return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, path)
}

func stale(path string, ttl time.Duration, now time.Time) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return os.IsNotExist(err)
	}
	var l lease
	if err := json.Unmarshal(data, &l); err != nil || l.Acquired.IsZero() {
		fi, serr := os.Stat(path)
		if serr != nil {
			return true
		}
		return now.Sub(fi.ModTime()) > ttl
	}
	return now.Sub(l.Acquired) > ttl
}

// Release removes the lease file.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}
