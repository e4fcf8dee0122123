// Package journal keeps the outcome of the last patch run per project in the
// user cache directory, so `nextpatch status` can show it later.
package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when Entry format changes
const schemaVersion uint16 = 1

// Store is a directory of msgpack-encoded entries keyed by project root.
// Safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	dir string
}

// FileOutcome is the result for one patched file.
type FileOutcome struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// Entry records one run.
type Entry struct {
	Schema uint16

	Root    string
	Agent   string
	Env     string
	Package string
	Staging string
	DryRun  bool

	Files []FileOutcome

	// Empty on success.
	FailureKind    string
	FailureMessage string

	StartedAt  time.Time
	DurationMS uint32
}

// SetDuration stores d in milliseconds, clamped to the field's range.
func (e *Entry) SetDuration(d time.Duration) {
	ms, err := safecast.Conv[uint32](d.Milliseconds())
	if err != nil {
		if d < 0 {
			ms = 0
		} else {
			ms = math.MaxUint32
		}
	}
	e.DurationMS = ms
}

// Duration returns the recorded run time.
func (e *Entry) Duration() time.Duration {
	return time.Duration(e.DurationMS) * time.Millisecond
}

// Succeeded reports whether the run finished without a failure.
func (e *Entry) Succeeded() bool { return e.FailureKind == "" }

// Open returns the store under $XDG_CACHE_HOME/<app>/runs, falling back to
// ~/.cache.
func Open(app string) (*Store, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app, "runs"))
}

// OpenDir returns a store rooted at dir, creating it if needed.
func OpenDir(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) pathFor(root string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".mp")
}

// Put replaces the entry for entry.Root.
func (s *Store) Put(entry *Entry) (err error) {
	if s == nil || entry == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Schema = schemaVersion
	p := s.pathFor(entry.Root)
	f, err := os.CreateTemp(s.dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(entry); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), p)
}

// Get returns the entry for root. Entries written with another schema are
// reported as missing.
func (s *Store) Get(root string) (*Entry, bool, error) {
	if s == nil {
		return nil, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.pathFor(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var entry Entry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return nil, false, err
	}
	if entry.Schema != schemaVersion {
		return nil, false, nil
	}
	return &entry, true, nil
}
