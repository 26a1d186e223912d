package conference

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockTimeout = 10 * time.Second

// Store holds the live set of Conference projections, with optional
// sibling-JSONL persistence. Unlike intervention.Store's append-only
// files, Store rewrites its file in full on every mutation: conference
// state updates in place (participants join, decisions accumulate,
// state flips to ended) rather than only ever growing, mirroring
// ConferenceStore._persist() in core/state/conference.py.
type Store struct {
	path string // empty means in-memory only, no persistence

	mu          sync.RWMutex
	conferences map[string]Conference
}

// NewStore creates a Store. If basePath is empty, the store is
// in-memory only. Otherwise it persists to <basePath>/conferences.jsonl
// and replays any existing snapshot on construction.
func NewStore(basePath string) (*Store, error) {
	s := &Store{conferences: map[string]Conference{}}
	if basePath == "" {
		return s, nil
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("conference: create store dir: %w", err)
	}
	s.path = filepath.Join(basePath, "conferences.jsonl")
	if err := s.replay(); err != nil {
		return nil, err
	}
	return s, nil
}

// Add inserts or overwrites a conference projection.
func (s *Store) Add(ctx context.Context, c Conference) error {
	s.mu.Lock()
	s.conferences[c.ConferenceID] = c
	s.mu.Unlock()
	return s.persist(ctx)
}

// Update is an alias for Add: both replace the stored projection wholesale.
func (s *Store) Update(ctx context.Context, c Conference) error {
	return s.Add(ctx, c)
}

// Get looks up a conference by id.
func (s *Store) Get(conferenceID string) (Conference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conferences[conferenceID]
	return c, ok
}

// Remove deletes a conference projection.
func (s *Store) Remove(ctx context.Context, conferenceID string) error {
	s.mu.Lock()
	delete(s.conferences, conferenceID)
	s.mu.Unlock()
	return s.persist(ctx)
}

// Clear removes every stored conference.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.conferences = map[string]Conference{}
	s.mu.Unlock()
	return s.persist(ctx)
}

// ListAll returns every stored conference.
func (s *Store) ListAll() []Conference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Conference, 0, len(s.conferences))
	for _, c := range s.conferences {
		out = append(out, c)
	}
	return out
}

// ListActive returns conferences still in StateActive.
func (s *Store) ListActive() []Conference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Conference
	for _, c := range s.conferences {
		if c.State == StateActive {
			out = append(out, c)
		}
	}
	return out
}

// ListByHive returns conferences belonging to hiveID.
func (s *Store) ListByHive(hiveID string) []Conference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Conference
	for _, c := range s.conferences {
		if c.HiveID == hiveID {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) persist(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	snapshot := make([]Conference, 0, len(s.conferences))
	for _, c := range s.conferences {
		snapshot = append(snapshot, c)
	}
	s.mu.RUnlock()

	return withLock(ctx, s.path, func() error {
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()

		w := bufio.NewWriter(f)
		for _, c := range snapshot {
			line, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if _, err := w.Write(append(line, '\n')); err != nil {
				return err
			}
		}
		return w.Flush()
	})
}

func (s *Store) replay() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var c Conference
		if err := json.Unmarshal(line, &c); err != nil {
			continue
		}
		s.conferences[c.ConferenceID] = c
	}
	return scanner.Err()
}

func withLock(ctx context.Context, path string, fn func() error) error {
	lk := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := lk.TryLockContext(lockCtx, 25*time.Millisecond)
	if err != nil {
		return fmt.Errorf("conference: acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("conference: lock timeout for %s", path)
	}
	defer lk.Unlock()

	return fn()
}
