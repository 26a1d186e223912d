package intervention

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

// Store persists interventions, escalations, and feedback as sibling
// JSONL files under <base>/interventions/, restoring its in-memory cache
// by replaying those files on construction.
type Store struct {
	baseDir string

	mu            sync.RWMutex
	interventions map[string]InterventionRecord
	escalations   map[string]EscalationRecord
	feedbacks     map[string]FeedbackRecord
}

// NewStore creates (if needed) <basePath>/interventions/ and replays any
// existing JSONL files into memory.
func NewStore(basePath string) (*Store, error) {
	dir := filepath.Join(basePath, "interventions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("intervention: create store dir: %w", err)
	}
	s := &Store{
		baseDir:       dir,
		interventions: map[string]InterventionRecord{},
		escalations:   map[string]EscalationRecord{},
		feedbacks:     map[string]FeedbackRecord{},
	}
	if err := s.replay(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) interventionsPath() string { return filepath.Join(s.baseDir, "interventions.jsonl") }
func (s *Store) escalationsPath() string   { return filepath.Join(s.baseDir, "escalations.jsonl") }
func (s *Store) feedbacksPath() string     { return filepath.Join(s.baseDir, "feedbacks.jsonl") }

// AddIntervention records a user direct intervention.
func (s *Store) AddIntervention(ctx context.Context, record InterventionRecord) error {
	s.mu.Lock()
	s.interventions[record.EventID] = record
	s.mu.Unlock()
	return appendJSONL(ctx, s.interventionsPath(), record)
}

// AddEscalation records a Queen escalation.
func (s *Store) AddEscalation(ctx context.Context, record EscalationRecord) error {
	if record.Status == "" {
		record.Status = EscalationPending
	}
	s.mu.Lock()
	s.escalations[record.EventID] = record
	s.mu.Unlock()
	return appendJSONL(ctx, s.escalationsPath(), record)
}

// AddFeedback records Beekeeper feedback on a resolved intervention or
// escalation.
func (s *Store) AddFeedback(ctx context.Context, record FeedbackRecord) error {
	s.mu.Lock()
	s.feedbacks[record.EventID] = record
	s.mu.Unlock()
	return appendJSONL(ctx, s.feedbacksPath(), record)
}

// ResolveEscalation flips an escalation to resolved and rewrites the
// escalations file in full, since resolution is rare relative to creation.
func (s *Store) ResolveEscalation(ctx context.Context, escalationID string) (bool, error) {
	s.mu.Lock()
	record, ok := s.escalations[escalationID]
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	record.Status = EscalationResolved
	s.escalations[escalationID] = record
	snapshot := make([]EscalationRecord, 0, len(s.escalations))
	for _, r := range s.escalations {
		snapshot = append(snapshot, r)
	}
	s.mu.Unlock()

	if err := rewriteJSONL(ctx, s.escalationsPath(), snapshot); err != nil {
		return false, err
	}
	return true, nil
}

// GetIntervention looks up an intervention by id.
func (s *Store) GetIntervention(eventID string) (InterventionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.interventions[eventID]
	return r, ok
}

// GetEscalation looks up an escalation by id.
func (s *Store) GetEscalation(eventID string) (EscalationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.escalations[eventID]
	return r, ok
}

// GetFeedback looks up feedback by id.
func (s *Store) GetFeedback(eventID string) (FeedbackRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.feedbacks[eventID]
	return r, ok
}

// GetTarget finds whichever of escalation/intervention eventID refers to,
// for resolving what a FeedbackRecord is about.
func (s *Store) GetTarget(eventID string) Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.escalations[eventID]; ok {
		return Target{Escalation: &e}
	}
	if i, ok := s.interventions[eventID]; ok {
		return Target{Intervention: &i}
	}
	return Target{}
}

// ListEscalations returns escalations optionally filtered by colony and
// status.
func (s *Store) ListEscalations(colonyID string, status EscalationStatus) []EscalationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []EscalationRecord
	for _, r := range s.escalations {
		if colonyID != "" && r.ColonyID != colonyID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ListInterventions returns interventions optionally filtered by colony.
func (s *Store) ListInterventions(colonyID string) []InterventionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []InterventionRecord
	for _, r := range s.interventions {
		if colonyID != "" && r.ColonyID != colonyID {
			continue
		}
		out = append(out, r)
	}
	return out
}

func appendJSONL(ctx context.Context, path string, record any) error {
	return withLock(ctx, path, func() error {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()

		line, err := json.Marshal(record)
		if err != nil {
			return err
		}
		_, err = f.Write(append(line, '\n'))
		return err
	})
}

func rewriteJSONL[T any](ctx context.Context, path string, records []T) error {
	return withLock(ctx, path, func() error {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()

		w := bufio.NewWriter(f)
		for _, r := range records {
			line, err := json.Marshal(r)
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

func withLock(ctx context.Context, path string, fn func() error) error {
	lk := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := lk.TryLockContext(lockCtx, 25*time.Millisecond)
	if err != nil {
		return fmt.Errorf("intervention: acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("intervention: lock timeout for %s", path)
	}
	defer lk.Unlock()

	return fn()
}

func (s *Store) replay() error {
	if err := replayInto(s.interventionsPath(), &s.interventions, func(r InterventionRecord) string { return r.EventID }); err != nil {
		return err
	}
	if err := replayInto(s.escalationsPath(), &s.escalations, func(r EscalationRecord) string { return r.EventID }); err != nil {
		return err
	}
	if err := replayInto(s.feedbacks(), &s.feedbacks, func(r FeedbackRecord) string { return r.EventID }); err != nil {
		return err
	}
	return nil
}

func (s *Store) feedbacks() string { return s.feedbacksPath() }

func replayInto[T any](path string, into *map[string]T, keyOf func(T) string) error {
	f, err := os.Open(path)
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
		var record T
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		(*into)[keyOf(record)] = record
	}
	return scanner.Err()
}
