// Package ar implements the Akashic Record: the append-only, hash-chained,
// per-stream JSONL event log that is the coordination substrate's single
// source of truth. Every other subsystem either appends to it or folds a
// replay of it into a projection.
package ar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/colonyforge/core/internal/events"
	"github.com/colonyforge/core/internal/telemetry"
)

// Vault is the Akashic Record's storage handle: a directory of one
// subdirectory per stream (run), each holding an events.jsonl log.
type Vault struct {
	root   string
	tracer telemetry.Tracer
	logger telemetry.Logger
}

// Option configures a Vault at construction time.
type Option func(*Vault)

// WithTracer attaches a Tracer; defaults to a no-op tracer.
func WithTracer(t telemetry.Tracer) Option { return func(v *Vault) { v.tracer = t } }

// WithLogger attaches a Logger; defaults to a no-op logger.
func WithLogger(l telemetry.Logger) Option { return func(v *Vault) { v.logger = l } }

// New creates a Vault rooted at root, creating the directory if needed.
func New(root string, opts ...Option) (*Vault, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ar: create vault root: %w", err)
	}
	v := &Vault{root: root, tracer: telemetry.NewNoopTracer(), logger: telemetry.NewNoopLogger()}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func (v *Vault) streamDir(streamID string) (string, error) {
	if err := validateSafeID(streamID); err != nil {
		return "", err
	}
	dir := filepath.Join(v.root, streamID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ar: create stream dir: %w", err)
	}
	return dir, nil
}

func (v *Vault) eventsPath(streamID string) (string, error) {
	dir, err := v.streamDir(streamID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "events.jsonl"), nil
}

func parseLine(line string) (events.Event, error) {
	return events.Parse([]byte(line))
}

// Append assigns event.PrevHash from the stream's current tail, canonically
// serializes it, and appends a single newline-terminated line under an
// exclusive advisory lock so the read-tail-then-append sequence is atomic
// across processes. streamID overrides event.RunID when non-empty; one of
// the two must identify the target stream.
func (v *Vault) Append(ctx context.Context, event events.Event, streamID string) (events.Event, error) {
	ctx, span := v.tracer.Start(ctx, "ar.append")
	defer span.End()

	actualStreamID := streamID
	if actualStreamID == "" {
		actualStreamID = event.RunID
	}
	if actualStreamID == "" {
		return events.Event{}, ErrStreamIDRequired
	}

	path, err := v.eventsPath(actualStreamID)
	if err != nil {
		return events.Event{}, err
	}

	var updated events.Event
	err = withStreamLock(ctx, path, func() error {
		f, ferr := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if ferr != nil {
			return fmt.Errorf("ar: open stream file: %w", ferr)
		}
		defer f.Close()

		fi, ferr := f.Stat()
		if ferr != nil {
			return fmt.Errorf("ar: stat stream file: %w", ferr)
		}

		var lastHash string
		if fi.Size() > 0 {
			lastHash, ferr = findLastHashFromTail(f, fi.Size())
			if ferr != nil {
				return ferr
			}
		}

		event.RunID = actualStreamID
		updated = event.WithPrevHash(lastHash)

		line, merr := updated.MarshalJSONL()
		if merr != nil {
			return fmt.Errorf("ar: marshal event: %w", merr)
		}

		if _, serr := f.Seek(0, io.SeekEnd); serr != nil {
			return fmt.Errorf("ar: seek to end: %w", serr)
		}
		if _, werr := f.Write(append(line, '\n')); werr != nil {
			return fmt.Errorf("ar: write event: %w", werr)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return events.Event{}, err
	}

	v.logger.Debug(ctx, "ar: appended event", "stream_id", actualStreamID, "type", string(updated.Type), "hash", updated.Hash)
	return updated, nil
}

// Replay streams every event in streamID in append order. If since is
// non-zero, events strictly before it are skipped. Unknown event types are
// yielded as-is (events.IsUnknown distinguishes them) rather than causing a
// replay abort.
func (v *Vault) Replay(ctx context.Context, streamID string, since time.Time) ([]events.Event, error) {
	_, span := v.tracer.Start(ctx, "ar.replay")
	defer span.End()

	path, err := v.eventsPath(streamID)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return nil, nil
	}

	var out []events.Event
	err = withStreamRLock(ctx, path, func() error {
		f, ferr := os.Open(path)
		if ferr != nil {
			return fmt.Errorf("ar: open stream file: %w", ferr)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			evt, perr := parseLine(line)
			if perr != nil {
				return fmt.Errorf("ar: parse event: %w", perr)
			}
			if !since.IsZero() && evt.Timestamp.Before(since) {
				continue
			}
			out = append(out, evt)
		}
		return scanner.Err()
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// GetLastEvent returns the final event appended to streamID, or the zero
// Event and false if the stream is empty or does not exist.
func (v *Vault) GetLastEvent(ctx context.Context, streamID string) (events.Event, bool, error) {
	all, err := v.Replay(ctx, streamID, time.Time{})
	if err != nil {
		return events.Event{}, false, err
	}
	if len(all) == 0 {
		return events.Event{}, false, nil
	}
	return all[len(all)-1], true, nil
}

// CountEvents returns the number of events appended to streamID.
func (v *Vault) CountEvents(ctx context.Context, streamID string) (int, error) {
	all, err := v.Replay(ctx, streamID, time.Time{})
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// VerifyChain replays streamID and confirms event[n].PrevHash == event[n-1].Hash
// for every n, and that every event's own hash matches its content
// (invariants IN-1 and IN-2).
func (v *Vault) VerifyChain(ctx context.Context, streamID string) (bool, string, error) {
	all, err := v.Replay(ctx, streamID, time.Time{})
	if err != nil {
		return false, "", err
	}

	var prevHash string
	for _, evt := range all {
		if evt.PrevHash != prevHash {
			return false, fmt.Sprintf("hash mismatch at event %s", evt.ID), nil
		}
		if !evt.Verify() {
			return false, fmt.Sprintf("content hash mismatch at event %s", evt.ID), nil
		}
		prevHash = evt.Hash
	}
	return true, "", nil
}

// ListStreams returns every stream id that has an events.jsonl under the
// vault root, sorted lexicographically.
func (v *Vault) ListStreams() ([]string, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return nil, fmt.Errorf("ar: list vault root: %w", err)
	}
	var streams []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(v.root, entry.Name(), "events.jsonl")); err == nil {
			streams = append(streams, entry.Name())
		}
	}
	sort.Strings(streams)
	return streams, nil
}

// ExportStream writes every event in streamID, one JSON object per line, to
// w and returns the number of events written.
func (v *Vault) ExportStream(ctx context.Context, streamID string, w io.Writer) (int, error) {
	all, err := v.Replay(ctx, streamID, time.Time{})
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(w)
	for _, evt := range all {
		line, merr := evt.MarshalJSONL()
		if merr != nil {
			return 0, fmt.Errorf("ar: marshal event: %w", merr)
		}
		if _, werr := bw.Write(append(line, '\n')); werr != nil {
			return 0, fmt.Errorf("ar: write export line: %w", werr)
		}
	}
	return len(all), bw.Flush()
}
