package ar

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// lockTimeout bounds how long Append/Replay wait on the advisory file lock
// before giving up, mirroring the original implementation's 10 second bound.
const lockTimeout = 10 * time.Second

var safeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)

// validateSafeID rejects any id that is empty or contains characters other
// than alphanumerics, hyphens, and underscores, which would otherwise let a
// caller escape vaultPath/<id>/ via path traversal.
func validateSafeID(id string) error {
	if id == "" || !safeIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidStreamID, id)
	}
	return nil
}

// withStreamLock acquires an exclusive advisory lock on path's sibling
// ".lock" file and runs fn while holding it. Using a sibling lock file
// (rather than locking the JSONL file itself) lets readers open the data
// file with whatever flags they need independent of the lock's handle.
func withStreamLock(ctx context.Context, path string, fn func() error) error {
	lk := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := lk.TryLockContext(lockCtx, 25*time.Millisecond)
	if err != nil {
		return fmt.Errorf("ar: acquire lock: %w", err)
	}
	if !locked {
		return ErrLockTimeout
	}
	defer lk.Unlock()

	return fn()
}

// withStreamRLock acquires a shared advisory lock for read-only operations,
// allowing concurrent readers while still excluding writers.
func withStreamRLock(ctx context.Context, path string, fn func() error) error {
	lk := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := lk.TryRLockContext(lockCtx, 25*time.Millisecond)
	if err != nil {
		return fmt.Errorf("ar: acquire read lock: %w", err)
	}
	if !locked {
		return ErrLockTimeout
	}
	defer lk.Unlock()

	return fn()
}

const (
	initialChunkSize = 8 * 1024
	maxChunkSize     = 16 * 1024 * 1024
)

// findLastHashFromTail recovers the hash of the last complete JSONL event in
// f by reading backward in exponentially growing chunks until a parseable
// trailing line is found, so arbitrarily long event payloads never force a
// full-file read. fileSize is the current length of f.
func findLastHashFromTail(f *os.File, fileSize int64) (string, error) {
	if fileSize == 0 {
		return "", nil
	}

	chunkSize := initialChunkSize
	if int64(chunkSize) > fileSize {
		chunkSize = int(fileSize)
	}
	upperBound := maxChunkSize
	if int64(upperBound) > fileSize {
		upperBound = int(fileSize)
	}

	for {
		readStart := fileSize - int64(chunkSize)
		if readStart < 0 {
			readStart = 0
		}
		coversEntireFile := readStart == 0

		if _, err := f.Seek(readStart, io.SeekStart); err != nil {
			return "", fmt.Errorf("ar: seek tail: %w", err)
		}
		buf := make([]byte, fileSize-readStart)
		if _, err := io.ReadFull(f, buf); err != nil && err != io.EOF {
			return "", fmt.Errorf("ar: read tail: %w", err)
		}

		chunk := decodeUTF8Safe(buf)
		lines := strings.Split(strings.TrimSpace(chunk), "\n")

		for i := len(lines) - 1; i >= 0; i-- {
			line := strings.TrimSpace(lines[i])
			if line == "" {
				continue
			}
			evt, err := parseLine(line)
			if err == nil {
				return evt.Hash, nil
			}
			if coversEntireFile {
				// Line is known-complete but malformed; skip and try the
				// previous one.
				continue
			}
			// Partial chunk, this line may be a truncated fragment: widen
			// the chunk and retry from scratch.
			break
		}

		if chunkSize >= upperBound {
			return "", nil
		}
		chunkSize *= 2
		if chunkSize > upperBound {
			chunkSize = upperBound
		}
	}
}

// decodeUTF8Safe drops any leading UTF-8 continuation bytes (0x80-0xBF) so a
// chunk read that starts mid-rune never corrupts the decoded string; the
// partial leading rune belongs to a line this chunk doesn't fully contain
// anyway.
func decodeUTF8Safe(data []byte) string {
	start := 0
	for start < len(data) && data[start] >= 0x80 && data[start] <= 0xBF {
		start++
	}
	return string(data[start:])
}
