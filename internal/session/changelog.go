package session

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// Change is one workspace file event in the pending-changes log.
type Change struct {
	Path string    `json:"path"`
	Op   string    `json:"op"`
	Time time.Time `json:"time"`
}

// ChangeLog is an append-only JSONL file shared between processes (the
// file-change tracker appends while a capture drains). Writers hold an
// advisory flock with a bounded wait; a lock older than the staleness
// threshold is treated as abandoned and reclaimed.
type ChangeLog struct {
	path        string
	lockTimeout time.Duration
	staleAfter  time.Duration
	logger      *zap.Logger
}

// NewChangeLog creates a changelog at path. Zero durations select 5s wait
// and 30s staleness.
func NewChangeLog(path string, lockTimeout, staleAfter time.Duration, logger *zap.Logger) *ChangeLog {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeLog{
		path:        path,
		lockTimeout: lockTimeout,
		staleAfter:  staleAfter,
		logger:      logger,
	}
}

func (c *ChangeLog) lockPath() string {
	return c.path + ".lock"
}

// acquire takes the advisory lock, reclaiming it once if it looks abandoned.
func (c *ChangeLog) acquire(ctx context.Context) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return nil, fmt.Errorf("creating changelog directory: %w", err)
	}

	for attempt := 0; ; attempt++ {
		fl := flock.New(c.lockPath())

		lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
		locked, err := fl.TryLockContext(lockCtx, 50*time.Millisecond)
		cancel()
		if err != nil && !isDeadline(err) {
			return nil, fmt.Errorf("acquiring changelog lock: %w", err)
		}
		if locked {
			return fl, nil
		}
		if attempt > 0 {
			return nil, fmt.Errorf("changelog lock held past %s wait", c.lockTimeout)
		}

		// The holder may be a dead process. A lock file untouched for
		// longer than the staleness threshold is reclaimed.
		info, statErr := os.Stat(c.lockPath())
		if statErr != nil || time.Since(info.ModTime()) < c.staleAfter {
			return nil, fmt.Errorf("changelog lock held past %s wait", c.lockTimeout)
		}
		c.logger.Warn("reclaiming stale changelog lock",
			zap.String("path", c.lockPath()),
			zap.Duration("age", time.Since(info.ModTime())))
		if err := os.Remove(c.lockPath()); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reclaiming stale changelog lock: %w", err)
		}
	}
}

func isDeadline(err error) bool {
	return err == context.DeadlineExceeded || err == context.Canceled
}

// Append writes one event to the log under the lock.
func (c *ChangeLog) Append(ctx context.Context, change Change) error {
	fl, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer fl.Unlock()

	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening changelog: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshaling change: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending change: %w", err)
	}
	return nil
}

// Drain reads every pending event and truncates the log, atomically with
// respect to concurrent appenders. Malformed lines are skipped.
func (c *ChangeLog) Drain(ctx context.Context) ([]Change, error) {
	fl, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer fl.Unlock()

	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening changelog: %w", err)
	}

	var changes []Change
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var change Change
		if err := json.Unmarshal(scanner.Bytes(), &change); err != nil {
			c.logger.Warn("skipping malformed changelog line", zap.Error(err))
			continue
		}
		changes = append(changes, change)
	}
	scanErr := scanner.Err()
	f.Close()
	if scanErr != nil {
		return nil, fmt.Errorf("reading changelog: %w", scanErr)
	}

	if err := os.Truncate(c.path, 0); err != nil {
		return nil, fmt.Errorf("truncating changelog: %w", err)
	}
	return changes, nil
}
