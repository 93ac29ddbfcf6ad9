// Package expiry deletes artifacts once their retention window closes.
// One central scheduler owns every deadline instead of one timer per
// file: the schedule is a SQLite table, so deadlines survive restarts
// and a startup sweep cleans up whatever expired while the process was
// down.
package expiry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Remover deletes an artifact by name. Deletion must be idempotent.
type Remover interface {
	Remove(name string)
}

// Entry is one scheduled deletion.
type Entry struct {
	Name      string
	Operation string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Scheduler arms and fires artifact deletions.
type Scheduler struct {
	db       *sql.DB
	remover  Remover
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Scheduler sweeping every interval.
func New(db *sql.DB, remover Remover, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Scheduler{
		db:       db,
		remover:  remover,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Schedule arms deletion of name at expiresAt. It must be called before
// the artifact reference is handed to a client.
func (s *Scheduler) Schedule(ctx context.Context, e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("artifact name is empty")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO artifact_expiry(name, operation, created_at, expires_at)
VALUES(?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET expires_at = excluded.expires_at;
`,
		e.Name, e.Operation,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.ExpiresAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("schedule expiry for %q: %w", e.Name, err)
	}
	return nil
}

// Start sweeps deadlines that passed while the process was down, then
// begins the periodic sweep loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("starting expiry scheduler", "interval", s.interval.String())

	if n, err := s.Sweep(ctx); err != nil {
		return fmt.Errorf("startup expiry sweep: %w", err)
	} else if n > 0 {
		s.logger.Info("removed artifacts orphaned by restart", "count", n)
	}

	s.wg.Add(1)
	go s.sweepLoop(ctx)
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("expiry scheduler stopped")
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("expiry sweep failed", "error", err)
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep deletes every artifact whose deadline has passed and returns
// how many were removed. File removal is idempotent, so a sweep racing
// a manual delete is harmless.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Format(time.RFC3339Nano)

	rows, err := s.db.QueryContext(ctx, `
SELECT name FROM artifact_expiry WHERE expires_at <= ? ORDER BY expires_at ASC;
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("query due artifacts: %w", err)
	}

	var due []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan due artifact: %w", err)
		}
		due = append(due, name)
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("close due artifacts: %w", err)
	}

	for _, name := range due {
		s.remover.Remove(name)
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM artifact_expiry WHERE name = ?;`, name); err != nil {
			return 0, fmt.Errorf("clear expiry row for %q: %w", name, err)
		}
		s.logger.Info("artifact expired", "artifact", name)
	}
	return len(due), nil
}

// Due reports whether name's deadline has already passed. The sweep
// only fires on its tick, so readers must not rely on the file's
// presence alone: a due artifact may still exist on disk for up to one
// interval.
func (s *Scheduler) Due(ctx context.Context, name string) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT expires_at FROM artifact_expiry WHERE name = ?;`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		// No row means either never scheduled or already swept; in both
		// cases the deadline is not pending.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up expiry for %q: %w", name, err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return false, fmt.Errorf("parse expiry for %q: %w", name, err)
	}
	return !expiresAt.After(s.now().UTC()), nil
}

// Pending reports how many deletions are still scheduled.
func (s *Scheduler) Pending(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM artifact_expiry;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending expiries: %w", err)
	}
	return n, nil
}
