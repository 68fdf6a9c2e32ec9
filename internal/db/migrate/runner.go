package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/db"
	"github.com/inkwell-dev/inkwell/internal/logging"
)

// ErrNothingToRollback is returned by MigrateDown when no migration is applied
var ErrNothingToRollback = errors.New("no migrations to rollback")

// Runner executes migrations with transaction support
type Runner struct {
	db      *sql.DB
	tracker *Tracker
	logger  *zap.Logger
}

// NewRunner creates a new migration runner
func NewRunner(conn *sql.DB, logger *zap.Logger) *Runner {
	return &Runner{
		db:      conn,
		tracker: NewTracker(conn),
		logger:  logging.OrNop(logger),
	}
}

// MigrateUp applies all pending migrations and returns how many were applied.
func (r *Runner) MigrateUp(ctx context.Context, migrations []*Migration) (int, error) {
	if err := r.tracker.Initialize(ctx); err != nil {
		return 0, err
	}

	pending, err := r.tracker.GetPending(ctx, migrations)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending migrations: %w", err)
	}
	if len(pending) == 0 {
		r.logger.Info("no pending migrations")
		return 0, nil
	}

	for _, m := range pending {
		if err := Check(m); err != nil {
			return 0, err
		}
	}

	for i, m := range pending {
		start := time.Now()
		err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.Up); err != nil {
				return fmt.Errorf("failed to execute migration SQL: %w", err)
			}
			return r.tracker.Record(ctx, tx, m)
		})
		if err != nil {
			return i, fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
		r.logger.Info("applied migration", zap.String("name", m.Name), zap.Duration("took", time.Since(start)))
	}

	return len(pending), nil
}

// MigrateDown rolls back the last applied migration and returns it.
func (r *Runner) MigrateDown(ctx context.Context) (*Migration, error) {
	if err := r.tracker.Initialize(ctx); err != nil {
		return nil, err
	}

	last, err := r.tracker.GetLast(ctx)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, ErrNothingToRollback
	}
	if last.Down == "" {
		return nil, fmt.Errorf("migration %s has no down migration", last.Name)
	}

	start := time.Now()
	err = db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, last.Down); err != nil {
			return fmt.Errorf("failed to execute rollback SQL: %w", err)
		}
		return r.tracker.Remove(ctx, tx, last.Version)
	})
	if err != nil {
		return nil, fmt.Errorf("rollback of %s failed: %w", last.Name, err)
	}

	r.logger.Info("rolled back migration", zap.String("name", last.Name), zap.Duration("took", time.Since(start)))
	return last, nil
}

// Status returns the current migration status
func (r *Runner) Status(ctx context.Context, all []*Migration) (*MigrationStatus, error) {
	if err := r.tracker.Initialize(ctx); err != nil {
		return nil, err
	}

	applied, err := r.tracker.GetApplied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	pending, err := r.tracker.GetPending(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending migrations: %w", err)
	}

	return &MigrationStatus{
		Total:   len(all),
		Applied: applied,
		Pending: pending,
	}, nil
}

// MigrationStatus represents the current state of migrations
type MigrationStatus struct {
	Total   int
	Applied []*Migration
	Pending []*Migration
}

// Summary returns a human-readable summary
func (s *MigrationStatus) Summary() string {
	return fmt.Sprintf("Total: %d migrations (%d applied, %d pending)",
		s.Total, len(s.Applied), len(s.Pending))
}
