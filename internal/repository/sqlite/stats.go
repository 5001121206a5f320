package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/studenthub/backend/internal/model"
	"github.com/studenthub/backend/internal/repository"
)

// statsStore implements repository.StatsRepository over the single-row
// global_stats table (id pinned to 1).
//
// The aggregate is a derived cache: workflow transactions increment it in the
// same transaction as the write that changes it, and Recompute rebuilds it
// from the source tables to heal any drift (run at startup).
type statsStore struct {
	q querier
}

var _ repository.StatsRepository = (*statsStore)(nil)

// Snapshot reads the singleton row, inserting a zeroed default when the row
// is missing. Migrations normally create the row, but self-healing here keeps
// an uninitialized or manually truncated table from breaking reads.
func (s *statsStore) Snapshot(ctx context.Context) (*model.GlobalStats, error) {
	var g model.GlobalStats
	err := s.q.QueryRowContext(ctx,
		`SELECT total_users, total_unlocked_value, total_completed_tracks,
		        total_in_progress, updated_at
		 FROM global_stats WHERE id = 1`,
	).Scan(&g.TotalUsers, &g.TotalUnlockedValue, &g.TotalCompletedTracks,
		&g.TotalInProgress, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		if _, err := s.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO global_stats (id) VALUES (1)`,
		); err != nil {
			return nil, fmt.Errorf("sqlite: initializing global stats: %w", err)
		}
		return &model.GlobalStats{UpdatedAt: time.Now()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading global stats: %w", err)
	}
	return &g, nil
}

// AddUsers atomically bumps the user counter. Zero deltas skip the write.
func (s *statsStore) AddUsers(ctx context.Context, delta int) error {
	if delta == 0 {
		return nil
	}
	return s.add(ctx, `total_users = total_users + ?`, delta)
}

// AddUnlockedValue atomically adjusts the platform-wide unlocked value.
func (s *statsStore) AddUnlockedValue(ctx context.Context, delta float64) error {
	if delta == 0 {
		return nil
	}
	return s.add(ctx, `total_unlocked_value = MAX(0, total_unlocked_value + ?)`, delta)
}

// AddCompletedTracks atomically bumps the completed-track counter.
func (s *statsStore) AddCompletedTracks(ctx context.Context, delta int) error {
	if delta == 0 {
		return nil
	}
	return s.add(ctx, `total_completed_tracks = MAX(0, total_completed_tracks + ?)`, delta)
}

// AddInProgress atomically bumps the in-progress counter.
func (s *statsStore) AddInProgress(ctx context.Context, delta int) error {
	if delta == 0 {
		return nil
	}
	return s.add(ctx, `total_in_progress = MAX(0, total_in_progress + ?)`, delta)
}

func (s *statsStore) add(ctx context.Context, assignment string, delta any) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE global_stats SET `+assignment+`, updated_at = ? WHERE id = 1`,
		delta, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating global stats: %w", err)
	}
	return nil
}

// Recompute rebuilds every counter from the authoritative tables in a single
// statement, replacing whatever the incremental updates accumulated.
func (s *statsStore) Recompute(ctx context.Context) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE global_stats SET
			total_users            = (SELECT COUNT(*) FROM users),
			total_unlocked_value   = (SELECT COALESCE(SUM(total_economy), 0) FROM users),
			total_completed_tracks = (SELECT COUNT(*) FROM user_tracks WHERE status = 'completed'),
			total_in_progress      = (SELECT COUNT(*) FROM user_tracks WHERE status = 'in-progress'),
			updated_at             = ?
		WHERE id = 1`,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: recomputing global stats: %w", err)
	}
	return nil
}
