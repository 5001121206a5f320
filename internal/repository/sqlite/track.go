package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/studenthub/backend/internal/apperror"
	"github.com/studenthub/backend/internal/model"
	"github.com/studenthub/backend/internal/repository"
)

// trackStore implements repository.TrackRepository. The catalog is
// read-mostly: Insert only runs during startup seeding.
type trackStore struct {
	q querier
}

var _ repository.TrackRepository = (*trackStore)(nil)

// GetByID looks up one catalog track. Every workflow operation validates the
// track through this call before touching progress or balances, so absence is
// a hard NotFound.
func (s *trackStore) GetByID(ctx context.Context, id string) (*model.Track, error) {
	var t model.Track
	err := s.q.QueryRowContext(ctx,
		`SELECT id, title, description, icon_name, path, reward_value, sort_order, created_at
		 FROM tracks WHERE id = ?`, id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.IconName, &t.Path, &t.RewardValue, &t.SortOrder, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("track", id)
		}
		return nil, fmt.Errorf("sqlite: getting track %s: %w", id, err)
	}
	return &t, nil
}

// List returns the full catalog in stable display order.
func (s *trackStore) List(ctx context.Context) ([]model.Track, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, title, description, icon_name, path, reward_value, sort_order, created_at
		 FROM tracks ORDER BY sort_order, created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tracks: %w", err)
	}
	defer rows.Close()

	var tracks []model.Track
	for rows.Next() {
		var t model.Track
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.IconName, &t.Path,
			&t.RewardValue, &t.SortOrder, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning track: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tracks: %w", err)
	}
	return tracks, nil
}

// Insert adds a catalog track. Track IDs are chosen by the catalog author
// (slug-style), not generated.
func (s *trackStore) Insert(ctx context.Context, track *model.Track) error {
	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO tracks (id, title, description, icon_name, path, reward_value, sort_order, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		track.ID, track.Title, track.Description, track.IconName, track.Path,
		track.RewardValue, track.SortOrder, track.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting track %s: %w", track.ID, err)
	}
	return nil
}

// Count returns the catalog size. Used to decide whether to seed.
func (s *trackStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting tracks: %w", err)
	}
	return n, nil
}
