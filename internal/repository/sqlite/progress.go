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

// progressStore implements repository.ProgressRepository — the per-user
// per-track state machine:
//
//	(no row)    --Start-->    in-progress --Complete--> completed
//	in-progress --Start-->    in-progress (started_at untouched)
//	in-progress --Remove-->   (row deleted)
//	completed   --Remove-->   (row deleted)
//	completed   --Start-->    Conflict (completed_at is immutable)
type progressStore struct {
	q querier
}

var _ repository.ProgressRepository = (*progressStore)(nil)

// Start marks the pairing in-progress with upsert semantics and reports
// whether a new row was created.
//
// started_at is set exactly once: a fresh row gets now, an existing row keeps
// its original value. Re-starting a completed track is rejected — the record
// of completion (completed_at) must never be reset by a later start.
func (s *progressStore) Start(ctx context.Context, userID, trackID string) (bool, error) {
	var status model.TrackStatus
	err := s.q.QueryRowContext(ctx,
		`SELECT status FROM user_tracks WHERE user_id = ? AND track_id = ?`,
		userID, trackID,
	).Scan(&status)

	switch {
	case err == sql.ErrNoRows:
		now := time.Now()
		_, err = s.q.ExecContext(ctx,
			`INSERT INTO user_tracks (user_id, track_id, status, started_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			userID, trackID, model.StatusInProgress, now, now,
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: starting track %s for user %s: %w", trackID, userID, err)
		}
		return true, nil

	case err != nil:
		return false, fmt.Errorf("sqlite: checking progress for user %s track %s: %w", userID, trackID, err)

	case status == model.StatusCompleted:
		return false, apperror.Conflict("track", fmt.Sprintf("track %s is already completed", trackID))

	default:
		// Already in-progress: re-entrant start. Touch updated_at only;
		// started_at keeps the original first-start timestamp.
		_, err = s.q.ExecContext(ctx,
			`UPDATE user_tracks SET status = ?, updated_at = ?
			 WHERE user_id = ? AND track_id = ?`,
			model.StatusInProgress, time.Now(), userID, trackID,
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: restarting track %s for user %s: %w", trackID, userID, err)
		}
		return false, nil
	}
}

// Complete transitions in-progress → completed and stamps completed_at.
//
// The status guard lives in the WHERE clause, so a concurrent Complete for the
// same pairing serializes on the row: exactly one transaction takes the
// transition, the other sees zero rows affected and reports a conflict.
func (s *progressStore) Complete(ctx context.Context, userID, trackID string) error {
	now := time.Now()
	res, err := s.q.ExecContext(ctx,
		`UPDATE user_tracks SET status = ?, completed_at = ?, updated_at = ?
		 WHERE user_id = ? AND track_id = ? AND status = ?`,
		model.StatusCompleted, now, now, userID, trackID, model.StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("sqlite: completing track %s for user %s: %w", trackID, userID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Nothing transitioned — distinguish "never started" from "already done".
	var status model.TrackStatus
	err = s.q.QueryRowContext(ctx,
		`SELECT status FROM user_tracks WHERE user_id = ? AND track_id = ?`,
		userID, trackID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return apperror.NotFound("track progress", trackID)
	}
	if err != nil {
		return fmt.Errorf("sqlite: checking progress for user %s track %s: %w", userID, trackID, err)
	}
	return apperror.Conflict("track", fmt.Sprintf("track %s is not in progress", trackID))
}

// Remove deletes the progress row, conceptually returning the pairing to
// available. NotFound when no row exists.
func (s *progressStore) Remove(ctx context.Context, userID, trackID string) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM user_tracks WHERE user_id = ? AND track_id = ?`,
		userID, trackID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing track %s for user %s: %w", trackID, userID, err)
	}
	return requireRow(res, "track progress", trackID)
}

// Get returns the progress row for one pairing, or NotFound.
func (s *progressStore) Get(ctx context.Context, userID, trackID string) (*model.TrackProgress, error) {
	var p model.TrackProgress
	err := s.q.QueryRowContext(ctx,
		`SELECT user_id, track_id, status, started_at, completed_at, updated_at
		 FROM user_tracks WHERE user_id = ? AND track_id = ?`,
		userID, trackID,
	).Scan(&p.UserID, &p.TrackID, &p.Status, &p.StartedAt, &p.CompletedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("track progress", trackID)
		}
		return nil, fmt.Errorf("sqlite: getting progress for user %s track %s: %w", userID, trackID, err)
	}
	return &p, nil
}

// ListForUser returns the whole catalog with the user's status merged in.
//
// LEFT JOIN semantics: every catalog track appears exactly once; tracks with
// no progress row come back as 'available'. COALESCE supplies the default so
// the status column is never NULL in the scan.
func (s *progressStore) ListForUser(ctx context.Context, userID string) ([]model.UserTrack, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT t.id, t.title, t.description, t.icon_name, t.path, t.reward_value,
		       t.sort_order, t.created_at,
		       COALESCE(ut.status, 'available'), ut.started_at, ut.completed_at
		FROM tracks t
		LEFT JOIN user_tracks ut ON ut.track_id = t.id AND ut.user_id = ?
		ORDER BY t.sort_order, t.created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tracks for user %s: %w", userID, err)
	}
	defer rows.Close()

	var list []model.UserTrack
	for rows.Next() {
		var ut model.UserTrack
		if err := rows.Scan(&ut.ID, &ut.Title, &ut.Description, &ut.IconName, &ut.Path,
			&ut.RewardValue, &ut.SortOrder, &ut.CreatedAt,
			&ut.Status, &ut.StartedAt, &ut.CompletedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user track: %w", err)
		}
		list = append(list, ut)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user tracks: %w", err)
	}
	return list, nil
}

// RecentActivity returns the latest start/complete events across all users,
// newest first, for the public activity feed.
func (s *progressStore) RecentActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT CASE WHEN u.name != '' THEN u.name ELSE u.login END,
		       u.avatar_url, t.id, t.title, ut.status, t.reward_value, ut.updated_at
		FROM user_tracks ut
		JOIN users u ON u.id = ut.user_id
		JOIN tracks t ON t.id = ut.track_id
		ORDER BY ut.updated_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recent activity: %w", err)
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.UserName, &a.AvatarURL, &a.TrackID, &a.TrackTitle,
			&a.Status, &a.RewardValue, &a.OccurredAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating activity: %w", err)
	}
	return activities, nil
}
