package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/studenthub/backend/internal/apperror"
	"github.com/studenthub/backend/internal/model"
	"github.com/studenthub/backend/internal/repository"
)

// DefaultActivityLimit bounds the public activity feed.
const DefaultActivityLimit = 20

// TrackService orchestrates the reward workflow: every operation that moves a
// (user, track) pairing through the progress state machine and mutates the
// reward balance and the global counters.
//
// Each operation is a single transaction obtained from the unit of work:
// validation read first, then writes in fixed order (progress before balance,
// to fail fast on the cheaper check), then the stats increments. Any error
// rolls the whole transaction back — no partial effect is ever visible.
type TrackService struct {
	db     repository.UnitOfWork
	logger *slog.Logger
}

// NewTrackService creates a TrackService.
func NewTrackService(db repository.UnitOfWork, logger *slog.Logger) *TrackService {
	return &TrackService{db: db, logger: logger}
}

// UserTracks is the catalog as seen by one user, plus the display fields the
// frontend shows in the header.
type UserTracks struct {
	User   *model.User       `json:"user"`
	Tracks []model.UserTrack `json:"tracks"`
}

// ListForUser returns every catalog track exactly once with the caller's
// status merged in (available when never started).
func (s *TrackService) ListForUser(ctx context.Context, userID string) (*UserTracks, error) {
	user, err := s.db.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/track: fetching user %s: %w", userID, err)
	}
	tracks, err := s.db.Progress().ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/track: listing tracks for %s: %w", userID, err)
	}
	return &UserTracks{User: user, Tracks: tracks}, nil
}

// StartTrack begins a track and unlocks its reward.
//
// In one transaction: validate the track exists, mark the progress row
// in-progress (started_at set once, completed tracks rejected), credit the
// track's reward value to the user, and bump the global unlocked-value and
// in-progress counters. The reward is granted at start; CompleteTrack does
// not credit again.
func (s *TrackService) StartTrack(ctx context.Context, userID, trackID string) (float64, error) {
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return 0, apperror.ValidationFailed("trackId", "track ID is required")
	}

	var newTotal float64
	err := s.db.InTx(ctx, func(stores repository.Stores) error {
		track, err := stores.Tracks().GetByID(ctx, trackID)
		if err != nil {
			return err
		}
		created, err := stores.Progress().Start(ctx, userID, trackID)
		if err != nil {
			return err
		}
		newTotal, err = stores.Users().CreditReward(ctx, userID, track.RewardValue)
		if err != nil {
			return err
		}
		if err := stores.Stats().AddUnlockedValue(ctx, track.RewardValue); err != nil {
			return err
		}
		// A re-entrant start leaves the single in-progress row in place; the
		// counter must only move when a row actually appeared.
		if !created {
			return nil
		}
		return stores.Stats().AddInProgress(ctx, 1)
	})
	if err != nil {
		return 0, fmt.Errorf("service/track: starting track %s for %s: %w", trackID, userID, err)
	}

	s.logger.Info("track started",
		slog.String("userID", userID),
		slog.String("trackID", trackID),
		slog.Float64("totalEconomy", newTotal),
	)
	return newTotal, nil
}

// CompleteTrack transitions an in-progress track to completed.
//
// Completing a track that was never started (or is already completed) is
// rejected, not silently accepted — the repository reports NotFound or
// Conflict and the transaction rolls back with the balance untouched.
func (s *TrackService) CompleteTrack(ctx context.Context, userID, trackID string) error {
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return apperror.ValidationFailed("trackId", "track ID is required")
	}

	err := s.db.InTx(ctx, func(stores repository.Stores) error {
		if _, err := stores.Tracks().GetByID(ctx, trackID); err != nil {
			return err
		}
		if err := stores.Progress().Complete(ctx, userID, trackID); err != nil {
			return err
		}
		if err := stores.Stats().AddCompletedTracks(ctx, 1); err != nil {
			return err
		}
		return stores.Stats().AddInProgress(ctx, -1)
	})
	if err != nil {
		return fmt.Errorf("service/track: completing track %s for %s: %w", trackID, userID, err)
	}

	s.logger.Info("track completed",
		slog.String("userID", userID),
		slog.String("trackID", trackID),
	)
	return nil
}

// RemoveTrack deletes the progress row and claws back the track's reward.
//
// The debit floors at zero; the global unlocked value is reduced by the
// amount actually deducted so the aggregate never over-counts a clawback the
// user's balance couldn't cover. If any step fails the deletion rolls back
// with everything else.
func (s *TrackService) RemoveTrack(ctx context.Context, userID, trackID string) error {
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return apperror.ValidationFailed("trackId", "track ID is required")
	}

	err := s.db.InTx(ctx, func(stores repository.Stores) error {
		track, err := stores.Tracks().GetByID(ctx, trackID)
		if err != nil {
			return err
		}
		progress, err := stores.Progress().Get(ctx, userID, trackID)
		if err != nil {
			return err
		}
		if err := stores.Progress().Remove(ctx, userID, trackID); err != nil {
			return err
		}
		deducted, err := stores.Users().DebitReward(ctx, userID, track.RewardValue)
		if err != nil {
			return err
		}
		if err := stores.Stats().AddUnlockedValue(ctx, -deducted); err != nil {
			return err
		}
		if progress.Status == model.StatusCompleted {
			return stores.Stats().AddCompletedTracks(ctx, -1)
		}
		return stores.Stats().AddInProgress(ctx, -1)
	})
	if err != nil {
		return fmt.Errorf("service/track: removing track %s for %s: %w", trackID, userID, err)
	}

	s.logger.Info("track removed",
		slog.String("userID", userID),
		slog.String("trackID", trackID),
	)
	return nil
}

// RecentActivity returns the public cross-user feed of started and completed
// tracks, newest first.
func (s *TrackService) RecentActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultActivityLimit
	}
	activities, err := s.db.Progress().RecentActivity(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service/track: listing recent activity: %w", err)
	}
	return activities, nil
}
