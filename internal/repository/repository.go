// Package repository defines the storage interfaces the service layer depends on.
//
// THE UNIT-OF-WORK PATTERN:
// Multi-step mutations (start a track AND credit the reward AND bump the global
// counters) must commit or roll back as one atomic unit. Instead of threading an
// optional transaction handle through every method, the orchestrating service
// asks the UnitOfWork for a transaction and receives a Stores value whose
// repositories are all bound to that transaction:
//
//	err := uow.InTx(ctx, func(s repository.Stores) error {
//	    if _, err := s.Progress().Start(ctx, userID, trackID); err != nil { return err }
//	    _, err := s.Users().CreditReward(ctx, userID, reward)
//	    return err
//	})
//
// Any error returned from the function rolls the whole transaction back; the
// same repository code runs against the pool when called outside InTx. This
// makes composability structural rather than a parameter convention.
package repository

import (
	"context"

	"github.com/studenthub/backend/internal/model"
)

// UserRepository owns the users table: identity linkage, onboarding fields,
// and the reward balance.
type UserRepository interface {
	// Upsert inserts a new user (keyed by GitHub ID) or refreshes the mutable
	// profile fields of an existing one. It reports whether a row was created
	// so the caller can bump the global user count in the same transaction.
	Upsert(ctx context.Context, user *model.User) (created bool, err error)

	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)

	// List returns every registered student, oldest first.
	List(ctx context.Context) ([]model.User, error)

	// SaveOnboarding sets the onboarding fields and marks onboarding complete.
	SaveOnboarding(ctx context.Context, userID string, data model.Onboarding) error

	// CreditReward adds amount to the user's balance and increments
	// benefits_activated. Returns the new balance.
	CreditReward(ctx context.Context, userID string, amount float64) (float64, error)

	// DebitReward subtracts amount from the balance, flooring at zero.
	// Returns the amount actually deducted (less than amount when floored).
	DebitReward(ctx context.Context, userID string, amount float64) (float64, error)

	// ReplaceBenefits atomically persists a new redemption ledger together
	// with the balance it implies; benefits_activated is rewritten as the
	// ledger length.
	ReplaceBenefits(ctx context.Context, userID string, benefits []model.BenefitRedemption, totalEconomy float64) error

	SetConfettiSeen(ctx context.Context, userID string, seen bool) error

	// Counts computes the user segmentation counters shown on the public
	// stats endpoint (computed on read, not cached).
	Counts(ctx context.Context) (model.UserCounts, error)
}

// TrackRepository owns the read-mostly track catalog.
type TrackRepository interface {
	GetByID(ctx context.Context, id string) (*model.Track, error)
	List(ctx context.Context) ([]model.Track, error)
	Insert(ctx context.Context, track *model.Track) error
	Count(ctx context.Context) (int, error)
}

// ProgressRepository owns the user_tracks table — the per-user-per-track
// status state machine (available → in-progress → completed).
type ProgressRepository interface {
	// Start upserts the progress row to in-progress. A missing row is
	// inserted with started_at=now; an in-progress row is left untouched
	// (started_at is never overwritten); a completed row is a conflict.
	// It reports whether a row was created so the caller can bump the
	// global in-progress counter only on the first start.
	Start(ctx context.Context, userID, trackID string) (created bool, err error)

	// Complete transitions in-progress → completed and stamps completed_at.
	// Fails with NotFound when no row exists and Conflict when the row is
	// already completed.
	Complete(ctx context.Context, userID, trackID string) error

	// Remove deletes the progress row; NotFound when none exists.
	Remove(ctx context.Context, userID, trackID string) error

	Get(ctx context.Context, userID, trackID string) (*model.TrackProgress, error)

	// ListForUser returns every catalog track exactly once with the user's
	// status (available when no progress row exists), in catalog order.
	ListForUser(ctx context.Context, userID string) ([]model.UserTrack, error)

	// RecentActivity returns the latest started/completed events across all
	// users, newest first.
	RecentActivity(ctx context.Context, limit int) ([]model.Activity, error)
}

// StatsRepository owns the single-row global_stats aggregate.
type StatsRepository interface {
	// Snapshot reads the singleton row, inserting a zeroed default when the
	// row is missing (self-healing for an uninitialized database).
	Snapshot(ctx context.Context) (*model.GlobalStats, error)

	// The Add* methods are atomic value = value + delta updates. A zero
	// delta skips the write entirely.
	AddUsers(ctx context.Context, delta int) error
	AddUnlockedValue(ctx context.Context, delta float64) error
	AddCompletedTracks(ctx context.Context, delta int) error
	AddInProgress(ctx context.Context, delta int) error

	// Recompute rebuilds every counter from the users and user_tracks tables,
	// healing any drift in the derived cache.
	Recompute(ctx context.Context) error
}

// Stores bundles all repositories bound to the same execution context —
// either the connection pool or one open transaction.
type Stores interface {
	Users() UserRepository
	Tracks() TrackRepository
	Progress() ProgressRepository
	Stats() StatsRepository
}

// UnitOfWork runs a function against transaction-bound Stores, committing on
// nil and rolling back on error. Implementations must release the underlying
// connection on every exit path.
type UnitOfWork interface {
	Stores
	InTx(ctx context.Context, fn func(Stores) error) error
}
