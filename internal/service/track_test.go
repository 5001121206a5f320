package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studenthub/backend/internal/apperror"
	"github.com/studenthub/backend/internal/model"
)

// ===== REWARD WORKFLOW =====

// The canonical lifecycle: starting a track credits its reward, completing it
// leaves the balance alone, removing it claws the reward back.
func TestTrackLifecycle_BalanceFollowsReward(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewTrackService(db, testLogger())

	user := seedUser(t, db, 1, "alice")
	seedTrack(t, db, "copilot-pro", 50)

	total, err := svc.StartTrack(ctx, user.ID, "copilot-pro")
	require.NoError(t, err)
	assert.Equal(t, 50.0, total, "start credits the reward")

	require.NoError(t, svc.CompleteTrack(ctx, user.ID, "copilot-pro"))
	assert.Equal(t, 50.0, balance(t, db, user.ID), "complete does not credit again")

	require.NoError(t, svc.RemoveTrack(ctx, user.ID, "copilot-pro"))
	assert.Equal(t, 0.0, balance(t, db, user.ID), "remove claws the reward back")
}

func TestStartTrack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewTrackService(db, testLogger())
	statsSvc := NewStatsService(db, testLogger())

	user := seedUser(t, db, 1, "alice")
	seedTrack(t, db, "copilot-pro", 100)
	seedTrack(t, db, "cloud-credits", 150)

	t.Run("credits reward and bumps global counters", func(t *testing.T) {
		total, err := svc.StartTrack(ctx, user.ID, "copilot-pro")
		require.NoError(t, err)
		assert.Equal(t, 100.0, total)

		overview, err := statsSvc.Overview(ctx)
		require.NoError(t, err)
		assert.Equal(t, 100.0, overview.TotalUnlockedValue)
		assert.Equal(t, 1, overview.TotalInProgress)
	})

	t.Run("re-entrant start keeps the in-progress counter honest", func(t *testing.T) {
		// The balance is credited again by design (start is the granting
		// event), but the state machine stays at one in-progress row and the
		// global counter must agree with it — a later Recompute would
		// otherwise report a different number than the incremental updates.
		_, err := svc.StartTrack(ctx, user.ID, "copilot-pro")
		require.NoError(t, err)

		p, err := db.Progress().Get(ctx, user.ID, "copilot-pro")
		require.NoError(t, err)
		assert.Equal(t, model.StatusInProgress, p.Status)

		overview, err := statsSvc.Overview(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, overview.TotalInProgress, "one row, one counted start")

		// The incremental counter and the recomputed one must agree.
		require.NoError(t, statsSvc.Reconcile(ctx))
		overview, err = statsSvc.Overview(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, overview.TotalInProgress)
	})

	t.Run("unknown track is NotFound and leaves balance untouched", func(t *testing.T) {
		before := balance(t, db, user.ID)
		_, err := svc.StartTrack(ctx, user.ID, "no-such-track")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Equal(t, before, balance(t, db, user.ID))
	})

	t.Run("blank track ID is a validation error", func(t *testing.T) {
		_, err := svc.StartTrack(ctx, user.ID, "   ")
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("restarting a completed track is a conflict", func(t *testing.T) {
		_, err := svc.StartTrack(ctx, user.ID, "cloud-credits")
		require.NoError(t, err)
		require.NoError(t, svc.CompleteTrack(ctx, user.ID, "cloud-credits"))

		before := balance(t, db, user.ID)
		_, err = svc.StartTrack(ctx, user.ID, "cloud-credits")
		assert.ErrorIs(t, err, apperror.ErrConflict)
		assert.Equal(t, before, balance(t, db, user.ID), "rejected start must not credit")
	})
}

func TestCompleteTrack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewTrackService(db, testLogger())
	statsSvc := NewStatsService(db, testLogger())

	user := seedUser(t, db, 1, "alice")
	seedTrack(t, db, "copilot-pro", 100)

	t.Run("never-started track is NotFound with balance unchanged", func(t *testing.T) {
		err := svc.CompleteTrack(ctx, user.ID, "copilot-pro")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Equal(t, 0.0, balance(t, db, user.ID))
	})

	t.Run("moves the in-progress counter to completed", func(t *testing.T) {
		_, err := svc.StartTrack(ctx, user.ID, "copilot-pro")
		require.NoError(t, err)
		require.NoError(t, svc.CompleteTrack(ctx, user.ID, "copilot-pro"))

		overview, err := statsSvc.Overview(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, overview.TotalCompletedTracks)
		assert.Equal(t, 0, overview.TotalInProgress)
	})

	t.Run("double complete is a conflict", func(t *testing.T) {
		err := svc.CompleteTrack(ctx, user.ID, "copilot-pro")
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})
}

func TestRemoveTrack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewTrackService(db, testLogger())
	statsSvc := NewStatsService(db, testLogger())

	user := seedUser(t, db, 1, "alice")
	seedTrack(t, db, "copilot-pro", 100)
	seedTrack(t, db, "cloud-credits", 150)

	t.Run("removing an in-progress track reverses everything", func(t *testing.T) {
		_, err := svc.StartTrack(ctx, user.ID, "copilot-pro")
		require.NoError(t, err)

		require.NoError(t, svc.RemoveTrack(ctx, user.ID, "copilot-pro"))

		assert.Equal(t, 0.0, balance(t, db, user.ID))
		overview, err := statsSvc.Overview(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0.0, overview.TotalUnlockedValue)
		assert.Equal(t, 0, overview.TotalInProgress)

		_, err = db.Progress().Get(ctx, user.ID, "copilot-pro")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("removing a completed track decrements the completed counter", func(t *testing.T) {
		_, err := svc.StartTrack(ctx, user.ID, "cloud-credits")
		require.NoError(t, err)
		require.NoError(t, svc.CompleteTrack(ctx, user.ID, "cloud-credits"))

		require.NoError(t, svc.RemoveTrack(ctx, user.ID, "cloud-credits"))

		overview, err := statsSvc.Overview(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, overview.TotalCompletedTracks)
	})

	t.Run("removing a never-started track is NotFound", func(t *testing.T) {
		err := svc.RemoveTrack(ctx, user.ID, "copilot-pro")
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("clawback never exceeds the remaining balance", func(t *testing.T) {
		_, err := svc.StartTrack(ctx, user.ID, "cloud-credits")
		require.NoError(t, err)

		// Drain part of the balance so the clawback cannot be fully covered.
		_, err = db.Users().DebitReward(ctx, user.ID, 100)
		require.NoError(t, err)

		require.NoError(t, svc.RemoveTrack(ctx, user.ID, "cloud-credits"))
		assert.Equal(t, 0.0, balance(t, db, user.ID), "balance floors at zero")

		// The global value is reduced by the amount actually deducted, so the
		// aggregate also lands at a non-negative value.
		overview, err := statsSvc.Overview(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, overview.TotalUnlockedValue, 0.0)
	})
}

// ===== ATOMICITY =====

func TestRemoveTrack_RollsBackOnDebitFailure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := seedUser(t, db, 1, "alice")
	seedTrack(t, db, "copilot-pro", 100)

	setup := NewTrackService(db, testLogger())
	_, err := setup.StartTrack(ctx, user.ID, "copilot-pro")
	require.NoError(t, err)

	boom := errors.New("debit exploded")
	svc := NewTrackService(&failingDebitDB{UnitOfWork: db, err: boom}, testLogger())

	err = svc.RemoveTrack(ctx, user.ID, "copilot-pro")
	require.ErrorIs(t, err, boom)

	// The progress deletion that ran before the failing debit must have been
	// rolled back along with everything else.
	p, err := db.Progress().Get(ctx, user.ID, "copilot-pro")
	require.NoError(t, err, "progress row must survive the rollback")
	assert.Equal(t, model.StatusInProgress, p.Status)
	assert.Equal(t, 100.0, balance(t, db, user.ID), "balance untouched by failed removal")
}

// ===== LISTING =====

func TestListForUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewTrackService(db, testLogger())

	user := seedUser(t, db, 1, "alice")
	seedTrack(t, db, "track-a", 100)
	seedTrack(t, db, "track-b", 200)

	_, err := svc.StartTrack(ctx, user.ID, "track-a")
	require.NoError(t, err)

	result, err := svc.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, result.User)
	assert.Equal(t, user.ID, result.User.ID)
	require.Len(t, result.Tracks, 2)

	statuses := map[string]model.TrackStatus{}
	for _, ut := range result.Tracks {
		statuses[ut.ID] = ut.Status
	}
	assert.Equal(t, model.StatusInProgress, statuses["track-a"])
	assert.Equal(t, model.StatusAvailable, statuses["track-b"])
}

func TestRecentActivity_ClampsLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewTrackService(db, testLogger())

	user := seedUser(t, db, 1, "alice")
	seedTrack(t, db, "track-a", 100)
	_, err := svc.StartTrack(ctx, user.ID, "track-a")
	require.NoError(t, err)

	// Out-of-range limits fall back to the default rather than erroring.
	for _, limit := range []int{0, -5, 500} {
		activities, err := svc.RecentActivity(ctx, limit)
		require.NoError(t, err)
		assert.Len(t, activities, 1)
	}
}
