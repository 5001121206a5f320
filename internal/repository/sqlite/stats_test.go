package sqlite

import (
	"context"
	"testing"
)

// ===== SNAPSHOT =====

func TestSnapshot_ZeroOnFreshDatabase(t *testing.T) {
	db := newTestDB(t)

	stats, err := db.Stats().Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if stats.TotalUsers != 0 || stats.TotalUnlockedValue != 0 ||
		stats.TotalCompletedTracks != 0 || stats.TotalInProgress != 0 {
		t.Errorf("fresh stats = %+v, want all zero", stats)
	}
}

// ===== INCREMENTS =====

func TestIncrements(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Stats().AddUsers(ctx, 2); err != nil {
		t.Fatalf("AddUsers failed: %v", err)
	}
	if err := db.Stats().AddUnlockedValue(ctx, 350.5); err != nil {
		t.Fatalf("AddUnlockedValue failed: %v", err)
	}
	if err := db.Stats().AddCompletedTracks(ctx, 3); err != nil {
		t.Fatalf("AddCompletedTracks failed: %v", err)
	}
	if err := db.Stats().AddInProgress(ctx, 5); err != nil {
		t.Fatalf("AddInProgress failed: %v", err)
	}
	if err := db.Stats().AddInProgress(ctx, -2); err != nil {
		t.Fatalf("AddInProgress with negative delta failed: %v", err)
	}

	stats, err := db.Stats().Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if stats.TotalUsers != 2 {
		t.Errorf("TotalUsers = %d, want 2", stats.TotalUsers)
	}
	if stats.TotalUnlockedValue != 350.5 {
		t.Errorf("TotalUnlockedValue = %v, want 350.5", stats.TotalUnlockedValue)
	}
	if stats.TotalCompletedTracks != 3 {
		t.Errorf("TotalCompletedTracks = %d, want 3", stats.TotalCompletedTracks)
	}
	if stats.TotalInProgress != 3 {
		t.Errorf("TotalInProgress = %d, want 3", stats.TotalInProgress)
	}
}

func TestIncrements_FloorAtZero(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Decrements beyond the current value must not push counters negative.
	if err := db.Stats().AddUnlockedValue(ctx, -100); err != nil {
		t.Fatalf("AddUnlockedValue failed: %v", err)
	}
	if err := db.Stats().AddCompletedTracks(ctx, -5); err != nil {
		t.Fatalf("AddCompletedTracks failed: %v", err)
	}
	if err := db.Stats().AddInProgress(ctx, -5); err != nil {
		t.Fatalf("AddInProgress failed: %v", err)
	}

	stats, err := db.Stats().Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if stats.TotalUnlockedValue != 0 || stats.TotalCompletedTracks != 0 || stats.TotalInProgress != 0 {
		t.Errorf("stats after over-decrement = %+v, want floored at zero", stats)
	}
}

// ===== RECOMPUTE =====

func TestRecompute_MatchesSourceTables(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice := seedUser(t, db, 1, "alice")
	bob := seedUser(t, db, 2, "bob")
	seedTrack(t, db, "track-a", 100)
	seedTrack(t, db, "track-b", 200)

	if _, err := db.Users().CreditReward(ctx, alice.ID, 100); err != nil {
		t.Fatalf("CreditReward failed: %v", err)
	}
	if _, err := db.Users().CreditReward(ctx, bob.ID, 200); err != nil {
		t.Fatalf("CreditReward failed: %v", err)
	}
	if _, err := db.Progress().Start(ctx, alice.ID, "track-a"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := db.Progress().Start(ctx, bob.ID, "track-b"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := db.Progress().Complete(ctx, bob.ID, "track-b"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// Poison the cache, then rebuild from source.
	if err := db.Stats().AddUsers(ctx, 99); err != nil {
		t.Fatalf("AddUsers failed: %v", err)
	}
	if err := db.Stats().Recompute(ctx); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	stats, err := db.Stats().Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if stats.TotalUsers != 2 {
		t.Errorf("TotalUsers = %d, want 2", stats.TotalUsers)
	}
	if stats.TotalUnlockedValue != 300 {
		t.Errorf("TotalUnlockedValue = %v, want 300", stats.TotalUnlockedValue)
	}
	if stats.TotalCompletedTracks != 1 {
		t.Errorf("TotalCompletedTracks = %d, want 1", stats.TotalCompletedTracks)
	}
	if stats.TotalInProgress != 1 {
		t.Errorf("TotalInProgress = %d, want 1", stats.TotalInProgress)
	}
}
