package model

import "time"

// GlobalStats is the single-row platform-wide aggregate.
//
// It is a derived cache over the users and user_tracks tables, not a second
// source of truth: every contributing write updates it inside the same
// transaction, and Recompute (run at startup) rebuilds it from source to heal
// any drift.
type GlobalStats struct {
	TotalUsers           int       `json:"totalUsers"           db:"total_users"`
	TotalUnlockedValue   float64   `json:"totalUnlockedValue"   db:"total_unlocked_value"`
	TotalCompletedTracks int       `json:"totalCompletedTracks" db:"total_completed_tracks"`
	TotalInProgress      int       `json:"totalInProgress"      db:"total_in_progress"`
	UpdatedAt            time.Time `json:"updatedAt"            db:"updated_at"`
}

// UserCounts are the point-in-time user segmentation counters shown on the
// public stats endpoint. Unlike GlobalStats they are computed on read.
type UserCounts struct {
	TotalUsers        int `json:"totalUsers"`
	ActiveBenefits    int `json:"activeBenefitsCount"`
	PendingOnboarding int `json:"pendingOnboardingCount"`
}
