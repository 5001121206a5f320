package model

import "time"

// TrackStatus is the lifecycle state of one (user, track) pairing.
//
// The progress table only ever stores "in-progress" and "completed" — the
// absence of a row means the track is available. StatusAvailable exists so
// catalog listings can report a uniform status for every track.
type TrackStatus string

const (
	StatusAvailable  TrackStatus = "available"
	StatusInProgress TrackStatus = "in-progress"
	StatusCompleted  TrackStatus = "completed"
)

// TrackProgress is the per-user-per-track progress record.
//
// TIMESTAMP INVARIANTS:
//   - StartedAt is set exactly once, on the first start. Re-starting an
//     in-progress track never overwrites it.
//   - CompletedAt is set exactly once, on the in-progress → completed
//     transition, and implies Status == StatusCompleted.
type TrackProgress struct {
	UserID      string      `json:"userId"      db:"user_id"`
	TrackID     string      `json:"trackId"     db:"track_id"`
	Status      TrackStatus `json:"status"      db:"status"`
	StartedAt   *time.Time  `json:"startedAt"   db:"started_at"`
	CompletedAt *time.Time  `json:"completedAt" db:"completed_at"`
	UpdatedAt   time.Time   `json:"updatedAt"   db:"updated_at"`
}

// UserTrack is one row of a user's catalog view: the track joined with the
// user's progress (or StatusAvailable when no progress row exists).
type UserTrack struct {
	Track
	Status      TrackStatus `json:"status"`
	StartedAt   *time.Time  `json:"startedAt"`
	CompletedAt *time.Time  `json:"completedAt"`
}

// Activity is one entry of the public cross-user activity feed: a student
// started or completed a track. User identity is reduced to display fields.
type Activity struct {
	UserName    string      `json:"user"`
	AvatarURL   string      `json:"avatarUrl"`
	TrackID     string      `json:"trackId"`
	TrackTitle  string      `json:"trackTitle"`
	Status      TrackStatus `json:"status"`
	RewardValue float64     `json:"value"`
	OccurredAt  time.Time   `json:"timestamp"`
}
