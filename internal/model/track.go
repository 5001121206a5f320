package model

import "time"

// Track is a catalog-defined guided activity with a fixed reward value.
//
// The catalog is read-mostly: tracks are seeded at startup (or administered
// out of band) and never mutated by request handlers. SortOrder gives the
// catalog a stable display order independent of insertion timestamps.
type Track struct {
	ID          string    `json:"id"          db:"id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	IconName    string    `json:"iconName"    db:"icon_name"`
	Path        string    `json:"path"        db:"path"`
	RewardValue float64   `json:"rewardValue" db:"reward_value"`
	SortOrder   int       `json:"sortOrder"   db:"sort_order"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

// DefaultCatalog is the track catalog seeded into an empty database.
//
// Reward values are the monetary-equivalent value (USD) a student unlocks by
// activating the benefit the track guides them through.
var DefaultCatalog = []Track{
	{ID: "github-student-pack", Title: "GitHub Student Pack", Description: "Activate the GitHub Student Developer Pack", IconName: "github", Path: "/tracks/github-student-pack", RewardValue: 200, SortOrder: 1},
	{ID: "copilot-pro", Title: "GitHub Copilot Pro", Description: "Enable Copilot Pro with your student account", IconName: "copilot", Path: "/tracks/copilot-pro", RewardValue: 100, SortOrder: 2},
	{ID: "jetbrains-suite", Title: "JetBrains IDE Suite", Description: "Claim the full JetBrains product pack", IconName: "jetbrains", Path: "/tracks/jetbrains-suite", RewardValue: 250, SortOrder: 3},
	{ID: "cloud-credits", Title: "Cloud Credits", Description: "Redeem student cloud provider credits", IconName: "cloud", Path: "/tracks/cloud-credits", RewardValue: 150, SortOrder: 4},
	{ID: "domain-ssl", Title: "Domain & SSL", Description: "Register a free .me domain with SSL", IconName: "globe", Path: "/tracks/domain-ssl", RewardValue: 45, SortOrder: 5},
}
