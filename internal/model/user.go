// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered student account.
//
// We use GitHub OAuth as the identity provider, so the primary external
// identifier is the GitHub user ID (an integer). We still generate our own
// internal string ID (xid) so our primary keys are not tied to a third-party's
// numbering scheme.
//
// WHY GitHubID int64?
// GitHub user IDs are integers (e.g. 1234567). Using int64 avoids overflow
// for large GitHub account numbers. The UNIQUE constraint on github_id in the
// DB ensures one GitHub account maps to exactly one app account.
//
// REWARD STATE:
// TotalEconomy is the cumulative monetary-equivalent value the student has
// unlocked (starting tracks, redeeming benefits). It never goes negative —
// deductions floor at zero. RedeemedBenefits holds at most one entry per
// product; BenefitsActivated always mirrors len(RedeemedBenefits).
type User struct {
	ID        string `json:"id"        db:"id"`
	GitHubID  int64  `json:"githubId"  db:"github_id"` // GitHub's numeric user ID
	Login     string `json:"login"     db:"login"`     // GitHub username
	Name      string `json:"name"      db:"name"`      // Display name (falls back to login)
	Email     string `json:"email"     db:"email"`     // Primary public email (may be empty)
	AvatarURL string `json:"avatarUrl" db:"avatar_url"`

	// Onboarding
	Course             string   `json:"course"             db:"course"`
	CurrentSemester    int      `json:"currentSemester"    db:"current_semester"`
	TotalSemesters     int      `json:"totalSemesters"     db:"total_semesters"`
	InterestAreas      []string `json:"interestAreas"      db:"interest_areas"`
	OnboardingComplete bool     `json:"onboardingComplete" db:"onboarding_complete"`

	// Reward state
	TotalEconomy      float64             `json:"totalEconomy"      db:"total_economy"`
	BenefitsActivated int                 `json:"benefitsActivated" db:"benefits_activated"`
	RedeemedBenefits  []BenefitRedemption `json:"redeemedBenefits"  db:"redeemed_benefits"`

	// Derived/UI state
	Points          int  `json:"points"          db:"points"`
	Level           int  `json:"level"           db:"level"`
	HasSeenConfetti bool `json:"hasSeenConfetti" db:"has_seen_confetti"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// BenefitRedemption is one claimed catalog product. Its contribution to the
// user's TotalEconomy is MonthlyValue × MonthsRemaining.
type BenefitRedemption struct {
	ProductID       string  `json:"productId"`
	MonthlyValue    float64 `json:"monthlyValue"`
	MonthsRemaining int     `json:"monthsRemaining"`
}

// Value returns the redemption's contribution to the reward balance.
func (b BenefitRedemption) Value() float64 {
	return b.MonthlyValue * float64(b.MonthsRemaining)
}

// Onboarding is the payload submitted when a student completes onboarding.
type Onboarding struct {
	Course          string   `json:"course"`
	CurrentSemester int      `json:"currentSemester"`
	TotalSemesters  int      `json:"totalSemesters"`
	InterestAreas   []string `json:"interestAreas"`
}
