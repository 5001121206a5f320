package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/studenthub/backend/internal/apperror"
	"github.com/studenthub/backend/internal/model"
	"github.com/studenthub/backend/internal/repository"
)

// userStore implements repository.UserRepository against either the pool or
// an open transaction, depending on how it was created.
type userStore struct {
	q querier
}

var _ repository.UserRepository = (*userStore)(nil)

// userColumns is the SELECT list shared by every user read. Keeping it in one
// place means scanUser can't drift out of sync with the queries.
const userColumns = `id, github_id, login, name, email, avatar_url,
	course, current_semester, total_semesters, interest_areas, onboarding_complete,
	total_economy, benefits_activated, redeemed_benefits,
	points, level, has_seen_confetti, created_at, updated_at`

// scanUser reads one users row. The two JSON columns (interest_areas,
// redeemed_benefits) are always written by marshalJSON below, so they are
// guaranteed to hold valid arrays — no defensive shape-sniffing needed here.
func scanUser(row interface{ Scan(dest ...any) error }) (*model.User, error) {
	var (
		u             model.User
		interestsJSON string
		benefitsJSON  string
	)
	err := row.Scan(
		&u.ID, &u.GitHubID, &u.Login, &u.Name, &u.Email, &u.AvatarURL,
		&u.Course, &u.CurrentSemester, &u.TotalSemesters, &interestsJSON, &u.OnboardingComplete,
		&u.TotalEconomy, &u.BenefitsActivated, &benefitsJSON,
		&u.Points, &u.Level, &u.HasSeenConfetti, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(interestsJSON), &u.InterestAreas); err != nil {
		return nil, fmt.Errorf("sqlite: decoding interest_areas for user %s: %w", u.ID, err)
	}
	if err := json.Unmarshal([]byte(benefitsJSON), &u.RedeemedBenefits); err != nil {
		return nil, fmt.Errorf("sqlite: decoding redeemed_benefits for user %s: %w", u.ID, err)
	}
	return &u, nil
}

// marshalJSON encodes a slice for a JSON text column, normalising nil to "[]"
// so the column never holds NULL or a non-array shape.
func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "[]", nil
	}
	return string(b), nil
}

// Upsert inserts or updates a user based on their GitHub ID.
//
// First login inserts a row with zeroed reward state and empty collections;
// subsequent logins only refresh the mutable profile fields (login, name,
// email, avatar) in case they changed on GitHub. The UNIQUE constraint on
// github_id makes repeated calls idempotent — never two rows for one account.
//
// The created return value lets the caller increment the global user counter
// inside the same transaction as the insert.
func (s *userStore) Upsert(ctx context.Context, user *model.User) (bool, error) {
	now := time.Now()
	id := xid.New().String()

	// INSERT OR IGNORE is atomic on the UNIQUE(github_id) constraint: two
	// concurrent first logins for one account cannot both insert, and the
	// loser falls through to the profile-refresh path instead of surfacing
	// a constraint violation.
	res, err := s.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, github_id, login, name, email, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, user.GitHubID, user.Login, user.Name, user.Email, user.AvatarURL, now, now,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if n > 0 {
		user.ID = id
		user.CreatedAt = now
		user.UpdatedAt = now
		user.Level = 1
		return true, nil
	}

	// Existing account: refresh the mutable profile fields in case they
	// changed on GitHub, and recover the internal ID.
	user.UpdatedAt = time.Now()
	_, err = s.q.ExecContext(ctx,
		`UPDATE users SET login = ?, name = ?, email = ?, avatar_url = ?, updated_at = ?
		 WHERE github_id = ?`,
		user.Login, user.Name, user.Email, user.AvatarURL, user.UpdatedAt, user.GitHubID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: updating user (githubID=%d): %w", user.GitHubID, err)
	}

	if err := s.q.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&user.ID); err != nil {
		return false, fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}
	return false, nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (s *userStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByGitHubID retrieves a user by their GitHub account ID.
func (s *userStore) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return u, nil
}

// List returns every registered student, oldest first.
func (s *userStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// SaveOnboarding sets the onboarding fields and flips onboarding_complete.
func (s *userStore) SaveOnboarding(ctx context.Context, userID string, data model.Onboarding) error {
	interests, err := marshalJSON(data.InterestAreas)
	if err != nil {
		return fmt.Errorf("sqlite: encoding interest areas: %w", err)
	}

	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET course = ?, current_semester = ?, total_semesters = ?,
		 interest_areas = ?, onboarding_complete = 1, updated_at = ?
		 WHERE id = ?`,
		data.Course, data.CurrentSemester, data.TotalSemesters, interests, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving onboarding for user %s: %w", userID, err)
	}
	return requireRow(res, "user", userID)
}

// CreditReward adds amount to the user's balance and counts one more
// activated benefit. Returns the balance after the credit.
func (s *userStore) CreditReward(ctx context.Context, userID string, amount float64) (float64, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET total_economy = total_economy + ?,
		 benefits_activated = benefits_activated + 1, updated_at = ?
		 WHERE id = ?`,
		amount, time.Now(), userID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: crediting reward for user %s: %w", userID, err)
	}
	if err := requireRow(res, "user", userID); err != nil {
		return 0, err
	}

	var total float64
	if err := s.q.QueryRowContext(ctx,
		`SELECT total_economy FROM users WHERE id = ?`, userID,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("sqlite: reading balance for user %s: %w", userID, err)
	}
	return total, nil
}

// DebitReward subtracts amount from the balance, flooring at zero, and
// returns how much was actually deducted. The MAX() runs inside the UPDATE so
// the floor holds even under concurrent debits to the same row.
func (s *userStore) DebitReward(ctx context.Context, userID string, amount float64) (float64, error) {
	var before float64
	err := s.q.QueryRowContext(ctx,
		`SELECT total_economy FROM users WHERE id = ?`, userID,
	).Scan(&before)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apperror.NotFound("user", userID)
		}
		return 0, fmt.Errorf("sqlite: reading balance for user %s: %w", userID, err)
	}

	if _, err := s.q.ExecContext(ctx,
		`UPDATE users SET total_economy = MAX(0, total_economy - ?), updated_at = ?
		 WHERE id = ?`,
		amount, time.Now(), userID,
	); err != nil {
		return 0, fmt.Errorf("sqlite: debiting reward for user %s: %w", userID, err)
	}

	deducted := amount
	if before < amount {
		deducted = before
	}
	return deducted, nil
}

// ReplaceBenefits persists a full redemption ledger along with the balance it
// implies. benefits_activated is always rewritten as the ledger length so the
// counter can't drift from the list.
func (s *userStore) ReplaceBenefits(ctx context.Context, userID string, benefits []model.BenefitRedemption, totalEconomy float64) error {
	ledger, err := marshalJSON(benefits)
	if err != nil {
		return fmt.Errorf("sqlite: encoding redeemed benefits: %w", err)
	}

	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET redeemed_benefits = ?, total_economy = ?,
		 benefits_activated = ?, updated_at = ?
		 WHERE id = ?`,
		ledger, totalEconomy, len(benefits), time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: replacing benefits for user %s: %w", userID, err)
	}
	return requireRow(res, "user", userID)
}

// SetConfettiSeen records the one-time UI acknowledgement flag.
func (s *userStore) SetConfettiSeen(ctx context.Context, userID string, seen bool) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET has_seen_confetti = ?, updated_at = ? WHERE id = ?`,
		seen, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating confetti flag for user %s: %w", userID, err)
	}
	return requireRow(res, "user", userID)
}

// Counts computes the user segmentation counters in one scan.
func (s *userStore) Counts(ctx context.Context) (model.UserCounts, error) {
	var c model.UserCounts
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(CASE WHEN benefits_activated > 0 THEN 1 END),
		       COUNT(CASE WHEN onboarding_complete = 0 THEN 1 END)
		FROM users`,
	).Scan(&c.TotalUsers, &c.ActiveBenefits, &c.PendingOnboarding)
	if err != nil {
		return model.UserCounts{}, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return c, nil
}

// requireRow converts a zero-rows-affected UPDATE into a NotFound error.
func requireRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: reading rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
