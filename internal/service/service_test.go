package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/studenthub/backend/internal/model"
	"github.com/studenthub/backend/internal/repository"
	"github.com/studenthub/backend/internal/repository/sqlite"
)

// newTestDB creates an in-memory database for service tests.
func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err, "creating test database")
	t.Cleanup(func() { db.Close() })
	return db
}

// testLogger discards output; service log lines are not under test.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedUser registers a user through the normal Upsert path.
func seedUser(t *testing.T, db *sqlite.DB, githubID int64, login string) *model.User {
	t.Helper()
	user := &model.User{
		GitHubID:  githubID,
		Login:     login,
		Name:      "Test " + login,
		AvatarURL: "https://avatars.example.com/" + login,
	}
	created, err := db.Users().Upsert(context.Background(), user)
	require.NoError(t, err, "seeding user")
	require.True(t, created, "seed user should not already exist")
	return user
}

// seedTrack inserts a catalog track.
func seedTrack(t *testing.T, db *sqlite.DB, id string, reward float64) *model.Track {
	t.Helper()
	track := &model.Track{ID: id, Title: "Track " + id, RewardValue: reward}
	require.NoError(t, db.Tracks().Insert(context.Background(), track), "seeding track")
	return track
}

// balance reads the user's current reward balance.
func balance(t *testing.T, db *sqlite.DB, userID string) float64 {
	t.Helper()
	user, err := db.Users().GetByID(context.Background(), userID)
	require.NoError(t, err, "reading balance")
	return user.TotalEconomy
}

// ===== FAILURE-INJECTING UNIT OF WORK =====

// failingDebitDB wraps a real unit of work and makes every DebitReward call
// fail. Used to prove that a failure late in a workflow rolls back the writes
// that came before it.
type failingDebitDB struct {
	repository.UnitOfWork
	err error
}

func (f *failingDebitDB) InTx(ctx context.Context, fn func(repository.Stores) error) error {
	return f.UnitOfWork.InTx(ctx, func(s repository.Stores) error {
		return fn(&failingDebitStores{Stores: s, err: f.err})
	})
}

type failingDebitStores struct {
	repository.Stores
	err error
}

func (f *failingDebitStores) Users() repository.UserRepository {
	return &failingDebitUsers{UserRepository: f.Stores.Users(), err: f.err}
}

type failingDebitUsers struct {
	repository.UserRepository
	err error
}

func (f *failingDebitUsers) DebitReward(ctx context.Context, userID string, amount float64) (float64, error) {
	return 0, f.err
}
