// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// TRANSACTIONS:
// Every repository method is written against a small querier interface that both
// *sql.DB and *sql.Tx satisfy. DB.Users() etc. return stores bound to the pool;
// DB.InTx() hands the callback stores bound to one open transaction. The same
// SQL runs in both cases — only the binding changes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/studenthub/backend/internal/apperror"
	"github.com/studenthub/backend/internal/model"
	"github.com/studenthub/backend/internal/repository"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repository methods take their statements to whichever binding they were
// created with.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB connection pool and implements repository.UnitOfWork.
type DB struct {
	conn *sql.DB
}

var _ repository.UnitOfWork = (*DB)(nil)

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/studenthub.db" → file-based database (persistent)
//   - ":memory:"           → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would open its own private
	// database; pin the pool to one connection so tests share state.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Ping verifies the connection actually works. Without this, a bad path
	// or permissions issue would only surface on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in flight — important
	// for a web server where many requests hit the DB at once.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite; user_tracks relies on
	// cascade deletes, so turn them on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	// busy_timeout bounds how long a writer waits for the lock. Past the
	// timeout the driver returns SQLITE_BUSY, which we surface as a
	// retryable Unavailable error rather than hanging the request.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns a user store bound to the connection pool.
func (db *DB) Users() repository.UserRepository { return &userStore{q: db.conn} }

// Tracks returns a track store bound to the connection pool.
func (db *DB) Tracks() repository.TrackRepository { return &trackStore{q: db.conn} }

// Progress returns a progress store bound to the connection pool.
func (db *DB) Progress() repository.ProgressRepository { return &progressStore{q: db.conn} }

// Stats returns a stats store bound to the connection pool.
func (db *DB) Stats() repository.StatsRepository { return &statsStore{q: db.conn} }

// txStores bundles the four stores bound to one open transaction.
type txStores struct {
	tx *sql.Tx
}

func (s *txStores) Users() repository.UserRepository        { return &userStore{q: s.tx} }
func (s *txStores) Tracks() repository.TrackRepository      { return &trackStore{q: s.tx} }
func (s *txStores) Progress() repository.ProgressRepository { return &progressStore{q: s.tx} }
func (s *txStores) Stats() repository.StatsRepository       { return &statsStore{q: s.tx} }

// InTx runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back otherwise — no partial state is ever visible to
// other connections. Lock timeouts and cancelled contexts surface as
// apperror.ErrUnavailable so callers know the operation is safe to retry.
func (db *DB) InTx(ctx context.Context, fn func(repository.Stores) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return classifyErr(fmt.Errorf("sqlite: beginning transaction: %w", err))
	}

	// Rollback after a successful Commit is a harmless no-op; having it
	// deferred guarantees the connection is released on every exit path,
	// including panics inside fn.
	defer tx.Rollback()

	if err := fn(&txStores{tx: tx}); err != nil {
		return classifyErr(err)
	}

	if err := tx.Commit(); err != nil {
		return classifyErr(fmt.Errorf("sqlite: committing transaction: %w", err))
	}
	return nil
}

// classifyErr maps driver-level lock and timeout failures onto the retryable
// Unavailable error. Domain errors (NotFound, Conflict) pass through unchanged.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s", apperror.Unavailable("storage timed out"), err)
	}
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return fmt.Errorf("%w: %s", apperror.Unavailable("storage busy"), err)
	}
	return err
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS makes the statements idempotent — safe to run on
// every startup against an existing database.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                  TEXT PRIMARY KEY,
			github_id           INTEGER NOT NULL UNIQUE,
			login               TEXT NOT NULL,
			name                TEXT NOT NULL DEFAULT '',
			email               TEXT NOT NULL DEFAULT '',
			avatar_url          TEXT NOT NULL DEFAULT '',
			course              TEXT NOT NULL DEFAULT '',
			current_semester    INTEGER NOT NULL DEFAULT 0,
			total_semesters     INTEGER NOT NULL DEFAULT 0,
			interest_areas      TEXT NOT NULL DEFAULT '[]',
			onboarding_complete INTEGER NOT NULL DEFAULT 0,
			total_economy       REAL NOT NULL DEFAULT 0 CHECK (total_economy >= 0),
			benefits_activated  INTEGER NOT NULL DEFAULT 0,
			redeemed_benefits   TEXT NOT NULL DEFAULT '[]',
			points              INTEGER NOT NULL DEFAULT 0,
			level               INTEGER NOT NULL DEFAULT 1,
			has_seen_confetti   INTEGER NOT NULL DEFAULT 0,
			created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tracks (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			icon_name    TEXT NOT NULL DEFAULT '',
			path         TEXT NOT NULL DEFAULT '',
			reward_value REAL NOT NULL DEFAULT 0 CHECK (reward_value >= 0),
			sort_order   INTEGER NOT NULL DEFAULT 0,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_tracks_sort_order ON tracks(sort_order);
	`)
	if err != nil {
		return fmt.Errorf("creating tracks table: %w", err)
	}

	// user_tracks only stores 'in-progress' and 'completed' — an absent row
	// means the track is available to the user.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS user_tracks (
			user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			track_id     TEXT NOT NULL REFERENCES tracks(id) ON DELETE CASCADE,
			status       TEXT NOT NULL CHECK (status IN ('in-progress', 'completed')),
			started_at   DATETIME,
			completed_at DATETIME,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, track_id)
		);
		CREATE INDEX IF NOT EXISTS idx_user_tracks_updated_at ON user_tracks(updated_at);
	`)
	if err != nil {
		return fmt.Errorf("creating user_tracks table: %w", err)
	}

	// Singleton aggregate — id is pinned to 1 by the CHECK constraint.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS global_stats (
			id                     INTEGER PRIMARY KEY CHECK (id = 1),
			total_users            INTEGER NOT NULL DEFAULT 0,
			total_unlocked_value   REAL NOT NULL DEFAULT 0,
			total_completed_tracks INTEGER NOT NULL DEFAULT 0,
			total_in_progress      INTEGER NOT NULL DEFAULT 0,
			updated_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		INSERT OR IGNORE INTO global_stats (id) VALUES (1);
	`)
	if err != nil {
		return fmt.Errorf("creating global_stats table: %w", err)
	}

	return nil
}

// SeedTracks inserts the given catalog when the tracks table is empty.
// Called once at startup; an already-populated catalog is left untouched.
func (db *DB) SeedTracks(ctx context.Context, tracks []model.Track) error {
	n, err := db.Tracks().Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	return db.InTx(ctx, func(s repository.Stores) error {
		for i := range tracks {
			t := tracks[i]
			if err := s.Tracks().Insert(ctx, &t); err != nil {
				return err
			}
		}
		return nil
	})
}
