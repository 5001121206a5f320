// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services receive the repository.UnitOfWork interface, NOT the concrete
// sqlite.DB. Each multi-step mutation runs inside one transaction obtained
// from the unit of work, so either every write commits or none do.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studenthub/backend/internal/auth"
	"github.com/studenthub/backend/internal/model"
	"github.com/studenthub/backend/internal/repository"
)

// AuthService handles the authentication business logic: it turns a verified
// GitHub profile into a local account and a signed session token.
type AuthService struct {
	db     repository.UnitOfWork
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(db repository.UnitOfWork, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		db:     db,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the HTTP handler
// can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// After the handler exchanges the GitHub code for a profile, this method:
//
//  1. Upserts the user (insert on first login, refresh profile fields after)
//  2. Bumps the global user counter when a row was actually created — in the
//     SAME transaction as the insert, so the counter can't drift from the table
//  3. Issues a session JWT for the authenticated user
//
// GitHub's OAuth guarantees the GitHub ID is stable and unique, so upserting
// on github_id is idempotent: repeated logins never create duplicate rows.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID:  ghUser.ID,
		Login:     ghUser.Login,
		Name:      ghUser.Name,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}

	err := s.db.InTx(ctx, func(stores repository.Stores) error {
		created, err := stores.Users().Upsert(ctx, user)
		if err != nil {
			return fmt.Errorf("upserting user (githubID=%d): %w", ghUser.ID, err)
		}
		if created {
			if err := stores.Stats().AddUsers(ctx, 1); err != nil {
				return fmt.Errorf("incrementing user count: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the given internal ID. Used by the
// session-check handler after the middleware validates the JWT.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.db.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}
