package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/studenthub/backend/internal/apperror"
	"github.com/studenthub/backend/internal/model"
)

// newTestTokenService creates a TokenService with a fixed test secret.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-key-for-testing-only")
	if err != nil {
		t.Fatalf("NewTokenService failed: %v", err)
	}
	return ts
}

func testUser() *model.User {
	return &model.User{
		ID:        "c0ffee123456",
		Login:     "octocat",
		Name:      "Octo Cat",
		AvatarURL: "https://avatars.example.com/octocat.png",
	}
}

// ===== SERVICE CONSTRUCTION =====

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Error("expected error for short secret, got nil")
	}
	if _, err := NewTokenService(""); err == nil {
		t.Error("expected error for empty secret, got nil")
	}
}

// ===== GENERATE + VALIDATE ROUND TRIP =====

func TestGenerateAndValidate(t *testing.T) {
	ts := newTestTokenService(t)
	user := testUser()

	token, err := ts.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if token == "" {
		t.Fatal("Generate returned an empty token")
	}
	// A JWT is three base64 segments joined by dots.
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("token has %d segments, want 3", len(parts))
	}

	session, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if session.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", session.UserID, user.ID)
	}
	if session.Login != user.Login {
		t.Errorf("Login = %q, want %q", session.Login, user.Login)
	}
	if session.Name != user.Name {
		t.Errorf("Name = %q, want %q", session.Name, user.Name)
	}
	if session.AvatarURL != user.AvatarURL {
		t.Errorf("AvatarURL = %q, want %q", session.AvatarURL, user.AvatarURL)
	}
}

// ===== VALIDATION FAILURES =====

func TestValidate_Failures(t *testing.T) {
	ts := newTestTokenService(t)

	expired, err := ts.GenerateWithDuration(testUser(), -time.Minute)
	if err != nil {
		t.Fatalf("GenerateWithDuration failed: %v", err)
	}

	otherService, err := NewTokenService("a-completely-different-secret-key")
	if err != nil {
		t.Fatalf("NewTokenService failed: %v", err)
	}
	foreignToken, err := otherService.Generate(testUser())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired token", token: expired},
		{name: "token signed with another secret", token: foreignToken},
		{name: "garbage string", token: "not.a.jwt"},
		{name: "empty string", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.Validate(tt.token)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			// Every validation failure must map to 401 at the boundary.
			if !errors.Is(err, apperror.ErrUnauthenticated) {
				t.Errorf("error %v does not wrap ErrUnauthenticated", err)
			}
		})
	}
}

func TestValidate_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate(testUser())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Flip a character in the payload segment; the signature no longer matches.
	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := ts.Validate(tampered); err == nil {
		t.Error("expected error for tampered token, got nil")
	}
}
