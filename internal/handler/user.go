package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studenthub/backend/internal/apperror"
	"github.com/studenthub/backend/internal/auth"
	"github.com/studenthub/backend/internal/model"
	"github.com/studenthub/backend/internal/service"
)

// UserHandler exposes onboarding, the student dashboard, benefit redemption,
// and the confetti acknowledgement.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleOnboarding saves the onboarding form and marks the account complete.
//
// HTTP: POST /api/onboarding
// Auth: Required
// Body: {"course":"...","currentSemester":3,"totalSemesters":8,"interestAreas":["..."]}
func (h *UserHandler) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, errNoSession)
		return
	}

	var data model.Onboarding
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.users.SaveOnboarding(r.Context(), session.UserID, data); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "onboarding saved"})
}

// HandleUsers returns the full student roster.
//
// HTTP: GET /api/users
// Auth: None (public)
func (h *UserHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	students, err := h.users.ListStudents(r.Context())
	if err != nil {
		h.logger.Error("listing students failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"students": students})
}

// HandleDashboard returns the full user snapshot for the dashboard.
//
// HTTP: GET /api/dashboard
// Auth: Required
func (h *UserHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, errNoSession)
		return
	}

	user, err := h.users.Dashboard(r.Context(), session.UserID)
	if err != nil {
		h.logger.Error("dashboard lookup failed",
			slog.String("userID", session.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// benefitRequest is the body of the benefit toggle endpoint.
type benefitRequest struct {
	IsRedeemed      bool    `json:"isRedeemed"`
	MonthlyValue    float64 `json:"monthlyValue"`
	MonthsRemaining int     `json:"monthsRemaining"`
}

// HandleBenefit toggles a benefit redemption for the caller.
//
// HTTP: PUT /api/benefits/{productId}
// Auth: Required
// Body: {"isRedeemed":true,"monthlyValue":10,"monthsRemaining":6}
func (h *UserHandler) HandleBenefit(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, errNoSession)
		return
	}

	var req benefitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	newTotal, err := h.users.RedeemBenefit(r.Context(), session.UserID,
		chi.URLParam(r, "productId"), req.IsRedeemed, req.MonthlyValue, req.MonthsRemaining)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "benefit updated",
		"totalEconomy": newTotal,
	})
}

// confettiRequest is the body of the confetti acknowledgement endpoint.
type confettiRequest struct {
	HasSeenConfetti *bool `json:"hasSeenConfetti"`
}

// HandleConfettiSeen records the one-time celebration acknowledgement.
//
// HTTP: POST /api/confetti-seen
// Auth: Required
// Body: {"hasSeenConfetti":true}
//
// The pointer distinguishes "field absent" from an explicit false, mirroring
// the strictness of the rest of the API.
func (h *UserHandler) HandleConfettiSeen(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, errNoSession)
		return
	}

	var req confettiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HasSeenConfetti == nil {
		writeError(w, apperror.ValidationFailed("hasSeenConfetti", "a boolean hasSeenConfetti is required"))
		return
	}

	if err := h.users.SetConfettiSeen(r.Context(), session.UserID, *req.HasSeenConfetti); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "confetti status updated"})
}
