package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/studenthub/backend/internal/auth"
	"github.com/studenthub/backend/internal/service"
)

// TrackHandler exposes the track catalog and the reward workflow operations.
//
// All mutating routes are protected: the RequireAuth middleware has already
// validated the session cookie, so the handlers only read the session from
// context and delegate to TrackService — the transactional rules live there.
type TrackHandler struct {
	tracks *service.TrackService
	logger *slog.Logger
}

// NewTrackHandler creates a TrackHandler.
func NewTrackHandler(tracks *service.TrackService, logger *slog.Logger) *TrackHandler {
	return &TrackHandler{tracks: tracks, logger: logger}
}

// HandleList returns the full catalog with the caller's per-track status.
//
// HTTP: GET /api/tracks
// Auth: Required
func (h *TrackHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, errNoSession)
		return
	}

	list, err := h.tracks.ListForUser(r.Context(), session.UserID)
	if err != nil {
		h.logger.Error("listing tracks failed",
			slog.String("userID", session.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// HandleStart starts a track and unlocks its reward.
//
// HTTP: POST /api/tracks/{id}/start
// Auth: Required
func (h *TrackHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, errNoSession)
		return
	}

	newTotal, err := h.tracks.StartTrack(r.Context(), session.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "track started",
		"totalEconomy": newTotal,
	})
}

// HandleComplete marks an in-progress track completed.
//
// HTTP: POST /api/tracks/{id}/complete
// Auth: Required
func (h *TrackHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, errNoSession)
		return
	}

	if err := h.tracks.CompleteTrack(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "track completed"})
}

// HandleRemove removes a track from the user's progress and claws back its
// reward.
//
// HTTP: DELETE /api/tracks/{id}
// Auth: Required
func (h *TrackHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, errNoSession)
		return
	}

	if err := h.tracks.RemoveTrack(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "track removed"})
}

// HandleActivities returns the public cross-user activity feed.
//
// HTTP: GET /api/activities?limit=20
// Auth: None (public)
func (h *TrackHandler) HandleActivities(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw) // invalid values fall back to the default
	}

	activities, err := h.tracks.RecentActivity(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing activities failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, activities)
}
