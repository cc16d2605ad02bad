package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/pairline/match-server-go/internal/errors"
	"github.com/pairline/match-server-go/internal/middleware"
	"github.com/pairline/match-server-go/internal/model"
	"github.com/pairline/match-server-go/internal/service"
)

type matchmakerService interface {
	Enqueue(ctx context.Context, userID string, prefs model.Preferences) (*service.EnqueueResult, error)
	Dequeue(ctx context.Context, userID string) error
}

type statusService interface {
	Status(ctx context.Context, userID string) (*model.StatusView, error)
}

type MatchmakingHandler struct {
	matchmaker matchmakerService
	status     statusService
}

func NewMatchmakingHandler(matchmaker matchmakerService, status statusService) *MatchmakingHandler {
	return &MatchmakingHandler{
		matchmaker: matchmaker,
		status:     status,
	}
}

// Register attaches the matchmaking routes to the given router. The
// route table lives here so the server and the tests share one
// definition.
func (h *MatchmakingHandler) Register(r chi.Router) {
	r.Post("/queue", h.Enqueue)
	r.Delete("/queue", h.Dequeue)
	r.Get("/status", h.Status)
}

func (h *MatchmakingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

type enqueueRequest struct {
	Preferences model.Preferences `json:"preferences"`
}

// POST /v1/queue
func (h *MatchmakingHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req enqueueRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperrors.ValidationError("Invalid request body"))
			return
		}
	}

	result, err := h.matchmaker.Enqueue(r.Context(), userID, req.Preferences)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        model.StatusQueued,
		"alreadyQueued": result.AlreadyQueued,
		"queuedAt":      result.QueuedAt,
	})
}

// DELETE /v1/queue
func (h *MatchmakingHandler) Dequeue(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.matchmaker.Dequeue(r.Context(), userID); err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("failed to dequeue")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Left the queue"})
}

// GET /v1/status
func (h *MatchmakingHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	view, err := h.status.Status(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("failed to compute status")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
