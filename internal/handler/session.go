package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/pairline/match-server-go/internal/errors"
	"github.com/pairline/match-server-go/internal/middleware"
	"github.com/pairline/match-server-go/internal/model"
)

type sessionService interface {
	UpdateSignal(ctx context.Context, sessionID, userID string, token *string) error
	PostMessage(ctx context.Context, sessionID, userID, text string) (*model.Message, error)
	ListMessages(ctx context.Context, sessionID, userID string) ([]model.Message, error)
	EndSession(ctx context.Context, sessionID, requesterID string) error
}

type SessionHandler struct {
	sessions sessionService
}

func NewSessionHandler(sessions sessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/{sessionID}/signal", h.UpdateSignal)
	r.Post("/{sessionID}/messages", h.PostMessage)
	r.Get("/{sessionID}/messages", h.ListMessages)
	r.Post("/{sessionID}/end", h.EndSession)

	return r
}

type updateSignalRequest struct {
	Token *string `json:"token"`
}

// POST /v1/sessions/{sessionID}/signal
func (h *SessionHandler) UpdateSignal(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userID := middleware.GetUserID(r.Context())

	var req updateSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if err := h.sessions.UpdateSignal(r.Context(), sessionID, userID, req.Token); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Signal updated"})
}

type postMessageRequest struct {
	Text string `json:"text"`
}

// POST /v1/sessions/{sessionID}/messages
func (h *SessionHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userID := middleware.GetUserID(r.Context())

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	msg, err := h.sessions.PostMessage(r.Context(), sessionID, userID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// GET /v1/sessions/{sessionID}/messages
func (h *SessionHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userID := middleware.GetUserID(r.Context())

	messages, err := h.sessions.ListMessages(r.Context(), sessionID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// POST /v1/sessions/{sessionID}/end
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	userID := middleware.GetUserID(r.Context())

	if err := h.sessions.EndSession(r.Context(), sessionID, userID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Session ended"})
}
