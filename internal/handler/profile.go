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

type userService interface {
	UpdateProfile(ctx context.Context, userID string, params model.UpdateProfileParams) (*model.UserRecord, error)
	Get(ctx context.Context, userID string) (*model.UserRecord, error)
}

type ProfileHandler struct {
	users userService
}

func NewProfileHandler(users userService) *ProfileHandler {
	return &ProfileHandler{users: users}
}

func (h *ProfileHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Get)
	r.Put("/", h.Update)

	return r
}

// GET /v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// PUT /v1/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var params model.UpdateProfileParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
