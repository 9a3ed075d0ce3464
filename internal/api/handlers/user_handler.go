package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/openwheels/openwheels-be/internal/apperror"
	"github.com/openwheels/openwheels-be/internal/auth"
	"github.com/openwheels/openwheels-be/internal/services"
)

// UserHandler handles HTTP requests for account management.
type UserHandler struct {
	service  services.UserServiceProvider
	eventSvc services.EventServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, eventSvc services.EventServiceProvider) *UserHandler {
	return &UserHandler{service: service, eventSvc: eventSvc}
}

// GetAll handles listing every account.
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetAllUsers()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		apperror.Write(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// Get handles retrieving a single account by ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := h.service.GetUserByID(id)
	if err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("Failed to get user by ID")
		apperror.Write(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Update handles a partial update of the requester's own account.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload services.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apperror.Write(w, apperror.NewValidation("Invalid request body"))
		return
	}

	user, err := h.service.UpdateUser(auth.FromContext(r.Context()), id, payload)
	if err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("Failed to update user")
		apperror.Write(w, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Delete handles the permanent deletion of the requester's own account,
// cascading to their vehicles and images.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteUser(auth.FromContext(r.Context()), id); err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("Failed to delete user")
		apperror.Write(w, err)
		return
	}

	h.eventSvc.Record("user.delete", "info", "User account deleted", nil)
	w.WriteHeader(http.StatusNoContent)
}
