package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/openwheels/openwheels-be/internal/apperror"
	"github.com/openwheels/openwheels-be/internal/services"
)

// AuthHandler handles login and signup.
type AuthHandler struct {
	service  services.AuthServiceProvider
	eventSvc services.EventServiceProvider
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider, eventSvc services.EventServiceProvider) *AuthHandler {
	return &AuthHandler{service: service, eventSvc: eventSvc}
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles user authentication and token issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apperror.Write(w, apperror.NewValidation("Invalid request body"))
		return
	}

	session, err := h.service.Login(payload.Username, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Failed login attempt")
		apperror.Write(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// Signup handles new account registration. Account and token are created as
// one atomic unit; any failure rolls both back.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload services.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apperror.Write(w, apperror.NewValidation("Invalid request body"))
		return
	}

	session, err := h.service.Signup(payload)
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Failed signup attempt")
		apperror.Write(w, err)
		return
	}

	h.eventSvc.Record("user.signup", "info", "New user signed up: "+session.User.Username, nil)
	respondJSON(w, http.StatusCreated, session)
}
