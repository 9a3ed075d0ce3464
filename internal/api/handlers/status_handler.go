package handlers

import (
	"net/http"

	"github.com/openwheels/openwheels-be/internal/monitoring"
)

// StatusHandler serves the latest marketplace monitoring snapshot.
type StatusHandler struct {
	updater *monitoring.StatUpdater
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(updater *monitoring.StatUpdater) *StatusHandler {
	return &StatusHandler{updater: updater}
}

// Get handles GET /status.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.updater.Current())
}
