package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/openwheels/openwheels-be/internal/apperror"
	"github.com/openwheels/openwheels-be/internal/auth"
	"github.com/openwheels/openwheels-be/internal/services"
)

// VehicleHandler handles HTTP requests for the vehicle catalog.
type VehicleHandler struct {
	service  services.VehicleServiceProvider
	eventSvc services.EventServiceProvider
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(service services.VehicleServiceProvider, eventSvc services.EventServiceProvider) *VehicleHandler {
	return &VehicleHandler{service: service, eventSvc: eventSvc}
}

// GetAll handles the public listing of every vehicle.
func (h *VehicleHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.GetAllVehicles()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list vehicles")
		apperror.Write(w, err)
		return
	}
	respondJSON(w, http.StatusOK, vehicles)
}

// Get handles the public read of a single vehicle with its images.
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	vehicle, err := h.service.GetVehicleByID(id)
	if err != nil {
		log.Warn().Err(err).Str("vehicle_id", id).Msg("Failed to get vehicle by ID")
		apperror.Write(w, err)
		return
	}
	respondJSON(w, http.StatusOK, vehicle)
}

// Create handles listing a new vehicle owned by the requester.
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload services.VehicleCreate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apperror.Write(w, apperror.NewValidation("Invalid request body"))
		return
	}

	vehicle, err := h.service.CreateVehicle(auth.FromContext(r.Context()), payload)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create vehicle")
		apperror.Write(w, err)
		return
	}

	h.eventSvc.Record("vehicle.create", "info",
		fmt.Sprintf("New listing: %s %s (%d)", vehicle.Make, vehicle.Model, vehicle.Year), &vehicle.ID)
	respondJSON(w, http.StatusCreated, vehicle)
}

// Update handles a partial update of a vehicle by its owner.
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload services.VehicleUpdate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		apperror.Write(w, apperror.NewValidation("Invalid request body"))
		return
	}

	vehicle, err := h.service.UpdateVehicle(auth.FromContext(r.Context()), id, payload)
	if err != nil {
		log.Warn().Err(err).Str("vehicle_id", id).Msg("Failed to update vehicle")
		apperror.Write(w, err)
		return
	}

	h.eventSvc.Record("vehicle.update", "info",
		fmt.Sprintf("Listing updated: %s %s", vehicle.Make, vehicle.Model), &vehicle.ID)
	respondJSON(w, http.StatusOK, vehicle)
}

// Delete handles removal of a vehicle by its owner, cascading to its images.
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteVehicle(auth.FromContext(r.Context()), id); err != nil {
		log.Warn().Err(err).Str("vehicle_id", id).Msg("Failed to delete vehicle")
		apperror.Write(w, err)
		return
	}

	h.eventSvc.Record("vehicle.delete", "info", "Listing removed", &id)
	w.WriteHeader(http.StatusNoContent)
}
