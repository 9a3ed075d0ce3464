package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/openwheels/openwheels-be/internal/apperror"
	"github.com/openwheels/openwheels-be/internal/auth"
	"github.com/openwheels/openwheels-be/internal/services"
)

const maxImageUploadBytes = 10 << 20 // 10 MiB

// ImageHandler handles vehicle image uploads and deletion.
type ImageHandler struct {
	service  services.VehicleServiceProvider
	eventSvc services.EventServiceProvider
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(service services.VehicleServiceProvider, eventSvc services.EventServiceProvider) *ImageHandler {
	return &ImageHandler{service: service, eventSvc: eventSvc}
}

// Upload handles a multipart image upload for a vehicle. The payload is
// sniffed; anything that is not an image is rejected before it reaches the
// blob store.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	vehicleID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		apperror.Write(w, apperror.NewValidation("Invalid multipart form"))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		apperror.Write(w, apperror.NewValidation("An 'image' file field is required"))
		return
	}
	defer file.Close()

	// Sniff the real content type from the leading bytes.
	head := make([]byte, 3072)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		apperror.Write(w, apperror.NewInternal("Error reading upload", err))
		return
	}
	mtype := mimetype.Detect(head[:n])
	if !strings.HasPrefix(mtype.String(), "image/") {
		apperror.Write(w, apperror.NewValidation("Uploaded file must be an image"))
		return
	}

	payload := io.MultiReader(bytes.NewReader(head[:n]), file)
	img, err := h.service.AddImage(auth.FromContext(r.Context()), vehicleID, mtype.Extension(), payload)
	if err != nil {
		log.Warn().Err(err).Str("vehicle_id", vehicleID).Msg("Failed to add vehicle image")
		apperror.Write(w, err)
		return
	}

	h.eventSvc.Record("image.add", "info", "Image added to listing", &vehicleID)
	respondJSON(w, http.StatusCreated, img)
}

// Delete handles removal of a single image by the owning vehicle's owner.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteImage(auth.FromContext(r.Context()), id); err != nil {
		log.Warn().Err(err).Str("image_id", id).Msg("Failed to delete vehicle image")
		apperror.Write(w, err)
		return
	}

	h.eventSvc.Record("image.delete", "info", "Image removed from listing", nil)
	w.WriteHeader(http.StatusNoContent)
}
