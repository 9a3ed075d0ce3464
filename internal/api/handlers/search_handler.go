package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/openwheels/openwheels-be/internal/apperror"
	"github.com/openwheels/openwheels-be/internal/services"
)

// SearchHandler handles the public search and filter queries.
type SearchHandler struct {
	service services.SearchServiceProvider
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(service services.SearchServiceProvider) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search handles GET /vehicles/search with optional make, model, min_year
// and min_price query parameters. Results come back ascending by price.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := services.SearchFilters{
		Make:  q.Get("make"),
		Model: q.Get("model"),
	}

	if s := q.Get("min_year"); s != "" {
		year, err := strconv.Atoi(s)
		if err != nil {
			apperror.Write(w, apperror.NewValidation("min_year must be an integer"))
			return
		}
		filters.MinYear = &year
	}
	if s := q.Get("min_price"); s != "" {
		price, err := strconv.ParseFloat(s, 64)
		if err != nil {
			apperror.Write(w, apperror.NewValidation("min_price must be a number"))
			return
		}
		filters.MinPrice = &price
	}

	vehicles, err := h.service.Search(filters)
	if err != nil {
		log.Error().Err(err).Msg("Vehicle search failed")
		apperror.Write(w, err)
		return
	}
	respondJSON(w, http.StatusOK, vehicles)
}

// Makes handles GET /vehicles/makes: every listed make, alphabetical.
func (h *SearchHandler) Makes(w http.ResponseWriter, r *http.Request) {
	makes, err := h.service.DistinctMakes()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list makes")
		apperror.Write(w, err)
		return
	}
	respondJSON(w, http.StatusOK, makes)
}

// ModelsForMake handles GET /vehicles/makes/{make}/models.
func (h *SearchHandler) ModelsForMake(w http.ResponseWriter, r *http.Request) {
	makeName := chi.URLParam(r, "make")
	vehicleModels, err := h.service.ModelsForMake(makeName)
	if err != nil {
		log.Warn().Err(err).Str("make", makeName).Msg("Failed to list models for make")
		apperror.Write(w, err)
		return
	}
	respondJSON(w, http.StatusOK, vehicleModels)
}
