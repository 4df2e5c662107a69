package handlers

import (
	"context"
	"net/http"
	"strconv"

	"fitpass_backend/internal/geocoding"
	"fitpass_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Geocoder is the address lookup the handler needs; *geocoding.Geocoder implements it.
type Geocoder interface {
	Autocomplete(ctx context.Context, query string) ([]geocoding.Place, error)
	Geocode(ctx context.Context, address string) (*geocoding.Place, error)
	Reverse(ctx context.Context, lat, lng float64) (*geocoding.Place, error)
}

// GeocodeHandler serves address autocomplete and lookups for the registration form.
type GeocodeHandler struct {
	geocoder Geocoder
}

func NewGeocodeHandler(g Geocoder) *GeocodeHandler {
	return &GeocodeHandler{geocoder: g}
}

func (h *GeocodeHandler) Autocomplete(c *gin.Context) {
	places, err := h.geocoder.Autocomplete(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondServiceError(c, err, "Autocomplete: error from geocoder.Autocomplete")
		return
	}
	if places == nil {
		places = []geocoding.Place{}
	}
	c.JSON(http.StatusOK, gin.H{"data": places})
}

func (h *GeocodeHandler) Search(c *gin.Context) {
	place, err := h.geocoder.Geocode(c.Request.Context(), c.Query("address"))
	if err != nil {
		respondServiceError(c, err, "Search: error from geocoder.Geocode")
		return
	}
	c.JSON(http.StatusOK, place)
}

func (h *GeocodeHandler) Reverse(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		utils.RespondValidationFailed(c, "lat and lng are required numbers")
		return
	}

	place, err := h.geocoder.Reverse(c.Request.Context(), lat, lng)
	if err != nil {
		respondServiceError(c, err, "Reverse: error from geocoder.Reverse")
		return
	}
	c.JSON(http.StatusOK, place)
}
