package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/safepath/safepath-server/internal/service"
)

// PlaceHandler serves nearby safe-place lookups.
type PlaceHandler struct {
	Places *service.PlaceService
}

func NewPlaceHandler(places *service.PlaceService) *PlaceHandler {
	return &PlaceHandler{Places: places}
}

type placeResp struct {
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Address     string     `json:"address,omitempty"`
	Coordinates [2]float64 `json:"coordinates"` // [lng, lat]
}

// Nearby returns safe places around a point. The Overpass call can be slow
// on a cache miss, so the timeout here is wider than the usual 5 seconds.
func (h *PlaceHandler) Nearby(c echo.Context) error {
	lat, lng, ok := queryLatLng(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "lat and lng required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	places, err := h.Places.FindNearby(ctx, lat, lng,
		queryFloat(c, "radius_km", 5), c.QueryParam("type"), queryInt(c, "limit", 20))
	if err != nil {
		if errors.Is(err, service.ErrInvalidArgument) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown place type"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "place lookup failed"})
	}

	out := make([]placeResp, len(places))
	for i, p := range places {
		out[i] = placeResp{Name: p.Name, Type: p.Type, Address: p.Address, Coordinates: p.Coordinates()}
	}
	return c.JSON(http.StatusOK, echo.Map{"places": out})
}
