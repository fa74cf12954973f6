package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/safepath/safepath-server/internal/model"
)

// PlaceStore is the cache surface for safe places. Implemented by
// repository.PlaceRepo.
type PlaceStore interface {
	FindNearby(ctx context.Context, lat, lng, radiusKm float64, placeType string, limit int) ([]model.Place, error)
	SaveAll(ctx context.Context, places []model.Place) error
}

// Supported safe-place types and their OpenStreetMap amenity tags.
var placeAmenities = map[string]string{
	"hospital": "hospital",
	"police":   "police",
	"pharmacy": "pharmacy",
}

// PlaceService answers nearby safe-place lookups. It reads through the
// database cache first and falls back to the Overpass API on a miss, storing
// the fetched rows for the next query in the same area.
type PlaceService struct {
	Store       PlaceStore
	OverpassURL string
	HTTP        *http.Client
}

func NewPlaceService(store PlaceStore, overpassURL string) *PlaceService {
	return &PlaceService{
		Store:       store,
		OverpassURL: overpassURL,
		HTTP:        &http.Client{Timeout: 15 * time.Second},
	}
}

// FindNearby returns safe places of the given type within radiusKm of the
// point. placeType must be one of the supported types, or empty for all.
func (s *PlaceService) FindNearby(ctx context.Context, lat, lng, radiusKm float64, placeType string, limit int) ([]model.Place, error) {
	if placeType != "" {
		if _, ok := placeAmenities[placeType]; !ok {
			return nil, ErrInvalidArgument
		}
	}
	if radiusKm <= 0 {
		radiusKm = 5
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	cached, err := s.Store.FindNearby(ctx, lat, lng, radiusKm, placeType, limit)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		return cached, nil
	}

	fetched, err := s.fetchOverpass(ctx, lat, lng, radiusKm, placeType)
	if err != nil {
		return nil, err
	}
	if err := s.Store.SaveAll(ctx, fetched); err != nil {
		return nil, err
	}
	// Re-read so distance ordering and the limit come from one place.
	return s.Store.FindNearby(ctx, lat, lng, radiusKm, placeType, limit)
}

// overpassResponse mirrors the subset of the Overpass JSON output we use.
type overpassResponse struct {
	Elements []struct {
		Lat    float64 `json:"lat"`
		Lon    float64 `json:"lon"`
		Center *struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"center"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

func (s *PlaceService) fetchOverpass(ctx context.Context, lat, lng, radiusKm float64, placeType string) ([]model.Place, error) {
	radiusM := int(radiusKm * 1000)
	var b strings.Builder
	b.WriteString("[out:json][timeout:10];(")
	for t, amenity := range placeAmenities {
		if placeType != "" && t != placeType {
			continue
		}
		fmt.Fprintf(&b, `nwr["amenity"="%s"](around:%d,%f,%f);`, amenity, radiusM, lat, lng)
	}
	b.WriteString(");out center;")

	form := url.Values{"data": {b.String()}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.OverpassURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass: status %d: %s", resp.StatusCode, body)
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parseOverpass(parsed), nil
}

// parseOverpass converts Overpass elements into Place rows, dropping
// unnamed or untagged entries. Ways and relations report coordinates under
// "center" rather than at the top level.
func parseOverpass(resp overpassResponse) []model.Place {
	out := []model.Place{}
	for _, el := range resp.Elements {
		name := el.Tags["name"]
		if name == "" {
			continue
		}
		typ := ""
		for t, amenity := range placeAmenities {
			if el.Tags["amenity"] == amenity {
				typ = t
				break
			}
		}
		if typ == "" {
			continue
		}
		lat, lng := el.Lat, el.Lon
		if el.Center != nil {
			lat, lng = el.Center.Lat, el.Center.Lon
		}
		addr := strings.TrimSpace(strings.Join(nonEmpty(
			el.Tags["addr:housenumber"], el.Tags["addr:street"], el.Tags["addr:city"]), " "))
		out = append(out, model.Place{
			Name:    name,
			Type:    typ,
			Address: addr,
			Lat:     lat,
			Lng:     lng,
			Source:  "overpass",
		})
	}
	return out
}

func nonEmpty(vals ...string) []string {
	out := vals[:0]
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
