package model

import "time"

// Place is a cached safe place fetched from the Overpass API (`places`
// table).  Rows act as a read-through cache so repeated nearby lookups in
// the same area avoid the external call.
type Place struct {
	ID        uint64    `json:"-"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Address   string    `json:"address"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"-"`
}

// Coordinates returns the [lng, lat] pair in GeoJSON order, the shape the
// original mobile client expects.
func (p Place) Coordinates() [2]float64 {
	return [2]float64{p.Lng, p.Lat}
}

// FAQ is a seeded frequently-asked-question row (`faqs` table).
type FAQ struct {
	ID       uint64 `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}
