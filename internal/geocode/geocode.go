// Package geocode resolves street addresses to coordinates and finds
// nearby commercial venues through third-party map providers. Providers
// are interchangeable; the Chain composes a primary with a fallback.
package geocode

import (
	"context"
	"errors"
)

// ErrNoResults is returned when a provider answers successfully but has
// nothing for the query.
var ErrNoResults = errors.New("no geocoding results")

// Location is a geocoded point.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Place is a candidate venue returned by a nearby-places lookup. It is
// a suggestion only; a Store row is created from it when a user picks
// one.
type Place struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Geocoder is the provider contract.
type Geocoder interface {
	// Geocode resolves a free-text address into a point.
	Geocode(ctx context.Context, address string) (Location, error)
	// NearbyPlaces lists candidate venues within radiusMeters of a point.
	NearbyPlaces(ctx context.Context, lat, lon float64, radiusMeters int) ([]Place, error)
}
