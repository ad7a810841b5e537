// README: Routing leg value, the Router contract and the haversine estimate used when routing is unavailable.
package maps

import (
	"context"
	"fmt"

	gmaps "googlemaps.github.io/maps"

	"chauffeur/internal/modules/zone"
	"chauffeur/internal/types"
)

const (
	SourceGoogleDirections = "GOOGLE_DIRECTIONS"
	SourcePrecomputed      = "PRECOMPUTED"
	SourceHaversine        = "HAVERSINE_ESTIMATE"

	// roadFactor turns a great-circle distance into a plausible road distance.
	roadFactor = 1.3
	// estimateSpeedKmh is the average speed assumed for estimated legs.
	estimateSpeedKmh = 50.0
)

// Leg is one routed movement between two points.
type Leg struct {
	DistanceKm      float64 `json:"distanceKm"`
	DurationMinutes float64 `json:"durationMinutes"`
	Source          string  `json:"source"`
	Polyline        string  `json:"-"`
}

// Router fetches a real driving route. Callers degrade to EstimateLeg on error.
type Router interface {
	Route(ctx context.Context, origin, destination types.Point) (Leg, error)
}

// EstimateLeg derives a leg from the straight-line distance.
func EstimateLeg(origin, destination types.Point) Leg {
	km := zone.HaversineKm(origin, destination) * roadFactor
	return Leg{
		DistanceKm:      types.RoundTo(km, 3),
		DurationMinutes: types.RoundTo(km/estimateSpeedKmh*60, 2),
		Source:          SourceHaversine,
	}
}

// DecodePolyline turns a Google encoded polyline into points.
func DecodePolyline(encoded string) ([]types.Point, error) {
	latLngs, err := gmaps.DecodePolyline(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	out := make([]types.Point, len(latLngs))
	for i, ll := range latLngs {
		out[i] = types.Point{Lat: ll.Lat, Lng: ll.Lng}
	}
	return out, nil
}

// EncodePolyline is the inverse of DecodePolyline.
func EncodePolyline(path []types.Point) string {
	latLngs := make([]gmaps.LatLng, len(path))
	for i, p := range path {
		latLngs[i] = gmaps.LatLng{Lat: p.Lat, Lng: p.Lng}
	}
	return gmaps.Encode(latLngs)
}
