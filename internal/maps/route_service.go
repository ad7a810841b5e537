package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"chauffeur/internal/obs"
	"chauffeur/internal/types"
)

// RouteService handles interactions with the Google Directions API.
type RouteService struct {
	client   *maps.Client
	language string
	region   string
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey, language, region string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client, language: language, region: region}, nil
}

// Route returns the driving distance, duration and overview polyline between
// two points.
func (s *RouteService) Route(ctx context.Context, origin, destination types.Point) (leg Leg, err error) {
	defer obs.Time(ctx, "maps.route")(&err)

	r := &maps.DirectionsRequest{
		Origin:      latLngString(origin),
		Destination: latLngString(destination),
		Mode:        maps.TravelModeDriving,
		Language:    s.language,
		Region:      s.region,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Leg{}, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Leg{}, fmt.Errorf("no route found")
	}

	var meters int
	var seconds float64
	for _, l := range routes[0].Legs {
		meters += l.Distance.Meters
		seconds += l.Duration.Seconds()
	}
	return Leg{
		DistanceKm:      float64(meters) / 1000,
		DurationMinutes: types.RoundTo(seconds/60, 2),
		Source:          SourceGoogleDirections,
		Polyline:        routes[0].OverviewPolyline.Points,
	}, nil
}

func latLngString(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}
