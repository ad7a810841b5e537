// README: Toll cost lookup through the Google Routes API (TOLLS extra computation) with a Redis cache.
package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"chauffeur/internal/infra"
	"chauffeur/internal/obs"
	"chauffeur/internal/types"
)

const (
	SourceGoogleRoutes = "GOOGLE_ROUTES"
	SourceTollEstimate = "ESTIMATE"

	DefaultRoutesEndpoint = "https://routes.googleapis.com/directions/v2:computeRoutes"

	tollFieldMask = "routes.distanceMeters,routes.duration,routes.polyline.encodedPolyline,routes.travelAdvisory.tollInfo"
)

// TollOptions: DistanceKm is the routed service distance used for the
// estimate when the lookup fails.
type TollOptions struct {
	FallbackRatePerKm float64
	DistanceKm        float64
}

type TollCost struct {
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Source          string  `json:"source"`
	IsFromCache     bool    `json:"isFromCache"`
	EncodedPolyline string  `json:"encodedPolyline,omitempty"`
}

type TollService struct {
	client   *infra.RetryClient
	endpoint string
	apiKey   string
	rdb      *redis.Client
	ttl      time.Duration
}

// NewTollService builds the service. A nil rdb disables caching.
func NewTollService(client *infra.RetryClient, endpoint, apiKey string, rdb *redis.Client, ttl time.Duration) *TollService {
	if endpoint == "" {
		endpoint = DefaultRoutesEndpoint
	}
	return &TollService{client: client, endpoint: endpoint, apiKey: apiKey, rdb: rdb, ttl: ttl}
}

// GetTollCost never fails: lookup errors yield distance × fallback rate.
func (s *TollService) GetTollCost(ctx context.Context, pickup, dropoff types.Point, opts TollOptions) TollCost {
	key := tollKey(pickup, dropoff)
	if tc, ok := s.cached(ctx, key); ok {
		tc.IsFromCache = true
		return tc
	}

	tc, err := s.compute(ctx, pickup, dropoff)
	if err != nil {
		log.Printf("req_id=%s tolls: routes lookup failed: %v", obs.RequestID(ctx), err)
		return TollCost{
			Amount:   types.Round2(opts.DistanceKm * opts.FallbackRatePerKm),
			Currency: types.CurrencyEUR,
			Source:   SourceTollEstimate,
		}
	}
	s.store(ctx, key, tc)
	return tc
}

func tollKey(a, b types.Point) string {
	return fmt.Sprintf("toll:%.4f,%.4f:%.4f,%.4f", a.Lat, a.Lng, b.Lat, b.Lng)
}

func (s *TollService) cached(ctx context.Context, key string) (TollCost, bool) {
	if s.rdb == nil {
		return TollCost{}, false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("tolls: cache get: %v", err)
		}
		return TollCost{}, false
	}
	var tc TollCost
	if err := json.Unmarshal(raw, &tc); err != nil {
		log.Printf("tolls: cache decode: %v", err)
		return TollCost{}, false
	}
	return tc, true
}

func (s *TollService) store(ctx context.Context, key string, tc TollCost) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(tc)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		log.Printf("tolls: cache set: %v", err)
	}
}

type routesLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type routesWaypoint struct {
	Location struct {
		LatLng routesLatLng `json:"latLng"`
	} `json:"location"`
}

type routesRequest struct {
	Origin            routesWaypoint `json:"origin"`
	Destination       routesWaypoint `json:"destination"`
	TravelMode        string         `json:"travelMode"`
	ExtraComputations []string       `json:"extraComputations"`
}

type routesMoney struct {
	CurrencyCode string `json:"currencyCode"`
	Units        string `json:"units"`
	Nanos        int64  `json:"nanos"`
}

type routesResponse struct {
	Routes []struct {
		DistanceMeters int `json:"distanceMeters"`
		Polyline       struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
		TravelAdvisory struct {
			TollInfo *struct {
				EstimatedPrice []routesMoney `json:"estimatedPrice"`
			} `json:"tollInfo"`
		} `json:"travelAdvisory"`
	} `json:"routes"`
}

func waypoint(p types.Point) routesWaypoint {
	var w routesWaypoint
	w.Location.LatLng = routesLatLng{Latitude: p.Lat, Longitude: p.Lng}
	return w
}

func (s *TollService) compute(ctx context.Context, pickup, dropoff types.Point) (tc TollCost, err error) {
	defer obs.Time(ctx, "maps.tolls")(&err)

	if s.client == nil || s.apiKey == "" {
		return TollCost{}, errors.New("routes api not configured")
	}
	body, err := json.Marshal(routesRequest{
		Origin:            waypoint(pickup),
		Destination:       waypoint(dropoff),
		TravelMode:        "DRIVE",
		ExtraComputations: []string{"TOLLS"},
	})
	if err != nil {
		return TollCost{}, err
	}

	resp, err := s.client.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", s.apiKey)
		req.Header.Set("X-Goog-FieldMask", tollFieldMask)
		return req, nil
	})
	if err != nil {
		return TollCost{}, fmt.Errorf("compute routes: %w", err)
	}
	defer resp.Body.Close()

	var out routesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return TollCost{}, fmt.Errorf("decode routes response: %w", err)
	}
	if len(out.Routes) == 0 {
		return TollCost{}, errors.New("no route found")
	}
	r := out.Routes[0]

	tc = TollCost{Currency: types.CurrencyEUR, Source: SourceGoogleRoutes, EncodedPolyline: r.Polyline.EncodedPolyline}
	if info := r.TravelAdvisory.TollInfo; info != nil && len(info.EstimatedPrice) > 0 {
		found := false
		for _, m := range info.EstimatedPrice {
			if m.CurrencyCode != types.CurrencyEUR {
				continue
			}
			units, err := strconv.ParseInt(m.Units, 10, 64)
			if err != nil && m.Units != "" {
				return TollCost{}, fmt.Errorf("parse toll units %q: %w", m.Units, err)
			}
			tc.Amount += float64(units) + float64(m.Nanos)/1e9
			found = true
		}
		if !found {
			return TollCost{}, fmt.Errorf("toll price not quoted in %s", types.CurrencyEUR)
		}
	}
	tc.Amount = types.Round2(tc.Amount)
	return tc, nil
}
