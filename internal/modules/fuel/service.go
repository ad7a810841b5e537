// README: Fuel price provider: realtime HTTP lookup by GPS, Redis cache, then the default tier. Never fails.
package fuel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chauffeur/internal/infra"
	"chauffeur/internal/obs"
	"chauffeur/internal/types"
)

const (
	DefaultFuelType      = "DIESEL"
	DefaultPricePerLitre = 1.80
)

type Config struct {
	Endpoint     string
	APIKey       string
	Freshness    time.Duration
	DefaultPrice float64
}

type Provider struct {
	client *infra.RetryClient
	cache  *Cache
	cfg    Config
	now    func() time.Time
}

// NewProvider builds the provider. An empty endpoint disables realtime
// lookups; a nil cache disables caching.
func NewProvider(client *infra.RetryClient, cache *Cache, cfg Config) *Provider {
	if cfg.Freshness <= 0 {
		cfg.Freshness = 6 * time.Hour
	}
	if cfg.DefaultPrice <= 0 {
		cfg.DefaultPrice = DefaultPricePerLitre
	}
	return &Provider{client: client, cache: cache, cfg: cfg, now: time.Now}
}

// GetFuelPrice answers from a fresh cache entry, then the realtime service,
// then a stale cache entry, then the default price.
func (p *Provider) GetFuelPrice(ctx context.Context, q Query) Price {
	fuelType := strings.ToUpper(strings.TrimSpace(q.FuelType))
	if fuelType == "" {
		fuelType = DefaultFuelType
	}
	points := q.points()
	key := cacheKey(fuelType, points)

	cached, hit := p.lookup(ctx, key)
	if hit && p.now().Sub(cached.FetchedAt) <= p.cfg.Freshness {
		return p.fromCache(cached, false)
	}

	e, err := p.fetchRoute(ctx, fuelType, points)
	if err == nil {
		if p.cache != nil {
			if err := p.cache.put(ctx, key, e); err != nil {
				log.Printf("fuel: %v", err)
			}
		}
		return Price{
			PricePerLitre:    e.PricePerLitre,
			Currency:         types.CurrencyEUR,
			Source:           SourceRealtime,
			CountriesOnRoute: e.Countries,
		}
	}
	log.Printf("req_id=%s fuel: realtime lookup failed: %v", obs.RequestID(ctx), err)

	if hit {
		return p.fromCache(cached, true)
	}
	return Price{PricePerLitre: p.cfg.DefaultPrice, Currency: types.CurrencyEUR, Source: SourceDefault}
}

func (p *Provider) lookup(ctx context.Context, key string) (entry, bool) {
	if p.cache == nil {
		return entry{}, false
	}
	e, ok, err := p.cache.get(ctx, key)
	if err != nil {
		log.Printf("fuel: %v", err)
		return entry{}, false
	}
	return e, ok
}

func (p *Provider) fromCache(e entry, stale bool) Price {
	return Price{
		PricePerLitre:    e.PricePerLitre,
		Currency:         types.CurrencyEUR,
		Source:           SourceCache,
		IsStale:          stale,
		CountriesOnRoute: e.Countries,
	}
}

type stationPrice struct {
	PricePerLitre float64 `json:"pricePerLitre"`
	Currency      string  `json:"currency"`
	CountryCode   string  `json:"countryCode"`
}

// fetchRoute averages the pump price over every point of the trip.
func (p *Provider) fetchRoute(ctx context.Context, fuelType string, points []types.Point) (e entry, err error) {
	defer obs.Time(ctx, "fuel.fetch")(&err)

	if p.client == nil || p.cfg.Endpoint == "" {
		return entry{}, errors.New("realtime fuel lookup not configured")
	}
	var sum float64
	seen := map[string]bool{}
	for _, pt := range points {
		sp, err := p.fetchPoint(ctx, fuelType, pt)
		if err != nil {
			return entry{}, err
		}
		sum += sp.PricePerLitre
		if c := strings.ToUpper(sp.CountryCode); c != "" && !seen[c] {
			seen[c] = true
			e.Countries = append(e.Countries, c)
		}
	}
	e.PricePerLitre = types.RoundTo(sum/float64(len(points)), 3)
	e.FetchedAt = p.now().UTC()
	return e, nil
}

func (p *Provider) fetchPoint(ctx context.Context, fuelType string, pt types.Point) (stationPrice, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(pt.Lat, 'f', 6, 64))
	q.Set("lng", strconv.FormatFloat(pt.Lng, 'f', 6, 64))
	q.Set("fuelType", fuelType)
	endpoint := p.cfg.Endpoint + "?" + q.Encode()

	resp, err := p.client.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if p.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
		}
		return req, nil
	})
	if err != nil {
		return stationPrice{}, fmt.Errorf("fuel price request: %w", err)
	}
	defer resp.Body.Close()

	var sp stationPrice
	if err := json.NewDecoder(resp.Body).Decode(&sp); err != nil {
		return stationPrice{}, fmt.Errorf("decode fuel price: %w", err)
	}
	if sp.PricePerLitre <= 0 {
		return stationPrice{}, fmt.Errorf("fuel price missing for %.4f,%.4f", pt.Lat, pt.Lng)
	}
	if sp.Currency != "" && !strings.EqualFold(sp.Currency, types.CurrencyEUR) {
		return stationPrice{}, fmt.Errorf("fuel price in %s, want %s", sp.Currency, types.CurrencyEUR)
	}
	return sp, nil
}
