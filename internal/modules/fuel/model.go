// README: Fuel price lookup types shared with the pricing engine.
package fuel

import "chauffeur/internal/types"

// Sources mirror the cost fallback chain names.
const (
	SourceRealtime = "REALTIME"
	SourceCache    = "CACHE"
	SourceDefault  = "DEFAULT"
)

// Query asks for the pump price along a trip.
type Query struct {
	Pickup   types.Point
	Dropoff  *types.Point
	Stops    []types.Point
	FuelType string
}

func (q Query) points() []types.Point {
	out := append([]types.Point{q.Pickup}, q.Stops...)
	if q.Dropoff != nil {
		out = append(out, *q.Dropoff)
	}
	return out
}

type Price struct {
	PricePerLitre    float64  `json:"pricePerLitre"`
	Currency         string   `json:"currency"`
	Source           string   `json:"source"`
	IsStale          bool     `json:"isStale"`
	CountriesOnRoute []string `json:"countriesOnRoute,omitempty"`
}
