package cost

// Fallback chain sources.
const (
	SourceVehicle      = "VEHICLE"
	SourceCategory     = "CATEGORY"
	SourceOrganization = "ORGANIZATION"
	SourceRealtime     = "REALTIME"
	SourceCache        = "CACHE"
	SourceDefault      = "DEFAULT"
)

const (
	DefaultConsumptionL100km = 8.0
	DefaultFuelPricePerLitre = 1.80
)

// Resolved is a value together with the source that satisfied it.
type Resolved struct {
	Value  float64 `json:"value"`
	Source string  `json:"source"`
}

// Option is one link in a fallback chain. A nil or non-positive value is
// skipped.
type Option struct {
	Source string
	Value  *float64
}

func Opt(source string, v *float64) Option {
	return Option{Source: source, Value: v}
}

// Resolve walks options left to right and returns the first usable one, or
// fallback when none is.
func Resolve(fallback Resolved, options ...Option) Resolved {
	for _, o := range options {
		if o.Value != nil && *o.Value > 0 {
			return Resolved{Value: *o.Value, Source: o.Source}
		}
	}
	return fallback
}

// ResolveConsumption: vehicle, then category, then organization, then 8.0 L/100km.
func ResolveConsumption(vehicle, category, organization *float64) Resolved {
	return Resolve(
		Resolved{Value: DefaultConsumptionL100km, Source: SourceDefault},
		Opt(SourceVehicle, vehicle),
		Opt(SourceCategory, category),
		Opt(SourceOrganization, organization),
	)
}

// LiveFuelPrice is what the fuel price provider returned for this call.
type LiveFuelPrice struct {
	PricePerLitre float64
	Source        string
	IsStale       bool
}

type FuelPriceResolution struct {
	PricePerLitre float64 `json:"pricePerLitre"`
	Source        string  `json:"source"`
	IsStale       bool    `json:"isStale"`
}

// ResolveFuelPrice: realtime, then cached (possibly stale), then organization,
// then 1.80 EUR/L. A provider answer from its own DEFAULT tier is ignored so
// the organization setting can take over.
func ResolveFuelPrice(live *LiveFuelPrice, organization *float64) FuelPriceResolution {
	if live != nil && live.PricePerLitre > 0 {
		switch live.Source {
		case SourceRealtime:
			return FuelPriceResolution{PricePerLitre: live.PricePerLitre, Source: SourceRealtime}
		case SourceCache:
			return FuelPriceResolution{PricePerLitre: live.PricePerLitre, Source: SourceCache, IsStale: live.IsStale}
		}
	}
	r := Resolve(
		Resolved{Value: DefaultFuelPricePerLitre, Source: SourceDefault},
		Opt(SourceOrganization, organization),
	)
	return FuelPriceResolution{PricePerLitre: r.Value, Source: r.Source}
}
