// README: Internal cost model: per-segment fuel/toll/wear/driver costs, margin and profitability.
package cost

import "chauffeur/internal/types"

// Parameters are the per-call cost inputs after every fallback chain has been
// resolved.
type Parameters struct {
	FuelConsumptionL100km float64 `json:"fuelConsumptionL100km"`
	FuelPricePerLitre     float64 `json:"fuelPricePerLitre"`
	TollCostPerKm         float64 `json:"tollCostPerKm"`
	WearCostPerKm         float64 `json:"wearCostPerKm"`
	DriverHourlyCost      float64 `json:"driverHourlyCost"`
}

// Segment is one costed movement (approach, service or return).
type Segment struct {
	DistanceKm      float64 `json:"distanceKm"`
	DurationMinutes float64 `json:"durationMinutes"`
}

// Breakdown holds rounded sub-costs. Total is the rounded sum of the rounded
// sub-costs and must be kept that way to match issued invoices.
type Breakdown struct {
	Fuel    float64 `json:"fuel"`
	Tolls   float64 `json:"tolls"`
	Wear    float64 `json:"wear"`
	Driver  float64 `json:"driver"`
	Parking float64 `json:"parking"`
	Total   float64 `json:"total"`
}

// Compute costs a single segment. Parking is not distance-bound and is added
// by WithParking.
func Compute(seg Segment, p Parameters) Breakdown {
	b := Breakdown{
		Fuel:   types.Round2(seg.DistanceKm * (p.FuelConsumptionL100km / 100) * p.FuelPricePerLitre),
		Tolls:  types.Round2(seg.DistanceKm * p.TollCostPerKm),
		Wear:   types.Round2(seg.DistanceKm * p.WearCostPerKm),
		Driver: types.Round2(seg.DurationMinutes / 60 * p.DriverHourlyCost),
	}
	return b.retotal()
}

// Add sums two breakdowns field by field.
func (b Breakdown) Add(o Breakdown) Breakdown {
	sum := Breakdown{
		Fuel:    types.Round2(b.Fuel + o.Fuel),
		Tolls:   types.Round2(b.Tolls + o.Tolls),
		Wear:    types.Round2(b.Wear + o.Wear),
		Driver:  types.Round2(b.Driver + o.Driver),
		Parking: types.Round2(b.Parking + o.Parking),
	}
	return sum.retotal()
}

func (b Breakdown) WithParking(amount float64) Breakdown {
	b.Parking = types.Round2(amount)
	return b.retotal()
}

// WithTolls replaces the toll estimate with a known amount.
func (b Breakdown) WithTolls(amount float64) Breakdown {
	b.Tolls = types.Round2(amount)
	return b.retotal()
}

func (b Breakdown) retotal() Breakdown {
	b.Total = types.Round2(b.Fuel + b.Tolls + b.Wear + b.Driver + b.Parking)
	return b
}

// Sum adds up any number of breakdowns.
func Sum(parts ...Breakdown) Breakdown {
	var total Breakdown
	for _, p := range parts {
		total = total.Add(p)
	}
	return total
}
