package route

import (
	"math"
	"slices"

	"chauffeur/internal/types"
)

// IsTransversal: at least three distinct zones, one of which is neither the
// pickup nor the dropoff zone.
func IsTransversal(seg Segmentation, pickupZone, dropoffZone types.ID) bool {
	if len(seg.ZonesTraversed) < 3 {
		return false
	}
	for _, id := range seg.ZonesTraversed {
		if id != pickupZone && id != dropoffZone {
			return true
		}
	}
	return false
}

type DecompositionParams struct {
	RatePerKm              float64
	RatePerHour            float64
	TargetMarginPercent    float64
	TransitDiscountPercent float64
	// TransitZoneCodes is the organization's allow-list of discountable zones.
	TransitZoneCodes []string
}

type PricedSpan struct {
	Span
	Price           float64 `json:"price"`
	IsTransit       bool    `json:"isTransit"`
	TransitDiscount float64 `json:"transitDiscount"`
}

type Decomposition struct {
	Spans         []PricedSpan `json:"spans"`
	Subtotal      float64      `json:"subtotal"`
	TotalDiscount float64      `json:"totalDiscount"`
	Total         float64      `json:"total"`
}

// Decompose prices each span on its own and discounts allow-listed transit
// zones. Every span price and discount is rounded before summation.
func Decompose(seg Segmentation, pickupZone, dropoffZone types.ID, p DecompositionParams) Decomposition {
	var d Decomposition
	markup := 1 + p.TargetMarginPercent/100
	for _, s := range seg.Spans {
		base := math.Max(s.DistanceKm*p.RatePerKm, s.DurationMinutes/60*p.RatePerHour)
		ps := PricedSpan{Span: s, Price: types.Round2(base * s.Multiplier * markup)}

		if s.ZoneID != "" && s.ZoneID != pickupZone && s.ZoneID != dropoffZone {
			ps.IsTransit = true
			if p.TransitDiscountPercent > 0 && slices.Contains(p.TransitZoneCodes, s.ZoneCode) {
				ps.TransitDiscount = types.Round2(ps.Price * p.TransitDiscountPercent / 100)
			}
		}
		d.Spans = append(d.Spans, ps)
		d.Subtotal = types.Round2(d.Subtotal + ps.Price)
		d.TotalDiscount = types.Round2(d.TotalDiscount + ps.TransitDiscount)
	}
	d.Total = types.Round2(d.Subtotal - d.TotalDiscount)
	return d
}
