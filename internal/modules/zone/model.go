// README: Pricing zone definitions (polygon, radius, named point).
package zone

import (
	"math"

	"chauffeur/internal/types"
)

type GeometryKind string

const (
	KindPolygon GeometryKind = "POLYGON"
	KindRadius  GeometryKind = "RADIUS"
	KindPoint   GeometryKind = "POINT"
)

// Zone is read-only during a pricing call. PriceMultiplier defaults to 1.0 at
// load time.
type Zone struct {
	ID              types.ID      `json:"id"`
	Code            string        `json:"code"`
	Name            string        `json:"name"`
	Kind            GeometryKind  `json:"kind"`
	Ring            []types.Point `json:"ring,omitempty"`
	Center          *types.Point  `json:"center,omitempty"`
	RadiusKm        float64       `json:"radiusKm,omitempty"`
	PriceMultiplier float64       `json:"priceMultiplier"`
	Surcharge       float64       `json:"surcharge"`
	Active          bool          `json:"active"`
}

// Multiplier returns the zone multiplier, treating an unset value as neutral.
func (z Zone) Multiplier() float64 {
	if z.PriceMultiplier <= 0 {
		return 1.0
	}
	return z.PriceMultiplier
}

// Contains reports whether p lies inside the zone. POINT zones are named
// waypoints and never contain arbitrary points.
func (z Zone) Contains(p types.Point) bool {
	switch z.Kind {
	case KindPolygon:
		return pointInRing(p, z.Ring)
	case KindRadius:
		if z.Center == nil || z.RadiusKm <= 0 {
			return false
		}
		return HaversineKm(*z.Center, p) <= z.RadiusKm
	default:
		return false
	}
}

// AreaKm2 is used for tie-breaking overlapping zones.
func (z Zone) AreaKm2() float64 {
	switch z.Kind {
	case KindPolygon:
		return ringAreaKm2(z.Ring)
	case KindRadius:
		return math.Pi * z.RadiusKm * z.RadiusKm
	default:
		return 0
	}
}
