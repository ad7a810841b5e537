// README: Route segmentation: split a route into contiguous per-zone spans with a distance-weighted multiplier.
package route

import (
	"chauffeur/internal/modules/zone"
	"chauffeur/internal/types"
)

const (
	MethodPolyline = "POLYLINE"
	MethodFallback = "FALLBACK"
)

// Span is a contiguous stretch of the route inside one zone. An empty ZoneID
// marks an unzoned stretch, priced with a neutral multiplier.
type Span struct {
	ZoneID          types.ID `json:"zoneId,omitempty"`
	ZoneCode        string   `json:"zoneCode,omitempty"`
	DistanceKm      float64  `json:"distanceKm"`
	DurationMinutes float64  `json:"durationMinutes"`
	Multiplier      float64  `json:"multiplier"`
	Surcharge       float64  `json:"surcharge"`
}

type Segmentation struct {
	Method             string     `json:"method"`
	Spans              []Span     `json:"spans"`
	WeightedMultiplier float64    `json:"weightedMultiplier"`
	TotalSurcharge     float64    `json:"totalSurcharge"`
	ZonesTraversed     []types.ID `json:"zonesTraversed"`
}

// Segment walks the decoded polyline and attributes every edge to the zone
// containing its midpoint. Distances and durations are scaled so the spans
// add up to the routed trip figures.
func Segment(path []types.Point, r *zone.Resolver, distanceKm, durationMinutes float64) Segmentation {
	if len(path) < 2 {
		return Segmentation{Method: MethodPolyline, WeightedMultiplier: 1}
	}

	var spans []Span
	var geoTotal float64
	for i := 1; i < len(path); i++ {
		d := zone.HaversineKm(path[i-1], path[i])
		if d == 0 {
			continue
		}
		geoTotal += d

		z, ok := r.Resolve(zone.Midpoint(path[i-1], path[i]))
		id := types.ID("")
		if ok {
			id = z.ID
		}
		if n := len(spans); n > 0 && spans[n-1].ZoneID == id {
			spans[n-1].DistanceKm += d
			continue
		}
		spans = append(spans, newSpan(z, ok, d))
	}
	if geoTotal == 0 {
		return Segmentation{Method: MethodPolyline, WeightedMultiplier: 1}
	}

	if distanceKm <= 0 {
		distanceKm = geoTotal
	}
	for i := range spans {
		share := spans[i].DistanceKm / geoTotal
		spans[i].DistanceKm = types.RoundTo(share*distanceKm, 3)
		spans[i].DurationMinutes = types.RoundTo(share*durationMinutes, 2)
	}
	return finish(MethodPolyline, spans)
}

// FallbackSegment is used when no polyline is available: one span when both
// ends share a zone, otherwise the trip is split evenly between them.
func FallbackSegment(pickup, dropoff *zone.Zone, distanceKm, durationMinutes float64) Segmentation {
	toSpan := func(z *zone.Zone, km, min float64) Span {
		var s Span
		if z != nil {
			s = newSpan(*z, true, km)
		} else {
			s = newSpan(zone.Zone{}, false, km)
		}
		s.DistanceKm = types.RoundTo(km, 3)
		s.DurationMinutes = types.RoundTo(min, 2)
		return s
	}

	var spans []Span
	switch {
	case dropoff == nil || sameZone(pickup, dropoff):
		spans = []Span{toSpan(pickup, distanceKm, durationMinutes)}
	default:
		spans = []Span{
			toSpan(pickup, distanceKm/2, durationMinutes/2),
			toSpan(dropoff, distanceKm/2, durationMinutes/2),
		}
	}
	return finish(MethodFallback, spans)
}

func newSpan(z zone.Zone, zoned bool, km float64) Span {
	if !zoned {
		return Span{DistanceKm: km, Multiplier: 1}
	}
	return Span{ZoneID: z.ID, ZoneCode: z.Code, DistanceKm: km, Multiplier: z.Multiplier(), Surcharge: z.Surcharge}
}

func sameZone(a, b *zone.Zone) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}

// finish computes the weighted multiplier and charges each zone's surcharge
// once, however many times the route re-enters it.
func finish(method string, spans []Span) Segmentation {
	seg := Segmentation{Method: method, Spans: spans, WeightedMultiplier: 1}

	var dist, weighted float64
	charged := map[types.ID]bool{}
	for _, s := range spans {
		dist += s.DistanceKm
		weighted += s.DistanceKm * s.Multiplier
		if s.ZoneID == "" || charged[s.ZoneID] {
			continue
		}
		charged[s.ZoneID] = true
		seg.ZonesTraversed = append(seg.ZonesTraversed, s.ZoneID)
		seg.TotalSurcharge = types.Round2(seg.TotalSurcharge + s.Surcharge)
	}
	if dist > 0 {
		seg.WeightedMultiplier = types.RoundTo(weighted/dist, 4)
	}
	return seg
}
