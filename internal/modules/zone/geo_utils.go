// README: Pure geographic helpers: haversine distance, ray casting and polygon area.
package zone

import (
	"math"

	"chauffeur/internal/types"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func HaversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// pointInRing is the ray-casting test. The ring may be open or closed; lng is
// treated as x and lat as y.
func pointInRing(p types.Point, ring []types.Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := ring[i].Lng, ring[i].Lat
		xj, yj := ring[j].Lng, ring[j].Lat
		if (yi > p.Lat) != (yj > p.Lat) {
			xCross := (xj-xi)*(p.Lat-yi)/(yj-yi) + xi
			if p.Lng < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// ringAreaKm2 approximates the polygon area with an equirectangular projection
// around the ring's mean latitude. Only used to order overlapping zones.
func ringAreaKm2(ring []types.Point) float64 {
	n := len(ring)
	if n < 3 {
		return 0
	}
	var meanLat float64
	for _, p := range ring {
		meanLat += p.Lat
	}
	meanLat /= float64(n)

	kmPerDegLat := earthRadiusKm * math.Pi / 180.0
	kmPerDegLng := kmPerDegLat * math.Cos(degreesToRadians(meanLat))

	var sum float64
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := ring[i].Lng*kmPerDegLng, ring[i].Lat*kmPerDegLat
		xj, yj := ring[j].Lng*kmPerDegLng, ring[j].Lat*kmPerDegLat
		sum += xj*yi - xi*yj
		j = i
	}
	return math.Abs(sum) / 2
}

// Midpoint returns the arithmetic midpoint; good enough for the short polyline
// edges it is used on.
func Midpoint(a, b types.Point) types.Point {
	return types.Point{Lat: (a.Lat + b.Lat) / 2, Lng: (a.Lng + b.Lng) / 2}
}
