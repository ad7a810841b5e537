// README: Grid matcher: finds the contract entry that fixes the price of a trip.
package contract

import (
	"slices"

	"chauffeur/internal/modules/zone"
	"chauffeur/internal/types"
)

type GridType string

const (
	GridZoneRoute GridType = "ZONE_ROUTE"
	GridExcursion GridType = "EXCURSION_PACKAGE"
	GridDispo     GridType = "DISPO_PACKAGE"
)

type FallbackReason string

const (
	ReasonNotPartner       FallbackReason = "NOT_PARTNER"
	ReasonNoContract       FallbackReason = "NO_CONTRACT"
	ReasonOffGridTrip      FallbackReason = "OFF_GRID_TRIP"
	ReasonNoZoneRouteMatch FallbackReason = "NO_ZONE_ROUTE_MATCH"
	ReasonNoExcursionMatch FallbackReason = "NO_EXCURSION_MATCH"
	ReasonNoDispoMatch     FallbackReason = "NO_DISPO_MATCH"
)

// DefaultAddressToleranceKm applies when the organization sets none.
const DefaultAddressToleranceKm = 0.2

// Query describes the trip being priced. PickupZones and DropoffZones hold
// every zone containing the point, not just the resolved one.
type Query struct {
	TripType           types.TripType
	VehicleCategoryID  types.ID
	Pickup             types.Point
	Dropoff            *types.Point
	PickupPlaceID      string
	DropoffPlaceID     string
	PickupZones        []types.ID
	DropoffZones       []types.ID
	DistanceKm         float64
	DurationHours      float64
	AddressToleranceKm float64
}

// DispoOverage is the part of a dispo price above the package inclusions.
type DispoOverage struct {
	ExtraHours  float64 `json:"extraHours"`
	ExtraKm     float64 `json:"extraKm"`
	HoursAmount float64 `json:"hoursAmount"`
	KmAmount    float64 `json:"kmAmount"`
}

// Match is the matched grid reference carried on the pricing result.
type Match struct {
	Type          GridType      `json:"type"`
	ID            types.ID      `json:"id"`
	Name          string        `json:"name"`
	FixedPrice    float64       `json:"fixedPrice"`
	OverridePrice *float64      `json:"overridePrice,omitempty"`
	Price         float64       `json:"price"`
	Reversed      bool          `json:"reversed,omitempty"`
	Overage       *DispoOverage `json:"overage,omitempty"`
}

type Outcome struct {
	Match          *Match
	FallbackReason FallbackReason
}

// MatchGrid searches the contact's contract for the entry gated by the trip
// type. The first matching entry wins; ties are left to the data owner.
func MatchGrid(contact *Contact, q Query) Outcome {
	if contact == nil || contact.Type != ContactPartner {
		return Outcome{FallbackReason: ReasonNotPartner}
	}
	if contact.Contract == nil {
		return Outcome{FallbackReason: ReasonNoContract}
	}
	c := contact.Contract

	switch q.TripType {
	case types.TripTransfer:
		if m := matchZoneRoute(c.ZoneRoutes, q); m != nil {
			return Outcome{Match: m}
		}
		return Outcome{FallbackReason: ReasonNoZoneRouteMatch}
	case types.TripExcursion:
		if m := matchExcursion(c.Excursions, q); m != nil {
			return Outcome{Match: m}
		}
		return Outcome{FallbackReason: ReasonNoExcursionMatch}
	case types.TripDispo:
		if m := matchDispo(c.Dispos, q); m != nil {
			return Outcome{Match: m}
		}
		return Outcome{FallbackReason: ReasonNoDispoMatch}
	default:
		return Outcome{FallbackReason: ReasonOffGridTrip}
	}
}

func matchZoneRoute(assignments []ZoneRouteAssignment, q Query) *Match {
	if q.Dropoff == nil {
		return nil
	}
	tol := q.AddressToleranceKm
	if tol <= 0 {
		tol = DefaultAddressToleranceKm
	}
	pickup := location{point: q.Pickup, placeID: q.PickupPlaceID, zones: q.PickupZones}
	dropoff := location{point: *q.Dropoff, placeID: q.DropoffPlaceID, zones: q.DropoffZones}

	for _, a := range assignments {
		r := a.Route
		if !r.Active || r.VehicleCategoryID != q.VehicleCategoryID {
			continue
		}
		forward := r.Origin.contains(pickup, tol) && r.Destination.contains(dropoff, tol)
		reverse := r.Origin.contains(dropoff, tol) && r.Destination.contains(pickup, tol)

		var ok, reversed bool
		switch r.Direction {
		case AToB:
			ok = forward
		case BToA:
			ok, reversed = reverse, true
		default:
			ok = forward || reverse
			reversed = !forward
		}
		if ok {
			return newMatch(GridZoneRoute, r.ID, r.Name, r.FixedPrice, a.OverridePrice, func(m *Match) {
				m.Reversed = reversed
			})
		}
	}
	return nil
}

func matchExcursion(assignments []ExcursionAssignment, q Query) *Match {
	for _, a := range assignments {
		p := a.Package
		if !p.Active {
			continue
		}
		if p.VehicleCategoryID != "" && p.VehicleCategoryID != q.VehicleCategoryID {
			continue
		}
		if p.IsTemporalVector() {
			allowed := p.AllowedOriginZoneIDs
			if len(allowed) == 0 && p.OriginZoneID != "" {
				allowed = []types.ID{p.OriginZoneID}
			}
			if !intersects(allowed, q.PickupZones) || q.DurationHours < *p.MinimumDurationHours {
				continue
			}
		} else {
			if !slices.Contains(q.PickupZones, p.OriginZoneID) || !slices.Contains(q.DropoffZones, p.DestinationZoneID) {
				continue
			}
		}
		return newMatch(GridExcursion, p.ID, p.Name, p.FixedPrice, a.OverridePrice, nil)
	}
	return nil
}

func matchDispo(assignments []DispoAssignment, q Query) *Match {
	for _, a := range assignments {
		p := a.Package
		if !p.Active || p.VehicleCategoryID != q.VehicleCategoryID {
			continue
		}
		overage := p.Overage(q.DurationHours, q.DistanceKm)
		fixed := types.Round2(p.BasePrice + overage.HoursAmount + overage.KmAmount)
		return newMatch(GridDispo, p.ID, p.Name, fixed, a.OverridePrice, func(m *Match) {
			if overage.ExtraHours > 0 || overage.ExtraKm > 0 {
				m.Overage = &overage
			}
		})
	}
	return nil
}

// Overage prices the hours and kilometres beyond the package inclusions.
func (p DispoPackage) Overage(hours, km float64) DispoOverage {
	var o DispoOverage
	if hours > p.IncludedHours {
		o.ExtraHours = types.RoundTo(hours-p.IncludedHours, 2)
		o.HoursAmount = types.Round2(o.ExtraHours * p.OverageRatePerHour)
	}
	if p.IncludedKm > 0 && km > p.IncludedKm {
		o.ExtraKm = types.RoundTo(km-p.IncludedKm, 2)
		o.KmAmount = types.Round2(o.ExtraKm * p.OverageRatePerKm)
	}
	return o
}

func newMatch(t GridType, id types.ID, name string, fixed float64, override *float64, opt func(*Match)) *Match {
	m := &Match{Type: t, ID: id, Name: name, FixedPrice: fixed, Price: fixed}
	if override != nil {
		v := *override
		m.OverridePrice = &v
		m.Price = types.Round2(v)
	}
	if opt != nil {
		opt(m)
	}
	return m
}

type location struct {
	point   types.Point
	placeID string
	zones   []types.ID
}

// contains reports whether a trip end satisfies the endpoint. Address
// endpoints match on place id first, then on distance within toleranceKm.
func (e RouteEndpoint) contains(l location, toleranceKm float64) bool {
	switch e.Kind {
	case EndpointZones:
		return intersects(e.ZoneIDs, l.zones)
	case EndpointAddress:
		if e.PlaceID != "" && e.PlaceID == l.placeID {
			return true
		}
		if e.Point == nil {
			return false
		}
		return zone.HaversineKm(*e.Point, l.point) <= toleranceKm
	default:
		return false
	}
}

func intersects(a, b []types.ID) bool {
	for _, id := range a {
		if slices.Contains(b, id) {
			return true
		}
	}
	return false
}
