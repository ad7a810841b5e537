// README: Contacts, partner contracts and their grid entries (zone routes, excursions, dispo packages).
package contract

import "chauffeur/internal/types"

type ContactType string

const (
	ContactPartner ContactType = "PARTNER"
	ContactPrivate ContactType = "PRIVATE"
)

type Contact struct {
	ID       types.ID         `json:"id"`
	Name     string           `json:"name"`
	Type     ContactType      `json:"type"`
	Contract *PartnerContract `json:"contract,omitempty"`
}

// PartnerContract lists the grid entries assigned to a partner. Assignment
// order is the match order.
type PartnerContract struct {
	ID         types.ID              `json:"id"`
	ZoneRoutes []ZoneRouteAssignment `json:"zoneRoutes"`
	Excursions []ExcursionAssignment `json:"excursions"`
	Dispos     []DispoAssignment     `json:"dispos"`
}

type ZoneRouteAssignment struct {
	Route         ZoneRoute `json:"route"`
	OverridePrice *float64  `json:"overridePrice,omitempty"`
}

type ExcursionAssignment struct {
	Package       ExcursionPackage `json:"package"`
	OverridePrice *float64         `json:"overridePrice,omitempty"`
}

type DispoAssignment struct {
	Package       DispoPackage `json:"package"`
	OverridePrice *float64     `json:"overridePrice,omitempty"`
}

type RouteDirection string

const (
	Bidirectional RouteDirection = "BIDIRECTIONAL"
	AToB          RouteDirection = "A_TO_B"
	BToA          RouteDirection = "B_TO_A"
)

type EndpointKind string

const (
	EndpointZones   EndpointKind = "ZONES"
	EndpointAddress EndpointKind = "ADDRESS"
)

// RouteEndpoint is either a set of zones or a fixed address.
type RouteEndpoint struct {
	Kind    EndpointKind `json:"kind"`
	ZoneIDs []types.ID   `json:"zoneIds,omitempty"`
	PlaceID string       `json:"placeId,omitempty"`
	Point   *types.Point `json:"point,omitempty"`
}

func Zones(ids ...types.ID) RouteEndpoint {
	return RouteEndpoint{Kind: EndpointZones, ZoneIDs: ids}
}

func Address(placeID string, p types.Point) RouteEndpoint {
	return RouteEndpoint{Kind: EndpointAddress, PlaceID: placeID, Point: &p}
}

type ZoneRoute struct {
	ID                types.ID       `json:"id"`
	Name              string         `json:"name"`
	VehicleCategoryID types.ID       `json:"vehicleCategoryId"`
	Direction         RouteDirection `json:"direction"`
	Origin            RouteEndpoint  `json:"origin"`
	Destination       RouteEndpoint  `json:"destination"`
	FixedPrice        float64        `json:"fixedPrice"`
	Active            bool           `json:"active"`
}

// ExcursionPackage prices a fixed origin→destination excursion. When
// MinimumDurationHours is set it is a temporal vector: the destination is
// "any trip of at least that long" and the origin must be in
// AllowedOriginZoneIDs (or OriginZoneID when the list is empty).
type ExcursionPackage struct {
	ID                   types.ID   `json:"id"`
	Name                 string     `json:"name"`
	VehicleCategoryID    types.ID   `json:"vehicleCategoryId,omitempty"`
	OriginZoneID         types.ID   `json:"originZoneId,omitempty"`
	DestinationZoneID    types.ID   `json:"destinationZoneId,omitempty"`
	MinimumDurationHours *float64   `json:"minimumDurationHours,omitempty"`
	AllowedOriginZoneIDs []types.ID `json:"allowedOriginZoneIds,omitempty"`
	FixedPrice           float64    `json:"fixedPrice"`
	Active               bool       `json:"active"`
}

func (p ExcursionPackage) IsTemporalVector() bool {
	return p.MinimumDurationHours != nil
}

type DispoPackage struct {
	ID                 types.ID `json:"id"`
	Name               string   `json:"name"`
	VehicleCategoryID  types.ID `json:"vehicleCategoryId"`
	IncludedHours      float64  `json:"includedHours"`
	IncludedKm         float64  `json:"includedKm"`
	BasePrice          float64  `json:"basePrice"`
	OverageRatePerHour float64  `json:"overageRatePerHour"`
	OverageRatePerKm   float64  `json:"overageRatePerKm"`
	Active             bool     `json:"active"`
}
