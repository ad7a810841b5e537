package contract

import (
	"testing"

	"chauffeur/internal/types"
)

func fptr(v float64) *float64 { return &v }

var (
	orly    = types.Point{Lat: 48.7262, Lng: 2.3652}
	paris   = types.Point{Lat: 48.8566, Lng: 2.3522}
	sedan   = types.ID("cat-sedan")
	minivan = types.ID("cat-van")
)

func partner(c *PartnerContract) *Contact {
	return &Contact{ID: "c1", Type: ContactPartner, Contract: c}
}

func transferQuery(pickupZones, dropoffZones []types.ID) Query {
	return Query{
		TripType:          types.TripTransfer,
		VehicleCategoryID: sedan,
		Pickup:            orly,
		Dropoff:           &paris,
		PickupZones:       pickupZones,
		DropoffZones:      dropoffZones,
		DistanceKm:        18,
		DurationHours:     0.5,
	}
}

func orlyParisRoute(direction RouteDirection) ZoneRoute {
	return ZoneRoute{
		ID:                "zr-orly-paris",
		Name:              "Orly - Paris",
		VehicleCategoryID: sedan,
		Direction:         direction,
		Origin:            Zones("z-orly"),
		Destination:       Zones("z-paris", "z-paris-west"),
		FixedPrice:        75,
		Active:            true,
	}
}

func TestMatchGrid_FallbackReasons(t *testing.T) {
	q := transferQuery([]types.ID{"z-orly"}, []types.ID{"z-paris"})
	empty := &PartnerContract{ID: "k1"}

	tests := []struct {
		name    string
		contact *Contact
		q       Query
		want    FallbackReason
	}{
		{"nil contact", nil, q, ReasonNotPartner},
		{"private contact", &Contact{ID: "p", Type: ContactPrivate}, q, ReasonNotPartner},
		{"partner without contract", &Contact{ID: "p", Type: ContactPartner}, q, ReasonNoContract},
		{"off grid trip", partner(empty), Query{TripType: types.TripOffGrid}, ReasonOffGridTrip},
		{"no zone route", partner(empty), q, ReasonNoZoneRouteMatch},
		{"no excursion", partner(empty), Query{TripType: types.TripExcursion}, ReasonNoExcursionMatch},
		{"no dispo", partner(empty), Query{TripType: types.TripDispo}, ReasonNoDispoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := MatchGrid(tt.contact, tt.q)
			if out.Match != nil {
				t.Fatalf("expected no match, got %+v", out.Match)
			}
			if out.FallbackReason != tt.want {
				t.Fatalf("FallbackReason = %s, want %s", out.FallbackReason, tt.want)
			}
		})
	}
}

func TestMatchGrid_ZoneRouteDirections(t *testing.T) {
	forwardQ := transferQuery([]types.ID{"z-orly"}, []types.ID{"z-paris"})
	reverseQ := transferQuery([]types.ID{"z-paris"}, []types.ID{"z-orly"})

	tests := []struct {
		name         string
		direction    RouteDirection
		q            Query
		wantMatch    bool
		wantReversed bool
	}{
		{"A_TO_B forward", AToB, forwardQ, true, false},
		{"A_TO_B reverse rejected", AToB, reverseQ, false, false},
		{"B_TO_A reverse", BToA, reverseQ, true, true},
		{"B_TO_A forward rejected", BToA, forwardQ, false, false},
		{"bidirectional forward", Bidirectional, forwardQ, true, false},
		{"bidirectional reverse", Bidirectional, reverseQ, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := partner(&PartnerContract{ZoneRoutes: []ZoneRouteAssignment{{Route: orlyParisRoute(tt.direction)}}})
			out := MatchGrid(c, tt.q)
			if (out.Match != nil) != tt.wantMatch {
				t.Fatalf("match = %v, want %v (reason %s)", out.Match != nil, tt.wantMatch, out.FallbackReason)
			}
			if out.Match != nil && out.Match.Reversed != tt.wantReversed {
				t.Fatalf("Reversed = %v, want %v", out.Match.Reversed, tt.wantReversed)
			}
		})
	}
}

func TestMatchGrid_ZoneRouteCategoryAndActive(t *testing.T) {
	q := transferQuery([]types.ID{"z-orly"}, []types.ID{"z-paris"})

	other := orlyParisRoute(Bidirectional)
	other.VehicleCategoryID = minivan
	inactive := orlyParisRoute(Bidirectional)
	inactive.Active = false

	c := partner(&PartnerContract{ZoneRoutes: []ZoneRouteAssignment{{Route: other}, {Route: inactive}}})
	if out := MatchGrid(c, q); out.Match != nil {
		t.Fatalf("expected category/inactive routes to be skipped, got %+v", out.Match)
	}
}

func TestMatchGrid_OverridePriceWins(t *testing.T) {
	q := transferQuery([]types.ID{"z-orly"}, []types.ID{"z-paris"})
	c := partner(&PartnerContract{ZoneRoutes: []ZoneRouteAssignment{
		{Route: orlyParisRoute(Bidirectional), OverridePrice: fptr(68.5)},
	}})

	out := MatchGrid(c, q)
	if out.Match == nil {
		t.Fatal("expected match")
	}
	if out.Match.Price != 68.5 || out.Match.FixedPrice != 75 {
		t.Fatalf("Price = %v FixedPrice = %v, want 68.5 / 75", out.Match.Price, out.Match.FixedPrice)
	}
}

func TestMatchGrid_FirstMatchWins(t *testing.T) {
	q := transferQuery([]types.ID{"z-orly"}, []types.ID{"z-paris"})
	first := orlyParisRoute(Bidirectional)
	second := orlyParisRoute(Bidirectional)
	second.ID, second.FixedPrice = "zr-second", 60

	c := partner(&PartnerContract{ZoneRoutes: []ZoneRouteAssignment{{Route: first}, {Route: second}}})
	if out := MatchGrid(c, q); out.Match == nil || out.Match.ID != "zr-orly-paris" {
		t.Fatalf("expected first assignment, got %+v", out.Match)
	}
}

func TestMatchGrid_AddressEndpoint(t *testing.T) {
	hotel := types.Point{Lat: 48.8655, Lng: 2.3211}
	route := ZoneRoute{
		ID: "zr-hotel", VehicleCategoryID: sedan, Direction: AToB, Active: true, FixedPrice: 90,
		Origin:      Zones("z-orly"),
		Destination: Address("place-hotel", hotel),
	}
	c := partner(&PartnerContract{ZoneRoutes: []ZoneRouteAssignment{{Route: route}}})

	t.Run("place id", func(t *testing.T) {
		q := transferQuery([]types.ID{"z-orly"}, nil)
		q.DropoffPlaceID = "place-hotel"
		if out := MatchGrid(c, q); out.Match == nil {
			t.Fatalf("expected place id match, got %s", out.FallbackReason)
		}
	})

	t.Run("within tolerance", func(t *testing.T) {
		q := transferQuery([]types.ID{"z-orly"}, nil)
		near := types.Point{Lat: 48.8660, Lng: 2.3215}
		q.Dropoff = &near
		if out := MatchGrid(c, q); out.Match == nil {
			t.Fatalf("expected tolerance match, got %s", out.FallbackReason)
		}
	})

	t.Run("too far", func(t *testing.T) {
		q := transferQuery([]types.ID{"z-orly"}, nil)
		if out := MatchGrid(c, q); out.Match != nil {
			t.Fatal("central Paris is not the hotel address")
		}
	})
}

func TestMatchGrid_ExcursionTripTypeGating(t *testing.T) {
	route := orlyParisRoute(Bidirectional)
	excursion := ExcursionPackage{
		ID: "ex-1", Name: "Orly to Paris tour", OriginZoneID: "z-orly", DestinationZoneID: "z-paris",
		FixedPrice: 240, Active: true,
	}
	c := partner(&PartnerContract{
		ZoneRoutes: []ZoneRouteAssignment{{Route: route}},
		Excursions: []ExcursionAssignment{{Package: excursion}},
	})

	q := transferQuery([]types.ID{"z-orly"}, []types.ID{"z-paris"})
	q.TripType = types.TripExcursion
	out := MatchGrid(c, q)
	if out.Match == nil || out.Match.Type != GridExcursion {
		t.Fatalf("excursion trip must resolve via excursion package, got %+v", out.Match)
	}

	q.TripType = types.TripTransfer
	out = MatchGrid(c, q)
	if out.Match == nil || out.Match.Type != GridZoneRoute {
		t.Fatalf("transfer trip must resolve via zone route, got %+v", out.Match)
	}
}

func TestMatchGrid_TemporalVectorExcursion(t *testing.T) {
	pkg := ExcursionPackage{
		ID: "ex-tv", Name: "Half day from Paris", MinimumDurationHours: fptr(4),
		AllowedOriginZoneIDs: []types.ID{"z-paris", "z-paris-west"},
		VehicleCategoryID:    sedan, FixedPrice: 380, Active: true,
	}
	c := partner(&PartnerContract{Excursions: []ExcursionAssignment{{Package: pkg}}})

	q := Query{TripType: types.TripExcursion, VehicleCategoryID: sedan, Pickup: paris, PickupZones: []types.ID{"z-paris"}}

	q.DurationHours = 3.5
	if out := MatchGrid(c, q); out.Match != nil {
		t.Fatal("shorter than minimum duration must not match")
	}
	q.DurationHours = 4
	if out := MatchGrid(c, q); out.Match == nil || out.Match.Price != 380 {
		t.Fatalf("expected temporal vector match, got %+v", out.Match)
	}
	q.PickupZones = []types.ID{"z-orly"}
	if out := MatchGrid(c, q); out.Match != nil {
		t.Fatal("origin outside allow-list must not match")
	}
	q.PickupZones = []types.ID{"z-paris"}
	q.VehicleCategoryID = minivan
	if out := MatchGrid(c, q); out.Match != nil {
		t.Fatal("category mismatch must not match")
	}
}

func TestMatchGrid_DispoOverage(t *testing.T) {
	pkg := DispoPackage{
		ID: "dp-4h", Name: "4h dispo", VehicleCategoryID: sedan,
		IncludedHours: 4, IncludedKm: 100, BasePrice: 260,
		OverageRatePerHour: 55, OverageRatePerKm: 1.2, Active: true,
	}
	c := partner(&PartnerContract{Dispos: []DispoAssignment{{Package: pkg}}})

	q := Query{TripType: types.TripDispo, VehicleCategoryID: sedan, Pickup: paris, DurationHours: 3, DistanceKm: 80}
	out := MatchGrid(c, q)
	if out.Match == nil || out.Match.Price != 260 || out.Match.Overage != nil {
		t.Fatalf("within inclusions: %+v", out.Match)
	}

	q.DurationHours, q.DistanceKm = 5.5, 130
	out = MatchGrid(c, q)
	if out.Match == nil {
		t.Fatal("expected dispo match")
	}
	// 260 + 1.5h*55 + 30km*1.2 = 260 + 82.5 + 36
	if out.Match.Price != 378.5 {
		t.Fatalf("Price = %v, want 378.5", out.Match.Price)
	}
	if o := out.Match.Overage; o == nil || o.ExtraHours != 1.5 || o.ExtraKm != 30 {
		t.Fatalf("Overage = %+v", o)
	}
}
