package vehicle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"chauffeur/internal/maps"
	"chauffeur/internal/modules/cost"
	"chauffeur/internal/types"
)

var (
	pickup  = types.Point{Lat: 48.8566, Lng: 2.3522}
	dropoff = types.Point{Lat: 49.0097, Lng: 2.5479}
	params  = cost.Parameters{FuelConsumptionL100km: 8, FuelPricePerLitre: 1.8, TollCostPerKm: 0.1, WearCostPerKm: 0.08, DriverHourlyCost: 30}
)

type fakeRouter struct {
	mu    sync.Mutex
	calls int
	fail  map[types.Point]bool
}

func (f *fakeRouter) Route(_ context.Context, origin, destination types.Point) (maps.Leg, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail[origin] || f.fail[destination] {
		return maps.Leg{}, errors.New("quota exceeded")
	}
	leg := maps.EstimateLeg(origin, destination)
	leg.Source = maps.SourceGoogleDirections
	return leg, nil
}

func sedanAt(id string, p types.Point) Vehicle {
	return Vehicle{
		ID: types.ID(id), Registration: "AB-" + id, CategoryID: "sedan",
		Base:              Base{ID: types.ID("base-" + id), Name: "Base " + id, Location: p},
		PassengerCapacity: 4, LuggageCapacity: 3, Active: true,
	}
}

func request() Request {
	return Request{
		Pickup:     pickup,
		Dropoff:    &dropoff,
		Passengers: 2,
		Luggage:    2,
		CategoryID: "sedan",
		Service:    maps.Leg{DistanceKm: 30, DurationMinutes: 40, Source: maps.SourcePrecomputed},
		ParamsFor:  func(Vehicle) cost.Parameters { return params },
	}
}

func TestSelect_NoVehicles(t *testing.T) {
	sel := NewSelector(nil, SelectorConfig{}).Select(context.Background(), nil, request())
	if !sel.FallbackUsed || sel.FallbackReason != ReasonNoVehicles || sel.Selected != nil {
		t.Fatalf("unexpected selection: %+v", sel)
	}
}

func TestSelect_NoneMatchCapacity(t *testing.T) {
	small := sedanAt("v1", pickup)
	small.PassengerCapacity = 1
	otherCategory := sedanAt("v2", pickup)
	otherCategory.CategoryID = "van"

	sel := NewSelector(nil, SelectorConfig{}).Select(context.Background(), []Vehicle{small, otherCategory}, request())
	if !sel.FallbackUsed {
		t.Fatal("expected fallback")
	}
	if sel.CandidatesAfterCapacityFilter != 0 || sel.FallbackReason != ReasonNoVehiclesMatchCapacity {
		t.Fatalf("unexpected selection: %+v", sel)
	}
	if sel.TotalVehicles != 2 {
		t.Fatalf("TotalVehicles = %d, want 2", sel.TotalVehicles)
	}
}

func TestSelect_LuggageCapacity(t *testing.T) {
	v := sedanAt("v1", pickup)
	v.LuggageCapacity = 1
	sel := NewSelector(nil, SelectorConfig{}).Select(context.Background(), []Vehicle{v}, request())
	if sel.FallbackReason != ReasonNoVehiclesMatchCapacity {
		t.Fatalf("two bags in a one-bag car: %+v", sel)
	}
}

func TestSelect_OutOfRange(t *testing.T) {
	lyon := types.Point{Lat: 45.7640, Lng: 4.8357}
	sel := NewSelector(nil, SelectorConfig{MaxApproachKm: 100}).Select(context.Background(), []Vehicle{sedanAt("v1", lyon)}, request())
	if sel.FallbackReason != ReasonNoVehiclesWithinRange || sel.CandidatesAfterCapacityFilter != 1 {
		t.Fatalf("unexpected selection: %+v", sel)
	}
}

func TestSelect_MinimalCostPrefersCloserBase(t *testing.T) {
	near := sedanAt("near", types.Point{Lat: 48.86, Lng: 2.36})
	far := sedanAt("far", types.Point{Lat: 48.60, Lng: 2.20})

	router := &fakeRouter{}
	sel := NewSelector(router, SelectorConfig{}).Select(context.Background(), []Vehicle{far, near}, request())
	if sel.Selected == nil || sel.Selected.VehicleID != "near" {
		t.Fatalf("expected near vehicle, got %+v", sel.Selected)
	}
	if sel.CandidatesEvaluated != 2 || sel.FallbackUsed {
		t.Fatalf("unexpected selection: %+v", sel)
	}
	// approach + return per candidate
	if router.calls != 4 {
		t.Fatalf("router calls = %d, want 4", router.calls)
	}
	c := sel.Selected.Cost
	if c.Total.Total != cost.Sum(c.Approach, c.Service, c.Return).Total {
		t.Fatalf("total does not add up: %+v", c)
	}
}

func TestSelect_TieBreakIsDeterministic(t *testing.T) {
	a := sedanAt("b-vehicle", pickup)
	b := sedanAt("a-vehicle", pickup)

	for _, vehicles := range [][]Vehicle{{a, b}, {b, a}} {
		sel := NewSelector(nil, SelectorConfig{}).Select(context.Background(), vehicles, request())
		if sel.Selected.VehicleID != "a-vehicle" {
			t.Fatalf("tie must resolve by vehicle id, got %s", sel.Selected.VehicleID)
		}
	}
}

func TestSelect_RouterFailureDegradesToEstimate(t *testing.T) {
	base := types.Point{Lat: 48.80, Lng: 2.30}
	router := &fakeRouter{fail: map[types.Point]bool{base: true}}

	sel := NewSelector(router, SelectorConfig{}).Select(context.Background(), []Vehicle{sedanAt("v1", base)}, request())
	if sel.Selected == nil {
		t.Fatal("selection must survive routing failures")
	}
	if sel.Selected.Approach.Source != maps.SourceHaversine || sel.Selected.Return.Source != maps.SourceHaversine {
		t.Fatalf("expected haversine legs, got %s / %s", sel.Selected.Approach.Source, sel.Selected.Return.Source)
	}
}

func TestSelect_CapsCandidatesClosestFirst(t *testing.T) {
	var vehicles []Vehicle
	for i, lat := range []float64{48.95, 48.90, 48.87, 48.86, 48.80, 48.70} {
		vehicles = append(vehicles, sedanAt(string(rune('a'+i)), types.Point{Lat: lat, Lng: 2.3522}))
	}
	sel := NewSelector(nil, SelectorConfig{MaxCandidates: 3}).Select(context.Background(), vehicles, request())
	if sel.CandidatesAfterDistanceFilter != 6 || sel.CandidatesEvaluated != 3 {
		t.Fatalf("unexpected counts: %+v", sel)
	}
	for _, c := range sel.Candidates {
		if c.VehicleID == "a" || c.VehicleID == "f" {
			t.Fatalf("farthest vehicles must be dropped, found %s", c.VehicleID)
		}
	}
}

func TestVehicle_Fits(t *testing.T) {
	v := Vehicle{PassengerCapacity: 4, LuggageCapacity: 4}
	cases := []struct {
		name                string
		passengers, luggage int
		want                bool
	}{
		{"within both", 2, 2, true},
		{"exactly full", 4, 4, true},
		{"too many passengers", 5, 0, false},
		{"too many bags", 1, 5, false},
		{"over combined", 5, 4, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := v.Fits(tc.passengers, tc.luggage); got != tc.want {
				t.Fatalf("Fits(%d, %d) = %v, want %v", tc.passengers, tc.luggage, got, tc.want)
			}
		})
	}
}
