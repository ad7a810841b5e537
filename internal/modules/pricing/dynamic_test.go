package pricing

import (
	"testing"
	"time"

	"chauffeur/internal/modules/cost"
	"chauffeur/internal/modules/vehicle"
	"chauffeur/internal/modules/zone"
	"chauffeur/internal/types"
)

func f(v float64) *float64 { return &v }

func baseSettings() Settings {
	return Settings{
		BaseRatePerKm:       2.5,
		BaseRatePerHour:     45,
		TargetMarginPercent: 20,
		Timezone:            "UTC",
	}.WithDefaults()
}

func paris0() *zone.Zone {
	return &zone.Zone{ID: "z-paris0", Code: "PARIS_0", Kind: zone.KindRadius, Active: true,
		Center: &types.Point{Lat: 48.8566, Lng: 2.3522}, RadiusKm: 10, PriceMultiplier: 1.1}
}

func dynInput() DynamicInput {
	return DynamicInput{
		TripType:        types.TripTransfer,
		DistanceKm:      10,
		DurationMinutes: 20,
		// Tuesday noon
		PickupAt:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		PickupZone:  paris0(),
		DropoffZone: paris0(),
		Category:    vehicle.Category{ID: "sedan", PriceMultiplier: 1.0},
		Settings:    baseSettings(),
	}
}

func TestCalculateDynamic_Paris0Scenario(t *testing.T) {
	got := CalculateDynamic(dynInput())
	if got.Price != 33.00 {
		t.Fatalf("Price = %v, want 33.00", got.Price)
	}
	wantKinds := []RuleKind{KindDynamicBase, KindZoneMultiplier, KindTargetMargin}
	if len(got.Rules) != len(wantKinds) {
		t.Fatalf("rules = %+v", got.Rules)
	}
	for i, k := range wantKinds {
		if got.Rules[i].Kind() != k {
			t.Errorf("rule %d = %s, want %s", i, got.Rules[i].Kind(), k)
		}
	}
	base := got.Rules[0].(DynamicBaseRule)
	if base.Method != MethodDistance || base.BasePrice != 25 || base.DurationPrice != 15 {
		t.Fatalf("base = %+v", base)
	}
	if base.RatePerKmSource != cost.SourceOrganization {
		t.Fatalf("rate source = %s", base.RatePerKmSource)
	}
	zr := got.Rules[1].(ZoneMultiplierRule)
	if zr.ZoneCode != "PARIS_0" || zr.PriceBefore != 25 || zr.PriceAfter != 27.5 {
		t.Fatalf("zone rule = %+v", zr)
	}
}

func TestCalculateDynamic_BaseIsMaxOfDistanceAndDuration(t *testing.T) {
	cases := []struct {
		km, min    float64
		wantBase   float64
		wantMethod string
	}{
		{10, 20, 25, MethodDistance},
		{10, 60, 45, MethodDuration},
		{20, 60, 50, MethodDistance},
		{0, 0, 0, MethodDistance},
	}
	for _, tc := range cases {
		in := dynInput()
		in.DistanceKm, in.DurationMinutes = tc.km, tc.min
		in.PickupZone, in.DropoffZone = nil, nil
		in.Settings.TargetMarginPercent = 0
		got := CalculateDynamic(in)
		base := got.Rules[0].(DynamicBaseRule)
		if base.BasePrice != tc.wantBase || base.Method != tc.wantMethod || got.Price != tc.wantBase {
			t.Errorf("%v km %v min: base=%+v price=%v", tc.km, tc.min, base, got.Price)
		}
	}
}

func TestCalculateDynamic_CategoryRatesWin(t *testing.T) {
	in := dynInput()
	in.Category.RatePerKm = f(3)
	in.Category.PriceMultiplier = 1.5
	got := CalculateDynamic(in)

	base := got.Rules[0].(DynamicBaseRule)
	if base.RatePerKm != 3 || base.RatePerKmSource != cost.SourceCategory || base.RatePerHourSource != cost.SourceOrganization {
		t.Fatalf("base = %+v", base)
	}
	// 30 * 1.1 = 33, * 1.5 = 49.5, * 1.2 = 59.4
	if got.Price != 59.4 {
		t.Fatalf("Price = %v, want 59.4", got.Price)
	}
	if !got.Rules.Has(KindVehicleCategoryMultiplier) {
		t.Fatal("category multiplier rule missing")
	}
}

func TestCalculateDynamic_RoundTripDoublesBeforeMarkup(t *testing.T) {
	in := dynInput()
	in.RoundTrip = true
	got := CalculateDynamic(in)
	// 25 * 2 = 50, * 1.1 = 55, * 1.2 = 66
	if got.Price != 66 {
		t.Fatalf("Price = %v, want 66", got.Price)
	}
	if got.Rules[1].Kind() != KindRoundTrip {
		t.Fatalf("round trip must come right after the base: %v", got.Rules[1].Kind())
	}
}

func TestCalculateDynamic_DispoUsesHoursOnly(t *testing.T) {
	in := dynInput()
	in.TripType = types.TripDispo
	in.DurationHours = 4
	in.DistanceKm = 300
	in.PickupZone, in.DropoffZone = nil, nil
	got := CalculateDynamic(in)
	base := got.Rules[0].(DynamicBaseRule)
	if base.Method != MethodDispoHours || base.BasePrice != 180 || base.DistancePrice != 0 {
		t.Fatalf("base = %+v", base)
	}
	if got.Price != 216 {
		t.Fatalf("Price = %v, want 216", got.Price)
	}
}

func TestCalculateDynamic_AdvancedRates(t *testing.T) {
	night := AdvancedRate{ID: "night", Name: "Night", Type: RateNight, Adjustment: AdjustPercentage, Value: 20,
		StartTime: "22:00", EndTime: "06:00", Priority: 10, Active: true}
	weekend := AdvancedRate{ID: "weekend", Name: "Weekend", Type: RateWeekend, Adjustment: AdjustFixedAmount, Value: 5,
		DaysOfWeek: []int{int(time.Saturday), int(time.Sunday)}, Priority: 5, Active: true}

	cases := []struct {
		name      string
		at        time.Time
		rates     []AdvancedRate
		wantPrice float64
		wantRules []types.ID
	}{
		{"weekday noon", time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), []AdvancedRate{night, weekend}, 33, nil},
		// 27.5 * 1.2 = 33, * 1.2 = 39.6
		{"after midnight", time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC), []AdvancedRate{night}, 39.6, []types.ID{"night"}},
		{"before midnight", time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC), []AdvancedRate{night}, 39.6, []types.ID{"night"}},
		{"window end is exclusive", time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC), []AdvancedRate{night}, 33, nil},
		// Saturday 23:00: night first (priority 10) 33 then +5 = 38, * 1.2 = 45.6
		{"night then weekend", time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC), []AdvancedRate{weekend, night}, 45.6,
			[]types.ID{"night", "weekend"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := dynInput()
			in.PickupAt = tc.at
			in.AdvancedRates = tc.rates
			got := CalculateDynamic(in)
			if got.Price != tc.wantPrice {
				t.Fatalf("Price = %v, want %v", got.Price, tc.wantPrice)
			}
			applied := got.Rules.Of(KindAdvancedRate)
			if len(applied) != len(tc.wantRules) {
				t.Fatalf("applied = %+v", applied)
			}
			for i, id := range tc.wantRules {
				if applied[i].(AdvancedRateRule).RateID != id {
					t.Errorf("rate %d = %s, want %s", i, applied[i].(AdvancedRateRule).RateID, id)
				}
			}
		})
	}
}

func TestCalculateDynamic_AdvancedRateScopes(t *testing.T) {
	in := dynInput()
	in.PickupAt = time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	rate := AdvancedRate{ID: "r", Adjustment: AdjustPercentage, Value: 10, Active: true}

	outOfZone := rate
	outOfZone.ZoneIDs = []types.ID{"z-other"}
	tooShort := rate
	tooShort.MinDistanceKm = f(50)
	tooLong := rate
	tooLong.MaxDistanceKm = f(5)
	inactive := rate
	inactive.Active = false

	for name, ar := range map[string]AdvancedRate{"zone": outOfZone, "min": tooShort, "max": tooLong, "inactive": inactive} {
		in.AdvancedRates = []AdvancedRate{ar}
		if got := CalculateDynamic(in); got.Price != 33 || got.Rules.Has(KindAdvancedRate) {
			t.Errorf("%s: rate must not apply, price %v", name, got.Price)
		}
	}

	inZone := rate
	inZone.ZoneIDs = []types.ID{"z-paris0"}
	in.AdvancedRates = []AdvancedRate{inZone}
	// 27.5 * 1.1 = 30.25, * 1.2 = 36.3
	if got := CalculateDynamic(in); got.Price != 36.3 {
		t.Fatalf("zone scoped rate: Price = %v, want 36.3", got.Price)
	}
}

func TestCalculateDynamic_SeasonalHighestPriority(t *testing.T) {
	in := dynInput()
	in.Seasonal = []SeasonalMultiplier{
		{ID: "summer", StartDate: "2026-03-01", EndDate: "2026-03-31", Multiplier: 1.2, Priority: 1, Active: true},
		{ID: "fair", StartDate: "2026-03-10", EndDate: "2026-03-10", Multiplier: 1.5, Priority: 5, Active: true},
		{ID: "off", StartDate: "2026-03-01", EndDate: "2026-03-31", Multiplier: 3, Priority: 99, Active: false},
		{ID: "later", StartDate: "2026-04-01", EndDate: "2026-04-30", Multiplier: 2, Priority: 50, Active: true},
	}
	got := CalculateDynamic(in)
	sr := got.Rules.Of(KindSeasonalMultiplier)
	if len(sr) != 1 || sr[0].(SeasonalMultiplierRule).SeasonalID != "fair" {
		t.Fatalf("seasonal = %+v", sr)
	}
	// 27.5 * 1.5 = 41.25, * 1.2 = 49.5
	if got.Price != 49.5 {
		t.Fatalf("Price = %v, want 49.5", got.Price)
	}
}

func TestZoneMultiplierStrategy(t *testing.T) {
	low := &zone.Zone{ID: "low", Code: "LOW", PriceMultiplier: 1.1}
	high := &zone.Zone{ID: "high", Code: "HIGH", PriceMultiplier: 1.4}
	cases := []struct {
		strategy        ZoneMultiplierStrategy
		pickup, dropoff *zone.Zone
		wantZone        types.ID
		wantMultiplier  float64
	}{
		{StrategyMax, low, high, "high", 1.4},
		{StrategyMax, high, low, "high", 1.4},
		{StrategyMax, nil, low, "low", 1.1},
		{StrategyPickup, low, high, "low", 1.1},
		{StrategyDropoff, low, high, "high", 1.4},
		{StrategyDropoff, low, nil, "", 1},
	}
	for _, tc := range cases {
		z, m := zoneMultiplier(tc.pickup, tc.dropoff, tc.strategy)
		var id types.ID
		if z != nil {
			id = z.ID
		}
		if id != tc.wantZone || m != tc.wantMultiplier {
			t.Errorf("%s: got %s x%v, want %s x%v", tc.strategy, id, m, tc.wantZone, tc.wantMultiplier)
		}
	}
}

func TestCalculateDynamic_WeightedZoneMultiplier(t *testing.T) {
	in := dynInput()
	in.WeightedZoneMultiplier = 1.2
	got := CalculateDynamic(in)
	// 25 * 1.2 = 30, * 1.2 margin = 36
	if got.Price != 36 {
		t.Fatalf("Price = %v, want 36", got.Price)
	}
	zr := got.Rules.Of(KindZoneMultiplier)
	if len(zr) != 1 {
		t.Fatalf("rules = %+v", got.Rules)
	}
	rule := zr[0].(ZoneMultiplierRule)
	if rule.Strategy != ZoneStrategyWeighted || rule.Multiplier != 1.2 || rule.ZoneCode != "PARIS_0" {
		t.Fatalf("zone rule = %+v", rule)
	}

	in.PickupZone, in.DropoffZone = nil, nil
	if got := CalculateDynamic(in); got.Price != 36 {
		t.Fatalf("unzoned endpoints: Price = %v, want 36", got.Price)
	}
}
