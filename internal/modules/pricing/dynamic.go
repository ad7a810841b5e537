package pricing

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"chauffeur/internal/modules/cost"
	"chauffeur/internal/modules/vehicle"
	"chauffeur/internal/modules/zone"
	"chauffeur/internal/types"
)

const (
	MethodDistance   = "DISTANCE"
	MethodDuration   = "DURATION"
	MethodDispoHours = "DISPO_HOURS"

	// ZoneStrategyWeighted marks a zone multiplier taken from route segmentation.
	ZoneStrategyWeighted = "WEIGHTED"
)

// DynamicInput carries everything the formula needs for one call.
type DynamicInput struct {
	TripType        types.TripType
	DistanceKm      float64
	DurationMinutes float64
	DurationHours   float64
	RoundTrip       bool
	PickupAt        time.Time
	PickupZone      *zone.Zone
	DropoffZone     *zone.Zone
	Category        vehicle.Category
	AdvancedRates   []AdvancedRate
	Seasonal        []SeasonalMultiplier
	Settings        Settings

	// WeightedZoneMultiplier, when positive, replaces the endpoint zone multiplier.
	WeightedZoneMultiplier float64
}

type DynamicPrice struct {
	Price float64
	Rules Rules
}

// ResolveRates returns rate/km and rate/hour with their source: the vehicle
// category rate when set, else the organization base rate.
func ResolveRates(cat vehicle.Category, s Settings) (perKm, perHour cost.Resolved) {
	perKm = cost.Resolve(
		cost.Resolved{Value: s.BaseRatePerKm, Source: cost.SourceOrganization},
		cost.Opt(cost.SourceCategory, cat.RatePerKm),
	)
	perHour = cost.Resolve(
		cost.Resolved{Value: s.BaseRatePerHour, Source: cost.SourceOrganization},
		cost.Opt(cost.SourceCategory, cat.RatePerHour),
	)
	return perKm, perHour
}

// CalculateDynamic applies the formula and the multiplier chain in fixed
// order: base, round trip, zone, vehicle category, advanced rates, seasonal,
// target margin. Each step that changes the price records a rule.
func CalculateDynamic(in DynamicInput) DynamicPrice {
	perKm, perHour := ResolveRates(in.Category, in.Settings)

	base := DynamicBaseRule{
		DistanceKm:        in.DistanceKm,
		DurationMinutes:   in.DurationMinutes,
		RatePerKm:         perKm.Value,
		RatePerKmSource:   perKm.Source,
		RatePerHour:       perHour.Value,
		RatePerHourSource: perHour.Source,
	}
	if in.TripType == types.TripDispo {
		base.Method = MethodDispoHours
		base.DurationPrice = types.Round2(in.DurationHours * perHour.Value)
		base.BasePrice = base.DurationPrice
	} else {
		base.DistancePrice = types.Round2(in.DistanceKm * perKm.Value)
		base.DurationPrice = types.Round2(in.DurationMinutes / 60 * perHour.Value)
		base.Method = MethodDistance
		if base.DurationPrice > base.DistancePrice {
			base.Method = MethodDuration
		}
		base.BasePrice = math.Max(base.DistancePrice, base.DurationPrice)
	}

	price := base.BasePrice
	rules := Rules{base}

	if in.RoundTrip && in.TripType != types.TripDispo {
		after := types.Round2(price * 2)
		rules = append(rules, RoundTripRule{PriceBefore: price, PriceAfter: after})
		price = after
	}

	z, m := zoneMultiplier(in.PickupZone, in.DropoffZone, in.Settings.ZoneStrategy)
	strategy := string(in.Settings.ZoneStrategy)
	if in.WeightedZoneMultiplier > 0 {
		m, strategy = in.WeightedZoneMultiplier, ZoneStrategyWeighted
	}
	if (z != nil || in.WeightedZoneMultiplier > 0) && m != 1 {
		after := types.Round2(price * m)
		rule := ZoneMultiplierRule{Strategy: strategy, Multiplier: m, PriceBefore: price, PriceAfter: after}
		if z != nil {
			rule.ZoneID, rule.ZoneCode = z.ID, z.Code
		}
		rules = append(rules, rule)
		price = after
	}

	if m := in.Category.Multiplier(); m != 1 {
		after := types.Round2(price * m)
		rules = append(rules, VehicleCategoryMultiplierRule{
			CategoryID: in.Category.ID, Multiplier: m, PriceBefore: price, PriceAfter: after,
		})
		price = after
	}

	loc := in.Settings.location()
	for _, ar := range applicableRates(in.AdvancedRates, in, loc) {
		var after float64
		switch ar.Adjustment {
		case AdjustFixedAmount:
			after = types.Round2(price + ar.Value)
		default:
			after = types.Round2(price * (1 + ar.Value/100))
		}
		if after == price {
			continue
		}
		rules = append(rules, AdvancedRateRule{
			RateID: ar.ID, Name: ar.Name, RateType: string(ar.Type), Adjustment: string(ar.Adjustment),
			Value: ar.Value, PriceBefore: price, PriceAfter: after,
		})
		price = after
	}

	if sm, ok := activeSeasonal(in.Seasonal, in.PickupAt.In(loc)); ok && sm.Multiplier > 0 && sm.Multiplier != 1 {
		after := types.Round2(price * sm.Multiplier)
		rules = append(rules, SeasonalMultiplierRule{
			SeasonalID: sm.ID, Name: sm.Name, Multiplier: sm.Multiplier, PriceBefore: price, PriceAfter: after,
		})
		price = after
	}

	if pct := in.Settings.TargetMarginPercent; pct != 0 {
		after := types.Round2(price * (1 + pct/100))
		rules = append(rules, TargetMarginRule{Percent: pct, PriceBefore: price, PriceAfter: after})
		price = after
	}

	return DynamicPrice{Price: price, Rules: rules}
}

// zoneMultiplier picks the zone whose multiplier drives the price. MAX takes
// the higher of pickup and dropoff; a missing side is ignored.
func zoneMultiplier(pickup, dropoff *zone.Zone, strategy ZoneMultiplierStrategy) (*zone.Zone, float64) {
	switch strategy {
	case StrategyPickup:
		if pickup != nil {
			return pickup, pickup.Multiplier()
		}
		return nil, 1
	case StrategyDropoff:
		if dropoff != nil {
			return dropoff, dropoff.Multiplier()
		}
		return nil, 1
	}
	switch {
	case pickup == nil && dropoff == nil:
		return nil, 1
	case pickup == nil:
		return dropoff, dropoff.Multiplier()
	case dropoff == nil:
		return pickup, pickup.Multiplier()
	case dropoff.Multiplier() > pickup.Multiplier():
		return dropoff, dropoff.Multiplier()
	default:
		return pickup, pickup.Multiplier()
	}
}

// applicableRates filters active, in-scope advanced rates and orders them by
// priority, highest first (id breaks ties).
func applicableRates(rates []AdvancedRate, in DynamicInput, loc *time.Location) []AdvancedRate {
	local := in.PickupAt.In(loc)
	var out []AdvancedRate
	for _, ar := range rates {
		if ar.Active && ar.appliesTo(local, in) {
			out = append(out, ar)
		}
	}
	slices.SortStableFunc(out, func(a, b AdvancedRate) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

func (ar AdvancedRate) appliesTo(local time.Time, in DynamicInput) bool {
	if ar.StartTime != "" && ar.EndTime != "" {
		start, okS := parseClock(ar.StartTime)
		end, okE := parseClock(ar.EndTime)
		if !okS || !okE || !inWindow(local.Hour()*60+local.Minute(), start, end) {
			return false
		}
	}
	if len(ar.DaysOfWeek) > 0 && !slices.Contains(ar.DaysOfWeek, int(local.Weekday())) {
		return false
	}
	if ar.MinDistanceKm != nil && in.DistanceKm < *ar.MinDistanceKm {
		return false
	}
	if ar.MaxDistanceKm != nil && in.DistanceKm > *ar.MaxDistanceKm {
		return false
	}
	if len(ar.ZoneIDs) > 0 {
		inScope := (in.PickupZone != nil && slices.Contains(ar.ZoneIDs, in.PickupZone.ID)) ||
			(in.DropoffZone != nil && slices.Contains(ar.ZoneIDs, in.DropoffZone.ID))
		if !inScope {
			return false
		}
	}
	return true
}

// inWindow: [start, end) in minutes of day; end <= start wraps past midnight.
func inWindow(minute, start, end int) bool {
	if start == end {
		return true
	}
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

func parseClock(v string) (int, bool) {
	h, m, ok := strings.Cut(v, ":")
	if !ok {
		return 0, false
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

// activeSeasonal returns the highest-priority active multiplier covering the
// local pickup date.
func activeSeasonal(list []SeasonalMultiplier, local time.Time) (SeasonalMultiplier, bool) {
	day := local.Format(time.DateOnly)
	var best SeasonalMultiplier
	found := false
	for _, sm := range list {
		if !sm.Active || day < sm.StartDate || day > sm.EndDate {
			continue
		}
		if !found || sm.Priority > best.Priority || (sm.Priority == best.Priority && sm.ID < best.ID) {
			best, found = sm, true
		}
	}
	return best, found
}
