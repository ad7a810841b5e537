package pricing

import (
	"context"
	"math"
	"slices"

	"chauffeur/internal/modules/cost"
	"chauffeur/internal/types"
)

const (
	DetectorDenseZone      = "DENSE_ZONE"
	DetectorRoundTripBlock = "ROUND_TRIP_BLOCKED"

	MetricCommercialSpeed = "COMMERCIAL_SPEED_KMH"
	MetricBlockedMinutes  = "BLOCKED_MINUTES"
	MetricReturnKm        = "RETURN_KM"
)

// DispoEquivalent prices hours as an hourly hire would: billed hours are
// floored at the organization minimum, then category multiplier and target
// margin apply.
func DispoEquivalent(hours, ratePerHour, categoryMultiplier float64, s Settings) (billed, price float64) {
	billed = types.RoundTo(math.Max(hours, s.MinimumDispoHours), 2)
	price = types.Round2(billed * ratePerHour * categoryMultiplier * (1 + s.TargetMarginPercent/100))
	return billed, price
}

// autoSwitchStage runs both detectors on dynamic transfers. Suggestions are
// always recorded; the price only changes when the organization enabled the
// detector and the alternative earns more. If both qualify the higher
// alternative wins.
func (e *Engine) autoSwitchStage(_ context.Context, q *quote, r Result) Result {
	if r.Mode != ModeDynamic || q.req.TripType != types.TripTransfer {
		return r
	}

	var suggestions []Suggestion
	if s, ok := q.denseZone(r); ok {
		suggestions = append(suggestions, s)
	}
	if s, ok := q.roundTripBlocked(r); ok {
		suggestions = append(suggestions, s)
	}
	if len(suggestions) == 0 {
		return r
	}

	best := -1
	for i, s := range suggestions {
		if !s.Applied {
			continue
		}
		if best < 0 || s.AlternativePrice > suggestions[best].AlternativePrice {
			best = i
		}
	}
	// Only one alternative can replace the price.
	for i := range suggestions {
		suggestions[i].Applied = i == best
	}
	r.TripAnalysis.AutoSwitch = suggestions
	if best < 0 {
		return r
	}

	s := suggestions[best]
	before := r
	r = r.withPrice(s.AlternativePrice, q.settings.Thresholds)
	return r.appendRule(AutoSwitchedRule{
		Detector: s.Detector, TriggerMetric: s.TriggerMetric, TriggerValue: s.TriggerValue,
		Threshold: s.Threshold, BilledHours: s.BilledHours,
		PriceBefore: before.Price, PriceAfter: r.Price,
		MarginBefore: before.Margin, MarginAfter: r.Margin,
	})
}

func (q *quote) denseZone(r Result) (Suggestion, bool) {
	s := q.settings
	if q.req.RoundTrip || q.pickupZone == nil || q.dropoffZone == nil || q.leg.DurationMinutes <= 0 {
		return Suggestion{}, false
	}
	if !slices.Contains(s.DenseZoneCodes, q.pickupZone.Code) || !slices.Contains(s.DenseZoneCodes, q.dropoffZone.Code) {
		return Suggestion{}, false
	}
	speed := types.RoundTo(q.leg.DistanceKm/(q.leg.DurationMinutes/60), 2)
	if speed >= s.DenseSpeedThreshold {
		return Suggestion{}, false
	}
	return q.suggest(r, DetectorDenseZone, MetricCommercialSpeed, speed, s.DenseSpeedThreshold,
		q.leg.DurationMinutes/60, s.AutoSwitchDenseZone), true
}

// roundTripBlocked looks at the waiting time on site plus the drive back to
// base. The return leg comes from the selected vehicle when there is one,
// otherwise the service leg stands in for it.
func (q *quote) roundTripBlocked(r Result) (Suggestion, bool) {
	s := q.settings
	if !q.req.RoundTrip {
		return Suggestion{}, false
	}
	returnKm, returnMin := q.leg.DistanceKm, q.leg.DurationMinutes
	if sel := q.selection.Selected; sel != nil {
		returnKm, returnMin = sel.Return.DistanceKm, sel.Return.DurationMinutes
	}
	window := (2*q.leg.DurationMinutes + q.req.WaitingMinutes) / 60

	blocked := types.RoundTo(q.req.WaitingMinutes+returnMin, 2)
	switch {
	case blocked > s.RoundTripIdleMinutes:
		return q.suggest(r, DetectorRoundTripBlock, MetricBlockedMinutes, blocked, s.RoundTripIdleMinutes,
			window, s.AutoSwitchRoundTrip), true
	case returnKm > s.RoundTripMaxReturnKm:
		return q.suggest(r, DetectorRoundTripBlock, MetricReturnKm, types.RoundTo(returnKm, 2), s.RoundTripMaxReturnKm,
			window, s.AutoSwitchRoundTrip), true
	}
	return Suggestion{}, false
}

func (q *quote) suggest(r Result, detector, metric string, value, threshold, hours float64, enabled bool) Suggestion {
	_, perHour := ResolveRates(q.category, q.settings)
	billed, alt := DispoEquivalent(hours, perHour.Value, q.category.Multiplier(), q.settings)

	current := cost.ComputeMargin(r.Price, r.InternalCost, q.settings.Thresholds)
	alternative := cost.ComputeMargin(alt, r.InternalCost, q.settings.Thresholds)
	better := alternative.Margin > current.Margin
	return Suggestion{
		Detector:          detector,
		TriggerMetric:     metric,
		TriggerValue:      value,
		Threshold:         threshold,
		BilledHours:       billed,
		CurrentPrice:      r.Price,
		AlternativePrice:  alt,
		CurrentMargin:     current.Margin,
		AlternativeMargin: alternative.Margin,
		MoreProfitable:    better,
		Applied:           enabled && better,
	}
}
