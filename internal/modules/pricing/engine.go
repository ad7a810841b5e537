// README: Pricing engine: runs one quote through the stage pipeline over an in-memory snapshot.
package pricing

import (
	"context"
	"time"

	"chauffeur/internal/maps"
	"chauffeur/internal/modules/contract"
	"chauffeur/internal/modules/cost"
	"chauffeur/internal/modules/fuel"
	"chauffeur/internal/modules/route"
	"chauffeur/internal/modules/vehicle"
	"chauffeur/internal/modules/zone"
	"chauffeur/internal/types"
)

// FuelPriceProvider never fails; it answers from its DEFAULT tier instead.
type FuelPriceProvider interface {
	GetFuelPrice(ctx context.Context, q fuel.Query) fuel.Price
}

// TollProvider never fails; on error it returns the per-km estimate.
type TollProvider interface {
	GetTollCost(ctx context.Context, pickup, dropoff types.Point, opts maps.TollOptions) maps.TollCost
}

// Snapshot is the read-only data one pricing call runs against.
type Snapshot struct {
	Settings      Settings
	Zones         []zone.Zone
	Categories    []vehicle.Category
	Contact       *contract.Contact
	AdvancedRates []AdvancedRate
	Seasonal      []SeasonalMultiplier
	Vehicles      []vehicle.Vehicle
}

func (s Snapshot) Category(id types.ID) (vehicle.Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return vehicle.Category{}, false
}

type EngineConfig struct {
	AdapterTimeout time.Duration
	Selector       vehicle.SelectorConfig
}

// Engine is stateless apart from its adapters and is safe for concurrent use.
type Engine struct {
	router   maps.Router
	fuel     FuelPriceProvider
	tolls    TollProvider
	selector *vehicle.Selector
	cfg      EngineConfig
}

// NewEngine wires the adapters. Any of them may be nil: routing then uses
// the haversine estimate, fuel the organization/default chain and tolls the
// per-km estimate.
func NewEngine(router maps.Router, fuelProvider FuelPriceProvider, tolls TollProvider, cfg EngineConfig) *Engine {
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = 5 * time.Second
	}
	return &Engine{
		router:   router,
		fuel:     fuelProvider,
		tolls:    tolls,
		selector: vehicle.NewSelector(router, cfg.Selector),
		cfg:      cfg,
	}
}

// quote holds what the stages share for one call. prepare builds it; the
// cost and toll stages fill in selection and polyline.
type quote struct {
	snap        Snapshot
	req         Request
	settings    Settings
	resolver    *zone.Resolver
	pickupZone  *zone.Zone
	dropoffZone *zone.Zone
	category    vehicle.Category
	leg         maps.Leg
	// costLeg is the billed service movement: doubled plus waiting for a
	// round trip, the booked hours for a dispo.
	costLeg   maps.Leg
	selection vehicle.Selection
	polyline  string
	// dynamic is the formula input of a DYNAMIC quote.
	dynamic DynamicInput
}

func (q *quote) durationHours() float64 {
	if q.req.DurationHours != nil {
		return *q.req.DurationHours
	}
	return q.leg.DurationMinutes / 60
}

type stage func(ctx context.Context, q *quote, r Result) Result

// Price validates the request and runs every stage in order. The only error
// is a validation failure; adapter problems degrade to estimates.
func (e *Engine) Price(ctx context.Context, snap Snapshot, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	q := e.prepare(ctx, snap, req)

	r := Result{Currency: types.CurrencyEUR, TripAnalysis: q.analysis()}
	for _, st := range []stage{e.priceStage, e.costStage, e.tollStage, e.segmentationStage, e.autoSwitchStage} {
		r = st(ctx, q, r)
	}
	return r, nil
}

func (e *Engine) prepare(ctx context.Context, snap Snapshot, req Request) *quote {
	q := &quote{snap: snap, req: req, settings: snap.Settings}
	q.resolver = zone.NewResolver(snap.Zones, q.settings.ZonePrecedence)
	if z, ok := q.resolver.Resolve(req.Pickup); ok {
		q.pickupZone = &z
	}
	if req.Dropoff != nil {
		if z, ok := q.resolver.Resolve(*req.Dropoff); ok {
			q.dropoffZone = &z
		}
	}
	q.category, _ = snap.Category(req.VehicleCategoryID)
	q.leg = e.serviceLeg(ctx, req)
	q.polyline = q.leg.Polyline

	q.costLeg = q.leg
	switch {
	case req.TripType == types.TripDispo:
		q.costLeg.DurationMinutes = q.durationHours() * 60
	case req.RoundTrip:
		q.costLeg.DistanceKm = q.leg.DistanceKm * 2
		q.costLeg.DurationMinutes = q.leg.DurationMinutes*2 + req.WaitingMinutes
	}
	return q
}

// serviceLeg prefers caller-supplied figures, then the router over every
// stop, then the haversine estimate.
func (e *Engine) serviceLeg(ctx context.Context, req Request) maps.Leg {
	if req.DistanceKm != nil && req.DurationMinutes != nil {
		return maps.Leg{DistanceKm: *req.DistanceKm, DurationMinutes: *req.DurationMinutes, Source: maps.SourcePrecomputed}
	}
	if req.Dropoff == nil {
		leg := maps.Leg{Source: maps.SourcePrecomputed}
		if req.DistanceKm != nil {
			leg.DistanceKm = *req.DistanceKm
		}
		if req.DurationHours != nil {
			leg.DurationMinutes = *req.DurationHours * 60
		}
		return leg
	}

	points := append([]types.Point{req.Pickup}, req.Stops...)
	points = append(points, *req.Dropoff)

	total := maps.Leg{Source: maps.SourceGoogleDirections}
	var path []types.Point
	for i := 1; i < len(points); i++ {
		leg, routed := e.route(ctx, points[i-1], points[i])
		total.DistanceKm += leg.DistanceKm
		total.DurationMinutes += leg.DurationMinutes
		if !routed {
			total.Source = maps.SourceHaversine
			path = nil
			continue
		}
		if total.Source == maps.SourceGoogleDirections {
			if pts, err := maps.DecodePolyline(leg.Polyline); err == nil {
				path = append(path, pts...)
			}
		}
	}
	total.DistanceKm = types.RoundTo(total.DistanceKm, 3)
	total.DurationMinutes = types.RoundTo(total.DurationMinutes, 2)
	if total.Source == maps.SourceGoogleDirections && len(path) >= 2 {
		total.Polyline = maps.EncodePolyline(path)
	}
	return total
}

func (e *Engine) route(ctx context.Context, from, to types.Point) (maps.Leg, bool) {
	if e.router == nil {
		return maps.EstimateLeg(from, to), false
	}
	cctx, cancel := context.WithTimeout(ctx, e.cfg.AdapterTimeout)
	defer cancel()
	leg, err := e.router.Route(cctx, from, to)
	if err != nil {
		return maps.EstimateLeg(from, to), false
	}
	return leg, true
}

func (q *quote) analysis() TripAnalysis {
	return TripAnalysis{
		DistanceKm:      q.leg.DistanceKm,
		DurationMinutes: q.leg.DurationMinutes,
		RoutingSource:   q.leg.Source,
		PickupZone:      zoneRef(q.pickupZone),
		DropoffZone:     zoneRef(q.dropoffZone),
		ServiceLeg:      q.leg,
	}
}

func zoneRef(z *zone.Zone) *ZoneRef {
	if z == nil {
		return nil
	}
	return &ZoneRef{ID: z.ID, Code: z.Code, Multiplier: z.Multiplier()}
}

// priceStage tries the contract grid and falls back to the dynamic formula.
func (e *Engine) priceStage(_ context.Context, q *quote, r Result) Result {
	outcome := contract.MatchGrid(q.snap.Contact, q.gridQuery())
	if m := outcome.Match; m != nil {
		r.Mode = ModeFixedGrid
		r.MatchedGrid = m
		r.Price = m.Price
		r = r.appendRule(GridMatchRule{
			GridType: string(m.Type), GridID: m.ID, GridName: m.Name,
			FixedPrice: m.FixedPrice, OverridePrice: m.OverridePrice, Price: m.Price,
		})
		if q.req.RoundTrip && q.req.TripType == types.TripTransfer {
			after := types.Round2(r.Price * 2)
			r = r.appendRule(RoundTripRule{PriceBefore: r.Price, PriceAfter: after})
			r.Price = after
		}
		return r
	}

	r.Mode = ModeDynamic
	r.FallbackReason = string(outcome.FallbackReason)
	r = r.appendRule(GridFallbackRule{Reason: string(outcome.FallbackReason)})

	q.dynamic = DynamicInput{
		TripType:        q.req.TripType,
		DistanceKm:      q.leg.DistanceKm,
		DurationMinutes: q.leg.DurationMinutes,
		DurationHours:   q.durationHours(),
		RoundTrip:       q.req.RoundTrip,
		PickupAt:        q.req.PickupAt,
		PickupZone:      q.pickupZone,
		DropoffZone:     q.dropoffZone,
		Category:        q.category,
		AdvancedRates:   q.snap.AdvancedRates,
		Seasonal:        q.snap.Seasonal,
		Settings:        q.settings,
	}
	dyn := CalculateDynamic(q.dynamic)
	r.Price = dyn.Price
	return r.appendRule(dyn.Rules...)
}

func (q *quote) gridQuery() contract.Query {
	gq := contract.Query{
		TripType:           q.req.TripType,
		VehicleCategoryID:  q.req.VehicleCategoryID,
		Pickup:             q.req.Pickup,
		Dropoff:            q.req.Dropoff,
		PickupPlaceID:      q.req.PickupPlaceID,
		DropoffPlaceID:     q.req.DropoffPlaceID,
		PickupZones:        zone.IDs(q.resolver.Match(q.req.Pickup)),
		DistanceKm:         q.leg.DistanceKm,
		DurationHours:      q.durationHours(),
		AddressToleranceKm: q.settings.AddressToleranceKm,
	}
	if q.req.Dropoff != nil {
		gq.DropoffZones = zone.IDs(q.resolver.Match(*q.req.Dropoff))
	}
	return gq
}

// costStage resolves fuel, selects the vehicle and computes internal cost
// and margin. It runs for every pricing mode.
func (e *Engine) costStage(ctx context.Context, q *quote, r Result) Result {
	fuelPrice := cost.ResolveFuelPrice(e.liveFuelPrice(ctx, q), q.settings.FuelPricePerLitre)

	consumptionFor := func(v *vehicle.Vehicle) cost.Resolved {
		var own *float64
		if v != nil {
			own = v.ConsumptionL100km
		}
		return cost.ResolveConsumption(own, q.category.AvgConsumptionL100km, q.settings.FuelConsumptionL100km)
	}
	paramsFor := func(v *vehicle.Vehicle) cost.Parameters {
		return cost.Parameters{
			FuelConsumptionL100km: consumptionFor(v).Value,
			FuelPricePerLitre:     fuelPrice.PricePerLitre,
			TollCostPerKm:         q.settings.TollCostPerKm,
			WearCostPerKm:         q.settings.WearCostPerKm,
			DriverHourlyCost:      q.settings.DriverHourlyCost,
		}
	}

	vreq := vehicle.Request{
		Pickup:     q.req.Pickup,
		Dropoff:    q.req.Dropoff,
		Passengers: q.req.Passengers,
		Luggage:    q.req.Luggage,
		CategoryID: q.req.VehicleCategoryID,
		Service:    q.costLeg,
		ParamsFor:  func(v vehicle.Vehicle) cost.Parameters { return paramsFor(&v) },
	}
	if q.req.RoundTrip {
		vreq.Dropoff = nil
	}
	q.selection = e.selector.Select(ctx, q.snap.Vehicles, vreq)

	var (
		breakdown   cost.Breakdown
		consumption cost.Resolved
		params      cost.Parameters
		shadow      *vehicle.ShadowCost
	)
	if sel := q.selection.Selected; sel != nil {
		v := q.vehicle(sel.VehicleID)
		consumption, params = consumptionFor(v), paramsFor(v)
		s := sel.Cost
		shadow = &s
		breakdown = s.Total
	} else {
		consumption, params = consumptionFor(nil), paramsFor(nil)
		breakdown = cost.Compute(cost.Segment{DistanceKm: q.costLeg.DistanceKm, DurationMinutes: q.costLeg.DurationMinutes}, params)
	}

	parking := q.settings.DefaultParkingCost
	if q.req.ParkingCost != nil {
		parking = *q.req.ParkingCost
	}
	breakdown = breakdown.WithParking(parking)

	selection := q.selection
	ta := r.TripAnalysis
	ta.CostParameters = params
	ta.FuelPrice = fuelPrice
	ta.Consumption = consumption
	ta.CostBreakdown = breakdown
	ta.ShadowSegments = shadow
	ta.VehicleSelection = &selection
	r.TripAnalysis = ta
	r.InternalCost = breakdown.Total
	r = r.remargin(q.settings.Thresholds)

	vs := VehicleSelectionRule{
		Criterion:           selection.Criterion,
		CandidatesEvaluated: selection.CandidatesEvaluated,
		FallbackUsed:        selection.FallbackUsed,
		FallbackReason:      selection.FallbackReason,
		TotalCost:           breakdown.Total,
	}
	if sel := selection.Selected; sel != nil {
		vs.VehicleID, vs.Registration, vs.BaseName = sel.VehicleID, sel.Registration, sel.BaseName
	}
	return r.appendRule(
		FuelPriceRule{
			PricePerLitre: fuelPrice.PricePerLitre, Source: fuelPrice.Source, IsStale: fuelPrice.IsStale,
			ConsumptionL100km: consumption.Value, ConsumptionSource: consumption.Source,
		},
		vs,
	)
}

func (q *quote) vehicle(id types.ID) *vehicle.Vehicle {
	for i := range q.snap.Vehicles {
		if q.snap.Vehicles[i].ID == id {
			return &q.snap.Vehicles[i]
		}
	}
	return nil
}

func (e *Engine) liveFuelPrice(ctx context.Context, q *quote) *cost.LiveFuelPrice {
	if e.fuel == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, e.cfg.AdapterTimeout)
	defer cancel()
	p := e.fuel.GetFuelPrice(cctx, fuel.Query{
		Pickup:   q.req.Pickup,
		Dropoff:  q.req.Dropoff,
		Stops:    q.req.Stops,
		FuelType: q.category.FuelType,
	})
	return &cost.LiveFuelPrice{PricePerLitre: p.PricePerLitre, Source: p.Source, IsStale: p.IsStale}
}

// tollStage swaps the service-leg toll estimate for the routed toll figure
// and recomputes cost and margin.
func (e *Engine) tollStage(ctx context.Context, q *quote, r Result) Result {
	if e.tolls == nil || q.req.Dropoff == nil {
		return r
	}
	cctx, cancel := context.WithTimeout(ctx, e.cfg.AdapterTimeout)
	defer cancel()
	toll := e.tolls.GetTollCost(cctx, q.req.Pickup, *q.req.Dropoff, maps.TollOptions{
		FallbackRatePerKm: q.settings.TollCostPerKm,
		DistanceKm:        q.leg.DistanceKm,
	})
	if q.polyline == "" && toll.EncodedPolyline != "" {
		q.polyline = toll.EncodedPolyline
	}
	r.TripAnalysis.Toll = &TollInfo{Amount: toll.Amount, Source: toll.Source, IsFromCache: toll.IsFromCache}
	if toll.Source == maps.SourceTollEstimate {
		return r
	}

	amount := toll.Amount
	if q.req.RoundTrip {
		amount = types.Round2(amount * 2)
	}
	breakdown := r.TripAnalysis.CostBreakdown
	estimated := breakdown.Tolls
	if s := r.TripAnalysis.ShadowSegments; s != nil {
		estimated = s.Service.Tolls
	}
	before := breakdown.Total
	breakdown = breakdown.WithTolls(types.Round2(breakdown.Tolls - estimated + amount))

	r.TripAnalysis.CostBreakdown = breakdown
	r.InternalCost = breakdown.Total
	r = r.remargin(q.settings.Thresholds)
	return r.appendRule(RealTollRule{
		EstimatedAmount: estimated, Amount: amount, Source: toll.Source, IsFromCache: toll.IsFromCache,
		CostBefore: before, CostAfter: breakdown.Total,
	})
}

// segmentationStage records the zone trace for every trip and adjusts
// dynamic distance-based prices: transversal trips are repriced per zone,
// others rerun the formula with the distance-weighted zone multiplier and
// add surcharges. Dispo prices depend on booked hours only.
func (e *Engine) segmentationStage(_ context.Context, q *quote, r Result) Result {
	if q.req.Dropoff == nil {
		return r
	}
	seg := q.segmentation()
	r.TripAnalysis.Segmentation = &seg
	if r.Mode != ModeDynamic || q.req.TripType == types.TripDispo {
		return r
	}

	var pickupID, dropoffID types.ID
	if q.pickupZone != nil {
		pickupID = q.pickupZone.ID
	}
	if q.dropoffZone != nil {
		dropoffID = q.dropoffZone.ID
	}

	if route.IsTransversal(seg, pickupID, dropoffID) {
		return q.decompose(r, seg, pickupID, dropoffID)
	}

	applied := 1.0
	if zr := r.AppliedRules.Of(KindZoneMultiplier); len(zr) > 0 {
		applied = zr[0].(ZoneMultiplierRule).Multiplier
	}
	weighted := applied
	if seg.Method == route.MethodPolyline && len(seg.Spans) > 0 {
		weighted = seg.WeightedMultiplier
	}
	if weighted == applied && seg.TotalSurcharge == 0 {
		return r
	}

	before := r.Price
	repriced := before
	if weighted != applied {
		in := q.dynamic
		in.WeightedZoneMultiplier = weighted
		repriced = CalculateDynamic(in).Price
	}
	after := types.Round2(repriced + seg.TotalSurcharge)
	if after == before {
		return r
	}
	r = r.withPrice(after, q.settings.Thresholds)
	return r.appendRule(ZoneSegmentationRule{
		Method: seg.Method, SpanCount: len(seg.Spans), WeightedMultiplier: weighted,
		TotalSurcharge: seg.TotalSurcharge, PriceBefore: before, PriceAfter: after,
	})
}

func (q *quote) segmentation() route.Segmentation {
	if q.polyline != "" {
		if path, err := maps.DecodePolyline(q.polyline); err == nil && len(path) >= 2 {
			return route.Segment(path, q.resolver, q.leg.DistanceKm, q.leg.DurationMinutes)
		}
	}
	return route.FallbackSegment(q.pickupZone, q.dropoffZone, q.leg.DistanceKm, q.leg.DurationMinutes)
}

func (q *quote) decompose(r Result, seg route.Segmentation, pickupID, dropoffID types.ID) Result {
	perKm, perHour := ResolveRates(q.category, q.settings)
	d := route.Decompose(seg, pickupID, dropoffID, route.DecompositionParams{
		RatePerKm:              perKm.Value,
		RatePerHour:            perHour.Value,
		TargetMarginPercent:    q.settings.TargetMarginPercent,
		TransitDiscountPercent: q.settings.TransitDiscountPercent,
		TransitZoneCodes:       q.settings.TransitZoneCodes,
	})
	r.TripAnalysis.Transversal = &d

	total := d.Total
	if q.req.RoundTrip {
		total = types.Round2(total * 2)
	}
	codes := make([]string, 0, len(d.Spans))
	for _, s := range d.Spans {
		if s.ZoneCode != "" {
			codes = append(codes, s.ZoneCode)
		}
	}

	before := r.Price
	r = r.withPrice(total, q.settings.Thresholds)
	r = r.appendRule(TransversalDecompositionRule{
		ZoneCodes: codes, Subtotal: d.Subtotal, TotalDiscount: d.TotalDiscount, Total: d.Total,
		RoundTrip: q.req.RoundTrip, PriceBefore: before, PriceAfter: r.Price,
	})
	for _, s := range d.Spans {
		if s.TransitDiscount > 0 {
			r = r.appendRule(TransitDiscountRule{
				ZoneID: s.ZoneID, ZoneCode: s.ZoneCode, Percent: q.settings.TransitDiscountPercent,
				SegmentPrice: s.Price, Discount: s.TransitDiscount,
			})
		}
	}
	return r
}
