// README: Vehicle selector: capacity/category/range filtering and minimal-cost choice over shadow segments.
package vehicle

import (
	"context"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"chauffeur/internal/maps"
	"chauffeur/internal/modules/cost"
	"chauffeur/internal/modules/zone"
	"chauffeur/internal/types"
)

const CriterionMinimalCost = "MINIMAL_COST"

const (
	ReasonNoVehicles              = "NO_VEHICLES"
	ReasonNoVehiclesMatchCapacity = "NO_VEHICLES_MATCH_CAPACITY"
	ReasonNoVehiclesWithinRange   = "NO_VEHICLES_WITHIN_RANGE"
)

type SelectorConfig struct {
	MaxApproachKm  float64
	MaxCandidates  int
	MaxConcurrency int
	RouteTimeout   time.Duration
}

func (c SelectorConfig) withDefaults() SelectorConfig {
	if c.MaxApproachKm <= 0 {
		c.MaxApproachKm = 100
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 5
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.RouteTimeout <= 0 {
		c.RouteTimeout = 3 * time.Second
	}
	return c
}

// Request is one selection call. Service is the already-routed customer leg;
// ParamsFor resolves the cost parameters for a given vehicle.
type Request struct {
	Pickup     types.Point
	Dropoff    *types.Point
	Passengers int
	Luggage    int
	CategoryID types.ID
	Service    maps.Leg
	ParamsFor  func(Vehicle) cost.Parameters
}

type ShadowCost struct {
	Approach cost.Breakdown `json:"approach"`
	Service  cost.Breakdown `json:"service"`
	Return   cost.Breakdown `json:"return"`
	Total    cost.Breakdown `json:"total"`
}

type Candidate struct {
	VehicleID    types.ID   `json:"vehicleId"`
	Registration string     `json:"registration"`
	BaseID       types.ID   `json:"baseId"`
	BaseName     string     `json:"baseName"`
	HaversineKm  float64    `json:"haversineKm"`
	Approach     maps.Leg   `json:"approach"`
	Service      maps.Leg   `json:"service"`
	Return       maps.Leg   `json:"return"`
	Cost         ShadowCost `json:"cost"`
}

type Selection struct {
	Criterion                     string      `json:"criterion"`
	TotalVehicles                 int         `json:"totalVehicles"`
	CandidatesAfterCapacityFilter int         `json:"candidatesAfterCapacityFilter"`
	CandidatesAfterDistanceFilter int         `json:"candidatesAfterDistanceFilter"`
	CandidatesEvaluated           int         `json:"candidatesEvaluated"`
	Selected                      *Candidate  `json:"selected"`
	Candidates                    []Candidate `json:"candidates,omitempty"`
	FallbackUsed                  bool        `json:"fallbackUsed"`
	FallbackReason                string      `json:"fallbackReason,omitempty"`
}

type Selector struct {
	router maps.Router
	cfg    SelectorConfig
}

// NewSelector builds a selector. A nil router means every leg is estimated.
func NewSelector(router maps.Router, cfg SelectorConfig) *Selector {
	return &Selector{router: router, cfg: cfg.withDefaults()}
}

type ranked struct {
	v  Vehicle
	km float64
}

// Select never fails: routing errors degrade the affected candidate to a
// haversine estimate, and an empty candidate set is reported as a fallback.
func (s *Selector) Select(ctx context.Context, vehicles []Vehicle, req Request) Selection {
	sel := Selection{Criterion: CriterionMinimalCost, TotalVehicles: len(vehicles)}
	if len(vehicles) == 0 {
		sel.FallbackUsed, sel.FallbackReason = true, ReasonNoVehicles
		return sel
	}

	var fitting []Vehicle
	for _, v := range vehicles {
		if !v.Active || v.CategoryID != req.CategoryID || !v.Fits(req.Passengers, req.Luggage) {
			continue
		}
		fitting = append(fitting, v)
	}
	sel.CandidatesAfterCapacityFilter = len(fitting)
	if len(fitting) == 0 {
		sel.FallbackUsed, sel.FallbackReason = true, ReasonNoVehiclesMatchCapacity
		return sel
	}

	var inRange []ranked
	for _, v := range fitting {
		km := zone.HaversineKm(v.Base.Location, req.Pickup)
		if km <= s.cfg.MaxApproachKm {
			inRange = append(inRange, ranked{v: v, km: km})
		}
	}
	sel.CandidatesAfterDistanceFilter = len(inRange)
	if len(inRange) == 0 {
		sel.FallbackUsed, sel.FallbackReason = true, ReasonNoVehiclesWithinRange
		return sel
	}

	slices.SortStableFunc(inRange, func(a, b ranked) int {
		if a.km != b.km {
			if a.km < b.km {
				return -1
			}
			return 1
		}
		return strings.Compare(string(a.v.ID), string(b.v.ID))
	})
	if len(inRange) > s.cfg.MaxCandidates {
		inRange = inRange[:s.cfg.MaxCandidates]
	}

	candidates := s.evaluate(ctx, inRange, req)
	sel.CandidatesEvaluated = len(candidates)
	sel.Candidates = candidates

	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}
	sel.Selected = &best
	return sel
}

// evaluate routes every candidate concurrently. Each goroutine owns its slot
// in out, so no locking is needed.
func (s *Selector) evaluate(ctx context.Context, inRange []ranked, req Request) []Candidate {
	out := make([]Candidate, len(inRange))
	returnFrom := req.Pickup
	if req.Dropoff != nil {
		returnFrom = *req.Dropoff
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i, r := range inRange {
		g.Go(func() error {
			approach := s.route(gctx, r.v.Base.Location, req.Pickup)
			back := s.route(gctx, returnFrom, r.v.Base.Location)

			p := req.ParamsFor(r.v)
			shadow := ShadowCost{
				Approach: cost.Compute(segment(approach), p),
				Service:  cost.Compute(segment(req.Service), p),
				Return:   cost.Compute(segment(back), p),
			}
			shadow.Total = cost.Sum(shadow.Approach, shadow.Service, shadow.Return)

			out[i] = Candidate{
				VehicleID:    r.v.ID,
				Registration: r.v.Registration,
				BaseID:       r.v.Base.ID,
				BaseName:     r.v.Base.Name,
				HaversineKm:  types.RoundTo(r.km, 3),
				Approach:     approach,
				Service:      req.Service,
				Return:       back,
				Cost:         shadow,
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Selector) route(ctx context.Context, from, to types.Point) maps.Leg {
	if s.router == nil {
		return maps.EstimateLeg(from, to)
	}
	cctx, cancel := context.WithTimeout(ctx, s.cfg.RouteTimeout)
	defer cancel()
	leg, err := s.router.Route(cctx, from, to)
	if err != nil {
		return maps.EstimateLeg(from, to)
	}
	return leg
}

// better: lower total cost, then shorter approach, then vehicle id.
func better(a, b Candidate) bool {
	if a.Cost.Total.Total != b.Cost.Total.Total {
		return a.Cost.Total.Total < b.Cost.Total.Total
	}
	if a.Approach.DistanceKm != b.Approach.DistanceKm {
		return a.Approach.DistanceKm < b.Approach.DistanceKm
	}
	return a.VehicleID < b.VehicleID
}

func segment(l maps.Leg) cost.Segment {
	return cost.Segment{DistanceKm: l.DistanceKm, DurationMinutes: l.DurationMinutes}
}
