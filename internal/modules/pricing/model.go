// README: Pricing request, result and trip analysis records.
package pricing

import (
	"time"

	"chauffeur/internal/maps"
	"chauffeur/internal/modules/contract"
	"chauffeur/internal/modules/cost"
	"chauffeur/internal/modules/route"
	"chauffeur/internal/modules/vehicle"
	"chauffeur/internal/types"
)

type Mode string

const (
	ModeFixedGrid Mode = "FIXED_GRID"
	ModeDynamic   Mode = "DYNAMIC"
	ModeManual    Mode = "MANUAL"
)

type Request struct {
	Pickup            types.Point    `json:"pickup"`
	Dropoff           *types.Point   `json:"dropoff,omitempty"`
	PickupPlaceID     string         `json:"pickupPlaceId,omitempty"`
	DropoffPlaceID    string         `json:"dropoffPlaceId,omitempty"`
	Stops             []types.Point  `json:"stops,omitempty"`
	VehicleCategoryID types.ID       `json:"vehicleCategoryId"`
	TripType          types.TripType `json:"tripType"`
	PickupAt          time.Time      `json:"pickupAt"`
	Passengers        int            `json:"passengers"`
	Luggage           int            `json:"luggage"`
	RoundTrip         bool           `json:"roundTrip"`
	DistanceKm        *float64       `json:"distanceKm,omitempty"`
	DurationMinutes   *float64       `json:"durationMinutes,omitempty"`
	DurationHours     *float64       `json:"durationHours,omitempty"`
	WaitingMinutes    float64        `json:"waitingMinutes,omitempty"`
	ParkingCost       *float64       `json:"parkingCost,omitempty"`
}

type ZoneRef struct {
	ID         types.ID `json:"id"`
	Code       string   `json:"code"`
	Multiplier float64  `json:"multiplier"`
}

type TollInfo struct {
	Amount      float64 `json:"amount"`
	Source      string  `json:"source"`
	IsFromCache bool    `json:"isFromCache"`
}

// Suggestion is the advisory output of an auto-switch detector.
type Suggestion struct {
	Detector          string  `json:"detector"`
	TriggerMetric     string  `json:"triggerMetric"`
	TriggerValue      float64 `json:"triggerValue"`
	Threshold         float64 `json:"threshold"`
	BilledHours       float64 `json:"billedHours"`
	CurrentPrice      float64 `json:"currentPrice"`
	AlternativePrice  float64 `json:"alternativePrice"`
	CurrentMargin     float64 `json:"currentMargin"`
	AlternativeMargin float64 `json:"alternativeMargin"`
	MoreProfitable    bool    `json:"moreProfitable"`
	Applied           bool    `json:"applied"`
}

type TripAnalysis struct {
	DistanceKm       float64                  `json:"distanceKm"`
	DurationMinutes  float64                  `json:"durationMinutes"`
	RoutingSource    string                   `json:"routingSource"`
	PickupZone       *ZoneRef                 `json:"pickupZone"`
	DropoffZone      *ZoneRef                 `json:"dropoffZone"`
	CostParameters   cost.Parameters          `json:"costParameters"`
	FuelPrice        cost.FuelPriceResolution `json:"fuelPrice"`
	Consumption      cost.Resolved            `json:"consumption"`
	CostBreakdown    cost.Breakdown           `json:"costBreakdown"`
	ShadowSegments   *vehicle.ShadowCost      `json:"shadowSegments"`
	VehicleSelection *vehicle.Selection       `json:"vehicleSelection"`
	Toll             *TollInfo                `json:"toll"`
	Segmentation     *route.Segmentation      `json:"segmentation"`
	Transversal      *route.Decomposition     `json:"transversal"`
	AutoSwitch       []Suggestion             `json:"autoSwitch"`
	ServiceLeg       maps.Leg                 `json:"serviceLeg"`
}

// Result is the plain, serialisable outcome of one pricing call.
type Result struct {
	Mode           Mode               `json:"pricingMode"`
	Price          float64            `json:"price"`
	Currency       string             `json:"currency"`
	InternalCost   float64            `json:"internalCost"`
	Margin         float64            `json:"margin"`
	MarginPercent  float64            `json:"marginPercent"`
	Profitability  cost.Profitability `json:"profitabilityIndicator"`
	MatchedGrid    *contract.Match    `json:"matchedGrid"`
	FallbackReason string             `json:"fallbackReason,omitempty"`
	AppliedRules   Rules              `json:"appliedRules"`
	TripAnalysis   TripAnalysis       `json:"tripAnalysis"`
}

// withPrice returns a copy with price and margin fields recomputed.
func (r Result) withPrice(price float64, th cost.Thresholds) Result {
	r.Price = types.Round2(price)
	return r.remargin(th)
}

func (r Result) remargin(th cost.Thresholds) Result {
	m := cost.ComputeMargin(r.Price, r.InternalCost, th)
	r.Margin, r.MarginPercent, r.Profitability = m.Margin, m.MarginPercent, m.Profitability
	return r
}

// appendRule copies the trail before appending so earlier Results sharing
// the backing array are never modified.
func (r Result) appendRule(rules ...AppliedRule) Result {
	out := make(Rules, 0, len(r.AppliedRules)+len(rules))
	out = append(out, r.AppliedRules...)
	r.AppliedRules = append(out, rules...)
	return r
}
