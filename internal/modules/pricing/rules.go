// README: Applied-rule trail: one tagged record per pricing decision, serialised as {"type": KIND, ...}.
package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"chauffeur/internal/types"
)

type RuleKind string

const (
	KindGridMatch                 RuleKind = "GRID_MATCH"
	KindGridFallback              RuleKind = "GRID_FALLBACK"
	KindDynamicBase               RuleKind = "DYNAMIC_BASE"
	KindRoundTrip                 RuleKind = "ROUND_TRIP"
	KindZoneMultiplier            RuleKind = "ZONE_MULTIPLIER"
	KindVehicleCategoryMultiplier RuleKind = "VEHICLE_CATEGORY_MULTIPLIER"
	KindAdvancedRate              RuleKind = "ADVANCED_RATE"
	KindSeasonalMultiplier        RuleKind = "SEASONAL_MULTIPLIER"
	KindTargetMargin              RuleKind = "TARGET_MARGIN"
	KindFuelPrice                 RuleKind = "FUEL_PRICE"
	KindRealToll                  RuleKind = "REAL_TOLL"
	KindVehicleSelection          RuleKind = "VEHICLE_SELECTION"
	KindZoneSegmentation          RuleKind = "ZONE_SEGMENTATION"
	KindTransversalDecomposition  RuleKind = "TRANSVERSAL_DECOMPOSITION"
	KindTransitDiscount           RuleKind = "TRANSIT_DISCOUNT"
	KindAutoSwitched              RuleKind = "AUTO_SWITCHED"
	KindManualOverride            RuleKind = "MANUAL_OVERRIDE"
	KindContractPriceOverride     RuleKind = "CONTRACT_PRICE_OVERRIDE"
)

// AppliedRule is a closed set: only types in this package implement it.
// Consumers switch on the concrete type and skip UnknownRule.
type AppliedRule interface {
	Kind() RuleKind
	isRule()
}

type GridMatchRule struct {
	GridType      string   `json:"gridType"`
	GridID        types.ID `json:"gridId"`
	GridName      string   `json:"gridName"`
	FixedPrice    float64  `json:"fixedPrice"`
	OverridePrice *float64 `json:"overridePrice"`
	Price         float64  `json:"price"`
}

type GridFallbackRule struct {
	Reason string `json:"reason"`
}

type DynamicBaseRule struct {
	Method            string  `json:"method"`
	DistanceKm        float64 `json:"distanceKm"`
	DurationMinutes   float64 `json:"durationMinutes"`
	RatePerKm         float64 `json:"ratePerKm"`
	RatePerKmSource   string  `json:"ratePerKmSource"`
	RatePerHour       float64 `json:"ratePerHour"`
	RatePerHourSource string  `json:"ratePerHourSource"`
	DistancePrice     float64 `json:"distancePrice"`
	DurationPrice     float64 `json:"durationPrice"`
	BasePrice         float64 `json:"basePrice"`
}

type RoundTripRule struct {
	PriceBefore float64 `json:"priceBefore"`
	PriceAfter  float64 `json:"priceAfter"`
}

type ZoneMultiplierRule struct {
	ZoneID      types.ID `json:"zoneId"`
	ZoneCode    string   `json:"zoneCode"`
	Strategy    string   `json:"strategy"`
	Multiplier  float64  `json:"multiplier"`
	PriceBefore float64  `json:"priceBefore"`
	PriceAfter  float64  `json:"priceAfter"`
}

type VehicleCategoryMultiplierRule struct {
	CategoryID  types.ID `json:"categoryId"`
	Multiplier  float64  `json:"multiplier"`
	PriceBefore float64  `json:"priceBefore"`
	PriceAfter  float64  `json:"priceAfter"`
}

type AdvancedRateRule struct {
	RateID      types.ID `json:"rateId"`
	Name        string   `json:"name"`
	RateType    string   `json:"rateType"`
	Adjustment  string   `json:"adjustment"`
	Value       float64  `json:"value"`
	PriceBefore float64  `json:"priceBefore"`
	PriceAfter  float64  `json:"priceAfter"`
}

type SeasonalMultiplierRule struct {
	SeasonalID  types.ID `json:"seasonalId"`
	Name        string   `json:"name"`
	Multiplier  float64  `json:"multiplier"`
	PriceBefore float64  `json:"priceBefore"`
	PriceAfter  float64  `json:"priceAfter"`
}

type TargetMarginRule struct {
	Percent     float64 `json:"percent"`
	PriceBefore float64 `json:"priceBefore"`
	PriceAfter  float64 `json:"priceAfter"`
}

type FuelPriceRule struct {
	PricePerLitre     float64 `json:"pricePerLitre"`
	Source            string  `json:"source"`
	IsStale           bool    `json:"isStale"`
	ConsumptionL100km float64 `json:"consumptionL100km"`
	ConsumptionSource string  `json:"consumptionSource"`
}

type RealTollRule struct {
	EstimatedAmount float64 `json:"estimatedAmount"`
	Amount          float64 `json:"amount"`
	Source          string  `json:"source"`
	IsFromCache     bool    `json:"isFromCache"`
	CostBefore      float64 `json:"costBefore"`
	CostAfter       float64 `json:"costAfter"`
}

type VehicleSelectionRule struct {
	Criterion           string   `json:"criterion"`
	VehicleID           types.ID `json:"vehicleId,omitempty"`
	Registration        string   `json:"registration,omitempty"`
	BaseName            string   `json:"baseName,omitempty"`
	CandidatesEvaluated int      `json:"candidatesEvaluated"`
	FallbackUsed        bool     `json:"fallbackUsed"`
	FallbackReason      string   `json:"fallbackReason,omitempty"`
	TotalCost           float64  `json:"totalCost"`
}

type ZoneSegmentationRule struct {
	Method             string  `json:"method"`
	SpanCount          int     `json:"spanCount"`
	WeightedMultiplier float64 `json:"weightedMultiplier"`
	TotalSurcharge     float64 `json:"totalSurcharge"`
	PriceBefore        float64 `json:"priceBefore"`
	PriceAfter         float64 `json:"priceAfter"`
}

type TransversalDecompositionRule struct {
	ZoneCodes     []string `json:"zoneCodes"`
	Subtotal      float64  `json:"subtotal"`
	TotalDiscount float64  `json:"totalDiscount"`
	Total         float64  `json:"total"`
	RoundTrip     bool     `json:"roundTrip"`
	PriceBefore   float64  `json:"priceBefore"`
	PriceAfter    float64  `json:"priceAfter"`
}

type TransitDiscountRule struct {
	ZoneID       types.ID `json:"zoneId"`
	ZoneCode     string   `json:"zoneCode"`
	Percent      float64  `json:"percent"`
	SegmentPrice float64  `json:"segmentPrice"`
	Discount     float64  `json:"discount"`
}

type AutoSwitchedRule struct {
	Detector      string  `json:"detector"`
	TriggerMetric string  `json:"triggerMetric"`
	TriggerValue  float64 `json:"triggerValue"`
	Threshold     float64 `json:"threshold"`
	BilledHours   float64 `json:"billedHours"`
	PriceBefore   float64 `json:"priceBefore"`
	PriceAfter    float64 `json:"priceAfter"`
	MarginBefore  float64 `json:"marginBefore"`
	MarginAfter   float64 `json:"marginAfter"`
}

type ManualOverrideRule struct {
	PriceBefore         float64 `json:"priceBefore"`
	PriceAfter          float64 `json:"priceAfter"`
	MarginPercentBefore float64 `json:"marginPercentBefore"`
	MarginPercentAfter  float64 `json:"marginPercentAfter"`
	Reason              string  `json:"reason,omitempty"`
	By                  string  `json:"by,omitempty"`
}

type ContractPriceOverrideRule struct {
	GridType            string   `json:"gridType"`
	GridID              types.ID `json:"gridId"`
	ContractPrice       float64  `json:"contractPrice"`
	PriceAfter          float64  `json:"priceAfter"`
	MarginPercentBefore float64  `json:"marginPercentBefore"`
	MarginPercentAfter  float64  `json:"marginPercentAfter"`
	Reason              string   `json:"reason,omitempty"`
	By                  string   `json:"by,omitempty"`
}

// UnknownRule keeps a record of a kind this build does not know, so stored
// trails written by newer builds survive a load/save cycle.
type UnknownRule struct {
	Type RuleKind
	Raw  json.RawMessage
}

func (GridMatchRule) Kind() RuleKind                 { return KindGridMatch }
func (GridFallbackRule) Kind() RuleKind              { return KindGridFallback }
func (DynamicBaseRule) Kind() RuleKind               { return KindDynamicBase }
func (RoundTripRule) Kind() RuleKind                 { return KindRoundTrip }
func (ZoneMultiplierRule) Kind() RuleKind            { return KindZoneMultiplier }
func (VehicleCategoryMultiplierRule) Kind() RuleKind { return KindVehicleCategoryMultiplier }
func (AdvancedRateRule) Kind() RuleKind              { return KindAdvancedRate }
func (SeasonalMultiplierRule) Kind() RuleKind        { return KindSeasonalMultiplier }
func (TargetMarginRule) Kind() RuleKind              { return KindTargetMargin }
func (FuelPriceRule) Kind() RuleKind                 { return KindFuelPrice }
func (RealTollRule) Kind() RuleKind                  { return KindRealToll }
func (VehicleSelectionRule) Kind() RuleKind          { return KindVehicleSelection }
func (ZoneSegmentationRule) Kind() RuleKind          { return KindZoneSegmentation }
func (TransversalDecompositionRule) Kind() RuleKind  { return KindTransversalDecomposition }
func (TransitDiscountRule) Kind() RuleKind           { return KindTransitDiscount }
func (AutoSwitchedRule) Kind() RuleKind              { return KindAutoSwitched }
func (ManualOverrideRule) Kind() RuleKind            { return KindManualOverride }
func (ContractPriceOverrideRule) Kind() RuleKind     { return KindContractPriceOverride }
func (u UnknownRule) Kind() RuleKind                 { return u.Type }

func (GridMatchRule) isRule()                 {}
func (GridFallbackRule) isRule()              {}
func (DynamicBaseRule) isRule()               {}
func (RoundTripRule) isRule()                 {}
func (ZoneMultiplierRule) isRule()            {}
func (VehicleCategoryMultiplierRule) isRule() {}
func (AdvancedRateRule) isRule()              {}
func (SeasonalMultiplierRule) isRule()        {}
func (TargetMarginRule) isRule()              {}
func (FuelPriceRule) isRule()                 {}
func (RealTollRule) isRule()                  {}
func (VehicleSelectionRule) isRule()          {}
func (ZoneSegmentationRule) isRule()          {}
func (TransversalDecompositionRule) isRule()  {}
func (TransitDiscountRule) isRule()           {}
func (AutoSwitchedRule) isRule()              {}
func (ManualOverrideRule) isRule()            {}
func (ContractPriceOverrideRule) isRule()     {}
func (UnknownRule) isRule()                   {}

// Rules is the ordered trail carried by a Result.
type Rules []AppliedRule

// Of returns the rules of one kind, in order.
func (rs Rules) Of(kind RuleKind) []AppliedRule {
	var out []AppliedRule
	for _, r := range rs {
		if r.Kind() == kind {
			out = append(out, r)
		}
	}
	return out
}

func (rs Rules) Has(kind RuleKind) bool {
	return len(rs.Of(kind)) > 0
}

func (rs Rules) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, r := range rs {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalRule(r)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalRule(r AppliedRule) ([]byte, error) {
	if u, ok := r.(UnknownRule); ok {
		return u.Raw, nil
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal rule %s: %w", r.Kind(), err)
	}
	kind, _ := json.Marshal(r.Kind())

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(kind)
	if len(payload) > 2 {
		buf.WriteByte(',')
		buf.Write(payload[1 : len(payload)-1])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (rs *Rules) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Rules, 0, len(raws))
	for _, raw := range raws {
		r, err := unmarshalRule(raw)
		if err != nil {
			return err
		}
		out = append(out, r)
	}
	*rs = out
	return nil
}

func unmarshalRule(raw json.RawMessage) (AppliedRule, error) {
	var head struct {
		Type RuleKind `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode rule type: %w", err)
	}
	switch head.Type {
	case KindGridMatch:
		return decodeAs[GridMatchRule](raw)
	case KindGridFallback:
		return decodeAs[GridFallbackRule](raw)
	case KindDynamicBase:
		return decodeAs[DynamicBaseRule](raw)
	case KindRoundTrip:
		return decodeAs[RoundTripRule](raw)
	case KindZoneMultiplier:
		return decodeAs[ZoneMultiplierRule](raw)
	case KindVehicleCategoryMultiplier:
		return decodeAs[VehicleCategoryMultiplierRule](raw)
	case KindAdvancedRate:
		return decodeAs[AdvancedRateRule](raw)
	case KindSeasonalMultiplier:
		return decodeAs[SeasonalMultiplierRule](raw)
	case KindTargetMargin:
		return decodeAs[TargetMarginRule](raw)
	case KindFuelPrice:
		return decodeAs[FuelPriceRule](raw)
	case KindRealToll:
		return decodeAs[RealTollRule](raw)
	case KindVehicleSelection:
		return decodeAs[VehicleSelectionRule](raw)
	case KindZoneSegmentation:
		return decodeAs[ZoneSegmentationRule](raw)
	case KindTransversalDecomposition:
		return decodeAs[TransversalDecompositionRule](raw)
	case KindTransitDiscount:
		return decodeAs[TransitDiscountRule](raw)
	case KindAutoSwitched:
		return decodeAs[AutoSwitchedRule](raw)
	case KindManualOverride:
		return decodeAs[ManualOverrideRule](raw)
	case KindContractPriceOverride:
		return decodeAs[ContractPriceOverrideRule](raw)
	default:
		return UnknownRule{Type: head.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

func decodeAs[T AppliedRule](raw json.RawMessage) (AppliedRule, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode rule %s: %w", v.Kind(), err)
	}
	return v, nil
}
