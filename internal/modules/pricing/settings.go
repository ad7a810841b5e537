// README: Organization pricing settings, advanced rates and seasonal multipliers.
package pricing

import (
	"time"

	"chauffeur/internal/modules/contract"
	"chauffeur/internal/modules/cost"
	"chauffeur/internal/types"
)

type ZoneMultiplierStrategy string

const (
	StrategyMax     ZoneMultiplierStrategy = "MAX"
	StrategyPickup  ZoneMultiplierStrategy = "PICKUP"
	StrategyDropoff ZoneMultiplierStrategy = "DROPOFF"
)

// Settings is one immutable configuration value per pricing call. Optional
// cost inputs stay nil so the fallback chains can report their source;
// everything else is filled by WithDefaults when loaded.
type Settings struct {
	OrganizationID types.ID `json:"organizationId"`

	BaseRatePerKm       float64 `json:"baseRatePerKm"`
	BaseRatePerHour     float64 `json:"baseRatePerHour"`
	TargetMarginPercent float64 `json:"targetMarginPercent"`

	FuelConsumptionL100km *float64 `json:"fuelConsumptionL100km,omitempty"`
	FuelPricePerLitre     *float64 `json:"fuelPricePerLitre,omitempty"`
	TollCostPerKm         float64  `json:"tollCostPerKm"`
	WearCostPerKm         float64  `json:"wearCostPerKm"`
	DriverHourlyCost      float64  `json:"driverHourlyCost"`
	DefaultParkingCost    float64  `json:"defaultParkingCost"`

	Thresholds cost.Thresholds `json:"thresholds"`
	Timezone   string          `json:"timezone"`

	ZonePrecedence     []string               `json:"zonePrecedence,omitempty"`
	ZoneStrategy       ZoneMultiplierStrategy `json:"zoneStrategy"`
	AddressToleranceKm float64                `json:"addressToleranceKm"`

	TransitZoneCodes       []string `json:"transitZoneCodes,omitempty"`
	TransitDiscountPercent float64  `json:"transitDiscountPercent"`

	DenseZoneCodes       []string `json:"denseZoneCodes,omitempty"`
	DenseSpeedThreshold  float64  `json:"denseSpeedThresholdKmh"`
	AutoSwitchDenseZone  bool     `json:"autoSwitchDenseZone"`
	RoundTripIdleMinutes float64  `json:"roundTripIdleMinutes"`
	RoundTripMaxReturnKm float64  `json:"roundTripMaxReturnKm"`
	AutoSwitchRoundTrip  bool     `json:"autoSwitchRoundTrip"`
	MinimumDispoHours    float64  `json:"minimumDispoHours"`
}

// WithDefaults merges defaults into unset fields. Loaders call it; the engine
// uses the settings as given.
func (s Settings) WithDefaults() Settings {
	if s.BaseRatePerKm <= 0 {
		s.BaseRatePerKm = 2.5
	}
	if s.BaseRatePerHour <= 0 {
		s.BaseRatePerHour = 45
	}
	if s.Thresholds == (cost.Thresholds{}) {
		s.Thresholds = cost.DefaultThresholds()
	}
	if s.Timezone == "" {
		s.Timezone = "Europe/Paris"
	}
	if s.ZoneStrategy == "" {
		s.ZoneStrategy = StrategyMax
	}
	if s.AddressToleranceKm <= 0 {
		s.AddressToleranceKm = contract.DefaultAddressToleranceKm
	}
	if s.DenseSpeedThreshold <= 0 {
		s.DenseSpeedThreshold = 15
	}
	if s.RoundTripIdleMinutes <= 0 {
		s.RoundTripIdleMinutes = 120
	}
	if s.RoundTripMaxReturnKm <= 0 {
		s.RoundTripMaxReturnKm = 50
	}
	if s.MinimumDispoHours <= 0 {
		s.MinimumDispoHours = 2
	}
	return s
}

func (s Settings) location() *time.Location {
	if loc, err := time.LoadLocation(s.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

type AdvancedRateType string

const (
	RateNight   AdvancedRateType = "NIGHT"
	RateWeekend AdvancedRateType = "WEEKEND"
)

type AdjustmentType string

const (
	AdjustPercentage  AdjustmentType = "PERCENTAGE"
	AdjustFixedAmount AdjustmentType = "FIXED_AMOUNT"
)

// AdvancedRate is a time-window or day-of-week adjustment. StartTime/EndTime
// are "HH:MM" in the organization timezone; an end before the start crosses
// midnight. DaysOfWeek uses time.Weekday numbering (0 = Sunday).
type AdvancedRate struct {
	ID            types.ID         `json:"id"`
	Name          string           `json:"name"`
	Type          AdvancedRateType `json:"type"`
	Adjustment    AdjustmentType   `json:"adjustment"`
	Value         float64          `json:"value"`
	StartTime     string           `json:"startTime,omitempty"`
	EndTime       string           `json:"endTime,omitempty"`
	DaysOfWeek    []int            `json:"daysOfWeek,omitempty"`
	MinDistanceKm *float64         `json:"minDistanceKm,omitempty"`
	MaxDistanceKm *float64         `json:"maxDistanceKm,omitempty"`
	ZoneIDs       []types.ID       `json:"zoneIds,omitempty"`
	Priority      int              `json:"priority"`
	Active        bool             `json:"active"`
}

// SeasonalMultiplier applies between StartDate and EndDate inclusive
// ("YYYY-MM-DD" in the organization timezone).
type SeasonalMultiplier struct {
	ID         types.ID `json:"id"`
	Name       string   `json:"name"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Multiplier float64  `json:"multiplier"`
	Priority   int      `json:"priority"`
	Active     bool     `json:"active"`
}
