// README: Vehicle categories, vehicles and their operating bases.
package vehicle

import "chauffeur/internal/types"

type RegulatoryClass string

const (
	ClassLight RegulatoryClass = "LIGHT"
	ClassHeavy RegulatoryClass = "HEAVY"
)

type Category struct {
	ID                   types.ID        `json:"id"`
	Code                 string          `json:"code"`
	Name                 string          `json:"name"`
	MaxPassengers        int             `json:"maxPassengers"`
	MaxLuggage           int             `json:"maxLuggage"`
	PriceMultiplier      float64         `json:"priceMultiplier"`
	RatePerKm            *float64        `json:"ratePerKm,omitempty"`
	RatePerHour          *float64        `json:"ratePerHour,omitempty"`
	AvgConsumptionL100km *float64        `json:"avgConsumptionL100km,omitempty"`
	FuelType             string          `json:"fuelType"`
	RegulatoryClass      RegulatoryClass `json:"regulatoryClass"`
}

func (c Category) Multiplier() float64 {
	if c.PriceMultiplier <= 0 {
		return 1.0
	}
	return c.PriceMultiplier
}

type Base struct {
	ID       types.ID    `json:"id"`
	Name     string      `json:"name"`
	Location types.Point `json:"location"`
}

type Vehicle struct {
	ID                types.ID `json:"id"`
	Registration      string   `json:"registration"`
	CategoryID        types.ID `json:"categoryId"`
	Base              Base     `json:"base"`
	PassengerCapacity int      `json:"passengerCapacity"`
	LuggageCapacity   int      `json:"luggageCapacity"`
	ConsumptionL100km *float64 `json:"consumptionL100km,omitempty"`
	Active            bool     `json:"active"`
}

// Fits reports whether the vehicle can carry the party: a seat per passenger
// and a luggage slot per bag. A party that fits never exceeds the combined
// capacity PassengerCapacity + LuggageCapacity.
func (v Vehicle) Fits(passengers, luggage int) bool {
	return passengers <= v.PassengerCapacity && luggage <= v.LuggageCapacity
}
