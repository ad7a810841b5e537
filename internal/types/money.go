// README: Common value objects (ids, points, money rounding) shared across modules.
package types

import "github.com/shopspring/decimal"

const CurrencyEUR = "EUR"

type ID string

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Round2 rounds half away from zero to 2 decimal places. The value is taken
// from its shortest decimal representation, so 1.005 rounds to 1.01.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// RoundTo rounds to the given number of decimal places (used for ratios and
// multipliers that are persisted with more precision than money).
func RoundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
