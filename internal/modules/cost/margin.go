package cost

import "chauffeur/internal/types"

type Profitability string

const (
	Green  Profitability = "green"
	Orange Profitability = "orange"
	Red    Profitability = "red"
)

// Thresholds are margin percentages: >= Green is green, >= Orange is orange,
// anything lower is red.
type Thresholds struct {
	Green  float64 `json:"green"`
	Orange float64 `json:"orange"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Green: 20, Orange: 0}
}

func Classify(marginPercent float64, th Thresholds) Profitability {
	switch {
	case marginPercent >= th.Green:
		return Green
	case marginPercent >= th.Orange:
		return Orange
	default:
		return Red
	}
}

type Margin struct {
	Margin        float64       `json:"margin"`
	MarginPercent float64       `json:"marginPercent"`
	Profitability Profitability `json:"profitability"`
}

// ComputeMargin derives margin, margin % and the indicator from a price and
// an internal cost. A non-positive price yields a 0% margin.
func ComputeMargin(price, internalCost float64, th Thresholds) Margin {
	m := types.Round2(price - internalCost)
	pct := 0.0
	if price > 0 {
		pct = types.Round2(m / price * 100)
	}
	return Margin{Margin: m, MarginPercent: pct, Profitability: Classify(pct, th)}
}
