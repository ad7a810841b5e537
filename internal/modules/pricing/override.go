package pricing

import (
	"fmt"

	"chauffeur/internal/modules/cost"
	"chauffeur/internal/types"
)

const (
	CodeInvalidPrice       = "INVALID_PRICE"
	CodeMarginBelowMinimum = "MARGIN_BELOW_MINIMUM"
)

type OverrideRequest struct {
	NewPrice             float64  `json:"newPrice"`
	MinimumMarginPercent *float64 `json:"minimumMarginPercent,omitempty"`
	Reason               string   `json:"reason,omitempty"`
	By                   string   `json:"-"`
}

// OverrideError is returned to the operator as-is.
type OverrideError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *OverrideError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Override re-prices a stored result at a caller-chosen price. Internal cost
// is unchanged. On violation the original is returned with the error.
func Override(original Result, req OverrideRequest, th cost.Thresholds) (Result, *OverrideError) {
	price := types.Round2(req.NewPrice)
	if price <= 0 {
		return original, &OverrideError{
			Code:    CodeInvalidPrice,
			Message: "new price must be greater than zero",
			Details: map[string]any{"newPrice": req.NewPrice},
		}
	}

	next := original.withPrice(price, th)
	if floor := req.MinimumMarginPercent; floor != nil && next.MarginPercent < *floor {
		return original, &OverrideError{
			Code:    CodeMarginBelowMinimum,
			Message: fmt.Sprintf("margin %.2f%% is below the minimum %.2f%%", next.MarginPercent, *floor),
			Details: map[string]any{
				"newPrice":             price,
				"internalCost":         original.InternalCost,
				"marginPercent":        next.MarginPercent,
				"minimumMarginPercent": *floor,
			},
		}
	}

	next.Mode = ModeManual
	if g := original.MatchedGrid; original.Mode == ModeFixedGrid && g != nil {
		return next.appendRule(ContractPriceOverrideRule{
			GridType: string(g.Type), GridID: g.ID, ContractPrice: original.Price, PriceAfter: price,
			MarginPercentBefore: original.MarginPercent, MarginPercentAfter: next.MarginPercent,
			Reason: req.Reason, By: req.By,
		}), nil
	}
	return next.appendRule(ManualOverrideRule{
		PriceBefore: original.Price, PriceAfter: price,
		MarginPercentBefore: original.MarginPercent, MarginPercentAfter: next.MarginPercent,
		Reason: req.Reason, By: req.By,
	}), nil
}
