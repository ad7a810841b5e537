package pricing

import (
	"context"
	"testing"

	"chauffeur/internal/modules/contract"
	"chauffeur/internal/modules/cost"
)

func dynamicResult(t *testing.T) Result {
	t.Helper()
	r, err := NewEngine(nil, nil, nil, EngineConfig{}).Price(context.Background(), engineSnapshot(), parisRequest())
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	return r
}

func TestOverride(t *testing.T) {
	th := cost.DefaultThresholds()
	original := dynamicResult(t)

	cases := []struct {
		name      string
		req       OverrideRequest
		wantCode  string
		wantPrice float64
		wantMode  Mode
	}{
		{"zero price", OverrideRequest{NewPrice: 0}, CodeInvalidPrice, 33, ModeDynamic},
		{"negative price", OverrideRequest{NewPrice: -5}, CodeInvalidPrice, 33, ModeDynamic},
		{"below minimum margin", OverrideRequest{NewPrice: 14, MinimumMarginPercent: f(20)}, CodeMarginBelowMinimum, 33, ModeDynamic},
		{"accepted", OverrideRequest{NewPrice: 40, Reason: "loyal customer", By: "u1"}, "", 40, ModeManual},
		{"accepted at a loss without minimum", OverrideRequest{NewPrice: 10}, "", 10, ModeManual},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, oerr := Override(original, tc.req, th)
			if tc.wantCode != "" {
				if oerr == nil || oerr.Code != tc.wantCode {
					t.Fatalf("err = %v, want %s", oerr, tc.wantCode)
				}
			} else if oerr != nil {
				t.Fatalf("unexpected error: %v", oerr)
			}
			if got.Price != tc.wantPrice || got.Mode != tc.wantMode {
				t.Fatalf("got %s %v, want %s %v", got.Mode, got.Price, tc.wantMode, tc.wantPrice)
			}
			if got.InternalCost != original.InternalCost {
				t.Fatalf("internal cost changed: %v", got.InternalCost)
			}
		})
	}
}

func TestOverride_RecomputesMarginAndRecordsRule(t *testing.T) {
	original := dynamicResult(t)
	got, oerr := Override(original, OverrideRequest{NewPrice: 40, Reason: "loyal customer", By: "u1"}, cost.DefaultThresholds())
	if oerr != nil {
		t.Fatalf("Override: %v", oerr)
	}
	if got.Margin != 27.06 || got.MarginPercent != 67.65 || got.Profitability != cost.Green {
		t.Fatalf("margin = %v %v %s", got.Margin, got.MarginPercent, got.Profitability)
	}
	mr := got.AppliedRules.Of(KindManualOverride)
	if len(mr) != 1 {
		t.Fatalf("rules = %+v", got.AppliedRules)
	}
	rule := mr[0].(ManualOverrideRule)
	if rule.PriceBefore != 33 || rule.PriceAfter != 40 || rule.By != "u1" || rule.Reason != "loyal customer" {
		t.Fatalf("rule = %+v", rule)
	}
	if len(original.AppliedRules.Of(KindManualOverride)) != 0 {
		t.Fatal("original trail modified")
	}
}

func TestOverride_MarginDetails(t *testing.T) {
	_, oerr := Override(dynamicResult(t), OverrideRequest{NewPrice: 14, MinimumMarginPercent: f(20)}, cost.DefaultThresholds())
	if oerr == nil {
		t.Fatal("expected rejection")
	}
	// (14 - 12.94) / 14
	if oerr.Details["marginPercent"] != 7.57 || oerr.Details["internalCost"] != 12.94 {
		t.Fatalf("details = %+v", oerr.Details)
	}
}

func TestOverride_GridPriceRecordsContractOverride(t *testing.T) {
	original := Result{
		Mode:         ModeFixedGrid,
		Price:        75,
		InternalCost: 12.94,
		MatchedGrid:  &contract.Match{Type: contract.GridZoneRoute, ID: "r1", Name: "Paris intra-muros", FixedPrice: 80, Price: 75},
	}
	got, oerr := Override(original, OverrideRequest{NewPrice: 70}, cost.DefaultThresholds())
	if oerr != nil {
		t.Fatalf("Override: %v", oerr)
	}
	if got.Mode != ModeManual || got.AppliedRules.Has(KindManualOverride) {
		t.Fatalf("got %s %+v", got.Mode, got.AppliedRules)
	}
	cr := got.AppliedRules.Of(KindContractPriceOverride)
	if len(cr) != 1 {
		t.Fatalf("rules = %+v", got.AppliedRules)
	}
	rule := cr[0].(ContractPriceOverrideRule)
	if rule.GridID != "r1" || rule.ContractPrice != 75 || rule.PriceAfter != 70 || rule.GridType != string(contract.GridZoneRoute) {
		t.Fatalf("rule = %+v", rule)
	}
}
