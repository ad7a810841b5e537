package route

import (
	"math"
	"testing"

	"chauffeur/internal/modules/zone"
	"chauffeur/internal/types"
)

func band(id, code string, minLng, maxLng, multiplier, surcharge float64) zone.Zone {
	return zone.Zone{
		ID: types.ID(id), Code: code, Kind: zone.KindPolygon, Active: true,
		PriceMultiplier: multiplier, Surcharge: surcharge,
		Ring: []types.Point{
			{Lat: 0, Lng: minLng}, {Lat: 0, Lng: maxLng}, {Lat: 1, Lng: maxLng}, {Lat: 1, Lng: minLng},
		},
	}
}

func threeBands() *zone.Resolver {
	return zone.NewResolver([]zone.Zone{
		band("a", "A", 0, 2, 1.0, 0),
		band("b", "B", 2, 4, 1.2, 0),
		band("c", "C", 4, 6, 1.5, 0),
	}, nil)
}

func closeTo(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestSegment_ContiguousSpansAndWeightedMultiplier(t *testing.T) {
	path := []types.Point{
		{Lat: 0.5, Lng: 0.5}, {Lat: 0.5, Lng: 1.5}, {Lat: 0.5, Lng: 2.6},
		{Lat: 0.5, Lng: 3.5}, {Lat: 0.5, Lng: 4.6}, {Lat: 0.5, Lng: 5.5},
	}
	seg := Segment(path, threeBands(), 50, 60)

	if seg.Method != MethodPolyline {
		t.Fatalf("Method = %s", seg.Method)
	}
	if len(seg.Spans) != 3 {
		t.Fatalf("expected 3 merged spans, got %d: %+v", len(seg.Spans), seg.Spans)
	}
	wantKm := []float64{10, 20, 20}
	for i, s := range seg.Spans {
		if !closeTo(s.DistanceKm, wantKm[i], 0.01) {
			t.Errorf("span %d distance = %v, want %v", i, s.DistanceKm, wantKm[i])
		}
	}
	if !closeTo(seg.WeightedMultiplier, 1.28, 0.001) {
		t.Fatalf("WeightedMultiplier = %v, want 1.28", seg.WeightedMultiplier)
	}
	if len(seg.ZonesTraversed) != 3 {
		t.Fatalf("ZonesTraversed = %v", seg.ZonesTraversed)
	}
}

func TestSegment_UnzonedStretchIsNeutral(t *testing.T) {
	r := zone.NewResolver([]zone.Zone{band("a", "A", 0, 1, 2.0, 0)}, nil)
	path := []types.Point{{Lat: 0.5, Lng: 0.2}, {Lat: 0.5, Lng: 0.8}, {Lat: 0.5, Lng: 1.4}}
	seg := Segment(path, r, 0, 0)

	if len(seg.Spans) != 2 || seg.Spans[1].ZoneID != "" || seg.Spans[1].Multiplier != 1 {
		t.Fatalf("unexpected spans: %+v", seg.Spans)
	}
	// equal halves: (2.0 + 1.0) / 2
	if !closeTo(seg.WeightedMultiplier, 1.5, 0.001) {
		t.Fatalf("WeightedMultiplier = %v", seg.WeightedMultiplier)
	}
	if len(seg.ZonesTraversed) != 1 {
		t.Fatalf("unzoned stretch must not count as a zone: %v", seg.ZonesTraversed)
	}
}

func TestFinish_SurchargeOncePerZone(t *testing.T) {
	seg := finish(MethodPolyline, []Span{
		{ZoneID: "a", DistanceKm: 1, Multiplier: 1, Surcharge: 5},
		{ZoneID: "b", DistanceKm: 1, Multiplier: 1, Surcharge: 2.5},
		{ZoneID: "a", DistanceKm: 1, Multiplier: 1, Surcharge: 5},
	})
	if seg.TotalSurcharge != 7.5 {
		t.Fatalf("TotalSurcharge = %v, want 7.5", seg.TotalSurcharge)
	}
	if len(seg.ZonesTraversed) != 2 {
		t.Fatalf("ZonesTraversed = %v", seg.ZonesTraversed)
	}
}

func TestFallbackSegment(t *testing.T) {
	a := band("a", "A", 0, 2, 1.1, 0)
	b := band("b", "B", 2, 4, 1.3, 0)

	same := FallbackSegment(&a, &a, 10, 20)
	if len(same.Spans) != 1 || same.WeightedMultiplier != 1.1 || same.Method != MethodFallback {
		t.Fatalf("same zone: %+v", same)
	}

	split := FallbackSegment(&a, &b, 10, 20)
	if len(split.Spans) != 2 || split.Spans[0].DistanceKm != 5 || split.Spans[1].DurationMinutes != 10 {
		t.Fatalf("split: %+v", split.Spans)
	}
	if split.WeightedMultiplier != 1.2 {
		t.Fatalf("WeightedMultiplier = %v, want 1.2", split.WeightedMultiplier)
	}

	unzoned := FallbackSegment(nil, nil, 10, 20)
	if len(unzoned.Spans) != 1 || unzoned.WeightedMultiplier != 1 || len(unzoned.ZonesTraversed) != 0 {
		t.Fatalf("unzoned: %+v", unzoned)
	}
}

func TestIsTransversal(t *testing.T) {
	twoZones := Segmentation{ZonesTraversed: []types.ID{"a", "b"}}
	if IsTransversal(twoZones, "a", "b") {
		t.Fatal("{A,B} is never transversal")
	}
	threeZones := Segmentation{ZonesTraversed: []types.ID{"a", "b", "c"}}
	if !IsTransversal(threeZones, "a", "c") {
		t.Fatal("{A,B,C} with pickup A and dropoff C is transversal")
	}
}

func transversalSpans() Segmentation {
	return finish(MethodPolyline, []Span{
		{ZoneID: "a", ZoneCode: "A", DistanceKm: 10, DurationMinutes: 12, Multiplier: 1.0},
		{ZoneID: "b", ZoneCode: "B", DistanceKm: 20, DurationMinutes: 24, Multiplier: 1.2},
		{ZoneID: "c", ZoneCode: "C", DistanceKm: 20, DurationMinutes: 24, Multiplier: 1.5},
	})
}

func TestDecompose_TransitDiscountOnlyForAllowListedMiddleZone(t *testing.T) {
	params := DecompositionParams{
		RatePerKm: 2.5, RatePerHour: 45, TargetMarginPercent: 20,
		TransitDiscountPercent: 10, TransitZoneCodes: []string{"B"},
	}
	d := Decompose(transversalSpans(), "a", "c", params)

	// A: 25*1.0*1.2 = 30, B: 50*1.2*1.2 = 72, C: 50*1.5*1.2 = 90
	wantPrices := []float64{30, 72, 90}
	for i, s := range d.Spans {
		if s.Price != wantPrices[i] {
			t.Errorf("span %s price = %v, want %v", s.ZoneCode, s.Price, wantPrices[i])
		}
	}
	if !d.Spans[1].IsTransit || d.Spans[1].TransitDiscount != 7.2 {
		t.Fatalf("B must be discounted: %+v", d.Spans[1])
	}
	if d.Spans[0].TransitDiscount != 0 || d.Spans[2].TransitDiscount != 0 {
		t.Fatal("pickup and dropoff zones are never discounted")
	}
	if d.Subtotal != 192 || d.TotalDiscount != 7.2 || d.Total != 184.8 {
		t.Fatalf("totals = %v - %v = %v", d.Subtotal, d.TotalDiscount, d.Total)
	}
}

func TestDecompose_NotAllowListedNoDiscount(t *testing.T) {
	params := DecompositionParams{RatePerKm: 2.5, RatePerHour: 45, TargetMarginPercent: 20, TransitDiscountPercent: 10}
	d := Decompose(transversalSpans(), "a", "c", params)
	if !d.Spans[1].IsTransit {
		t.Fatal("B is still a transit zone")
	}
	if d.TotalDiscount != 0 || d.Total != 192 {
		t.Fatalf("no discount expected: %+v", d)
	}
}
