package pricing

import (
	"errors"
	"testing"
)

var testCfg = Config{
	TaxBps:                1800,
	StandardRate:          49,
	ExpressRate:           150,
	FreeShippingThreshold: 499,
}

func TestComputeTaxAppliedAfterDiscount(t *testing.T) {
	items := []Item{{Qty: 2, UnitPrice: 500}}
	b, err := Compute(items, ShippingStandard, 100, testCfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Subtotal != 1000 {
		t.Errorf("subtotal = %d, want 1000", b.Subtotal)
	}
	if b.Tax != 162 {
		t.Errorf("tax = %d, want round(900*0.18) = 162, not 180", b.Tax)
	}
}

func TestComputeEndToEnd(t *testing.T) {
	// cart [{price:500, qty:2}], HERO10 (10%), standard shipping over threshold
	items := []Item{{Qty: 2, UnitPrice: 500}}
	b, err := Compute(items, ShippingStandard, 100, testCfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Breakdown{Subtotal: 1000, Discount: 100, Shipping: 0, Tax: 162, Total: 1062}
	if b != want {
		t.Fatalf("breakdown = %+v, want %+v", b, want)
	}
}

func TestShippingCosts(t *testing.T) {
	cases := []struct {
		method   ShippingMethod
		subtotal int64
		want     int64
	}{
		{ShippingStandard, 400, 49},  // under threshold
		{ShippingStandard, 499, 49},  // at threshold, still charged
		{ShippingStandard, 500, 0},   // above threshold, free
		{ShippingExpress, 400, 150},  // express ignores threshold
		{ShippingExpress, 10_000, 150},
	}
	for _, tc := range cases {
		got, err := testCfg.ShippingCost(tc.method, tc.subtotal)
		if err != nil {
			t.Fatalf("%s/%d: %v", tc.method, tc.subtotal, err)
		}
		if got != tc.want {
			t.Errorf("ShippingCost(%s, %d) = %d, want %d", tc.method, tc.subtotal, got, tc.want)
		}
	}
}

func TestComputeRejectsUnknownShippingMethod(t *testing.T) {
	_, err := Compute(nil, "overnight", 0, testCfg)
	if !errors.Is(err, ErrInvalidShippingMethod) {
		t.Fatalf("expected ErrInvalidShippingMethod, got %v", err)
	}
}

func TestParseShippingMethod(t *testing.T) {
	if m, err := ParseShippingMethod(" Express "); err != nil || m != ShippingExpress {
		t.Fatalf("parse express: %v %v", m, err)
	}
	if _, err := ParseShippingMethod("pigeon"); !errors.Is(err, ErrInvalidShippingMethod) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestComputeDiscountNeverExceedsSubtotal(t *testing.T) {
	items := []Item{{Qty: 1, UnitPrice: 100}}
	b, err := Compute(items, ShippingExpress, 500, testCfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Discount != 100 {
		t.Errorf("discount = %d, want capped at 100", b.Discount)
	}
	if b.Total != 150 {
		t.Errorf("total = %d, want shipping only", b.Total)
	}
	if b.Total < 0 {
		t.Error("total must never be negative")
	}
}

func TestComputeSkipsNonPositiveLines(t *testing.T) {
	items := []Item{{Qty: 0, UnitPrice: 500}, {Qty: -2, UnitPrice: 500}, {Qty: 1, UnitPrice: 250}}
	b, err := Compute(items, ShippingExpress, 0, testCfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Subtotal != 250 {
		t.Fatalf("subtotal = %d, want 250", b.Subtotal)
	}
}
