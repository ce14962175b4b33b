package discount

import (
	"errors"
	"testing"
	"time"
)

func activeDiscount(pct int) Discount {
	return Discount{Code: "HERO10", Percent: pct, Status: StatusActive}
}

func TestValidateCheckOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	limit := int64(5)

	cases := []struct {
		name string
		d    Discount
		want error
	}{
		{
			name: "inactive status wins first",
			d:    Discount{Status: StatusInactive, ExpiresAt: &past},
			want: ErrCouponInactive,
		},
		{
			name: "stored expired status reads as inactive",
			d:    Discount{Status: StatusExpired},
			want: ErrCouponInactive,
		},
		{
			name: "not yet valid",
			d:    Discount{Status: StatusActive, StartsAt: &future},
			want: ErrCouponNotYetValid,
		},
		{
			name: "expired beats limit reached",
			d: Discount{
				Status:     StatusActive,
				ExpiresAt:  &past,
				UsageCount: 5,
				MaxUsage:   &limit,
			},
			want: ErrCouponExpired,
		},
		{
			name: "limit reached",
			d: Discount{
				Status:     StatusActive,
				UsageCount: 5,
				MaxUsage:   &limit,
			},
			want: ErrCouponLimitReached,
		},
		{
			name: "valid",
			d: Discount{
				Status:    StatusActive,
				StartsAt:  &past,
				ExpiresAt: &future,
				MaxUsage:  &limit,
			},
			want: nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.d.Validate(now)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidateNilBoundsAreUnlimited(t *testing.T) {
	d := Discount{Status: StatusActive, UsageCount: 1_000_000}
	if err := d.Validate(time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPriceQuoteRoundsHalfUp(t *testing.T) {
	q := activeDiscount(10).PriceQuote(1000)
	if q.Amount != 100 {
		t.Fatalf("amount = %d, want 100", q.Amount)
	}
	if q.Code != "HERO10" || q.Percent != 10 {
		t.Fatalf("unexpected quote: %+v", q)
	}
	// 999 * 15% = 149.85 rounds up
	if q := activeDiscount(15).PriceQuote(999); q.Amount != 150 {
		t.Fatalf("amount = %d, want 150", q.Amount)
	}
}

func TestCanonicalCode(t *testing.T) {
	if got := CanonicalCode("  hero10 "); got != "HERO10" {
		t.Fatalf("canonical = %q", got)
	}
}

func TestValidatePercentageBounds(t *testing.T) {
	if err := ValidatePercentage(101); !errors.Is(err, ErrInvalidPercentage) {
		t.Fatal("expected rejection above 100")
	}
	if err := ValidatePercentage(-1); !errors.Is(err, ErrInvalidPercentage) {
		t.Fatal("expected rejection below 0")
	}
	if err := ValidatePercentage(0); err != nil {
		t.Fatalf("0 should be allowed: %v", err)
	}
}
