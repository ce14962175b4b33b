package money

import "testing"

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount Amount
		pct    int
		want   Amount
	}{
		{1000, 10, 100},
		{999, 10, 100},  // 99.9 rounds up
		{994, 10, 99},   // 99.4 rounds down
		{995, 10, 100},  // exactly .5 rounds up
		{1, 10, 0},      // 0.1 rounds down
		{5, 10, 1},      // 0.5 rounds up
		{1000, 0, 0},
		{0, 50, 0},
		{-100, 10, 0},
	}
	for _, tc := range cases {
		if got := Percent(tc.amount, tc.pct); got != tc.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tc.amount, tc.pct, got, tc.want)
		}
	}
}

func TestBpsRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount Amount
		bps    int
		want   Amount
	}{
		{900, 1800, 162},
		{1000, 1800, 180},
		{1, 1800, 0},   // 0.18 rounds down
		{3, 1800, 1},   // 0.54 rounds up
		{278, 1800, 50}, // 50.04 rounds down
		{0, 1800, 0},
		{900, 0, 0},
	}
	for _, tc := range cases {
		if got := Bps(tc.amount, tc.bps); got != tc.want {
			t.Errorf("Bps(%d, %d) = %d, want %d", tc.amount, tc.bps, got, tc.want)
		}
	}
}

func TestLine(t *testing.T) {
	if got := Line(500, 2); got != 1000 {
		t.Fatalf("expected 1000, got %d", got)
	}
	if got := Line(500, -1); got != 0 {
		t.Fatalf("expected 0 for negative qty, got %d", got)
	}
}
