package ml

import (
	"math"
	"testing"
)

func TestLogPriceRoundTrip(t *testing.T) {
	for _, price := range []float64{1_500_000, 10_000_000, 250_000_000} {
		back := math.Expm1(LogPrice(price))
		if math.Abs(back-price)/price > 1e-9 {
			t.Errorf("round trip %v -> %v", price, back)
		}
	}
}

func TestDisplayPriceFloor(t *testing.T) {
	// A wildly low log prediction still surfaces as the display floor.
	if got := DisplayPrice(math.Log1p(50_000)); got != FloorPrice {
		t.Errorf("DisplayPrice below floor = %v, want %v", got, FloorPrice)
	}
	if got := DisplayPrice(math.Log1p(25_000_000)); math.Abs(got-25_000_000) > 1 {
		t.Errorf("DisplayPrice above floor = %v", got)
	}
}
