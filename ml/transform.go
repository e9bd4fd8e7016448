package ml

import "math"

// FloorPrice is the lowest price the pipeline will ever report. A model
// extrapolating badly must not produce a non-positive or implausibly tiny
// PKR figure.
const FloorPrice = 1_000_000

// LogPrice maps a PKR price to the training target space.
func LogPrice(price float64) float64 {
	return math.Log1p(price)
}

// DisplayPrice inverts LogPrice for reporting, clamped to FloorPrice.
func DisplayPrice(logPrice float64) float64 {
	price := math.Expm1(logPrice)
	if price < FloorPrice {
		return FloorPrice
	}
	return price
}
