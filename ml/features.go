package ml

import (
	"errors"
	"sort"
	"time"

	"propval/dataset"
)

// ReferenceMaxArea normalizes area into [0,1]; 100 Marla is the filter's
// upper bound, so the cap is only reached by the largest valid plots.
const ReferenceMaxArea = 100.0

// DefaultMedianPrice is the fallback group statistic for a city or
// location absent from the fitted aux stats.
const DefaultMedianPrice = 10_000_000

// AuxStats carries group statistics captured at fit time and injected
// unchanged at inference time. A single inference record has no
// meaningful median, so these are never recomputed per request.
type AuxStats struct {
	CityMedianPrice     map[string]float64 `json:"city_median_price"`
	LocationMedianPrice map[string]float64 `json:"location_median_price"`
}

func ComputeAuxStats(records []dataset.PropertyRecord) AuxStats {
	byCity := make(map[string][]float64)
	byLocation := make(map[string][]float64)
	for _, r := range records {
		byCity[r.City] = append(byCity[r.City], r.Price)
		byLocation[r.Location] = append(byLocation[r.Location], r.Price)
	}

	stats := AuxStats{
		CityMedianPrice:     make(map[string]float64, len(byCity)),
		LocationMedianPrice: make(map[string]float64, len(byLocation)),
	}
	for city, prices := range byCity {
		stats.CityMedianPrice[city] = median(prices)
	}
	for location, prices := range byLocation {
		stats.LocationMedianPrice[location] = median(prices)
	}
	return stats
}

func (s AuxStats) CityMedian(city string) float64 {
	if v, ok := s.CityMedianPrice[city]; ok {
		return v
	}
	return DefaultMedianPrice
}

func (s AuxStats) LocationMedian(location string) float64 {
	if v, ok := s.LocationMedianPrice[location]; ok {
		return v
	}
	return DefaultMedianPrice
}

// PropertyFeatures is the fixed feature contract shared verbatim by the
// training and inference paths. Nothing in here derives from the price
// being predicted; keeping the target out of the schema is what makes
// the contract leakage-safe by construction.
type PropertyFeatures struct {
	Bathrooms           float64
	Bedrooms            float64
	AreaMarla           float64
	TotalRooms          float64
	BathBedroomRatio    float64
	RoomDensity         float64
	AreaNormalized      float64
	PropertyAgeYears    float64
	PropertyTypeCode    float64
	CityCode            float64
	PurposeCode         float64
	LocationTarget      float64
	CityMedianPrice     float64
	LocationMedianPrice float64
}

// Compose assembles the feature vector for one record. The same function
// serves training and inference; the record's Price field is never read.
func Compose(r dataset.PropertyRecord, encoders *EncoderSet, aux AuxStats) (PropertyFeatures, error) {
	if encoders == nil {
		return PropertyFeatures{}, errors.New("encoder set is nil")
	}

	bathRatio := float64(r.Bathrooms)
	if r.Bedrooms > 0 {
		bathRatio = float64(r.Bathrooms) / float64(r.Bedrooms)
	}

	density := 0.0
	areaNorm := 0.0
	if r.AreaMarla > 0 {
		density = float64(r.TotalRooms()) / r.AreaMarla
		areaNorm = r.AreaMarla / ReferenceMaxArea
		if areaNorm > 1 {
			areaNorm = 1
		}
	}

	age := 0.0
	if r.YearBuilt > 0 {
		age = float64(time.Now().Year() - r.YearBuilt)
		if age < 0 {
			age = 0
		}
	}

	return PropertyFeatures{
		Bathrooms:           float64(r.Bathrooms),
		Bedrooms:            float64(r.Bedrooms),
		AreaMarla:           r.AreaMarla,
		TotalRooms:          float64(r.TotalRooms()),
		BathBedroomRatio:    bathRatio,
		RoomDensity:         density,
		AreaNormalized:      areaNorm,
		PropertyAgeYears:    age,
		PropertyTypeCode:    encoders.PropertyType.Transform(r.PropertyType),
		CityCode:            encoders.City.Transform(r.City),
		PurposeCode:         encoders.Purpose.Transform(r.Purpose),
		LocationTarget:      encoders.Location.Transform(r.Location),
		CityMedianPrice:     aux.CityMedian(r.City),
		LocationMedianPrice: aux.LocationMedian(r.Location),
	}, nil
}

func (f PropertyFeatures) Vector() []float64 {
	return []float64{
		f.Bathrooms,
		f.Bedrooms,
		f.AreaMarla,
		f.TotalRooms,
		f.BathBedroomRatio,
		f.RoomDensity,
		f.AreaNormalized,
		f.PropertyAgeYears,
		f.PropertyTypeCode,
		f.CityCode,
		f.PurposeCode,
		f.LocationTarget,
		f.CityMedianPrice,
		f.LocationMedianPrice,
	}
}

// FeatureNames returns the feature order. Must stay aligned with
// Vector(); the artifact loader rejects bundles whose stored list
// differs.
func FeatureNames() []string {
	return []string{
		"bathrooms",
		"bedrooms",
		"area_marla",
		"total_rooms",
		"bath_bedroom_ratio",
		"room_density",
		"area_normalized",
		"property_age_years",
		"property_type_code",
		"city_code",
		"purpose_code",
		"location_target",
		"city_median_price",
		"location_median_price",
	}
}

// BuildTrainingSet composes the full (X, y) design matrix from a cleaned
// corpus, with targets in log-price space.
func BuildTrainingSet(records []dataset.PropertyRecord, encoders *EncoderSet, aux AuxStats) ([][]float64, []float64, error) {
	if len(records) == 0 {
		return nil, nil, errors.New("no records")
	}
	X := make([][]float64, 0, len(records))
	y := make([]float64, 0, len(records))
	for _, r := range records {
		features, err := Compose(r, encoders, aux)
		if err != nil {
			return nil, nil, err
		}
		X = append(X, features.Vector())
		y = append(y, LogPrice(r.Price))
	}
	return X, y, nil
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
