package ml

import (
	"errors"
	"fmt"
	"sort"

	"propval/dataset"
)

// DefaultSmoothing blends a location's mean log-price toward the global
// mean in proportion to its sample count. Tunable; 10 is what the final
// training runs settled on.
const DefaultSmoothing = 10.0

// LabelEncoder assigns consecutive integer codes to distinct category
// values in sorted order, so the mapping is reproducible across runs
// given the same training corpus. Fit fails loudly on empty input;
// Transform never fails: an unseen value resolves to code 0.
type LabelEncoder struct {
	Classes []string `json:"classes"`

	index map[string]int
}

func (e *LabelEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.New("no values to encode")
	}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		seen[v] = true
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	e.Classes = classes
	e.index = nil
	return nil
}

func (e *LabelEncoder) Transform(value string) float64 {
	if e.index == nil {
		e.index = make(map[string]int, len(e.Classes))
		for i, c := range e.Classes {
			e.index[c] = i
		}
	}
	if code, ok := e.index[value]; ok {
		return float64(code)
	}
	return 0
}

// TargetEncoder replaces a location with the smoothed mean of
// log1p(price) over training rows sharing that location:
//
//	code = (count*mean + smoothing*globalMean) / (count + smoothing)
//
// Unseen locations resolve to the global mean, never an error.
type TargetEncoder struct {
	Smoothing  float64            `json:"smoothing"`
	GlobalMean float64            `json:"global_mean"`
	Codes      map[string]float64 `json:"codes"`
}

func (e *TargetEncoder) Fit(categories []string, targets []float64) error {
	if len(categories) == 0 {
		return errors.New("no values to encode")
	}
	if len(categories) != len(targets) {
		return fmt.Errorf("categories/targets length mismatch: %d vs %d", len(categories), len(targets))
	}
	if e.Smoothing <= 0 {
		e.Smoothing = DefaultSmoothing
	}

	sums := make(map[string]float64)
	counts := make(map[string]float64)
	total := 0.0
	for i, c := range categories {
		sums[c] += targets[i]
		counts[c]++
		total += targets[i]
	}
	e.GlobalMean = total / float64(len(targets))

	e.Codes = make(map[string]float64, len(sums))
	for c, sum := range sums {
		count := counts[c]
		mean := sum / count
		e.Codes[c] = (count*mean + e.Smoothing*e.GlobalMean) / (count + e.Smoothing)
	}
	return nil
}

func (e *TargetEncoder) Transform(category string) float64 {
	if code, ok := e.Codes[category]; ok {
		return code
	}
	return e.GlobalMean
}

// EncoderSet holds every categorical encoder fitted over the training
// corpus. It is fitted once, serialized with the model artifacts, and
// never refit at inference time.
type EncoderSet struct {
	City         *LabelEncoder  `json:"city"`
	PropertyType *LabelEncoder  `json:"property_type"`
	Purpose      *LabelEncoder  `json:"purpose"`
	Location     *TargetEncoder `json:"location"`
}

func FitEncoderSet(records []dataset.PropertyRecord, smoothing float64) (*EncoderSet, error) {
	if len(records) == 0 {
		return nil, errors.New("no records to fit encoders")
	}

	cities := make([]string, len(records))
	types := make([]string, len(records))
	purposes := make([]string, len(records))
	locations := make([]string, len(records))
	logPrices := make([]float64, len(records))
	for i, r := range records {
		cities[i] = r.City
		types[i] = r.PropertyType
		purposes[i] = r.Purpose
		locations[i] = r.Location
		logPrices[i] = LogPrice(r.Price)
	}

	set := &EncoderSet{
		City:         &LabelEncoder{},
		PropertyType: &LabelEncoder{},
		Purpose:      &LabelEncoder{},
		Location:     &TargetEncoder{Smoothing: smoothing},
	}
	if err := set.City.Fit(cities); err != nil {
		return nil, fmt.Errorf("fit city encoder: %w", err)
	}
	if err := set.PropertyType.Fit(types); err != nil {
		return nil, fmt.Errorf("fit property_type encoder: %w", err)
	}
	if err := set.Purpose.Fit(purposes); err != nil {
		return nil, fmt.Errorf("fit purpose encoder: %w", err)
	}
	if err := set.Location.Fit(locations, logPrices); err != nil {
		return nil, fmt.Errorf("fit location encoder: %w", err)
	}
	return set, nil
}
