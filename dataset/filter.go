package dataset

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

type FilterOptions struct {
	Purpose       string
	Cities        []string
	PropertyTypes []string

	MaxBedrooms  int
	MaxBathrooms int
	MaxAreaMarla float64

	MinRoomsPerMarla float64
	MaxRoomsPerMarla float64

	// Quantile cut applied to prices after all other stages. The
	// cut-offs shift as the population narrows, so order matters.
	LowerQuantile float64
	UpperQuantile float64
}

func DefaultFilterOptions(purpose string) FilterOptions {
	return FilterOptions{
		Purpose:          purpose,
		Cities:           ValidCities(),
		PropertyTypes:    ValidPropertyTypes(),
		MaxBedrooms:      MaxBedrooms,
		MaxBathrooms:     MaxBathrooms,
		MaxAreaMarla:     MaxAreaMarla,
		MinRoomsPerMarla: MinRoomsPerMarla,
		MaxRoomsPerMarla: MaxRoomsPerMarla,
		LowerQuantile:    0.005,
		UpperQuantile:    0.995,
	}
}

type StageCount struct {
	Stage   string `json:"stage"`
	Removed int    `json:"removed"`
}

type FilterReport struct {
	Input  int          `json:"input"`
	Output int          `json:"output"`
	Stages []StageCount `json:"stages"`
}

// Filter produces the subset of records satisfying the domain
// constraints, recording how many rows each stage removed.
func Filter(records []PropertyRecord, opts FilterOptions) ([]PropertyRecord, FilterReport) {
	report := FilterReport{Input: len(records)}
	kept := records

	apply := func(stage string, keep func(PropertyRecord) bool) {
		next := make([]PropertyRecord, 0, len(kept))
		for _, r := range kept {
			if keep(r) {
				next = append(next, r)
			}
		}
		report.Stages = append(report.Stages, StageCount{Stage: stage, Removed: len(kept) - len(next)})
		kept = next
	}

	cities := toSet(opts.Cities)
	types := toSet(opts.PropertyTypes)

	apply("purpose", func(r PropertyRecord) bool {
		return opts.Purpose == "" || r.Purpose == opts.Purpose
	})
	apply("city", func(r PropertyRecord) bool { return cities[r.City] })
	apply("property_type", func(r PropertyRecord) bool { return types[r.PropertyType] })
	apply("price_positive", func(r PropertyRecord) bool { return r.Price > 0 })
	apply("room_caps", func(r PropertyRecord) bool {
		return r.Bedrooms >= 0 && r.Bedrooms <= opts.MaxBedrooms &&
			r.Bathrooms >= 0 && r.Bathrooms <= opts.MaxBathrooms
	})
	apply("area_bounds", func(r PropertyRecord) bool {
		return r.AreaMarla > 0 && r.AreaMarla <= opts.MaxAreaMarla
	})
	apply("room_area_ratio", func(r PropertyRecord) bool {
		ratio := r.RoomsPerMarla()
		return ratio >= opts.MinRoomsPerMarla && ratio <= opts.MaxRoomsPerMarla
	})

	if len(kept) > 0 && opts.LowerQuantile > 0 && opts.UpperQuantile < 1 {
		prices := make([]float64, len(kept))
		for i, r := range kept {
			prices[i] = r.Price
		}
		sort.Float64s(prices)
		low := stat.Quantile(opts.LowerQuantile, stat.Empirical, prices, nil)
		high := stat.Quantile(opts.UpperQuantile, stat.Empirical, prices, nil)
		apply("price_quantile", func(r PropertyRecord) bool {
			return r.Price >= low && r.Price <= high
		})
	}

	report.Output = len(kept)
	return kept, report
}

// GroupRareLocations coalesces locations with fewer than minCount samples
// into the reserved OtherLocation bucket. Must run before encoder fitting
// so single-sample locations never get their own code. Returns the number
// of distinct locations that were coalesced.
func GroupRareLocations(records []PropertyRecord, minCount int) int {
	if minCount <= 0 {
		minCount = MinLocationSamples
	}
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Location]++
	}

	rare := make(map[string]bool)
	for location, count := range counts {
		if count < minCount && location != OtherLocation {
			rare[location] = true
		}
	}

	for i := range records {
		if rare[records[i].Location] {
			records[i].Location = OtherLocation
		}
	}
	return len(rare)
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
