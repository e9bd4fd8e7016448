package predict

import (
	"errors"
	"fmt"
	"strings"

	"propval/dataset"
)

// ErrValidation marks user-correctable request problems. Field errors
// are aggregated into one joined message, not returned one at a time.
var ErrValidation = errors.New("validation failed")

type Payload struct {
	PropertyType string  `json:"propertyType"`
	City         string  `json:"city"`
	Location     string  `json:"location,omitempty"`
	AreaMarla    float64 `json:"areaMarla"`
	Bedrooms     int     `json:"bedrooms"`
	Bathrooms    int     `json:"bathrooms"`
	Purpose      string  `json:"purpose,omitempty"`
}

// ValidatePayload checks every field and returns the cleaned payload.
// Missing purpose defaults to "For Sale" and missing location to the
// reserved Other_Location bucket; those are not errors.
func ValidatePayload(p Payload) (Payload, error) {
	var problems []string

	p.PropertyType = strings.TrimSpace(p.PropertyType)
	if !contains(dataset.ValidPropertyTypes(), p.PropertyType) {
		problems = append(problems, fmt.Sprintf("invalid propertyType, must be one of: %s", strings.Join(dataset.ValidPropertyTypes(), ", ")))
	}

	p.City = strings.TrimSpace(p.City)
	if !contains(dataset.ValidCities(), p.City) {
		problems = append(problems, fmt.Sprintf("invalid city, must be one of: %s", strings.Join(dataset.ValidCities(), ", ")))
	}

	if p.AreaMarla <= 0 {
		problems = append(problems, "areaMarla must be greater than 0")
	} else if p.AreaMarla > dataset.MaxAreaMarla {
		problems = append(problems, fmt.Sprintf("areaMarla cannot exceed %.0f Marla", float64(dataset.MaxAreaMarla)))
	}

	if p.Bedrooms < 0 {
		problems = append(problems, "bedrooms cannot be negative")
	} else if p.Bedrooms > dataset.MaxBedrooms {
		problems = append(problems, fmt.Sprintf("bedrooms cannot exceed %d", dataset.MaxBedrooms))
	}

	if p.Bathrooms < 0 {
		problems = append(problems, "bathrooms cannot be negative")
	} else if p.Bathrooms > dataset.MaxBathrooms {
		problems = append(problems, fmt.Sprintf("bathrooms cannot exceed %d", dataset.MaxBathrooms))
	}

	if strings.TrimSpace(p.Location) == "" {
		p.Location = dataset.OtherLocation
	} else {
		p.Location = dataset.CanonicalLocation(p.Location)
	}

	if !contains(dataset.ValidPurposes(), p.Purpose) {
		p.Purpose = dataset.PurposeForSale
	}

	if len(problems) > 0 {
		return Payload{}, fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return p, nil
}

// checkRoomAreaRatio applies the same data-entry sanity bound the
// training filter uses; a request outside it would be answered from a
// region of feature space the model never saw.
func checkRoomAreaRatio(p Payload) error {
	ratio := float64(p.Bedrooms+p.Bathrooms) / p.AreaMarla
	if ratio < dataset.MinRoomsPerMarla {
		return fmt.Errorf("%w: too few rooms for area, minimum %.2f rooms/Marla, got %.2f", ErrValidation, dataset.MinRoomsPerMarla, ratio)
	}
	if ratio > dataset.MaxRoomsPerMarla {
		return fmt.Errorf("%w: too many rooms for area, maximum %.2f rooms/Marla, got %.2f", ErrValidation, dataset.MaxRoomsPerMarla, ratio)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
