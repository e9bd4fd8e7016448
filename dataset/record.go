package dataset

import "time"

const (
	PurposeForSale = "For Sale"
	PurposeForRent = "For Rent"

	// OtherLocation is the reserved bucket for locations with too few
	// samples to carry their own encoder code.
	OtherLocation = "Other_Location"

	MinRoomsPerMarla = 0.15
	MaxRoomsPerMarla = 1.8

	MaxBedrooms  = 10
	MaxBathrooms = 10
	MaxAreaMarla = 100.0

	// MinLocationSamples is the threshold below which a location is
	// coalesced into OtherLocation before any encoder is fit.
	MinLocationSamples = 20
)

type PropertyRecord struct {
	City         string
	Location     string
	PropertyType string
	Purpose      string
	Bedrooms     int
	Bathrooms    int
	AreaMarla    float64
	Price        float64
	YearBuilt    int
	Latitude     float64
	Longitude    float64
	DateAdded    time.Time
}

func (r PropertyRecord) TotalRooms() int {
	return r.Bedrooms + r.Bathrooms
}

// RoomsPerMarla is the data-entry sanity ratio used by the validity
// filter. Returns 0 when the area is non-positive.
func (r PropertyRecord) RoomsPerMarla() float64 {
	if r.AreaMarla <= 0 {
		return 0
	}
	return float64(r.TotalRooms()) / r.AreaMarla
}

func ValidCities() []string {
	return []string{"Karachi", "Lahore", "Islamabad"}
}

func ValidPropertyTypes() []string {
	return []string{"House", "Flat", "Penthouse"}
}

func ValidPurposes() []string {
	return []string{PurposeForSale, PurposeForRent}
}
