package dataset

import "testing"

func saleHouse(city string, price, area float64, bedrooms, bathrooms int) PropertyRecord {
	return PropertyRecord{
		City:         city,
		Location:     "Test Colony",
		PropertyType: "House",
		Purpose:      PurposeForSale,
		Price:        price,
		AreaMarla:    area,
		Bedrooms:     bedrooms,
		Bathrooms:    bathrooms,
	}
}

func TestFilterStages(t *testing.T) {
	records := []PropertyRecord{
		saleHouse("Karachi", 10_000_000, 10, 3, 3),
		saleHouse("Peshawar", 10_000_000, 10, 3, 3), // unsupported city
		{City: "Lahore", Location: "X", PropertyType: "Shop", Purpose: PurposeForSale, Price: 5_000_000, AreaMarla: 5, Bedrooms: 1, Bathrooms: 1},
		saleHouse("Lahore", 0, 10, 3, 3),          // no price
		saleHouse("Lahore", 8_000_000, 10, 15, 3), // too many bedrooms
		saleHouse("Lahore", 8_000_000, 500, 3, 3), // oversized plot
		saleHouse("Lahore", 8_000_000, 100, 1, 0), // rooms per marla below floor
	}
	rent := saleHouse("Karachi", 50_000, 10, 3, 3)
	rent.Purpose = PurposeForRent
	records = append(records, rent)

	kept, report := Filter(records, DefaultFilterOptions(PurposeForSale))
	if len(kept) != 1 {
		t.Fatalf("expected 1 record to survive, got %d", len(kept))
	}
	if kept[0].City != "Karachi" {
		t.Errorf("wrong survivor: %+v", kept[0])
	}
	if report.Input != len(records) || report.Output != 1 {
		t.Errorf("report totals: %+v", report)
	}

	wantOrder := []string{"purpose", "city", "property_type", "price_positive", "room_caps", "area_bounds", "room_area_ratio"}
	if len(report.Stages) < len(wantOrder) {
		t.Fatalf("missing stages: %+v", report.Stages)
	}
	for i, stage := range wantOrder {
		if report.Stages[i].Stage != stage {
			t.Errorf("stage %d = %q, want %q", i, report.Stages[i].Stage, stage)
		}
	}
}

func TestFilterRoomAreaRatioBounds(t *testing.T) {
	in := saleHouse("Karachi", 10_000_000, 10, 3, 3)   // ratio 0.6
	low := saleHouse("Karachi", 10_000_000, 100, 1, 0) // ratio 0.01
	high := saleHouse("Karachi", 10_000_000, 4, 5, 5)  // ratio 2.5

	kept, _ := Filter([]PropertyRecord{in, low, high}, DefaultFilterOptions(PurposeForSale))
	if len(kept) != 1 || kept[0].AreaMarla != 10 {
		t.Fatalf("ratio bounds not applied: %+v", kept)
	}
}

func TestFilterPriceQuantileTrim(t *testing.T) {
	var records []PropertyRecord
	for i := 0; i < 250; i++ {
		records = append(records, saleHouse("Karachi", 5_000_000, 10, 3, 3))
	}
	records = append(records, saleHouse("Karachi", 500_000_000, 10, 3, 3))

	kept, report := Filter(records, DefaultFilterOptions(PurposeForSale))
	for _, r := range kept {
		if r.Price == 500_000_000 {
			t.Fatal("outlier price survived the quantile trim")
		}
	}
	last := report.Stages[len(report.Stages)-1]
	if last.Stage != "price_quantile" {
		t.Errorf("final stage = %q", last.Stage)
	}
	if last.Removed < 1 {
		t.Errorf("quantile stage removed %d rows", last.Removed)
	}
}

func TestGroupRareLocations(t *testing.T) {
	var records []PropertyRecord
	for i := 0; i < 25; i++ {
		r := saleHouse("Karachi", 5_000_000, 10, 3, 3)
		r.Location = "Common Block"
		records = append(records, r)
	}
	rare := saleHouse("Karachi", 5_000_000, 10, 3, 3)
	rare.Location = "One Off Street"
	records = append(records, rare)

	coalesced := GroupRareLocations(records, MinLocationSamples)
	if coalesced != 1 {
		t.Fatalf("coalesced = %d, want 1", coalesced)
	}
	if records[len(records)-1].Location != OtherLocation {
		t.Errorf("rare location kept its own key: %q", records[len(records)-1].Location)
	}
	if records[0].Location != "Common Block" {
		t.Errorf("common location was coalesced")
	}
}
