package ml

import (
	"math"
	"math/rand"
	"testing"

	"propval/dataset"
)

// saleCorpus generates a filtered-looking corpus where every record
// shares the same purpose, the way records arrive after the validity
// filter.
func saleCorpus(n int) []dataset.PropertyRecord {
	rng := rand.New(rand.NewSource(7))
	cities := []string{"Karachi", "Lahore", "Islamabad"}
	types := []string{"House", "Flat"}
	locations := []string{"Clifton", "Gulberg", "Dha Phase 5", "Bahria Town"}

	records := make([]dataset.PropertyRecord, 0, n)
	for i := 0; i < n; i++ {
		area := 3 + rng.Float64()*17
		records = append(records, dataset.PropertyRecord{
			City:         cities[rng.Intn(len(cities))],
			Location:     locations[rng.Intn(len(locations))],
			PropertyType: types[rng.Intn(len(types))],
			Purpose:      dataset.PurposeForSale,
			Bedrooms:     2 + rng.Intn(4),
			Bathrooms:    1 + rng.Intn(3),
			AreaMarla:    area,
			Price:        area*1_800_000 + rng.Float64()*500_000,
		})
	}
	return records
}

// The composed contract carries a constant purpose column, a rescaled
// copy of the area column, and a room total that is the sum of two
// other columns. Training on it must still produce finite coefficients.
func TestLinearTrainOnComposedFeatures(t *testing.T) {
	records := saleCorpus(120)
	encoders, err := FitEncoderSet(records, DefaultSmoothing)
	if err != nil {
		t.Fatalf("FitEncoderSet: %v", err)
	}
	aux := ComputeAuxStats(records)
	X, y, err := BuildTrainingSet(records, encoders, aux)
	if err != nil {
		t.Fatalf("BuildTrainingSet: %v", err)
	}

	model := &LinearModel{}
	if err := model.Train(X, y); err != nil {
		t.Fatalf("Train: %v", err)
	}
	for i, c := range model.Coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			t.Fatalf("coefficient %d is not finite: %v", i, c)
		}
	}

	pred, err := model.Predict(X[0])
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if math.IsNaN(pred) || math.IsInf(pred, 0) {
		t.Fatalf("prediction is not finite: %v", pred)
	}
	if pred < 10 || pred > 25 {
		t.Errorf("prediction %v outside plausible log-price range", pred)
	}
}

func TestIndependentColumnsDropsDependent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 50
	X := make([][]float64, n)
	for i := range X {
		a := rng.Float64() * 20
		b := rng.Float64() * 10
		// col1 is constant, col2 a rescaled copy of col0, col4 the
		// sum of col0 and col3.
		X[i] = []float64{a, 1.5, a / 100, b, a + b}
	}

	kept := independentColumns(X)
	want := []int{0, 3}
	if len(kept) != len(want) {
		t.Fatalf("kept = %v, want %v", kept, want)
	}
	for i := range want {
		if kept[i] != want[i] {
			t.Fatalf("kept = %v, want %v", kept, want)
		}
	}
}

func TestLinearTrainAllConstantColumns(t *testing.T) {
	X := make([][]float64, 20)
	y := make([]float64, 20)
	for i := range X {
		X[i] = []float64{1, 2, 3}
		y[i] = float64(i)
	}
	model := &LinearModel{}
	if err := model.Train(X, y); err == nil {
		t.Fatal("expected error for rank-zero design matrix")
	}
}
