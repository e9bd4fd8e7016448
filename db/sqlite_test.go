package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"propval/dataset"
	"propval/ml"
)

func openTestDB(t *testing.T) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	if err := InitDB(path); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { Close() })
}

func TestSaveAndQueryPredictions(t *testing.T) {
	openTestDB(t)

	entry := PredictionEntry{
		City:           "Karachi",
		Location:       "Clifton",
		PropertyType:   "House",
		Bedrooms:       3,
		Bathrooms:      3,
		AreaMarla:      10,
		PredictedPrice: 18_000_000,
		Confidence:     85,
		ModelType:      "random_forest",
	}
	if err := SavePrediction(entry); err != nil {
		t.Fatalf("SavePrediction: %v", err)
	}

	got, err := QueryPredictions("Karachi", 10)
	if err != nil {
		t.Fatalf("QueryPredictions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries", len(got))
	}
	if got[0].PredictedPrice != 18_000_000 || got[0].ModelType != "random_forest" {
		t.Errorf("entry round trip: %+v", got[0])
	}

	// Empty city filter returns everything.
	all, err := QueryPredictions("", 10)
	if err != nil {
		t.Fatalf("QueryPredictions(all): %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d entries for empty filter", len(all))
	}

	none, err := QueryPredictions("Lahore", 10)
	if err != nil {
		t.Fatalf("QueryPredictions(Lahore): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d entries for other city", len(none))
	}
}

func TestSaveListings(t *testing.T) {
	openTestDB(t)

	records := []dataset.PropertyRecord{
		{City: "Karachi", Location: "Clifton", PropertyType: "House", Purpose: dataset.PurposeForSale, Price: 20_000_000, AreaMarla: 10, Bedrooms: 3, Bathrooms: 3},
		{City: "Lahore", Location: "Gulberg", PropertyType: "Flat", Purpose: dataset.PurposeForSale, Price: 8_000_000, AreaMarla: 5, Bedrooms: 2, Bathrooms: 2},
	}
	if err := SaveListings(records); err != nil {
		t.Fatalf("SaveListings: %v", err)
	}

	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM listings").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d", count)
	}
}

func TestSaveAndQueryTrainingRuns(t *testing.T) {
	openTestDB(t)

	run := TrainingRun{
		ModelType:  "gradient_boosting",
		Purpose:    dataset.PurposeForSale,
		Metrics:    ml.EvalMetrics{RMSE: 2_000_000, MAE: 1_200_000, R2: 0.82, MAPE: 14.5},
		CVMeanR2:   0.80,
		CVStdR2:    0.015,
		CVVerdict:  "low variance",
		DataPoints: 90_000,
		TrainedAt:  time.Now().UTC(),
	}
	if err := SaveTrainingRun(run); err != nil {
		t.Fatalf("SaveTrainingRun: %v", err)
	}

	runs, err := QueryTrainingRuns(5)
	if err != nil {
		t.Fatalf("QueryTrainingRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs", len(runs))
	}
	if runs[0].ModelType != "gradient_boosting" || runs[0].Metrics.R2 != 0.82 {
		t.Errorf("run round trip: %+v", runs[0])
	}
	if runs[0].CVVerdict != "low variance" {
		t.Errorf("verdict = %q", runs[0].CVVerdict)
	}
}

func TestUninitializedDatabase(t *testing.T) {
	prev := database
	database = nil
	t.Cleanup(func() { database = prev })

	if Initialized() {
		t.Fatal("Initialized() = true with no handle")
	}
	if err := SavePrediction(PredictionEntry{City: "Karachi"}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("SavePrediction error = %v", err)
	}
	if err := SaveListings([]dataset.PropertyRecord{{City: "Karachi"}}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("SaveListings error = %v", err)
	}
	if err := SaveTrainingRun(TrainingRun{ModelType: "linear"}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("SaveTrainingRun error = %v", err)
	}
	if _, err := QueryPredictions("", 10); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("QueryPredictions error = %v", err)
	}
	if _, err := QueryTrainingRuns(10); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("QueryTrainingRuns error = %v", err)
	}
}
