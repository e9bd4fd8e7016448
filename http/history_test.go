package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"propval/db"
)

func openHistoryDB(t *testing.T) {
	t.Helper()
	if err := db.InitDB(filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
}

func TestHistoryWithoutDatabase(t *testing.T) {
	db.Close()
	_, handler := testServer(t)

	for _, path := range []string{"/api/history", "/api/train/history"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestHistoryEndpoints(t *testing.T) {
	openHistoryDB(t)
	_, handler := testServer(t)

	for _, city := range []string{"Karachi", "Lahore"} {
		err := db.SavePrediction(db.PredictionEntry{
			City:           city,
			Location:       "Somewhere",
			PropertyType:   "House",
			Bedrooms:       3,
			Bathrooms:      2,
			AreaMarla:      10,
			PredictedPrice: 15_000_000,
			Confidence:     85,
			ModelType:      "random_forest",
		})
		if err != nil {
			t.Fatalf("SavePrediction: %v", err)
		}
	}
	if err := db.SaveTrainingRun(db.TrainingRun{
		ModelType:  "random_forest",
		Purpose:    "For Sale",
		DataPoints: 150,
		TrainedAt:  time.Now().UTC(),
	}); err != nil {
		t.Fatalf("SaveTrainingRun: %v", err)
	}

	var body struct {
		Count       int                  `json:"count"`
		Predictions []db.PredictionEntry `json:"predictions"`
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("count = %d", body.Count)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?city=Karachi", nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 || body.Predictions[0].City != "Karachi" {
		t.Errorf("filtered count = %d, predictions = %v", body.Count, body.Predictions)
	}

	var runs struct {
		Count int              `json:"count"`
		Runs  []db.TrainingRun `json:"runs"`
	}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/train/history", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("train history status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if runs.Count != 1 || runs.Runs[0].ModelType != "random_forest" {
		t.Errorf("runs = %+v", runs)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/history", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d", rec.Code)
	}
}

func TestHistoryLimitParsing(t *testing.T) {
	limit := func(url string) int {
		return historyLimit(httptest.NewRequest(http.MethodGet, url, nil))
	}
	if got := limit("/api/history"); got != defaultHistoryLimit {
		t.Errorf("default limit = %d", got)
	}
	if got := limit("/api/history?limit=10"); got != 10 {
		t.Errorf("limit = %d", got)
	}
	if got := limit("/api/history?limit=9999"); got != maxHistoryLimit {
		t.Errorf("capped limit = %d", got)
	}
	if got := limit("/api/history?limit=bogus"); got != defaultHistoryLimit {
		t.Errorf("bogus limit = %d", got)
	}
}

func TestTrainStatusReportsWatchers(t *testing.T) {
	SetupTraining(NewProgressHub(nil), zap.NewNop(), nil)
	t.Cleanup(func() { trainer = nil })
	_, handler := testServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/train/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status struct {
		Jobs     []json.RawMessage `json:"jobs"`
		Running  bool              `json:"running"`
		Watchers int               `json:"watchers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Running {
		t.Error("running with no jobs submitted")
	}
	if status.Watchers != 0 {
		t.Errorf("watchers = %d", status.Watchers)
	}
}
