package ml

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"
)

// syntheticSet builds a learnable regression problem: the target is a
// noisy linear function of two of the features.
func syntheticSet(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	width := len(FeatureNames())
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, width)
		for j := range row {
			row[j] = rng.Float64() * 10
		}
		X[i] = row
		y[i] = 14 + 0.3*row[2] + 0.1*row[0] + rng.NormFloat64()*0.05
	}
	return X, y
}

func trainAndCheck(t *testing.T, model Regressor) {
	t.Helper()
	X, y := syntheticSet(300, 7)
	if err := model.Train(X, y); err != nil {
		t.Fatalf("train: %v", err)
	}
	if model.NumFeatures() != len(FeatureNames()) {
		t.Fatalf("NumFeatures = %d, want %d", model.NumFeatures(), len(FeatureNames()))
	}

	var sumErr float64
	for i, row := range X {
		pred, err := model.Predict(row)
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		sumErr += math.Abs(pred - y[i])
	}
	mae := sumErr / float64(len(X))
	if mae > 1.5 {
		t.Errorf("training MAE %v is worse than predicting the mean", mae)
	}
}

func TestRegressionTreeTrainPredict(t *testing.T) {
	trainAndCheck(t, NewRegressionTree(12))
}

func TestRandomForestTrainPredict(t *testing.T) {
	trainAndCheck(t, NewRandomForest(20, 8, 42))
}

func TestGradientBoostingTrainPredict(t *testing.T) {
	trainAndCheck(t, NewGradientBoosting(50, 4, 0.1))
}

func TestLinearModelTrainPredict(t *testing.T) {
	trainAndCheck(t, &LinearModel{})
}

func TestPredictWidthMismatch(t *testing.T) {
	X, y := syntheticSet(50, 3)
	model := NewRegressionTree(6)
	if err := model.Train(X, y); err != nil {
		t.Fatalf("train: %v", err)
	}
	if _, err := model.Predict(nil); err == nil {
		t.Fatal("expected error for wrong feature width")
	}
}

func TestModelPersistenceRoundTrip(t *testing.T) {
	X, y := syntheticSet(200, 11)
	probe := X[17]

	for _, modelType := range ModelTypes() {
		model, err := NewRegressor(modelType)
		if err != nil {
			t.Fatalf("%s: %v", modelType, err)
		}
		if err := model.Train(X, y); err != nil {
			t.Fatalf("%s train: %v", modelType, err)
		}
		before, err := model.Predict(probe)
		if err != nil {
			t.Fatalf("%s predict: %v", modelType, err)
		}

		path := filepath.Join(t.TempDir(), modelType+".model")
		if err := model.Save(path); err != nil {
			t.Fatalf("%s save: %v", modelType, err)
		}
		loaded, err := LoadRegressor(modelType, path)
		if err != nil {
			t.Fatalf("%s load: %v", modelType, err)
		}
		after, err := loaded.Predict(probe)
		if err != nil {
			t.Fatalf("%s predict after load: %v", modelType, err)
		}
		if math.Abs(before-after) > 1e-9 {
			t.Errorf("%s: prediction changed across save/load: %v vs %v", modelType, before, after)
		}
	}
}

func TestRandomForestDeterministicSeed(t *testing.T) {
	X, y := syntheticSet(150, 5)
	a := NewRandomForest(10, 6, 42)
	b := NewRandomForest(10, 6, 42)
	if err := a.Train(X, y); err != nil {
		t.Fatalf("train: %v", err)
	}
	if err := b.Train(X, y); err != nil {
		t.Fatalf("train: %v", err)
	}
	pa, _ := a.Predict(X[3])
	pb, _ := b.Predict(X[3])
	if pa != pb {
		t.Errorf("same seed produced different forests: %v vs %v", pa, pb)
	}
}

func TestNewRegressorUnknownType(t *testing.T) {
	if _, err := NewRegressor("xgboost"); err == nil {
		t.Fatal("expected error for unsupported model type")
	}
}
