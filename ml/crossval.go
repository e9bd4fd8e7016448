package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Fold-to-fold R² standard deviation thresholds for the variance
// verdict. Heuristic, overridable by callers that need different bars.
const (
	LowVarianceThreshold  = 0.02
	HighVarianceThreshold = 0.05
)

type CVResult struct {
	FoldR2  []float64 `json:"fold_r2"`
	MeanR2  float64   `json:"mean_r2"`
	StdR2   float64   `json:"std_r2"`
	Verdict string    `json:"verdict"`
}

// CrossValidate runs shuffled K-fold validation as an overfitting
// diagnostic. It uses fresh models from newModel per fold and never
// touches the final model; the held-out train/test split for reported
// metrics is separate.
func CrossValidate(newModel func() Regressor, features [][]float64, targets []float64, k int, seed int64) (CVResult, error) {
	if len(features) == 0 || len(features) != len(targets) {
		return CVResult{}, errors.New("invalid cross-validation inputs")
	}
	if k < 2 {
		k = 5
	}
	if len(features) < k {
		return CVResult{}, fmt.Errorf("need at least %d samples for %d folds", k, k)
	}

	indices := shuffledIndices(len(features), seed)

	result := CVResult{FoldR2: make([]float64, 0, k)}
	foldSize := len(indices) / k
	for fold := 0; fold < k; fold++ {
		start := fold * foldSize
		end := start + foldSize
		if fold == k-1 {
			end = len(indices)
		}

		trainX := make([][]float64, 0, len(indices)-(end-start))
		trainY := make([]float64, 0, len(indices)-(end-start))
		testX := make([][]float64, 0, end-start)
		testY := make([]float64, 0, end-start)
		for i, idx := range indices {
			if i >= start && i < end {
				testX = append(testX, features[idx])
				testY = append(testY, targets[idx])
			} else {
				trainX = append(trainX, features[idx])
				trainY = append(trainY, targets[idx])
			}
		}

		model := newModel()
		if err := model.Train(trainX, trainY); err != nil {
			return CVResult{}, fmt.Errorf("fold %d: %w", fold, err)
		}
		metrics, err := Evaluate(model, testX, testY)
		if err != nil {
			return CVResult{}, fmt.Errorf("fold %d: %w", fold, err)
		}
		result.FoldR2 = append(result.FoldR2, metrics.R2)
	}

	result.MeanR2 = mean(result.FoldR2)
	result.StdR2 = math.Sqrt(variance(result.FoldR2))
	switch {
	case result.StdR2 < LowVarianceThreshold:
		result.Verdict = "low variance"
	case result.StdR2 > HighVarianceThreshold:
		result.Verdict = "high variance"
	default:
		result.Verdict = "moderate variance"
	}
	return result, nil
}

// TrainTestSplit produces the held-out split used for final reported
// metrics, shuffled with a fixed seed.
func TrainTestSplit(features [][]float64, targets []float64, testRatio float64, seed int64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	indices := shuffledIndices(len(features), seed)
	testCount := int(float64(len(indices)) * testRatio)

	for i, idx := range indices {
		if i < testCount {
			testX = append(testX, features[idx])
			testY = append(testY, targets[idx])
		} else {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, targets[idx])
		}
	}
	return trainX, trainY, testX, testY
}

func shuffledIndices(n int, seed int64) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices
}
