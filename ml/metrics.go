package ml

import (
	"errors"
	"math"
)

// EvalMetrics are computed in price space, after inverting the log
// transform. Log-space numbers would misrepresent real-world error
// magnitudes.
type EvalMetrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
	MAPE float64 `json:"mape"`
}

func Evaluate(model Regressor, features [][]float64, logTargets []float64) (EvalMetrics, error) {
	if len(features) == 0 {
		return EvalMetrics{}, errors.New("no evaluation samples")
	}
	if len(features) != len(logTargets) {
		return EvalMetrics{}, errors.New("features and targets size mismatch")
	}

	actual := make([]float64, len(logTargets))
	predicted := make([]float64, len(logTargets))
	for i, row := range features {
		pred, err := model.Predict(row)
		if err != nil {
			return EvalMetrics{}, err
		}
		actual[i] = math.Expm1(logTargets[i])
		predicted[i] = math.Expm1(pred)
	}

	n := float64(len(actual))
	meanActual := 0.0
	for _, v := range actual {
		meanActual += v
	}
	meanActual /= n

	sse := 0.0
	sst := 0.0
	absSum := 0.0
	apeSum := 0.0
	apeCount := 0.0
	for i := range actual {
		diff := predicted[i] - actual[i]
		sse += diff * diff
		absSum += math.Abs(diff)
		dev := actual[i] - meanActual
		sst += dev * dev
		if actual[i] != 0 {
			apeSum += math.Abs(diff / actual[i])
			apeCount++
		}
	}

	metrics := EvalMetrics{
		RMSE: math.Sqrt(sse / n),
		MAE:  absSum / n,
	}
	if sst > 0 {
		metrics.R2 = 1 - sse/sst
	}
	if apeCount > 0 {
		metrics.MAPE = apeSum / apeCount * 100
	}
	return metrics, nil
}
