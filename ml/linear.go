package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/sajari/regression"
)

// LinearModel is an ordinary least squares fit over the feature vector.
// Training delegates to sajari/regression; only the coefficients are
// kept, so prediction is a plain dot product and the persisted form is
// the coefficient slice.
type LinearModel struct {
	// Coeffs[0] is the intercept, Coeffs[i+1] the weight of feature i.
	Coeffs []float64 `json:"coeffs"`
}

// Columns whose residual after projecting onto the intercept and the
// already kept columns falls below this fraction of the column norm are
// treated as linearly dependent.
const collinearTol = 1e-8

// independentColumns picks the feature columns that add rank over the
// intercept and each other. The full contract contains constant and
// exactly derived columns (totals and rescaled copies), which make the
// least squares system singular; sajari/regression solves such systems
// to non-finite coefficients without reporting an error, so they must
// be excluded before the fit.
func independentColumns(features [][]float64) []int {
	n := len(features)
	width := len(features[0])

	basis := make([][]float64, 0, width+1)
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1 / math.Sqrt(float64(n))
	}
	basis = append(basis, ones)

	kept := make([]int, 0, width)
	for col := 0; col < width; col++ {
		v := make([]float64, n)
		var scale float64
		for i, row := range features {
			v[i] = row[col]
			scale += row[col] * row[col]
		}
		scale = math.Sqrt(scale)
		if scale == 0 {
			continue
		}
		for _, b := range basis {
			var dot float64
			for i := range v {
				dot += v[i] * b[i]
			}
			for i := range v {
				v[i] -= dot * b[i]
			}
		}
		var residual float64
		for _, x := range v {
			residual += x * x
		}
		residual = math.Sqrt(residual)
		if residual <= collinearTol*scale {
			continue
		}
		for i := range v {
			v[i] /= residual
		}
		basis = append(basis, v)
		kept = append(kept, col)
	}
	return kept
}

func (m *LinearModel) Train(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}

	kept := independentColumns(features)
	if len(kept) == 0 {
		return errors.New("all feature columns are constant")
	}

	r := new(regression.Regression)
	r.SetObserved("log_price")
	names := FeatureNames()
	for slot, col := range kept {
		name := fmt.Sprintf("x%d", col)
		if col < len(names) {
			name = names[col]
		}
		r.SetVar(slot, name)
	}
	for i, row := range features {
		reduced := make([]float64, len(kept))
		for slot, col := range kept {
			reduced[slot] = row[col]
		}
		r.Train(regression.DataPoint(targets[i], reduced))
	}
	if err := r.Run(); err != nil {
		return err
	}

	// Dropped columns keep a zero weight so prediction stays a plain
	// dot product over the full vector.
	coeffs := make([]float64, len(features[0])+1)
	coeffs[0] = r.Coeff(0)
	for slot, col := range kept {
		coeffs[col+1] = r.Coeff(slot + 1)
	}
	for i, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("degenerate fit: coefficient %d is not finite", i)
		}
	}
	m.Coeffs = coeffs
	return nil
}

func (m *LinearModel) Predict(features []float64) (float64, error) {
	if len(m.Coeffs) == 0 {
		return 0, errors.New("model not trained")
	}
	if len(features) != len(m.Coeffs)-1 {
		return 0, errors.New("feature width mismatch")
	}
	pred := m.Coeffs[0]
	for i, v := range features {
		pred += m.Coeffs[i+1] * v
	}
	return pred, nil
}

func (m *LinearModel) NumFeatures() int {
	if len(m.Coeffs) == 0 {
		return 0
	}
	return len(m.Coeffs) - 1
}

func (m *LinearModel) Save(path string) error {
	if len(m.Coeffs) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (m *LinearModel) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded LinearModel
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return err
	}
	if len(loaded.Coeffs) == 0 {
		return errors.New("empty linear model file")
	}
	m.Coeffs = loaded.Coeffs
	return nil
}
