package ml

import "fmt"

const (
	ModelRegressionTree   = "regression_tree"
	ModelRandomForest     = "random_forest"
	ModelGradientBoosting = "gradient_boosting"
	ModelLinear           = "linear"
)

// Regressor maps a feature vector to a log-price scalar. All variants
// share the PropertyFeatures contract and the log-price target
// convention.
type Regressor interface {
	Train(features [][]float64, targets []float64) error
	Predict(features []float64) (float64, error)
	NumFeatures() int
	Save(path string) error
	Load(path string) error
}

func ModelTypes() []string {
	return []string{ModelRegressionTree, ModelRandomForest, ModelGradientBoosting, ModelLinear}
}

// NewRegressor returns an untrained model of the named variant with its
// default hyperparameters.
func NewRegressor(modelType string) (Regressor, error) {
	switch modelType {
	case ModelRegressionTree:
		return NewRegressionTree(12), nil
	case ModelRandomForest:
		return NewRandomForest(50, 10, 42), nil
	case ModelGradientBoosting:
		return NewGradientBoosting(100, 4, 0.1), nil
	case ModelLinear:
		return &LinearModel{}, nil
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
}

func LoadRegressor(modelType, path string) (Regressor, error) {
	model, err := NewRegressor(modelType)
	if err != nil {
		return nil, err
	}
	if err := model.Load(path); err != nil {
		return nil, err
	}
	return model, nil
}
