// Package artifacts persists the trained model together with everything
// inference needs to reproduce the training-time feature pipeline: the
// frozen encoder set, the aux group statistics, and the ordered feature
// name list. The set is loaded as a whole and validated; a partial or
// mismatched set is a load error, never a silent misprediction.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"propval/ml"
)

// SchemaVersion is bumped whenever the bundle layout changes. Loading a
// bundle with a different version fails; there is no format guessing.
const SchemaVersion = 1

var (
	ErrMissing = errors.New("artifact missing")
	ErrSchema  = errors.New("artifact schema mismatch")
)

type Bundle struct {
	SchemaVersion     int            `json:"schema_version"`
	ModelType         string         `json:"model_type"`
	FeatureNames      []string       `json:"feature_names"`
	Encoders          *ml.EncoderSet `json:"encoders"`
	Aux               ml.AuxStats    `json:"aux_stats"`
	ReferenceLogPrice float64        `json:"reference_log_price"`
	TrainedAt         time.Time      `json:"trained_at"`

	model ml.Regressor
}

func New(modelType string, model ml.Regressor, encoders *ml.EncoderSet, aux ml.AuxStats, refLogPrice float64) *Bundle {
	return &Bundle{
		SchemaVersion:     SchemaVersion,
		ModelType:         modelType,
		FeatureNames:      ml.FeatureNames(),
		Encoders:          encoders,
		Aux:               aux,
		ReferenceLogPrice: refLogPrice,
		TrainedAt:         time.Now().UTC(),
		model:             model,
	}
}

func (b *Bundle) Model() ml.Regressor {
	return b.model
}

func bundlePath(dir, modelType string) string {
	return filepath.Join(dir, modelType+".bundle.json")
}

func modelPath(dir, modelType string) string {
	return filepath.Join(dir, modelType+".model")
}

// Save writes the bundle metadata and the model file side by side.
func (b *Bundle) Save(dir string) error {
	if b.model == nil {
		return errors.New("bundle has no model")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := b.model.Save(modelPath(dir, b.ModelType)); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	payload, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(bundlePath(dir, b.ModelType), payload, 0o600)
}

// Load reads and validates a consistent artifact set. Missing files map
// to ErrMissing (fatal at service start), version or feature-contract
// mismatches to ErrSchema.
func Load(dir, modelType string) (*Bundle, error) {
	payload, err := os.ReadFile(bundlePath(dir, modelType))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, bundlePath(dir, modelType))
		}
		return nil, err
	}

	var bundle Bundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if bundle.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, want %d", ErrSchema, bundle.SchemaVersion, SchemaVersion)
	}
	if bundle.Encoders == nil {
		return nil, fmt.Errorf("%w: encoder set missing", ErrSchema)
	}
	if err := checkFeatureNames(bundle.FeatureNames); err != nil {
		return nil, err
	}

	model, err := ml.LoadRegressor(bundle.ModelType, modelPath(dir, bundle.ModelType))
	if err != nil {
		if os.IsNotExist(errors.Unwrap(err)) || os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, modelPath(dir, bundle.ModelType))
		}
		return nil, err
	}
	if width := model.NumFeatures(); width != len(bundle.FeatureNames) {
		return nil, fmt.Errorf("%w: model expects %d features, bundle lists %d", ErrSchema, width, len(bundle.FeatureNames))
	}

	bundle.model = model
	return &bundle, nil
}

// checkFeatureNames rejects bundles whose stored order differs from the
// feature contract compiled into this binary. Order is an invariant:
// train time and serve time must agree exactly.
func checkFeatureNames(stored []string) error {
	current := ml.FeatureNames()
	if len(stored) != len(current) {
		return fmt.Errorf("%w: %d feature names stored, binary has %d", ErrSchema, len(stored), len(current))
	}
	for i, name := range current {
		if stored[i] != name {
			return fmt.Errorf("%w: feature %d is %q, binary expects %q", ErrSchema, i, stored[i], name)
		}
	}
	return nil
}
