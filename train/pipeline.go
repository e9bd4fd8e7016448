package train

import (
	"fmt"
	"time"

	"propval/artifacts"
	"propval/dataset"
	"propval/db"
	"propval/ml"
)

// Config describes one training run.
type Config struct {
	CSVPath     string  `json:"csvPath" yaml:"csv_path"`
	Purpose     string  `json:"purpose" yaml:"purpose"`
	ModelType   string  `json:"modelType" yaml:"model_type"`
	ArtifactDir string  `json:"artifactDir" yaml:"artifact_dir"`
	Folds       int     `json:"folds" yaml:"folds"`
	Seed        int64   `json:"seed" yaml:"seed"`
	TestRatio   float64 `json:"testRatio" yaml:"test_ratio"`
	Smoothing   float64 `json:"smoothing" yaml:"smoothing"`
	PersistRun  bool    `json:"persistRun" yaml:"persist_run"`
}

// ApplyDefaults fills unset fields with the standard run settings.
func (c *Config) ApplyDefaults() {
	if c.Purpose == "" {
		c.Purpose = dataset.PurposeForSale
	}
	if c.ModelType == "" {
		c.ModelType = ml.ModelRandomForest
	}
	if c.ArtifactDir == "" {
		c.ArtifactDir = "artifacts"
	}
	if c.Folds <= 1 {
		c.Folds = 5
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.TestRatio <= 0 || c.TestRatio >= 1 {
		c.TestRatio = 0.2
	}
	if c.Smoothing <= 0 {
		c.Smoothing = ml.DefaultSmoothing
	}
}

// Result summarises a finished run.
type Result struct {
	ModelType  string               `json:"modelType"`
	Purpose    string               `json:"purpose"`
	DataPoints int                  `json:"dataPoints"`
	Skipped    int                  `json:"skipped"`
	Filter     dataset.FilterReport `json:"filter"`
	Metrics    ml.EvalMetrics       `json:"metrics"`
	CV         ml.CVResult          `json:"cv"`
	BundleDir  string               `json:"bundleDir"`
}

// Progress receives stage notifications as a run advances.
type Progress func(stage string, data interface{})

// Run executes the full pipeline for one model: load, filter, group rare
// locations, fit encoders, cross-validate, train, evaluate, save the
// artifact bundle, and optionally persist the run summary.
func Run(cfg Config, progress Progress) (*Result, *artifacts.Bundle, error) {
	cfg.ApplyDefaults()
	if progress == nil {
		progress = func(string, interface{}) {}
	}
	if cfg.CSVPath == "" {
		return nil, nil, fmt.Errorf("csv path is required")
	}
	if _, err := ml.NewRegressor(cfg.ModelType); err != nil {
		return nil, nil, err
	}
	if cfg.PersistRun && !db.Initialized() {
		return nil, nil, fmt.Errorf("persist run requested: %w", db.ErrNotInitialized)
	}

	records, skipped, err := dataset.LoadCSV(cfg.CSVPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load csv: %w", err)
	}
	progress("loaded", map[string]int{"records": len(records), "skipped": skipped})

	filtered, report := dataset.Filter(records, dataset.DefaultFilterOptions(cfg.Purpose))
	progress("filtered", report)
	if len(filtered) < 2*cfg.Folds {
		return nil, nil, fmt.Errorf("only %d records survive filtering, not enough to train", len(filtered))
	}

	coalesced := dataset.GroupRareLocations(filtered, dataset.MinLocationSamples)
	progress("grouped_locations", map[string]int{"coalesced": coalesced})

	encoders, err := ml.FitEncoderSet(filtered, cfg.Smoothing)
	if err != nil {
		return nil, nil, fmt.Errorf("fit encoders: %w", err)
	}
	aux := ml.ComputeAuxStats(filtered)

	features, targets, err := ml.BuildTrainingSet(filtered, encoders, aux)
	if err != nil {
		return nil, nil, fmt.Errorf("build training set: %w", err)
	}

	newModel := func() ml.Regressor {
		m, _ := ml.NewRegressor(cfg.ModelType)
		return m
	}
	cv, err := ml.CrossValidate(newModel, features, targets, cfg.Folds, cfg.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("cross-validate: %w", err)
	}
	progress("cross_validated", cv)

	trainX, trainY, testX, testY := ml.TrainTestSplit(features, targets, cfg.TestRatio, cfg.Seed)
	model, err := ml.NewRegressor(cfg.ModelType)
	if err != nil {
		return nil, nil, err
	}
	if err := model.Train(trainX, trainY); err != nil {
		return nil, nil, fmt.Errorf("train %s: %w", cfg.ModelType, err)
	}
	metrics, err := ml.Evaluate(model, testX, testY)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate: %w", err)
	}
	progress("evaluated", metrics)

	bundle := artifacts.New(cfg.ModelType, model, encoders, aux, encoders.Location.GlobalMean)
	if err := bundle.Save(cfg.ArtifactDir); err != nil {
		return nil, nil, fmt.Errorf("save bundle: %w", err)
	}

	if cfg.PersistRun {
		if err := db.SaveListings(filtered); err != nil {
			return nil, nil, fmt.Errorf("persist listings snapshot: %w", err)
		}
		if err := db.SaveTrainingRun(db.TrainingRun{
			ModelType:  cfg.ModelType,
			Purpose:    cfg.Purpose,
			Metrics:    metrics,
			CVMeanR2:   cv.MeanR2,
			CVStdR2:    cv.StdR2,
			CVVerdict:  cv.Verdict,
			DataPoints: len(filtered),
			TrainedAt:  time.Now().UTC(),
		}); err != nil {
			return nil, nil, fmt.Errorf("persist training run: %w", err)
		}
	}

	return &Result{
		ModelType:  cfg.ModelType,
		Purpose:    cfg.Purpose,
		DataPoints: len(filtered),
		Skipped:    skipped,
		Filter:     report,
		Metrics:    metrics,
		CV:         cv,
		BundleDir:  cfg.ArtifactDir,
	}, bundle, nil
}
