package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"propval/db"
	"propval/ml"
	"propval/train"
)

func main() {
	csvPath := flag.String("csv", "", "path to the listings CSV")
	purpose := flag.String("purpose", "For Sale", "listing purpose to train on (For Sale or For Rent)")
	modelType := flag.String("model", "random_forest", "model type to train, or 'all'")
	outDir := flag.String("out", "artifacts", "directory for the saved model bundle")
	folds := flag.Int("folds", 5, "cross-validation folds")
	seed := flag.Int64("seed", 42, "random seed for shuffling and bagging")
	testRatio := flag.Float64("test-ratio", 0.2, "holdout fraction for evaluation")
	smoothing := flag.Float64("smoothing", ml.DefaultSmoothing, "location target-encoder smoothing")
	dbPath := flag.String("db", "", "optional SQLite path to record the run")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *csvPath == "" {
		logger.Fatal("-csv is required")
	}

	persist := false
	if *dbPath != "" {
		if err := db.InitDB(*dbPath); err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		defer db.Close()
		persist = true
	}

	types := []string{*modelType}
	if *modelType == "all" {
		types = ml.ModelTypes()
	}

	failed := false
	for _, mt := range types {
		cfg := train.Config{
			CSVPath:     *csvPath,
			Purpose:     *purpose,
			ModelType:   mt,
			ArtifactDir: *outDir,
			Folds:       *folds,
			Seed:        *seed,
			TestRatio:   *testRatio,
			Smoothing:   *smoothing,
			PersistRun:  persist,
		}
		progress := func(stage string, data interface{}) {
			logger.Info("pipeline stage", zap.String("model", mt), zap.String("stage", stage))
		}
		result, _, err := train.Run(cfg, progress)
		if err != nil {
			logger.Error("training failed", zap.String("model", mt), zap.Error(err))
			failed = true
			continue
		}
		logger.Info("model trained",
			zap.String("model", result.ModelType),
			zap.Int("data_points", result.DataPoints),
			zap.Float64("rmse", result.Metrics.RMSE),
			zap.Float64("mae", result.Metrics.MAE),
			zap.Float64("r2", result.Metrics.R2),
			zap.Float64("mape", result.Metrics.MAPE),
			zap.Float64("cv_mean_r2", result.CV.MeanR2),
			zap.Float64("cv_std_r2", result.CV.StdR2),
			zap.String("cv_verdict", result.CV.Verdict),
			zap.String("bundle_dir", result.BundleDir),
		)
	}
	if failed {
		os.Exit(1)
	}
}
