package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"

	"propval/artifacts"
	"propval/db"
	httpapi "propval/http"
	"propval/ml"
	"propval/predict"
)

// Config is the top-level service configuration.
type Config struct {
	Server httpapi.ServerConfig `yaml:"server"`

	Artifacts struct {
		Dir           string `yaml:"dir"`
		ModelType     string `yaml:"model_type"`
		RentModelType string `yaml:"rent_model_type"`
		RentDir       string `yaml:"rent_dir"`
		Watch         bool   `yaml:"watch"`
	} `yaml:"artifacts"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`
}

func loadConfig(path string) (*Config, error) {
	cfg := &Config{Server: httpapi.DefaultServerConfig()}
	cfg.Artifacts.Dir = "artifacts"
	cfg.Artifacts.ModelType = ml.ModelRandomForest
	cfg.Logging.Level = "info"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func buildLogger(cfg *Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(cfg.Logging.Level); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Logging.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), level),
	}
	if cfg.Logging.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Database.Path != "" {
		if err := db.InitDB(cfg.Database.Path); err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		defer db.Close()
	}

	valueBundle, err := artifacts.Load(cfg.Artifacts.Dir, cfg.Artifacts.ModelType)
	if err != nil {
		if errors.Is(err, artifacts.ErrMissing) {
			logger.Fatal("no trained model bundle found, run train_model first",
				zap.String("dir", cfg.Artifacts.Dir),
				zap.String("model", cfg.Artifacts.ModelType))
		}
		logger.Fatal("load model bundle", zap.Error(err))
	}
	logger.Info("model bundle loaded",
		zap.String("model", cfg.Artifacts.ModelType),
		zap.Time("trained_at", valueBundle.TrainedAt))

	var rentBundle *artifacts.Bundle
	if cfg.Artifacts.RentModelType != "" {
		rentDir := cfg.Artifacts.RentDir
		if rentDir == "" {
			rentDir = cfg.Artifacts.Dir
		}
		rentBundle, err = artifacts.Load(rentDir, cfg.Artifacts.RentModelType)
		if err != nil {
			logger.Warn("rent model unavailable, falling back to heuristic rent estimates", zap.Error(err))
			rentBundle = nil
		}
	}

	service := predict.NewService(valueBundle, rentBundle, logger)
	httpapi.SetService(service)
	httpapi.SetModelsInfo(httpapi.ModelsInfo{
		Active:       cfg.Artifacts.ModelType,
		Available:    ml.ModelTypes(),
		FeatureNames: ml.FeatureNames(),
		RentModel:    rentBundle != nil,
	})
	if cfg.Database.Path != "" {
		httpapi.SetAudit(func(entry db.PredictionEntry) {
			if err := db.SavePrediction(entry); err != nil {
				logger.Warn("persist prediction", zap.Error(err))
			}
		})
	}

	hub := httpapi.NewProgressHub(logger)
	httpapi.SetupTraining(hub, logger, func(b *artifacts.Bundle) {
		service.SwapValueBundle(b)
		logger.Info("live model swapped after training", zap.String("model", b.ModelType))
	})

	if cfg.Artifacts.Watch {
		watcher, err := artifacts.NewWatcher(cfg.Artifacts.Dir, cfg.Artifacts.ModelType,
			func(b *artifacts.Bundle) {
				service.SwapValueBundle(b)
				logger.Info("model bundle reloaded from disk", zap.String("model", b.ModelType))
			},
			func(err error) {
				logger.Warn("bundle reload failed", zap.Error(err))
			})
		if err != nil {
			logger.Fatal("start artifact watcher", zap.Error(err))
		}
		defer watcher.Close()
	}

	server := httpapi.NewServer(cfg.Server, logger, hub)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		if err := server.Shutdown(); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}
}
