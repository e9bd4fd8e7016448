package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"propval/artifacts"
	"propval/dataset"
	"propval/ml"
	"propval/train"
)

type trainJob struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Result   *train.Result `json:"result,omitempty"`
	Started  time.Time     `json:"started"`
	Finished *time.Time    `json:"finished,omitempty"`
}

type trainingManager struct {
	mu      sync.Mutex
	jobs    map[string]*trainJob
	running bool
	seq     int
	hub     *ProgressHub
	logger  *zap.Logger
	onDone  func(*artifacts.Bundle)
}

var trainer *trainingManager

// SetupTraining wires the training endpoints' shared state. onDone, when
// non-nil, receives each freshly trained sale bundle so the live service
// can swap it in without a restart.
func SetupTraining(hub *ProgressHub, logger *zap.Logger, onDone func(*artifacts.Bundle)) {
	if logger == nil {
		logger = zap.NewNop()
	}
	trainer = &trainingManager{
		jobs:   make(map[string]*trainJob),
		hub:    hub,
		logger: logger,
		onDone: onDone,
	}
}

func handleTrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if trainer == nil {
		writeError(w, http.StatusServiceUnavailable, "training not configured")
		return
	}
	var cfg train.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	cfg.ApplyDefaults()
	if cfg.CSVPath == "" {
		writeError(w, http.StatusBadRequest, "csvPath is required")
		return
	}
	if _, err := ml.NewRegressor(cfg.ModelType); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trainer.mu.Lock()
	if trainer.running {
		trainer.mu.Unlock()
		writeError(w, http.StatusConflict, "a training job is already running")
		return
	}
	trainer.seq++
	job := &trainJob{
		ID:      fmt.Sprintf("train-%d", trainer.seq),
		Status:  "running",
		Started: time.Now().UTC(),
	}
	trainer.jobs[job.ID] = job
	trainer.running = true
	trainer.mu.Unlock()

	go runTrainingJob(job, cfg)

	writeJSON(w, http.StatusAccepted, job)
}

func handleTrainStatus(w http.ResponseWriter, r *http.Request) {
	if trainer == nil {
		writeError(w, http.StatusServiceUnavailable, "training not configured")
		return
	}
	trainer.mu.Lock()
	jobs := make([]*trainJob, 0, len(trainer.jobs))
	for _, j := range trainer.jobs {
		jobs = append(jobs, j)
	}
	running := trainer.running
	trainer.mu.Unlock()

	status := trainStatus{Jobs: jobs, Running: running}
	if trainer.hub != nil {
		status.Watchers = trainer.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, status)
}

// trainStatus is the /api/train/status payload: every job seen this
// process plus how many websocket clients are watching progress.
type trainStatus struct {
	Jobs     []*trainJob `json:"jobs"`
	Running  bool        `json:"running"`
	Watchers int         `json:"watchers"`
}

func runTrainingJob(job *trainJob, cfg train.Config) {
	progress := func(stage string, data interface{}) {
		if trainer.hub != nil {
			trainer.hub.Broadcast(ProgressEvent{JobID: job.ID, Stage: stage, Data: data})
		}
	}
	result, bundle, err := train.Run(cfg, progress)

	now := time.Now().UTC()
	trainer.mu.Lock()
	job.Finished = &now
	if err != nil {
		job.Status = "failed"
		job.Error = err.Error()
	} else {
		job.Status = "done"
		job.Result = result
	}
	trainer.running = false
	trainer.mu.Unlock()

	if err != nil {
		trainer.logger.Error("training job failed", zap.String("job", job.ID), zap.Error(err))
		progress("failed", err.Error())
		return
	}
	trainer.logger.Info("training job finished",
		zap.String("job", job.ID),
		zap.String("model", result.ModelType),
		zap.Float64("r2", result.Metrics.R2),
	)
	progress("done", result)
	if trainer.onDone != nil && result.Purpose == dataset.PurposeForSale {
		trainer.onDone(bundle)
	}
}
