package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"propval/db"
	"propval/ml"
	"propval/predict"
)

// Estimator is the prediction surface the handlers call. The concrete
// implementation is predict.Service; tests install a fake.
type Estimator interface {
	Predict(predict.Payload) (*predict.Prediction, error)
	ROIAnalysis(predict.ROIRequest) (*predict.ROIReport, error)
}

const predictionCacheSize = 512

var (
	service    Estimator
	predCache  *lru.Cache[string, *predict.Prediction]
	auditFunc  func(db.PredictionEntry)
	modelsInfo ModelsInfo
)

// ModelsInfo describes the model inventory reported by /api/models.
type ModelsInfo struct {
	Active       string   `json:"active"`
	Available    []string `json:"available"`
	FeatureNames []string `json:"featureNames"`
	RentModel    bool     `json:"rentModel"`
}

// SetService installs the prediction backend used by the handlers.
func SetService(e Estimator) {
	service = e
	cache, err := lru.New[string, *predict.Prediction](predictionCacheSize)
	if err != nil {
		panic(err)
	}
	predCache = cache
}

// SetAudit installs an optional sink that receives every served prediction.
func SetAudit(fn func(db.PredictionEntry)) {
	auditFunc = fn
}

// SetModelsInfo records what /api/models should report.
func SetModelsInfo(info ModelsInfo) {
	modelsInfo = info
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already out; an encode failure has nowhere to go.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if service == nil {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func cacheKey(p predict.Payload) string {
	return fmt.Sprintf("%s|%s|%s|%s|%.2f|%d|%d",
		p.Purpose, p.City, p.Location, p.PropertyType, p.AreaMarla, p.Bedrooms, p.Bathrooms)
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if service == nil {
		writeError(w, http.StatusServiceUnavailable, "prediction service not ready")
		return
	}
	var payload predict.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	clean, err := predict.ValidatePayload(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key := cacheKey(clean)
	if cached, ok := predCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}
	pred, err := service.Predict(clean)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	predCache.Add(key, pred)
	if auditFunc != nil {
		auditFunc(db.PredictionEntry{
			City:           clean.City,
			Location:       clean.Location,
			PropertyType:   clean.PropertyType,
			AreaMarla:      clean.AreaMarla,
			Bedrooms:       clean.Bedrooms,
			Bathrooms:      clean.Bathrooms,
			PredictedPrice: pred.PredictedPrice,
			Confidence:     pred.Confidence,
			ModelType:      modelsInfo.Active,
			CreatedAt:      time.Now().UTC(),
		})
	}
	writeJSON(w, http.StatusOK, pred)
}

func handleROI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if service == nil {
		writeError(w, http.StatusServiceUnavailable, "prediction service not ready")
		return
	}
	var req predict.ROIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	report, err := service.ROIAnalysis(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	info := modelsInfo
	if len(info.Available) == 0 {
		info.Available = ml.ModelTypes()
	}
	if len(info.FeatureNames) == 0 {
		info.FeatureNames = ml.FeatureNames()
	}
	writeJSON(w, http.StatusOK, info)
}
