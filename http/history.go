package http

import (
	"net/http"
	"strconv"

	"propval/db"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

func historyLimit(r *http.Request) int {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return limit
}

// handleHistory lists recently served predictions, newest first. An
// optional city query parameter narrows the result.
func handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	if !db.Initialized() {
		writeError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}
	entries, err := db.QueryPredictions(r.URL.Query().Get("city"), historyLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []db.PredictionEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(entries),
		"predictions": entries,
	})
}

// handleTrainHistory lists past training runs with their held-out
// metrics, newest first.
func handleTrainHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	if !db.Initialized() {
		writeError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}
	runs, err := db.QueryTrainingRuns(historyLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []db.TrainingRun{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}
