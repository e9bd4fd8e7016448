package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"propval/dataset"
	"propval/ml"
)

var database *sql.DB

// ErrNotInitialized is returned when a read or write runs before InitDB.
var ErrNotInitialized = errors.New("database not initialized")

// Initialized reports whether InitDB has opened a handle.
func Initialized() bool {
	return database != nil
}

// InitDB initializes the SQLite database
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS listings (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        city VARCHAR(50),
        location TEXT,
        property_type VARCHAR(30),
        purpose VARCHAR(20),
        bedrooms INTEGER,
        bathrooms INTEGER,
        area_marla REAL,
        price REAL,
        year_built INTEGER,
        imported_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        city VARCHAR(50),
        location TEXT,
        property_type VARCHAR(30),
        bedrooms INTEGER,
        bathrooms INTEGER,
        area_marla REAL,
        predicted_price REAL,
        confidence INTEGER,
        model_type VARCHAR(30),
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_type VARCHAR(30) NOT NULL,
        purpose VARCHAR(20),
        rmse REAL,
        mae REAL,
        r2 REAL,
        mape REAL,
        cv_mean_r2 REAL,
        cv_std_r2 REAL,
        cv_verdict VARCHAR(20),
        data_points INTEGER,
        trained_at DATETIME NOT NULL
    );
    `

	_, err = database.Exec(query)
	return err
}

// SaveListings appends a cleaned corpus snapshot after a training import.
func SaveListings(records []dataset.PropertyRecord) error {
	if database == nil {
		return ErrNotInitialized
	}
	tx, err := database.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
        INSERT INTO listings (city, location, property_type, purpose, bedrooms, bathrooms, area_marla, price, year_built)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.City, r.Location, r.PropertyType, r.Purpose,
			r.Bedrooms, r.Bathrooms, r.AreaMarla, r.Price, r.YearBuilt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// PredictionEntry is one served prediction, kept for auditing.
type PredictionEntry struct {
	City           string    `json:"city"`
	Location       string    `json:"location"`
	PropertyType   string    `json:"property_type"`
	Bedrooms       int       `json:"bedrooms"`
	Bathrooms      int       `json:"bathrooms"`
	AreaMarla      float64   `json:"area_marla"`
	PredictedPrice float64   `json:"predicted_price"`
	Confidence     int       `json:"confidence"`
	ModelType      string    `json:"model_type"`
	CreatedAt      time.Time `json:"created_at"`
}

func SavePrediction(entry PredictionEntry) error {
	if database == nil {
		return ErrNotInitialized
	}
	_, err := database.Exec(`
        INSERT INTO predictions (city, location, property_type, bedrooms, bathrooms, area_marla, predicted_price, confidence, model_type)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.City, entry.Location, entry.PropertyType, entry.Bedrooms, entry.Bathrooms,
		entry.AreaMarla, entry.PredictedPrice, entry.Confidence, entry.ModelType)
	return err
}

func QueryPredictions(city string, limit int) ([]PredictionEntry, error) {
	if database == nil {
		return nil, ErrNotInitialized
	}
	rows, err := database.Query(`
        SELECT city, location, property_type, bedrooms, bathrooms, area_marla, predicted_price, confidence, model_type, created_at
        FROM predictions
        WHERE city = ? OR ? = ''
        ORDER BY created_at DESC
        LIMIT ?`, city, city, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []PredictionEntry
	for rows.Next() {
		var e PredictionEntry
		if err := rows.Scan(&e.City, &e.Location, &e.PropertyType, &e.Bedrooms, &e.Bathrooms,
			&e.AreaMarla, &e.PredictedPrice, &e.Confidence, &e.ModelType, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TrainingRun records one model training with its held-out metrics and
// the K-fold variance diagnostic.
type TrainingRun struct {
	ModelType  string         `json:"model_type"`
	Purpose    string         `json:"purpose"`
	Metrics    ml.EvalMetrics `json:"metrics"`
	CVMeanR2   float64        `json:"cv_mean_r2"`
	CVStdR2    float64        `json:"cv_std_r2"`
	CVVerdict  string         `json:"cv_verdict"`
	DataPoints int            `json:"data_points"`
	TrainedAt  time.Time      `json:"trained_at"`
}

func SaveTrainingRun(run TrainingRun) error {
	if database == nil {
		return ErrNotInitialized
	}
	_, err := database.Exec(`
        INSERT INTO training_runs (model_type, purpose, rmse, mae, r2, mape, cv_mean_r2, cv_std_r2, cv_verdict, data_points, trained_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ModelType, run.Purpose, run.Metrics.RMSE, run.Metrics.MAE, run.Metrics.R2, run.Metrics.MAPE,
		run.CVMeanR2, run.CVStdR2, run.CVVerdict, run.DataPoints, run.TrainedAt)
	return err
}

func QueryTrainingRuns(limit int) ([]TrainingRun, error) {
	if database == nil {
		return nil, ErrNotInitialized
	}
	rows, err := database.Query(`
        SELECT model_type, purpose, rmse, mae, r2, mape, cv_mean_r2, cv_std_r2, cv_verdict, data_points, trained_at
        FROM training_runs
        ORDER BY trained_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []TrainingRun
	for rows.Next() {
		var run TrainingRun
		if err := rows.Scan(&run.ModelType, &run.Purpose, &run.Metrics.RMSE, &run.Metrics.MAE,
			&run.Metrics.R2, &run.Metrics.MAPE, &run.CVMeanR2, &run.CVStdR2, &run.CVVerdict,
			&run.DataPoints, &run.TrainedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close releases the database handle. After Close the package reports
// uninitialized again.
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}
