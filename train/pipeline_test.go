package train

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"propval/artifacts"
	"propval/db"
	"propval/ml"
)

func writeListingsCSV(t *testing.T, rows int) string {
	t.Helper()
	rng := rand.New(rand.NewSource(8))
	cities := []string{"Karachi", "Lahore", "Islamabad"}
	locations := []string{"Clifton", "Gulberg", "F-7", "Model Town"}

	var sb strings.Builder
	sb.WriteString("City,Location,Property Type,Purpose,Price,Area Size,Bedrooms,Baths\n")
	for i := 0; i < rows; i++ {
		area := 5 + rng.Float64()*10
		price := area*1_500_000 + rng.Float64()*400_000
		fmt.Fprintf(&sb, "%s,%s,House,For Sale,%.0f,%.1f,3,3\n",
			cities[i%len(cities)], locations[i%len(locations)], price, area)
	}

	path := filepath.Join(t.TempDir(), "listings.csv")
	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestRunEndToEnd(t *testing.T) {
	csvPath := writeListingsCSV(t, 150)
	outDir := t.TempDir()

	var stages []string
	result, bundle, err := Run(Config{
		CSVPath:     csvPath,
		ModelType:   ml.ModelRegressionTree,
		ArtifactDir: outDir,
		Folds:       3,
	}, func(stage string, data interface{}) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if bundle == nil {
		t.Fatal("no bundle returned")
	}
	if result.DataPoints == 0 {
		t.Error("no data points recorded")
	}
	if len(result.CV.FoldR2) != 3 {
		t.Errorf("fold count = %d", len(result.CV.FoldR2))
	}
	if result.Metrics.RMSE <= 0 {
		t.Errorf("RMSE = %v", result.Metrics.RMSE)
	}

	wantStages := []string{"loaded", "filtered", "grouped_locations", "cross_validated", "evaluated"}
	if len(stages) != len(wantStages) {
		t.Fatalf("stages = %v", stages)
	}
	for i, want := range wantStages {
		if stages[i] != want {
			t.Errorf("stage %d = %q, want %q", i, stages[i], want)
		}
	}

	loaded, err := artifacts.Load(outDir, ml.ModelRegressionTree)
	if err != nil {
		t.Fatalf("saved bundle does not load back: %v", err)
	}
	if loaded.Model() == nil {
		t.Fatal("loaded bundle has no model")
	}
}

func TestRunRequiresCSV(t *testing.T) {
	if _, _, err := Run(Config{}, nil); err == nil {
		t.Fatal("expected error without csv path")
	}
}

func TestRunRejectsUnknownModel(t *testing.T) {
	csvPath := writeListingsCSV(t, 60)
	_, _, err := Run(Config{CSVPath: csvPath, ModelType: "xgboost", ArtifactDir: t.TempDir()}, nil)
	if err == nil {
		t.Fatal("expected error for unsupported model type")
	}
}

func TestRunTooFewRecords(t *testing.T) {
	csvPath := writeListingsCSV(t, 5)
	_, _, err := Run(Config{CSVPath: csvPath, ModelType: ml.ModelRegressionTree, ArtifactDir: t.TempDir(), Folds: 5}, nil)
	if err == nil {
		t.Fatal("expected error with too few records")
	}
}

func TestRunPersistWithoutDatabase(t *testing.T) {
	csvPath := writeListingsCSV(t, 150)

	_, _, err := Run(Config{
		CSVPath:     csvPath,
		ModelType:   ml.ModelRegressionTree,
		ArtifactDir: t.TempDir(),
		Folds:       3,
		PersistRun:  true,
	}, nil)
	if !errors.Is(err, db.ErrNotInitialized) {
		t.Fatalf("error = %v, want %v", err, db.ErrNotInitialized)
	}
}
