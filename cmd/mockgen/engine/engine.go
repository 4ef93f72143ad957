package engine

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"outbreak-mcp/internal/dataset"
	"outbreak-mcp/internal/epi"
)

// Scenarios understood by Generate.
const (
	PointSource = "point-source"
	Null        = "null"
	Sparse      = "sparse"
)

type GeneratorConfig struct {
	Scenario    string
	Layout      epi.Layout
	Count       int
	Factors     int
	MissingRate float64 // share of answers left blank
	Seed        int64
}

var menu = []string{
	"Potato salad", "Ham", "Egg sandwich", "Lemonade", "Ice cream",
	"Coleslaw", "Fried chicken", "Tap water", "Green salad", "Chocolate cake",
}

func factorName(i int) string {
	if i < len(menu) {
		return menu[i]
	}
	return fmt.Sprintf("Item %d", i+1)
}

// Generate draws a synthetic line list. In the point-source and sparse scenarios the first
// factor is the vehicle; every other factor is unrelated to illness.
func Generate(cfg GeneratorConfig) *dataset.Dataset {
	if cfg.Layout == "" {
		cfg.Layout = epi.CaseControl
	}
	if cfg.Factors <= 0 {
		cfg.Factors = 6
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	exposureRate, attackExposed, attackUnexposed := 0.5, 0.7, 0.1
	switch cfg.Scenario {
	case Null:
		attackExposed, attackUnexposed = 0.3, 0.3
	case Sparse:
		exposureRate = 0.1
	}

	ds := &dataset.Dataset{
		Name:    fmt.Sprintf("mock-%s", cfg.Scenario),
		Layout:  cfg.Layout,
		Factors: make([]epi.Factor, cfg.Factors),
	}
	for i := range ds.Factors {
		name := factorName(i)
		ds.Factors[i] = epi.Factor{ID: dataset.Slugify(name), DisplayName: name}
	}

	for n := 0; n < cfg.Count; n++ {
		exposures := make([]epi.Answer, cfg.Factors)
		for i := range exposures {
			exposures[i] = epi.No
			if rng.Float64() < exposureRate {
				exposures[i] = epi.Yes
			}
		}

		risk := attackUnexposed
		if exposures[0] == epi.Yes {
			risk = attackExposed
		}
		outcome := epi.No
		if rng.Float64() < risk {
			outcome = epi.Yes
		}

		// Blanks are applied after the outcome is drawn so they do not bias the association.
		for i := range exposures {
			if rng.Float64() < cfg.MissingRate {
				exposures[i] = epi.Missing
			}
		}
		ds.Subjects = append(ds.Subjects, epi.Subject{Outcome: outcome, Exposures: exposures})
	}
	return ds
}

// Save writes the dataset as a .csv line list or a .json analysis request and returns the path.
func Save(outDir, format string, ds *dataset.Dataset) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}

	switch format {
	case "csv":
		path := filepath.Join(outDir, ds.Name+".csv")
		return path, saveCSV(path, ds)
	case "json":
		path := filepath.Join(outDir, ds.Name+".json")
		return path, saveJSON(path, ds)
	}
	return "", fmt.Errorf("unknown format %q (want csv or json)", format)
}

func saveCSV(path string, ds *dataset.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"id", "outcome"}
	for _, fac := range ds.Factors {
		header = append(header, fac.DisplayName)
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i, s := range ds.Subjects {
		row := []string{strconv.Itoa(i + 1), s.Outcome.String()}
		for _, a := range s.Exposures {
			row = append(row, a.String())
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func saveJSON(path string, ds *dataset.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(ds.Request())
}
