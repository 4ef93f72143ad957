package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"outbreak-mcp/cmd/mockgen/engine"
	"outbreak-mcp/internal/epi"
)

func main() {
	scenario := flag.String("scenario", engine.PointSource, "Scenario to generate: point-source, null, sparse")
	layout := flag.String("layout", string(epi.CaseControl), "Study design: caseControl, cohort")
	format := flag.String("format", "csv", "Output format: csv, json")
	outDir := flag.String("out", "./.cache", "Output directory for mock files")
	count := flag.Int("count", 120, "Number of subjects to generate")
	factors := flag.Int("factors", 6, "Number of exposure factors")
	missing := flag.Float64("missing", 0.02, "Share of exposure answers left blank")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	l, err := epi.ParseLayout(*layout)
	if err != nil {
		fmt.Printf("Invalid layout: %v\n", err)
		os.Exit(1)
	}

	cfg := engine.GeneratorConfig{
		Scenario:    *scenario,
		Layout:      l,
		Count:       *count,
		Factors:     *factors,
		MissingRate: *missing,
		Seed:        *seed,
	}

	fmt.Printf("Generating scenario '%s' (Subjects: %d, Factors: %d, Seed: %d) to %s...\n", cfg.Scenario, cfg.Count, cfg.Factors, cfg.Seed, *outDir)

	ds := engine.Generate(cfg)
	path, err := engine.Save(*outDir, *format, ds)
	if err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done: %s\n", path)
}
