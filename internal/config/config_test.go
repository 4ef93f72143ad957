package config

import (
	"path/filepath"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("LOGS_FOLDER", filepath.Join(dir, "custom-logs"))

	cfg := fromEnv("")

	if cfg.CacheDir != filepath.Join(dir, "cache") {
		t.Errorf("CacheDir = %s, want %s", cfg.CacheDir, filepath.Join(dir, "cache"))
	}
	if cfg.LogDir != filepath.Join(dir, "custom-logs") {
		t.Errorf("LogDir = %s", cfg.LogDir)
	}
	if cfg.YatesCorrection {
		t.Error("Expected Yates correction to default to false")
	}
	if cfg.PlaceholderFactors != 10 {
		t.Errorf("PlaceholderFactors = %d, want 10", cfg.PlaceholderFactors)
	}
	if cfg.AnalysisWorkers != 4 {
		t.Errorf("AnalysisWorkers = %d, want 4", cfg.AnalysisWorkers)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("YATES_CORRECTION", "true")
	t.Setenv("ENABLE_MERMAID_CHARTS", "1")
	t.Setenv("PLACEHOLDER_FACTORS", "25")
	t.Setenv("ANALYSIS_WORKERS", "not-a-number")

	cfg := fromEnv("")

	if !cfg.YatesCorrection || !cfg.EnableMermaidCharts {
		t.Errorf("expected boolean overrides to apply: %+v", cfg)
	}
	if cfg.PlaceholderFactors != 25 {
		t.Errorf("PlaceholderFactors = %d, want 25", cfg.PlaceholderFactors)
	}
	if cfg.AnalysisWorkers != 4 {
		t.Errorf("invalid ANALYSIS_WORKERS should fall back to 4, got %d", cfg.AnalysisWorkers)
	}
}
