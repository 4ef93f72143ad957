package engine

import (
	"path/filepath"
	"testing"

	"outbreak-mcp/internal/dataset"
	"outbreak-mcp/internal/epi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	cfg := GeneratorConfig{Scenario: PointSource, Count: 50, Factors: 4, MissingRate: 0.1, Seed: 7}
	a := Generate(cfg)
	b := Generate(cfg)
	assert.Equal(t, a.Subjects, b.Subjects)
	assert.Len(t, a.Subjects, 50)
	assert.Len(t, a.Factors, 4)
	assert.Equal(t, "potato_salad", a.Factors[0].ID)
}

func TestGenerate_PointSourceRanksVehicleFirst(t *testing.T) {
	ds := Generate(GeneratorConfig{Scenario: PointSource, Count: 400, Factors: 6, Seed: 1})

	resp := epi.NewEngine(epi.Options{Workers: 4}).Analyze(ds.Request())
	ranked := epi.RankByPValue(resp.Results)

	require.NotEmpty(t, ranked)
	assert.Equal(t, "potato_salad", ranked[0].Factor.ID)
	require.NotNil(t, ranked[0].PValue)
	assert.Less(t, *ranked[0].PValue, 0.001)
}

func TestGenerate_FactorNamesBeyondMenu(t *testing.T) {
	ds := Generate(GeneratorConfig{Scenario: Null, Count: 1, Factors: 12, Seed: 3})
	assert.Equal(t, "Item 12", ds.Factors[11].DisplayName)
	assert.Equal(t, "item_12", ds.Factors[11].ID)
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	ds := Generate(GeneratorConfig{Scenario: Sparse, Layout: epi.Cohort, Count: 30, Factors: 3, MissingRate: 0.2, Seed: 11})

	for _, format := range []string{"csv", "json"} {
		t.Run(format, func(t *testing.T) {
			path, err := Save(dir, format, ds)
			require.NoError(t, err)
			assert.Equal(t, "."+format, filepath.Ext(path))

			loaded, err := dataset.LoadFile(path, dataset.LoadOptions{Layout: epi.Cohort})
			require.NoError(t, err)
			assert.Equal(t, ds.Factors, loaded.Factors)
			assert.Equal(t, ds.Subjects, loaded.Subjects)
			assert.Equal(t, epi.Cohort, loaded.Layout)
		})
	}

	_, err := Save(dir, "parquet", ds)
	assert.Error(t, err)
}
