package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"outbreak-mcp/internal/epi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() *Dataset {
	return &Dataset{
		Name:            "church supper",
		Layout:          epi.Cohort,
		YatesCorrection: true,
		Factors: []epi.Factor{
			{ID: "ham", DisplayName: "Baked ham"},
			{ID: "punch", DisplayName: "Fruit punch"},
		},
		Subjects: []epi.Subject{
			{Outcome: epi.Yes, Exposures: []epi.Answer{epi.Yes, epi.No}},
			{Outcome: epi.No, Exposures: []epi.Answer{epi.Missing, epi.Yes}},
			{Outcome: epi.Missing, Exposures: []epi.Answer{epi.No}},
		},
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	store := NewStore(t.TempDir())

	id := store.Put(sampleDataset())
	require.NotEmpty(t, id)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "church supper", got.Name)
	assert.False(t, got.ImportedAt.IsZero())

	require.NoError(t, store.Delete(id))
	_, err = store.Get(id)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	assert.ErrorIs(t, store.Delete(id), ErrDatasetNotFound)
}

func TestStore_PutDefaultsLayout(t *testing.T) {
	store := NewStore(t.TempDir())
	ds := &Dataset{Name: "bare"}
	store.Put(ds)
	assert.Equal(t, epi.CaseControl, ds.Layout)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	id := store.Put(sampleDataset())
	require.NoError(t, store.Save(id))

	_, err := os.Stat(filepath.Join(dir, id+".jsonl"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, id+".jsonl.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	fresh := NewStore(dir)
	n, err := fresh.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := fresh.Get(id)
	require.NoError(t, err)
	want := sampleDataset()
	assert.Equal(t, id, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Layout, got.Layout)
	assert.True(t, got.YatesCorrection)
	assert.Equal(t, want.Factors, got.Factors)
	assert.Equal(t, want.Subjects, got.Subjects)
}

func TestStore_LoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	assert.ErrorIs(t, store.Load("nope"), ErrDatasetNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.jsonl"), []byte("not json\n"), 0644))
	assert.Error(t, store.Load("broken"))

	n, err := store.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_ListNewestFirst(t *testing.T) {
	store := NewStore(t.TempDir())
	base := time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC)

	store.Put(&Dataset{ID: "old", ImportedAt: base})
	store.Put(&Dataset{ID: "new", ImportedAt: base.Add(time.Hour)})
	store.Put(&Dataset{ID: "also-old", ImportedAt: base})

	infos := store.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "new", infos[0].ID)
	assert.Equal(t, "also-old", infos[1].ID)
	assert.Equal(t, "old", infos[2].ID)
}

func TestDataset_Request(t *testing.T) {
	ds := sampleDataset()
	req := ds.Request()
	assert.Equal(t, epi.Cohort, req.Layout)
	assert.True(t, req.YatesCorrectionEnabled)
	assert.Len(t, req.Subjects, 3)

	info := ds.Info()
	assert.Equal(t, 3, info.Subjects)
	assert.Equal(t, 2, info.Factors)
}
