package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/casweep/pkg/casweep/report"
	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

func openStore(t *testing.T, retentionDays int) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), retentionDays)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(ts time.Time) *Record {
	k := 1.2345
	return &Record{
		Timestamp:  ts,
		Input:      "pwr_lattice.inp",
		Model:      "CASMO",
		Calculator: "Localhost_CASMO",
		ResultsDir: "results",
		Variables: types.Variables{
			types.Axis("enrichment", types.Float(3.0), types.Float(3.5)),
			types.Scalar("fuel_temp", types.Int(900)),
		},
		Summary: report.Summary{Total: 2, Successful: 1, Failed: 1},
		Table: &types.Table{
			Variables: []string{"enrichment", "fuel_temp"},
			Outputs:   []string{"k_inf"},
			Rows: []types.Row{
				{Case: "enrichment=3.0", Status: types.StatusDone, Outputs: map[string]*float64{"k_inf": &k}},
				{Case: "enrichment=3.5", Status: types.StatusFailed, Outputs: map[string]*float64{"k_inf": nil}},
			},
		},
	}
}

func TestStore_SaveGet(t *testing.T) {
	s := openStore(t, 30)

	rec := record(time.Time{})
	require.NoError(t, s.Save(rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Timestamp.IsZero())

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "CASMO", got.Model)
	assert.Equal(t, rec.Variables, got.Variables)
	assert.Equal(t, report.Summary{Total: 2, Successful: 1, Failed: 1}, got.Summary)
	require.Equal(t, 2, got.Table.Len())
	assert.Nil(t, got.Table.Rows[1].Outputs["k_inf"])

	byPrefix, err := s.Get(rec.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, rec.ID, byPrefix.ID)
}

func TestStore_GetErrors(t *testing.T) {
	s := openStore(t, 0)

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get("")
	assert.Error(t, err)

	a := record(time.Now())
	a.ID = "abc-1"
	b := record(time.Now().Add(time.Second))
	b.ID = "abc-2"
	require.NoError(t, s.Save(a))
	require.NoError(t, s.Save(b))

	_, err = s.Get("abc")
	assert.ErrorIs(t, err, ErrAmbiguousID)

	got, err := s.Get("abc-2")
	require.NoError(t, err)
	assert.Equal(t, "abc-2", got.ID)
}

func TestStore_List(t *testing.T) {
	s := openStore(t, 0)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		rec := record(base.Add(time.Duration(i) * time.Minute))
		rec.Input = filepath.Join("run", string(rune('a'+i))+".inp")
		require.NoError(t, s.Save(rec))
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "run/e.inp", all[0].Input, "newest first")
	assert.Equal(t, "run/a.inp", all[4].Input)

	limited, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run/d.inp", limited[1].Input)
}

func TestStore_ListEmpty(t *testing.T) {
	s := openStore(t, 0)
	got, err := s.List(10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_Delete(t *testing.T) {
	s := openStore(t, 0)
	rec := record(time.Now())
	require.NoError(t, s.Save(rec))

	require.NoError(t, s.Delete(rec.ID))
	_, err := s.Get(rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(rec.ID), ErrNotFound)
}

func TestStore_Cleanup(t *testing.T) {
	s := openStore(t, 0)

	old := record(time.Now().AddDate(0, 0, -45))
	recent := record(time.Now().AddDate(0, 0, -1))
	require.NoError(t, s.Save(old))
	require.NoError(t, s.Save(recent))

	removed, err := s.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, recent.ID, all[0].ID)

	removed, err = s.Cleanup(0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 7)
	require.NoError(t, err)
	rec := record(time.Now())
	require.NoError(t, s.Save(rec))
	require.NoError(t, s.Close())

	s, err = Open(dir, 7)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "enrichment=3.0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "study.json"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "enrichment=3.0", "out.txt"), make([]byte, 250), 0o644))

	size, err := DirSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(350), size)

	_, err = DirSize(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
