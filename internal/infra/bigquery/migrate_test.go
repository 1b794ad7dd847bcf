package bigquery

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_second.sql":  {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (x INT64);")},
		"0001_first.sql":   {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (x INT64);")},
		"README.md":        {Data: []byte("notes")},
		"001_bad_name.sql": {Data: []byte("SELECT 1")},
	}

	got, err := LoadMigrations(fsys, "proj", "ds")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1, got[0].Version)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, "CREATE TABLE `proj.ds.a` (x INT64);", got[0].SQL)
	assert.Equal(t, 2, got[1].Version)

	other, err := LoadMigrations(fsys, "other-proj", "other-ds")
	require.NoError(t, err)
	assert.Equal(t, got[0].Checksum, other[0].Checksum, "checksum ignores the target dataset")
	assert.NotEqual(t, got[0].Checksum, got[1].Checksum)
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_a.sql": {Data: []byte("SELECT 1")},
		"0001_b.sql": {Data: []byte("SELECT 2")},
	}
	_, err := LoadMigrations(fsys, "p", "d")
	assert.ErrorContains(t, err, "version 0001")
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := Migrations("proj", "ds")
	require.NoError(t, err)

	var names []string
	for i, m := range got {
		assert.Equal(t, i+1, m.Version)
		assert.NotContains(t, m.SQL, "{{")
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"create_transactions", "create_account_balances", "create_analysis_runs"}, names)
	assert.Contains(t, got[0].SQL, "`proj.ds.transactions`")
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{
		{Version: 1, Name: "a", Checksum: "c1"},
		{Version: 2, Name: "b", Checksum: "c2"},
		{Version: 3, Name: "c", Checksum: "c3"},
	}

	pending, err := PendingMigrations(all, []AppliedMigration{{Version: 1, Checksum: "c1"}, {Version: 2}})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 3, pending[0].Version)

	pending, err = PendingMigrations(all, nil)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	_, err = PendingMigrations(all, []AppliedMigration{{Version: 2, Checksum: "edited"}})
	assert.ErrorContains(t, err, "0002_b changed")
}
