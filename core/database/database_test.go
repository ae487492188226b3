package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalizeAndURL(t *testing.T) {
	cfg := Config{Host: "db", User: "bot", Password: "p@ss", Name: "muz"}
	assert.True(t, cfg.Enabled())
	cfg.Normalize()

	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
	assert.Equal(t, "postgres://bot:p%40ss@db:5432/muz?sslmode=disable", cfg.URL())
	assert.Contains(t, cfg.DSN(), "host=db port=5432 dbname=muz")

	assert.False(t, Config{}.Enabled())
}

func TestMigrationFileAccounting(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000002_b.up.sql", "000001_a.up.sql", "000001_a.down.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	files := listMigrationFiles(dir)
	assert.Equal(t, []string{"000001_a.up.sql", "000002_b.up.sql"}, files)
	assert.Equal(t, 1, countApplied(files, 1, 2))
	assert.Equal(t, 2, countApplied(files, 0, 2))
	assert.Equal(t, 0, countApplied(files, 2, 2))
}
