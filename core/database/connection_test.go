package database

import (
	"path/filepath"
	"testing"

	"github.com/AzielCF/az-prospect/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase_SQLiteCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = filepath.Join(dir, "nested", "prospect.db")

	db, err := NewDatabase(cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	assert.NoError(t, sqlDB.Ping())
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "mongo"

	_, err := NewDatabase(cfg)
	assert.ErrorContains(t, err, "unsupported database driver")
}
