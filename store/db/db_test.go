package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/gridiron/internal/profile"
)

func TestNewDBDriver(t *testing.T) {
	driver, err := NewDBDriver(&profile.Profile{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	assert.NoError(t, driver.Close())

	_, err = NewDBDriver(&profile.Profile{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestNewStatsDB(t *testing.T) {
	statsDB, err := NewStatsDB(&profile.Profile{StatsDriver: "sqlite", StatsDSN: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
	assert.Nil(t, statsDB)

	_, err = NewStatsDB(&profile.Profile{StatsDriver: "oracle", StatsDSN: "x"})
	assert.Error(t, err)
}
