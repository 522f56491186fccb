package persistence

import (
	"testing"

	"github.com/neuroerp/backend/internal/infrastructure/config"
	"github.com/neuroerp/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase_SQLite(t *testing.T) {
	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, WithAutoMigrate())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Ping())
	assert.True(t, db.DB.Migrator().HasTable(&models.AggregateRecordModel{}))
	assert.True(t, db.DB.Migrator().HasTable(&models.OutboxEntryModel{}))

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestNewDatabase_UnknownDriver(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}
