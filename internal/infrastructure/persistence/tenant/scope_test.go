package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testRow struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"size:100"`
}

func (testRow) TableName() string { return "test_rows" }

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&testRow{}))
	return db
}

func seed(t *testing.T, db *gorm.DB, tenants ...uuid.UUID) {
	t.Helper()
	for i, tenantID := range tenants {
		row := testRow{ID: uuid.New(), TenantID: tenantID, Name: string(rune('a' + i))}
		require.NoError(t, db.Create(&row).Error)
	}
}

func TestTenantDB_WithContext(t *testing.T) {
	db := setupDB(t)
	a, b := uuid.New(), uuid.New()
	seed(t, db, a, a, b)
	tdb := NewTenantDB(db)

	t.Run("scopes to context tenant", func(t *testing.T) {
		var rows []testRow
		ctx := logger.WithTenantID(context.Background(), a)
		require.NoError(t, tdb.WithContext(ctx).Find(&rows).Error)
		assert.Len(t, rows, 2)
		for _, r := range rows {
			assert.Equal(t, a, r.TenantID)
		}
	})

	t.Run("missing tenant fails", func(t *testing.T) {
		var rows []testRow
		err := tdb.WithContext(context.Background()).Find(&rows).Error
		assert.ErrorIs(t, err, ErrTenantIDRequired)
	})
}

func TestTenantDB_ForTenant_Isolation(t *testing.T) {
	db := setupDB(t)
	a, b := uuid.New(), uuid.New()
	seed(t, db, a, b)
	tdb := NewTenantDB(db)

	var count int64
	require.NoError(t, tdb.ForTenant(context.Background(), b).Model(&testRow{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, tdb.Unscoped().Model(&testRow{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestTenantDB_Transaction(t *testing.T) {
	db := setupDB(t)
	a, b := uuid.New(), uuid.New()
	seed(t, db, a, b)
	tdb := NewTenantDB(db)

	err := tdb.Transaction(context.Background(), a, func(tx *gorm.DB) error {
		return tx.Model(&testRow{}).Where("1 = 1").Update("name", "renamed").Error
	})
	require.NoError(t, err)

	var other testRow
	require.NoError(t, db.Where("tenant_id = ?", b).First(&other).Error)
	assert.NotEqual(t, "renamed", other.Name)

	err = tdb.Transaction(context.Background(), uuid.Nil, func(*gorm.DB) error { return nil })
	assert.ErrorIs(t, err, ErrTenantIDRequired)
}
