// Package tenant provides multi-tenant database scoping for GORM.
//
// Every aggregate row carries a tenant_id, and every read and write of the
// record store goes through one of these scopes so that a query can never
// see another tenant's rows.
//
//	db := tenant.NewTenantDB(gormDB)
//	db.WithContext(ctx).Find(&rows) // WHERE tenant_id = <ctx tenant>
package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when tenant_id is required but not found
var ErrTenantIDRequired = errors.New("tenant_id is required but not found in context")

// TenantScope applies tenant filtering to GORM queries
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// TenantDB wraps GORM DB with tenant scoping
type TenantDB struct {
	db *gorm.DB
}

// NewTenantDB creates a new TenantDB
func NewTenantDB(db *gorm.DB) *TenantDB {
	return &TenantDB{db: db}
}

// WithContext returns a DB scoped to the tenant stored in ctx by
// logger.WithTenantID. Without one, every operation fails with ErrTenantIDRequired.
func (t *TenantDB) WithContext(ctx context.Context) *gorm.DB {
	tenantID := logger.GetTenantID(ctx)
	return t.ForTenant(ctx, tenantID)
}

// ForTenant returns a DB scoped to tenantID. The returned handle can be
// reused for several statements without conditions piling up.
func (t *TenantDB) ForTenant(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	db := t.db.WithContext(ctx)
	if tenantID == uuid.Nil {
		_ = db.AddError(ErrTenantIDRequired)
		return db
	}
	return db.Scopes(TenantScope(tenantID)).Session(&gorm.Session{})
}

// Transaction runs fn in a transaction whose queries are scoped to tenantID
func (t *TenantDB) Transaction(ctx context.Context, tenantID uuid.UUID, fn func(tx *gorm.DB) error) error {
	if tenantID == uuid.Nil {
		return ErrTenantIDRequired
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx.Scopes(TenantScope(tenantID)).Session(&gorm.Session{}))
	})
}

// Unscoped returns the underlying DB without tenant scoping. Only migrations
// and the outbox relay, which work across tenants, use it.
func (t *TenantDB) Unscoped() *gorm.DB {
	return t.db
}
