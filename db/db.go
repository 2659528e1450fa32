package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/bartventer/gorm-multitenancy/postgres/v8"
	multitenancy "github.com/bartventer/gorm-multitenancy/v8"
	"github.com/bartventer/gorm-multitenancy/v8/pkg/driver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the multitenancy database instance. CRM data (leads,
// conversations, messages, products, orders, ai configs) lives in per-tenant
// schemas; tenants, users, channels and invoices live in public.
type DB struct {
	*multitenancy.DB
}

// Connect establishes a connection to the PostgreSQL database with
// multitenancy support.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	gormConfig := &gorm.Config{}
	if os.Getenv("DB_DEBUG") == "true" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := multitenancy.OpenDB(ctx, databaseURL, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("Database connection established")
	return &DB{DB: db}, nil
}

// RegisterModels registers all models with the multitenancy database
func (db *DB) RegisterModels(ctx context.Context, models ...driver.TenantTabler) error {
	if err := db.DB.RegisterModels(ctx, models...); err != nil {
		return fmt.Errorf("failed to register models: %w", err)
	}
	slog.Info("Models registered", "count", len(models))
	return nil
}

// MigrateSharedModels migrates all shared/public models
func (db *DB) MigrateSharedModels(ctx context.Context) error {
	if err := db.DB.MigrateSharedModels(ctx); err != nil {
		return fmt.Errorf("failed to migrate shared models: %w", err)
	}
	slog.Info("Shared models migrated")
	return nil
}

// CreateTenantSchema creates a tenant schema and migrates the tenant-scoped
// models into it. Called once at registration.
func (db *DB) CreateTenantSchema(ctx context.Context, tenantID string) error {
	if err := db.DB.MigrateTenantModels(ctx, tenantID); err != nil {
		return fmt.Errorf("failed to create tenant schema for %s: %w", tenantID, err)
	}
	slog.Info("Tenant schema migrated", "tenant", tenantID)
	return nil
}

// DropTenantSchema removes a tenant's schema and everything in it. Used to
// clean up when registration fails after the schema was migrated.
func (db *DB) DropTenantSchema(ctx context.Context, tenantID string) error {
	if err := db.DB.OffboardTenant(ctx, tenantID); err != nil {
		return fmt.Errorf("failed to drop tenant schema for %s: %w", tenantID, err)
	}
	slog.Info("Tenant schema dropped", "tenant", tenantID)
	return nil
}

// WithTenant executes fn with the search path set to the tenant's schema.
func (db *DB) WithTenant(ctx context.Context, tenantID string, fn func(tx *gorm.DB) error) error {
	return db.DB.WithTenant(ctx, tenantID, func(tx *multitenancy.DB) error {
		return fn(tx.DB)
	})
}

// Shared returns the gorm handle for public-schema tables.
func (db *DB) Shared() *gorm.DB {
	return db.DB.DB
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}
	return sqlDB.Close()
}
