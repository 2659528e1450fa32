package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"relate-backend/common"
	"relate-backend/sections"
	"relate-backend/sections/models"
)

// UserService handles user and tenant creation logic
type UserService struct {
	logger *slog.Logger
	deps   *sections.Dependencies
}

// NewUserService creates a new user service
func NewUserService(deps *sections.Dependencies) *UserService {
	return &UserService{
		logger: slog.With("service", "UserService"),
		deps:   deps,
	}
}

// CreateUserWithTenantParams holds parameters for registering a business
type CreateUserWithTenantParams struct {
	User        models.User
	CompanyName string
	Tier        int
}

// CreateUserWithTenant creates a user and their tenant in one transaction.
// The tenant starts as pending_payment; the subscription only activates when
// the first invoice settles. The tenant schema is created and migrated here
// so the inbox works the moment the subscription goes live.
func (s *UserService) CreateUserWithTenant(ctx context.Context, params CreateUserWithTenantParams) (*models.User, *models.Tenant, error) {
	if params.Tier != models.TierChatbotAssistant && params.Tier != models.TierSalesAgent {
		params.Tier = models.TierChatbotAssistant
	}

	tenantSchema := s.generateTenantSchema(params.CompanyName, params.User.Email)

	tx := s.deps.DB.Shared().Begin()
	if tx.Error != nil {
		return nil, nil, fmt.Errorf("failed to start transaction: %w", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&params.User).Error; err != nil {
		tx.Rollback()
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created", "user_id", params.User.ID, "email", params.User.Email)

	tenant := models.Tenant{
		CompanyName:        params.CompanyName,
		OwnerUserID:        params.User.ID,
		SubscriptionTier:   params.Tier,
		SubscriptionStatus: models.SubscriptionPendingPayment,
	}
	tenant.SchemaName = tenantSchema
	tenant.DomainURL = tenantSchema

	if err := tx.Create(&tenant).Error; err != nil {
		tx.Rollback()
		return nil, nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.logger.Info("Tenant created", "tenant_schema", tenantSchema, "company", params.CompanyName)

	if err := s.deps.DB.CreateTenantSchema(ctx, tenantSchema); err != nil {
		tx.Rollback()
		return nil, nil, fmt.Errorf("failed to migrate tenant schema: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		// Schema migration runs on its own connection, so a failed commit
		// leaves the schema behind without a tenant row. Drop it.
		if derr := s.deps.DB.DropTenantSchema(ctx, tenantSchema); derr != nil {
			s.logger.Error("Failed to drop orphaned tenant schema", "tenant_schema", tenantSchema, "error", derr)
		}
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &params.User, &tenant, nil
}

// TenantForUser returns the tenant owned by userID, or ErrNotFound-mapped
// gorm error when the user has none.
func (s *UserService) TenantForUser(ctx context.Context, userID uint) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.deps.DB.Shared().WithContext(ctx).Where("owner_user_id = ?", userID).First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// generateTenantSchema derives a postgres-safe schema name from the company
// name, falling back to the email local part, and suffixes a counter until
// the name is free.
func (s *UserService) generateTenantSchema(companyName, email string) string {
	schema := deriveSchemaName(companyName, email)

	var tenant models.Tenant
	baseSchema := schema
	counter := 1
	for {
		err := s.deps.DB.Shared().Where("schema_name = ?", schema).First(&tenant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		schema = fmt.Sprintf("%s_%d", baseSchema, counter)
		counter++
	}

	return schema
}

// deriveSchemaName sanitizes a company name (or the email local part) into a
// postgres-safe schema name within the 3-48 character range tenant
// resolution accepts.
func deriveSchemaName(companyName, email string) string {
	base := companyName
	if base == "" {
		base = strings.Split(email, "@")[0]
	}

	schema := strings.ToLower(common.SafeString(base))
	if schema == "" || schema == "_" {
		schema = fmt.Sprintf("tenant_%d", time.Now().Unix())
	}
	if schema[0] >= '0' && schema[0] <= '9' {
		schema = "t_" + schema
	}
	if len(schema) < 3 {
		schema = "t_" + schema
	}
	if len(schema) > 48 {
		schema = schema[:48]
	}
	return schema
}
