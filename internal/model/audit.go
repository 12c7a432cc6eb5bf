package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditAction string

const (
	AuditCreateTenant        AuditAction = "CREATE_TENANT"
	AuditActivateTenant      AuditAction = "ACTIVATE_TENANT"
	AuditDeleteTenant        AuditAction = "DELETE_TENANT"
	AuditSuspendTenant       AuditAction = "SUSPEND_TENANT"
	AuditResumeTenant        AuditAction = "RESUME_TENANT"
	AuditCancelTenant        AuditAction = "CANCEL_TENANT"
	AuditModifySubscription  AuditAction = "MODIFY_SUBSCRIPTION"
	AuditDistributeFramework AuditAction = "DISTRIBUTE_FRAMEWORK"
)

// SuperAdminAuditLog records an administrative action on a tenant.
type SuperAdminAuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Action     AuditAction    `gorm:"type:varchar(40);not null;index"`
	TenantSlug string         `gorm:"type:varchar(50);not null;index"`
	Actor      string         `gorm:"type:varchar(255);not null"`
	Details    map[string]any `gorm:"type:text;serializer:json"`
	CreatedAt  time.Time      `gorm:"not null"`
}

func (SuperAdminAuditLog) TableName() string   { return "superadmin_audit_logs" }
func (SuperAdminAuditLog) IsSharedModel() bool { return true }
func (SuperAdminAuditLog) Module() Module      { return ModuleTenantManagement }

func (a *SuperAdminAuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	return nil
}
