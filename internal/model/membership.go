package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "ACTIVE"
	MembershipPending   MembershipStatus = "PENDING"
	MembershipSuspended MembershipStatus = "SUSPENDED"
	MembershipInactive  MembershipStatus = "INACTIVE"
)

// GrantsAccess reports whether a member in this status may use the tenant.
func (s MembershipStatus) GrantsAccess() bool {
	return s == MembershipActive || s == MembershipPending
}

// TenantMembership links a principal to a tenant together with the
// permission codes it holds there.
type TenantMembership struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_membership_tenant_user"`
	UserID      string           `gorm:"type:varchar(255);not null;uniqueIndex:idx_membership_tenant_user"`
	Status      MembershipStatus `gorm:"type:varchar(20);not null"`
	IsAdmin     bool             `gorm:"not null"`
	Permissions []string         `gorm:"type:text;serializer:json"`

	AutoTimeModel
}

func (TenantMembership) TableName() string   { return "tenant_memberships" }
func (TenantMembership) IsSharedModel() bool { return true }
func (TenantMembership) Module() Module      { return ModuleRoles }

func (m *TenantMembership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	return m.AutoTimeModel.BeforeCreate(tx)
}
