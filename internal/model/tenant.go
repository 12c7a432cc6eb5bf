package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	multitenancy "github.com/bartventer/gorm-multitenancy/v8"
)

var ErrTenantIdentityImmutable = errors.New("tenant isolation identity cannot change once provisioning has begun")

// Tenant is the registry record of one customer organisation.
// SchemaName (from the embedded TenantModel) is written on create only.
type Tenant struct {
	multitenancy.TenantModel

	ID           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Slug         string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	CompanyName  string            `gorm:"type:varchar(200);not null"`
	CompanyEmail string            `gorm:"type:varchar(254);not null;default:''"`
	PlanID       uuid.UUID         `gorm:"type:uuid;not null"`
	Plan         *SubscriptionPlan `gorm:"foreignKey:PlanID"`

	IsolationMode             IsolationMode `gorm:"type:varchar(20);not null"`
	DatabaseName              string        `gorm:"type:varchar(63);not null;default:''"`
	DatabaseUser              string        `gorm:"type:varchar(63);not null;default:''"`
	DatabasePasswordEncrypted string        `gorm:"type:text;not null;default:''" json:"-"`
	DatabaseHost              string        `gorm:"type:varchar(255);not null;default:''"`
	DatabasePort              string        `gorm:"type:varchar(10);not null;default:''"`

	SubscriptionStatus SubscriptionStatus `gorm:"type:varchar(30);not null"`
	ProvisioningStatus ProvisioningStatus `gorm:"type:varchar(30);not null"`
	ProvisioningError  string             `gorm:"type:text;not null;default:''"`
	IsActive           bool               `gorm:"not null"`

	CurrentUsers      int     `gorm:"not null;default:0"`
	CurrentFrameworks int     `gorm:"not null;default:0"`
	CurrentControls   int     `gorm:"not null;default:0"`
	CurrentStorageGB  float64 `gorm:"not null;default:0"`

	TrialEndsAt   *time.Time
	ProvisionedAt *time.Time
	ActivatedAt   *time.Time

	AutoTimeModel
}

func (Tenant) TableName() string   { return "tenants" }
func (Tenant) IsSharedModel() bool { return true }
func (Tenant) Module() Module      { return ModuleTenantManagement }

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	if t.DomainURL == "" {
		t.DomainURL = t.Slug
	}

	return t.AutoTimeModel.BeforeCreate(tx)
}

// BeforeUpdate rejects identity changes on tenants whose provisioning has begun.
// The guard applies to Model(t).Updates calls, where gorm can compare the
// loaded record with the requested values.
func (t *Tenant) BeforeUpdate(tx *gorm.DB) error {
	if t.ProvisioningStatus.HasStarted() &&
		tx.Statement.Changed("IsolationMode", "SchemaName", "DatabaseName") {
		return ErrTenantIdentityImmutable
	}

	return t.AutoTimeModel.BeforeUpdate(tx)
}

// ConnectionParams is the part of a tenant that locates its physical store.
type ConnectionParams struct {
	IsolationMode IsolationMode
	SchemaName    string
	DatabaseName  string
	DatabaseUser  string
	DatabaseHost  string
	DatabasePort  string
}

func (t *Tenant) ConnectionParams() ConnectionParams {
	return ConnectionParams{
		IsolationMode: t.IsolationMode,
		SchemaName:    t.SchemaName,
		DatabaseName:  t.DatabaseName,
		DatabaseUser:  t.DatabaseUser,
		DatabaseHost:  t.DatabaseHost,
		DatabasePort:  t.DatabasePort,
	}
}

// CheckIdentityChange refuses an update that would move a tenant whose
// provisioning has started to another schema, database or isolation mode.
func CheckIdentityChange(current *Tenant, next ConnectionParams) error {
	if !current.ProvisioningStatus.HasStarted() {
		return nil
	}

	if current.ConnectionParams() != next {
		return ErrTenantIdentityImmutable
	}

	return nil
}

// TenantInfo is the cacheable projection of a tenant used for routing and
// request admission. It never carries credentials.
type TenantInfo struct {
	ID                 uuid.UUID          `json:"id"`
	Slug               string             `json:"slug"`
	CompanyName        string             `json:"companyName"`
	SchemaName         string             `json:"schemaName"`
	IsolationMode      IsolationMode      `json:"isolationMode"`
	DatabaseName       string             `json:"databaseName"`
	PlanCode           PlanCode           `json:"planCode"`
	SubscriptionStatus SubscriptionStatus `json:"subscriptionStatus"`
	ProvisioningStatus ProvisioningStatus `json:"provisioningStatus"`
	IsActive           bool               `json:"isActive"`
}

// IsServable reports whether the store of the tenant can take requests: it
// is provisioned and active, or the tenant awaits payment and no schema
// work has started yet.
func (i *TenantInfo) IsServable() bool {
	if i.SubscriptionStatus == SubscriptionPendingPayment {
		return !i.ProvisioningStatus.HasStarted()
	}

	return i.IsActive && i.ProvisioningStatus == ProvisioningActive
}

func (t *Tenant) Info() *TenantInfo {
	info := &TenantInfo{
		ID:                 t.ID,
		Slug:               t.Slug,
		CompanyName:        t.CompanyName,
		SchemaName:         t.SchemaName,
		IsolationMode:      t.IsolationMode,
		DatabaseName:       t.DatabaseName,
		SubscriptionStatus: t.SubscriptionStatus,
		ProvisioningStatus: t.ProvisioningStatus,
		IsActive:           t.IsActive,
	}

	if t.Plan != nil {
		info.PlanCode = t.Plan.Code
	}

	return info
}
