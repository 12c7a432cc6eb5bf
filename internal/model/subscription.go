package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionState string

const (
	SubscriptionStateActive    SubscriptionState = "ACTIVE"
	SubscriptionStateSuspended SubscriptionState = "SUSPENDED"
	SubscriptionStateCancelled SubscriptionState = "CANCELLED"
)

type UpgradeStatus string

const (
	UpgradeUpToDate  UpgradeStatus = "UP_TO_DATE"
	UpgradeAvailable UpgradeStatus = "UPGRADE_AVAILABLE"
	UpgradeScheduled UpgradeStatus = "UPGRADE_SCHEDULED"
	UpgradeRunning   UpgradeStatus = "UPGRADING"
	UpgradeFailed    UpgradeStatus = "UPGRADE_FAILED"
)

// FrameworkSubscription is the catalog side header of a framework copied
// into a tenant store.
type FrameworkSubscription struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_tenant_framework"`
	FrameworkID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_subscription_tenant_framework"`

	CustomizationLevel CustomizationLevel `gorm:"type:varchar(20);not null"`
	Status             SubscriptionState  `gorm:"type:varchar(20);not null"`

	SubscribedVersion      string        `gorm:"type:varchar(20);not null"`
	CurrentVersion         string        `gorm:"type:varchar(20);not null"`
	LatestAvailableVersion string        `gorm:"type:varchar(20);not null"`
	UpgradeStatus          UpgradeStatus `gorm:"type:varchar(30);not null"`
	AutoUpgrade            bool          `gorm:"not null"`

	SubscribedAt time.Time `gorm:"not null"`
	LastSyncedAt *time.Time

	AutoTimeModel
}

func (FrameworkSubscription) TableName() string   { return "framework_subscriptions" }
func (FrameworkSubscription) IsSharedModel() bool { return true }
func (FrameworkSubscription) Module() Module      { return ModuleTenantManagement }

func (s *FrameworkSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	return s.AutoTimeModel.BeforeCreate(tx)
}
