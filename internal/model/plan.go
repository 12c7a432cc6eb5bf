package model

import (
	_ "embed"
	"errors"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/errs"
)

var (
	ErrInvalidPlanCode           = errors.New("subscription plan code is not valid")
	ErrInvalidCustomizationLevel = errors.New("customization level is not valid")
	ErrLoadingPlans              = errors.New("error loading subscription plans")
)

type PlanCode string

const (
	PlanBasic        PlanCode = "BASIC"
	PlanProfessional PlanCode = "PROFESSIONAL"
	PlanEnterprise   PlanCode = "ENTERPRISE"
)

func (c PlanCode) Validate() error {
	switch c {
	case PlanBasic, PlanProfessional, PlanEnterprise:
		return nil
	default:
		return ErrInvalidPlanCode
	}
}

// CustomizationLevel governs how much of a copied framework a tenant may edit.
type CustomizationLevel string

const (
	CustomizationViewOnly     CustomizationLevel = "VIEW_ONLY"
	CustomizationControlLevel CustomizationLevel = "CONTROL_LEVEL"
	CustomizationFull         CustomizationLevel = "FULL"
)

func (l CustomizationLevel) Validate() error {
	switch l {
	case CustomizationViewOnly, CustomizationControlLevel, CustomizationFull:
		return nil
	default:
		return ErrInvalidCustomizationLevel
	}
}

// AllowsControlEdits is the copy time default for CompanyControl.CanCustomize.
func (l CustomizationLevel) AllowsControlEdits() bool {
	return l != CustomizationViewOnly
}

// SubscriptionPlan holds the limits and capabilities of a commercial tier.
// Zero limits mean unlimited.
type SubscriptionPlan struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" yaml:"-"`
	Code PlanCode  `gorm:"type:varchar(30);not null;uniqueIndex" yaml:"code"`
	Name string    `gorm:"type:varchar(100);not null" yaml:"name"`

	MaxUsers      int `gorm:"not null;default:0" yaml:"maxUsers"`
	MaxFrameworks int `gorm:"not null;default:0" yaml:"maxFrameworks"`
	MaxControls   int `gorm:"not null;default:0" yaml:"maxControls"`
	MaxStorageGB  int `gorm:"not null;default:0" yaml:"maxStorageGB"`

	CanCustomizeControls      bool               `gorm:"not null" yaml:"canCustomizeControls"`
	CanCreateCustomFrameworks bool               `gorm:"not null" yaml:"canCreateCustomFrameworks"`
	DefaultIsolationMode      IsolationMode      `gorm:"type:varchar(20);not null" yaml:"defaultIsolationMode"`
	DefaultCustomizationLevel CustomizationLevel `gorm:"type:varchar(20);not null" yaml:"defaultCustomizationLevel"`
	IsActive                  bool               `gorm:"not null" yaml:"isActive"`

	AutoTimeModel `yaml:"-"`
}

func (SubscriptionPlan) TableName() string   { return "subscription_plans" }
func (SubscriptionPlan) IsSharedModel() bool { return true }
func (SubscriptionPlan) Module() Module      { return ModuleTenantManagement }

func (p *SubscriptionPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	return p.AutoTimeModel.BeforeCreate(tx)
}

// IsMidTier reports a plan that may customize controls but not restructure them.
func (p *SubscriptionPlan) IsMidTier() bool {
	return p.CanCustomizeControls && !p.CanCreateCustomFrameworks
}

// WithinFrameworkLimit reports whether one more framework fits the plan.
func (p *SubscriptionPlan) WithinFrameworkLimit(current int) bool {
	return p.MaxFrameworks == 0 || current < p.MaxFrameworks
}

//go:embed plans.yaml
var defaultPlans []byte

// DefaultPlans returns the seed catalog of subscription plans.
func DefaultPlans() ([]*SubscriptionPlan, error) {
	return ParsePlans(defaultPlans)
}

// ParsePlans decodes a YAML list of plans and validates each entry.
func ParsePlans(data []byte) ([]*SubscriptionPlan, error) {
	var plans []*SubscriptionPlan

	err := yaml.Unmarshal(data, &plans)
	if err != nil {
		return nil, errs.Wrap(ErrLoadingPlans, err)
	}

	for _, p := range plans {
		err = p.Code.Validate()
		if err != nil {
			return nil, errs.Wrapf(ErrLoadingPlans, string(p.Code))
		}

		err = p.DefaultIsolationMode.Validate()
		if err != nil {
			return nil, errs.Wrap(ErrLoadingPlans, err)
		}

		err = p.DefaultCustomizationLevel.Validate()
		if err != nil {
			return nil, errs.Wrap(ErrLoadingPlans, err)
		}
	}

	return plans, nil
}
