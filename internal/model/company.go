package model

import (
	"time"

	"github.com/google/uuid"
)

// The Company* entities are the tenant local copies of a framework template.
// Template*ID columns are provenance pointers and never foreign keys: the
// copy stays valid when the template changes or disappears.

type CompanyFramework struct {
	Node

	TemplateFrameworkID uuid.UUID       `gorm:"type:uuid;not null;index;index:idx_company_frameworks_active_template,unique,where:is_active"`
	Name                string          `gorm:"type:varchar(50);not null"`
	FullName            string          `gorm:"type:varchar(200);not null"`
	Description         string          `gorm:"type:text;not null;default:''"`
	Version             string          `gorm:"type:varchar(20);not null"`
	EffectiveDate       *time.Time      `gorm:"type:date"`
	Status              FrameworkStatus `gorm:"type:varchar(20);not null"`

	IsCustomized       bool               `gorm:"not null"`
	CustomizationLevel CustomizationLevel `gorm:"type:varchar(20);not null"`
	IsTemplateSynced   bool               `gorm:"not null"`
	CustomDescription  string             `gorm:"type:text;not null;default:''"`
	SubscribedAt       time.Time          `gorm:"not null"`
}

func (CompanyFramework) TableName() string   { return "company_frameworks" }
func (CompanyFramework) IsSharedModel() bool { return false }
func (CompanyFramework) Module() Module      { return ModuleCompanyCompliance }

type CompanyDomain struct {
	Node

	FrameworkID      uuid.UUID `gorm:"type:uuid;not null;index"`
	TemplateDomainID uuid.UUID `gorm:"type:uuid;index"`
	Name             string    `gorm:"type:varchar(100);not null"`
	Code             string    `gorm:"type:varchar(20);not null"`
	Description      string    `gorm:"type:text;not null;default:''"`
	IsCustom         bool      `gorm:"not null"`
}

func (CompanyDomain) TableName() string   { return "company_domains" }
func (CompanyDomain) IsSharedModel() bool { return false }
func (CompanyDomain) Module() Module      { return ModuleCompanyCompliance }

type CompanyCategory struct {
	Node

	DomainID           uuid.UUID `gorm:"type:uuid;not null;index"`
	TemplateCategoryID uuid.UUID `gorm:"type:uuid;index"`
	Name               string    `gorm:"type:varchar(100);not null"`
	Code               string    `gorm:"type:varchar(20);not null"`
	Description        string    `gorm:"type:text;not null;default:''"`
	IsCustom           bool      `gorm:"not null"`
}

func (CompanyCategory) TableName() string   { return "company_categories" }
func (CompanyCategory) IsSharedModel() bool { return false }
func (CompanyCategory) Module() Module      { return ModuleCompanyCompliance }

type CompanySubcategory struct {
	Node

	CategoryID            uuid.UUID `gorm:"type:uuid;not null;index"`
	TemplateSubcategoryID uuid.UUID `gorm:"type:uuid;index"`
	Name                  string    `gorm:"type:varchar(100);not null"`
	Code                  string    `gorm:"type:varchar(20);not null"`
	Description           string    `gorm:"type:text;not null;default:''"`
	IsCustom              bool      `gorm:"not null"`
}

func (CompanySubcategory) TableName() string   { return "company_subcategories" }
func (CompanySubcategory) IsSharedModel() bool { return false }
func (CompanySubcategory) Module() Module      { return ModuleCompanyCompliance }

type CompanyControl struct {
	Node

	SubcategoryID     uuid.UUID `gorm:"type:uuid;not null;index"`
	TemplateControlID uuid.UUID `gorm:"type:uuid;index"`
	ControlCode       string    `gorm:"type:varchar(50);not null"`
	Title             string    `gorm:"type:varchar(200);not null"`
	Description       string    `gorm:"type:text;not null"`
	Objective         string    `gorm:"type:text;not null;default:''"`
	ControlType       string    `gorm:"type:varchar(20);not null;default:''"`
	Frequency         string    `gorm:"type:varchar(20);not null;default:''"`
	RiskLevel         string    `gorm:"type:varchar(20);not null;default:''"`

	IsCustomized                 bool   `gorm:"not null"`
	CanCustomize                 bool   `gorm:"not null"`
	CustomTitle                  string `gorm:"type:varchar(200);not null;default:''"`
	CustomDescription            string `gorm:"type:text;not null;default:''"`
	CustomObjective              string `gorm:"type:text;not null;default:''"`
	CustomProcedures             string `gorm:"type:text;not null;default:''"`
	CustomImplementationGuidance string `gorm:"type:text;not null;default:''"`
	CustomizedAt                 *time.Time
	CustomizedBy                 string `gorm:"type:varchar(255);not null;default:''"`
}

func (CompanyControl) TableName() string   { return "company_controls" }
func (CompanyControl) IsSharedModel() bool { return false }
func (CompanyControl) Module() Module      { return ModuleCompanyCompliance }

// EffectiveTitle is the tenant facing title with customization applied.
func (c *CompanyControl) EffectiveTitle() string {
	if c.IsCustomized && c.CustomTitle != "" {
		return c.CustomTitle
	}

	return c.Title
}

type CompanyAssessmentQuestion struct {
	Node

	ControlID          uuid.UUID `gorm:"type:uuid;not null;index"`
	TemplateQuestionID uuid.UUID `gorm:"type:uuid;index"`
	Question           string    `gorm:"type:text;not null"`
	QuestionType       string    `gorm:"type:varchar(20);not null"`
	Options            []string  `gorm:"type:text;serializer:json"`
	IsMandatory        bool      `gorm:"not null"`
	IsCustom           bool      `gorm:"not null"`
}

func (CompanyAssessmentQuestion) TableName() string   { return "company_assessment_questions" }
func (CompanyAssessmentQuestion) IsSharedModel() bool { return false }
func (CompanyAssessmentQuestion) Module() Module      { return ModuleCompanyCompliance }

type CompanyEvidenceRequirement struct {
	Node

	ControlID          uuid.UUID `gorm:"type:uuid;not null;index"`
	TemplateEvidenceID uuid.UUID `gorm:"type:uuid;index"`
	Title              string    `gorm:"type:varchar(200);not null"`
	Description        string    `gorm:"type:text;not null"`
	EvidenceType       string    `gorm:"type:varchar(20);not null"`
	FileFormat         string    `gorm:"type:varchar(100);not null;default:''"`
	IsMandatory        bool      `gorm:"not null"`
	IsCustom           bool      `gorm:"not null"`
}

func (CompanyEvidenceRequirement) TableName() string   { return "company_evidence_requirements" }
func (CompanyEvidenceRequirement) IsSharedModel() bool { return false }
func (CompanyEvidenceRequirement) Module() Module      { return ModuleCompanyCompliance }

// TenantModels lists the entities materialized in every tenant store, parents first.
func TenantModels() []any {
	return []any{
		&CompanyFramework{},
		&CompanyDomain{},
		&CompanyCategory{},
		&CompanySubcategory{},
		&CompanyControl{},
		&CompanyAssessmentQuestion{},
		&CompanyEvidenceRequirement{},
	}
}

// SharedModels lists the entities of the system catalog, parents first.
func SharedModels() []any {
	return []any{
		&SubscriptionPlan{},
		&Tenant{},
		&FrameworkSubscription{},
		&TenantMembership{},
		&SuperAdminAuditLog{},
		&Framework{},
		&Domain{},
		&Category{},
		&Subcategory{},
		&Control{},
		&AssessmentQuestion{},
		&EvidenceRequirement{},
	}
}
