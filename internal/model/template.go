package model

import (
	"time"

	"github.com/google/uuid"
)

type FrameworkStatus string

const (
	FrameworkDraft    FrameworkStatus = "DRAFT"
	FrameworkActive   FrameworkStatus = "ACTIVE"
	FrameworkArchived FrameworkStatus = "ARCHIVED"
)

// Framework is the root of a template hierarchy owned by the system catalog.
type Framework struct {
	Node

	Name          string          `gorm:"type:varchar(50);not null"`
	FullName      string          `gorm:"type:varchar(200);not null"`
	Description   string          `gorm:"type:text;not null;default:''"`
	Version       string          `gorm:"type:varchar(20);not null"`
	EffectiveDate *time.Time      `gorm:"type:date"`
	Status        FrameworkStatus `gorm:"type:varchar(20);not null"`
}

func (Framework) TableName() string   { return "template_frameworks" }
func (Framework) IsSharedModel() bool { return true }
func (Framework) Module() Module      { return ModuleTemplatesHost }

type Domain struct {
	Node

	FrameworkID *uuid.UUID `gorm:"type:uuid;index"`
	Name        string     `gorm:"type:varchar(100);not null"`
	Code        string     `gorm:"type:varchar(20);not null"`
	Description string     `gorm:"type:text;not null;default:''"`
}

func (Domain) TableName() string   { return "template_domains" }
func (Domain) IsSharedModel() bool { return true }
func (Domain) Module() Module      { return ModuleTemplatesHost }

type Category struct {
	Node

	DomainID    *uuid.UUID `gorm:"type:uuid;index"`
	Name        string     `gorm:"type:varchar(100);not null"`
	Code        string     `gorm:"type:varchar(20);not null"`
	Description string     `gorm:"type:text;not null;default:''"`
}

func (Category) TableName() string   { return "template_categories" }
func (Category) IsSharedModel() bool { return true }
func (Category) Module() Module      { return ModuleTemplatesHost }

type Subcategory struct {
	Node

	CategoryID  *uuid.UUID `gorm:"type:uuid;index"`
	Name        string     `gorm:"type:varchar(100);not null"`
	Code        string     `gorm:"type:varchar(20);not null"`
	Description string     `gorm:"type:text;not null;default:''"`
}

func (Subcategory) TableName() string   { return "template_subcategories" }
func (Subcategory) IsSharedModel() bool { return true }
func (Subcategory) Module() Module      { return ModuleTemplatesHost }

type Control struct {
	Node

	SubcategoryID *uuid.UUID `gorm:"type:uuid;index"`
	ControlCode   string     `gorm:"type:varchar(50);not null"`
	Title         string     `gorm:"type:varchar(200);not null"`
	Description   string     `gorm:"type:text;not null"`
	Objective     string     `gorm:"type:text;not null;default:''"`
	ControlType   string     `gorm:"type:varchar(20);not null;default:''"`
	Frequency     string     `gorm:"type:varchar(20);not null;default:''"`
	RiskLevel     string     `gorm:"type:varchar(20);not null;default:''"`
}

func (Control) TableName() string   { return "template_controls" }
func (Control) IsSharedModel() bool { return true }
func (Control) Module() Module      { return ModuleTemplatesHost }

type AssessmentQuestion struct {
	Node

	ControlID    *uuid.UUID `gorm:"type:uuid;index"`
	Question     string     `gorm:"type:text;not null"`
	QuestionType string     `gorm:"type:varchar(20);not null"`
	Options      []string   `gorm:"type:text;serializer:json"`
	IsMandatory  bool       `gorm:"not null"`
}

func (AssessmentQuestion) TableName() string   { return "template_assessment_questions" }
func (AssessmentQuestion) IsSharedModel() bool { return true }
func (AssessmentQuestion) Module() Module      { return ModuleTemplatesHost }

type EvidenceRequirement struct {
	Node

	ControlID    *uuid.UUID `gorm:"type:uuid;index"`
	Title        string     `gorm:"type:varchar(200);not null"`
	Description  string     `gorm:"type:text;not null"`
	EvidenceType string     `gorm:"type:varchar(20);not null"`
	FileFormat   string     `gorm:"type:varchar(100);not null;default:''"`
	IsMandatory  bool       `gorm:"not null"`
}

func (EvidenceRequirement) TableName() string   { return "template_evidence_requirements" }
func (EvidenceRequirement) IsSharedModel() bool { return true }
func (EvidenceRequirement) Module() Module      { return ModuleTemplatesHost }
