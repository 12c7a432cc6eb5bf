package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AutoTimeModel struct {
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate ensures timestamps are set before creating a record
func (b *AutoTimeModel) BeforeCreate(_ *gorm.DB) error {
	now := time.Now().UTC()

	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}

	b.UpdatedAt = now

	return nil
}

// BeforeUpdate ensures UpdatedAt is set before updating a record
func (b *AutoTimeModel) BeforeUpdate(_ *gorm.DB) error {
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// Node holds the columns shared by every element of a framework hierarchy,
// template or tenant copy alike.
type Node struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SortOrder int       `gorm:"not null;default:1"`
	IsActive  bool      `gorm:"not null"`
	AutoTimeModel
}

// BeforeCreate assigns an identifier when none was given.
func (n *Node) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	return n.AutoTimeModel.BeforeCreate(tx)
}

func (n Node) GetID() uuid.UUID {
	return n.ID
}
