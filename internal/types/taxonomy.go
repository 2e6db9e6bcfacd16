package types

import (
	"time"

	"github.com/google/uuid"
)

// Lookup entities are created lazily during import (get-or-create on the
// natural key), never updated afterwards.

type Class struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;column:name" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Class) TableName() string { return "class" }

type Subclass struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;column:name" json:"name"`
	ClassID   uuid.UUID `gorm:"type:uuid;not null;index" json:"class_id"`
	Class     *Class    `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClassID;references:ID" json:"class,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Subclass) TableName() string { return "subclass" }

type Treatment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;column:name" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Treatment) TableName() string { return "treatment" }

// Reference values are deduplicated during import by exact string match,
// not by a storage-level unique constraint.
type Reference struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Value     string    `gorm:"not null;index;column:value" json:"value"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Reference) TableName() string { return "reference" }

type FormulaMass struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Formula   string    `gorm:"not null;index:idx_formula_mass_pair;column:formula" json:"formula"`
	Mass      string    `gorm:"index:idx_formula_mass_pair;column:mass" json:"mass"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (FormulaMass) TableName() string { return "formula_mass" }
