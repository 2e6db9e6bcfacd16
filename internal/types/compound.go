package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	CompoundTypeOriginal = "original"
	CompoundTypeTP       = "TP"
)

// Compound is the central entity. An "original" compound has no origin;
// a transformation product ("TP") points at the original it derives from.
// Origin may be nil for a TP whose parent row never matched an original.
type Compound struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OriginID   *uuid.UUID `gorm:"type:uuid;index" json:"origin_id,omitempty"`
	Origin     *Compound  `gorm:"constraint:OnDelete:CASCADE;foreignKey:OriginID;references:ID" json:"origin,omitempty"`
	ClassID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"class_id"`
	Class      *Class     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ClassID;references:ID" json:"class,omitempty"`
	SubclassID uuid.UUID  `gorm:"type:uuid;not null;index" json:"subclass_id"`
	Subclass   *Subclass  `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubclassID;references:ID" json:"subclass,omitempty"`

	Type           string `gorm:"size:8;not null;index;column:type" json:"type"`
	Mode           bool   `gorm:"not null;column:mode" json:"mode"`
	Name           string `gorm:"not null;index;column:name" json:"name"`
	NeutralFormula string `gorm:"not null;column:neutral_formula" json:"neutral_formula"`
	MzIon          string `gorm:"not null;column:mz_ion" json:"mz_ion"`
	Smile          string `gorm:"not null;column:smile" json:"smile"`
	Notes          string `gorm:"column:notes" json:"notes"`

	// Relative path under MEDIA_ROOT, populated opportunistically by the
	// structure renderer. Empty when no image has been generated.
	MoleculeImage string `gorm:"column:molecule_image" json:"molecule_image"`

	Treatments []*Treatment   `gorm:"many2many:compound_treatments;constraint:OnDelete:CASCADE" json:"treatments,omitempty"`
	References []*Reference   `gorm:"many2many:compound_references;constraint:OnDelete:CASCADE" json:"references,omitempty"`
	Formulas   []*FormulaMass `gorm:"many2many:compound_formulas;constraint:OnDelete:CASCADE" json:"formulas,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Compound) TableName() string { return "compound" }
