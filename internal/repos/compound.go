package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/types"
)

// CompoundFilter mirrors the query API: ID filters take precedence over the
// matching name filter; name filters are case-insensitive substring matches.
type CompoundFilter struct {
	CompoundID    *uuid.UUID
	ClassID       *uuid.UUID
	ClassName     string
	SubclassID    *uuid.UUID
	SubclassName  string
	Type          string
	OriginID      *uuid.UUID
	TreatmentID   *uuid.UUID
	TreatmentName string
	Name          string

	Page     int
	PageSize int
}

type CompoundRepo interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, compound *types.Compound) (*types.Compound, bool, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Compound, error)
	List(ctx context.Context, tx *gorm.DB, filter CompoundFilter) ([]*types.Compound, int64, error)
	ListWithSmile(ctx context.Context, tx *gorm.DB, missingImageOnly bool, compoundID *uuid.UUID) ([]*types.Compound, error)
	DistinctTypes(ctx context.Context, tx *gorm.DB) ([]string, error)
	AddTreatments(ctx context.Context, tx *gorm.DB, compound *types.Compound, treatments []*types.Treatment) error
	AddReferences(ctx context.Context, tx *gorm.DB, compound *types.Compound, references []*types.Reference) error
	AddFormulas(ctx context.Context, tx *gorm.DB, compound *types.Compound, formulas []*types.FormulaMass) error
	UpdateMoleculeImage(ctx context.Context, tx *gorm.DB, id uuid.UUID, imagePath string) error
}

type compoundRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompoundRepo(db *gorm.DB, baseLog *logger.Logger) CompoundRepo {
	return &compoundRepo{db: db, log: baseLog.With("repo", "CompoundRepo")}
}

// FindOrCreate matches on the full natural key: (origin, class, subclass,
// type, mode, name, neutral_formula, mz_ion, smile, notes). An existing
// match is reused so a repeated import never duplicates a compound.
func (r *compoundRepo) FindOrCreate(ctx context.Context, tx *gorm.DB, compound *types.Compound) (*types.Compound, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).
		Where("class_id = ?", compound.ClassID).
		Where("subclass_id = ?", compound.SubclassID).
		Where("type = ?", compound.Type).
		Where("mode = ?", compound.Mode).
		Where("name = ?", compound.Name).
		Where("neutral_formula = ?", compound.NeutralFormula).
		Where("mz_ion = ?", compound.MzIon).
		Where("smile = ?", compound.Smile).
		Where("notes = ?", compound.Notes)
	if compound.OriginID == nil {
		q = q.Where("origin_id IS NULL")
	} else {
		q = q.Where("origin_id = ?", *compound.OriginID)
	}

	var existing types.Compound
	err := q.First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	if compound.ID == uuid.Nil {
		compound.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).
		Omit("Treatments", "References", "Formulas", "Origin", "Class", "Subclass").
		Create(compound).Error; err != nil {
		return nil, false, err
	}
	return compound, true, nil
}

func (r *compoundRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Compound, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var compound types.Compound
	err := transaction.WithContext(ctx).
		Preload("Origin").
		Preload("Class").
		Preload("Subclass").
		Preload("Treatments").
		Preload("References").
		Preload("Formulas").
		Where("id = ?", id).
		First(&compound).Error
	if err != nil {
		return nil, err
	}
	return &compound, nil
}

func (r *compoundRepo) List(ctx context.Context, tx *gorm.DB, filter CompoundFilter) ([]*types.Compound, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	// Treatment joins can fan out rows, so both the count and the page
	// select go through DISTINCT on a freshly built query.
	base := func() *gorm.DB {
		q := transaction.WithContext(ctx).Model(&types.Compound{})

		if filter.CompoundID != nil {
			q = q.Where("compound.id = ?", *filter.CompoundID)
		}

		if filter.ClassID != nil {
			q = q.Where("compound.class_id = ?", *filter.ClassID)
		} else if filter.ClassName != "" {
			q = q.Joins("JOIN class ON class.id = compound.class_id").
				Where("LOWER(class.name) LIKE ?", "%"+lower(filter.ClassName)+"%")
		}

		if filter.SubclassID != nil {
			q = q.Where("compound.subclass_id = ?", *filter.SubclassID)
		} else if filter.SubclassName != "" {
			q = q.Joins("JOIN subclass ON subclass.id = compound.subclass_id").
				Where("LOWER(subclass.name) LIKE ?", "%"+lower(filter.SubclassName)+"%")
		}

		if filter.Type != "" {
			q = q.Where("LOWER(compound.type) = ?", lower(filter.Type))
		}
		if filter.OriginID != nil {
			q = q.Where("compound.origin_id = ?", *filter.OriginID)
		}

		if filter.TreatmentID != nil {
			q = q.Joins("JOIN compound_treatments ct ON ct.compound_id = compound.id").
				Where("ct.treatment_id = ?", *filter.TreatmentID)
		} else if filter.TreatmentName != "" {
			q = q.Joins("JOIN compound_treatments ct ON ct.compound_id = compound.id").
				Joins("JOIN treatment ON treatment.id = ct.treatment_id").
				Where("LOWER(treatment.name) LIKE ?", "%"+lower(filter.TreatmentName)+"%")
		}

		if filter.Name != "" {
			q = q.Where("LOWER(compound.name) LIKE ?", "%"+lower(filter.Name)+"%")
		}
		return q
	}

	var total int64
	if err := base().Distinct("compound.id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := NormalizePageSize(filter.PageSize)

	var out []*types.Compound
	err := base().
		Distinct("compound.*").
		Preload("Origin").
		Preload("Class").
		Preload("Subclass").
		Preload("Treatments").
		Preload("References").
		Preload("Formulas").
		Order("compound.name ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *compoundRepo) ListWithSmile(ctx context.Context, tx *gorm.DB, missingImageOnly bool, compoundID *uuid.UUID) ([]*types.Compound, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).Where("smile <> ''")
	if compoundID != nil {
		q = q.Where("id = ?", *compoundID)
	}
	if missingImageOnly {
		q = q.Where("molecule_image = ''")
	}

	var out []*types.Compound
	if err := q.Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *compoundRepo) DistinctTypes(ctx context.Context, tx *gorm.DB) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var out []string
	err := transaction.WithContext(ctx).
		Model(&types.Compound{}).
		Distinct("type").
		Order("type ASC").
		Pluck("type", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *compoundRepo) AddTreatments(ctx context.Context, tx *gorm.DB, compound *types.Compound, treatments []*types.Treatment) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(treatments) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(compound).
		Association("Treatments").
		Append(treatments)
}

func (r *compoundRepo) AddReferences(ctx context.Context, tx *gorm.DB, compound *types.Compound, references []*types.Reference) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(references) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(compound).
		Association("References").
		Append(references)
}

func (r *compoundRepo) AddFormulas(ctx context.Context, tx *gorm.DB, compound *types.Compound, formulas []*types.FormulaMass) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(formulas) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(compound).
		Association("Formulas").
		Append(formulas)
}

func lower(s string) string { return strings.ToLower(s) }

// NormalizePageSize clamps a requested page size to [1, 100], defaulting
// to 20.
func NormalizePageSize(n int) int {
	if n < 1 {
		return 20
	}
	if n > 100 {
		return 100
	}
	return n
}

func (r *compoundRepo) UpdateMoleculeImage(ctx context.Context, tx *gorm.DB, id uuid.UUID, imagePath string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Compound{}).
		Where("id = ?", id).
		Update("molecule_image", imagePath).Error
}
