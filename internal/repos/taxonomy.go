package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/types"
)

// The lookup repos expose get-or-create as a single primitive so race
// handling lives in one place: a duplicate-key insert under a concurrent
// writer resolves to the existing row instead of failing the import.

type ClassRepo interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, name string) (*types.Class, bool, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Class, error)
}

type classRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClassRepo(db *gorm.DB, baseLog *logger.Logger) ClassRepo {
	return &classRepo{db: db, log: baseLog.With("repo", "ClassRepo")}
}

func (r *classRepo) FindOrCreate(ctx context.Context, tx *gorm.DB, name string) (*types.Class, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var existing types.Class
	err := transaction.WithContext(ctx).Where("name = ?", name).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created := &types.Class{ID: uuid.New(), Name: name}
	if err := transaction.WithContext(ctx).Create(created).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.refetch(ctx, transaction, name)
		}
		return nil, false, err
	}
	return created, true, nil
}

func (r *classRepo) refetch(ctx context.Context, tx *gorm.DB, name string) (*types.Class, bool, error) {
	var existing types.Class
	if err := tx.WithContext(ctx).Where("name = ?", name).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *classRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Class, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Class
	if err := transaction.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type SubclassRepo interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, name string, classID uuid.UUID) (*types.Subclass, bool, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Subclass, error)
}

type subclassRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubclassRepo(db *gorm.DB, baseLog *logger.Logger) SubclassRepo {
	return &subclassRepo{db: db, log: baseLog.With("repo", "SubclassRepo")}
}

func (r *subclassRepo) FindOrCreate(ctx context.Context, tx *gorm.DB, name string, classID uuid.UUID) (*types.Subclass, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var existing types.Subclass
	err := transaction.WithContext(ctx).Where("name = ?", name).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created := &types.Subclass{ID: uuid.New(), Name: name, ClassID: classID}
	if err := transaction.WithContext(ctx).Create(created).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var again types.Subclass
			if ferr := transaction.WithContext(ctx).Where("name = ?", name).First(&again).Error; ferr != nil {
				return nil, false, ferr
			}
			return &again, false, nil
		}
		return nil, false, err
	}
	return created, true, nil
}

func (r *subclassRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Subclass, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Subclass
	if err := transaction.WithContext(ctx).
		Preload("Class").
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type TreatmentRepo interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, name string) (*types.Treatment, bool, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Treatment, error)
}

type treatmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTreatmentRepo(db *gorm.DB, baseLog *logger.Logger) TreatmentRepo {
	return &treatmentRepo{db: db, log: baseLog.With("repo", "TreatmentRepo")}
}

func (r *treatmentRepo) FindOrCreate(ctx context.Context, tx *gorm.DB, name string) (*types.Treatment, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var existing types.Treatment
	err := transaction.WithContext(ctx).Where("name = ?", name).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created := &types.Treatment{ID: uuid.New(), Name: name}
	if err := transaction.WithContext(ctx).Create(created).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var again types.Treatment
			if ferr := transaction.WithContext(ctx).Where("name = ?", name).First(&again).Error; ferr != nil {
				return nil, false, ferr
			}
			return &again, false, nil
		}
		return nil, false, err
	}
	return created, true, nil
}

func (r *treatmentRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Treatment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Treatment
	if err := transaction.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type ReferenceRepo interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, value string) (*types.Reference, bool, error)
}

type referenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReferenceRepo(db *gorm.DB, baseLog *logger.Logger) ReferenceRepo {
	return &referenceRepo{db: db, log: baseLog.With("repo", "ReferenceRepo")}
}

// Reference has no unique constraint; dedup is by exact value match only.
func (r *referenceRepo) FindOrCreate(ctx context.Context, tx *gorm.DB, value string) (*types.Reference, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var existing types.Reference
	err := transaction.WithContext(ctx).Where("value = ?", value).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created := &types.Reference{ID: uuid.New(), Value: value}
	if err := transaction.WithContext(ctx).Create(created).Error; err != nil {
		return nil, false, err
	}
	return created, true, nil
}

type FormulaMassRepo interface {
	FindOrCreate(ctx context.Context, tx *gorm.DB, formula, mass string) (*types.FormulaMass, bool, error)
}

type formulaMassRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFormulaMassRepo(db *gorm.DB, baseLog *logger.Logger) FormulaMassRepo {
	return &formulaMassRepo{db: db, log: baseLog.With("repo", "FormulaMassRepo")}
}

func (r *formulaMassRepo) FindOrCreate(ctx context.Context, tx *gorm.DB, formula, mass string) (*types.FormulaMass, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var existing types.FormulaMass
	err := transaction.WithContext(ctx).
		Where("formula = ? AND mass = ?", formula, mass).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created := &types.FormulaMass{ID: uuid.New(), Formula: formula, Mass: mass}
	if err := transaction.WithContext(ctx).Create(created).Error; err != nil {
		return nil, false, err
	}
	return created, true, nil
}
