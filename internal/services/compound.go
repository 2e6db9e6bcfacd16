package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/platform/apierr"
	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/repos"
	"github.com/ambralab/tpdb-backend/internal/types"
)

var ErrCompoundNotFound = apierr.New(http.StatusNotFound, "compound_not_found", errors.New("compound not found"))

// Metadata backs the filter dropdowns: every known class, subclass,
// treatment and compound type.
type Metadata struct {
	Classes    []*types.Class     `json:"classes"`
	Subclasses []*types.Subclass  `json:"subclasses"`
	Treatments []*types.Treatment `json:"treatments"`
	Types      []string           `json:"types"`
}

// CompoundPage is one page of filtered compounds plus pagination bookkeeping
// computed from the total match count.
type CompoundPage struct {
	Compounds   []*types.Compound `json:"compounds"`
	Total       int64             `json:"total"`
	Page        int               `json:"page"`
	PageSize    int               `json:"page_size"`
	TotalPages  int               `json:"total_pages"`
	HasNext     bool              `json:"has_next"`
	HasPrevious bool              `json:"has_previous"`
}

type CompoundService interface {
	List(ctx context.Context, filter repos.CompoundFilter) (*CompoundPage, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Compound, error)
	Metadata(ctx context.Context) (*Metadata, error)
}

type compoundService struct {
	db            *gorm.DB
	log           *logger.Logger
	compoundRepo  repos.CompoundRepo
	classRepo     repos.ClassRepo
	subclassRepo  repos.SubclassRepo
	treatmentRepo repos.TreatmentRepo
}

func NewCompoundService(
	db *gorm.DB,
	baseLog *logger.Logger,
	compoundRepo repos.CompoundRepo,
	classRepo repos.ClassRepo,
	subclassRepo repos.SubclassRepo,
	treatmentRepo repos.TreatmentRepo,
) CompoundService {
	return &compoundService{
		db:            db,
		log:           baseLog.With("service", "CompoundService"),
		compoundRepo:  compoundRepo,
		classRepo:     classRepo,
		subclassRepo:  subclassRepo,
		treatmentRepo: treatmentRepo,
	}
}

func (cs *compoundService) List(ctx context.Context, filter repos.CompoundFilter) (*CompoundPage, error) {
	compounds, total, err := cs.compoundRepo.List(ctx, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("list compounds: %w", err)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := repos.NormalizePageSize(filter.PageSize)
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if total > 0 && page > totalPages {
		return nil, apierr.New(http.StatusNotFound, "page_not_found",
			fmt.Errorf("page %d does not exist, total pages: %d", page, totalPages))
	}
	return &CompoundPage{
		Compounds:   compounds,
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}, nil
}

func (cs *compoundService) Get(ctx context.Context, id uuid.UUID) (*types.Compound, error) {
	compound, err := cs.compoundRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompoundNotFound
		}
		return nil, fmt.Errorf("get compound: %w", err)
	}
	return compound, nil
}

func (cs *compoundService) Metadata(ctx context.Context) (*Metadata, error) {
	classes, err := cs.classRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	subclasses, err := cs.subclassRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list subclasses: %w", err)
	}
	treatments, err := cs.treatmentRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list treatments: %w", err)
	}
	typeNames, err := cs.compoundRepo.DistinctTypes(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list compound types: %w", err)
	}
	return &Metadata{
		Classes:    classes,
		Subclasses: subclasses,
		Treatments: treatments,
		Types:      typeNames,
	}, nil
}
