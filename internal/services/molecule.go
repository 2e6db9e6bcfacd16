package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/platform/media"
	"github.com/ambralab/tpdb-backend/internal/platform/molrender"
	"github.com/ambralab/tpdb-backend/internal/repos"
	"github.com/ambralab/tpdb-backend/internal/types"
)

// MoleculeService renders structure images outside of an import run: the
// regenerate maintenance command and one-off backfills.
type MoleculeService interface {
	GenerateImage(ctx context.Context, tx *gorm.DB, compound *types.Compound, force bool) (bool, error)
	Regenerate(ctx context.Context, force, missingOnly bool, compoundID *uuid.UUID) (int, error)
}

type moleculeService struct {
	db           *gorm.DB
	log          *logger.Logger
	compoundRepo repos.CompoundRepo
	renderer     molrender.Renderer
	mediaStore   *media.Store
}

func NewMoleculeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	compoundRepo repos.CompoundRepo,
	renderer molrender.Renderer,
	mediaStore *media.Store,
) MoleculeService {
	return &moleculeService{
		db:           db,
		log:          baseLog.With("service", "MoleculeService"),
		compoundRepo: compoundRepo,
		renderer:     renderer,
		mediaStore:   mediaStore,
	}
}

// GenerateImage renders the compound's SMILES to a canvas-normalized PNG and
// records the stored path. Unless force is set, an existing image is kept.
// An unparseable SMILES is reported as (false, nil): it is data quality, not
// a failure.
func (ms *moleculeService) GenerateImage(ctx context.Context, tx *gorm.DB, compound *types.Compound, force bool) (bool, error) {
	if compound.Smile == "" {
		return false, nil
	}
	if compound.MoleculeImage != "" && !force {
		return false, nil
	}

	img, err := ms.renderer.Render(ctx, compound.Smile)
	if err != nil {
		if errors.Is(err, molrender.ErrUnparseable) {
			ms.log.Warn("Unparseable SMILES", "compound", compound.Name)
			return false, nil
		}
		return false, fmt.Errorf("render %q: %w", compound.Name, err)
	}

	rel, err := ms.mediaStore.SaveMoleculeImage(compound.ID, img)
	if err != nil {
		return false, fmt.Errorf("save image for %q: %w", compound.Name, err)
	}
	if err := ms.compoundRepo.UpdateMoleculeImage(ctx, tx, compound.ID, rel); err != nil {
		return false, fmt.Errorf("store image path for %q: %w", compound.Name, err)
	}
	compound.MoleculeImage = rel
	return true, nil
}

// Regenerate renders images for compounds with a SMILES. Without force,
// compounds that already have an image are left alone; missingOnly narrows
// the candidate set up front; compoundID targets a single compound. Returns
// how many images were written.
func (ms *moleculeService) Regenerate(ctx context.Context, force, missingOnly bool, compoundID *uuid.UUID) (int, error) {
	compounds, err := ms.compoundRepo.ListWithSmile(ctx, nil, missingOnly && !force, compoundID)
	if err != nil {
		return 0, fmt.Errorf("list compounds: %w", err)
	}

	generated := 0
	for _, compound := range compounds {
		if ctx.Err() != nil {
			return generated, ctx.Err()
		}
		ok, gErr := ms.GenerateImage(ctx, nil, compound, force)
		if gErr != nil {
			ms.log.Warn("Image generation failed", "compound", compound.Name, "error", gErr)
			continue
		}
		if ok {
			generated++
		}
	}
	ms.log.Info("Regenerated molecule images", "candidates", len(compounds), "generated", generated)
	return generated, nil
}
