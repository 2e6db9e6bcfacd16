package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/excel"
	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/platform/media"
	"github.com/ambralab/tpdb-backend/internal/platform/molrender"
	"github.com/ambralab/tpdb-backend/internal/repos"
	"github.com/ambralab/tpdb-backend/internal/types"
)

// Importer turns parsed worksheet rows into store records. The whole run is
// one transaction: a failure anywhere leaves the store untouched, including
// lookup entities harvested in pass 1.
type Importer interface {
	ImportFile(ctx context.Context, path string, clearExisting, skipImages bool) (int, error)
	Import(ctx context.Context, tx *gorm.DB, wb *excel.Workbook, skipImages bool) (int, error)
}

type importer struct {
	db              *gorm.DB
	log             *logger.Logger
	classRepo       repos.ClassRepo
	subclassRepo    repos.SubclassRepo
	treatmentRepo   repos.TreatmentRepo
	referenceRepo   repos.ReferenceRepo
	formulaMassRepo repos.FormulaMassRepo
	compoundRepo    repos.CompoundRepo
	adminRepo       repos.AdminRepo
	renderer        molrender.Renderer
	mediaStore      *media.Store
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	classRepo repos.ClassRepo,
	subclassRepo repos.SubclassRepo,
	treatmentRepo repos.TreatmentRepo,
	referenceRepo repos.ReferenceRepo,
	formulaMassRepo repos.FormulaMassRepo,
	compoundRepo repos.CompoundRepo,
	adminRepo repos.AdminRepo,
	renderer molrender.Renderer,
	mediaStore *media.Store,
) Importer {
	return &importer{
		db:              db,
		log:             baseLog.With("service", "Importer"),
		classRepo:       classRepo,
		subclassRepo:    subclassRepo,
		treatmentRepo:   treatmentRepo,
		referenceRepo:   referenceRepo,
		formulaMassRepo: formulaMassRepo,
		compoundRepo:    compoundRepo,
		adminRepo:       adminRepo,
		renderer:        renderer,
		mediaStore:      mediaStore,
	}
}

func (im *importer) ImportFile(ctx context.Context, path string, clearExisting, skipImages bool) (int, error) {
	wb, err := excel.Open(path)
	if err != nil {
		return 0, err
	}

	var count int
	err = im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clearExisting {
			if cErr := im.adminRepo.ClearAll(ctx, tx); cErr != nil {
				return fmt.Errorf("clear existing data: %w", cErr)
			}
		}
		n, iErr := im.Import(ctx, tx, wb, skipImages)
		if iErr != nil {
			return iErr
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	im.log.Info("Import finished", "path", path, "records", count)
	return count, nil
}

// scratch holds the per-import lookup maps. They are local to one run so
// concurrent imports never share state; treatments and references pre-seed
// "" and "-" as explicit empties.
type scratch struct {
	classes    map[string]*types.Class
	subclasses map[string]*types.Subclass
	treatments map[string]*types.Treatment
	references map[string]*types.Reference

	originalKeys []string
	originals    map[string][]string
	tpKeys       []string
	tps          map[string][]string

	// originals bucket key -> materialized compound, for TP origin lookups
	compounds map[string]*types.Compound
}

func (im *importer) Import(ctx context.Context, tx *gorm.DB, wb *excel.Workbook, skipImages bool) (int, error) {
	cols := wb.Cols
	sc := &scratch{
		classes:    map[string]*types.Class{},
		subclasses: map[string]*types.Subclass{},
		treatments: map[string]*types.Treatment{"-": nil, "": nil},
		references: map[string]*types.Reference{"-": nil, "": nil},
		originals:  map[string][]string{},
		tps:        map[string][]string{},
		compounds:  map[string]*types.Compound{},
	}

	count := 0

	// Pass 1: harvest lookup entities and partition rows by type.
	for i, row := range wb.Rows() {
		n, err := im.harvestRow(ctx, tx, sc, cols, row)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+2, err)
		}
		count += n
	}

	// Pass 2a: originals first, so transformation products can link to them.
	for _, key := range sc.originalKeys {
		row := sc.originals[key]
		compound := &types.Compound{
			Type:           types.CompoundTypeOriginal,
			Mode:           excel.Field(row, cols.Mode) == "positive",
			Name:           excel.Field(row, cols.Name),
			NeutralFormula: excel.Field(row, cols.Neutral),
			MzIon:          excel.Field(row, cols.Mz),
			Smile:          excel.Field(row, cols.Smile),
			Notes:          excel.Field(row, cols.Notes),
		}
		n, obj, err := im.materialize(ctx, tx, sc, cols, row, compound, skipImages)
		if err != nil {
			return 0, fmt.Errorf("original compound %q: %w", compound.Name, err)
		}
		sc.compounds[key] = obj
		count += n
	}

	// Pass 2b: transformation products. The origin may resolve to nothing,
	// in which case the TP is stored with a nil origin.
	for _, key := range sc.tpKeys {
		row := sc.tps[key]
		compound := &types.Compound{
			Type: types.CompoundTypeTP,
			// "positivo", not "positive": kept as the import files use it.
			Mode:           excel.Field(row, cols.Mode) == "positivo",
			Name:           key,
			NeutralFormula: excel.Field(row, cols.Neutral),
			MzIon:          excel.Field(row, cols.Mz),
			Smile:          excel.Field(row, cols.Smile),
			Notes:          excel.Field(row, cols.Notes),
		}
		if origin := sc.compounds[excel.Field(row, cols.Origin)]; origin != nil {
			originID := origin.ID
			compound.OriginID = &originID
		}
		n, _, err := im.materialize(ctx, tx, sc, cols, row, compound, skipImages)
		if err != nil {
			return 0, fmt.Errorf("TP compound %q: %w", compound.Name, err)
		}
		count += n
	}

	return count, nil
}

func (im *importer) harvestRow(ctx context.Context, tx *gorm.DB, sc *scratch, cols excel.Columns, row []string) (int, error) {
	count := 0

	className := excel.Field(row, cols.Class)
	if className != "" {
		if _, ok := sc.classes[className]; !ok {
			obj, created, err := im.classRepo.FindOrCreate(ctx, tx, className)
			if err != nil {
				return 0, fmt.Errorf("class %q: %w", className, err)
			}
			sc.classes[className] = obj
			if created {
				im.log.Debug("Created class", "name", className)
				count++
			}
		}
	}

	subclassName := excel.Field(row, cols.Subclass)
	if subclassName != "" {
		if _, ok := sc.subclasses[subclassName]; !ok {
			class, ok := sc.classes[className]
			if !ok {
				return 0, fmt.Errorf("subclass %q has no compound class", subclassName)
			}
			obj, created, err := im.subclassRepo.FindOrCreate(ctx, tx, subclassName, class.ID)
			if err != nil {
				return 0, fmt.Errorf("subclass %q: %w", subclassName, err)
			}
			sc.subclasses[subclassName] = obj
			if created {
				im.log.Debug("Created subclass", "name", subclassName)
				count++
			}
		}
	}

	for _, name := range SplitList(excel.Field(row, cols.Treatment)) {
		if _, ok := sc.treatments[name]; ok {
			continue
		}
		obj, created, err := im.treatmentRepo.FindOrCreate(ctx, tx, name)
		if err != nil {
			return 0, fmt.Errorf("treatment %q: %w", name, err)
		}
		sc.treatments[name] = obj
		if created {
			count++
		}
	}

	for _, value := range SplitList(excel.Field(row, cols.Reference)) {
		if _, ok := sc.references[value]; ok {
			continue
		}
		obj, created, err := im.referenceRepo.FindOrCreate(ctx, tx, value)
		if err != nil {
			return 0, fmt.Errorf("reference %q: %w", value, err)
		}
		sc.references[value] = obj
		if created {
			count++
		}
	}

	origin := excel.Field(row, cols.Origin)
	name := excel.Field(row, cols.Name)

	// Later rows with the same bucket key overwrite earlier ones; the key
	// keeps its original position.
	if excel.Field(row, cols.Type) == types.CompoundTypeOriginal {
		if _, ok := sc.originals[origin]; !ok {
			sc.originalKeys = append(sc.originalKeys, origin)
		}
		sc.originals[origin] = row
	} else {
		if _, ok := sc.tps[name]; !ok {
			sc.tpKeys = append(sc.tpKeys, name)
		}
		sc.tps[name] = row
	}

	return count, nil
}

// materialize resolves the class/subclass references, get-or-creates the
// compound, attaches its many-to-many rows and renders the molecule image.
// Returns the number of newly created records.
func (im *importer) materialize(ctx context.Context, tx *gorm.DB, sc *scratch, cols excel.Columns, row []string, compound *types.Compound, skipImages bool) (int, *types.Compound, error) {
	count := 0

	class, ok := sc.classes[excel.Field(row, cols.Class)]
	if !ok {
		return 0, nil, fmt.Errorf("unknown compound class %q", excel.Field(row, cols.Class))
	}
	subclass, ok := sc.subclasses[excel.Field(row, cols.Subclass)]
	if !ok {
		return 0, nil, fmt.Errorf("unknown subclass %q", excel.Field(row, cols.Subclass))
	}
	compound.ClassID = class.ID
	compound.SubclassID = subclass.ID

	obj, created, err := im.compoundRepo.FindOrCreate(ctx, tx, compound)
	if err != nil {
		return 0, nil, err
	}
	if created {
		im.log.Debug("Created compound", "name", obj.Name, "type", obj.Type)
		count++
	}

	var treatments []*types.Treatment
	for _, name := range SplitList(excel.Field(row, cols.Treatment)) {
		if t := sc.treatments[name]; t != nil {
			treatments = append(treatments, t)
		}
	}
	if err := im.compoundRepo.AddTreatments(ctx, tx, obj, treatments); err != nil {
		return 0, nil, fmt.Errorf("attach treatments: %w", err)
	}

	var references []*types.Reference
	for _, value := range SplitList(excel.Field(row, cols.Reference)) {
		if r := sc.references[value]; r != nil {
			references = append(references, r)
		}
	}
	if err := im.compoundRepo.AddReferences(ctx, tx, obj, references); err != nil {
		return 0, nil, fmt.Errorf("attach references: %w", err)
	}

	n, err := im.attachFragments(ctx, tx, cols, row, obj)
	if err != nil {
		return 0, nil, err
	}
	count += n

	if obj.Smile != "" && !skipImages {
		im.generateImage(ctx, tx, obj)
	}

	return count, obj, nil
}

// attachFragments links one FormulaMass per fragment pair whose formula and
// mass cells are both non-empty after trimming.
func (im *importer) attachFragments(ctx context.Context, tx *gorm.DB, cols excel.Columns, row []string, compound *types.Compound) (int, error) {
	count := 0
	var formulas []*types.FormulaMass
	for _, pair := range cols.Fragments {
		if pair.Formula < 0 || pair.Mz < 0 {
			continue
		}
		formulaValue := excel.Field(row, pair.Formula)
		massValue := excel.Field(row, pair.Mz)
		if formulaValue == "" || massValue == "" {
			continue
		}
		obj, created, err := im.formulaMassRepo.FindOrCreate(ctx, tx, formulaValue, massValue)
		if err != nil {
			return 0, fmt.Errorf("formula/mass %q/%q: %w", formulaValue, massValue, err)
		}
		formulas = append(formulas, obj)
		if created {
			im.log.Debug("Created formula/mass pair", "formula", formulaValue, "mass", massValue)
			count++
		}
	}
	if err := im.compoundRepo.AddFormulas(ctx, tx, compound, formulas); err != nil {
		return 0, fmt.Errorf("attach formulas: %w", err)
	}
	return count, nil
}

// generateImage is opportunistic and skip-safe: an existing image is kept,
// and a render failure never fails the import.
func (im *importer) generateImage(ctx context.Context, tx *gorm.DB, compound *types.Compound) {
	if compound.MoleculeImage != "" {
		return
	}
	img, err := im.renderer.Render(ctx, compound.Smile)
	if err != nil {
		if !errors.Is(err, molrender.ErrUnparseable) {
			im.log.Warn("Molecule render failed", "compound", compound.Name, "error", err)
		}
		return
	}
	rel, err := im.mediaStore.SaveMoleculeImage(compound.ID, img)
	if err != nil {
		im.log.Warn("Could not save molecule image", "compound", compound.Name, "error", err)
		return
	}
	if err := im.compoundRepo.UpdateMoleculeImage(ctx, tx, compound.ID, rel); err != nil {
		im.log.Warn("Could not store molecule image path", "compound", compound.Name, "error", err)
		return
	}
	compound.MoleculeImage = rel
	im.log.Info("Generated molecule image", "compound", compound.Name)
}

// SplitList splits a multi-valued cell on ";", trimming entries and dropping
// empties.
func SplitList(text string) []string {
	parts := strings.Split(text, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
