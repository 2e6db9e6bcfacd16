package repos

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/testutil"
	"github.com/ambralab/tpdb-backend/internal/types"
)

type compoundFixture struct {
	db            *gorm.DB
	log           *logger.Logger
	classRepo     ClassRepo
	subclassRepo  SubclassRepo
	treatmentRepo TreatmentRepo
	compoundRepo  CompoundRepo
	class         *types.Class
	subclass      *types.Subclass
}

func newCompoundFixture(t *testing.T) *compoundFixture {
	t.Helper()
	db := testutil.NewDB(t)
	log := testutil.NewLogger(t)
	f := &compoundFixture{
		db:            db,
		log:           log,
		classRepo:     NewClassRepo(db, log),
		subclassRepo:  NewSubclassRepo(db, log),
		treatmentRepo: NewTreatmentRepo(db, log),
		compoundRepo:  NewCompoundRepo(db, log),
	}
	ctx := context.Background()
	var err error
	f.class, _, err = f.classRepo.FindOrCreate(ctx, nil, "Antibiotics")
	if err != nil {
		t.Fatal(err)
	}
	f.subclass, _, err = f.subclassRepo.FindOrCreate(ctx, nil, "Fluoroquinolones", f.class.ID)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *compoundFixture) newCompound(name, compoundType string) *types.Compound {
	return &types.Compound{
		ClassID:        f.class.ID,
		SubclassID:     f.subclass.ID,
		Type:           compoundType,
		Mode:           true,
		Name:           name,
		NeutralFormula: "C17H18FN3O3",
		MzIon:          "332.14",
		Smile:          "CC1CC1",
		Notes:          "",
	}
}

func TestCompoundFindOrCreateNaturalKey(t *testing.T) {
	f := newCompoundFixture(t)
	ctx := context.Background()

	first, created, err := f.compoundRepo.FindOrCreate(ctx, nil, f.newCompound("cipro", types.CompoundTypeOriginal))
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if !created {
		t.Error("first call should create")
	}

	same, created, err := f.compoundRepo.FindOrCreate(ctx, nil, f.newCompound("cipro", types.CompoundTypeOriginal))
	if err != nil {
		t.Fatal(err)
	}
	if created || same.ID != first.ID {
		t.Errorf("identical row should reuse: created=%v", created)
	}

	// A differing scalar field (notes) makes it a new compound.
	other := f.newCompound("cipro", types.CompoundTypeOriginal)
	other.Notes = "observed in effluent"
	_, created, err = f.compoundRepo.FindOrCreate(ctx, nil, other)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("differing notes should create a new compound")
	}

	// Origin participates in the key: nil origin vs a set origin differ.
	withOrigin := f.newCompound("cipro", types.CompoundTypeTP)
	withOrigin.OriginID = &first.ID
	_, created, err = f.compoundRepo.FindOrCreate(ctx, nil, withOrigin)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("origin-bearing row should be distinct from the nil-origin row")
	}
}

func TestCompoundListFilters(t *testing.T) {
	f := newCompoundFixture(t)
	ctx := context.Background()

	cipro, _, err := f.compoundRepo.FindOrCreate(ctx, nil, f.newCompound("cipro", types.CompoundTypeOriginal))
	if err != nil {
		t.Fatal(err)
	}
	tp1 := f.newCompound("TP 288", types.CompoundTypeTP)
	tp1.OriginID = &cipro.ID
	if _, _, err := f.compoundRepo.FindOrCreate(ctx, nil, tp1); err != nil {
		t.Fatal(err)
	}
	tp2 := f.newCompound("TP 306", types.CompoundTypeTP)
	tp2.OriginID = &cipro.ID
	if _, _, err := f.compoundRepo.FindOrCreate(ctx, nil, tp2); err != nil {
		t.Fatal(err)
	}

	heat, _, err := f.treatmentRepo.FindOrCreate(ctx, nil, "Heat")
	if err != nil {
		t.Fatal(err)
	}
	light, _, err := f.treatmentRepo.FindOrCreate(ctx, nil, "Light")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.compoundRepo.AddTreatments(ctx, nil, cipro, []*types.Treatment{heat, light}); err != nil {
		t.Fatal(err)
	}

	// Type filter is case-insensitive.
	got, total, err := f.compoundRepo.List(ctx, nil, CompoundFilter{Type: "tp"})
	if err != nil {
		t.Fatalf("List by type: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Errorf("type filter: total=%d len=%d, want 2/2", total, len(got))
	}

	// Name substring.
	got, total, err = f.compoundRepo.List(ctx, nil, CompoundFilter{Name: "IPR"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(got) != 1 || got[0].Name != "cipro" {
		t.Errorf("name filter: total=%d", total)
	}

	// Origin filter finds the transformation products.
	got, total, err = f.compoundRepo.List(ctx, nil, CompoundFilter{OriginID: &cipro.ID})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 {
		t.Errorf("origin filter: total=%d, want 2", total)
	}
	for _, c := range got {
		if c.OriginID == nil || *c.OriginID != cipro.ID {
			t.Errorf("compound %s has wrong origin", c.Name)
		}
	}

	// "h" matches both Heat and Light; the join must not double-count the
	// compound.
	got, total, err = f.compoundRepo.List(ctx, nil, CompoundFilter{TreatmentName: "h"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(got) != 1 {
		t.Errorf("treatment name filter should count distinct compounds: total=%d len=%d", total, len(got))
	}
}

func TestCompoundListPagination(t *testing.T) {
	f := newCompoundFixture(t)
	ctx := context.Background()

	names := []string{"a", "b", "c", "d", "e"}
	for _, name := range names {
		if _, _, err := f.compoundRepo.FindOrCreate(ctx, nil, f.newCompound(name, types.CompoundTypeOriginal)); err != nil {
			t.Fatal(err)
		}
	}

	got, total, err := f.compoundRepo.List(ctx, nil, CompoundFilter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Errorf("total=%d, want 5", total)
	}
	if len(got) != 2 || got[0].Name != "c" || got[1].Name != "d" {
		t.Errorf("page 2 = %v", compoundNames(got))
	}
}

func TestCompoundListWithSmile(t *testing.T) {
	f := newCompoundFixture(t)
	ctx := context.Background()

	withImage, _, err := f.compoundRepo.FindOrCreate(ctx, nil, f.newCompound("imaged", types.CompoundTypeOriginal))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.compoundRepo.UpdateMoleculeImage(ctx, nil, withImage.ID, "molecules/x.png"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.compoundRepo.FindOrCreate(ctx, nil, f.newCompound("bare", types.CompoundTypeOriginal)); err != nil {
		t.Fatal(err)
	}
	noSmile := f.newCompound("nosmile", types.CompoundTypeOriginal)
	noSmile.Smile = ""
	if _, _, err := f.compoundRepo.FindOrCreate(ctx, nil, noSmile); err != nil {
		t.Fatal(err)
	}

	all, err := f.compoundRepo.ListWithSmile(ctx, nil, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("all with smile: %d, want 2", len(all))
	}

	missing, err := f.compoundRepo.ListWithSmile(ctx, nil, true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 1 || missing[0].Name != "bare" {
		t.Errorf("missing-image list = %v", compoundNames(missing))
	}

	one, err := f.compoundRepo.ListWithSmile(ctx, nil, false, &withImage.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(one) != 1 || one[0].ID != withImage.ID {
		t.Errorf("single-compound list = %v", compoundNames(one))
	}
}

func compoundNames(cs []*types.Compound) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}
