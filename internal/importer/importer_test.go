package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/platform/media"
	"github.com/ambralab/tpdb-backend/internal/platform/molrender"
	"github.com/ambralab/tpdb-backend/internal/repos"
	"github.com/ambralab/tpdb-backend/internal/testutil"
	"github.com/ambralab/tpdb-backend/internal/types"
)

var header = []interface{}{
	"Compound", "Parent compound", "Compound class", "Subclass",
	"Treatment", "Type", "Ionization mode", "Molecular Formula [M]",
	"m/z ion", "References", "SMILE neutral formula", "Notes",
	"Fragment 1", "m/z Fragment 1", "Fragment 2", "m/z Fragment 2",
}

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	all := append([][]interface{}{header}, rows...)
	for i, row := range all {
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "import.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

type fixture struct {
	db           *gorm.DB
	importer     Importer
	compoundRepo repos.CompoundRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("MEDIA_ROOT", t.TempDir())
	db := testutil.NewDB(t)
	log := testutil.NewLogger(t)

	compoundRepo := repos.NewCompoundRepo(db, log)
	imp := New(
		db,
		log,
		repos.NewClassRepo(db, log),
		repos.NewSubclassRepo(db, log),
		repos.NewTreatmentRepo(db, log),
		repos.NewReferenceRepo(db, log),
		repos.NewFormulaMassRepo(db, log),
		compoundRepo,
		repos.NewAdminRepo(db, log),
		molrender.NewNoop(log),
		media.NewStore(log),
	)
	return &fixture{db: db, importer: imp, compoundRepo: compoundRepo}
}

func (f *fixture) compoundByName(t *testing.T, name string) *types.Compound {
	t.Helper()
	got, total, err := f.compoundRepo.List(context.Background(), nil, repos.CompoundFilter{Name: name})
	if err != nil {
		t.Fatalf("list %q: %v", name, err)
	}
	if total != 1 {
		t.Fatalf("found %d compounds named %q, want 1", total, name)
	}
	full, err := f.compoundRepo.GetByID(context.Background(), nil, got[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	return full
}

func ciproRows() [][]interface{} {
	return [][]interface{}{
		{"cipro", "cipro", "Antibiotics", "Fluoroquinolones", "Heat; Light ;Heat", "original", "positive",
			"C17H18FN3O3", "332.14", "Smith 2019", "OC(=O)c1cn(C2CC2)c2cc(N3CCNCC3)c(F)cc2c1=O", "",
			"C16H18FN3O", "299.1", "C13H11", ""},
		{"TP 288", "cipro", "Antibiotics", "Fluoroquinolones", "Heat", "TP", "positivo",
			"C14H16FN3O", "288.13", "-", "", "from photolysis"},
		{"TP 999", "oxo", "Antibiotics", "Fluoroquinolones", "", "TP", "negative",
			"C10H10", "131.08", "", "", ""},
	}
}

func TestImportFileCipro(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	count, err := f.importer.ImportFile(ctx, writeWorkbook(t, ciproRows()), false, false)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	// 1 class + 1 subclass + 2 treatments + 1 reference + 1 fragment pair
	// + 3 compounds.
	if count != 9 {
		t.Errorf("count = %d, want 9", count)
	}

	cipro := f.compoundByName(t, "cipro")
	if cipro.Type != types.CompoundTypeOriginal || !cipro.Mode {
		t.Errorf("cipro type/mode = %q/%v", cipro.Type, cipro.Mode)
	}
	if cipro.OriginID != nil {
		t.Error("original compound should have no origin")
	}
	if got := treatmentNames(cipro); !reflect.DeepEqual(got, []string{"Heat", "Light"}) {
		t.Errorf("cipro treatments = %v (duplicates must collapse)", got)
	}
	if len(cipro.References) != 1 || cipro.References[0].Value != "Smith 2019" {
		t.Errorf("cipro references = %v", cipro.References)
	}
	// Only the complete fragment pair links; the formula with an empty m/z
	// cell is dropped.
	if len(cipro.Formulas) != 1 || cipro.Formulas[0].Formula != "C16H18FN3O" {
		t.Errorf("cipro fragments = %v", cipro.Formulas)
	}

	tp288 := f.compoundByName(t, "TP 288")
	if tp288.Type != types.CompoundTypeTP {
		t.Errorf("TP 288 type = %q", tp288.Type)
	}
	if !tp288.Mode {
		t.Error(`"positivo" should parse as positive mode on TPs`)
	}
	if tp288.OriginID == nil || *tp288.OriginID != cipro.ID {
		t.Error("TP 288 should link to cipro")
	}
	if len(tp288.References) != 0 {
		t.Errorf(`"-" reference should not link, got %v`, tp288.References)
	}

	tp999 := f.compoundByName(t, "TP 999")
	if tp999.OriginID != nil {
		t.Error("TP with an unmatched parent should keep a nil origin")
	}
	if tp999.Mode {
		t.Error("non-positivo TP mode should be false")
	}
}

func TestImportFileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := writeWorkbook(t, ciproRows())

	first, err := f.importer.ImportFile(ctx, path, false, false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.importer.ImportFile(ctx, path, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if second != 0 {
		t.Errorf("second import created %d records, want 0 (first created %d)", second, first)
	}

	var compounds int64
	if err := f.db.Model(&types.Compound{}).Count(&compounds).Error; err != nil {
		t.Fatal(err)
	}
	if compounds != 3 {
		t.Errorf("compound rows = %d, want 3", compounds)
	}
}

func TestImportFileClearExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.importer.ImportFile(ctx, writeWorkbook(t, ciproRows()), false, false); err != nil {
		t.Fatal(err)
	}

	replacement := [][]interface{}{
		{"amoxi", "amoxi", "Antibiotics", "Penicillins", "Heat", "original", "positive",
			"C16H19N3O5S", "366.11", "Jones 2021", "", ""},
	}
	if _, err := f.importer.ImportFile(ctx, writeWorkbook(t, replacement), true, false); err != nil {
		t.Fatal(err)
	}

	var compounds int64
	if err := f.db.Model(&types.Compound{}).Count(&compounds).Error; err != nil {
		t.Fatal(err)
	}
	if compounds != 1 {
		t.Errorf("compound rows after clear = %d, want 1", compounds)
	}
	f.compoundByName(t, "amoxi")
}

func TestImportFileRollsBackOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rows := [][]interface{}{
		{"cipro", "cipro", "Antibiotics", "Fluoroquinolones", "", "original", "positive",
			"C17H18FN3O3", "332.14", "Smith 2019", "", ""},
		// Subclass without a class cell fails the harvest.
		{"broken", "broken", "", "Orphans", "", "original", "positive",
			"C1", "1.0", "", "", ""},
	}
	if _, err := f.importer.ImportFile(ctx, writeWorkbook(t, rows), false, false); err == nil {
		t.Fatal("expected error")
	}

	for _, model := range []interface{}{&types.Compound{}, &types.Class{}, &types.Subclass{}, &types.Reference{}} {
		var n int64
		if err := f.db.Model(model).Count(&n).Error; err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%T rows = %d after failed import, want 0", model, n)
		}
	}
}

func TestImportLastRowWinsPerKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rows := [][]interface{}{
		{"cipro", "cipro", "Antibiotics", "Fluoroquinolones", "", "original", "positive",
			"C17H18FN3O3", "332.14", "", "", "first"},
		{"cipro", "cipro", "Antibiotics", "Fluoroquinolones", "", "original", "positive",
			"C17H18FN3O3", "332.14", "", "", "second"},
	}
	if _, err := f.importer.ImportFile(ctx, writeWorkbook(t, rows), false, false); err != nil {
		t.Fatal(err)
	}

	cipro := f.compoundByName(t, "cipro")
	if cipro.Notes != "second" {
		t.Errorf("notes = %q, later rows with the same key should win", cipro.Notes)
	}
}

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Heat; Light ;Heat", []string{"Heat", "Light", "Heat"}},
		{"", nil},
		{" ; ; ", nil},
		{"one", []string{"one"}},
	}
	for _, tc := range cases {
		got := SplitList(tc.in)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("SplitList(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func treatmentNames(c *types.Compound) []string {
	out := make([]string, 0, len(c.Treatments))
	for _, tr := range c.Treatments {
		out = append(out, tr.Name)
	}
	sort.Strings(out)
	return out
}
