package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/importer"
	"github.com/ambralab/tpdb-backend/internal/platform/media"
	"github.com/ambralab/tpdb-backend/internal/platform/molrender"
	"github.com/ambralab/tpdb-backend/internal/repos"
	"github.com/ambralab/tpdb-backend/internal/testutil"
	"github.com/ambralab/tpdb-backend/internal/types"
)

type uploadFixture struct {
	db            *gorm.DB
	uploadService UploadService
	jobRepo       repos.UploadJobRepo
	eventRepo     repos.UserEventRepo
	user          *types.User
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()
	t.Setenv("MEDIA_ROOT", t.TempDir())
	db := testutil.NewDB(t)
	log := testutil.NewLogger(t)

	userRepo := repos.NewUserRepo(db, log)
	jobRepo := repos.NewUploadJobRepo(db, log)
	eventRepo := repos.NewUserEventRepo(db, log)
	mediaStore := media.NewStore(log)

	imp := importer.New(
		db,
		log,
		repos.NewClassRepo(db, log),
		repos.NewSubclassRepo(db, log),
		repos.NewTreatmentRepo(db, log),
		repos.NewReferenceRepo(db, log),
		repos.NewFormulaMassRepo(db, log),
		repos.NewCompoundRepo(db, log),
		repos.NewAdminRepo(db, log),
		molrender.NewNoop(log),
		mediaStore,
	)
	eventService := NewUserEventService(db, log, eventRepo)
	uploadService := NewUploadService(db, log, jobRepo, eventService, imp, mediaStore)

	user := &types.User{
		ID:        uuid.New(),
		Email:     "staff@example.com",
		Password:  "x",
		FirstName: "Staff",
		LastName:  "User",
		IsStaff:   true,
	}
	if _, err := userRepo.Create(context.Background(), nil, []*types.User{user}); err != nil {
		t.Fatal(err)
	}

	return &uploadFixture{
		db:            db,
		uploadService: uploadService,
		jobRepo:       jobRepo,
		eventRepo:     eventRepo,
		user:          user,
	}
}

func validWorkbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Compound", "Parent compound", "Compound class", "Subclass", "Treatment", "Type",
			"Ionization mode", "Molecular Formula [M]", "m/z ion", "References",
			"SMILE neutral formula", "Notes"},
		{"cipro", "cipro", "Antibiotics", "Fluoroquinolones", "Heat", "original", "positive",
			"C17H18FN3O3", "332.14", "Smith 2019", "", ""},
	}
	for i, row := range rows {
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCreateAndProcessJob(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	job, err := f.uploadService.CreateJob(ctx, f.user.ID, "batch.xlsx", bytes.NewReader(validWorkbookBytes(t)), false)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.Status != types.UploadJobStatusPending {
		t.Errorf("new job status = %q", job.Status)
	}

	if err := f.uploadService.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}

	done, err := f.uploadService.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != types.UploadJobStatusCompleted {
		t.Errorf("status = %q, want completed", done.Status)
	}
	// class + subclass + treatment + reference + compound
	if done.RecordsImported != 5 {
		t.Errorf("records_imported = %d, want 5", done.RecordsImported)
	}

	events, err := f.eventRepo.GetByUserID(ctx, nil, f.user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Type != UserEventTypeImport {
		t.Fatalf("events = %+v, want one import event", events)
	}
	if !strings.Contains(string(events[0].Data), "batch.xlsx") {
		t.Errorf("event payload should carry the filename: %s", events[0].Data)
	}
}

func TestProcessJobMarksErrorOnBadFile(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	job, err := f.uploadService.CreateJob(ctx, f.user.ID, "broken.xlsx", strings.NewReader("not a workbook"), false)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.uploadService.ProcessJob(ctx, job.ID); err == nil {
		t.Fatal("expected processing error")
	}

	failed, err := f.uploadService.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if failed.Status != types.UploadJobStatusError {
		t.Errorf("status = %q, want error", failed.Status)
	}
	if failed.ErrorMessage == nil || *failed.ErrorMessage == "" {
		t.Error("error message should be recorded")
	}
}

func TestProcessPendingIsolatesFailures(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	bad, err := f.uploadService.CreateJob(ctx, f.user.ID, "bad.xlsx", strings.NewReader("garbage"), false)
	if err != nil {
		t.Fatal(err)
	}
	good, err := f.uploadService.CreateJob(ctx, f.user.ID, "good.xlsx", bytes.NewReader(validWorkbookBytes(t)), false)
	if err != nil {
		t.Fatal(err)
	}

	processed, err := f.uploadService.ProcessPending(ctx, 0)
	if err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}

	badJob, _ := f.uploadService.GetJob(ctx, bad.ID)
	goodJob, _ := f.uploadService.GetJob(ctx, good.ID)
	if badJob.Status != types.UploadJobStatusError {
		t.Errorf("bad job status = %q", badJob.Status)
	}
	if goodJob.Status != types.UploadJobStatusCompleted {
		t.Errorf("good job status = %q", goodJob.Status)
	}
}

func TestCreateJobRejectsWrongExtension(t *testing.T) {
	f := newUploadFixture(t)
	_, err := f.uploadService.CreateJob(context.Background(), f.user.ID, "data.csv", strings.NewReader("a,b"), false)
	if err == nil {
		t.Fatal("csv upload should be rejected")
	}
}

func TestProcessJobSkipsNonPending(t *testing.T) {
	f := newUploadFixture(t)
	ctx := context.Background()

	job, err := f.uploadService.CreateJob(ctx, f.user.ID, "batch.xlsx", bytes.NewReader(validWorkbookBytes(t)), false)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.uploadService.ProcessJob(ctx, job.ID); err != nil {
		t.Fatal(err)
	}
	// Second run finds a completed job and does nothing.
	if err := f.uploadService.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("reprocessing a finished job should be a no-op, got %v", err)
	}
	done, _ := f.uploadService.GetJob(ctx, job.ID)
	if done.RecordsImported != 5 {
		t.Errorf("records_imported changed on reprocess: %d", done.RecordsImported)
	}
}
