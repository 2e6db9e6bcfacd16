package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ambralab/tpdb-backend/internal/testutil"
	"github.com/ambralab/tpdb-backend/internal/types"
)

func seedUser(t *testing.T, repo UserRepo) *types.User {
	t.Helper()
	user := &types.User{
		ID:        uuid.New(),
		Email:     "staff@example.com",
		Password:  "x",
		FirstName: "Staff",
		LastName:  "User",
		IsStaff:   true,
	}
	if _, err := repo.Create(context.Background(), nil, []*types.User{user}); err != nil {
		t.Fatal(err)
	}
	return user
}

func TestClaimPendingWinsOnce(t *testing.T) {
	db := testutil.NewDB(t)
	log := testutil.NewLogger(t)
	userRepo := NewUserRepo(db, log)
	jobRepo := NewUploadJobRepo(db, log)
	ctx := context.Background()
	user := seedUser(t, userRepo)

	job := &types.UploadJob{
		ID:           uuid.New(),
		FilePath:     "/tmp/x.xlsx",
		FileName:     "x.xlsx",
		UploadedByID: user.ID,
		UploadedAt:   time.Now(),
		Status:       types.UploadJobStatusPending,
	}
	if _, err := jobRepo.Create(ctx, nil, []*types.UploadJob{job}); err != nil {
		t.Fatal(err)
	}

	claimed, err := jobRepo.ClaimPending(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	if !claimed {
		t.Fatal("first claim should win")
	}

	claimed, err = jobRepo.ClaimPending(ctx, nil, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if claimed {
		t.Error("second claim should lose")
	}

	got, err := jobRepo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.UploadJobStatusProcessing {
		t.Errorf("status = %q, want processing", got.Status)
	}
}

func TestMarkCompletedClearsError(t *testing.T) {
	db := testutil.NewDB(t)
	log := testutil.NewLogger(t)
	userRepo := NewUserRepo(db, log)
	jobRepo := NewUploadJobRepo(db, log)
	ctx := context.Background()
	user := seedUser(t, userRepo)

	job := &types.UploadJob{
		ID:           uuid.New(),
		FilePath:     "/tmp/x.xlsx",
		FileName:     "x.xlsx",
		UploadedByID: user.ID,
		UploadedAt:   time.Now(),
		Status:       types.UploadJobStatusPending,
	}
	if _, err := jobRepo.Create(ctx, nil, []*types.UploadJob{job}); err != nil {
		t.Fatal(err)
	}

	if err := jobRepo.MarkError(ctx, nil, job.ID, "boom"); err != nil {
		t.Fatal(err)
	}
	got, err := jobRepo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.UploadJobStatusError || got.ErrorMessage == nil || *got.ErrorMessage != "boom" {
		t.Errorf("after MarkError: %+v", got)
	}

	if err := jobRepo.MarkCompleted(ctx, nil, job.ID, 42); err != nil {
		t.Fatal(err)
	}
	got, err = jobRepo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.UploadJobStatusCompleted || got.RecordsImported != 42 || got.ErrorMessage != nil {
		t.Errorf("after MarkCompleted: %+v", got)
	}
}

func TestListPendingOrdersByUploadTime(t *testing.T) {
	db := testutil.NewDB(t)
	log := testutil.NewLogger(t)
	userRepo := NewUserRepo(db, log)
	jobRepo := NewUploadJobRepo(db, log)
	ctx := context.Background()
	user := seedUser(t, userRepo)

	now := time.Now()
	newer := &types.UploadJob{ID: uuid.New(), FilePath: "b", FileName: "b.xlsx", UploadedByID: user.ID, UploadedAt: now, Status: types.UploadJobStatusPending}
	older := &types.UploadJob{ID: uuid.New(), FilePath: "a", FileName: "a.xlsx", UploadedByID: user.ID, UploadedAt: now.Add(-time.Hour), Status: types.UploadJobStatusPending}
	done := &types.UploadJob{ID: uuid.New(), FilePath: "c", FileName: "c.xlsx", UploadedByID: user.ID, UploadedAt: now.Add(-2 * time.Hour), Status: types.UploadJobStatusCompleted}
	if _, err := jobRepo.Create(ctx, nil, []*types.UploadJob{newer, older, done}); err != nil {
		t.Fatal(err)
	}

	pending, err := jobRepo.ListPending(ctx, nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	if pending[0].ID != older.ID || pending[1].ID != newer.ID {
		t.Error("pending jobs should come back oldest first")
	}
}
