package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ambralab/tpdb-backend/internal/types"
)

func TestClearAllKeepsUsers(t *testing.T) {
	f := newCompoundFixture(t)
	ctx := context.Background()

	userRepo := NewUserRepo(f.db, f.log)
	adminRepo := NewAdminRepo(f.db, f.log)
	user := seedUser(t, userRepo)

	compound, _, err := f.compoundRepo.FindOrCreate(ctx, nil, f.newCompound("cipro", types.CompoundTypeOriginal))
	if err != nil {
		t.Fatal(err)
	}
	heat, _, err := f.treatmentRepo.FindOrCreate(ctx, nil, "Heat")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.compoundRepo.AddTreatments(ctx, nil, compound, []*types.Treatment{heat}); err != nil {
		t.Fatal(err)
	}

	if err := adminRepo.ClearAll(ctx, nil); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}

	for _, model := range []interface{}{&types.Compound{}, &types.Class{}, &types.Subclass{}, &types.Treatment{}} {
		var n int64
		if err := f.db.Model(model).Count(&n).Error; err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%T rows = %d after ClearAll, want 0", model, n)
		}
	}
	var joinRows int64
	if err := f.db.Table("compound_treatments").Count(&joinRows).Error; err != nil {
		t.Fatal(err)
	}
	if joinRows != 0 {
		t.Errorf("join rows = %d after ClearAll, want 0", joinRows)
	}

	users, err := userRepo.GetByIDs(ctx, nil, []uuid.UUID{user.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 {
		t.Error("users must survive ClearAll")
	}
}
