package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/types"
)

type AdminRepo interface {
	ClearAll(ctx context.Context, tx *gorm.DB) error
}

type adminRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAdminRepo(db *gorm.DB, baseLog *logger.Logger) AdminRepo {
	return &adminRepo{db: db, log: baseLog.With("repo", "AdminRepo")}
}

// ClearAll wipes the whole compound dataset, children before parents so the
// delete order never trips a foreign key. Users, jobs and audit events stay.
func (r *adminRepo) ClearAll(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	r.log.Warn("Clearing all compound data")

	for _, stmt := range []string{
		"DELETE FROM compound_treatments",
		"DELETE FROM compound_references",
		"DELETE FROM compound_formulas",
	} {
		if err := transaction.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}

	if err := transaction.WithContext(ctx).Where("1 = 1").Delete(&types.Compound{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).Where("1 = 1").Delete(&types.FormulaMass{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).Where("1 = 1").Delete(&types.Treatment{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).Where("1 = 1").Delete(&types.Reference{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).Where("1 = 1").Delete(&types.Subclass{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).Where("1 = 1").Delete(&types.Class{}).Error; err != nil {
		return err
	}
	return nil
}
