package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/types"
)

type UploadJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, jobs []*types.UploadJob) ([]*types.UploadJob, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.UploadJob, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UploadJob, error)
	ListPending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.UploadJob, error)
	ClaimPending(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, recordsImported int) error
	MarkError(ctx context.Context, tx *gorm.DB, id uuid.UUID, message string) error
}

type uploadJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadJobRepo(db *gorm.DB, baseLog *logger.Logger) UploadJobRepo {
	return &uploadJobRepo{db: db, log: baseLog.With("repo", "UploadJobRepo")}
}

func (r *uploadJobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.UploadJob) ([]*types.UploadJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.UploadJob{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *uploadJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.UploadJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.UploadJob
	if err := transaction.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *uploadJobRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UploadJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.UploadJob
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("uploaded_by_id = ?", userID).
		Order("uploaded_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Oldest first so the batch runner drains the queue in upload order.
func (r *uploadJobRepo) ListPending(ctx context.Context, tx *gorm.DB, limit int) ([]*types.UploadJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.UploadJob
	q := transaction.WithContext(ctx).
		Where("status = ?", types.UploadJobStatusPending).
		Order("uploaded_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimPending is a compare-and-swap on status: it only wins when the job is
// still pending, so concurrent batch runners never double-process a job.
func (r *uploadJobRepo) ClaimPending(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.UploadJob{}).
		Where("id = ? AND status = ?", id, types.UploadJobStatusPending).
		Update("status", types.UploadJobStatusProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *uploadJobRepo) MarkCompleted(ctx context.Context, tx *gorm.DB, id uuid.UUID, recordsImported int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.UploadJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           types.UploadJobStatusCompleted,
			"records_imported": recordsImported,
			"error_message":    nil,
		}).Error
}

// MarkError leaves records_imported untouched.
func (r *uploadJobRepo) MarkError(ctx context.Context, tx *gorm.DB, id uuid.UUID, message string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.UploadJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        types.UploadJobStatusError,
			"error_message": message,
		}).Error
}
