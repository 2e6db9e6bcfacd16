package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ambralab/tpdb-backend/internal/importer"
	"github.com/ambralab/tpdb-backend/internal/platform/apierr"
	"github.com/ambralab/tpdb-backend/internal/platform/logger"
	"github.com/ambralab/tpdb-backend/internal/platform/media"
	"github.com/ambralab/tpdb-backend/internal/repos"
	"github.com/ambralab/tpdb-backend/internal/types"
)

var ErrUploadJobNotFound = apierr.New(http.StatusNotFound, "upload_job_not_found", errors.New("upload job not found"))

// UploadService owns the upload job lifecycle: accept a spreadsheet, record
// a pending job, and later claim and run the import. Claiming uses a
// compare-and-swap on the pending status so two runners never process the
// same job.
type UploadService interface {
	CreateJob(ctx context.Context, userID uuid.UUID, fileName string, src io.Reader, clearExistingData bool) (*types.UploadJob, error)
	ProcessJob(ctx context.Context, jobID uuid.UUID) error
	ProcessPending(ctx context.Context, limit int) (int, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*types.UploadJob, error)
	GetJobsForUser(ctx context.Context, userID uuid.UUID) ([]*types.UploadJob, error)
}

type uploadService struct {
	db               *gorm.DB
	log              *logger.Logger
	uploadJobRepo    repos.UploadJobRepo
	userEventService UserEventService
	importer         importer.Importer
	mediaStore       *media.Store
}

func NewUploadService(
	db *gorm.DB,
	baseLog *logger.Logger,
	uploadJobRepo repos.UploadJobRepo,
	userEventService UserEventService,
	imp importer.Importer,
	mediaStore *media.Store,
) UploadService {
	return &uploadService{
		db:               db,
		log:              baseLog.With("service", "UploadService"),
		uploadJobRepo:    uploadJobRepo,
		userEventService: userEventService,
		importer:         imp,
		mediaStore:       mediaStore,
	}
}

func (us *uploadService) CreateJob(ctx context.Context, userID uuid.UUID, fileName string, src io.Reader, clearExistingData bool) (*types.UploadJob, error) {
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." {
		return nil, apierr.New(http.StatusBadRequest, "invalid_file_name", errors.New("file name is required"))
	}
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != ".xlsx" && ext != ".xlsm" {
		return nil, apierr.New(http.StatusBadRequest, "invalid_file_type", fmt.Errorf("unsupported file type %q", ext))
	}

	path, err := us.mediaStore.SaveUpload(fileName, src)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	job := &types.UploadJob{
		ID:                uuid.New(),
		FilePath:          path,
		FileName:          fileName,
		UploadedByID:      userID,
		UploadedAt:        time.Now(),
		Status:            types.UploadJobStatusPending,
		ClearExistingData: clearExistingData,
	}
	if _, err := us.uploadJobRepo.Create(ctx, nil, []*types.UploadJob{job}); err != nil {
		return nil, fmt.Errorf("create upload job: %w", err)
	}
	us.log.Info("Queued upload job", "job_id", job.ID, "file", fileName, "clear_existing_data", clearExistingData)
	return job, nil
}

// ProcessJob claims and runs one job. A job that is not pending anymore is
// skipped without error. The import itself is transactional; status updates
// happen outside that transaction so an error status survives the rollback.
func (us *uploadService) ProcessJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := us.uploadJobRepo.GetByID(ctx, nil, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUploadJobNotFound
		}
		return fmt.Errorf("load upload job: %w", err)
	}

	claimed, err := us.uploadJobRepo.ClaimPending(ctx, nil, job.ID)
	if err != nil {
		return fmt.Errorf("claim upload job: %w", err)
	}
	if !claimed {
		us.log.Info("Upload job already claimed", "job_id", job.ID, "status", job.Status)
		return nil
	}
	us.log.Info("Processing upload job", "job_id", job.ID, "file", job.FileName)

	count, impErr := us.importer.ImportFile(ctx, job.FilePath, job.ClearExistingData, false)
	if impErr != nil {
		message := impErr.Error()
		if mErr := us.uploadJobRepo.MarkError(ctx, nil, job.ID, message); mErr != nil {
			us.log.Error("Could not mark upload job failed", "job_id", job.ID, "error", mErr)
		}
		us.log.Warn("Upload job failed", "job_id", job.ID, "error", impErr)
		return fmt.Errorf("import %s: %w", job.FileName, impErr)
	}

	if err := us.uploadJobRepo.MarkCompleted(ctx, nil, job.ID, count); err != nil {
		return fmt.Errorf("mark upload job completed: %w", err)
	}
	if evErr := us.userEventService.Append(ctx, nil, job.UploadedByID, UserEventTypeImport, map[string]interface{}{
		"filename":            job.FileName,
		"records_imported":    count,
		"clear_existing_data": job.ClearExistingData,
	}); evErr != nil {
		us.log.Warn("Could not record import event", "job_id", job.ID, "error", evErr)
	}
	us.log.Info("Upload job completed", "job_id", job.ID, "records_imported", count)
	return nil
}

// ProcessPending drains pending jobs in upload order, isolating failures:
// one bad file marks its own job as errored and the rest still run.
func (us *uploadService) ProcessPending(ctx context.Context, limit int) (int, error) {
	jobs, err := us.uploadJobRepo.ListPending(ctx, nil, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending upload jobs: %w", err)
	}

	processed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if pErr := us.ProcessJob(ctx, job.ID); pErr != nil {
			continue
		}
		processed++
	}
	return processed, nil
}

func (us *uploadService) GetJob(ctx context.Context, jobID uuid.UUID) (*types.UploadJob, error) {
	job, err := us.uploadJobRepo.GetByID(ctx, nil, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadJobNotFound
		}
		return nil, fmt.Errorf("load upload job: %w", err)
	}
	return job, nil
}

func (us *uploadService) GetJobsForUser(ctx context.Context, userID uuid.UUID) ([]*types.UploadJob, error) {
	return us.uploadJobRepo.GetByUserID(ctx, nil, userID)
}
