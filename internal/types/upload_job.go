package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	UploadJobStatusPending    = "pending"
	UploadJobStatusProcessing = "processing"
	UploadJobStatusCompleted  = "completed"
	UploadJobStatusError      = "error"
)

// UploadJob tracks one spreadsheet ingestion run. The status values are a
// durable contract with the upload form; only the job runner mutates them.
type UploadJob struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FilePath          string    `gorm:"not null;column:file_path" json:"file_path"`
	FileName          string    `gorm:"not null;column:file_name" json:"file_name"`
	UploadedByID      uuid.UUID `gorm:"type:uuid;not null;index" json:"uploaded_by_id"`
	UploadedBy        *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UploadedByID;references:ID" json:"uploaded_by,omitempty"`
	UploadedAt        time.Time `gorm:"not null;index" json:"uploaded_at"`
	Status            string    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	RecordsImported   int       `gorm:"not null;default:0" json:"records_imported"`
	ErrorMessage      *string   `gorm:"column:error_message" json:"error_message,omitempty"`
	ClearExistingData bool      `gorm:"not null;default:false" json:"clear_existing_data"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}

func (UploadJob) TableName() string { return "upload_job" }
