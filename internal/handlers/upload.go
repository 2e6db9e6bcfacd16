package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ambralab/tpdb-backend/internal/requestdata"
	"github.com/ambralab/tpdb-backend/internal/services"
)

type UploadHandler struct {
	uploadService services.UploadService
}

func NewUploadHandler(uploadService services.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Create accepts a multipart spreadsheet upload and queues an import job.
// The job runs asynchronously; poll the job endpoint for its outcome.
func (uh *UploadHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", errors.New("missing request identity"))
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", errors.New("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	clearExisting, _ := strconv.ParseBool(c.PostForm("clear_existing_data"))

	job, err := uh.uploadService.CreateJob(c.Request.Context(), rd.UserID, header.Filename, file, clearExisting)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}

func (uh *UploadHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("id is not a valid UUID"))
		return
	}
	job, err := uh.uploadService.GetJob(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, job)
}

func (uh *UploadHandler) ListMine(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthenticated", errors.New("missing request identity"))
		return
	}
	jobs, err := uh.uploadService.GetJobsForUser(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, jobs)
}
