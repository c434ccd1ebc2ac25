package api

import (
	"net/http"

	"transcribeapi/internal/apierr"
	"transcribeapi/internal/models"
	"transcribeapi/internal/repository"
	"transcribeapi/internal/submission"
	"transcribeapi/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// JobsHandler implements POST /jobs and GET /jobs/{job_id}.
type JobsHandler struct {
	submission *submission.Service
	jobs       repository.JobRepository
}

// NewJobsHandler constructs a JobsHandler.
func NewJobsHandler(submission *submission.Service, jobs repository.JobRepository) *JobsHandler {
	return &JobsHandler{submission: submission, jobs: jobs}
}

// SubmitJob handles POST /jobs: a multipart upload with an "audio" file
// field, an optional X-Lexicon-Id header, an optional lexicon_id query
// parameter, and an optional language form field.
func (h *JobsHandler) SubmitJob(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"kind":    apierr.KindClient,
			"message": "multipart field \"audio\" is required",
		}})
		return
	}

	req := submission.Request{
		File:         file,
		ContentType:  file.Header.Get("Content-Type"),
		LexiconID:    c.GetHeader("X-Lexicon-Id"),
		QueryLexicon: c.Query("lexicon_id"),
		Language:     c.PostForm("language"),
		CallbackURL:  c.PostForm("callback_url"),
		APIKeyID:     middleware.APIKeyID(c),
	}

	result, err := h.submission.Submit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":     result.JobID,
		"status":     models.StatusPending,
		"created_at": result.CreatedAt,
	})
}

// GetJobStatus handles GET /jobs/{job_id}.
func (h *JobsHandler) GetJobStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.jobs.FindByID(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, apierr.Wrap(apierr.KindNotFound, "job not found", err))
		return
	}

	callerID := middleware.APIKeyID(c)
	isAdmin, _ := c.Get("is_admin")
	admin, _ := isAdmin.(bool)
	if !admin && job.APIKeyID != callerID {
		respondError(c, apierr.New(apierr.KindNotFound, "job not found"))
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /jobs for the authenticated key's own jobs.
func (h *JobsHandler) ListJobs(c *gin.Context) {
	offset, limit := pageParams(c)

	var status *models.JobStatus
	if s := c.Query("status"); s != "" {
		st := models.JobStatus(s)
		status = &st
	}

	jobs, total, err := h.jobs.ListByAPIKey(c.Request.Context(), middleware.APIKeyID(c), offset, limit, status)
	if err != nil {
		respondError(c, apierr.Wrap(apierr.KindStorage, "failed to list jobs", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": total})
}
