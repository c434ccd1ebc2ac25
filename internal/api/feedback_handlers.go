package api

import (
	"net/http"

	"transcribeapi/internal/apierr"
	"transcribeapi/internal/feedback"
	"transcribeapi/internal/models"

	"github.com/gin-gonic/gin"
)

// FeedbackHandler implements the correction-review HTTP surface: a
// reviewer submits a correction against a job, an admin key approves or
// rejects it.
type FeedbackHandler struct {
	feedback *feedback.Service
}

// NewFeedbackHandler constructs a FeedbackHandler.
func NewFeedbackHandler(svc *feedback.Service) *FeedbackHandler {
	return &FeedbackHandler{feedback: svc}
}

type submitFeedbackRequest struct {
	OriginalText  string `json:"original_text" binding:"required"`
	CorrectedText string `json:"corrected_text" binding:"required"`
}

// SubmitFeedback handles POST /jobs/{job_id}/feedback.
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	var body submitFeedbackRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apierr.New(apierr.KindClient, "invalid request body").
			WithDetails(apierr.Detail{Field: "body", Issue: "invalid_json"}))
		return
	}

	fb, err := h.feedback.Submit(c.Request.Context(), feedback.SubmitRequest{
		JobID:         c.Param("job_id"),
		OriginalText:  body.OriginalText,
		CorrectedText: body.CorrectedText,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

// ListFeedback handles GET /feedback (admin-gated).
func (h *FeedbackHandler) ListFeedback(c *gin.Context) {
	offset, limit := pageParams(c)

	filter := feedback.ListFilter{Offset: offset, Limit: limit}
	if s := c.Query("status"); s != "" {
		st := models.FeedbackStatus(s)
		filter.Status = &st
	}
	if jobID := c.Query("job_id"); jobID != "" {
		filter.JobID = &jobID
	}

	items, total, err := h.feedback.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": items, "total": total})
}

type updateFeedbackStatusRequest struct {
	Status     models.FeedbackStatus `json:"status" binding:"required"`
	Confidence *float64              `json:"confidence"`
}

// UpdateFeedbackStatus handles PATCH /feedback/{id} (admin-gated).
func (h *FeedbackHandler) UpdateFeedbackStatus(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, apierr.New(apierr.KindClient, "invalid feedback id"))
		return
	}

	var body updateFeedbackStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, apierr.New(apierr.KindClient, "invalid request body"))
		return
	}

	fb, err := h.feedback.UpdateStatus(c.Request.Context(), id, body.Status, body.Confidence)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fb)
}
