// Package feedback is the correction-review service. Reviewers submit a
// corrected transcript against a job; an admin-gated reviewer approves
// or rejects it. The only legal transitions are
// PENDING->APPROVED and PENDING->REJECTED; anything else is reported as
// a named INVALID_TRANSITION error the HTTP layer maps to 409.
package feedback

import (
	"context"
	"fmt"
	"time"

	"transcribeapi/internal/apierr"
	"transcribeapi/internal/models"
	"transcribeapi/internal/repository"
)

// SubmitRequest is one correction submission.
type SubmitRequest struct {
	JobID         string
	OriginalText  string
	CorrectedText string
}

// ListFilter narrows an admin feedback listing.
type ListFilter struct {
	Status *models.FeedbackStatus
	JobID  *string
	Offset int
	Limit  int
}

// Service implements submit/list/update-status.
type Service struct {
	repo repository.FeedbackRepository
	jobs repository.JobRepository
}

// New constructs a Service.
func New(repo repository.FeedbackRepository, jobs repository.JobRepository) *Service {
	return &Service{repo: repo, jobs: jobs}
}

// Submit records a reviewer correction. The job must exist; submission
// does not require the job to be in any particular status, since
// corrections may be filed well after completion.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.Feedback, error) {
	if req.OriginalText == "" || req.CorrectedText == "" {
		return nil, apierr.New(apierr.KindValidation, "original_text and corrected_text are both required").
			WithDetails(apierr.Detail{Field: "corrected_text", Issue: "required"})
	}

	if _, err := s.jobs.FindByID(ctx, req.JobID); err != nil {
		return nil, apierr.Wrap(apierr.KindNotFound, "job not found", err)
	}

	fb := &models.Feedback{
		JobID:         req.JobID,
		OriginalText:  req.OriginalText,
		CorrectedText: req.CorrectedText,
		Status:        models.FeedbackPending,
	}
	if err := s.repo.Create(ctx, fb); err != nil {
		return nil, apierr.Wrap(apierr.KindStorage, "failed to record feedback", err)
	}
	return fb, nil
}

// List returns an admin-gated, filtered, paginated feedback listing,
// ordered by created_at. There is no separate date-bound query; callers
// narrow a date range by paging with offset/limit.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.Feedback, int64, error) {
	items, count, err := s.repo.ListFiltered(ctx, filter.Status, filter.JobID, filter.Offset, filter.Limit)
	if err != nil {
		return nil, 0, apierr.Wrap(apierr.KindStorage, "failed to list feedback", err)
	}
	return items, count, nil
}

// InvalidTransitionError names the offending states in a rejected status
// transition.
type InvalidTransitionError struct {
	Current   models.FeedbackStatus
	Requested models.FeedbackStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition feedback from %q to %q", e.Current, e.Requested)
}

// UpdateStatus approves or rejects a pending feedback record, optionally
// attaching a confidence value (approval only). Only PENDING->APPROVED
// and PENDING->REJECTED are legal; anything else — including re-applying
// the same terminal state — fails with InvalidTransitionError wrapped in
// a KindState apierr.Error.
func (s *Service) UpdateStatus(ctx context.Context, id uint, target models.FeedbackStatus, confidence *float64) (*models.Feedback, error) {
	if target != models.FeedbackApproved && target != models.FeedbackRejected {
		return nil, apierr.Wrap(apierr.KindState, "invalid feedback status transition",
			&InvalidTransitionError{Current: models.FeedbackPending, Requested: target})
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindNotFound, "feedback not found", err)
	}

	won, err := s.repo.UpdateStatus(ctx, id, target)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindStorage, "failed to update feedback status", err)
	}
	if !won {
		return nil, apierr.Wrap(apierr.KindState, "feedback is no longer pending",
			&InvalidTransitionError{Current: existing.Status, Requested: target})
	}

	existing.Status = target
	if confidence != nil && target == models.FeedbackApproved {
		existing.Confidence = confidence
		existing.UpdatedAt = time.Now()
		_ = s.repo.Update(ctx, existing)
	}

	return existing, nil
}
