package feedback

import (
	"context"
	"testing"
	"time"

	"transcribeapi/internal/apierr"
	"transcribeapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFeedbackRepo struct{ mock.Mock }

func (m *mockFeedbackRepo) Create(ctx context.Context, e *models.Feedback) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
func (m *mockFeedbackRepo) FindByID(ctx context.Context, id interface{}) (*models.Feedback, error) {
	args := m.Called(ctx, id)
	fb, _ := args.Get(0).(*models.Feedback)
	return fb, args.Error(1)
}
func (m *mockFeedbackRepo) Update(ctx context.Context, e *models.Feedback) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
func (m *mockFeedbackRepo) Delete(ctx context.Context, id interface{}) error { return nil }
func (m *mockFeedbackRepo) List(ctx context.Context, offset, limit int) ([]models.Feedback, int64, error) {
	return nil, 0, nil
}
func (m *mockFeedbackRepo) ListFiltered(ctx context.Context, status *models.FeedbackStatus, jobID *string, offset, limit int) ([]models.Feedback, int64, error) {
	args := m.Called(ctx, status, jobID, offset, limit)
	items, _ := args.Get(0).([]models.Feedback)
	return items, args.Get(1).(int64), args.Error(2)
}
func (m *mockFeedbackRepo) UpdateStatus(ctx context.Context, id uint, status models.FeedbackStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

type mockJobRepo struct{ mock.Mock }

func (m *mockJobRepo) Create(ctx context.Context, e *models.Job) error { return nil }
func (m *mockJobRepo) FindByID(ctx context.Context, id interface{}) (*models.Job, error) {
	args := m.Called(ctx, id)
	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}
func (m *mockJobRepo) Update(ctx context.Context, e *models.Job) error { return nil }
func (m *mockJobRepo) Delete(ctx context.Context, id interface{}) error { return nil }
func (m *mockJobRepo) List(ctx context.Context, offset, limit int) ([]models.Job, int64, error) {
	return nil, 0, nil
}
func (m *mockJobRepo) ListByAPIKey(ctx context.Context, apiKeyID uint, offset, limit int, status *models.JobStatus) ([]models.Job, int64, error) {
	return nil, 0, nil
}
func (m *mockJobRepo) ClaimPending(ctx context.Context, jobID string) (bool, error) { return false, nil }
func (m *mockJobRepo) MarkProcessing(ctx context.Context, jobID string) (bool, error) {
	return false, nil
}
func (m *mockJobRepo) SaveRawTranscript(ctx context.Context, jobID, raw string) error { return nil }
func (m *mockJobRepo) SaveProcessedResult(ctx context.Context, jobID string, processed string, metrics models.PipelineMetrics, confidence float64, correctionCount, fuzzyMatchCount int) error {
	return nil
}
func (m *mockJobRepo) MarkCompleted(ctx context.Context, jobID string) error { return nil }
func (m *mockJobRepo) MarkFailed(ctx context.Context, jobID string, reason models.FailureReason) error {
	return nil
}
func (m *mockJobRepo) FindStalePending(ctx context.Context, olderThan time.Time) ([]models.Job, error) {
	return nil, nil
}
func (m *mockJobRepo) FindStuckProcessing(ctx context.Context, olderThan time.Time) ([]models.Job, error) {
	return nil, nil
}

func TestSubmitRequiresJobToExist(t *testing.T) {
	jobs := new(mockJobRepo)
	jobs.On("FindByID", mock.Anything, "job-1").Return(nil, assertNotFound{})

	svc := New(new(mockFeedbackRepo), jobs)
	_, err := svc.Submit(context.Background(), SubmitRequest{JobID: "job-1", OriginalText: "a", CorrectedText: "b"})

	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestSubmitRejectsEmptyCorrection(t *testing.T) {
	svc := New(new(mockFeedbackRepo), new(mockJobRepo))
	_, err := svc.Submit(context.Background(), SubmitRequest{JobID: "job-1", OriginalText: "a", CorrectedText: ""})

	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindValidation))
}

func TestSubmitCreatesPendingFeedback(t *testing.T) {
	jobs := new(mockJobRepo)
	jobs.On("FindByID", mock.Anything, "job-1").Return(&models.Job{ID: "job-1"}, nil)

	repo := new(mockFeedbackRepo)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(f *models.Feedback) bool {
		return f.Status == models.FeedbackPending && f.JobID == "job-1"
	})).Return(nil)

	svc := New(repo, jobs)
	fb, err := svc.Submit(context.Background(), SubmitRequest{JobID: "job-1", OriginalText: "teh patient", CorrectedText: "the patient"})

	require.NoError(t, err)
	assert.Equal(t, models.FeedbackPending, fb.Status)
}

func TestUpdateStatusApprovesPendingFeedback(t *testing.T) {
	repo := new(mockFeedbackRepo)
	existing := &models.Feedback{ID: 1, Status: models.FeedbackPending}
	repo.On("FindByID", mock.Anything, uint(1)).Return(existing, nil)
	repo.On("UpdateStatus", mock.Anything, uint(1), models.FeedbackApproved).Return(true, nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	svc := New(repo, new(mockJobRepo))
	confidence := 0.92
	fb, err := svc.UpdateStatus(context.Background(), 1, models.FeedbackApproved, &confidence)

	require.NoError(t, err)
	assert.Equal(t, models.FeedbackApproved, fb.Status)
}

func TestUpdateStatusRejectsAlreadyResolvedFeedback(t *testing.T) {
	repo := new(mockFeedbackRepo)
	existing := &models.Feedback{ID: 2, Status: models.FeedbackApproved}
	repo.On("FindByID", mock.Anything, uint(2)).Return(existing, nil)
	repo.On("UpdateStatus", mock.Anything, uint(2), models.FeedbackRejected).Return(false, nil)

	svc := New(repo, new(mockJobRepo))
	_, err := svc.UpdateStatus(context.Background(), 2, models.FeedbackRejected, nil)

	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindState))
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.FeedbackApproved, transitionErr.Current)
}

func TestUpdateStatusRejectsNonApprovedRejectedTarget(t *testing.T) {
	svc := New(new(mockFeedbackRepo), new(mockJobRepo))
	_, err := svc.UpdateStatus(context.Background(), 3, models.FeedbackAutoApproved, nil)

	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindState))
}

type assertNotFound struct{}

func (assertNotFound) Error() string { return "record not found" }
