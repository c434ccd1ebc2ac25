package repository

import (
	"context"
	"time"

	"transcribeapi/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// JobRepository handles transcription job persistence, including the
// conditional status transitions that guarantee at-most-one-active-worker
// per job.
type JobRepository interface {
	Repository[models.Job]
	ListByAPIKey(ctx context.Context, apiKeyID uint, offset, limit int, status *models.JobStatus) ([]models.Job, int64, error)
	ClaimPending(ctx context.Context, jobID string) (bool, error)
	MarkProcessing(ctx context.Context, jobID string) (bool, error)
	SaveRawTranscript(ctx context.Context, jobID, raw string) error
	SaveProcessedResult(ctx context.Context, jobID string, processed string, metrics models.PipelineMetrics, confidence float64, correctionCount, fuzzyMatchCount int) error
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason models.FailureReason) error
	FindStalePending(ctx context.Context, olderThan time.Time) ([]models.Job, error)
	FindStuckProcessing(ctx context.Context, olderThan time.Time) ([]models.Job, error)
}

type jobRepository struct {
	*BaseRepository[models.Job]
}

// NewJobRepository constructs a JobRepository.
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{BaseRepository: NewBaseRepository[models.Job](db)}
}

func (r *jobRepository) ListByAPIKey(ctx context.Context, apiKeyID uint, offset, limit int, status *models.JobStatus) ([]models.Job, int64, error) {
	var jobs []models.Job
	var count int64

	db := r.DB().WithContext(ctx).Model(&models.Job{}).Where("api_key_id = ?", apiKeyID)
	if status != nil {
		db = db.Where("status = ?", *status)
	}

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&jobs).Error
	return jobs, count, err
}

// ClaimPending atomically transitions a job from pending to processing and
// stamps started_at. The boolean reports whether this call won the claim;
// false means another worker (or a prior sweep) already claimed it.
func (r *jobRepository) ClaimPending(ctx context.Context, jobID string) (bool, error) {
	now := time.Now()
	res := r.DB().WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.StatusPending).
		Updates(map[string]interface{}{
			"status":     models.StatusProcessing,
			"started_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkProcessing is an alias of ClaimPending: it succeeds only for a job
// that is still pending, and reports false for a job already processing.
func (r *jobRepository) MarkProcessing(ctx context.Context, jobID string) (bool, error) {
	return r.ClaimPending(ctx, jobID)
}

func (r *jobRepository) SaveRawTranscript(ctx context.Context, jobID, raw string) error {
	return r.DB().WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.StatusProcessing).
		Updates(map[string]interface{}{
			"raw_transcript": raw,
			"updated_at":     time.Now(),
		}).Error
}

func (r *jobRepository) SaveProcessedResult(ctx context.Context, jobID string, processed string, metrics models.PipelineMetrics, confidence float64, correctionCount, fuzzyMatchCount int) error {
	return r.DB().WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.StatusProcessing).
		Updates(map[string]interface{}{
			"processed_transcript":   processed,
			"confidence_metrics_json": metrics,
			"confidence_score":       confidence,
			"correction_count":       correctionCount,
			"fuzzy_match_count":      fuzzyMatchCount,
			"updated_at":             time.Now(),
		}).Error
}

func (r *jobRepository) MarkCompleted(ctx context.Context, jobID string) error {
	now := time.Now()
	return r.DB().WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.StatusProcessing).
		Updates(map[string]interface{}{
			"status":       models.StatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		}).Error
}

func (r *jobRepository) MarkFailed(ctx context.Context, jobID string, reason models.FailureReason) error {
	now := time.Now()
	return r.DB().WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status IN ?", jobID, []models.JobStatus{models.StatusPending, models.StatusProcessing}).
		Updates(map[string]interface{}{
			"status":         models.StatusFailed,
			"failure_reason": reason,
			"completed_at":   now,
			"updated_at":     now,
		}).Error
}

func (r *jobRepository) FindStalePending(ctx context.Context, olderThan time.Time) ([]models.Job, error) {
	var jobs []models.Job
	err := r.DB().WithContext(ctx).
		Where("status = ? AND created_at < ?", models.StatusPending, olderThan).
		Find(&jobs).Error
	return jobs, err
}

func (r *jobRepository) FindStuckProcessing(ctx context.Context, olderThan time.Time) ([]models.Job, error) {
	var jobs []models.Job
	err := r.DB().WithContext(ctx).
		Where("status = ? AND started_at < ?", models.StatusProcessing, olderThan).
		Find(&jobs).Error
	return jobs, err
}

// LexiconRepository handles lexicon term persistence.
type LexiconRepository interface {
	Repository[models.LexiconTerm]
	ListActiveByLexicon(ctx context.Context, lexiconID string) ([]models.LexiconTerm, error)
	FindByNormalizedTerm(ctx context.Context, lexiconID, normalizedTerm string, excludeID *uint) (*models.LexiconTerm, error)
	Deactivate(ctx context.Context, id uint) error
}

type lexiconRepository struct {
	*BaseRepository[models.LexiconTerm]
}

// NewLexiconRepository constructs a LexiconRepository.
func NewLexiconRepository(db *gorm.DB) LexiconRepository {
	return &lexiconRepository{BaseRepository: NewBaseRepository[models.LexiconTerm](db)}
}

func (r *lexiconRepository) ListActiveByLexicon(ctx context.Context, lexiconID string) ([]models.LexiconTerm, error) {
	var terms []models.LexiconTerm
	err := r.DB().WithContext(ctx).
		Where("lexicon_id = ? AND active = ?", lexiconID, true).
		Order("length(normalized_term) desc").
		Find(&terms).Error
	return terms, err
}

func (r *lexiconRepository) FindByNormalizedTerm(ctx context.Context, lexiconID, normalizedTerm string, excludeID *uint) (*models.LexiconTerm, error) {
	var term models.LexiconTerm
	db := r.DB().WithContext(ctx).
		Where("lexicon_id = ? AND normalized_term = ? AND active = ?", lexiconID, normalizedTerm, true)
	if excludeID != nil {
		db = db.Where("id != ?", *excludeID)
	}
	err := db.First(&term).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &term, nil
}

func (r *lexiconRepository) Deactivate(ctx context.Context, id uint) error {
	return r.DB().WithContext(ctx).Model(&models.LexiconTerm{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"active": false, "updated_at": time.Now()}).Error
}

// FeedbackRepository handles correction feedback persistence.
type FeedbackRepository interface {
	Repository[models.Feedback]
	ListFiltered(ctx context.Context, status *models.FeedbackStatus, jobID *string, offset, limit int) ([]models.Feedback, int64, error)
	UpdateStatus(ctx context.Context, id uint, status models.FeedbackStatus) (bool, error)
}

type feedbackRepository struct {
	*BaseRepository[models.Feedback]
}

// NewFeedbackRepository constructs a FeedbackRepository.
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{BaseRepository: NewBaseRepository[models.Feedback](db)}
}

func (r *feedbackRepository) ListFiltered(ctx context.Context, status *models.FeedbackStatus, jobID *string, offset, limit int) ([]models.Feedback, int64, error) {
	var items []models.Feedback
	var count int64

	db := r.DB().WithContext(ctx).Model(&models.Feedback{})
	if status != nil {
		db = db.Where("status = ?", *status)
	}
	if jobID != nil {
		db = db.Where("job_id = ?", *jobID)
	}

	if err := db.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&items).Error
	return items, count, err
}

// UpdateStatus transitions feedback from pending to approved/rejected.
// The boolean reports whether the row was still pending; false means
// another caller already resolved it (an apierr.KindState condition
// the service layer reports as an invalid transition).
func (r *feedbackRepository) UpdateStatus(ctx context.Context, id uint, status models.FeedbackStatus) (bool, error) {
	res := r.DB().WithContext(ctx).Model(&models.Feedback{}).
		Where("id = ? AND status = ?", id, models.FeedbackPending).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// APIKeyRepository handles API key lookup and hashing.
type APIKeyRepository interface {
	Repository[models.APIKey]
	VerifyKey(ctx context.Context, plaintext string) (*models.APIKey, error)
	TouchLastUsed(ctx context.Context, id uint) error
}

type apiKeyRepository struct {
	*BaseRepository[models.APIKey]
}

// NewAPIKeyRepository constructs an APIKeyRepository.
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{BaseRepository: NewBaseRepository[models.APIKey](db)}
}

// VerifyKey finds the active key whose bcrypt hash matches plaintext.
// Keys are stored hashed, so lookup compares against every active key
// rather than an indexed equality match; this is fine at the credential
// volumes this service expects (tens to low hundreds of keys).
func (r *apiKeyRepository) VerifyKey(ctx context.Context, plaintext string) (*models.APIKey, error) {
	var candidates []models.APIKey
	if err := r.DB().WithContext(ctx).Where("active = ?", true).Find(&candidates).Error; err != nil {
		return nil, err
	}
	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].KeyHash), []byte(plaintext)) == nil {
			return &candidates[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *apiKeyRepository) TouchLastUsed(ctx context.Context, id uint) error {
	return r.DB().WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ?", id).
		Update("last_used", time.Now()).Error
}
