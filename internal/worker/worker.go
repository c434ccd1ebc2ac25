// Package worker runs a fixed-size pool of routines that claim job ids
// from the queue, run them end to end through the recognizer and
// post-processing pipeline, and write the terminal result. A claim is a
// conditional DB update rather than a channel receive, so redelivery and
// visibility-timeout handling live in the queue (internal/queue) rather
// than in the pool itself.
package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"transcribeapi/internal/blobstore"
	"transcribeapi/internal/config"
	"transcribeapi/internal/lexicon"
	"transcribeapi/internal/metrics"
	"transcribeapi/internal/models"
	"transcribeapi/internal/pipeline"
	"transcribeapi/internal/queue"
	"transcribeapi/internal/repository"
	"transcribeapi/internal/transcription"
	"transcribeapi/internal/webhook"
	"transcribeapi/pkg/logger"
)

// Pool runs a fixed number of worker routines, each processing one job at
// a time end to end (recognizer call, post-processing pipeline, terminal
// DB write) with no yielding to other jobs within the same routine.
type Pool struct {
	jobs        repository.JobRepository
	q           *queue.Queue
	blobs       blobstore.Store
	recognizer  *transcription.Client
	pipeline    *pipeline.Pipeline
	cache       *lexicon.Cache
	cfg         *config.Config
	webhooks    *webhook.Notifier
	metrics     *metrics.Metrics
	workerCount int
	pollEvery   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Deps bundles the collaborators a Pool needs; built once in main and
// passed down so tests can substitute fakes for any of them.
type Deps struct {
	Jobs       repository.JobRepository
	Queue      *queue.Queue
	Blobs      blobstore.Store
	Recognizer *transcription.Client
	Pipeline   *pipeline.Pipeline
	Cache      *lexicon.Cache
	Config     *config.Config
	Webhooks   *webhook.Notifier
	Metrics    *metrics.Metrics
}

// New builds a Pool with workerCount routines.
func New(deps Deps, workerCount int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	if deps.Webhooks == nil {
		deps.Webhooks = webhook.NewNotifier(10 * time.Second)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Pool{
		jobs:        deps.Jobs,
		q:           deps.Queue,
		blobs:       deps.Blobs,
		recognizer:  deps.Recognizer,
		pipeline:    deps.Pipeline,
		cache:       deps.Cache,
		cfg:         deps.Config,
		webhooks:    deps.Webhooks,
		metrics:     deps.Metrics,
		workerCount: workerCount,
		pollEvery:   500 * time.Millisecond,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the worker routines plus the background orphan sweeper.
func (p *Pool) Start() {
	logger.Info("starting worker pool", "workers", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	p.wg.Add(1)
	go p.sweepLoop()
}

// Stop signals every routine to exit and waits for them to drain.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			jobID, ok, err := p.q.Claim(p.ctx)
			if err != nil {
				logger.Error("queue claim failed", "worker_id", id, "error", err)
				continue
			}
			if !ok {
				continue
			}
			p.process(id, jobID)
		}
	}
}

// process runs one job end to end. Every failure path is routed through
// markFailed so the job always reaches a terminal state; the queue entry
// is cleared via Complete regardless of outcome since retries beyond this
// point are the operator's decision (MISSING_AUDIO, quota, decode errors
// are not queue-level transient conditions).
func (p *Pool) process(workerID int, jobID string) {
	start := time.Now()
	logger.JobStarted(jobID, workerID)

	won, err := p.jobs.ClaimPending(p.ctx, jobID)
	if err != nil {
		logger.Error("claim-pending update failed", "job_id", jobID, "error", err)
		_ = p.q.Complete(p.ctx, jobID)
		return
	}
	if !won {
		// Already taken or terminal; another routine (or a stale
		// redelivery) raced us. Nothing to do.
		_ = p.q.Complete(p.ctx, jobID)
		return
	}

	job, err := p.jobs.FindByID(p.ctx, jobID)
	if err != nil {
		logger.Error("failed to load job after claim", "job_id", jobID, "error", err)
		p.markFailed(jobID, models.FailureInternal)
		return
	}

	raw, failErr := p.transcribe(job)
	if failErr != nil {
		logger.JobFailed(jobID, time.Since(start), string(failErr.reason), failErr.err)
		p.finishFailure(job, failErr.reason)
		return
	}

	if err := p.jobs.SaveRawTranscript(p.ctx, jobID, raw); err != nil {
		logger.Error("failed to persist raw transcript", "job_id", jobID, "error", err)
		p.finishFailure(job, models.FailureInternal)
		return
	}

	processed, procMetrics := p.pipeline.Run(p.ctx, jobID, raw, p.pipelineOptions(job))

	if err := p.jobs.SaveProcessedResult(p.ctx, jobID, processed, procMetrics, procMetrics.ConfidenceScore, procMetrics.ExactMatchCount, procMetrics.FuzzyMatchCount); err != nil {
		logger.Error("failed to persist processed result", "job_id", jobID, "error", err)
		p.finishFailure(job, models.FailureInternal)
		return
	}

	if err := p.jobs.MarkCompleted(p.ctx, jobID); err != nil {
		logger.Error("failed to mark job completed", "job_id", jobID, "error", err)
		p.finishFailure(job, models.FailureInternal)
		return
	}

	p.cleanupAudio(job)
	_ = p.q.Complete(p.ctx, jobID)
	logger.JobCompleted(jobID, time.Since(start), procMetrics.ConfidenceScore)

	p.metrics.ObserveCompletion(procMetrics.ConfidenceBucket, procMetrics.ExactMatchCount, procMetrics.FuzzyMatchCount)

	job.Status = models.StatusCompleted
	job.RawTranscript = &raw
	job.ProcessedTranscript = &processed
	job.ConfidenceScore = &procMetrics.ConfidenceScore
	p.notify(job)
}

type jobError struct {
	reason models.FailureReason
	err    error
}

// transcribe retrieves the audio blob and calls the recognizer, classifying
// any error into a FailureReason.
func (p *Pool) transcribe(job *models.Job) (string, *jobError) {
	reader, err := p.blobs.Open(job.AudioPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &jobError{reason: models.FailureMissingAudio, err: err}
		}
		return "", &jobError{reason: models.FailureInternal, err: err}
	}
	defer reader.Close()

	if valid, reason := p.blobs.ProbeWAV(job.AudioPath); !valid && reason != "" {
		logger.Warn("audio probe reported a possible decode issue, attempting transcription anyway", "job_id", job.ID, "reason", reason)
	}

	language := ""
	if job.Language != nil {
		language = *job.Language
	}

	text, err := p.recognizer.Transcribe(p.ctx, job.AudioPath, language)
	if err != nil {
		var tErr *transcription.Error
		if errors.As(err, &tErr) {
			return "", &jobError{reason: classifyRecognizerError(tErr), err: tErr}
		}
		return "", &jobError{reason: models.FailureRecognizer, err: err}
	}
	return text, nil
}

func classifyRecognizerError(err *transcription.Error) models.FailureReason {
	switch err.Kind {
	case transcription.ErrQuota, transcription.ErrRateLimit:
		return models.FailureQuotaExceeded
	case transcription.ErrFormatRejected:
		return models.FailureAudioDecode
	default:
		return models.FailureRecognizer
	}
}

func (p *Pool) markFailed(jobID string, reason models.FailureReason) {
	if err := p.jobs.MarkFailed(p.ctx, jobID, reason); err != nil {
		logger.Error("failed to mark job failed", "job_id", jobID, "error", err)
	}
	_ = p.q.Complete(p.ctx, jobID)
	p.metrics.ObserveFailure(string(reason))
}

// finishFailure marks a loaded job failed and notifies its callback, if
// any. Used on the paths where the job row is already in hand; earlier
// failure paths (before FindByID succeeds) fall back to markFailed since
// there is no CallbackURL to notify yet.
func (p *Pool) finishFailure(job *models.Job, reason models.FailureReason) {
	p.markFailed(job.ID, reason)
	job.Status = models.StatusFailed
	job.FailureReason = &reason
	p.notify(job)
}

// notify delivers the job's terminal-state webhook in the background so a
// slow or unreachable callback endpoint never delays the worker's next
// poll.
func (p *Pool) notify(job *models.Job) {
	if job.CallbackURL == nil || *job.CallbackURL == "" {
		return
	}
	url := *job.CallbackURL
	payload := webhook.PayloadFromJob(job)
	go func() {
		if err := p.webhooks.Notify(context.Background(), url, payload); err != nil {
			logger.Warn("job webhook delivery failed", "job_id", job.ID, "error", err)
		}
	}()
}

func (p *Pool) cleanupAudio(job *models.Job) {
	if err := p.blobs.Remove(job.AudioPath); err != nil {
		logger.Warn("best-effort audio cleanup failed", "job_id", job.ID, "path", job.AudioPath, "error", err)
	}
}

func (p *Pool) pipelineOptions(job *models.Job) pipeline.Options {
	lexID := p.cfg.DefaultLexiconID
	if job.LexiconID != nil && *job.LexiconID != "" {
		lexID = *job.LexiconID
	}
	return pipeline.Options{
		EnableLexicon:                  p.cfg.EnableLexicon,
		EnableCleanup:                  p.cfg.EnableCleanup,
		EnableNumeral:                  p.cfg.EnableNumeral,
		EnableLargeModelPolish:         p.cfg.EnableLargeModelPolish,
		NumeralStrategy:                p.cfg.NumeralStrategy,
		LanguageNormalisationsEnabled:  p.cfg.LanguageNormalisationsEnabled,
		Fuzzy:                          lexicon.FuzzyOptions{Enabled: p.cfg.FuzzyEnabled, Threshold: p.cfg.FuzzyThreshold},
		Confidence:                     pipeline.ConfidenceCoefficients{Alpha: p.cfg.ConfidenceAlpha, Beta: p.cfg.ConfidenceBeta, Gamma: p.cfg.ConfidenceGamma},
		LexiconID:                      lexID,
	}
}

// sweepLoop periodically re-enqueues stale pending jobs and fails stuck
// processing jobs. Redelivery of timed-out queue entries is handled by
// queue.Queue.SweepExpired; this loop additionally catches jobs whose
// pending row never made it back into the queue at all (e.g. a crash
// between DB insert and Enqueue).
func (p *Pool) sweepLoop() {
	defer p.wg.Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.sweepOnce()
		}
	}
}

func (p *Pool) sweepOnce() {
	reenqueued, exhausted, err := p.q.SweepExpired(p.ctx)
	if err != nil {
		logger.Error("queue sweep failed", "error", err)
	} else {
		for _, jobID := range reenqueued {
			logger.Warn("re-enqueued job after visibility timeout expiry", "job_id", jobID)
		}
		for _, jobID := range exhausted {
			if job, ferr := p.jobs.FindByID(p.ctx, jobID); ferr == nil {
				p.finishFailure(job, models.FailureStuck)
			} else {
				p.markFailed(jobID, models.FailureStuck)
			}
			logger.Error("job exhausted retry budget, marked stuck", "job_id", jobID)
		}
	}

	staleBefore := time.Now().Add(-p.cfg.JobTimeout)
	stalePending, err := p.jobs.FindStalePending(p.ctx, staleBefore)
	if err != nil {
		logger.Error("find stale pending failed", "error", err)
	} else {
		for _, job := range stalePending {
			if err := p.q.Enqueue(p.ctx, job.ID); err != nil {
				logger.Error("failed to re-enqueue stale pending job", "job_id", job.ID, "error", err)
				continue
			}
			logger.Warn("re-enqueued stale pending job with no active queue entry", "job_id", job.ID)
		}
	}

	stuckBefore := time.Now().Add(-3 * p.cfg.JobTimeout)
	stuckProcessing, err := p.jobs.FindStuckProcessing(p.ctx, stuckBefore)
	if err != nil {
		logger.Error("find stuck processing failed", "error", err)
		return
	}
	for i := range stuckProcessing {
		job := &stuckProcessing[i]
		p.finishFailure(job, models.FailureStuck)
		logger.Error("job stuck in processing beyond timeout budget, marked failed", "job_id", job.ID)
	}
}
