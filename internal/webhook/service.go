// Package webhook notifies a job's CallbackURL when it reaches a terminal
// status. Delivery is best-effort: the job itself is already durably
// COMPLETED or FAILED in the database by the time a webhook is attempted,
// so a delivery failure is logged, not propagated to the caller.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"transcribeapi/internal/models"
	"transcribeapi/pkg/logger"
)

// Payload is the JSON body posted to a job's callback URL.
type Payload struct {
	JobID               string                `json:"job_id"`
	Status              models.JobStatus      `json:"status"`
	AudioFormat         string                `json:"audio_format"`
	RawTranscript       *string               `json:"original_text,omitempty"`
	ProcessedTranscript *string               `json:"processed_text,omitempty"`
	ConfidenceScore     *float64              `json:"confidence_score,omitempty"`
	FailureReason       *models.FailureReason `json:"error,omitempty"`
	CompletedAt         time.Time             `json:"completed_at"`
}

// PayloadFromJob builds the notification payload for a terminal job.
func PayloadFromJob(job *models.Job) Payload {
	completedAt := time.Now()
	if job.CompletedAt != nil {
		completedAt = *job.CompletedAt
	}
	return Payload{
		JobID:               job.ID,
		Status:              job.Status,
		AudioFormat:         job.AudioFormat,
		RawTranscript:       job.RawTranscript,
		ProcessedTranscript: job.ProcessedTranscript,
		ConfidenceScore:     job.ConfidenceScore,
		FailureReason:       job.FailureReason,
		CompletedAt:         completedAt,
	}
}

// Notifier delivers terminal-job callbacks with bounded retries.
type Notifier struct {
	client     *http.Client
	maxRetries int
}

// NewNotifier constructs a Notifier with a fixed request timeout.
func NewNotifier(timeout time.Duration) *Notifier {
	return &Notifier{
		client:     &http.Client{Timeout: timeout},
		maxRetries: 3,
	}
}

// Notify posts payload to url, retrying transport errors and non-2xx
// responses with a linear backoff. A blank url is a no-op: the job was
// submitted without a callback.
func (n *Notifier) Notify(ctx context.Context, url string, payload Payload) error {
	if url == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	logger.Info("sending job webhook", "job_id", payload.JobID, "url", url, "status", payload.Status)

	var lastErr error
	for attempt := 0; attempt < n.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
			logger.Info("retrying job webhook", "job_id", payload.JobID, "attempt", attempt+1)
		}

		// Built fresh each attempt: the request body reader is drained
		// by the previous attempt's client.Do.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "transcribeapi-webhook/1.0")

		resp, err := n.client.Do(req)
		if err != nil {
			lastErr = err
			logger.Warn("job webhook request failed", "job_id", payload.JobID, "error", err, "attempt", attempt+1)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("job webhook delivered", "job_id", payload.JobID, "status_code", resp.StatusCode)
			return nil
		}

		lastErr = fmt.Errorf("webhook returned status %d", resp.StatusCode)
		logger.Warn("job webhook returned error status", "job_id", payload.JobID, "status_code", resp.StatusCode, "attempt", attempt+1)
	}

	return fmt.Errorf("failed to deliver webhook after %d attempts: %w", n.maxRetries, lastErr)
}
