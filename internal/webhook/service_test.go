package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"transcribeapi/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNotify(t *testing.T) {
	notifier := NewNotifier(5 * time.Second)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "transcribeapi-webhook/1.0", r.Header.Get("User-Agent"))

			var payload Payload
			a := assert.New(t)
			a.NoError(json.NewDecoder(r.Body).Decode(&payload))
			a.Equal("job-123", payload.JobID)
			a.Equal(models.StatusCompleted, payload.Status)

			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		payload := Payload{
			JobID:       "job-123",
			Status:      models.StatusCompleted,
			AudioFormat: "wav",
			CompletedAt: time.Now(),
		}

		err := notifier.Notify(ctx, server.URL, payload)
		assert.NoError(t, err)
	})

	t.Run("RetryLogic", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		payload := Payload{JobID: "job-retry", Status: models.StatusFailed}

		err := notifier.Notify(ctx, server.URL, payload)

		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("FailureAfterRetries", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		err := notifier.Notify(ctx, server.URL, Payload{JobID: "job-fail"})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to deliver webhook after 3 attempts")
	})

	t.Run("EmptyURL", func(t *testing.T) {
		err := notifier.Notify(ctx, "", Payload{})
		assert.NoError(t, err)
	})
}

func TestPayloadFromJob(t *testing.T) {
	raw := "raw text"
	job := &models.Job{
		ID:            "job-xyz",
		AudioFormat:   "mp3",
		Status:        models.StatusCompleted,
		RawTranscript: &raw,
	}

	payload := PayloadFromJob(job)

	assert.Equal(t, "job-xyz", payload.JobID)
	assert.Equal(t, models.StatusCompleted, payload.Status)
	assert.Equal(t, &raw, payload.RawTranscript)
	assert.False(t, payload.CompletedAt.IsZero())
}
