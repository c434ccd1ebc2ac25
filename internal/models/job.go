package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a transcription job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// FailureReason classifies why a job ended FAILED.
type FailureReason string

const (
	FailureQuotaExceeded  FailureReason = "quota_exceeded"
	FailureRecognizer     FailureReason = "recognizer_error"
	FailureAudioDecode    FailureReason = "audio_decode"
	FailureMissingAudio   FailureReason = "missing_audio"
	FailureStuck          FailureReason = "stuck"
	FailureInternal       FailureReason = "internal"
)

// PipelineMetrics is the immutable-once-terminal metrics record attached to
// a completed job. Stored as a JSON column (confidence_metrics_json).
type PipelineMetrics struct {
	WordCount          int                 `json:"word_count"`
	ExactMatchCount    int                 `json:"exact_match_count"`
	FuzzyMatchCount    int                 `json:"fuzzy_match_count"`
	ConfidenceScore    float64             `json:"confidence_score"`
	ConfidenceBucket   string              `json:"confidence_bucket"`
	StepDurationsMs    map[string]int64    `json:"step_durations_ms,omitempty"`
	LengthDeltas       map[string]int      `json:"length_deltas,omitempty"`
}

// Value implements driver.Valuer so gorm can store this as a JSON text column.
func (m PipelineMetrics) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for reading the JSON text column back.
func (m *PipelineMetrics) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for PipelineMetrics: %T", value)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, m)
}

// Job is a durable transcription job record. Status transitions are
// monotonic PENDING -> PROCESSING -> {COMPLETED, FAILED}; once terminal
// (COMPLETED or FAILED) the row is never mutated again.
type Job struct {
	ID                  string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	APIKeyID            uint             `json:"-" gorm:"index;not null"`
	LexiconID           *string          `json:"lexicon_id,omitempty" gorm:"type:varchar(100)"`
	AudioPath           string           `json:"-" gorm:"type:text;not null"`
	AudioFormat         string           `json:"audio_format" gorm:"type:varchar(10);not null"`
	Language            *string          `json:"language,omitempty" gorm:"type:varchar(10)"`
	Status              JobStatus        `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	CallbackURL         *string          `json:"-" gorm:"type:text"`
	CreatedAt           time.Time        `json:"created_at" gorm:"autoCreateTime"`
	StartedAt           *time.Time       `json:"started_at,omitempty"`
	CompletedAt         *time.Time       `json:"completed_at,omitempty"`
	RawTranscript       *string          `json:"original_text,omitempty" gorm:"type:text"`
	ProcessedTranscript *string          `json:"processed_text,omitempty" gorm:"type:text"`
	FailureReason       *FailureReason   `json:"error,omitempty" gorm:"type:varchar(30)"`
	CorrectionCount     int              `json:"correction_count" gorm:"default:0"`
	FuzzyMatchCount     int              `json:"fuzzy_match_count" gorm:"default:0"`
	ConfidenceScore     *float64         `json:"confidence_score,omitempty"`
	Metrics             PipelineMetrics  `json:"-" gorm:"column:confidence_metrics_json;type:text"`
	UpdatedAt           time.Time        `json:"-" gorm:"autoUpdateTime"`
}

// TableName pins the GORM table name explicitly.
func (Job) TableName() string { return "jobs" }

// IsTerminal reports whether the job has reached a terminal status.
func (j *Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
