// Package submission is the upload-intake service. It validates an
// incoming audio upload, writes the blob, inserts a PENDING job row, and
// enqueues the job id, in that order so a failure partway through never
// leaves an orphaned blob or an un-enqueued job row the worker can't
// eventually recover.
package submission

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"transcribeapi/internal/apierr"
	"transcribeapi/internal/blobstore"
	"transcribeapi/internal/models"
	"transcribeapi/internal/queue"
	"transcribeapi/internal/repository"

	"github.com/google/uuid"
)

// allowedFormats is the set of extensions (and, identically, the
// mime-subtype token) this service accepts.
var allowedFormats = map[string]bool{
	"wav":  true,
	"mp3":  true,
	"m4a":  true,
	"ogg":  true,
	"flac": true,
	"mp4":  true,
	"mpeg": true,
	"mpga": true,
	"webm": true,
}

// contentTypeFormat maps a declared Content-Type to the format token it
// must agree with. Only the audio/video subtypes the allowed set actually
// uses are listed; anything else is rejected outright.
var contentTypeFormat = map[string]string{
	"audio/wav":        "wav",
	"audio/x-wav":      "wav",
	"audio/wave":       "wav",
	"audio/mpeg":       "mp3",
	"audio/mp3":        "mp3",
	"audio/x-m4a":      "m4a",
	"audio/m4a":        "m4a",
	"audio/mp4":        "m4a",
	"audio/ogg":        "ogg",
	"application/ogg":  "ogg",
	"audio/flac":       "flac",
	"audio/x-flac":     "flac",
	"video/mp4":        "mp4",
	"video/mpeg":       "mpeg",
	"audio/mpga":       "mpga",
	"audio/webm":       "webm",
	"video/webm":       "webm",
}

// Request is one Submit call's input, minus the raw bytes which travel
// via the multipart header.
type Request struct {
	File         *multipart.FileHeader
	ContentType  string
	LexiconID    string // from header; empty if not supplied
	QueryLexicon string // from query parameter; empty if not supplied
	Language     string
	CallbackURL  string
	APIKeyID     uint
}

// Result is what Submit hands back to the HTTP layer on success.
type Result struct {
	JobID     string
	CreatedAt time.Time
}

// Service implements the upload-intake operation.
type Service struct {
	blobs            blobstore.Store
	jobs             repository.JobRepository
	queue            *queue.Queue
	defaultLexiconID string
	maxBytes         int64
}

// New constructs a Service.
func New(blobs blobstore.Store, jobs repository.JobRepository, q *queue.Queue, defaultLexiconID string, maxBytes int64) *Service {
	return &Service{blobs: blobs, jobs: jobs, queue: q, defaultLexiconID: defaultLexiconID, maxBytes: maxBytes}
}

// Submit validates and admits one upload: format/size checks, blob write,
// job row creation, and queue enqueue, in that order.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	format, err := s.validateFormat(req)
	if err != nil {
		return nil, err
	}
	if req.File.Size > s.maxBytes {
		return nil, apierr.New(apierr.KindCapacity, fmt.Sprintf("audio exceeds maximum size of %d bytes", s.maxBytes))
	}

	jobID := uuid.NewString()

	audioPath, err := s.blobs.Save(jobID, format, req.File)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindStorage, "failed to store uploaded audio", err)
	}

	lexiconID := resolveLexiconID(req.LexiconID, req.QueryLexicon, s.defaultLexiconID)

	job := &models.Job{
		ID:          jobID,
		APIKeyID:    req.APIKeyID,
		AudioPath:   audioPath,
		AudioFormat: format,
		Status:      models.StatusPending,
	}
	if lexiconID != "" {
		job.LexiconID = &lexiconID
	}
	if req.Language != "" {
		job.Language = &req.Language
	}
	if req.CallbackURL != "" {
		job.CallbackURL = &req.CallbackURL
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		_ = s.blobs.Remove(audioPath)
		return nil, apierr.Wrap(apierr.KindStorage, "failed to create job record", err)
	}

	if err := s.queue.Enqueue(ctx, jobID); err != nil {
		// The job row is already committed; the worker's orphan sweep
		// will find it PENDING with no queue entry and re-enqueue it.
		// Not fatal here.
		return &Result{JobID: jobID, CreatedAt: job.CreatedAt}, nil
	}

	return &Result{JobID: jobID, CreatedAt: job.CreatedAt}, nil
}

// validateFormat checks that both the file extension and the declared
// content type are in the allowed set and agree with each other.
func (s *Service) validateFormat(req Request) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(req.File.Filename), "."))
	if !allowedFormats[ext] {
		return "", apierr.New(apierr.KindClient, fmt.Sprintf("unsupported audio extension %q", ext)).
			WithDetails(apierr.Detail{Field: "filename", Issue: "unsupported_extension", Value: ext})
	}

	ctFormat, known := contentTypeFormat[strings.ToLower(req.ContentType)]
	if !known {
		return "", apierr.New(apierr.KindClient, fmt.Sprintf("unsupported content type %q", req.ContentType)).
			WithDetails(apierr.Detail{Field: "content_type", Issue: "unsupported_content_type", Value: req.ContentType})
	}

	if ctFormat != ext {
		return "", apierr.New(apierr.KindClient, "file extension and declared content type do not agree").
			WithDetails(
				apierr.Detail{Field: "filename", Issue: "extension_content_type_mismatch", Value: ext},
				apierr.Detail{Field: "content_type", Issue: "extension_content_type_mismatch", Value: req.ContentType},
			)
	}

	return ext, nil
}

// resolveLexiconID applies the header > query > default precedence.
func resolveLexiconID(header, query, def string) string {
	if header != "" {
		return header
	}
	if query != "" {
		return query
	}
	return def
}
