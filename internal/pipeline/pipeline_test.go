package pipeline

import (
	"context"
	"testing"
	"time"

	"transcribeapi/internal/config"
	"transcribeapi/internal/lexicon"
	"transcribeapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLexiconRepo struct {
	mock.Mock
}

func (m *mockLexiconRepo) Create(ctx context.Context, e *models.LexiconTerm) error { return nil }
func (m *mockLexiconRepo) FindByID(ctx context.Context, id interface{}) (*models.LexiconTerm, error) {
	return nil, nil
}
func (m *mockLexiconRepo) Update(ctx context.Context, e *models.LexiconTerm) error { return nil }
func (m *mockLexiconRepo) Delete(ctx context.Context, id interface{}) error        { return nil }
func (m *mockLexiconRepo) List(ctx context.Context, offset, limit int) ([]models.LexiconTerm, int64, error) {
	return nil, 0, nil
}
func (m *mockLexiconRepo) ListActiveByLexicon(ctx context.Context, lexiconID string) ([]models.LexiconTerm, error) {
	args := m.Called(ctx, lexiconID)
	return args.Get(0).([]models.LexiconTerm), args.Error(1)
}
func (m *mockLexiconRepo) FindByNormalizedTerm(ctx context.Context, lexiconID, normalizedTerm string, excludeID *uint) (*models.LexiconTerm, error) {
	return nil, nil
}
func (m *mockLexiconRepo) Deactivate(ctx context.Context, id uint) error { return nil }

func defaultOptions(lexiconID string) Options {
	return Options{
		EnableLexicon: true,
		EnableCleanup: true,
		EnableNumeral: true,
		NumeralStrategy: config.NumeralContextAware,
		Fuzzy:           lexicon.FuzzyOptions{Enabled: true, Threshold: 85},
		Confidence:      ConfidenceCoefficients{Alpha: 0.02, Beta: 0.05, Gamma: 0.5},
		LexiconID:       lexiconID,
	}
}

func TestPipelineRunAppliesAllEnabledSteps(t *testing.T) {
	repo := new(mockLexiconRepo)
	repo.On("ListActiveByLexicon", mock.Anything, "radiology").
		Return([]models.LexiconTerm{{NormalizedTerm: "mri", Term: "mri", Replacement: "MRI"}}, nil)

	cache := lexicon.NewCache(repo, time.Hour)
	p := New(cache, nil)

	processed, metrics := p.Run(context.Background(), "job-1", "patient had an mri   scan today [music]", defaultOptions("radiology"))

	require.NotEmpty(t, processed)
	assert.Contains(t, processed, "MRI")
	assert.NotContains(t, processed, "[music]")
	assert.Equal(t, 1, metrics.ExactMatchCount)
	assert.GreaterOrEqual(t, metrics.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, metrics.ConfidenceScore, 1.0)
}

func TestPipelineDisabledStepsArePassThrough(t *testing.T) {
	repo := new(mockLexiconRepo)
	cache := lexicon.NewCache(repo, time.Hour)
	p := New(cache, nil)

	opts := Options{Confidence: ConfidenceCoefficients{Alpha: 0.02, Beta: 0.05, Gamma: 0.5}}
	processed, metrics := p.Run(context.Background(), "job-2", "  raw   text  ", opts)

	assert.Equal(t, "  raw   text  ", processed)
	assert.Equal(t, 0, metrics.ExactMatchCount)
	assert.Equal(t, 1.0, metrics.ConfidenceScore)
}

func TestPipelinePolishFallsBackOnError(t *testing.T) {
	repo := new(mockLexiconRepo)
	cache := lexicon.NewCache(repo, time.Hour)
	polish := NewPolishClient("http://127.0.0.1:1", "", "gpt-4o-mini", 50*time.Millisecond)
	p := New(cache, polish)

	opts := Options{
		EnableLargeModelPolish: true,
		Confidence:             ConfidenceCoefficients{Alpha: 0.02, Beta: 0.05, Gamma: 0.5},
	}
	processed, _ := p.Run(context.Background(), "job-3", "hello world", opts)

	assert.Equal(t, "hello world", processed)
}
