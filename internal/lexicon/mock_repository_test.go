package lexicon

import (
	"context"

	"transcribeapi/internal/models"

	"github.com/stretchr/testify/mock"
)

// mockLexiconRepository is a test double for repository.LexiconRepository.
type mockLexiconRepository struct {
	mock.Mock
}

func (m *mockLexiconRepository) Create(ctx context.Context, entity *models.LexiconTerm) error {
	args := m.Called(ctx, entity)
	return args.Error(0)
}

func (m *mockLexiconRepository) FindByID(ctx context.Context, id interface{}) (*models.LexiconTerm, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LexiconTerm), args.Error(1)
}

func (m *mockLexiconRepository) Update(ctx context.Context, entity *models.LexiconTerm) error {
	args := m.Called(ctx, entity)
	return args.Error(0)
}

func (m *mockLexiconRepository) Delete(ctx context.Context, id interface{}) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockLexiconRepository) List(ctx context.Context, offset, limit int) ([]models.LexiconTerm, int64, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]models.LexiconTerm), args.Get(1).(int64), args.Error(2)
}

func (m *mockLexiconRepository) ListActiveByLexicon(ctx context.Context, lexiconID string) ([]models.LexiconTerm, error) {
	args := m.Called(ctx, lexiconID)
	return args.Get(0).([]models.LexiconTerm), args.Error(1)
}

func (m *mockLexiconRepository) FindByNormalizedTerm(ctx context.Context, lexiconID, normalizedTerm string, excludeID *uint) (*models.LexiconTerm, error) {
	args := m.Called(ctx, lexiconID, normalizedTerm, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LexiconTerm), args.Error(1)
}

func (m *mockLexiconRepository) Deactivate(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
