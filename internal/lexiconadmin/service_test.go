package lexiconadmin

import (
	"context"
	"testing"
	"time"

	"transcribeapi/internal/apierr"
	"transcribeapi/internal/lexicon"
	"transcribeapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLexiconRepo struct{ mock.Mock }

func (m *mockLexiconRepo) Create(ctx context.Context, e *models.LexiconTerm) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
func (m *mockLexiconRepo) FindByID(ctx context.Context, id interface{}) (*models.LexiconTerm, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LexiconTerm), args.Error(1)
}
func (m *mockLexiconRepo) Update(ctx context.Context, e *models.LexiconTerm) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
func (m *mockLexiconRepo) Delete(ctx context.Context, id interface{}) error { return nil }
func (m *mockLexiconRepo) List(ctx context.Context, offset, limit int) ([]models.LexiconTerm, int64, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]models.LexiconTerm), args.Get(1).(int64), args.Error(2)
}
func (m *mockLexiconRepo) ListActiveByLexicon(ctx context.Context, lexiconID string) ([]models.LexiconTerm, error) {
	args := m.Called(ctx, lexiconID)
	return args.Get(0).([]models.LexiconTerm), args.Error(1)
}
func (m *mockLexiconRepo) FindByNormalizedTerm(ctx context.Context, lexiconID, normalizedTerm string, excludeID *uint) (*models.LexiconTerm, error) {
	args := m.Called(ctx, lexiconID, normalizedTerm, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LexiconTerm), args.Error(1)
}
func (m *mockLexiconRepo) Deactivate(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService(repo *mockLexiconRepo) *Service {
	return New(repo, lexicon.NewCache(repo, time.Hour))
}

func TestCreateTermRejectsValidationFailures(t *testing.T) {
	repo := new(mockLexiconRepo)
	repo.On("FindByNormalizedTerm", mock.Anything, "radiology", "mri", (*uint)(nil)).Return(nil, nil)
	repo.On("ListActiveByLexicon", mock.Anything, "radiology").Return([]models.LexiconTerm{}, nil)

	svc := newTestService(repo)
	_, err := svc.CreateTerm(context.Background(), TermInput{LexiconID: "radiology", Term: "", Replacement: "magnetic resonance"})

	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindValidation))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateTermInsertsAndInvalidatesCache(t *testing.T) {
	repo := new(mockLexiconRepo)
	repo.On("FindByNormalizedTerm", mock.Anything, "radiology", "mri", (*uint)(nil)).Return(nil, nil)
	repo.On("ListActiveByLexicon", mock.Anything, "radiology").Return([]models.LexiconTerm{}, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(term *models.LexiconTerm) bool {
		return term.NormalizedTerm == "mri" && term.Active
	})).Return(nil)

	svc := newTestService(repo)
	term, err := svc.CreateTerm(context.Background(), TermInput{LexiconID: "radiology", Term: "MRI", Replacement: "magnetic resonance"})

	require.NoError(t, err)
	assert.Equal(t, "mri", term.NormalizedTerm)
	repo.AssertExpectations(t)
}

func TestUpdateTermRequiresExistingRow(t *testing.T) {
	repo := new(mockLexiconRepo)
	repo.On("FindByID", mock.Anything, uint(9)).Return(nil, assertNotFound{})

	svc := newTestService(repo)
	_, err := svc.UpdateTerm(context.Background(), 9, TermInput{LexiconID: "radiology", Term: "MRI", Replacement: "magnetic resonance"})

	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.KindNotFound))
}

func TestDeleteTermDeactivatesAndInvalidatesCache(t *testing.T) {
	repo := new(mockLexiconRepo)
	existing := &models.LexiconTerm{ID: 4, LexiconID: "radiology"}
	repo.On("FindByID", mock.Anything, uint(4)).Return(existing, nil)
	repo.On("Deactivate", mock.Anything, uint(4)).Return(nil)

	svc := newTestService(repo)
	err := svc.DeleteTerm(context.Background(), 4)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestListLexiconIDsReturnsDistinctActiveIDs(t *testing.T) {
	repo := new(mockLexiconRepo)
	repo.On("List", mock.Anything, 0, -1).Return([]models.LexiconTerm{
		{LexiconID: "radiology", Active: true},
		{LexiconID: "cardiology", Active: true},
		{LexiconID: "radiology", Active: true},
		{LexiconID: "archived", Active: false},
	}, int64(4), nil)

	svc := newTestService(repo)
	ids, err := svc.ListLexiconIDs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"cardiology", "radiology"}, ids)
}

type assertNotFound struct{}

func (assertNotFound) Error() string { return "record not found" }
