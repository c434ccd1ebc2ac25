package lexicon

import (
	"context"
	"testing"

	"transcribeapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestValidateMutationRejectsEmptyFields(t *testing.T) {
	repo := new(mockLexiconRepository)
	v := NewValidator(repo)

	details := v.ValidateMutation(context.Background(), "radiology", "", "", nil)

	assert.Len(t, details, 2)
}

func TestValidateMutationRejectsDuplicate(t *testing.T) {
	repo := new(mockLexiconRepository)
	repo.On("FindByNormalizedTerm", mock.Anything, "radiology", "mri", (*uint)(nil)).
		Return(&models.LexiconTerm{ID: 1, NormalizedTerm: "mri"}, nil)
	repo.On("ListActiveByLexicon", mock.Anything, "radiology").
		Return([]models.LexiconTerm{}, nil)

	v := NewValidator(repo)
	details := v.ValidateMutation(context.Background(), "radiology", "MRI", "Magnetic Resonance", nil)

	assert.Len(t, details, 1)
	assert.Equal(t, "duplicate", details[0].Issue)
}

func TestValidateMutationDetectsDirectCycle(t *testing.T) {
	repo := new(mockLexiconRepository)
	repo.On("FindByNormalizedTerm", mock.Anything, "radiology", "magnetic resonance", (*uint)(nil)).
		Return(nil, nil)
	repo.On("ListActiveByLexicon", mock.Anything, "radiology").
		Return([]models.LexiconTerm{
			{ID: 1, NormalizedTerm: "mri", Term: "MRI", Replacement: "magnetic resonance", Active: true},
		}, nil)

	v := NewValidator(repo)
	details := v.ValidateMutation(context.Background(), "radiology", "magnetic resonance", "MRI", nil)

	assert.Len(t, details, 1)
	assert.Equal(t, "circular_reference", details[0].Issue)
	assert.Contains(t, details[0].Value, "MRI")
}

func TestValidateMutationAllowsNonCyclicChain(t *testing.T) {
	repo := new(mockLexiconRepository)
	repo.On("FindByNormalizedTerm", mock.Anything, "radiology", "ct", (*uint)(nil)).
		Return(nil, nil)
	repo.On("ListActiveByLexicon", mock.Anything, "radiology").
		Return([]models.LexiconTerm{
			{ID: 1, NormalizedTerm: "mri", Term: "MRI", Replacement: "magnetic resonance imaging", Active: true},
		}, nil)

	v := NewValidator(repo)
	details := v.ValidateMutation(context.Background(), "radiology", "CT", "computed tomography", nil)

	assert.Empty(t, details)
}
