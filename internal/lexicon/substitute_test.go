package lexicon

import (
	"testing"

	"transcribeapi/internal/models"

	"github.com/stretchr/testify/assert"
)

func compileFixture(pairs ...models.LexiconTerm) *Compiled {
	return Compile("radiology", pairs)
}

func TestSubstituteCasePreservationRoundTrip(t *testing.T) {
	compiled := compileFixture(models.LexiconTerm{NormalizedTerm: "mri", Term: "mri", Replacement: "MRI"})

	cases := map[string]string{
		"MRI": "MRI",
		"Mri": "Mri",
		"mri": "MRI",
	}
	for input, want := range cases {
		result := Substitute(input, compiled, FuzzyOptions{})
		assert.Equal(t, want, result.Text, "input %q", input)
	}
}

func TestSubstituteLongestMatchFirst(t *testing.T) {
	compiled := compileFixture(
		models.LexiconTerm{NormalizedTerm: "mri", Term: "mri", Replacement: "MRI"},
		models.LexiconTerm{NormalizedTerm: "mri scan", Term: "mri scan", Replacement: "MRI Scan"},
	)

	result := Substitute("needs an mri scan", compiled, FuzzyOptions{})
	assert.Equal(t, "needs an MRI Scan", result.Text)
	assert.Equal(t, 1, result.ExactMatches)
}

func TestSubstituteRequiresWordBoundary(t *testing.T) {
	compiled := compileFixture(models.LexiconTerm{NormalizedTerm: "mri", Term: "mri", Replacement: "MRI"})

	result := Substitute("acronym mrify", compiled, FuzzyOptions{})
	assert.Equal(t, "acronym mrify", result.Text)
	assert.Equal(t, 0, result.ExactMatches)
}

func TestSubstituteIsIdempotentOnReplacementOutput(t *testing.T) {
	compiled := compileFixture(models.LexiconTerm{NormalizedTerm: "mri", Term: "mri", Replacement: "MRI"})

	first := Substitute("an mri today", compiled, FuzzyOptions{})
	second := Substitute(first.Text, compiled, FuzzyOptions{})

	assert.Equal(t, first.Text, second.Text)
}

func TestSubstituteFuzzyFallbackOnMisspelling(t *testing.T) {
	compiled := compileFixture(models.LexiconTerm{NormalizedTerm: "radiology", Term: "radiology", Replacement: "Radiology"})

	result := Substitute("patient seen in radiolgy today", compiled, FuzzyOptions{Enabled: true, Threshold: 80})
	assert.Contains(t, result.Text, "Radiology")
	assert.Equal(t, 1, result.FuzzyMatches)
}

func TestSubstituteFuzzySkipsAlreadyExactTokens(t *testing.T) {
	compiled := compileFixture(models.LexiconTerm{NormalizedTerm: "mri", Term: "mri", Replacement: "MRI"})

	result := Substitute("mri", compiled, FuzzyOptions{Enabled: true, Threshold: 85})
	assert.Equal(t, "MRI", result.Text)
	assert.Equal(t, 0, result.FuzzyMatches)
}
