package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func defaultCoefficients() ConfidenceCoefficients {
	return ConfidenceCoefficients{Alpha: 0.02, Beta: 0.05, Gamma: 0.5}
}

func TestConfidencePerfectWhenNoCorrections(t *testing.T) {
	score := Confidence(0, 0, 100, defaultCoefficients())
	assert.Equal(t, 1.0, score)
}

func TestConfidenceSubtractsWeightedPenalties(t *testing.T) {
	score := Confidence(2, 1, 100, defaultCoefficients())
	assert.InDelta(t, 1.0-0.02*2-0.05*1, score, 0.0001)
}

func TestConfidenceAppliesRatioPenaltyAboveThreshold(t *testing.T) {
	// 30 corrections / 100 words = 0.3 ratio, exceeds 0.2.
	score := Confidence(30, 0, 100, defaultCoefficients())
	expected := 1.0 - 0.02*30 - 0.5*(0.3-0.2)
	assert.InDelta(t, expected, score, 0.0001)
}

func TestConfidenceClampsToZero(t *testing.T) {
	score := Confidence(1000, 1000, 10, defaultCoefficients())
	assert.Equal(t, 0.0, score)
}

func TestConfidenceBucketLabels(t *testing.T) {
	assert.Equal(t, "excellent", ConfidenceBucket(0.97))
	assert.Equal(t, "good", ConfidenceBucket(0.90))
	assert.Equal(t, "fair", ConfidenceBucket(0.75))
	assert.Equal(t, "poor", ConfidenceBucket(0.50))
}

func TestWordCountCountsAlphanumericRuns(t *testing.T) {
	// "C3-C4" splits into two alphanumeric runs across the hyphen.
	assert.Equal(t, 5, WordCount("the patient has C3-C4"))
}
