package pipeline

import (
	"testing"

	"transcribeapi/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNumeralsPreserveStrategyNoOp(t *testing.T) {
	out := NormalizeNumerals("patient is ۲۵ years old", config.NumeralPreserve)
	assert.Equal(t, "patient is ۲۵ years old", out)
}

func TestNormalizeNumeralsForceASCII(t *testing.T) {
	out := NormalizeNumerals("age ۲۵", config.NumeralForceASCII)
	assert.Equal(t, "age 25", out)
}

func TestNormalizeNumeralsForceLocal(t *testing.T) {
	out := NormalizeNumerals("age 25", config.NumeralForceLocal)
	assert.Equal(t, "age ۲۵", out)
}

func TestNormalizeNumeralsContextAwarePreservesSpineCode(t *testing.T) {
	out := NormalizeNumerals("impression: C3-C4 disc bulge", config.NumeralContextAware)
	assert.Contains(t, out, "C3-C4")
}

func TestNormalizeNumeralsContextAwarePreservesUnitAdjacent(t *testing.T) {
	out := NormalizeNumerals("prescribed 10mg daily", config.NumeralContextAware)
	assert.Contains(t, out, "10mg")
}

func TestNormalizeNumeralsContextAwarePreservesBloodPressure(t *testing.T) {
	out := NormalizeNumerals("blood pressure 120/80", config.NumeralContextAware)
	assert.Contains(t, out, "120/80")
}

func TestNormalizeNumeralsContextAwareConvertsPlainDigits(t *testing.T) {
	out := NormalizeNumerals("patient is ۲۵ years old", config.NumeralContextAware)
	assert.Contains(t, out, "25")
}
