package pipeline

import (
	"regexp"
	"strings"
	"unicode"

	"transcribeapi/internal/config"
)

// Preserved patterns: spine-level codes (C3-C4, L4-L5, T1-T12),
// unit-adjacent numbers (10mg, 5cm, 3.5mm), and blood-pressure-style
// NNN/NN readings. Numerals inside these spans are left untouched under
// the context-aware strategy.
var (
	spineCodePattern  = regexp.MustCompile(`(?i)\b[CLT]\d{1,2}(-[CLT]?\d{1,2})?\b`)
	unitAdjacentPattern = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s?(mg|cm|mm|ml|kg|g|mcg|mmhg|bpm)\b`)
	bloodPressurePattern = regexp.MustCompile(`\b\d{2,3}/\d{2,3}\b`)
)

var persianDigits = map[rune]rune{
	'0': '۰', '1': '۱', '2': '۲', '3': '۳', '4': '۴',
	'5': '۵', '6': '۶', '7': '۷', '8': '۸', '9': '۹',
}

var persianToASCII = map[rune]rune{
	'۰': '0', '۱': '1', '۲': '2', '۳': '3', '۴': '4',
	'۵': '5', '۶': '6', '۷': '7', '۸': '8', '۹': '9',
	'٠': '0', '١': '1', '٢': '2', '٣': '3', '٤': '4',
	'٥': '5', '٦': '6', '٧': '7', '٨': '8', '٩': '9',
}

// NormalizeNumerals rewrites numerals in text per strategy. It is a pure
// function of text and strategy.
func NormalizeNumerals(text string, strategy config.NumeralStrategy) string {
	switch strategy {
	case config.NumeralPreserve:
		return text
	case config.NumeralForceASCII:
		return mapDigits(text, persianToASCII, nil)
	case config.NumeralForceLocal:
		return mapDigits(text, persianDigits, nil)
	case config.NumeralContextAware:
		fallthrough
	default:
		return contextAwareNormalize(text)
	}
}

// contextAwareNormalize converts numerals in "plain" positions to ASCII
// digits while leaving digits inside a preserved span untouched.
func contextAwareNormalize(text string) string {
	preserved := preservedSpans(text)
	return mapDigits(text, persianToASCII, preserved)
}

type span struct{ start, end int }

func preservedSpans(text string) []span {
	var spans []span
	for _, pattern := range []*regexp.Regexp{spineCodePattern, unitAdjacentPattern, bloodPressurePattern} {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	return spans
}

func inSpan(spans []span, byteOffset int) bool {
	for _, s := range spans {
		if byteOffset >= s.start && byteOffset < s.end {
			return true
		}
	}
	return false
}

// mapDigits rewrites digit runes per table, skipping any rune whose byte
// offset falls inside a preserved span. Decimal separators are untouched
// since they are never digits.
func mapDigits(text string, table map[rune]rune, preserved []span) string {
	var b strings.Builder
	offset := 0
	for _, r := range text {
		size := len(string(r))
		if mapped, ok := table[r]; ok && !inSpan(preserved, offset) {
			b.WriteRune(mapped)
		} else {
			b.WriteRune(r)
		}
		offset += size
	}
	return b.String()
}

// IsDigitRune reports whether r is an ASCII, Arabic-Indic, or Persian digit.
func IsDigitRune(r rune) bool {
	if unicode.IsDigit(r) {
		return true
	}
	_, ok := persianToASCII[r]
	return ok
}
