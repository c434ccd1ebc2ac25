package pipeline

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// artifactPattern strips bracketed transcription artifacts like
	// [music], [applause], [00:00:12].
	artifactPattern = regexp.MustCompile(`\[[^\]\n]{1,60}\]`)

	multiNewlinePattern  = regexp.MustCompile(`\n{2,}`)
	whitespaceRunPattern = regexp.MustCompile(`[ \t\r\f\v]+|\n`)

	ellipsisPattern = regexp.MustCompile(`\.\.\.+|…`)
	dashPattern     = regexp.MustCompile(`[\x{2012}-\x{2015}]`)
)

// arabicToPersianDigits maps Arabic-Indic digits, and the Arabic yeh and
// kaf letters, to their Persian forms.
var arabicToPersianDigits = map[rune]rune{
	'٠': '۰', '١': '۱', '٢': '۲', '٣': '۳', '٤': '۴',
	'٥': '۵', '٦': '۶', '٧': '۷', '٨': '۸', '٩': '۹',
	'ي': 'ی', 'ك': 'ک',
}

// CleanupOptions toggles the locale-specific normalisation sub-step.
type CleanupOptions struct {
	LanguageNormalisationsEnabled bool
}

// Cleanup runs NFC normalisation, whitespace/punctuation collapsing,
// artifact stripping, and optional locale-specific character
// normalisation.
func Cleanup(text string, opts CleanupOptions) string {
	out := norm.NFC.String(text)

	out = artifactPattern.ReplaceAllString(out, "")

	out = ellipsisPattern.ReplaceAllString(out, "…")
	out = dashPattern.ReplaceAllString(out, "–")

	// Preserve deliberate paragraph breaks (2+ newlines -> one newline)
	// before collapsing single-newline/space runs to a single space.
	placeholder := "\x00PARA\x00"
	out = multiNewlinePattern.ReplaceAllString(out, placeholder)
	out = whitespaceRunPattern.ReplaceAllString(out, " ")
	out = strings.ReplaceAll(out, placeholder, "\n")

	if opts.LanguageNormalisationsEnabled {
		out = normalizeLocaleChars(out)
	}

	return strings.TrimSpace(out)
}

func normalizeLocaleChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		if mapped, ok := arabicToPersianDigits[r]; ok {
			b.WriteRune(mapped)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
