package lexicon

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// SubstitutionResult carries the output text plus the metrics the
// pipeline attaches to the job.
type SubstitutionResult struct {
	Text            string
	ExactMatches    int
	FuzzyMatches    int
}

// FuzzyOptions configures the optional fuzzy fallback pass.
type FuzzyOptions struct {
	Enabled   bool
	Threshold int // 0-100, default 85
}

// Substitute runs the longest-match-first exact pass followed by the
// optional fuzzy pass over text using compiled. Pairs are assumed
// pre-sorted by descending normalized-term length.
func Substitute(text string, compiled *Compiled, fuzzy FuzzyOptions) SubstitutionResult {
	out := text
	exactCount := 0

	matchedNormalized := make(map[string]bool)

	for _, pair := range compiled.Pairs {
		var n int
		out, n = replaceWholeWord(out, pair.Normalized, pair.Replacement)
		if n > 0 {
			exactCount += n
			matchedNormalized[pair.Normalized] = true
		}
	}

	fuzzyCount := 0
	if fuzzy.Enabled {
		threshold := fuzzy.Threshold
		if threshold <= 0 {
			threshold = 85
		}
		out, fuzzyCount = fuzzyPass(out, compiled, matchedNormalized, threshold)
	}

	return SubstitutionResult{Text: out, ExactMatches: exactCount, FuzzyMatches: fuzzyCount}
}

// replaceWholeWord replaces every case-insensitive, word-boundary-delimited
// occurrence of normalizedTerm in text with replacement, applying case
// preservation per occurrence. It returns the rewritten text and the
// number of occurrences whose text the replacement changed; an occurrence
// already in its replaced form (e.g. inside a longer term's replacement)
// is not counted.
func replaceWholeWord(text, normalizedTerm, replacement string) (string, int) {
	if normalizedTerm == "" {
		return text, 0
	}
	pattern := "(?i)" + regexp.QuoteMeta(normalizedTerm)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return text, 0
	}

	runes := []rune(text)
	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, 0
	}

	var b strings.Builder
	last := 0
	count := 0

	byteToRune := buildByteToRuneIndex(text, runes)

	for _, loc := range locs {
		start, end := loc[0], loc[1]
		rs, re2 := byteToRune[start], byteToRune[end]

		if !isWordBoundary(runes, rs, re2) {
			continue
		}

		b.WriteString(text[last:start])
		matched := string(runes[rs:re2])
		replaced := preserveCase(matched, replacement)
		b.WriteString(replaced)
		last = end
		if replaced != matched {
			count++
		}
	}
	b.WriteString(text[last:])

	if count == 0 {
		return text, 0
	}
	return b.String(), count
}

func buildByteToRuneIndex(text string, runes []rune) map[int]int {
	idx := make(map[int]int, len(runes)+1)
	byteOffset := 0
	for i, r := range runes {
		idx[byteOffset] = i
		byteOffset += len(string(r))
	}
	idx[byteOffset] = len(runes)
	return idx
}

func isWordBoundary(runes []rune, start, end int) bool {
	if start > 0 && isWordRune(runes[start-1]) {
		return false
	}
	if end < len(runes) && isWordRune(runes[end]) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// preserveCase carries the matched span's casing onto the replacement:
// all-uppercase matched span -> uppercase replacement; title-case matched
// span -> title-case replacement; otherwise the replacement is emitted as
// stored.
func preserveCase(matched, replacement string) string {
	letters := []rune{}
	for _, r := range matched {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return replacement
	}

	allUpper := true
	for _, r := range letters {
		if !unicode.IsUpper(r) {
			allUpper = false
			break
		}
	}
	if allUpper {
		return strings.ToUpper(replacement)
	}

	if unicode.IsUpper(letters[0]) {
		rest := true
		for _, r := range letters[1:] {
			if unicode.IsUpper(r) {
				rest = false
				break
			}
		}
		if rest {
			return titleCase(replacement)
		}
	}

	return replacement
}

func titleCase(s string) string {
	runes := []rune(strings.ToLower(s))
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	return string(runes)
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// fuzzyPass tokenizes text into Unicode alphanumeric runs, skips tokens
// already exactly matched, and replaces the remaining tokens whose best
// token-set similarity against an active term clears threshold.
func fuzzyPass(text string, compiled *Compiled, exactlyMatched map[string]bool, threshold int) (string, int) {
	locs := tokenPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text, 0
	}

	var b strings.Builder
	last := 0
	count := 0

	for _, loc := range locs {
		start, end := loc[0], loc[1]
		token := text[start:end]
		normalizedToken := Normalize(token)

		if exactlyMatched[normalizedToken] {
			continue
		}
		if _, exact := compiled.Contains(normalizedToken); exact {
			continue
		}

		best, score, ok := bestFuzzyMatch(normalizedToken, compiled.Pairs)
		if !ok || score < threshold {
			continue
		}

		b.WriteString(text[last:start])
		b.WriteString(preserveCase(token, best.Replacement))
		last = end
		count++
	}
	b.WriteString(text[last:])

	return b.String(), count
}

// bestFuzzyMatch scores token against every active term's normalized form
// using a token-set similarity derived from Levenshtein distance, and
// returns the single best match, breaking ties by longer term first.
func bestFuzzyMatch(token string, pairs []Pair) (Pair, int, bool) {
	var best Pair
	bestScore := -1
	found := false

	for _, p := range pairs {
		score := tokenSetSimilarity(token, p.Normalized)
		if score > bestScore {
			best, bestScore, found = p, score, true
		} else if score == bestScore && found && len([]rune(p.Normalized)) > len([]rune(best.Normalized)) {
			best = p
		}
	}

	return best, bestScore, found
}

// tokenSetSimilarity returns a 0-100 similarity score between a and b
// derived from normalized Levenshtein edit distance.
func tokenSetSimilarity(a, b string) int {
	if a == b {
		return 100
	}
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	score := 100 - (dist*100)/maxLen
	if score < 0 {
		score = 0
	}
	return score
}
