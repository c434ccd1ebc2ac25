// Package lexicon implements the lexicon store validator, the compiled
// in-memory term view, and the singleflight-backed cache in front of it.
package lexicon

import (
	"context"
	"fmt"
	"strings"

	"transcribeapi/internal/apierr"
	"transcribeapi/internal/models"
	"transcribeapi/internal/repository"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	maxTermLength        = 200
	maxReplacementLength = 500
)

var caser = cases.Fold()

// Normalize produces the canonical (case-folded, NFC, trimmed) form of a
// lexicon term. Every lookup and uniqueness check compares terms in this
// form.
func Normalize(term string) string {
	trimmed := strings.TrimSpace(term)
	folded := caser.String(trimmed)
	return norm.NFC.String(folded)
}

// Validator enforces the mutation rules on a single lexicon: length and
// emptiness, uniqueness, and acyclicity of the replacement graph.
type Validator struct {
	repo repository.LexiconRepository
}

// NewValidator constructs a Validator against the given lexicon repository.
func NewValidator(repo repository.LexiconRepository) *Validator {
	return &Validator{repo: repo}
}

// ValidateMutation runs every rule against a proposed term/replacement pair
// for lexiconID and returns every violation found; it does not stop at the
// first error.
func (v *Validator) ValidateMutation(ctx context.Context, lexiconID, term, replacement string, excludeID *uint) []apierr.Detail {
	var details []apierr.Detail

	term = strings.TrimSpace(term)
	replacement = strings.TrimSpace(replacement)

	if term == "" {
		details = append(details, apierr.Detail{Field: "term", Issue: "empty"})
	}
	if len(term) > maxTermLength {
		details = append(details, apierr.Detail{Field: "term", Issue: "too_long", Value: term})
	}
	if replacement == "" {
		details = append(details, apierr.Detail{Field: "replacement", Issue: "empty"})
	}
	if len(replacement) > maxReplacementLength {
		details = append(details, apierr.Detail{Field: "replacement", Issue: "too_long", Value: replacement})
	}
	if term == "" || replacement == "" {
		return details
	}

	normalized := Normalize(term)

	existing, err := v.repo.FindByNormalizedTerm(ctx, lexiconID, normalized, excludeID)
	if err != nil {
		details = append(details, apierr.Detail{Field: "term", Issue: "lookup_failed", Value: err.Error()})
		return details
	}
	if existing != nil {
		details = append(details, apierr.Detail{Field: "term", Issue: "duplicate", Value: term})
	}

	if cycle := v.detectCycle(ctx, lexiconID, normalized, replacement, excludeID); cycle != nil {
		details = append(details, apierr.Detail{
			Field: "replacement",
			Issue: "circular_reference",
			Value: strings.Join(cycle, ","),
		})
	}

	return details
}

// detectCycle builds the directed "points to" graph over active terms
// (edge term -> replacement, when replacement is itself a term in the
// same lexicon) plus the proposed new edge, and runs a DFS looking for a
// cycle reachable from the new edge. On success it returns the full
// cycle chain, e.g. ["MRI","magnetic resonance","MRI"].
func (v *Validator) detectCycle(ctx context.Context, lexiconID, normalizedTerm, replacement string, excludeID *uint) []string {
	active, err := v.repo.ListActiveByLexicon(ctx, lexiconID)
	if err != nil {
		return nil
	}

	edges := make(map[string]string, len(active)+1)
	for _, t := range active {
		if excludeID != nil && t.ID == *excludeID {
			continue
		}
		edges[t.NormalizedTerm] = Normalize(t.Replacement)
	}
	edges[normalizedTerm] = Normalize(replacement)

	visited := map[string]bool{}
	var path []string

	var walk func(node string) []string
	walk = func(node string) []string {
		for i, p := range path {
			if p == node {
				cycle := append(append([]string{}, path[i:]...), node)
				return cycle
			}
		}
		if visited[node] {
			return nil
		}
		visited[node] = true
		path = append(path, node)
		defer func() { path = path[:len(path)-1] }()

		next, ok := edges[node]
		if !ok {
			return nil
		}
		return walk(next)
	}

	cycle := walk(normalizedTerm)
	if cycle == nil {
		return nil
	}
	return denormalizeCycle(cycle, active, normalizedTerm, replacement)
}

// denormalizeCycle swaps normalized chain members back to their original
// display casing for the error message, falling back to the normalized
// form when no original is known (the proposed term/replacement itself).
func denormalizeCycle(cycle []string, active []models.LexiconTerm, proposedNormalized, proposedReplacement string) []string {
	display := make(map[string]string, len(active))
	for _, t := range active {
		display[t.NormalizedTerm] = t.Term
		display[Normalize(t.Replacement)] = t.Replacement
	}
	display[proposedNormalized] = proposedNormalized
	if _, ok := display[Normalize(proposedReplacement)]; !ok {
		display[Normalize(proposedReplacement)] = proposedReplacement
	}

	out := make([]string, len(cycle))
	for i, c := range cycle {
		if d, ok := display[c]; ok {
			out[i] = d
		} else {
			out[i] = c
		}
	}
	return out
}

// ValidationError turns a populated detail list into a typed apierr.
func ValidationError(details []apierr.Detail) error {
	if len(details) == 0 {
		return nil
	}
	return apierr.New(apierr.KindValidation, fmt.Sprintf("%d validation error(s)", len(details))).WithDetails(details...)
}
