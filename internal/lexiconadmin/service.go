// Package lexiconadmin is the lexicon-term CRUD service sitting behind
// the admin-gated /lexicons HTTP surface. Every mutation runs through
// lexicon.Validator before touching storage and invalidates the
// read-side lexicon.Cache entry afterward so workers pick up the change
// on their next Get.
package lexiconadmin

import (
	"context"
	"sort"

	"transcribeapi/internal/apierr"
	"transcribeapi/internal/lexicon"
	"transcribeapi/internal/models"
	"transcribeapi/internal/repository"
)

// TermInput is the request shape for creating or updating a term.
type TermInput struct {
	LexiconID   string
	Term        string
	Replacement string
}

// Service implements the lexicon-term management operations.
type Service struct {
	repo      repository.LexiconRepository
	validator *lexicon.Validator
	cache     *lexicon.Cache
}

// New constructs a Service.
func New(repo repository.LexiconRepository, cache *lexicon.Cache) *Service {
	return &Service{repo: repo, validator: lexicon.NewValidator(repo), cache: cache}
}

// ListLexiconIDs returns the distinct, non-empty lexicon ids that have at
// least one active term, for the GET /lexicons listing. There is no
// separate lexicons table; a lexicon exists implicitly as long as some
// term references it.
func (s *Service) ListLexiconIDs(ctx context.Context) ([]string, error) {
	all, _, err := s.repo.List(ctx, 0, -1)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindStorage, "failed to list lexicon terms", err)
	}

	seen := map[string]bool{}
	var ids []string
	for _, t := range all {
		if !t.Active || seen[t.LexiconID] {
			continue
		}
		seen[t.LexiconID] = true
		ids = append(ids, t.LexiconID)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListTerms returns every active term for one lexicon id.
func (s *Service) ListTerms(ctx context.Context, lexiconID string) ([]models.LexiconTerm, error) {
	terms, err := s.repo.ListActiveByLexicon(ctx, lexiconID)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindStorage, "failed to list lexicon terms", err)
	}
	return terms, nil
}

// CreateTerm validates and inserts a new term, then invalidates the
// lexicon's cached compiled view.
func (s *Service) CreateTerm(ctx context.Context, in TermInput) (*models.LexiconTerm, error) {
	if details := s.validator.ValidateMutation(ctx, in.LexiconID, in.Term, in.Replacement, nil); len(details) > 0 {
		return nil, lexicon.ValidationError(details)
	}

	term := &models.LexiconTerm{
		LexiconID:      in.LexiconID,
		Term:           in.Term,
		NormalizedTerm: lexicon.Normalize(in.Term),
		Replacement:    in.Replacement,
		Active:         true,
	}
	if err := s.repo.Create(ctx, term); err != nil {
		return nil, apierr.Wrap(apierr.KindStorage, "failed to create lexicon term", err)
	}
	s.cache.Invalidate(in.LexiconID)
	return term, nil
}

// UpdateTerm validates and applies an edit to an existing term, excluding
// the term's own row from the uniqueness/cycle checks.
func (s *Service) UpdateTerm(ctx context.Context, id uint, in TermInput) (*models.LexiconTerm, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindNotFound, "lexicon term not found", err)
	}

	if details := s.validator.ValidateMutation(ctx, in.LexiconID, in.Term, in.Replacement, &id); len(details) > 0 {
		return nil, lexicon.ValidationError(details)
	}

	existing.Term = in.Term
	existing.NormalizedTerm = lexicon.Normalize(in.Term)
	existing.Replacement = in.Replacement
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, apierr.Wrap(apierr.KindStorage, "failed to update lexicon term", err)
	}
	s.cache.Invalidate(in.LexiconID)
	return existing, nil
}

// DeleteTerm soft-deletes (deactivates) a term and invalidates its
// lexicon's cache entry. Terms are never hard-deleted: the row survives
// with active=false so past substitutions stay attributable.
func (s *Service) DeleteTerm(ctx context.Context, id uint) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return apierr.Wrap(apierr.KindNotFound, "lexicon term not found", err)
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return apierr.Wrap(apierr.KindStorage, "failed to deactivate lexicon term", err)
	}
	s.cache.Invalidate(existing.LexiconID)
	return nil
}
