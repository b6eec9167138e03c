// Package search ranks subjects against free-text queries.
package search

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"strings"

	"proceres/internal/textfold"
	"proceres/pkg/domain"
)

// Field weights applied per query term found in the field. A term matches
// when it occurs anywhere in the folded field text, so "libert" finds
// "Libertador".
const (
	WeightName         = 10.0
	WeightAlias        = 6.0
	WeightQuote        = 3.0
	WeightAchievements = 2.0
	// WholeWordFactor scales the extra credit a term earns when it is a whole
	// word of the field rather than part of one.
	WholeWordFactor = 0.5
	// ExactNameBonus is added when the whole query equals the subject name.
	ExactNameBonus = 5.0
)

// DefaultLimit caps the number of results.
const DefaultLimit = 20

// Source lists the subjects to rank in insertion order.
type Source interface {
	ListSubjects() []domain.Subject
}

// Searcher ranks subjects from a Source.
type Searcher struct {
	src   Source
	limit int
}

// Option customises a Searcher.
type Option func(*Searcher)

// WithLimit caps the number of results. Non-positive values keep the default.
func WithLimit(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.limit = n
		}
	}
}

// New returns a searcher over src.
func New(src Source, opts ...Option) *Searcher {
	s := &Searcher{src: src, limit: DefaultLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type scored struct {
	subject domain.Subject
	score   float64
}

// Rank validates query and returns a sequence of matching subjects with
// their scores, best first. Ranking runs each time the sequence is ranged,
// so it reflects the source at that moment.
func (s *Searcher) Rank(ctx context.Context, query string) (iter.Seq2[domain.Subject, float64], error) {
	terms := textfold.Terms(query)
	if len(terms) == 0 {
		verr := domain.NewValidationError(domain.EntitySubject)
		verr.Add("query", "must contain at least one word")
		return nil, verr
	}
	folded := strings.Join(terms, " ")
	return func(yield func(domain.Subject, float64) bool) {
		if ctx.Err() != nil {
			return
		}
		results := s.rank(terms, folded)
		for _, r := range results {
			if !yield(r.subject, r.score) {
				return
			}
		}
	}, nil
}

// SearchByText is Rank without scores.
func (s *Searcher) SearchByText(ctx context.Context, query string) (iter.Seq[domain.Subject], error) {
	ranked, err := s.Rank(ctx, query)
	if err != nil {
		return nil, err
	}
	return func(yield func(domain.Subject) bool) {
		for sub := range ranked {
			if !yield(sub) {
				return
			}
		}
	}, nil
}

func (s *Searcher) rank(terms []string, folded string) []scored {
	subjects := s.src.ListSubjects()
	// ListSubjects is seq ordered; keep it explicit so the stable sort breaks ties by insertion.
	slices.SortStableFunc(subjects, func(a, b domain.Subject) int { return cmp.Compare(a.Seq, b.Seq) })

	var out []scored
	for _, sub := range subjects {
		if score := Score(sub, terms, folded); score > 0 {
			out = append(out, scored{subject: sub, score: score})
		}
	}
	slices.SortStableFunc(out, func(a, b scored) int { return cmp.Compare(b.score, a.score) })
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	return out
}

// Score computes the weighted match score of sub for the folded query terms.
func Score(sub domain.Subject, terms []string, folded string) float64 {
	score := fieldScore(sub.Name, terms, WeightName)
	score += fieldScore(sub.Alias, terms, WeightAlias)
	score += fieldScore(sub.Quote, terms, WeightQuote)
	for _, a := range sub.Achievements {
		score += fieldScore(a, terms, WeightAchievements)
	}
	if strings.Join(textfold.Terms(sub.Name), " ") == folded {
		score += ExactNameBonus
	}
	return score
}

// fieldScore credits weight for every term contained in text, plus the
// whole-word share for terms that are complete words of text.
func fieldScore(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}
	folded := textfold.Fold(text)
	words := textfold.Terms(text)
	var score float64
	for _, t := range terms {
		if !strings.Contains(folded, t) {
			continue
		}
		score += weight
		if slices.Contains(words, t) {
			score += weight * WholeWordFactor
		}
	}
	return score
}
