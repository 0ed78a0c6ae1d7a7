package rules

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/polisai/sourcemark/pkg/domain"
	"github.com/polisai/sourcemark/pkg/locate"
)

// Annotation pairs a rule with the location of its source text.
type Annotation struct {
	RuleID string       `json:"rule_id"`
	Match  locate.Match `json:"match"`
	Text   string       `json:"text,omitempty"`
}

// Stats summarises how many rules were located, per tier.
type Stats struct {
	Total   int                 `json:"total"`
	Located int                 `json:"located"`
	ByTier  map[domain.Tier]int `json:"by_tier"`
	Ratio   float64             `json:"ratio"`
}

// FindFunc locates an excerpt in a document.
type FindFunc func(ctx context.Context, document, excerpt string) locate.Match

// Annotator locates rule source texts on a bounded number of goroutines.
type Annotator struct {
	limit atomic.Int64
	find  FindFunc
}

// NewAnnotator creates an Annotator. A non-positive concurrency defaults to GOMAXPROCS.
// A nil find uses locate.Find directly.
func NewAnnotator(concurrency int, find FindFunc) *Annotator {
	if find == nil {
		find = func(_ context.Context, document, excerpt string) locate.Match {
			return locate.Find(document, excerpt)
		}
	}
	a := &Annotator{find: find}
	a.SetConcurrency(concurrency)
	return a
}

// SetConcurrency changes the worker limit for subsequent Annotate calls.
func (a *Annotator) SetConcurrency(n int) {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	a.limit.Store(int64(n))
}

// Concurrency returns the current worker limit.
func (a *Annotator) Concurrency() int {
	return int(a.limit.Load())
}

// Annotate locates every rule's source text in document. The result has one entry per
// rule, in input order.
func (a *Annotator) Annotate(ctx context.Context, document string, rules []Rule) ([]Annotation, error) {
	out := make([]Annotation, len(rules))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Concurrency())

	for i, r := range rules {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m := a.find(gctx, document, r.SourceText)
			ann := Annotation{RuleID: r.ID, Match: m}
			if m.Found() {
				ann.Text = document[m.Span.Start:m.Span.End]
			}
			out[i] = ann
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Coverage computes located counts for a set of annotations.
func Coverage(annotations []Annotation) Stats {
	s := Stats{Total: len(annotations), ByTier: make(map[domain.Tier]int)}
	for _, a := range annotations {
		s.ByTier[a.Match.Tier]++
		if a.Match.Found() {
			s.Located++
		}
	}
	if s.Total > 0 {
		s.Ratio = float64(s.Located) / float64(s.Total)
	}
	return s
}
