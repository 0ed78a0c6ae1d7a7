package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/polisai/sourcemark/pkg/domain"
	"github.com/polisai/sourcemark/pkg/locate"
	"github.com/polisai/sourcemark/pkg/rules"
	"github.com/polisai/sourcemark/pkg/textdiff"
)

// HighlightRequest is the body of the highlight endpoints.
type HighlightRequest struct {
	Document string `json:"document"`
	Excerpt  string `json:"excerpt,omitempty"`
}

// HighlightResponse is returned by /v1/highlight.
type HighlightResponse struct {
	Tier     domain.Tier      `json:"tier"`
	Span     *domain.Span     `json:"span,omitempty"`
	Segments []domain.Segment `json:"segments"`
}

// HighlightLinesResponse is returned by /v1/highlight/lines.
type HighlightLinesResponse struct {
	Tier  domain.Tier        `json:"tier"`
	Span  *domain.Span       `json:"span,omitempty"`
	Lines [][]domain.Segment `json:"lines"`
}

// AnnotateRequest is the body of /v1/rules/annotate.
type AnnotateRequest struct {
	Document string       `json:"document"`
	Rules    []rules.Rule `json:"rules"`
}

// AnnotateResponse is returned by /v1/rules/annotate.
type AnnotateResponse struct {
	Annotations []rules.Annotation `json:"annotations"`
	Stats       rules.Stats        `json:"stats"`
}

// DiffRequest is the body of /v1/diff.
type DiffRequest struct {
	Old        string `json:"old"`
	New        string `json:"new"`
	KrakenOnly bool   `json:"kraken_only"`
}

// DiffResponse is returned by /v1/diff.
type DiffResponse struct {
	Lines   []textdiff.Line  `json:"lines"`
	Summary textdiff.Summary `json:"summary"`
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	var req HighlightRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	if err := s.checkExcerpt("excerpt", req.Excerpt); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	m := s.find(r.Context(), req.Document, req.Excerpt)
	s.writeJSON(w, http.StatusOK, HighlightResponse{
		Tier:     m.Tier,
		Span:     spanOf(m),
		Segments: locate.Segments(req.Document, m),
	})
}

func (s *Server) handleHighlightLines(w http.ResponseWriter, r *http.Request) {
	var req HighlightRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	if err := s.checkExcerpt("excerpt", req.Excerpt); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	m := s.find(r.Context(), req.Document, req.Excerpt)
	s.writeJSON(w, http.StatusOK, HighlightLinesResponse{
		Tier:  m.Tier,
		Span:  spanOf(m),
		Lines: locate.Lines(locate.Segments(req.Document, m)),
	})
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var req AnnotateRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	for _, rule := range req.Rules {
		if err := s.checkExcerpt("source_text of rule "+rule.ID, rule.SourceText); err != nil {
			s.writeError(r.Context(), w, err)
			return
		}
	}

	annotations, err := s.annotator.Annotate(r.Context(), req.Document, req.Rules)
	if err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("annotate rules: %w", err))
		return
	}
	for _, a := range annotations {
		s.metrics.RecordAnnotatedRule(a.Match.Tier)
	}

	stats := rules.Coverage(annotations)
	s.requestLog(r.Context()).Info("Annotated rules",
		"total", stats.Total,
		"located", stats.Located,
	)

	s.writeJSON(w, http.StatusOK, AnnotateResponse{Annotations: annotations, Stats: stats})
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	var lines []textdiff.Line
	if req.KrakenOnly {
		lines = textdiff.CompareRules(req.Old, req.New)
	} else {
		lines = textdiff.Compare(req.Old, req.New)
	}

	s.writeJSON(w, http.StatusOK, DiffResponse{Lines: lines, Summary: textdiff.Summarize(lines)})
}

// checkExcerpt rejects excerpts longer than the configured limit.
func (s *Server) checkExcerpt(field, excerpt string) error {
	if limit := s.maxExcerptBytes.Load(); int64(len(excerpt)) > limit {
		return domain.NewError(domain.ErrInvalidRequest, "",
			fmt.Sprintf("%s is %d bytes, limit is %d", field, len(excerpt), limit))
	}
	return nil
}

// decode enforces POST, the body size limit and strict JSON decoding.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		return domain.NewError(domain.ErrMethodNotAllowed, "", fmt.Sprintf("method %s not allowed", r.Method))
	}

	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes.Load())
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.NewError(domain.ErrBodyTooLarge, "", fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		}
		if errors.Is(err, io.EOF) {
			return domain.NewError(domain.ErrInvalidRequest, "", "request body is empty")
		}
		return domain.NewError(domain.ErrInvalidRequest, "", fmt.Sprintf("malformed JSON: %v", err))
	}
	return nil
}

func spanOf(m locate.Match) *domain.Span {
	if !m.Found() {
		return nil
	}
	span := m.Span
	return &span
}
