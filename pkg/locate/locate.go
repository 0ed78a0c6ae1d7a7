package locate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/polisai/sourcemark/pkg/domain"
)

// Match describes where an excerpt was located in a document.
type Match struct {
	Tier domain.Tier `json:"tier"`
	Span domain.Span `json:"span"`
}

// Found reports whether any tier located the excerpt.
func (m Match) Found() bool {
	return m.Tier != "" && m.Tier != domain.TierNone
}

// NotFound is the Match returned when no tier succeeds.
var NotFound = Match{Tier: domain.TierNone}

// Find locates excerpt in document. Ties resolve to the earliest occurrence.
func Find(document, excerpt string) Match {
	if document == "" || strings.TrimSpace(excerpt) == "" {
		return NotFound
	}

	if i := strings.Index(document, excerpt); i >= 0 {
		return Match{Tier: domain.TierExact, Span: domain.Span{Start: i, End: i + len(excerpt)}}
	}

	words := strings.Fields(excerpt)

	if span, ok := findWhitespaceTolerant(document, words); ok {
		return Match{Tier: domain.TierWhitespace, Span: span}
	}

	if span, ok := findTokenSequence(document, words); ok {
		return Match{Tier: domain.TierTokens, Span: span}
	}

	return NotFound
}

// Highlight returns document split into plain and matched segments around the best
// match for excerpt.
func Highlight(document, excerpt string) []domain.Segment {
	return Segments(document, Find(document, excerpt))
}

// Segments splits document around m. An unmatched (or out of range) m yields a single
// plain segment holding the whole document.
func Segments(document string, m Match) []domain.Segment {
	if !m.Found() || m.Span.Start < 0 || m.Span.End > len(document) || m.Span.Start >= m.Span.End {
		return []domain.Segment{{Kind: domain.SegmentPlain, Text: document}}
	}

	segments := make([]domain.Segment, 0, 3)
	if m.Span.Start > 0 {
		segments = append(segments, domain.Segment{Kind: domain.SegmentPlain, Text: document[:m.Span.Start]})
	}
	segments = append(segments, domain.Segment{Kind: domain.SegmentMatched, Text: document[m.Span.Start:m.Span.End]})
	if m.Span.End < len(document) {
		segments = append(segments, domain.Segment{Kind: domain.SegmentPlain, Text: document[m.Span.End:]})
	}
	return segments
}

// folded is a document with every rune replaced by the smallest rune of its case
// folding orbit and every whitespace run collapsed to a single space. offsets maps each
// byte of text back to a byte offset in the source document; offsets[len(text)] is
// the source length.
type folded struct {
	text    string
	offsets []int
}

func foldDocument(document string) folded {
	var b strings.Builder
	b.Grow(len(document))
	offsets := make([]int, 0, len(document)+1)

	inSpace := false
	for i := 0; i < len(document); {
		r, size := utf8.DecodeRuneInString(document[i:])
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				offsets = append(offsets, i)
				inSpace = true
			}
			i += size
			continue
		}
		inSpace = false
		n, _ := b.WriteRune(foldRune(r))
		for range n {
			offsets = append(offsets, i)
		}
		i += size
	}
	offsets = append(offsets, len(document))
	return folded{text: b.String(), offsets: offsets}
}

// foldWords joins words with single spaces after folding every rune.
func foldWords(words []string) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		for _, r := range w {
			b.WriteRune(foldRune(r))
		}
	}
	return b.String()
}

// foldRune returns the smallest rune that compares equal to r under simple case folding.
func foldRune(r rune) rune {
	lowest := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < lowest {
			lowest = f
		}
	}
	return lowest
}

// findWhitespaceTolerant matches words case-insensitively, letting each gap between
// them stand for any non-empty whitespace run in the document. Runs in time linear in
// the document and excerpt lengths.
func findWhitespaceTolerant(document string, words []string) (domain.Span, bool) {
	if len(words) == 0 {
		return domain.Span{}, false
	}
	for _, w := range words {
		if !utf8.ValidString(w) {
			return domain.Span{}, false
		}
	}

	doc := foldDocument(document)
	needle := foldWords(words)
	i := strings.Index(doc.text, needle)
	if i < 0 {
		return domain.Span{}, false
	}
	return domain.Span{Start: doc.offsets[i], End: doc.offsets[i+len(needle)]}, true
}

// findTokenSequence returns the first run of document tokens equal to words. The scan
// uses the Knuth-Morris-Pratt failure table and is linear in the number of tokens.
func findTokenSequence(document string, words []string) (domain.Span, bool) {
	tokens := Tokenize(document)
	if len(words) == 0 || len(words) > len(tokens) {
		return domain.Span{}, false
	}

	fail := make([]int, len(words))
	for i, k := 1, 0; i < len(words); i++ {
		for k > 0 && words[i] != words[k] {
			k = fail[k-1]
		}
		if words[i] == words[k] {
			k++
		}
		fail[i] = k
	}

	k := 0
	for i, t := range tokens {
		tok := document[t.Start:t.End]
		for k > 0 && tok != words[k] {
			k = fail[k-1]
		}
		if tok == words[k] {
			k++
		}
		if k == len(words) {
			return domain.Span{Start: tokens[i-k+1].Start, End: t.End}, true
		}
	}
	return domain.Span{}, false
}

// Tokenize returns the byte spans of the whitespace-delimited tokens of s. It splits
// exactly where strings.Fields does.
func Tokenize(s string) []domain.Span {
	var tokens []domain.Span
	start := -1
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, domain.Span{Start: start, End: i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		tokens = append(tokens, domain.Span{Start: start, End: len(s)})
	}
	return tokens
}
