package domain

import "strings"

// SegmentKind tags a chunk of rendered document text.
type SegmentKind string

const (
	// SegmentPlain is document text outside the located excerpt.
	SegmentPlain SegmentKind = "plain"
	// SegmentMatched is the document text the excerpt was located at.
	SegmentMatched SegmentKind = "matched"
)

// Segment is a contiguous chunk of a document tagged as matched or plain.
type Segment struct {
	Kind SegmentKind `json:"kind"`
	Text string      `json:"text"`
}

// Span is a half-open byte range [Start, End) into a document.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Tier identifies which matching strategy located an excerpt.
type Tier string

const (
	TierNone       Tier = "none"
	TierExact      Tier = "exact"
	TierWhitespace Tier = "whitespace"
	TierTokens     Tier = "tokens"
)

// Join concatenates segment texts. For any locator output this reproduces the document.
func Join(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.Text)
	}
	return b.String()
}

// MatchedText returns the text of the matched segments, or "" when nothing was marked.
func MatchedText(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Kind == SegmentMatched {
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}
