package locate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/sourcemark/pkg/domain"
)

func TestFind_Tiers(t *testing.T) {
	tests := []struct {
		name     string
		document string
		excerpt  string
		tier     domain.Tier
		matched  string
	}{
		{
			name:     "exact containment",
			document: "Applicants must be 18 or older. Proof of age is required.",
			excerpt:  "Proof of age is required.",
			tier:     domain.TierExact,
			matched:  "Proof of age is required.",
		},
		{
			name:     "collapsed whitespace",
			document: "A  B\nC",
			excerpt:  "A B C",
			tier:     domain.TierWhitespace,
			matched:  "A  B\nC",
		},
		{
			name:     "whitespace tier ignores case",
			document: "The Premium is due\n  on the FIRST day of each month.",
			excerpt:  "the premium is due on the first day",
			tier:     domain.TierWhitespace,
			matched:  "The Premium is due\n  on the FIRST day",
		},
		{
			name:     "surrounding whitespace in excerpt",
			document: "Section 4.\n\tLate payments incur a fee.",
			excerpt:  "\n  Late payments\nincur a fee.  ",
			tier:     domain.TierWhitespace,
			matched:  "Late payments incur a fee.",
		},
		{
			name:     "regex metacharacters are literal",
			document: "The deductible is the cost (min. 5%) of the claim.",
			excerpt:  "cost (min. 5%)",
			tier:     domain.TierExact,
			matched:  "cost (min. 5%)",
		},
		{
			name:     "regex metacharacters with whitespace drift",
			document: "Total = base * rate\n+ surcharge [if any] ^ $ | ?",
			excerpt:  "base * rate + surcharge [if any] ^ $ | ?",
			tier:     domain.TierWhitespace,
			matched:  "base * rate\n+ surcharge [if any] ^ $ | ?",
		},
		{
			name:     "unicode whitespace",
			document: "Coverage\u00a0ends at\u2028age 65.",
			excerpt:  "Coverage ends at age 65.",
			tier:     domain.TierWhitespace,
			matched:  "Coverage\u00a0ends at\u2028age 65.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Find(tt.document, tt.excerpt)
			require.True(t, m.Found())
			assert.Equal(t, tt.tier, m.Tier)
			assert.Equal(t, tt.matched, tt.document[m.Span.Start:m.Span.End])
		})
	}
}

func TestFind_NoMatch(t *testing.T) {
	tests := []struct {
		name     string
		document string
		excerpt  string
	}{
		{"empty excerpt", "Some policy text.", ""},
		{"whitespace-only excerpt", "Some policy text.", " \n\t "},
		{"empty document", "", "policy"},
		{"both empty", "", ""},
		{"unrelated excerpt", "Claims must be filed within 30 days.", "unrelated nonsense xyz"},
		{"excerpt longer than document", "short", "short text that keeps going"},
		{"partial token sequence", "alpha beta gamma", "beta delta"},
		{"unbalanced metacharacters", "plain text only", "((( [[ *+? \\"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Find(tt.document, tt.excerpt)
			assert.False(t, m.Found())
			assert.Equal(t, NotFound, m)

			segments := Highlight(tt.document, tt.excerpt)
			require.Len(t, segments, 1)
			assert.Equal(t, domain.SegmentPlain, segments[0].Kind)
			assert.Equal(t, tt.document, segments[0].Text)
		})
	}
}

func TestFind_FirstOccurrence(t *testing.T) {
	document := "Refunds are issued within 14 days. Refunds are issued within 14 days."
	m := Find(document, "Refunds are issued within 14 days.")
	require.True(t, m.Found())
	assert.Equal(t, 0, m.Span.Start)

	m = Find("x  y then x\ny", "x y")
	require.True(t, m.Found())
	assert.Equal(t, domain.TierWhitespace, m.Tier)
	assert.Equal(t, domain.Span{Start: 0, End: 4}, m.Span)
}

func TestFindTokenSequence(t *testing.T) {
	document := "one  two\nthree four"
	span, ok := findTokenSequence(document, []string{"two", "three"})
	require.True(t, ok)
	assert.Equal(t, "two\nthree", document[span.Start:span.End])

	_, ok = findTokenSequence(document, []string{"Two", "three"})
	assert.False(t, ok, "token tier is case-sensitive")

	_, ok = findTokenSequence(document, nil)
	assert.False(t, ok)
}

func TestFind_InvalidUTF8FallsBackToTokens(t *testing.T) {
	document := "prefix \xff\xfe  marker suffix"
	m := Find(document, "\xff\xfe marker")
	require.True(t, m.Found())
	assert.Equal(t, domain.TierTokens, m.Tier)
	assert.Equal(t, "\xff\xfe  marker", document[m.Span.Start:m.Span.End])
}

func TestHighlight_Segments(t *testing.T) {
	segments := Highlight("Intro. The rule applies. Outro.", "The rule applies.")
	assert.Equal(t, []domain.Segment{
		{Kind: domain.SegmentPlain, Text: "Intro. "},
		{Kind: domain.SegmentMatched, Text: "The rule applies."},
		{Kind: domain.SegmentPlain, Text: " Outro."},
	}, segments)

	segments = Highlight("whole", "whole")
	assert.Equal(t, []domain.Segment{{Kind: domain.SegmentMatched, Text: "whole"}}, segments)
}

func TestSegments_OutOfRange(t *testing.T) {
	m := Match{Tier: domain.TierExact, Span: domain.Span{Start: 3, End: 50}}
	segments := Segments("short", m)
	require.Len(t, segments, 1)
	assert.Equal(t, domain.SegmentPlain, segments[0].Kind)

	assert.Len(t, Segments("short", Match{}), 1)
}

func TestTokenize_MatchesFields(t *testing.T) {
	for _, s := range []string{"", "   ", "a", " a b  c ", "x\u00a0y\u3000z", "tab\tsep\nnl", "\xffbad utf8\x80"} {
		tokens := Tokenize(s)
		fields := strings.Fields(s)
		require.Len(t, tokens, len(fields), "input %q", s)
		for i, tok := range tokens {
			assert.Equal(t, fields[i], s[tok.Start:tok.End])
		}
	}
}

func TestFind_CaseFoldingChangesByteLength(t *testing.T) {
	// U+212A KELVIN SIGN folds to 'k' but is three bytes long.
	document := "Measured in \u212Aelvin   on the absolute scale."
	m := Find(document, "measured in kelvin on the")
	require.True(t, m.Found())
	assert.Equal(t, domain.TierWhitespace, m.Tier)
	assert.Equal(t, "Measured in \u212Aelvin   on the", document[m.Span.Start:m.Span.End])
}

func TestFindTokenSequence_RepeatedPrefix(t *testing.T) {
	document := "a a a b a a a a b"
	span, ok := findTokenSequence(document, []string{"a", "a", "a", "a", "b"})
	require.True(t, ok)
	assert.Equal(t, domain.Span{Start: 8, End: 17}, span)
}

func TestFind_RepetitiveInputStaysLinear(t *testing.T) {
	document := strings.Repeat("a ", 200000)
	excerpt := strings.Repeat("a ", 20000) + "b"

	start := time.Now()
	m := Find(document, excerpt)
	elapsed := time.Since(start)

	assert.False(t, m.Found())
	assert.Less(t, elapsed, 2*time.Second)
}
