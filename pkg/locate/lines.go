package locate

import (
	"strings"

	"github.com/polisai/sourcemark/pkg/domain"
)

// Lines regroups segments into rows at newline boundaries. Newline characters are
// dropped and empty pieces are omitted, so a matched run spanning several lines
// becomes one matched segment per row. Joining the rows' text with "\n" gives back
// the original document.
func Lines(segments []domain.Segment) [][]domain.Segment {
	rows := [][]domain.Segment{{}}
	for _, seg := range segments {
		for i, part := range strings.Split(seg.Text, "\n") {
			if i > 0 {
				rows = append(rows, []domain.Segment{})
			}
			if part != "" {
				last := len(rows) - 1
				rows[last] = append(rows[last], domain.Segment{Kind: seg.Kind, Text: part})
			}
		}
	}
	return rows
}

// HighlightLines is Highlight followed by Lines.
func HighlightLines(document, excerpt string) [][]domain.Segment {
	return Lines(Highlight(document, excerpt))
}
