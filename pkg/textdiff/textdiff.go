// Package textdiff compares two versions of a generated rules file line by line.
//
// The comparison is positional: line i of the old text is compared with line i of the
// new text. It does not search for moved or inserted blocks, which keeps the output
// stable and easy to review next to line numbers.
package textdiff

import (
	"regexp"
	"strings"
)

// LineKind classifies a diff line.
type LineKind string

const (
	LineUnchanged LineKind = "unchanged"
	LineAdded     LineKind = "added"
	LineRemoved   LineKind = "removed"
)

// Line is one row of diff output. Number is 1-based and refers to the position in
// both versions.
type Line struct {
	Kind   LineKind `json:"type"`
	Text   string   `json:"line"`
	Number int      `json:"line_number"`
}

// Summary counts diff lines by kind.
type Summary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

var krakenBlock = regexp.MustCompile("(?s)```kraken\n(.*?)```")

// ExtractKraken returns the bodies of all ```kraken fenced blocks in content joined by
// a blank line. Content without any such block is returned as is.
func ExtractKraken(content string) string {
	matches := krakenBlock.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return content
	}
	bodies := make([]string, len(matches))
	for i, m := range matches {
		bodies[i] = m[1]
	}
	return strings.Join(bodies, "\n\n")
}

// Compare diffs before and after position by position. An empty line counts as absent, so
// a line that became empty is reported as removed and a line that was empty is
// reported as added.
func Compare(before, after string) []Line {
	oldLines := strings.Split(before, "\n")
	newLines := strings.Split(after, "\n")
	n := max(len(oldLines), len(newLines))

	lines := make([]Line, 0, n)
	for i := 0; i < n; i++ {
		o := lineAt(oldLines, i)
		nw := lineAt(newLines, i)

		switch {
		case o == nw:
			lines = append(lines, Line{Kind: LineUnchanged, Text: o, Number: i + 1})
		case nw == "":
			lines = append(lines, Line{Kind: LineRemoved, Text: o, Number: i + 1})
		case o == "":
			lines = append(lines, Line{Kind: LineAdded, Text: nw, Number: i + 1})
		default:
			lines = append(lines,
				Line{Kind: LineRemoved, Text: o, Number: i + 1},
				Line{Kind: LineAdded, Text: nw, Number: i + 1},
			)
		}
	}
	return lines
}

// CompareRules diffs only the rule blocks of two rules-file versions.
func CompareRules(before, after string) []Line {
	return Compare(ExtractKraken(before), ExtractKraken(after))
}

// Summarize counts lines by kind.
func Summarize(lines []Line) Summary {
	var s Summary
	for _, l := range lines {
		switch l.Kind {
		case LineAdded:
			s.Added++
		case LineRemoved:
			s.Removed++
		case LineUnchanged:
			s.Unchanged++
		}
	}
	return s
}

func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}
