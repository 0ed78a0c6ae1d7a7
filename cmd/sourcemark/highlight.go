package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/polisai/sourcemark/pkg/domain"
	"github.com/polisai/sourcemark/pkg/locate"
)

// markers delimit the matched run in plain-text output.
type markers struct {
	open, close string
}

var (
	bracketMarkers = markers{open: "[[", close: "]]"}
	ansiMarkers    = markers{open: "\x1b[1;30;43m", close: "\x1b[0m"}
)

// highlightResult is the JSON shape printed by `highlight --format json`.
type highlightResult struct {
	Tier     domain.Tier      `json:"tier"`
	Span     *domain.Span     `json:"span,omitempty"`
	Matched  string           `json:"matched,omitempty"`
	Segments []domain.Segment `json:"segments"`
}

func newHighlightCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "highlight",
		Short: "Mark an excerpt inside a document",
		Long: `Locates the excerpt in the document and prints the document with the match marked.

Exit status is 0 whether or not the excerpt was found; use --format json to inspect
the tier that matched.`,
		Args: cobra.NoArgs,
		RunE: runHighlight,
	}

	cmd.Flags().StringP("document", "d", "", "Document file ('-' reads stdin)")
	cmd.Flags().StringP("excerpt", "e", "", "Excerpt text to locate")
	cmd.Flags().String("excerpt-file", "", "Read the excerpt from a file instead")
	cmd.Flags().StringP("format", "f", "text", "Output format: text, lines, json")
	cmd.Flags().Bool("color", false, "Highlight the match with ANSI colors instead of [[ ]]")
	_ = cmd.MarkFlagRequired("document")
	cmd.MarkFlagsMutuallyExclusive("excerpt", "excerpt-file")

	return cmd
}

func runHighlight(cmd *cobra.Command, _ []string) error {
	docPath, _ := cmd.Flags().GetString("document")
	excerpt, _ := cmd.Flags().GetString("excerpt")
	excerptPath, _ := cmd.Flags().GetString("excerpt-file")
	format, _ := cmd.Flags().GetString("format")
	color, _ := cmd.Flags().GetBool("color")

	if docPath == "-" && excerptPath == "-" {
		return fmt.Errorf("--document and --excerpt-file cannot both read standard input")
	}

	document, err := readInput(cmd.InOrStdin(), docPath)
	if err != nil {
		return err
	}
	if excerptPath != "" {
		if excerpt, err = readInput(cmd.InOrStdin(), excerptPath); err != nil {
			return err
		}
	}

	m := locate.Find(document, excerpt)
	segments := locate.Segments(document, m)

	mk := bracketMarkers
	if color {
		mk = ansiMarkers
	}

	out := cmd.OutOrStdout()
	switch format {
	case "text":
		return writeText(out, segments, mk)
	case "lines":
		return writeLines(out, locate.Lines(segments), mk)
	case "json":
		res := highlightResult{Tier: m.Tier, Segments: segments, Matched: domain.MatchedText(segments)}
		if m.Found() {
			span := m.Span
			res.Span = &span
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		return fmt.Errorf("unknown format %q (want text, lines or json)", format)
	}
}

func writeText(w io.Writer, segments []domain.Segment, mk markers) error {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(render(seg, mk))
	}
	if !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeLines(w io.Writer, rows [][]domain.Segment, mk markers) error {
	width := len(fmt.Sprint(len(rows)))
	for i, row := range rows {
		var b strings.Builder
		for _, seg := range row {
			b.WriteString(render(seg, mk))
		}
		if _, err := fmt.Fprintf(w, "%*d | %s\n", width, i+1, b.String()); err != nil {
			return err
		}
	}
	return nil
}

func render(seg domain.Segment, mk markers) string {
	if seg.Kind == domain.SegmentMatched {
		return mk.open + seg.Text + mk.close
	}
	return seg.Text
}

// readInput reads path, or r when path is "-".
func readInput(r io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(r)
	} else {
		//nolint:gosec // Path is supplied by the operator
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
