package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polisai/sourcemark/pkg/textdiff"
)

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compare two versions of a rules file line by line",
		Args:  cobra.ExactArgs(2),
		RunE:  runDiff,
	}

	cmd.Flags().Bool("kraken", false, "Compare only the ```kraken fenced blocks")
	cmd.Flags().StringP("format", "f", "text", "Output format: text, json")

	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	kraken, _ := cmd.Flags().GetBool("kraken")
	format, _ := cmd.Flags().GetString("format")

	before, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	after, err := readInput(cmd.InOrStdin(), args[1])
	if err != nil {
		return err
	}

	var lines []textdiff.Line
	if kraken {
		lines = textdiff.CompareRules(before, after)
	} else {
		lines = textdiff.Compare(before, after)
	}
	summary := textdiff.Summarize(lines)

	out := cmd.OutOrStdout()
	switch format {
	case "text":
		for _, l := range lines {
			prefix := " "
			switch l.Kind {
			case textdiff.LineAdded:
				prefix = "+"
			case textdiff.LineRemoved:
				prefix = "-"
			}
			if _, err := fmt.Fprintf(out, "%4d %s %s\n", l.Number, prefix, l.Text); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(out, "%d added, %d removed, %d unchanged\n", summary.Added, summary.Removed, summary.Unchanged)
		return err
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Lines   []textdiff.Line  `json:"lines"`
			Summary textdiff.Summary `json:"summary"`
		}{lines, summary})
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}
