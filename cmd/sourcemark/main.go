// Package main is the entry point for the sourcemark binary.
// It serves the excerpt locator over HTTP and offers the same operations on the
// command line.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for sourcemark
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sourcemark",
		Short: "Locate rule excerpts inside policy documents",
		Long: `sourcemark finds where an extracted rule's source text sits in the policy
document it came from, even when the excerpt's whitespace or casing drifted.

Example:
  sourcemark highlight --document policy.txt --excerpt "Claims must be filed within 30 days"
  sourcemark serve --config sourcemark.yaml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, err := cmd.Flags().GetString("env-file")
			if err != nil {
				return fmt.Errorf("failed to get env-file flag: %w", err)
			}
			return loadEnvFile(envFile)
		},
	}

	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file loaded before anything else")

	rootCmd.AddCommand(
		newServeCmd(),
		newHighlightCmd(),
		newDiffCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// loadEnvFile loads variables from path without overriding the environment. A
// missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sourcemark version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sourcemark version %s\n", version)
		},
	}
}
