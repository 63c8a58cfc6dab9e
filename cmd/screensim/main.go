// Package main provides the screensim binary: it replays document screening
// sessions against a corpus with known relevance and reports how quickly an
// active-learning ranker finds the relevant documents.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/screenlab/screensim/internal/config"
	"github.com/screenlab/screensim/internal/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "screensim",
		Short: "screensim - active-learning screening simulator",
		Long: `screensim simulates the screening phase of a systematic review.

A ranker orders the unjudged documents, a rank-biased sampler proposes a
batch, an oracle judge grades it from ground truth and the loop repeats.
Recall and cost are reported per iteration.

Run 'screensim simulate' to run a session.
Run 'screensim --help' for available commands.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("format", "text", "output format (text, json)")

	rootCmd.AddCommand(
		simulateCmd(),
		strategiesCmd(),
		eventsCmd(),
		qdrantLoadCmd(),
		reportCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("screensim %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}

// loadConfig reads the config file named by --config and applies --verbose.
func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}

func outputJSON(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("format")
	return format == "json"
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
