// Package commands implements the vocab CLI.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags.
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "vocab",
	Short: "On-device vocalization understanding",
	Long: `vocab - a continual learner for idiosyncratic vocalizations.

The learner turns short audio samples into embeddings, quantizes them
into a self-organizing phonetic-unit codebook, and maps utterances to
caregiver-provided meanings. Over time it discovers recurring
sub-utterance patterns and uses them to explain novel combinations.

State lives in the user cache directory by default:
  vocab/state        BadgerDB database (codebook, classifier, patterns)
  vocab/recordings   raw audio, one file per training example

Examples:
  # Teach the learner a new vocalization
  vocab learn sample.vpcm "I want water"

  # Ask what a new sample means
  vocab resolve sample.vpcm

  # Inspect the phonetic transcription
  vocab transcribe sample.vpcm

  # Run pattern discovery and inspect the results
  vocab patterns mine
  vocab patterns list`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir)")
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
