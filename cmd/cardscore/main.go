// Package main provides the cardscore CLI entry point.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cardscore/cardscore/pkg/model"
	"github.com/cardscore/cardscore/pkg/scoring"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "cardscore",
		Short: "Evaluate scorecard models",
		Long: `cardscore loads scorecard models, scores records against them and
explains each score with ranked reason codes.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newValidateCmd(),
		newScoreCmd(),
		newBatchCmd(),
	)
	return rootCmd
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}

// loadEvaluator reads and compiles a scorecard document.
func loadEvaluator(path string) (scoring.Evaluator, error) {
	sc, err := model.LoadScorecard(path)
	if err != nil {
		return nil, err
	}
	ev, err := scoring.NewEvaluator(sc)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", path, err)
	}
	return ev, nil
}
