package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardscore/cardscore/pkg/model"
)

func newValidateCmd() *cobra.Command {
	var modelPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and compile a scorecard model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), modelPath)
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to the scorecard YAML (required)")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func runValidate(w io.Writer, modelPath string) error {
	ev, err := loadEvaluator(modelPath)
	if err != nil {
		return err
	}
	sc := ev.Model()

	fmt.Fprintln(w, ev.Summary())
	for i, ch := range sc.Characteristics {
		fmt.Fprintf(w, "  %d. %s (%d attributes)\n", i+1, ch.Name, len(ch.Attributes))
	}
	if sc.UseReasonCodes {
		fmt.Fprintf(w, "Reason codes: %s\n", sc.ReasonCodeAlgorithm)
	} else {
		fmt.Fprintln(w, "Reason codes: off")
	}
	if !sc.Scorable {
		fmt.Fprintln(os.Stderr, "Warning: model is marked not scorable; every evaluation will fail")
	}
	logModel(sc)
	return nil
}

func logModel(sc *model.Scorecard) {
	logger := newLogger()
	logger.Debug().
		Str("model", sc.Name).
		Str("version", sc.Version).
		Int("characteristics", len(sc.Characteristics)).
		Msg("model compiled")
}
