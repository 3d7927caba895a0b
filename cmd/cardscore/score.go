package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardscore/cardscore/pkg/evalctx"
	"github.com/cardscore/cardscore/pkg/surface"
)

func newScoreCmd() *cobra.Command {
	var (
		modelPath string
		inputPath string
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one record against a scorecard",
		Long:  `Reads one JSON object (from --input or stdin), scores it and renders the result with its reason codes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.InOrStdin(), cmd.OutOrStdout(), scoreOpts{
				modelPath: modelPath,
				inputPath: inputPath,
				outputFmt: outputFmt,
			})
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to the scorecard YAML (required)")
	cmd.Flags().StringVar(&inputPath, "input", "", "Path to a JSON record (default: stdin)")
	cmd.Flags().StringVar(&outputFmt, "output", "text", "Output format: text, json or markdown")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

type scoreOpts struct {
	modelPath string
	inputPath string
	outputFmt string
}

func runScore(stdin io.Reader, stdout io.Writer, opts scoreOpts) error {
	renderer, err := surface.ForFormat(opts.outputFmt)
	if err != nil {
		return err
	}
	ev, err := loadEvaluator(opts.modelPath)
	if err != nil {
		return err
	}

	in := stdin
	if opts.inputPath != "" {
		f, err := os.Open(opts.inputPath)
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}

	record, err := decodeRecord(json.NewDecoder(in))
	if err != nil {
		return err
	}

	res, err := ev.Evaluate(record)
	if err != nil {
		if tr, ok := renderer.(*surface.TerminalRenderer); ok {
			tr.RenderError(os.Stderr, err)
		}
		return err
	}
	return renderer.Render(stdout, res)
}

// decodeRecord reads the next JSON object. Numbers keep their text.
func decodeRecord(dec *json.Decoder) (evalctx.Record, error) {
	dec.UseNumber()
	var record evalctx.Record
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("decoding record: expected a JSON object")
	}
	return record, nil
}
