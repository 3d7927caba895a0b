package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cardscore/cardscore/internal/evaluations"
	"github.com/cardscore/cardscore/pkg/evalctx"
	"github.com/cardscore/cardscore/pkg/scoring"
)

func newBatchCmd() *cobra.Command {
	var (
		modelPath   string
		inputPath   string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Score JSON lines against a scorecard",
		Long: `Reads one JSON record per line and writes one JSON result per line in
input order. A record that fails to score yields an error line; the rest
of the batch still runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), batchOpts{
				modelPath:   modelPath,
				inputPath:   inputPath,
				concurrency: concurrency,
			})
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to the scorecard YAML (required)")
	cmd.Flags().StringVar(&inputPath, "input", "", "Path to a JSON lines file (default: stdin)")
	cmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "Records scored in parallel")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

type batchOpts struct {
	modelPath   string
	inputPath   string
	concurrency int
}

func runBatch(ctx context.Context, stdin io.Reader, stdout io.Writer, opts batchOpts) error {
	if ctx == nil {
		ctx = context.Background()
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

	records, err := readRecords(in)
	if err != nil {
		return err
	}

	items := scoreAll(ctx, ev, records, opts.concurrency)
	if err := ctx.Err(); err != nil {
		return err
	}

	out := bufio.NewWriter(stdout)
	enc := json.NewEncoder(out)
	failed := 0
	for _, it := range items {
		if it.Error != "" {
			failed++
		}
		if err := enc.Encode(it); err != nil {
			return fmt.Errorf("writing result %d: %w", it.Index, err)
		}
	}
	if err := out.Flush(); err != nil {
		return err
	}

	logger := newLogger()
	logger.Debug().Int("records", len(items)).Int("failed", failed).Msg("batch scored")
	return nil
}

// readRecords parses JSON lines, skipping blank ones.
func readRecords(r io.Reader) ([]evalctx.Record, error) {
	var records []evalctx.Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 10<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		record, err := decodeRecord(json.NewDecoder(bytes.NewReader(text)))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return records, nil
}

func scoreAll(ctx context.Context, ev scoring.Evaluator, records []evalctx.Record, concurrency int) []evaluations.BatchItem {
	if concurrency <= 0 {
		concurrency = 1
	}
	items := make([]evaluations.BatchItem, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, record := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item := evaluations.BatchItem{Index: i}
			res, err := ev.Evaluate(record)
			if err != nil {
				item.Error = err.Error()
				if kind, ok := scoring.KindOf(err); ok {
					item.ErrorKind = kind.String()
				}
			} else {
				item.Result = res
			}
			items[i] = item
			return nil
		})
	}
	_ = g.Wait()
	return items
}
