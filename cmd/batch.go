package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/datacleaner/internal/service"
	"github.com/sells-group/datacleaner/internal/tabular"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Clean several files concurrently",
	Long:  "Cleans each input as an independent run with the same options. One file failing does not stop the others.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		inputs, _ := cmd.Flags().GetStringSlice("inputs")
		optsPath, _ := cmd.Flags().GetString("options")
		useAI, _ := cmd.Flags().GetBool("ai")
		outDir, _ := cmd.Flags().GetString("output-dir")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency > 0 {
			cfg.Batch.MaxConcurrentRuns = concurrency
		}
		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		opts, err := loadOptions(optsPath)
		if err != nil {
			return err
		}
		svc, err := initService(ctx, true)
		if err != nil {
			return err
		}
		defer closeService(svc)

		results, err := processBatch(ctx, inputs, cfg.Batch.MaxConcurrentRuns, func(ctx context.Context, input string) (*service.Result, error) {
			req := service.Request{InputPath: input, Options: opts, UseAI: useAI}
			if outDir != "" {
				req.OutputPath = filepath.Join(outDir, tabular.CleanedName(input))
			}
			return svc.Clean(ctx, req)
		})
		if err != nil {
			return err
		}
		formatBatchResults(cmd.OutOrStdout(), results)
		if n := countFailed(results); n > 0 {
			return eris.Errorf("batch: %d of %d files failed", n, len(results))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringSlice("inputs", nil, "comma-separated CSV or XLSX files")
	batchCmd.Flags().String("options", "", "cleaning options file applied to every input (JSON or YAML)")
	batchCmd.Flags().Bool("ai", false, "ask the AI advisor for suggestions per file")
	batchCmd.Flags().String("output-dir", "", "directory for cleaned snapshots (default next to each input)")
	batchCmd.Flags().Int("concurrency", 0, "max files cleaned at once (default from config)")
	_ = batchCmd.MarkFlagRequired("inputs")
	rootCmd.AddCommand(batchCmd)
}

// cleanFunc cleans one input file.
type cleanFunc func(ctx context.Context, input string) (*service.Result, error)

// batchResult is the outcome for one input.
type batchResult struct {
	Input  string
	Result *service.Result
	Err    error
}

// processBatch cleans inputs concurrently. Results keep input order.
func processBatch(ctx context.Context, inputs []string, concurrency int, fn cleanFunc) ([]batchResult, error) {
	if len(inputs) == 0 {
		zap.L().Info("no inputs given")
		return nil, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("inputs", len(inputs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make([]batchResult, len(inputs))
	var succeeded, failed atomic.Int64

	for i, input := range inputs {
		g.Go(func() error {
			log := zap.L().With(zap.String("input", input))
			res, err := fn(gctx, input)
			results[i] = batchResult{Input: input, Result: res, Err: err}
			if err != nil {
				failed.Add(1)
				log.Error("clean failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			log.Info("clean complete", zap.String("output", res.OutputPath))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results, nil
}

func countFailed(results []batchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

func formatBatchResults(w io.Writer, results []batchResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INPUT\tSTATUS\tROWS\tOUTPUT")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\tfailed\t-\t%s\n", r.Input, r.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\tcomplete\t%d -> %d\t%s\n",
			r.Input, r.Result.Report.OriginalRows, r.Result.Report.FinalRows, r.Result.OutputPath)
	}
	_ = tw.Flush()
}
