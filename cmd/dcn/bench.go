package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/dcn/internal/bench"
	"github.com/born-ml/dcn/internal/config"
	"github.com/born-ml/dcn/internal/dcn"
	"github.com/born-ml/dcn/internal/tensor"
)

func newBenchCmd() *cobra.Command {
	var (
		runs    int
		format  string
		phase   string
		problem string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time forward and backward passes on a random or stored problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}
			if phase != "all" && phase != "forward" && phase != "backward" {
				return fmt.Errorf("--phase must be 'all', 'forward' or 'backward'")
			}

			results, batch, err := runBench(cmd.Context(), cfg, runs, phase, problem)
			if err != nil {
				return err
			}
			summaries := bench.Summarize(results, batch)

			if format == "json" {
				return bench.FormatJSON(summaries, cmd.OutOrStdout())
			}
			bench.FormatTable(summaries, cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 5, "Number of timed runs per phase")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().StringVar(&phase, "phase", "all", "Phases to time: all|forward|backward")
	cmd.Flags().StringVar(&problem, "problem", "", "Problem file written by export (default: random problem)")

	return cmd
}

// runBench times the requested phases and returns the runs together with the
// batch size of the problem.
func runBench(ctx context.Context, cfg config.Config, runs int, phase, path string) ([]bench.RunResult, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opCfg, err := cfg.Operator()
	if err != nil {
		return nil, 0, err
	}

	var problem *dcn.Problem
	if path != "" {
		problem, err = loadProblem(path)
		opCfg = matchProblem(opCfg, problem)
	} else {
		problem, err = newProblem(cfg, opCfg, cfg.Problem.DType)
	}
	if err != nil {
		return nil, 0, err
	}
	in := problem.Input.Shape()

	slog.Info("bench problem",
		"input", in.String(), "weight", problem.Weight.Shape().String(),
		"modulated", problem.Mask != nil, "dtype", problem.Input.DType().String(),
		"workers", opCfg.Parallel.NumWorkers, "runs", runs)

	var results []bench.RunResult
	if phase == "all" || phase == "forward" {
		fwd, err := bench.Measure(ctx, "forward", runs, func() error {
			_, err := problem.Run(opCfg)
			return err
		})
		if err != nil {
			return nil, 0, err
		}
		results = append(results, fwd...)
	}

	if phase == "all" || phase == "backward" {
		out, err := problem.Run(opCfg)
		if err != nil {
			return nil, 0, err
		}
		gradOutput, err := tensor.NewRaw(out.Shape(), out.DType())
		if err != nil {
			return nil, 0, err
		}
		fillOnes(gradOutput)

		bwd, err := bench.Measure(ctx, "backward", runs, func() error {
			_, err := problem.Gradients(opCfg, gradOutput)
			return err
		})
		if err != nil {
			return nil, 0, err
		}
		results = append(results, bwd...)
	}
	batch := 1
	if len(in) == 4 {
		batch = in[0]
	}
	return results, batch, nil
}

func fillOnes(t *tensor.RawTensor) {
	switch t.DType() {
	case tensor.Float32:
		data := t.AsFloat32()
		for i := range data {
			data[i] = 1
		}
	case tensor.Float64:
		data := t.AsFloat64()
		for i := range data {
			data[i] = 1
		}
	}
}
