package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/born-ml/dcn/internal/config"
	"github.com/born-ml/dcn/internal/dcn"
	"github.com/born-ml/dcn/internal/serialization"
)

// newProblem draws the configured random problem in the given dtype.
func newProblem(cfg config.Config, opCfg dcn.Config, dtype string) (*dcn.Problem, error) {
	rng := rand.New(rand.NewSource(cfg.Problem.Seed)) //nolint:gosec // reproducible problem data
	switch dtype {
	case "float32":
		return dcn.RandomProblem(opCfg, cfg.Size(), float32(cfg.Problem.OffsetRange), rng)
	case "float64":
		return dcn.RandomProblem(opCfg, cfg.Size(), cfg.Problem.OffsetRange, rng)
	default:
		return nil, fmt.Errorf("unsupported dtype %q (want float32|float64)", dtype)
	}
}

// loadProblem reads a problem file written by the export command.
func loadProblem(path string) (*dcn.Problem, error) {
	p, meta, err := serialization.LoadProblem(path)
	if err != nil {
		return nil, fmt.Errorf("load problem %s: %w", path, err)
	}
	slog.Debug("loaded problem", "path", path,
		"input", p.Input.Shape().String(), "modulated", p.Mask != nil, "bias", p.Bias != nil,
		"metadata", meta)
	return p, nil
}

// matchProblem takes the kernel size and bias setting of a loaded problem
// from its tensors. The remaining geometry still comes from the flags.
func matchProblem(cfg dcn.Config, p *dcn.Problem) dcn.Config {
	if p == nil {
		return cfg
	}
	if w := p.Weight.Shape(); len(w) == 4 {
		cfg.KernelH, cfg.KernelW = w[2], w[3]
	}
	cfg.WithBias = p.Bias != nil
	return cfg
}

func problemMetadata(cfg config.Config) map[string]string {
	p := cfg.Problem
	return map[string]string{
		"kernel":       strconv.Itoa(p.Kernel),
		"stride":       strconv.Itoa(p.Stride),
		"pad":          strconv.Itoa(p.Pad),
		"dilation":     strconv.Itoa(p.Dilation),
		"groups":       strconv.Itoa(p.Groups),
		"offset_range": strconv.FormatFloat(p.OffsetRange, 'g', -1, 64),
		"seed":         strconv.FormatInt(p.Seed, 10),
		"version":      version,
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export PATH",
		Short: "Write the configured random problem to a SafeTensors file",
		Long: "Draws the problem described by the configuration and writes its operands\n" +
			"to PATH. The file can be passed to bench and gradcheck with --problem;\n" +
			"the geometry flags (stride, pad, dilation, groups) must match on reuse.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			opCfg, err := cfg.Operator()
			if err != nil {
				return err
			}
			p, err := newProblem(cfg, opCfg, cfg.Problem.DType)
			if err != nil {
				return err
			}
			if err := serialization.SaveProblem(args[0], p, problemMetadata(cfg)); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return err
		},
	}
}
