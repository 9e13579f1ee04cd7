package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/dcn/internal/dcn"
)

func newGradCheckCmd() *cobra.Command {
	var (
		tolerance float64
		epsilon   float64
		samples   int
		path      string
	)

	cmd := &cobra.Command{
		Use:   "gradcheck",
		Short: "Compare analytic gradients with finite differences",
		Long: "Runs the backward pass on a float64 problem and compares every\n" +
			"gradient with central finite differences of a random projection of the\n" +
			"output. Exits non-zero when an error exceeds the tolerance.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if tolerance <= 0 || epsilon <= 0 {
				return fmt.Errorf("--tolerance and --epsilon must be positive")
			}

			opCfg, err := cfg.Operator()
			if err != nil {
				return err
			}
			var problem *dcn.Problem
			if path != "" {
				// Stored offsets are checked as they are.
				problem, err = loadProblem(path)
				opCfg = matchProblem(opCfg, problem)
			} else {
				problem, err = newProblem(cfg, opCfg, "float64")
				if err == nil {
					problem.AvoidLattice()
				}
			}
			if err != nil {
				return err
			}

			slog.Debug("gradcheck", "modulated", problem.Mask != nil, "epsilon", epsilon, "samples", samples)
			results, err := dcn.CheckGradients(opCfg, problem, dcn.GradCheckOptions{
				Epsilon: epsilon,
				Samples: samples,
				Seed:    cfg.Problem.Seed,
			})
			if err != nil {
				return err
			}

			failed := writeGradCheck(cmd.OutOrStdout(), results, tolerance)
			if len(failed) > 0 {
				return fmt.Errorf("gradient check failed for %v", failed)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-6, "Maximum error relative to max(1, max |gradient|)")
	cmd.Flags().Float64Var(&epsilon, "epsilon", 1e-6, "Finite-difference step")
	cmd.Flags().IntVar(&samples, "samples", 64, "Entries checked per gradient (0 = all)")
	cmd.Flags().StringVar(&path, "problem", "", "Float64 problem file written by export (default: random problem)")

	return cmd
}

// writeGradCheck renders results as a table and returns the names of the
// gradients whose error exceeds tolerance.
func writeGradCheck(w io.Writer, results []dcn.GradCheckResult, tolerance float64) []string {
	var failed []string
	data := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		// Written so that a NaN error fails.
		if !(r.MaxAbsErr <= tolerance*math.Max(1, r.MaxAbs)) {
			status = "FAIL"
			failed = append(failed, r.Name)
		}
		data = append(data, []string{
			r.Name,
			fmt.Sprint(r.Checked),
			fmt.Sprintf("%.3e", r.MaxAbsErr),
			fmt.Sprintf("%.3e", r.MaxAbs),
			status,
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"GRADIENT", "CHECKED", "MAX ABS ERR", "MAX ABS", "STATUS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return failed
}
