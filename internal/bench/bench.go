// Package bench provides timing primitives for the dcn bench command.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing of a single run of one phase.
type RunResult struct {
	Phase    string
	Index    int
	Cold     bool // true for the first run of the phase
	Duration time.Duration
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// ComputeStats calculates min, max and mean over a slice of durations.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}

	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// Measure runs fn the given number of times and records each duration under
// phase. It stops at the first error or when ctx is cancelled.
func Measure(ctx context.Context, phase string, runs int, fn func() error) ([]RunResult, error) {
	results := make([]RunResult, 0, runs)
	for i := range runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := fn(); err != nil {
			return nil, fmt.Errorf("%s run %d failed: %w", phase, i+1, err)
		}
		results = append(results, RunResult{
			Phase:    phase,
			Index:    i,
			Cold:     i == 0,
			Duration: time.Since(start),
		})
	}
	return results, nil
}

// ---------------------------------------------------------------------------
// Summaries
// ---------------------------------------------------------------------------

// Summary aggregates the runs of one phase.
type Summary struct {
	Phase         string
	Runs          int
	Stats         Stats
	SamplesPerSec float64 // batch samples processed per second at the mean
}

// Summarize groups results by phase, preserving first-seen phase order.
// batch is the number of samples processed by one run.
func Summarize(results []RunResult, batch int) []Summary {
	var order []string
	byPhase := make(map[string][]time.Duration)
	for _, r := range results {
		if _, ok := byPhase[r.Phase]; !ok {
			order = append(order, r.Phase)
		}
		byPhase[r.Phase] = append(byPhase[r.Phase], r.Duration)
	}

	summaries := make([]Summary, 0, len(order))
	for _, phase := range order {
		durations := byPhase[phase]
		stats := ComputeStats(durations)
		var throughput float64
		if stats.Mean > 0 {
			throughput = float64(batch) / stats.Mean.Seconds()
		}
		summaries = append(summaries, Summary{
			Phase:         phase,
			Runs:          len(durations),
			Stats:         stats,
			SamplesPerSec: throughput,
		})
	}
	return summaries
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

func ms(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d.Microseconds())/1000)
}

// FormatTable writes a human-readable table of bench summaries to w.
func FormatTable(summaries []Summary, w io.Writer) {
	data := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		data = append(data, []string{
			s.Phase,
			fmt.Sprint(s.Runs),
			ms(s.Stats.Min),
			ms(s.Stats.Mean),
			ms(s.Stats.Max),
			fmt.Sprintf("%.1f", s.SamplesPerSec),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"PHASE", "RUNS", "MIN MS", "MEAN MS", "MAX MS", "SAMPLES/S"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}

// jsonSummary is the JSON form of one Summary.
type jsonSummary struct {
	Phase         string  `json:"phase"`
	Runs          int     `json:"runs"`
	MinMS         float64 `json:"min_ms"`
	MeanMS        float64 `json:"mean_ms"`
	MaxMS         float64 `json:"max_ms"`
	SamplesPerSec float64 `json:"samples_per_sec"`
}

// FormatJSON writes a JSON report of bench summaries to w.
func FormatJSON(summaries []Summary, w io.Writer) error {
	out := make([]jsonSummary, len(summaries))
	for i, s := range summaries {
		out[i] = jsonSummary{
			Phase:         s.Phase,
			Runs:          s.Runs,
			MinMS:         float64(s.Stats.Min.Microseconds()) / 1000,
			MeanMS:        float64(s.Stats.Mean.Microseconds()) / 1000,
			MaxMS:         float64(s.Stats.Max.Microseconds()) / 1000,
			SamplesPerSec: s.SamplesPerSec,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"phases": out})
}
