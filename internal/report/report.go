// Package report renders a RunReport for humans and machines. Rendering is
// outside the engine's contract; the engine only produces structured data.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/clementcyberknight/db-stress-test/internal/engine"
)

// Render writes a human-readable summary of the run.
func Render(w io.Writer, rep *engine.RunReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 96))
	fmt.Fprintln(w, "                                   LOAD TEST REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 96))
	fmt.Fprintf(w, "Run duration: %v\n\n", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))

	fmt.Fprintf(w, "%-12s %-12s %-10s %-10s %-10s %-10s %-10s %-9s %s\n",
		"CONCURRENCY", "THROUGHPUT", "AVG", "P50", "P95", "P99", "ERRORS", "RATE", "VERDICT")
	fmt.Fprintln(w, strings.Repeat("-", 96))

	for _, stage := range rep.Stages {
		verdict := "ok"
		if stage.CriticalFailure {
			verdict = "CRITICAL"
		}
		fmt.Fprintf(w, "%-12d %-12.1f %-10v %-10v %-10v %-10v %-10d %-9s %s\n",
			stage.Concurrency,
			stage.Throughput,
			stage.AvgLatency.Round(time.Microsecond),
			stage.Latency.Median.Round(time.Microsecond),
			stage.Latency.P95.Round(time.Microsecond),
			stage.Latency.P99.Round(time.Microsecond),
			stage.Errors,
			fmt.Sprintf("%.2f%%", stage.ErrorRate*100),
			verdict,
		)
	}

	fmt.Fprintln(w, strings.Repeat("-", 96))

	switch rep.Terminal {
	case engine.StoppedOnFailure:
		fmt.Fprintf(w, "Result: critical failure at concurrency %d", rep.FailedConcurrency)
		if rep.StableConcurrency > 0 {
			fmt.Fprintf(w, "; estimated stable limit: %d concurrent connections\n", rep.StableConcurrency)
		} else {
			fmt.Fprintln(w, "; no stable concurrency level observed")
		}
	case engine.StoppedAtCeiling:
		fmt.Fprintf(w, "Result: ceiling reached without critical failure; stable through concurrency %d\n",
			rep.StableConcurrency)
	}
	fmt.Fprintln(w, strings.Repeat("=", 96))
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, rep *engine.RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
