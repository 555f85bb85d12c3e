package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/petatlas/internal/atlas"
	"github.com/sells-group/petatlas/internal/diag"
	"github.com/sells-group/petatlas/internal/metrics"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Run one load cycle and report diagnostics",
	Long:  "Reads every configured source, dissolves boundaries, joins the tables, and prints a cycle summary followed by every diagnostic.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := newOutput(cmd)
		if err != nil {
			return err
		}
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "load")
		}
		if err := writeLoadReport(out, snap); err != nil {
			return err
		}

		strict, _ := cmd.Flags().GetBool("strict")
		if strict && snap.Diagnostics.Len() > 0 {
			return eris.Errorf("load: %d diagnostics reported", snap.Diagnostics.Len())
		}
		return nil
	},
}

type loadReport struct {
	CycleID      string            `json:"cycle_id"`
	DurationMS   int64             `json:"duration_ms"`
	Districts    int               `json:"districts"`
	Facilities   int               `json:"facilities"`
	Orphans      int               `json:"orphans"`
	Unmatched    int               `json:"unmatched"`
	Counts       map[diag.Kind]int `json:"counts"`
	Diagnostics  []diag.Entry      `json:"diagnostics"`
	Totals       metrics.Summary   `json:"totals"`
	Fingerprints map[string]string `json:"fingerprints"`
}

func writeLoadReport(out *output, snap *atlas.Snapshot) error {
	entries := snap.Diagnostics.Entries
	if entries == nil {
		entries = []diag.Entry{}
	}
	if out.format == formatJSON {
		return out.json(loadReport{
			CycleID:      snap.CycleID,
			DurationMS:   snap.Duration.Milliseconds(),
			Districts:    len(snap.Districts),
			Facilities:   len(snap.Facilities),
			Orphans:      snap.Categories.OrphanCount,
			Unmatched:    len(snap.Unmatched),
			Counts:       snap.Diagnostics.Counts(),
			Diagnostics:  entries,
			Totals:       snap.Totals,
			Fingerprints: snap.Fingerprints,
		})
	}

	if out.format == formatTable {
		_, _ = fmt.Fprintf(out.w, "Cycle %s (%s)\n", snap.CycleID, snap.Duration.Round(time.Millisecond))
		_, _ = fmt.Fprintf(out.w, "Districts: %d  Facilities: %d  Orphans: %d  Unmatched rows: %d\n",
			len(snap.Districts), len(snap.Facilities), snap.Categories.OrphanCount, len(snap.Unmatched))
		for _, kind := range snap.Diagnostics.Kinds() {
			_, _ = fmt.Fprintf(out.w, "  %-14s %d\n", kind, snap.Diagnostics.Counts()[kind])
		}
		if len(entries) == 0 {
			_, _ = fmt.Fprintln(out.w, "No diagnostics.")
			return nil
		}
		_, _ = fmt.Fprintln(out.w)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := ""
		if e.Row > 0 {
			row = strconv.Itoa(e.Row)
		}
		rows = append(rows, []string{string(e.Kind), e.Source, out.orDash(row), out.orDash(e.Key), e.Detail})
	}
	return out.rows(entries, []string{"KIND", "SOURCE", "ROW", "KEY", "DETAIL"}, rows)
}

func init() {
	loadCmd.Flags().Bool("strict", false, "exit non-zero when any diagnostic is reported")
	rootCmd.AddCommand(loadCmd)
}
