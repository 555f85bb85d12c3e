package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

// output renders command results in the selected format.
type output struct {
	w      io.Writer
	format string
}

func newOutput(cmd *cobra.Command) (*output, error) {
	format := strings.ToLower(outputFormat)
	switch format {
	case formatTable, formatJSON, formatCSV:
	default:
		return nil, eris.Errorf("unknown format %q (want table, json, or csv)", outputFormat)
	}
	return &output{w: cmd.OutOrStdout(), format: format}, nil
}

// rows writes v as JSON, or header and rows as a table or CSV.
func (o *output) rows(v interface{}, header []string, rows [][]string) error {
	switch o.format {
	case formatJSON:
		return o.json(v)
	case formatCSV:
		cw := csv.NewWriter(o.w)
		if err := cw.Write(header); err != nil {
			return eris.Wrap(err, "write csv header")
		}
		if err := cw.WriteAll(rows); err != nil {
			return eris.Wrap(err, "write csv rows")
		}
		return nil
	default:
		tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
		rule := make([]string, len(header))
		for i, h := range header {
			rule[i] = strings.Repeat("-", len([]rune(h)))
		}
		_, _ = fmt.Fprintln(tw, strings.Join(rule, "\t"))
		for _, r := range rows {
			_, _ = fmt.Fprintln(tw, strings.Join(r, "\t"))
		}
		return tw.Flush()
	}
}

func (o *output) json(v interface{}) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// orDash renders an empty cell as "-" in tables.
func (o *output) orDash(s string) string {
	if s == "" && o.format == formatTable {
		return "-"
	}
	return s
}
