package main

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/petatlas/internal/metrics"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank districts by a metric",
	Long:  "Lists the n highest and n lowest districts for one metric. Districts missing the metric are excluded. Ties break by name.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := newOutput(cmd)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("metric")
		metric, err := metrics.ParseMetric(name)
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt("n")

		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "rank")
		}
		ranking, err := metrics.Rank(snap.Metrics, metric, n)
		if err != nil {
			return err
		}
		return writeRanking(out, ranking)
	},
}

func writeRanking(out *output, r metrics.Ranking) error {
	rows := make([][]string, 0, len(r.Top)+len(r.Bottom)+len(r.Excluded))
	add := func(side string, rs []metrics.Ranked) {
		for i, x := range rs {
			rows = append(rows, []string{side, strconv.Itoa(i + 1), x.Name, strconv.FormatFloat(x.Value, 'f', -1, 64)})
		}
	}
	add("top", r.Top)
	add("bottom", r.Bottom)
	for _, name := range r.Excluded {
		rows = append(rows, []string{"excluded", out.orDash(""), name, out.orDash("")})
	}
	return out.rows(r, []string{"SIDE", "RANK", "NAME", strings.ToUpper(string(r.Metric))}, rows)
}

func init() {
	rankCmd.Flags().String("metric", string(metrics.MetricPetsPerInfrastructureUnit), "metric to rank by")
	rankCmd.Flags().Int("n", 5, "number of districts at each end")
	rootCmd.AddCommand(rankCmd)
}
