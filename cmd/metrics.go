package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/petatlas/internal/keys"
	"github.com/sells-group/petatlas/internal/metrics"
	"github.com/sells-group/petatlas/internal/nullable"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show derived metrics per district",
	Long:  "Prints base counts, normalized values, and ratios for every district followed by a TOTAL row. Missing values print as '-'.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := newOutput(cmd)
		if err != nil {
			return err
		}
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "metrics")
		}

		ms := snap.Metrics
		if raw, _ := cmd.Flags().GetString("district"); raw != "" {
			name, err := keys.Normalize(raw)
			if err != nil {
				return eris.Wrap(err, "metrics")
			}
			m, ok := snap.Metric(name)
			if !ok {
				return eris.Errorf("metrics: unknown district %q", name)
			}
			ms = []metrics.DistrictMetrics{m}
		}
		return writeMetrics(out, ms, snap.Totals)
	},
}

func writeMetrics(out *output, ms []metrics.DistrictMetrics, totals metrics.Summary) error {
	if out.format == formatJSON {
		return out.json(map[string]interface{}{
			"districts": ms,
			"totals":    totals,
		})
	}

	header := []string{"NAME", "POPULATION", "PETS", "INFRA", "NORM_POP", "NORM_PETS", "PETS_PER_CAPITA", "PETS_PER_INFRA"}
	rows := make([][]string, 0, len(ms)+1)
	for _, m := range ms {
		rows = append(rows, []string{
			m.Name,
			cell(out, m.Population),
			cell(out, m.PetRegistrations),
			cell(out, m.InfrastructureCount),
			cell(out, m.NormalizedPopulation),
			cell(out, m.NormalizedPets),
			cell(out, m.PetsPerCapita),
			cell(out, m.PetsPerInfrastructureUnit),
		})
	}
	if len(ms) > 1 {
		rows = append(rows, []string{
			"TOTAL",
			cell(out, totals.Population),
			cell(out, totals.PetRegistrations),
			cell(out, totals.InfrastructureCount),
			out.orDash(""),
			out.orDash(""),
			cell(out, totals.PetsPerCapita),
			cell(out, totals.PetsPerInfrastructureUnit),
		})
	}
	return out.rows(ms, header, rows)
}

// cell renders a nullable value; missing is empty in CSV and "-" in tables.
func cell[T nullable.Number](out *output, v nullable.Value[T]) string {
	return out.orDash(v.String())
}

func init() {
	metricsCmd.Flags().String("district", "", "show a single district")
	rootCmd.AddCommand(metricsCmd)
}
