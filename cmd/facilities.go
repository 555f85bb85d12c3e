package main

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/petatlas/internal/facility"
	"github.com/sells-group/petatlas/internal/keys"
)

var facilitiesCmd = &cobra.Command{
	Use:   "facilities",
	Short: "List facilities by district and category",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := newOutput(cmd)
		if err != nil {
			return err
		}
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "facilities")
		}

		fs := snap.Facilities
		if raw, _ := cmd.Flags().GetString("district"); raw != "" {
			name, err := keys.Normalize(raw)
			if err != nil {
				return eris.Wrap(err, "facilities")
			}
			fs = facility.FilterByDistrict(fs, name)
		}
		if category, _ := cmd.Flags().GetString("category"); category != "" {
			fs = facility.FilterByCategory(fs, category)
		}
		if fs == nil {
			fs = []facility.Facility{}
		}
		return writeFacilities(out, fs)
	},
}

func writeFacilities(out *output, fs []facility.Facility) error {
	rows := make([][]string, 0, len(fs))
	for _, f := range fs {
		rows = append(rows, []string{
			f.Name,
			out.orDash(f.District),
			f.Category,
			cell(out, f.Latitude),
			cell(out, f.Longitude),
			out.orDash(f.Details.Address),
			strconv.Itoa(f.Row),
		})
	}
	return out.rows(fs, []string{"NAME", "DISTRICT", "CATEGORY", "LAT", "LON", "ADDRESS", "ROW"}, rows)
}

func init() {
	facilitiesCmd.Flags().String("district", "", "only facilities in this district")
	facilitiesCmd.Flags().String("category", "", "only facilities of this category")
	rootCmd.AddCommand(facilitiesCmd)
}
