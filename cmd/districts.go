package main

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/petatlas/internal/atlas"
	"github.com/sells-group/petatlas/internal/boundary"
)

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "List dissolved districts",
	Long:  "Lists every district after fragments are merged, with its centroid and vertex counts. CSV output carries the boundary as WKT; --geojson writes a FeatureCollection with metrics as properties.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := newOutput(cmd)
		if err != nil {
			return err
		}
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "districts")
		}

		if asGeoJSON, _ := cmd.Flags().GetBool("geojson"); asGeoJSON {
			data, err := boundary.EncodeGeoJSON(snap.Districts, func(d boundary.District) map[string]interface{} {
				if m, ok := snap.Metric(d.Name); ok {
					return m.Properties()
				}
				return nil
			})
			if err != nil {
				return err
			}
			_, err = out.w.Write(append(data, '\n'))
			return err
		}
		return writeDistricts(out, snap)
	},
}

func writeDistricts(out *output, snap *atlas.Snapshot) error {
	header := []string{"NAME", "FRAGMENTS", "POLYGONS", "VERTICES", "LAT", "LON"}
	if out.format == formatCSV {
		header = append(header, "WKT")
	}

	rows := make([][]string, 0, len(snap.Districts))
	for _, d := range snap.Districts {
		row := []string{
			d.Name,
			strconv.Itoa(d.Fragments),
			strconv.Itoa(len(d.Boundary)),
			strconv.Itoa(d.Boundary.NumVertices()),
			strconv.FormatFloat(d.Centroid.Lat, 'f', 6, 64),
			strconv.FormatFloat(d.Centroid.Lon, 'f', 6, 64),
		}
		if out.format == formatCSV {
			wkt, err := d.WKT()
			if err != nil {
				return err
			}
			row = append(row, wkt)
		}
		rows = append(rows, row)
	}
	return out.rows(snap.Districts, header, rows)
}

func init() {
	districtsCmd.Flags().Bool("geojson", false, "write a GeoJSON FeatureCollection instead")
	rootCmd.AddCommand(districtsCmd)
}
