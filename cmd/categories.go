package main

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/petatlas/internal/atlas"
	"github.com/sells-group/petatlas/internal/facility"
	"github.com/sells-group/petatlas/internal/keys"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Count facilities per category",
	Long:  "Counts facilities per category across the whole catalog, or within one district with --district. Facilities outside every known district count globally and as orphans.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := newOutput(cmd)
		if err != nil {
			return err
		}
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "categories")
		}

		raw, _ := cmd.Flags().GetString("district")
		if raw == "" {
			return writeCategories(out, snap, snap.Categories.Global)
		}
		name, err := keys.Normalize(raw)
		if err != nil {
			return eris.Wrap(err, "categories")
		}
		if _, ok := snap.District(name); !ok {
			return eris.Errorf("categories: unknown district %q", name)
		}
		counts := snap.Categories.ForDistrict(name)
		if counts == nil {
			counts = []facility.CategoryCount{}
		}
		return writeCategories(out, snap, counts)
	},
}

func writeCategories(out *output, snap *atlas.Snapshot, counts []facility.CategoryCount) error {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		cat, _ := snap.Catalog.Lookup(c.Category)
		rows = append(rows, []string{c.Category, out.orDash(cat.Name), out.orDash(cat.Icon), strconv.Itoa(c.Count)})
	}
	if err := out.rows(counts, []string{"CATEGORY", "LAYER", "ICON", "COUNT"}, rows); err != nil {
		return err
	}
	if out.format == formatTable && snap.Categories.OrphanCount > 0 {
		_, err := out.w.Write([]byte("\n" + strconv.Itoa(snap.Categories.OrphanCount) + " facilities outside known districts\n"))
		return err
	}
	return nil
}

func init() {
	categoriesCmd.Flags().String("district", "", "restrict counts to one district")
	rootCmd.AddCommand(categoriesCmd)
}
