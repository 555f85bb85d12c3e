package facility

import (
	"sort"

	"github.com/sells-group/petatlas/internal/diag"
	"github.com/sells-group/petatlas/internal/keys"
)

// CategoryCount is the number of facilities in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// DistrictCategoryCount is the number of facilities of one category in one
// district.
type DistrictCategoryCount struct {
	District string `json:"district"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Key identifies a per-district count.
type Key struct {
	District string
	Category string
}

// Summary is the result of Aggregate.
type Summary struct {
	Total       int                     `json:"total"`
	Global      []CategoryCount         `json:"global"`
	PerDistrict []DistrictCategoryCount `json:"per_district"`
	OrphanCount int                     `json:"orphan_count"`
	Orphans     []diag.OrphanReference  `json:"orphans"`
}

// Aggregate counts facilities per category across the whole catalog and per
// district and category. Facilities whose district is empty or not in
// districts are orphans: they count globally, are excluded from the
// per-district counts, and are listed in Orphans. The result depends only
// on the inputs.
func Aggregate(fs []Facility, districts []string, catalog *Catalog) Summary {
	known := keys.NewSet(districts)
	global := make(map[string]int)
	perDistrict := make(map[Key]int)

	s := Summary{
		Total:   len(fs),
		Global:  []CategoryCount{},
		Orphans: []diag.OrphanReference{},
	}
	for _, f := range fs {
		global[f.Category]++
		if f.District == "" || !known.Has(f.District) {
			s.Orphans = append(s.Orphans, diag.OrphanReference{
				Facility: f.Name,
				District: f.District,
				Category: f.Category,
				Row:      f.Row,
			})
			continue
		}
		perDistrict[Key{District: f.District, Category: f.Category}]++
	}
	s.OrphanCount = len(s.Orphans)

	labels := make([]string, 0, len(global))
	for label := range global {
		labels = append(labels, label)
	}
	catalog.Sort(labels)
	for _, label := range labels {
		s.Global = append(s.Global, CategoryCount{Category: label, Count: global[label]})
	}

	s.PerDistrict = make([]DistrictCategoryCount, 0, len(perDistrict))
	for k, n := range perDistrict {
		s.PerDistrict = append(s.PerDistrict, DistrictCategoryCount{District: k.District, Category: k.Category, Count: n})
	}
	sort.Slice(s.PerDistrict, func(i, j int) bool {
		a, b := s.PerDistrict[i], s.PerDistrict[j]
		if a.District != b.District {
			return a.District < b.District
		}
		return catalog.Less(a.Category, b.Category)
	})
	sort.SliceStable(s.Orphans, func(i, j int) bool { return s.Orphans[i].Row < s.Orphans[j].Row })
	return s
}

// GlobalCounts returns the global counts as a map.
func (s Summary) GlobalCounts() map[string]int {
	out := make(map[string]int, len(s.Global))
	for _, c := range s.Global {
		out[c.Category] = c.Count
	}
	return out
}

// PerDistrictCounts returns the per-district counts as a map.
func (s Summary) PerDistrictCounts() map[Key]int {
	out := make(map[Key]int, len(s.PerDistrict))
	for _, c := range s.PerDistrict {
		out[Key{District: c.District, Category: c.Category}] = c.Count
	}
	return out
}

// ForDistrict returns the category counts of one district in catalog order.
func (s Summary) ForDistrict(district string) []CategoryCount {
	var out []CategoryCount
	for _, c := range s.PerDistrict {
		if c.District == district {
			out = append(out, CategoryCount{Category: c.Category, Count: c.Count})
		}
	}
	return out
}

// Report records every orphan in report under source.
func (s Summary) Report(source string, report *diag.Report) {
	for i := range s.Orphans {
		o := s.Orphans[i]
		report.Add(source, o.Row, &o)
	}
}
