package metrics

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/petatlas/internal/nullable"
)

// Metric names a rankable field of DistrictMetrics.
type Metric string

// Rankable metrics.
const (
	MetricPopulation                Metric = "population"
	MetricPetRegistrations          Metric = "pet_registrations"
	MetricInfrastructureCount       Metric = "infrastructure_count"
	MetricNormalizedPopulation      Metric = "normalized_population"
	MetricNormalizedPets            Metric = "normalized_pets"
	MetricPetsPerCapita             Metric = "pets_per_capita"
	MetricPetsPerInfrastructureUnit Metric = "pets_per_infrastructure_unit"
)

var accessors = map[Metric]func(DistrictMetrics) nullable.Value[float64]{
	MetricPopulation:                func(m DistrictMetrics) nullable.Value[float64] { return m.Population.Float() },
	MetricPetRegistrations:          func(m DistrictMetrics) nullable.Value[float64] { return m.PetRegistrations.Float() },
	MetricInfrastructureCount:       func(m DistrictMetrics) nullable.Value[float64] { return m.InfrastructureCount.Float() },
	MetricNormalizedPopulation:      func(m DistrictMetrics) nullable.Value[float64] { return m.NormalizedPopulation },
	MetricNormalizedPets:            func(m DistrictMetrics) nullable.Value[float64] { return m.NormalizedPets },
	MetricPetsPerCapita:             func(m DistrictMetrics) nullable.Value[float64] { return m.PetsPerCapita },
	MetricPetsPerInfrastructureUnit: func(m DistrictMetrics) nullable.Value[float64] { return m.PetsPerInfrastructureUnit },
}

// Metrics lists the rankable metric names in a stable order.
func Metrics() []Metric {
	return []Metric{
		MetricPopulation,
		MetricPetRegistrations,
		MetricInfrastructureCount,
		MetricNormalizedPopulation,
		MetricNormalizedPets,
		MetricPetsPerCapita,
		MetricPetsPerInfrastructureUnit,
	}
}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := accessors[m]; !ok {
		return "", eris.Errorf("metrics: unknown metric %q", s)
	}
	return m, nil
}

// Value returns metric m of dm.
func (dm DistrictMetrics) Value(m Metric) nullable.Value[float64] {
	if f, ok := accessors[m]; ok {
		return f(dm)
	}
	return nullable.Missing[float64]()
}

// Ranked is one district's position in a ranking.
type Ranked struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Ranking holds the highest and lowest districts for a metric.
type Ranking struct {
	Metric   Metric   `json:"metric"`
	Top      []Ranked `json:"top"`
	Bottom   []Ranked `json:"bottom"`
	Excluded []string `json:"excluded,omitempty"`
}

// Rank selects the n highest and n lowest districts by metric. Districts
// where the metric is missing are excluded and listed. Ties break by name
// ascending in both directions.
func Rank(ms []DistrictMetrics, metric Metric, n int) (Ranking, error) {
	get, ok := accessors[metric]
	if !ok {
		return Ranking{}, eris.Errorf("metrics: unknown metric %q", metric)
	}
	if n <= 0 {
		return Ranking{}, eris.Errorf("metrics: rank size must be positive, got %d", n)
	}

	r := Ranking{Metric: metric}
	var present []Ranked
	for _, m := range ms {
		if v, ok := get(m).Get(); ok {
			present = append(present, Ranked{Name: m.Name, Value: v})
		} else {
			r.Excluded = append(r.Excluded, m.Name)
		}
	}
	sort.Strings(r.Excluded)

	desc := append([]Ranked(nil), present...)
	sort.SliceStable(desc, func(i, j int) bool {
		if desc[i].Value != desc[j].Value {
			return desc[i].Value > desc[j].Value
		}
		return desc[i].Name < desc[j].Name
	})
	asc := append([]Ranked(nil), present...)
	sort.SliceStable(asc, func(i, j int) bool {
		if asc[i].Value != asc[j].Value {
			return asc[i].Value < asc[j].Value
		}
		return asc[i].Name < asc[j].Name
	})

	r.Top = desc[:min(n, len(desc))]
	r.Bottom = asc[:min(n, len(asc))]
	return r, nil
}

// Properties returns every metric of dm keyed by name, with missing values
// as nil. Used as GeoJSON feature properties.
func (dm DistrictMetrics) Properties() map[string]interface{} {
	out := make(map[string]interface{}, len(accessors))
	for _, m := range Metrics() {
		if v, ok := dm.Value(m).Get(); ok {
			out[string(m)] = v
		} else {
			out[string(m)] = nil
		}
	}
	return out
}
