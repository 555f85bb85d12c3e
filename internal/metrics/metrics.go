// Package metrics derives per-district shares and ratios from joined
// records.
package metrics

import (
	"github.com/sells-group/petatlas/internal/join"
	"github.com/sells-group/petatlas/internal/nullable"
	"github.com/sells-group/petatlas/internal/table"
)

// DistrictMetrics holds the joined base fields of one district and the
// values derived from them.
type DistrictMetrics struct {
	Name                string                `json:"name"`
	Population          nullable.Value[int64] `json:"population"`
	PetRegistrations    nullable.Value[int64] `json:"pet_registrations"`
	InfrastructureCount nullable.Value[int64] `json:"infrastructure_count"`

	NormalizedPopulation      nullable.Value[float64] `json:"normalized_population"`
	NormalizedPets            nullable.Value[float64] `json:"normalized_pets"`
	PetsPerCapita             nullable.Value[float64] `json:"pets_per_capita"`
	PetsPerInfrastructureUnit nullable.Value[float64] `json:"pets_per_infrastructure_unit"`
}

// Derive computes metrics for every record, in record order. Any quotient
// with a missing or zero denominator is missing.
func Derive(records []join.Record) []DistrictMetrics {
	out := make([]DistrictMetrics, len(records))
	for i, r := range records {
		out[i] = DistrictMetrics{
			Name:                r.District,
			Population:          r.Int(table.FieldPopulation),
			PetRegistrations:    r.Int(table.FieldPetRegistrations),
			InfrastructureCount: r.Int(table.FieldInfrastructureCount),
		}
	}

	maxPop := maxOf(out, func(m DistrictMetrics) nullable.Value[int64] { return m.Population })
	maxPets := maxOf(out, func(m DistrictMetrics) nullable.Value[int64] { return m.PetRegistrations })

	for i := range out {
		m := &out[i]
		m.NormalizedPopulation = nullable.Ratio(m.Population, maxPop)
		m.NormalizedPets = nullable.Ratio(m.PetRegistrations, maxPets)
		m.PetsPerCapita = nullable.Scale(nullable.Ratio(m.PetRegistrations, m.Population), 100)
		m.PetsPerInfrastructureUnit = nullable.Ratio(m.PetRegistrations, m.InfrastructureCount)
	}
	return out
}

// maxOf returns the largest present value, or missing when none is present.
func maxOf(ms []DistrictMetrics, field func(DistrictMetrics) nullable.Value[int64]) nullable.Value[int64] {
	best := nullable.Missing[int64]()
	for _, m := range ms {
		v, ok := field(m).Get()
		if !ok {
			continue
		}
		if cur, set := best.Get(); !set || v > cur {
			best = nullable.Of(v)
		}
	}
	return best
}

// Index keys metrics by district name.
func Index(ms []DistrictMetrics) map[string]DistrictMetrics {
	out := make(map[string]DistrictMetrics, len(ms))
	for _, m := range ms {
		out[m.Name] = m
	}
	return out
}

// Summary is the city-wide view across all districts.
type Summary struct {
	Districts                 int                     `json:"districts"`
	Population                nullable.Value[int64]   `json:"population"`
	PetRegistrations          nullable.Value[int64]   `json:"pet_registrations"`
	InfrastructureCount       nullable.Value[int64]   `json:"infrastructure_count"`
	PetsPerCapita             nullable.Value[float64] `json:"pets_per_capita"`
	PetsPerInfrastructureUnit nullable.Value[float64] `json:"pets_per_infrastructure_unit"`
}

// Totals sums the present base fields. A total is missing only when no
// district carries that field. Ratios use the totals.
func Totals(ms []DistrictMetrics) Summary {
	s := Summary{
		Districts:           len(ms),
		Population:          sum(ms, func(m DistrictMetrics) nullable.Value[int64] { return m.Population }),
		PetRegistrations:    sum(ms, func(m DistrictMetrics) nullable.Value[int64] { return m.PetRegistrations }),
		InfrastructureCount: sum(ms, func(m DistrictMetrics) nullable.Value[int64] { return m.InfrastructureCount }),
	}
	s.PetsPerCapita = nullable.Scale(nullable.Ratio(s.PetRegistrations, s.Population), 100)
	s.PetsPerInfrastructureUnit = nullable.Ratio(s.PetRegistrations, s.InfrastructureCount)
	return s
}

func sum(ms []DistrictMetrics, field func(DistrictMetrics) nullable.Value[int64]) nullable.Value[int64] {
	total := nullable.Missing[int64]()
	for _, m := range ms {
		if v, ok := field(m).Get(); ok {
			total = nullable.Of(total.Or(0) + v)
		}
	}
	return total
}
