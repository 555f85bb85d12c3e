package atlas

import (
	"time"

	"github.com/sells-group/petatlas/internal/boundary"
	"github.com/sells-group/petatlas/internal/diag"
	"github.com/sells-group/petatlas/internal/facility"
	"github.com/sells-group/petatlas/internal/join"
	"github.com/sells-group/petatlas/internal/metrics"
)

// Snapshot is the complete output of one load cycle. It is never modified
// after Run returns it; a reload builds a new Snapshot.
type Snapshot struct {
	CycleID      string            `json:"cycle_id"`
	LoadedAt     time.Time         `json:"loaded_at"`
	Duration     time.Duration     `json:"duration"`
	Fingerprints map[string]string `json:"fingerprints"`

	Districts  []boundary.District       `json:"districts"`
	Metrics    []metrics.DistrictMetrics `json:"metrics"`
	Totals     metrics.Summary           `json:"totals"`
	Unmatched  []join.UnmatchedRow       `json:"unmatched"`
	Facilities []facility.Facility       `json:"facilities"`
	Categories facility.Summary          `json:"categories"`

	Catalog     *facility.Catalog `json:"-"`
	Diagnostics *diag.Report      `json:"diagnostics"`

	districtIdx map[string]int
}

func (s *Snapshot) index() {
	s.districtIdx = make(map[string]int, len(s.Districts))
	for i, d := range s.Districts {
		s.districtIdx[d.Name] = i
	}
}

// District returns the district named name.
func (s *Snapshot) District(name string) (boundary.District, bool) {
	i, ok := s.districtIdx[name]
	if !ok {
		return boundary.District{}, false
	}
	return s.Districts[i], true
}

// Metric returns the metrics of the district named name. Metrics share the
// district order.
func (s *Snapshot) Metric(name string) (metrics.DistrictMetrics, bool) {
	i, ok := s.districtIdx[name]
	if !ok || i >= len(s.Metrics) {
		return metrics.DistrictMetrics{}, false
	}
	return s.Metrics[i], true
}

// DistrictNames returns the district names in order.
func (s *Snapshot) DistrictNames() []string {
	return boundary.Names(s.Districts)
}
