package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/petatlas/internal/atlas"
	"github.com/sells-group/petatlas/internal/boundary"
	"github.com/sells-group/petatlas/internal/diag"
	"github.com/sells-group/petatlas/internal/facility"
	"github.com/sells-group/petatlas/internal/keys"
	"github.com/sells-group/petatlas/internal/metrics"
)

const defaultRankSize = 5

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// districtSummary is a district without its geometry.
type districtSummary struct {
	Name      string          `json:"name"`
	Centroid  boundary.LatLng `json:"centroid"`
	Fragments int             `json:"fragments"`
	Polygons  int             `json:"polygons"`
	Vertices  int             `json:"vertices"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.current.Load()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"cycle_id":  snap.CycleID,
		"loaded_at": snap.LoadedAt.Format(time.RFC3339),
		"districts": len(snap.Districts),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		s.metrics.reloads.WithLabelValues("throttled").Inc()
		writeError(w, http.StatusTooManyRequests, "reload rate limit exceeded")
		return
	}
	snap, err := s.Reload(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if diag.IsFatal(err) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "reloaded",
		"cycle_id":    snap.CycleID,
		"districts":   len(snap.Districts),
		"diagnostics": snap.Diagnostics.Len(),
		"duration_ms": snap.Duration.Milliseconds(),
	})
}

func (s *Server) handleDistricts(w http.ResponseWriter, _ *http.Request) {
	snap := s.current.Load()
	out := make([]districtSummary, 0, len(snap.Districts))
	for _, d := range snap.Districts {
		out = append(out, districtSummary{
			Name:      d.Name,
			Centroid:  d.Centroid,
			Fragments: d.Fragments,
			Polygons:  len(d.Boundary),
			Vertices:  d.Boundary.NumVertices(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDistrictsGeoJSON(w http.ResponseWriter, _ *http.Request) {
	snap := s.current.Load()
	data, err := boundary.EncodeGeoJSON(snap.Districts, metricProperties(snap))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		zap.L().Warn("server: write geojson", zap.Error(err))
	}
}

// metricProperties attaches each district's metrics to its feature.
func metricProperties(snap *atlas.Snapshot) func(boundary.District) map[string]interface{} {
	return func(d boundary.District) map[string]interface{} {
		m, ok := snap.Metric(d.Name)
		if !ok {
			return nil
		}
		return m.Properties()
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	snap := s.current.Load()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cycle_id":  snap.CycleID,
		"districts": snap.Metrics,
		"totals":    snap.Totals,
		"unmatched": snap.Unmatched,
	})
}

func (s *Server) handleDistrictMetrics(w http.ResponseWriter, r *http.Request) {
	snap := s.current.Load()
	name, ok := districtParam(w, chi.URLParam(r, "district"))
	if !ok {
		return
	}
	m, ok := snap.Metric(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown district "+strconv.Quote(name))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	snap := s.current.Load()
	q := r.URL.Query()

	metric, err := metrics.ParseMetric(q.Get("metric"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n := defaultRankSize
	if raw := q.Get("n"); raw != "" {
		if n, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "n must be an integer")
			return
		}
	}
	ranking, err := metrics.Rank(snap.Metrics, metric, n)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	snap := s.current.Load()
	raw := r.URL.Query().Get("district")
	if raw == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"catalog": snap.Catalog,
			"summary": snap.Categories,
		})
		return
	}
	name, ok := districtParam(w, raw)
	if !ok {
		return
	}
	if _, known := snap.District(name); !known {
		writeError(w, http.StatusNotFound, "unknown district "+strconv.Quote(name))
		return
	}
	counts := snap.Categories.ForDistrict(name)
	if counts == nil {
		counts = []facility.CategoryCount{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"district":   name,
		"categories": counts,
	})
}

func (s *Server) handleFacilities(w http.ResponseWriter, r *http.Request) {
	snap := s.current.Load()
	q := r.URL.Query()

	fs := snap.Facilities
	if raw := q.Get("district"); raw != "" {
		name, ok := districtParam(w, raw)
		if !ok {
			return
		}
		fs = facility.FilterByDistrict(fs, name)
	}
	if c := q.Get("category"); c != "" {
		fs = facility.FilterByCategory(fs, c)
	}
	if q.Get("group") == "category" {
		writeJSON(w, http.StatusOK, facility.GroupByCategory(fs, snap.Catalog))
		return
	}
	if fs == nil {
		fs = []facility.Facility{}
	}
	writeJSON(w, http.StatusOK, fs)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	snap := s.current.Load()
	entries := snap.Diagnostics.Entries
	if kind := r.URL.Query().Get("kind"); kind != "" {
		entries = snap.Diagnostics.Filter(diag.Kind(kind))
	}
	if entries == nil {
		entries = []diag.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cycle_id": snap.CycleID,
		"counts":   snap.Diagnostics.Counts(),
		"entries":  entries,
	})
}

// districtParam normalizes a district name taken from the request. It
// writes a 400 and returns false when the name is empty.
func districtParam(w http.ResponseWriter, raw string) (string, bool) {
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	name, err := keys.Normalize(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "district name is empty")
		return "", false
	}
	return name, true
}
