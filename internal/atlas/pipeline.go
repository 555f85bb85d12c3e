// Package atlas runs load cycles: it reads every source, dissolves the
// boundaries, joins the tables, derives metrics, and aggregates facilities
// into one immutable Snapshot.
package atlas

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/petatlas/internal/boundary"
	"github.com/sells-group/petatlas/internal/diag"
	"github.com/sells-group/petatlas/internal/facility"
	"github.com/sells-group/petatlas/internal/fetcher"
	"github.com/sells-group/petatlas/internal/join"
	"github.com/sells-group/petatlas/internal/metrics"
	"github.com/sells-group/petatlas/internal/table"
)

// Reader returns the bytes at a source location.
type Reader interface {
	ReadAll(ctx context.Context, location string) ([]byte, error)
}

// Options configures a Pipeline.
type Options struct {
	Duplicates join.Policy
	Catalog    *facility.Catalog
	TempDir    string // extraction directory for zipped shapefiles
}

// Pipeline runs load cycles against a Reader. It keeps no state between
// cycles other than the fingerprint cache.
type Pipeline struct {
	reader Reader
	cache  *Cache
	opts   Options
}

// New creates a Pipeline. cache may be nil to disable caching.
func New(reader Reader, cache *Cache, opts Options) *Pipeline {
	if opts.Duplicates == "" {
		opts.Duplicates = join.PolicyError
	}
	return &Pipeline{reader: reader, cache: cache, opts: opts}
}

// Joined is the result of LoadAndJoin.
type Joined struct {
	Metrics   map[string]metrics.DistrictMetrics
	Ordered   []metrics.DistrictMetrics
	Unmatched []join.UnmatchedRow
}

// cycle carries the state of one Run.
type cycle struct {
	report       *diag.Report
	fingerprints map[string]string
}

func newCycle() *cycle {
	return &cycle{report: diag.NewReport(), fingerprints: make(map[string]string)}
}

// Run executes one complete cycle. It returns either a full Snapshot or an
// error; fatal source problems come back as *diag.LoadError or
// *diag.DuplicateKeyError.
func (p *Pipeline) Run(ctx context.Context, src Sources) (*Snapshot, error) {
	start := time.Now()
	id := uuid.New().String()
	log := zap.L().With(zap.String("component", "atlas"), zap.String("cycle_id", id))
	log.Info("atlas: cycle started")

	c := newCycle()
	districts, err := p.loadDistricts(ctx, src.Boundary, c)
	if err != nil {
		return nil, err
	}
	names := boundary.Names(districts)

	joined, err := p.loadAndJoin(ctx, names, src.Tables(), c)
	if err != nil {
		return nil, err
	}

	catalog := p.opts.Catalog
	if catalog == nil {
		if catalog, err = facility.DefaultCatalog(); err != nil {
			return nil, err
		}
	}

	var facilities []facility.Facility
	if src.Facilities.Configured() {
		tbl, err := p.loadTable(ctx, SourceFacilities, src.Facilities,
			facility.Schema().WithNames(src.Facilities.KeyColumn, nil), c)
		if err != nil {
			return nil, err
		}
		facilities = facility.LoadCatalog(tbl)
	}
	summary := facility.Aggregate(facilities, names, catalog)
	summary.Report(SourceFacilities, c.report)

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "atlas: cycle cancelled")
	}

	snap := &Snapshot{
		CycleID:      id,
		LoadedAt:     start,
		Duration:     time.Since(start),
		Fingerprints: c.fingerprints,
		Districts:    districts,
		Metrics:      joined.Ordered,
		Totals:       metrics.Totals(joined.Ordered),
		Unmatched:    joined.Unmatched,
		Facilities:   facilities,
		Categories:   summary,
		Catalog:      catalog,
		Diagnostics:  c.report,
	}
	snap.index()

	log.Info("atlas: cycle complete",
		zap.Int("districts", len(districts)),
		zap.Int("unmatched", len(joined.Unmatched)),
		zap.Int("facilities", len(facilities)),
		zap.Int("orphans", summary.OrphanCount),
		zap.Int("diagnostics", c.report.Len()),
		zap.Duration("elapsed", snap.Duration),
	)
	return snap, nil
}

// LoadDistricts reads and dissolves the boundary source.
func (p *Pipeline) LoadDistricts(ctx context.Context, src BoundarySource) ([]boundary.District, *diag.Report, error) {
	c := newCycle()
	ds, err := p.loadDistricts(ctx, src, c)
	return ds, c.report, err
}

// LoadAndJoin loads the auxiliary tables (keyed population, pets,
// infrastructure) and joins them onto districts.
func (p *Pipeline) LoadAndJoin(ctx context.Context, districts []string, tables map[string]TableSource) (*Joined, *diag.Report, error) {
	c := newCycle()
	j, err := p.loadAndJoin(ctx, districts, tables, c)
	return j, c.report, err
}

type boundaryEntry struct {
	districts []boundary.District
	report    *diag.Report
}

func (p *Pipeline) loadDistricts(ctx context.Context, src BoundarySource, c *cycle) ([]boundary.District, error) {
	format, err := src.ResolveFormat()
	if err != nil {
		return nil, diag.NewLoadError(SourceBoundary, err)
	}
	opts := boundary.ReadOptions{Source: SourceBoundary, NameField: src.NameField, Charset: src.Charset}

	data, err := p.readBoundary(ctx, src, format)
	if err != nil {
		return nil, diag.NewLoadError(SourceBoundary, err)
	}
	fp := Fingerprint(data, string(format), src.NameField, src.Charset)
	c.fingerprints[SourceBoundary] = fp

	if v, ok := p.cache.Get(SourceBoundary, fp); ok {
		e := v.(*boundaryEntry)
		c.report.Merge(e.report)
		return e.districts, nil
	}

	report := diag.NewReport()
	var raws []boundary.Raw
	switch format {
	case GeoJSON:
		raws, err = boundary.ReadGeoJSON(data, opts, report)
	case Shapefile:
		raws, err = boundary.ReadShapefile(localPath(src.Location), opts, report)
	case ZIP:
		raws, err = p.readZippedShapefile(data, opts, report)
	default:
		err = eris.Errorf("atlas: unsupported boundary format %q", format)
	}
	if err != nil {
		return nil, diag.NewLoadError(SourceBoundary, err)
	}

	districts := boundary.Dissolve(raws, report)
	if len(districts) == 0 {
		return nil, diag.NewLoadError(SourceBoundary, eris.New("atlas: boundary source has no usable features"))
	}

	p.cache.Put(SourceBoundary, fp, &boundaryEntry{districts: districts, report: report})
	c.report.Merge(report)
	return districts, nil
}

// readBoundary returns the bytes that identify the boundary content. A
// shapefile is read together with its .dbf and .cpg so attribute or code page
// edits change the fingerprint.
func (p *Pipeline) readBoundary(ctx context.Context, src BoundarySource, format BoundaryFormat) ([]byte, error) {
	if format != Shapefile {
		return p.reader.ReadAll(ctx, src.Location)
	}
	switch fetcher.Scheme(src.Location) {
	case "", "file":
	default:
		return nil, eris.Errorf("atlas: shapefile %s must be local; zip remote shapefiles", src.Location)
	}
	path := localPath(src.Location)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "atlas: read %s", path)
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range []string{".dbf", ".cpg", ".CPG"} {
		if side, err := os.ReadFile(base + ext); err == nil {
			data = append(data, side...)
		}
	}
	return data, nil
}

func (p *Pipeline) readZippedShapefile(data []byte, opts boundary.ReadOptions, report *diag.Report) ([]boundary.Raw, error) {
	dir, err := os.MkdirTemp(p.opts.TempDir, "petatlas-boundary-*")
	if err != nil {
		return nil, eris.Wrap(err, "atlas: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	files, err := fetcher.ExtractZIPBytes(data, dir)
	if err != nil {
		return nil, err
	}
	shpPath, err := fetcher.FindByExt(files, ".shp")
	if err != nil {
		return nil, err
	}
	return boundary.ReadShapefile(shpPath, opts, report)
}

func localPath(location string) string {
	return strings.TrimPrefix(location, "file://")
}

func (p *Pipeline) loadAndJoin(ctx context.Context, districts []string, tables map[string]TableSource, c *cycle) (*Joined, error) {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool { return joinRank(names[i]) < joinRank(names[j]) })

	loaded := make([]*table.Table, 0, len(names))
	for _, name := range names {
		src := tables[name]
		schema, err := schemaFor(name, src)
		if err != nil {
			return nil, err
		}
		tbl, err := p.loadTable(ctx, name, src, schema, c)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, tbl)
	}

	res, err := join.Join(districts, loaded, join.Options{Duplicates: p.opts.Duplicates})
	if err != nil {
		return nil, err
	}
	c.report.Merge(res.Diagnostics)

	ordered := metrics.Derive(res.Records)
	return &Joined{
		Metrics:   metrics.Index(ordered),
		Ordered:   ordered,
		Unmatched: res.Unmatched,
	}, nil
}

func joinRank(name string) int {
	for i, n := range joinOrder {
		if n == name {
			return i
		}
	}
	return len(joinOrder)
}

type tableEntry struct {
	table  *table.Table
	report *diag.Report
}

func (p *Pipeline) loadTable(ctx context.Context, name string, src TableSource, schema table.Schema, c *cycle) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "atlas: cycle cancelled")
	}
	src.Name = name
	schema.Name = name

	data, err := p.reader.ReadAll(ctx, src.Location)
	if err != nil {
		return nil, diag.NewLoadError(name, err)
	}
	fp := Fingerprint(data, string(src.Format), src.Charset, src.Sheet,
		fmt.Sprint(src.SkipRows), string(src.Delimiter), src.KeyColumn, src.ValueColumn)
	c.fingerprints[name] = fp

	if v, ok := p.cache.Get(name, fp); ok {
		e := v.(*tableEntry)
		c.report.Merge(e.report)
		return e.table, nil
	}

	report := diag.NewReport()
	tbl, err := table.Parse(ctx, data, src.Source, schema, report)
	if err != nil {
		return nil, err
	}
	p.cache.Put(name, fp, &tableEntry{table: tbl, report: report})
	c.report.Merge(report)
	return tbl, nil
}
