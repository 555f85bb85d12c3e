package atlas

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/petatlas/internal/diag"
	"github.com/sells-group/petatlas/internal/fetcher"
	"github.com/sells-group/petatlas/internal/join"
	"github.com/sells-group/petatlas/internal/table"
)

type memReader map[string][]byte

func (m memReader) ReadAll(_ context.Context, location string) ([]byte, error) {
	data, ok := m[location]
	if !ok {
		return nil, errors.New("not found: " + location)
	}
	return data, nil
}

const seoul = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"sggnm":" Gangnam"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
 {"type":"Feature","properties":{"sggnm":"Gangnam "},"geometry":{"type":"Polygon","coordinates":[[[1,0],[2,0],[2,1],[1,1],[1,0]]]}},
 {"type":"Feature","properties":{"sggnm":"Gangnam"},"geometry":{"type":"Polygon","coordinates":[[[2,0],[3,0],[3,1],[2,1],[2,0]]]}},
 {"type":"Feature","properties":{"sggnm":"Jongno"},"geometry":{"type":"Polygon","coordinates":[[[0,2],[1,2],[1,3],[0,3],[0,2]]]}}
]}`

func fixture() memReader {
	return memReader{
		"seoul.geojson":  []byte(seoul),
		"population.csv": []byte("동별,인구수\nJongno ,\"150,000\"\nGangnam,530000\nBusan,3000000\n"),
		"pets.csv":       []byte("자치구,등록수\nGangnam,200\n"),
		"infra.csv":      []byte("시군구 명칭,시설수\nGangnam,50\nJongno,0\n"),
		"facilities.csv": []byte("시설명,카테고리3,시군구 명칭,위도,경도\n행복병원,동물병원,Gangnam,37.5,127.0\n멍카페,카페,Nonexistent,37.6,127.1\n"),
	}
}

func sources() Sources {
	tbl := func(loc string) TableSource { return TableSource{Source: table.Source{Location: loc}} }
	return Sources{
		Boundary:       BoundarySource{Location: "seoul.geojson"},
		Population:     tbl("population.csv"),
		Pets:           tbl("pets.csv"),
		Infrastructure: tbl("infra.csv"),
		Facilities:     tbl("facilities.csv"),
	}
}

func TestRun(t *testing.T) {
	p := New(fixture(), NewCache(16), Options{})
	snap, err := p.Run(context.Background(), sources())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.CycleID)
	assert.Equal(t, []string{"Gangnam", "Jongno"}, snap.DistrictNames())
	require.Len(t, snap.Metrics, 2)

	gangnam, ok := snap.District("Gangnam")
	require.True(t, ok)
	assert.Equal(t, 3, gangnam.Fragments)
	assert.InDelta(t, 3.0, gangnam.Boundary.Area(), 1e-9)

	gm, ok := snap.Metric("Gangnam")
	require.True(t, ok)
	assert.Equal(t, 4.0, gm.PetsPerInfrastructureUnit.Or(0))

	jm, ok := snap.Metric("Jongno")
	require.True(t, ok)
	assert.Equal(t, int64(150000), jm.Population.Or(0))
	assert.False(t, jm.PetRegistrations.Present())
	assert.False(t, jm.PetsPerCapita.Present())
	assert.False(t, jm.PetsPerInfrastructureUnit.Present())

	require.Len(t, snap.Unmatched, 1)
	assert.Equal(t, join.UnmatchedRow{Table: SourcePopulation, Row: 4, RawKey: "Busan", Key: "Busan"}, snap.Unmatched[0])

	assert.Equal(t, 1, snap.Categories.OrphanCount)
	assert.Len(t, snap.Facilities, 2)
	assert.Equal(t, 1, snap.Diagnostics.Counts()[diag.KindOrphan])
	assert.Equal(t, int64(680000), snap.Totals.Population.Or(0))

	for _, name := range []string{SourceBoundary, SourcePopulation, SourcePets, SourceInfrastructure, SourceFacilities} {
		assert.Len(t, snap.Fingerprints[name], 64, name)
	}
}

func TestRun_OneRecordPerDistrictWithoutTables(t *testing.T) {
	p := New(fixture(), nil, Options{})
	snap, err := p.Run(context.Background(), Sources{Boundary: BoundarySource{Location: "seoul.geojson"}})
	require.NoError(t, err)
	require.Len(t, snap.Metrics, 2)
	for _, m := range snap.Metrics {
		assert.False(t, m.Population.Present())
	}
	assert.Empty(t, snap.Facilities)
}

func TestRun_CacheReparsesChangedContent(t *testing.T) {
	r := fixture()
	cache := NewCache(16)
	p := New(r, cache, Options{})

	first, err := p.Run(context.Background(), sources())
	require.NoError(t, err)
	assert.Equal(t, int64(0), cache.Stats().Hits)

	second, err := p.Run(context.Background(), sources())
	require.NoError(t, err)
	assert.Equal(t, int64(5), cache.Stats().Hits)
	assert.Equal(t, first.Fingerprints, second.Fingerprints)
	assert.Equal(t, first.Diagnostics.Counts(), second.Diagnostics.Counts())
	assert.NotEqual(t, first.CycleID, second.CycleID)

	r["pets.csv"] = []byte("자치구,등록수\nGangnam,400\n")
	third, err := p.Run(context.Background(), sources())
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprints[SourcePets], third.Fingerprints[SourcePets])

	gm, _ := third.Metric("Gangnam")
	assert.Equal(t, 8.0, gm.PetsPerInfrastructureUnit.Or(0))

	old, _ := first.Metric("Gangnam")
	assert.Equal(t, 4.0, old.PetsPerInfrastructureUnit.Or(0), "earlier snapshot unchanged")
}

func TestRun_DuplicateKeyIsFatal(t *testing.T) {
	r := fixture()
	r["pets.csv"] = []byte("자치구,등록수\nGangnam,200\n Gangnam,300\n")

	_, err := New(r, nil, Options{}).Run(context.Background(), sources())
	require.Error(t, err)
	var dup *diag.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, SourcePets, dup.Table)

	snap, err := New(r, nil, Options{Duplicates: join.PolicyLast}).Run(context.Background(), sources())
	require.NoError(t, err)
	gm, _ := snap.Metric("Gangnam")
	assert.Equal(t, int64(300), gm.PetRegistrations.Or(0))
	assert.Equal(t, 1, snap.Diagnostics.Counts()[diag.KindDuplicateKey])
}

func TestRun_EmptyBoundaryIsFatal(t *testing.T) {
	r := fixture()
	r["seoul.geojson"] = []byte(`{"type":"FeatureCollection","features":[]}`)

	_, err := New(r, nil, Options{}).Run(context.Background(), sources())
	require.Error(t, err)
	var le *diag.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, SourceBoundary, le.Source)
}

func TestRun_UnreadableTableIsFatal(t *testing.T) {
	src := sources()
	src.Pets.Location = "missing.csv"
	_, err := New(fixture(), nil, Options{}).Run(context.Background(), src)
	require.Error(t, err)
	assert.True(t, diag.IsFatal(err))
}

func TestRun_SchemaMismatchIsFatal(t *testing.T) {
	r := fixture()
	r["infra.csv"] = []byte("name,value\nGangnam,50\n")
	_, err := New(r, nil, Options{}).Run(context.Background(), sources())
	var se *table.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, SourceInfrastructure, se.Table)
}

func TestRun_HeaderOverrides(t *testing.T) {
	r := fixture()
	r["pets.csv"] = []byte("행정구역,반려견 수\nGangnam,200\n")
	src := sources()
	src.Pets.KeyColumn = "행정구역"
	src.Pets.ValueColumn = "반려견 수"

	snap, err := New(r, nil, Options{}).Run(context.Background(), src)
	require.NoError(t, err)
	gm, _ := snap.Metric("Gangnam")
	assert.Equal(t, int64(200), gm.PetRegistrations.Or(0))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(fixture(), nil, Options{}).Run(ctx, sources())
	require.Error(t, err)
}

func TestLoadAndJoin(t *testing.T) {
	p := New(fixture(), nil, Options{})
	j, _, err := p.LoadAndJoin(context.Background(), []string{"Gangnam", "Jongno", "Mapo"}, sources().Tables())
	require.NoError(t, err)
	assert.Len(t, j.Ordered, 3)
	assert.Len(t, j.Metrics, 3)
	assert.False(t, j.Metrics["Mapo"].Population.Present())
	assert.Len(t, j.Unmatched, 1)
}

// writeShapefile writes two adjacent unit squares named "Mapo" and "Mapo "
// to dir/sgg.shp.
func writeShapefile(t *testing.T, dir string) string {
	t.Helper()
	shpPath := filepath.Join(dir, "sgg.shp")
	w, err := shp.Create(shpPath, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("SGGNM", 20)}))
	for i, x := range []float64{0, 1} {
		pts := []shp.Point{{X: x, Y: 0}, {X: x, Y: 1}, {X: x + 1, Y: 1}, {X: x + 1, Y: 0}, {X: x, Y: 0}}
		idx := w.Write(&shp.Polygon{
			Box:       shp.BBoxFromPoints(pts),
			NumParts:  1,
			NumPoints: int32(len(pts)),
			Parts:     []int32{0},
			Points:    pts,
		})
		require.NoError(t, w.WriteAttribute(int(idx), 0, []string{"Mapo", "Mapo "}[i]))
	}
	w.Close()
	// the writer names the attribute file "sggdbf"
	require.NoError(t, os.Rename(filepath.Join(dir, "sggdbf"), filepath.Join(dir, "sgg.dbf")))
	return shpPath
}

func TestLoadDistricts_ZippedShapefile(t *testing.T) {
	dir := t.TempDir()
	shpPath := writeShapefile(t, dir)

	zipPath := filepath.Join(dir, "sgg.zip")
	zf, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		data, err := os.ReadFile(filepath.Join(dir, "sgg"+ext))
		require.NoError(t, err)
		fw, err := zw.Create("sgg/sgg" + ext)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())

	p := New(&fetcher.Opener{}, NewCache(4), Options{TempDir: t.TempDir()})
	for _, loc := range []string{zipPath, shpPath} {
		ds, report, err := p.LoadDistricts(context.Background(), BoundarySource{Location: loc})
		require.NoError(t, err, loc)
		require.Len(t, ds, 1)
		assert.Equal(t, "Mapo", ds[0].Name)
		assert.InDelta(t, 2.0, ds[0].Boundary.Area(), 1e-9)
		assert.Equal(t, 0, report.Len())
	}
}

func TestLoadDistricts_CodePageChangesFingerprint(t *testing.T) {
	dir := t.TempDir()
	shpPath := writeShapefile(t, dir)
	cache := NewCache(4)
	p := New(&fetcher.Opener{}, cache, Options{})
	src := BoundarySource{Location: shpPath}

	_, _, err := p.LoadDistricts(context.Background(), src)
	require.NoError(t, err)
	_, _, err = p.LoadDistricts(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cache.Stats().Hits)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "sgg.cpg"), []byte("UTF-8\n"), 0o644))
	ds, _, err := p.LoadDistricts(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cache.Stats().Hits, "edited code page reparses")
	require.Len(t, ds, 1)
	assert.Equal(t, "Mapo", ds[0].Name)
}

func TestBoundarySource_ResolveFormat(t *testing.T) {
	tests := []struct {
		loc  string
		want BoundaryFormat
	}{
		{"a.geojson", GeoJSON},
		{"https://example.com/a.json", GeoJSON},
		{"a.SHP", Shapefile},
		{"ftp://host/a.zip", ZIP},
	}
	for _, tt := range tests {
		got, err := BoundarySource{Location: tt.loc}.ResolveFormat()
		require.NoError(t, err, tt.loc)
		assert.Equal(t, tt.want, got, tt.loc)
	}
	_, err := BoundarySource{Location: "a.kml"}.ResolveFormat()
	require.Error(t, err)
}
