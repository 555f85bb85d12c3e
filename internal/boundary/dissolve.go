package boundary

import (
	"sort"

	sf "github.com/peterstace/simplefeatures/geom"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/petatlas/internal/diag"
	"github.com/sells-group/petatlas/internal/keys"
)

type group struct {
	name      string
	source    string
	parts     []polygon
	shapes    []sf.Geometry
	fragments int
}

// Dissolve groups raw fragments by canonical name and unions each group into
// one District. Output is sorted by name. Records with unusable names or
// geometry are reported and skipped, and a name left with no usable polygon
// produces no District. A group whose union fails keeps its fragments as
// separate polygons.
func Dissolve(raws []Raw, report *diag.Report) []District {
	log := zap.L().With(zap.String("component", "boundary"))

	groups := make(map[string]*group)
	for _, raw := range raws {
		name, err := keys.Normalize(raw.Name)
		if err != nil {
			report.Add(raw.Source, raw.Row, err)
			continue
		}
		g, ok := groups[name]
		if !ok {
			g = &group{name: name, source: raw.Source}
			groups[name] = g
		}
		g.fragments++
		for _, p := range raw.Polygons {
			poly := polygonFromGeom(p)
			if poly == nil {
				continue
			}
			shape, err := toSimple(poly)
			if err != nil {
				report.Add(raw.Source, raw.Row, &diag.GeometryError{District: name, Reason: err.Error()})
				continue
			}
			g.parts = append(g.parts, poly)
			g.shapes = append(g.shapes, shape)
		}
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]District, 0, len(names))
	for _, name := range names {
		g := groups[name]
		if len(g.parts) == 0 {
			report.Add(g.source, 0, &diag.GeometryError{District: name, Reason: "no usable polygon"})
			continue
		}

		polys, err := union(g.shapes)
		if err != nil {
			report.Add(g.source, 0, &diag.GeometryError{District: name, Reason: err.Error()})
			polys = g.parts
			sortPolygons(polys)
		}

		out = append(out, District{
			Name:      name,
			Boundary:  toPlain(polys),
			Centroid:  centroid(polys),
			Fragments: g.fragments,
		})
	}

	log.Debug("boundary: dissolved",
		zap.Int("fragments", len(raws)),
		zap.Int("districts", len(out)),
	)
	return out
}

// union computes the geometric union of shapes. Overlapping parts, parts
// sharing an edge, and parts meeting at T-junctions merge into one polygon;
// parts touching at a single point stay separate.
func union(shapes []sf.Geometry) ([]polygon, error) {
	if len(shapes) == 0 {
		return nil, nil
	}
	merged := shapes[0]
	for _, s := range shapes[1:] {
		u, err := sf.Union(merged, s)
		if err != nil {
			return nil, eris.Wrap(err, "boundary: union")
		}
		merged = u
	}
	return fromSimple(merged)
}

// toSimple converts p for the overlay engine, which rejects self-intersecting
// rings and holes outside their shell.
func toSimple(p polygon) (sf.Geometry, error) {
	g, err := polygonToGeom(p)
	if err != nil {
		return sf.Geometry{}, err
	}
	b, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return sf.Geometry{}, eris.Wrap(err, "boundary: encode polygon")
	}
	shape, err := sf.UnmarshalWKB(b)
	if err != nil {
		return sf.Geometry{}, eris.Wrap(err, "boundary: invalid polygon")
	}
	return shape, nil
}

// fromSimple collects the polygonal parts of g. Rings are reoriented, stripped
// of collinear vertices, and rotated to start at their smallest vertex.
func fromSimple(g sf.Geometry) ([]polygon, error) {
	t, err := wkb.Unmarshal(g.AsBinary())
	if err != nil {
		return nil, eris.Wrap(err, "boundary: decode union")
	}
	var out []polygon
	collectPolygons(t, &out)
	for _, poly := range out {
		for i := range poly {
			poly[i] = poly[i].simplify().oriented(i == 0).canonical()
		}
		sort.Slice(poly[1:], func(i, j int) bool { return poly[1+i][0].less(poly[1+j][0]) })
	}
	sortPolygons(out)
	return out, nil
}

func collectPolygons(t geom.T, out *[]polygon) {
	switch g := t.(type) {
	case *geom.Polygon:
		if p := polygonFromGeom(g); p != nil {
			*out = append(*out, p)
		}
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			collectPolygons(g.Polygon(i), out)
		}
	case *geom.GeometryCollection:
		for _, child := range g.Geoms() {
			collectPolygons(child, out)
		}
	}
}

// centroid is the area-weighted centroid of polys, or the vertex mean when
// the area is zero.
func centroid(polys []polygon) LatLng {
	if len(polys) == 0 {
		return LatLng{}
	}
	mp := geom.NewMultiPolygon(geom.XY)
	for _, p := range polys {
		g, err := polygonToGeom(p)
		if err != nil {
			continue
		}
		if err := mp.Push(g); err != nil {
			continue
		}
	}
	if mp.NumPolygons() > 0 && mp.Area() > 0 {
		c := xy.MultiPolygonCentroid(mp)
		return LatLng{Lat: c[1], Lon: c[0]}
	}

	var sx, sy float64
	var n int
	for _, p := range polys {
		for _, r := range p {
			for _, pt := range r {
				sx += pt[0]
				sy += pt[1]
				n++
			}
		}
	}
	if n == 0 {
		return LatLng{}
	}
	return LatLng{Lat: sy / float64(n), Lon: sx / float64(n)}
}
