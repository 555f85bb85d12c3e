// Package boundary reads district boundary fragments and dissolves them into
// one multipolygon per district.
package boundary

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// DefaultNameField is the attribute carrying the district name in Seoul
// administrative-dong boundary files.
const DefaultNameField = "sggnm"

// MultiPolygon is a plain coordinate sequence: polygon, ring, [lon, lat].
// Rings are closed. Outer rings run counter-clockwise and holes clockwise.
type MultiPolygon [][][][2]float64

// LatLng is a geographic point.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// District is one administrative area after dissolution.
type District struct {
	Name      string       `json:"name"`
	Boundary  MultiPolygon `json:"boundary"`
	Centroid  LatLng       `json:"centroid"`
	Fragments int          `json:"fragments"`
}

// Raw is one boundary record as read from a source, before grouping.
type Raw struct {
	Name     string
	Polygons []*geom.Polygon
	Source   string
	Row      int
}

// Names returns the district names in order.
func Names(ds []District) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}

// Geom converts the boundary to a go-geom multipolygon.
func (m MultiPolygon) Geom() (*geom.MultiPolygon, error) {
	coords := make([][][]geom.Coord, len(m))
	for i, poly := range m {
		coords[i] = make([][]geom.Coord, len(poly))
		for j, r := range poly {
			cs := make([]geom.Coord, len(r))
			for k, p := range r {
				cs[k] = geom.Coord{p[0], p[1]}
			}
			coords[i][j] = cs
		}
	}
	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: build multipolygon")
	}
	return mp, nil
}

// Area returns the planar area in squared coordinate units.
func (m MultiPolygon) Area() float64 {
	mp, err := m.Geom()
	if err != nil {
		return 0
	}
	return mp.Area()
}

// NumVertices counts distinct ring vertices, closing points excluded.
func (m MultiPolygon) NumVertices() int {
	n := 0
	for _, poly := range m {
		for _, r := range poly {
			if len(r) > 0 {
				n += len(r) - 1
			}
		}
	}
	return n
}

// WKT renders the boundary as well-known text.
func (d District) WKT() (string, error) {
	mp, err := d.Boundary.Geom()
	if err != nil {
		return "", err
	}
	s, err := wkt.Marshal(mp)
	if err != nil {
		return "", eris.Wrapf(err, "boundary: encode %s as WKT", d.Name)
	}
	return s, nil
}

func toPlain(polys []polygon) MultiPolygon {
	out := make(MultiPolygon, 0, len(polys))
	for _, poly := range polys {
		rings := make([][][2]float64, 0, len(poly))
		for _, r := range poly {
			closed := make([][2]float64, 0, len(r)+1)
			for _, p := range r {
				closed = append(closed, [2]float64(p))
			}
			closed = append(closed, [2]float64(r[0]))
			rings = append(rings, closed)
		}
		out = append(out, rings)
	}
	return out
}
