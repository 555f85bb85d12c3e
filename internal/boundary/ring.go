package boundary

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// point is an x (longitude), y (latitude) pair.
type point [2]float64

func (p point) less(q point) bool {
	if p[0] != q[0] {
		return p[0] < q[0]
	}
	return p[1] < q[1]
}

// ring is an open vertex sequence; the closing vertex is implied.
type ring []point

// polygon is a shell followed by its holes.
type polygon []ring

// ringFromCoords drops the closing vertex and repeated vertices. It returns
// nil when fewer than three distinct vertices remain.
func ringFromCoords(cs []geom.Coord) ring {
	r := make(ring, 0, len(cs))
	for _, c := range cs {
		if len(c) < 2 {
			continue
		}
		p := point{c[0], c[1]}
		if len(r) > 0 && r[len(r)-1] == p {
			continue
		}
		r = append(r, p)
	}
	for len(r) > 1 && r[len(r)-1] == r[0] {
		r = r[:len(r)-1]
	}
	if len(r) < 3 {
		return nil
	}
	return r
}

// signedArea is positive for counter-clockwise rings.
func (r ring) signedArea() float64 {
	var a float64
	for i := range r {
		j := (i + 1) % len(r)
		a += r[i][0]*r[j][1] - r[j][0]*r[i][1]
	}
	return a / 2
}

func (r ring) reversed() ring {
	out := make(ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// oriented returns r running counter-clockwise when ccw is set, clockwise
// otherwise.
func (r ring) oriented(ccw bool) ring {
	if (r.signedArea() > 0) != ccw {
		return r.reversed()
	}
	return r
}

func (r ring) closedFlat() []float64 {
	flat := make([]float64, 0, 2*(len(r)+1))
	for _, p := range r {
		flat = append(flat, p[0], p[1])
	}
	return append(flat, r[0][0], r[0][1])
}

// simplify removes vertices lying on the straight line between their
// neighbours.
func (r ring) simplify() ring {
	out := append(ring(nil), r...)
	for changed := true; changed && len(out) > 3; {
		changed = false
		for i := 0; i < len(out) && len(out) > 3; i++ {
			prev := out[(i+len(out)-1)%len(out)]
			next := out[(i+1)%len(out)]
			if cross(prev, out[i], next) == 0 {
				out = append(out[:i], out[i+1:]...)
				changed = true
				i--
			}
		}
	}
	return out
}

// canonical rotates r to start at its smallest vertex.
func (r ring) canonical() ring {
	lo := 0
	for i := range r {
		if r[i].less(r[lo]) {
			lo = i
		}
	}
	return append(append(ring(nil), r[lo:]...), r[:lo]...)
}

func cross(o, a, b point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// contains reports whether every vertex of inner lies inside or on outer.
func (r ring) contains(inner ring) bool {
	flat := r.closedFlat()
	for _, p := range inner {
		if !xy.IsPointInRing(geom.XY, geom.Coord{p[0], p[1]}, flat) {
			return false
		}
	}
	return true
}

// assemble classifies rings by winding, counter-clockwise as shells and
// clockwise as holes, and attaches each hole to the smallest shell that
// contains it.
func assemble(rings []ring) ([]polygon, error) {
	type shell struct {
		r     ring
		area  float64
		holes []ring
	}
	var shells []*shell
	var holes []ring
	for _, r := range rings {
		switch a := r.signedArea(); {
		case a > 0:
			shells = append(shells, &shell{r: r, area: a})
		case a < 0:
			holes = append(holes, r)
		}
	}
	sort.SliceStable(shells, func(i, j int) bool { return shells[i].area < shells[j].area })

	for _, h := range holes {
		var owner *shell
		for _, s := range shells {
			if s.area > -h.signedArea() && s.r.contains(h) {
				owner = s
				break
			}
		}
		if owner == nil {
			return nil, eris.Errorf("boundary: hole at %v has no enclosing shell", h[0])
		}
		owner.holes = append(owner.holes, h)
	}

	out := make([]polygon, 0, len(shells))
	for _, s := range shells {
		poly := polygon{s.r.canonical()}
		for _, h := range s.holes {
			poly = append(poly, h.canonical())
		}
		sort.Slice(poly[1:], func(i, j int) bool { return poly[1+i][0].less(poly[1+j][0]) })
		out = append(out, poly)
	}
	sortPolygons(out)
	return out, nil
}

func sortPolygons(ps []polygon) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i][0][0].less(ps[j][0][0]) })
}

// polygonFromGeom converts p with the shell counter-clockwise and holes
// clockwise. Degenerate rings are dropped; a degenerate shell drops the
// polygon.
func polygonFromGeom(p *geom.Polygon) polygon {
	if p == nil || p.NumLinearRings() == 0 {
		return nil
	}
	shell := ringFromCoords(p.LinearRing(0).Coords())
	if shell == nil {
		return nil
	}
	out := polygon{shell.oriented(true)}
	for i := 1; i < p.NumLinearRings(); i++ {
		if h := ringFromCoords(p.LinearRing(i).Coords()); h != nil {
			out = append(out, h.oriented(false))
		}
	}
	return out
}

func polygonToGeom(p polygon) (*geom.Polygon, error) {
	coords := make([][]geom.Coord, len(p))
	for i, r := range p {
		cs := make([]geom.Coord, 0, len(r)+1)
		for _, pt := range r {
			cs = append(cs, geom.Coord{pt[0], pt[1]})
		}
		coords[i] = append(cs, geom.Coord{r[0][0], r[0][1]})
	}
	g, err := geom.NewPolygon(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: build polygon")
	}
	return g, nil
}
