package boundary

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/petatlas/internal/diag"
)

// ReadOptions configures the boundary readers.
type ReadOptions struct {
	Source    string // name used in diagnostics
	NameField string // attribute carrying the district name
	Charset   string // shapefile DBF encoding; empty reads the .cpg sidecar or assumes UTF-8
}

func (o ReadOptions) nameField() string {
	if o.NameField == "" {
		return DefaultNameField
	}
	return o.NameField
}

func (o ReadOptions) source() string {
	if o.Source == "" {
		return "boundary"
	}
	return o.Source
}

// ReadGeoJSON reads a FeatureCollection of Polygon and MultiPolygon
// features. Features without usable geometry are reported and skipped.
func ReadGeoJSON(data []byte, opts ReadOptions, report *diag.Report) ([]Raw, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "boundary: decode geojson")
	}

	field := opts.nameField()
	src := opts.source()
	raws := make([]Raw, 0, len(fc.Features))
	for i, f := range fc.Features {
		row := i + 1
		if f == nil {
			continue
		}
		name := propertyString(f.Properties, field)

		polys, reason := polygonsOf(f.Geometry)
		if reason != "" {
			report.Add(src, row, &diag.GeometryError{District: name, Reason: reason})
			continue
		}
		raws = append(raws, Raw{Name: name, Polygons: polys, Source: src, Row: row})
	}
	return raws, nil
}

func propertyString(props map[string]interface{}, field string) string {
	v, ok := props[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func polygonsOf(g geom.T) ([]*geom.Polygon, string) {
	switch t := g.(type) {
	case nil:
		return nil, "missing geometry"
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil, "empty polygon"
		}
		return []*geom.Polygon{t}, ""
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return nil, "empty multipolygon"
		}
		polys := make([]*geom.Polygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			polys = append(polys, t.Polygon(i))
		}
		return polys, ""
	default:
		return nil, fmt.Sprintf("unsupported geometry %T", g)
	}
}

// EncodeGeoJSON renders districts as a FeatureCollection. props, when set,
// supplies extra feature properties; name and centroid are always present.
func EncodeGeoJSON(ds []District, props func(District) map[string]interface{}) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(ds))}
	for _, d := range ds {
		mp, err := d.Boundary.Geom()
		if err != nil {
			return nil, err
		}
		p := map[string]interface{}{}
		if props != nil {
			for k, v := range props(d) {
				p[k] = v
			}
		}
		p["name"] = d.Name
		p["center_lat"] = d.Centroid.Lat
		p["center_lon"] = d.Centroid.Lon
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         d.Name,
			Geometry:   mp,
			Properties: p,
		})
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: encode geojson")
	}
	return data, nil
}
