package boundary

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/petatlas/internal/diag"
	"github.com/sells-group/petatlas/internal/fetcher"
)

// ReadShapefile reads polygon records from a shapefile. The district name
// is taken from the DBF attribute opts.NameField, decoded with opts.Charset
// or the charset named in the .cpg sidecar.
func ReadShapefile(shpPath string, opts ReadOptions, report *diag.Report) ([]Raw, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	field := opts.nameField()
	nameIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(strings.TrimSpace(name), field) {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return nil, eris.Errorf("boundary: shapefile %s has no %s attribute", filepath.Base(shpPath), field)
	}

	charset := opts.Charset
	if charset == "" {
		charset = sidecarCharset(shpPath)
	}

	src := opts.source()
	var raws []Raw
	row := 0
	for reader.Next() {
		row++
		_, shape := reader.Shape()

		name, err := decodeAttribute(reader.Attribute(nameIdx), charset)
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: decode %s attribute", field)
		}

		polys, reason := shapePolygons(shape)
		if reason != "" {
			report.Add(src, row, &diag.GeometryError{District: name, Reason: reason})
			continue
		}
		raws = append(raws, Raw{Name: name, Polygons: polys, Source: src, Row: row})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "boundary: read shapefile %s after record %d", filepath.Base(shpPath), row)
	}

	zap.L().Debug("boundary: read shapefile",
		zap.String("path", shpPath),
		zap.Int("records", row),
		zap.Int("usable", len(raws)),
	)
	return raws, nil
}

// shapePolygons converts a shapefile polygon into go-geom polygons. Shapefile
// outer rings run clockwise, so every ring is reversed before assembly.
func shapePolygons(shape shp.Shape) ([]*geom.Polygon, string) {
	p, ok := shape.(*shp.Polygon)
	if !ok || p == nil {
		return nil, "unsupported shape type"
	}
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil, "empty polygon"
	}

	var rings []ring
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		coords := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			coords = append(coords, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}
		if r := ringFromCoords(coords); r != nil {
			rings = append(rings, r.reversed())
		}
	}

	assembled, err := assemble(rings)
	if err != nil {
		return nil, err.Error()
	}
	if len(assembled) == 0 {
		return nil, "no outer ring"
	}

	out := make([]*geom.Polygon, 0, len(assembled))
	for _, poly := range assembled {
		g, err := polygonToGeom(poly)
		if err != nil {
			return nil, err.Error()
		}
		out = append(out, g)
	}
	return out, ""
}

func decodeAttribute(raw, charset string) (string, error) {
	raw = strings.TrimRight(raw, "\x00")
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return raw, nil
	}
	r, err := fetcher.Decode(strings.NewReader(raw), charset)
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", eris.Wrap(err, "boundary: decode attribute")
	}
	return string(b), nil
}

// sidecarCharset reads the code page named in the .cpg file next to shpPath.
func sidecarCharset(shpPath string) string {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range []string{".cpg", ".CPG"} {
		data, err := os.ReadFile(base + ext)
		if err != nil {
			continue
		}
		return charsetAlias(strings.TrimSpace(string(data)))
	}
	return ""
}

// charsetAlias maps code page names found in .cpg files to WHATWG labels.
func charsetAlias(cp string) string {
	switch strings.ToLower(cp) {
	case "cp949", "949", "ms949", "uhc":
		return "euc-kr"
	case "utf-8", "utf8", "65001":
		return "utf-8"
	default:
		return cp
	}
}
