package atlas

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/petatlas/internal/fetcher"
	"github.com/sells-group/petatlas/internal/table"
)

// BoundaryFormat is the encoding of a boundary source.
type BoundaryFormat string

// Boundary formats.
const (
	GeoJSON   BoundaryFormat = "geojson"
	Shapefile BoundaryFormat = "shapefile"
	ZIP       BoundaryFormat = "zip"
)

// Source names used for diagnostics, cache keys, and fingerprints.
const (
	SourceBoundary       = "boundary"
	SourcePopulation     = "population"
	SourcePets           = "pets"
	SourceInfrastructure = "infrastructure"
	SourceFacilities     = "facilities"
)

// BoundarySource locates the district boundary file.
type BoundarySource struct {
	Location  string
	Format    BoundaryFormat // inferred from the extension when empty
	NameField string
	Charset   string // shapefile DBF encoding
}

// ResolveFormat returns the explicit format or infers it from the location.
func (b BoundarySource) ResolveFormat() (BoundaryFormat, error) {
	if b.Format != "" {
		return BoundaryFormat(strings.ToLower(string(b.Format))), nil
	}
	switch fetcher.Ext(b.Location) {
	case ".geojson", ".json":
		return GeoJSON, nil
	case ".shp":
		return Shapefile, nil
	case ".zip":
		return ZIP, nil
	default:
		return "", eris.Errorf("atlas: cannot infer boundary format from %q", b.Location)
	}
}

// TableSource locates one keyed table. KeyColumn and ValueColumn name
// header spellings tried before the built-in aliases.
type TableSource struct {
	table.Source
	KeyColumn   string
	ValueColumn string
}

// Configured reports whether the source has a location.
func (t TableSource) Configured() bool {
	return strings.TrimSpace(t.Location) != ""
}

// Sources is everything one cycle reads.
type Sources struct {
	Boundary       BoundarySource
	Population     TableSource
	Pets           TableSource
	Infrastructure TableSource
	Facilities     TableSource
}

// Tables returns the configured auxiliary tables keyed by source name.
func (s Sources) Tables() map[string]TableSource {
	out := make(map[string]TableSource, 3)
	for name, t := range map[string]TableSource{
		SourcePopulation:     s.Population,
		SourcePets:           s.Pets,
		SourceInfrastructure: s.Infrastructure,
	} {
		if t.Configured() {
			out[name] = t
		}
	}
	return out
}

// joinOrder fixes the order in which auxiliary tables are joined.
var joinOrder = []string{SourcePopulation, SourcePets, SourceInfrastructure}

// schemaFor returns the built-in schema of an auxiliary table with the
// source's header overrides applied.
func schemaFor(name string, src TableSource) (table.Schema, error) {
	var s table.Schema
	var valueField string
	switch name {
	case SourcePopulation:
		s, valueField = table.PopulationSchema(), table.FieldPopulation
	case SourcePets:
		s, valueField = table.PetsSchema(), table.FieldPetRegistrations
	case SourceInfrastructure:
		s, valueField = table.InfrastructureSchema(), table.FieldInfrastructureCount
	default:
		return table.Schema{}, eris.Errorf("atlas: unknown table %q", name)
	}
	return s.WithNames(src.KeyColumn, map[string]string{valueField: src.ValueColumn}), nil
}
