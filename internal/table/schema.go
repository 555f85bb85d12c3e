// Package table loads keyed tabular sources against an explicit schema.
package table

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/petatlas/internal/keys"
)

// Type is the declared type of a column.
type Type int

// Column types.
const (
	String Type = iota
	Int
	Float
)

func (t Type) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	default:
		return "string"
	}
}

// Column declares one column of a source table.
type Column struct {
	Field    string   // logical name used downstream, unique per schema
	Names    []string // header spellings accepted for this column
	Type     Type
	Nullable bool
	// Optional columns may be absent from the header entirely; every value
	// is then missing.
	Optional bool
}

// Schema declares a source table: which column carries the district key and
// which typed value columns are read.
type Schema struct {
	Name    string
	Key     Column
	Columns []Column
}

// SchemaError reports a header that does not satisfy its schema.
type SchemaError struct {
	Table  string
	Column string
	Names  []string
	Header []string
}

func (e *SchemaError) Error() string {
	return "table: " + e.Table + ": column " + e.Column + " not found in header"
}

// Validate checks the schema itself.
func (s Schema) Validate() error {
	if s.Name == "" {
		return eris.New("table: schema name is required")
	}
	if len(s.Key.Names) == 0 {
		return eris.Errorf("table: %s: key column has no names", s.Name)
	}
	seen := map[string]bool{s.Key.Field: true}
	for _, c := range s.Columns {
		if c.Field == "" {
			return eris.Errorf("table: %s: column without field name", s.Name)
		}
		if len(c.Names) == 0 {
			return eris.Errorf("table: %s: column %s has no names", s.Name, c.Field)
		}
		if seen[c.Field] {
			return eris.Errorf("table: %s: duplicate field %s", s.Name, c.Field)
		}
		seen[c.Field] = true
	}
	return nil
}

// Field returns the column declared for field.
func (s Schema) Field(field string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return Column{}, false
}

// binding maps schema columns onto header indexes.
type binding struct {
	key  int
	cols []int // parallel to Schema.Columns; -1 for absent optional columns
}

func (s Schema) bind(header []string) (binding, error) {
	b := binding{cols: make([]int, len(s.Columns))}

	b.key = keys.Resolve(header, keys.Column{Field: s.Key.Field, Names: s.Key.Names})
	if b.key < 0 {
		return b, &SchemaError{Table: s.Name, Column: s.Key.Field, Names: s.Key.Names, Header: header}
	}

	for i, c := range s.Columns {
		idx := keys.Resolve(header, keys.Column{Field: c.Field, Names: c.Names})
		if idx < 0 && !c.Optional {
			return b, &SchemaError{Table: s.Name, Column: c.Field, Names: c.Names, Header: header}
		}
		b.cols[i] = idx
	}
	return b, nil
}

// WithNames returns a copy of s whose key and named columns accept the
// given header spellings first. Empty overrides are ignored.
func (s Schema) WithNames(key string, fields map[string]string) Schema {
	out := s
	if key != "" {
		out.Key.Names = prepend(key, s.Key.Names)
	}
	out.Columns = make([]Column, len(s.Columns))
	for i, c := range s.Columns {
		if name := fields[c.Field]; name != "" {
			c.Names = prepend(name, c.Names)
		}
		out.Columns[i] = c
	}
	return out
}

func prepend(first string, rest []string) []string {
	out := make([]string, 0, len(rest)+1)
	out = append(out, first)
	for _, r := range rest {
		if r != first {
			out = append(out, r)
		}
	}
	return out
}
