package table

import (
	"bytes"
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/petatlas/internal/diag"
	"github.com/sells-group/petatlas/internal/fetcher"
)

// Format is the encoding of a tabular source.
type Format string

// Supported formats.
const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// Source describes where and how a table is read.
type Source struct {
	Name      string
	Location  string
	Format    Format // inferred from the location's extension when empty
	Charset   string // CSV only; WHATWG label, default utf-8
	Sheet     string // XLSX only; default first sheet
	SkipRows  int    // rows above the header
	Delimiter rune   // CSV only; default ','
}

// ResolveFormat returns the explicit format or infers it from the location.
func (s Source) ResolveFormat() (Format, error) {
	if s.Format != "" {
		return s.Format, nil
	}
	switch fetcher.Ext(s.Location) {
	case ".csv", ".txt":
		return CSV, nil
	case ".xlsx":
		return XLSX, nil
	default:
		return "", eris.Errorf("table: %s: cannot infer format from %q", s.Name, s.Location)
	}
}

// Row is one accepted data row.
type Row struct {
	Line   int    // 1-based line in the source, header counted
	RawKey string // key cell exactly as read, before normalization
	Values map[string]Value
}

// Get returns the value of field, or a missing value.
func (r Row) Get(field string) Value {
	return r.Values[field]
}

// Table is a parsed source. It is immutable once returned.
type Table struct {
	Name   string
	Schema Schema
	Header []string
	Rows   []Row
}

// Records decodes raw bytes into string records according to the source
// format. The first record is the header.
func Records(ctx context.Context, data []byte, src Source) ([][]string, error) {
	format, err := src.ResolveFormat()
	if err != nil {
		return nil, err
	}

	var records [][]string
	switch format {
	case CSV:
		records, err = fetcher.ReadCSV(ctx, bytes.NewReader(data), fetcher.CSVOptions{
			Charset:    src.Charset,
			Delimiter:  src.Delimiter,
			LazyQuotes: true,
		})
		if err == nil && src.SkipRows > 0 {
			if src.SkipRows >= len(records) {
				records = nil
			} else {
				records = records[src.SkipRows:]
			}
		}
	case XLSX:
		records, err = fetcher.ReadXLSXBytes(data, fetcher.XLSXOptions{
			SheetName: src.Sheet,
			SkipRows:  src.SkipRows,
		})
	default:
		return nil, eris.Errorf("table: %s: unsupported format %q", src.Name, format)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "table: %s: decode", src.Name)
	}
	return records, nil
}

// Parse decodes data and builds a Table against schema. Row-level problems
// go to report; a source that cannot be used at all returns a
// *diag.LoadError.
func Parse(ctx context.Context, data []byte, src Source, schema Schema, report *diag.Report) (*Table, error) {
	records, err := Records(ctx, data, src)
	if err != nil {
		return nil, diag.NewLoadError(src.Name, err)
	}
	return Build(records, src.SkipRows, schema, report)
}

// Build validates records (header first) against schema. lineOffset is the
// number of source lines above the header.
func Build(records [][]string, lineOffset int, schema Schema, report *diag.Report) (*Table, error) {
	if err := schema.Validate(); err != nil {
		return nil, diag.NewLoadError(schema.Name, err)
	}
	if len(records) == 0 {
		return nil, diag.NewLoadError(schema.Name, eris.New("table: no header row"))
	}

	header := records[0]
	b, err := schema.bind(header)
	if err != nil {
		return nil, diag.NewLoadError(schema.Name, err)
	}

	t := &Table{Name: schema.Name, Schema: schema, Header: header}
	rejected := 0
	for i, rec := range records[1:] {
		line := lineOffset + i + 2
		if blank(rec) {
			continue
		}
		row, ok := buildRow(schema, b, rec, line, report)
		if !ok {
			rejected++
			continue
		}
		t.Rows = append(t.Rows, row)
	}

	if rejected > 0 && len(t.Rows) == 0 {
		return nil, diag.NewLoadError(schema.Name, eris.Errorf("table: all %d data rows rejected", rejected))
	}

	zap.L().Debug("table: parsed",
		zap.String("table", schema.Name),
		zap.Int("rows", len(t.Rows)),
		zap.Int("rejected", rejected),
	)
	return t, nil
}

func buildRow(schema Schema, b binding, rec []string, line int, report *diag.Report) (Row, bool) {
	row := Row{Line: line, RawKey: cell(rec, b.key), Values: make(map[string]Value, len(schema.Columns))}
	ok := true
	for i, col := range schema.Columns {
		raw := cell(rec, b.cols[i])
		v, err := parseCell(col, raw)
		if err != nil {
			report.Add(schema.Name, line, err)
			if !col.Nullable {
				ok = false
			}
			continue
		}
		if !v.Present() && !col.Nullable {
			report.Add(schema.Name, line, &diag.InvalidValueError{Column: col.Field, Value: raw, Reason: "required value missing"})
			ok = false
			continue
		}
		row.Values[col.Field] = v
	}
	return row, ok
}

func cell(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
