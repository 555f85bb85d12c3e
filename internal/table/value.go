package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/petatlas/internal/diag"
	"github.com/sells-group/petatlas/internal/nullable"
)

// Value is one typed cell. Missing cells carry no value of any type.
type Value struct {
	typ Type
	s   string
	i   nullable.Value[int64]
	f   nullable.Value[float64]
}

// Type returns the declared type of the cell.
func (v Value) Type() Type { return v.typ }

// Int returns the cell as an int, missing for non-int or empty cells.
func (v Value) Int() nullable.Value[int64] { return v.i }

// Float returns the cell as a float. Int cells are widened.
func (v Value) Float() nullable.Value[float64] {
	if v.typ == Int {
		return v.i.Float()
	}
	return v.f
}

// Str returns the trimmed text of the cell.
func (v Value) Str() string { return v.s }

// Present reports whether the cell holds a value.
func (v Value) Present() bool {
	switch v.typ {
	case Int:
		return v.i.Present()
	case Float:
		return v.f.Present()
	default:
		return v.s != ""
	}
}

// IntValue builds a present int cell.
func IntValue(n int64) Value {
	return Value{typ: Int, s: strconv.FormatInt(n, 10), i: nullable.Of(n)}
}

// FloatValue builds a present float cell.
func FloatValue(f float64) Value {
	return Value{typ: Float, s: strconv.FormatFloat(f, 'f', -1, 64), f: nullable.Of(f)}
}

// StringValue builds a string cell.
func StringValue(s string) Value {
	return Value{typ: String, s: s}
}

// missingTokens are cell spellings treated as "no value" in statistical
// releases.
var missingTokens = map[string]bool{
	"":       true,
	"-":      true,
	"\u2212": true,
	"N/A":    true,
	"n/a":    true,
	"NA":     true,
	"..":     true,
}

// parseCell converts raw text into a Value of type t. It returns a missing
// value and an *diag.InvalidValueError when the text does not parse.
func parseCell(col Column, raw string) (Value, error) {
	s := strings.TrimSpace(raw)
	v := Value{typ: col.Type, s: s}
	if col.Type == String || missingTokens[s] {
		return v, nil
	}

	num := strings.ReplaceAll(s, ",", "")
	switch col.Type {
	case Int:
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			// Spreadsheet exports sometimes render counts as "150000.0".
			f, ferr := strconv.ParseFloat(num, 64)
			if ferr != nil || f != float64(int64(f)) {
				return v, &diag.InvalidValueError{Column: col.Field, Value: raw, Reason: "not an integer"}
			}
			n = int64(f)
		}
		if n < 0 {
			return v, &diag.InvalidValueError{Column: col.Field, Value: raw, Reason: "negative count"}
		}
		v.i = nullable.Of(n)
	case Float:
		f, err := strconv.ParseFloat(num, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return v, &diag.InvalidValueError{Column: col.Field, Value: raw, Reason: "not a finite number"}
		}
		v.f = nullable.Of(f)
	}
	return v, nil
}
