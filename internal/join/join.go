// Package join left-joins keyed source tables onto the district list.
package join

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/petatlas/internal/diag"
	"github.com/sells-group/petatlas/internal/keys"
	"github.com/sells-group/petatlas/internal/nullable"
	"github.com/sells-group/petatlas/internal/table"
)

// Policy selects how a table with two rows for one district is handled.
type Policy string

// Duplicate-key policies.
const (
	PolicyError Policy = "error"
	PolicyLast  Policy = "last"
)

// ParsePolicy validates a configured policy name. Empty means PolicyError.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyError, nil
	case PolicyError, PolicyLast:
		return p, nil
	default:
		return "", eris.Errorf("join: unknown duplicate policy %q (want error or last)", s)
	}
}

// Options configures a join.
type Options struct {
	Duplicates Policy
}

// Record is one joined row. Fields with no matching source row are absent
// and read back as missing.
type Record struct {
	District string
	Values   map[string]table.Value
	// Lines maps a table name to the source line that matched, if any.
	Lines map[string]int
}

// Get returns the joined value of field.
func (r Record) Get(field string) table.Value {
	return r.Values[field]
}

// Int returns field as an int, or missing.
func (r Record) Int(field string) nullable.Value[int64] {
	return r.Values[field].Int()
}

// Float returns field as a float, or missing.
func (r Record) Float(field string) nullable.Value[float64] {
	return r.Values[field].Float()
}

// UnmatchedRow is a source row whose key names no known district.
type UnmatchedRow struct {
	Table  string `json:"table"`
	Row    int    `json:"row"`
	RawKey string `json:"raw_key"`
	Key    string `json:"key"`
}

// Result holds the joined records, one per district in input order.
type Result struct {
	Records     []Record
	Unmatched   []UnmatchedRow
	Diagnostics *diag.Report
}

// Record returns the joined record for a district.
func (r *Result) Record(district string) (Record, bool) {
	for _, rec := range r.Records {
		if rec.District == district {
			return rec, true
		}
	}
	return Record{}, false
}

// Join left-joins tables onto districts. Every district yields exactly one
// record regardless of what the tables contain. A duplicate key aborts the
// join under PolicyError; PolicyLast keeps the last occurrence and records
// a diagnostic.
func Join(districts []string, tables []*table.Table, opts Options) (*Result, error) {
	policy := opts.Duplicates
	if policy == "" {
		policy = PolicyError
	}
	if policy != PolicyError && policy != PolicyLast {
		return nil, eris.Errorf("join: unknown duplicate policy %q", policy)
	}
	log := zap.L().With(zap.String("component", "join"))

	index := make(map[string]int, len(districts))
	for i, d := range districts {
		if _, dup := index[d]; dup {
			return nil, eris.Errorf("join: district %q listed twice", d)
		}
		index[d] = i
	}
	if err := checkFields(tables); err != nil {
		return nil, err
	}

	res := &Result{
		Records:     make([]Record, len(districts)),
		Diagnostics: diag.NewReport(),
	}
	for i, d := range districts {
		res.Records[i] = Record{
			District: d,
			Values:   make(map[string]table.Value),
			Lines:    make(map[string]int),
		}
	}

	for _, tbl := range tables {
		if tbl == nil {
			continue
		}
		chosen, err := selectRows(tbl, policy, index, res)
		if err != nil {
			return nil, err
		}

		for key, row := range chosen {
			i, ok := index[key]
			if !ok {
				continue
			}
			rec := res.Records[i]
			for _, col := range tbl.Schema.Columns {
				if v, ok := row.Values[col.Field]; ok {
					rec.Values[col.Field] = v
				}
			}
			rec.Lines[tbl.Name] = row.Line
		}
	}

	log.Debug("join: complete",
		zap.Int("districts", len(districts)),
		zap.Int("tables", len(tables)),
		zap.Int("unmatched", len(res.Unmatched)),
		zap.Int("diagnostics", res.Diagnostics.Len()),
	)
	return res, nil
}

// selectRows normalizes the keys of tbl and picks one row per key. Rows with
// unusable keys become diagnostics; rows naming no district are appended to
// res.Unmatched.
func selectRows(tbl *table.Table, policy Policy, index map[string]int, res *Result) (map[string]table.Row, error) {
	chosen := make(map[string]table.Row, len(tbl.Rows))
	lines := make(map[string][]int)
	var order []string

	for _, row := range tbl.Rows {
		key, err := keys.Normalize(row.RawKey)
		if err != nil {
			res.Diagnostics.Add(tbl.Name, row.Line, err)
			continue
		}
		if _, seen := lines[key]; !seen {
			order = append(order, key)
		}
		lines[key] = append(lines[key], row.Line)
		chosen[key] = row
	}

	for _, key := range order {
		rows := lines[key]
		if len(rows) > 1 {
			dup := &diag.DuplicateKeyError{Table: tbl.Name, Key: key, Rows: rows}
			if policy == PolicyError {
				return nil, dup
			}
			res.Diagnostics.Add(tbl.Name, rows[len(rows)-1], dup)
		}
	}

	var unmatched []UnmatchedRow
	for _, row := range tbl.Rows {
		key, err := keys.Normalize(row.RawKey)
		if err != nil {
			continue
		}
		if _, ok := index[key]; ok {
			continue
		}
		unmatched = append(unmatched, UnmatchedRow{Table: tbl.Name, Row: row.Line, RawKey: row.RawKey, Key: key})
	}
	for _, u := range unmatched {
		res.Diagnostics.AddEntry(diag.Entry{
			Kind:   diag.KindUnmatched,
			Source: u.Table,
			Row:    u.Row,
			Key:    u.Key,
			Detail: "no district named " + u.Key,
		})
	}
	res.Unmatched = append(res.Unmatched, unmatched...)
	return chosen, nil
}

// checkFields rejects tables that would write the same joined field.
func checkFields(tables []*table.Table) error {
	owner := make(map[string]string)
	for _, tbl := range tables {
		if tbl == nil {
			continue
		}
		for _, col := range tbl.Schema.Columns {
			if prev, ok := owner[col.Field]; ok {
				return eris.Errorf("join: field %q provided by both %s and %s", col.Field, prev, tbl.Name)
			}
			owner[col.Field] = tbl.Name
		}
	}
	return nil
}

// Fields lists the joined field names across tables in declaration order.
func Fields(tables []*table.Table) []string {
	var out []string
	for _, tbl := range tables {
		if tbl == nil {
			continue
		}
		for _, col := range tbl.Schema.Columns {
			out = append(out, col.Field)
		}
	}
	return out
}

// UnmatchedKeys returns the distinct canonical keys in u, sorted.
func UnmatchedKeys(u []UnmatchedRow) []string {
	set := make(map[string]bool, len(u))
	for _, r := range u {
		set[r.Key] = true
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
