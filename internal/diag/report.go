package diag

import (
	"errors"
	"sort"

	"go.uber.org/zap"
)

// Kind classifies a diagnostic entry.
type Kind string

// Diagnostic kinds.
const (
	KindNormalization Kind = "normalization"
	KindDuplicateKey  Kind = "duplicate_key"
	KindUnmatched     Kind = "unmatched"
	KindOrphan        Kind = "orphan"
	KindInvalidValue  Kind = "invalid_value"
	KindGeometry      Kind = "geometry"
	KindOther         Kind = "other"
)

// Entry is one row-level data-quality issue.
type Entry struct {
	Kind   Kind   `json:"kind"`
	Source string `json:"source"`
	Row    int    `json:"row,omitempty"`
	Key    string `json:"key,omitempty"`
	Detail string `json:"detail"`
}

// Report collects row-level issues for one load cycle. It is not safe for
// concurrent use; a cycle owns its report.
type Report struct {
	Entries []Entry `json:"entries"`
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{}
}

// Add records err against source and row, classifying it by type.
func (r *Report) Add(source string, row int, err error) {
	if r == nil || err == nil {
		return
	}
	e := Entry{Source: source, Row: row, Detail: err.Error(), Kind: KindOther}

	var (
		ne *NormalizationError
		de *DuplicateKeyError
		oe *OrphanReference
		ie *InvalidValueError
		ge *GeometryError
	)
	switch {
	case errors.As(err, &ne):
		e.Kind = KindNormalization
		e.Key = ne.Raw
	case errors.As(err, &de):
		e.Kind = KindDuplicateKey
		e.Key = de.Key
	case errors.As(err, &oe):
		e.Kind = KindOrphan
		e.Key = oe.District
	case errors.As(err, &ie):
		e.Kind = KindInvalidValue
		e.Key = ie.Column
	case errors.As(err, &ge):
		e.Kind = KindGeometry
		e.Key = ge.District
	}
	r.append(e)
}

// AddEntry records a pre-built entry.
func (r *Report) AddEntry(e Entry) {
	if r == nil {
		return
	}
	r.append(e)
}

func (r *Report) append(e Entry) {
	r.Entries = append(r.Entries, e)
	zap.L().Debug("diagnostic",
		zap.String("kind", string(e.Kind)),
		zap.String("source", e.Source),
		zap.Int("row", e.Row),
		zap.String("key", e.Key),
		zap.String("detail", e.Detail),
	)
}

// Merge appends all entries of other.
func (r *Report) Merge(other *Report) {
	if r == nil || other == nil {
		return
	}
	r.Entries = append(r.Entries, other.Entries...)
}

// Len returns the number of entries.
func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Entries)
}

// Counts returns the number of entries per kind.
func (r *Report) Counts() map[Kind]int {
	out := make(map[Kind]int)
	if r == nil {
		return out
	}
	for _, e := range r.Entries {
		out[e.Kind]++
	}
	return out
}

// Filter returns the entries of the given kind.
func (r *Report) Filter(kind Kind) []Entry {
	if r == nil {
		return nil
	}
	var out []Entry
	for _, e := range r.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Kinds returns the kinds present, sorted.
func (r *Report) Kinds() []Kind {
	counts := r.Counts()
	kinds := make([]Kind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
