// Package nullable provides an explicit present-or-missing value used for
// joined fields and derived ratios.
package nullable

import (
	"encoding/json"
	"strconv"
)

// Number is the set of types a Value can carry.
type Number interface {
	~int64 | ~float64
}

// Value is either Present(v) or Missing. The zero Value is Missing.
type Value[T Number] struct {
	v  T
	ok bool
}

// Of returns a present value.
func Of[T Number](v T) Value[T] {
	return Value[T]{v: v, ok: true}
}

// Missing returns the missing marker.
func Missing[T Number]() Value[T] {
	return Value[T]{}
}

// Get returns the value and whether it is present.
func (n Value[T]) Get() (T, bool) {
	return n.v, n.ok
}

// Present reports whether the value is set.
func (n Value[T]) Present() bool {
	return n.ok
}

// Or returns the value, or def when missing.
func (n Value[T]) Or(def T) T {
	if !n.ok {
		return def
	}
	return n.v
}

// Float converts a present value to float64.
func (n Value[T]) Float() Value[float64] {
	if !n.ok {
		return Missing[float64]()
	}
	return Of(float64(n.v))
}

// String renders the value, or "" when missing.
func (n Value[T]) String() string {
	if !n.ok {
		return ""
	}
	switch v := any(n.v).(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strconv.FormatFloat(float64(n.v), 'f', -1, 64)
	}
}

// MarshalJSON renders missing as null.
func (n Value[T]) MarshalJSON() ([]byte, error) {
	if !n.ok {
		return []byte("null"), nil
	}
	return json.Marshal(n.v)
}

// UnmarshalJSON reads null as missing.
func (n *Value[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = Value[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Of(v)
	return nil
}

// Ratio divides num by den. The result is missing when either side is
// missing or den is zero.
func Ratio[A, B Number](num Value[A], den Value[B]) Value[float64] {
	a, ok := num.Get()
	if !ok {
		return Missing[float64]()
	}
	b, ok := den.Get()
	if !ok || b == 0 {
		return Missing[float64]()
	}
	return Of(float64(a) / float64(b))
}

// Scale multiplies a present value by k.
func Scale(n Value[float64], k float64) Value[float64] {
	v, ok := n.Get()
	if !ok {
		return n
	}
	return Of(v * k)
}
