// Package values compares, orders and inspects the dynamically-typed values
// held in records.
package values

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// IsNil returns whether v is nil, either as an untyped nil interface or as a
// typed nil pointer, map, slice, channel, func, or interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	default:
		return false
	}
}

// IsEmpty returns whether v is a string, slice, array, or map with no
// elements. All other values, including nil, are not empty; callers that
// consider nil to be blank must check IsNil as well.
func IsEmpty(v any) bool {
	if v == nil {
		return false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	default:
		return false
	}
}

// IsCollection returns whether v is a slice, array, or map.
func IsCollection(v any) bool {
	if v == nil {
		return false
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	default:
		return false
	}
}

// Equal returns whether a and b hold the same value. Numbers are compared by
// value regardless of their Go type, so int64(1), 1, and 1.0 are all equal.
// Slices, arrays and maps are compared element-wise with the same rules. All
// other values are compared with reflect.DeepEqual.
func Equal(a, b any) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}

	if an, ok := toNumber(a); ok {
		if bn, ok := toNumber(b); ok {
			return an.cmp(bn) == 0
		}
		return false
	}

	ra := reflect.ValueOf(a)
	rb := reflect.ValueOf(b)

	switch ra.Kind() {
	case reflect.Slice, reflect.Array:
		if rb.Kind() != reflect.Slice && rb.Kind() != reflect.Array {
			return false
		}
		if ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !Equal(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	case reflect.Map:
		if rb.Kind() != reflect.Map || ra.Len() != rb.Len() {
			return false
		}
		iter := ra.MapRange()
		for iter.Next() {
			if !iter.Key().Type().AssignableTo(rb.Type().Key()) {
				return false
			}
			bv := rb.MapIndex(iter.Key())
			if !bv.IsValid() {
				return false
			}
			if !Equal(iter.Value().Interface(), bv.Interface()) {
				return false
			}
		}
		return true
	}

	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
		return false
	}

	return reflect.DeepEqual(a, b)
}

// Identical returns whether a and b are the same reference. Pointers, maps,
// slices, channels and funcs are identical when they point at the same memory
// (and, for slices, have the same length). Values without reference semantics
// are identical when they are == to each other.
func Identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ra := reflect.ValueOf(a)
	rb := reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}

	switch ra.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len()
	}

	if !ra.Type().Comparable() {
		return false
	}
	return a == b
}

// Compare orders a against b. It returns a negative number if a sorts before
// b, 0 if they sort together, and a positive number if a sorts after b. Nil
// sorts before everything else. Numbers, strings, bools and times are ordered
// naturally; values of other types, or of two different types, are ordered by
// their printed form.
func Compare(a, b any) int {
	aNil, bNil := IsNil(a), IsNil(b)
	switch {
	case aNil && bNil:
		return 0
	case aNil:
		return -1
	case bNil:
		return 1
	}

	if an, ok := toNumber(a); ok {
		if bn, ok := toNumber(b); ok {
			return an.cmp(bn)
		}
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// number is a numeric value normalized for comparison. Exactly one of the
// representations is in use, selected by kind.
type number struct {
	kind byte // 'i', 'u', or 'f'
	i    int64
	u    uint64
	f    float64
}

func toNumber(v any) (number, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{kind: 'i', i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return number{kind: 'u', u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return number{kind: 'f', f: rv.Float()}, true
	default:
		return number{}, false
	}
}

func (n number) float() float64 {
	switch n.kind {
	case 'i':
		return float64(n.i)
	case 'u':
		return float64(n.u)
	default:
		return n.f
	}
}

func (n number) cmp(o number) int {
	if n.kind == 'f' || o.kind == 'f' {
		nf, of := n.float(), o.float()
		switch {
		case nf < of:
			return -1
		case nf > of:
			return 1
		default:
			return 0
		}
	}

	// both integral. a negative signed value is always below an unsigned one.
	if n.kind == 'i' && o.kind == 'u' {
		if n.i < 0 {
			return -1
		}
		return cmpUint(uint64(n.i), o.u)
	}
	if n.kind == 'u' && o.kind == 'i' {
		if o.i < 0 {
			return 1
		}
		return cmpUint(n.u, uint64(o.i))
	}
	if n.kind == 'u' {
		return cmpUint(n.u, o.u)
	}

	switch {
	case n.i < o.i:
		return -1
	case n.i > o.i:
		return 1
	default:
		return 0
	}
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
