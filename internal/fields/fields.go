// Package fields reads properties out of maps and structs and converts structs
// to and from field maps.
//
// Which way a property is read is decided when an Accessor is chosen, not when
// a value is inspected: Maps reads map keys and Structs reads struct fields
// and methods. Both index into slices and arrays when given an int key.
package fields

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/dekarrin/cuttle/internal/inflect"
)

// TagName is the struct tag that overrides the field name of a struct field.
const TagName = "cuttle"

// Accessor reads a single property out of a value.
type Accessor interface {
	// Get returns the property of obj that is identified by key, and whether
	// it was present.
	Get(obj any, key any) (any, bool)
}

var (
	// Maps reads properties as keys of maps with string keys.
	Maps Accessor = mapAccessor{}

	// Structs reads properties as exported fields of structs or of pointers to
	// structs, matched by their `cuttle` tag or snake_case name. If no field
	// matches, a method that takes no arguments and whose snake_case name
	// matches is called and its first return value is used.
	Structs Accessor = structAccessor{}
)

// Dig follows path from obj, reading one key at a time with a. It returns the
// value at the end of the path along with the value the last key was read
// from. A missing key at any step gives a nil value. An empty path gives obj
// as both the value and its parent.
func Dig(a Accessor, obj any, path []any) (parent any, value any) {
	parent = obj
	value = obj
	for _, key := range path {
		parent = value
		if value == nil {
			return parent, nil
		}
		value, _ = a.Get(value, key)
	}
	return parent, value
}

// PathString joins the keys of path with dots.
func PathString(path []any) string {
	parts := make([]string, len(path))
	for i := range path {
		parts[i] = fmt.Sprint(path[i])
	}
	return strings.Join(parts, ".")
}

type mapAccessor struct{}

func (mapAccessor) Get(obj any, key any) (any, bool) {
	if idx, ok := key.(int); ok {
		return index(obj, idx)
	}

	name, ok := key.(string)
	if !ok {
		return nil, false
	}

	if m, ok := obj.(map[string]any); ok {
		v, found := m[name]
		return v, found
	}

	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

type structAccessor struct{}

func (structAccessor) Get(obj any, key any) (any, bool) {
	if idx, ok := key.(int); ok {
		return index(obj, idx)
	}

	name, ok := key.(string)
	if !ok || obj == nil {
		return nil, false
	}

	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}

	if fieldIdx, ok := fieldIndex(rv.Type(), name); ok {
		return rv.Field(fieldIdx).Interface(), true
	}

	// fall back to methods, checked on the original value so that pointer
	// receivers are found when obj is a pointer.
	orig := reflect.ValueOf(obj)
	for i := 0; i < orig.NumMethod(); i++ {
		m := orig.Type().Method(i)
		if m.Name != name && inflect.Snake(m.Name) != name {
			continue
		}
		mt := m.Type
		// receiver is in.0
		if mt.NumIn() != 1 || mt.NumOut() < 1 {
			continue
		}
		out := orig.Method(i).Call(nil)
		return out[0].Interface(), true
	}

	return nil, false
}

func index(obj any, idx int) (any, bool) {
	if obj == nil {
		return nil, false
	}
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if idx < 0 || idx >= rv.Len() {
		return nil, false
	}
	return rv.Index(idx).Interface(), true
}

// fieldName gives the record field name of a struct field and whether the
// field is mapped at all.
func fieldName(sf reflect.StructField) (string, bool) {
	if !sf.IsExported() {
		return "", false
	}
	tag := sf.Tag.Get(TagName)
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return inflect.Snake(sf.Name), true
}

func fieldIndex(t reflect.Type, name string) (int, bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		mapped, ok := fieldName(sf)
		if !ok {
			continue
		}
		if mapped == name || sf.Name == name {
			return i, true
		}
	}
	return -1, false
}

// ToRecord converts v to a field map. A map with string keys is copied. A
// struct, or a non-nil pointer to one, has each mapped exported field placed
// under its field name. Any other value is an error.
func ToRecord(v any) (map[string]any, error) {
	if v == nil {
		return nil, fmt.Errorf("nil value")
	}

	if m, ok := v.(map[string]any); ok {
		cp := make(map[string]any, len(m))
		for k := range m {
			cp[k] = m[k]
		}
		return cp, nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("nil %s", rv.Type())
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key type %s is not a string type", rv.Type().Key())
		}
		rec := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			rec[iter.Key().String()] = iter.Value().Interface()
		}
		return rec, nil
	case reflect.Struct:
		t := rv.Type()
		rec := make(map[string]any, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			name, ok := fieldName(t.Field(i))
			if !ok {
				continue
			}
			rec[name] = rv.Field(i).Interface()
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("%T is not a struct or map", v)
	}
}

// FromRecord sets the fields of the struct pointed to by target from rec.
// Fields with no entry in rec are left unchanged. A nil entry sets the field
// to its zero value. A value is assigned directly if its type allows, is
// converted if both it and the field are numeric and the value fits the field
// exactly, and is parsed with
// UnmarshalText if it is a string and the field supports that. Fields that
// cannot be set any of those ways are left unchanged and the first such
// problem is returned as an error once all fields have been visited.
func FromRecord(rec map[string]any, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a non-nil pointer to a struct, not %T", target)
	}
	rv = rv.Elem()
	t := rv.Type()

	var firstErr error
	for i := 0; i < t.NumField(); i++ {
		name, ok := fieldName(t.Field(i))
		if !ok {
			continue
		}
		v, ok := rec[name]
		if !ok {
			continue
		}
		if err := assign(rv.Field(i), v); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", name, err)
		}
	}

	return firstErr
}

func assign(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	if isNumeric(src.Kind()) && isNumeric(dst.Kind()) {
		return setNumber(dst, src)
	}

	if s, ok := v.(string); ok && dst.CanAddr() {
		if tu, ok := dst.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return tu.UnmarshalText([]byte(s))
		}
		if dst.Kind() == reflect.String {
			dst.SetString(s)
			return nil
		}
	}

	return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
}

// setNumber stores the numeric src in dst. It fails instead of truncating a
// fraction, wrapping a sign, or overflowing the size of dst.
func setNumber(dst, src reflect.Value) error {
	fail := func() error {
		return fmt.Errorf("%v does not fit in %s", src.Interface(), dst.Type())
	}

	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var i int64
		switch {
		case src.CanInt():
			i = src.Int()
		case src.CanUint():
			if src.Uint() > math.MaxInt64 {
				return fail()
			}
			i = int64(src.Uint())
		default:
			f := src.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f >= -math.MinInt64 {
				return fail()
			}
			i = int64(f)
		}
		if dst.OverflowInt(i) {
			return fail()
		}
		dst.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var u uint64
		switch {
		case src.CanUint():
			u = src.Uint()
		case src.CanInt():
			if src.Int() < 0 {
				return fail()
			}
			u = uint64(src.Int())
		default:
			f := src.Float()
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
				return fail()
			}
			u = uint64(f)
		}
		if dst.OverflowUint(u) {
			return fail()
		}
		dst.SetUint(u)
	default:
		var f float64
		switch {
		case src.CanInt():
			f = float64(src.Int())
		case src.CanUint():
			f = float64(src.Uint())
		default:
			f = src.Float()
		}
		if dst.OverflowFloat(f) {
			return fail()
		}
		dst.SetFloat(f)
	}
	return nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
