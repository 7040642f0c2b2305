package constraint

import (
	"fmt"
	"reflect"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/errorset"
	"github.com/dekarrin/cuttle/internal/fields"
	"github.com/dekarrin/cuttle/internal/values"
)

// Accessor reads a property out of a validated object.
type Accessor = fields.Accessor

var (
	// MapAccessor reads properties as map keys. An int key indexes into a
	// slice or array.
	MapAccessor Accessor = fields.Maps

	// StructAccessor reads properties as exported struct fields, matched by
	// their `cuttle` tag, snake_case name, or Go name, falling back to a method
	// with no arguments of the same name. An int key indexes into a slice or
	// array.
	StructAccessor Accessor = fields.Structs
)

// Guard decides whether a constraint is applied. value is the value about to
// be checked. For a plain clause, key is the last key of its path and
// collection is the object value was read from; for an Each clause they are
// the element's index or map key and the collection being iterated. property
// is the clause path joined with dots. Guards that do not need an argument
// ignore it.
type Guard func(value, key, collection any, property string) bool

// Contextual applies a Constraint to the value found at Path within the
// validated object. Errors from the Constraint are nested under Path.
//
// If is checked before the Constraint is applied; when it returns false the
// value passes with no errors. Unless does the same when it returns true. In
// both directions a disqualified value passes.
//
// When Each is set, the value at Path must be a slice, array or map, and the
// Constraint and guards are applied to each of its elements in turn with the
// errors of each element nested under its index or key. Map elements are
// visited in key order. A value that is not a collection fails with
// NotACollectionError whatever the guards say. An empty collection passes.
type Contextual struct {
	Constraint Constraint

	// Path is the sequence of property names and slice indexes leading to the
	// value to check. An empty Path checks the object itself.
	Path []any

	// Accessor reads properties along Path. If nil, MapAccessor is used.
	Accessor Accessor

	// Negated causes NegatedMatch of Constraint to be used by Match, and Match
	// of Constraint to be used by NegatedMatch.
	Negated bool

	Each   bool
	If     Guard
	Unless Guard
}

// On returns a Contextual that applies c to the value at path.
func On(c Constraint, path ...any) Contextual {
	return Contextual{Constraint: c, Path: path}
}

// Each returns a Contextual that applies c to every element of a collection.
func Each(c Constraint) Contextual {
	return Contextual{Constraint: c, Each: true}
}

func (cc Contextual) Match(obj any) (bool, *errorset.ErrorSet) {
	return cc.evaluate(obj, cc.Negated)
}

func (cc Contextual) NegatedMatch(obj any) (bool, *errorset.ErrorSet) {
	return cc.evaluate(obj, !cc.Negated)
}

func (cc Contextual) evaluate(obj any, negated bool) (bool, *errorset.ErrorSet) {
	if cc.Constraint == nil {
		panic(cuttle.Uninitialized("constraint.Contextual"))
	}

	acc := cc.Accessor
	if acc == nil {
		acc = MapAccessor
	}

	parent, value := fields.Dig(acc, obj, cc.Path)
	property := fields.PathString(cc.Path)

	errs := errorset.New()
	target := errs.Dig(cc.Path...)

	if !cc.Each {
		var key any
		if len(cc.Path) > 0 {
			key = cc.Path[len(cc.Path)-1]
		}
		if !cc.applies(value, key, parent, property) {
			return true, errs
		}

		ok, inner := cc.delegate(value, negated)
		target.Merge(inner)
		return ok && errs.Empty(), errs
	}

	if !values.IsCollection(value) {
		target.Add(NotACollectionError, errorset.Params{"type": fmt.Sprintf("%T", value)})
		return false, errs
	}

	allOK := true
	check := func(key, elem any) {
		if !cc.applies(elem, key, value, property) {
			return
		}
		ok, inner := cc.delegate(elem, negated)
		if !ok {
			allOK = false
		}
		target.At(key).Merge(inner)
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Map {
		keys := make([]any, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			keys = append(keys, iter.Key().Interface())
		}
		keys = values.SortBy(keys, func(l, r any) bool {
			return values.Compare(l, r) < 0
		})
		for _, k := range keys {
			check(k, rv.MapIndex(reflect.ValueOf(k)).Interface())
		}
	} else {
		for i := 0; i < rv.Len(); i++ {
			check(i, rv.Index(i).Interface())
		}
	}

	return allOK && errs.Empty(), errs
}

func (cc Contextual) delegate(value any, negated bool) (bool, *errorset.ErrorSet) {
	if negated {
		return cc.Constraint.NegatedMatch(value)
	}
	return cc.Constraint.Match(value)
}

func (cc Contextual) applies(value, key, collection any, property string) bool {
	if cc.If != nil && !cc.If(value, key, collection, property) {
		return false
	}
	if cc.Unless != nil && cc.Unless(value, key, collection, property) {
		return false
	}
	return true
}
