// Package errorset provides ErrorSet, a tree of structured validation errors
// keyed by nesting path.
//
// Every error has a Type, which is a symbolic identifier such as
// "constraints.errors.empty", and a set of Params that give details about the
// failure. Errors are placed at a Path in the set; an error about the title of
// the second article of an object is at the path ["articles", 1, "title"].
package errorset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dekarrin/cuttle/internal/values"
)

// Params holds the details of a single error.
type Params map[string]any

// Path is a sequence of keys that locates a value within a nested object. Keys
// are strings for named properties and ints for positions in a list.
type Path []any

// String returns the keys of the path joined by dots.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i := range p {
		parts[i] = fmt.Sprint(p[i])
	}
	return strings.Join(parts, ".")
}

// Error is a single error record.
type Error struct {
	Type   string
	Params Params
	Path   Path
}

// String returns a human-readable form of the error.
func (e Error) String() string {
	var sb strings.Builder
	if len(e.Path) > 0 {
		sb.WriteString(e.Path.String())
		sb.WriteString(": ")
	}
	sb.WriteString(e.Type)
	if len(e.Params) > 0 {
		keys := values.SortedKeys(e.Params)
		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, e.Params[k]))
		}
		sb.WriteRune(')')
	}
	return sb.String()
}

// ErrorSet is a path-nested multiset of errors. Errors added directly to a set
// are at its root; errors added to the set returned by At are nested under
// that key.
//
// The zero value is not ready for use; call New to create one.
type ErrorSet struct {
	errs     []Error
	children map[any]*ErrorSet
	order    []any
}

// New returns an empty ErrorSet.
func New() *ErrorSet {
	return &ErrorSet{children: map[any]*ErrorSet{}}
}

// Add adds an error of the given type at the root of es. params may be nil.
// It returns es so that calls may be chained.
func (es *ErrorSet) Add(errType string, params Params) *ErrorSet {
	var p Params
	if len(params) > 0 {
		p = make(Params, len(params))
		for k, v := range params {
			p[k] = v
		}
	}
	es.errs = append(es.errs, Error{Type: errType, Params: p})
	return es
}

// At returns the set of errors nested under key. The nested set is created if
// it does not yet exist; errors added to it are part of es. Creating a nested
// set does not add any errors to es.
func (es *ErrorSet) At(key any) *ErrorSet {
	if es.children == nil {
		es.children = map[any]*ErrorSet{}
	}
	child, ok := es.children[key]
	if !ok {
		child = New()
		es.children[key] = child
		es.order = append(es.order, key)
	}
	return child
}

// Dig returns the set of errors nested under the given path, creating nested
// sets as needed. Dig with no keys returns es.
func (es *ErrorSet) Dig(path ...any) *ErrorSet {
	cur := es
	for _, key := range path {
		cur = cur.At(key)
	}
	return cur
}

// Count returns the total number of errors in es, including all nested
// errors.
func (es *ErrorSet) Count() int {
	if es == nil {
		return 0
	}
	n := len(es.errs)
	for _, child := range es.children {
		n += child.Count()
	}
	return n
}

// Empty returns whether es contains no errors at any level.
func (es *ErrorSet) Empty() bool {
	return es.Count() == 0
}

// All returns every error in es with Path set to its location relative to es.
// Errors at the root come first, in the order they were added, followed by
// the errors of each nested key in the order the keys were first used.
func (es *ErrorSet) All() []Error {
	var all []Error
	es.Each(func(e Error) {
		all = append(all, e)
	})
	return all
}

// Each calls fn with every error in es, in the order given by All.
func (es *ErrorSet) Each(fn func(Error)) {
	es.each(nil, fn)
}

func (es *ErrorSet) each(prefix Path, fn func(Error)) {
	if es == nil {
		return
	}
	for _, e := range es.errs {
		e.Path = append(Path{}, prefix...)
		fn(e)
	}
	for _, key := range es.order {
		childPath := append(append(Path{}, prefix...), key)
		es.children[key].each(childPath, fn)
	}
}

// Merge adds every error in other to es at the same relative path. A nil other
// is ignored.
func (es *ErrorSet) Merge(other *ErrorSet) *ErrorSet {
	if other == nil || other == es {
		return es
	}
	other.Each(func(e Error) {
		es.Dig(e.Path...).Add(e.Type, e.Params)
	})
	return es
}

// Has returns whether es contains an error of the given type at any level.
func (es *ErrorSet) Has(errType string) bool {
	found := false
	es.Each(func(e Error) {
		if e.Type == errType {
			found = true
		}
	})
	return found
}

// Types returns the type of every error in es, in the order given by All.
func (es *ErrorSet) Types() []string {
	var types []string
	es.Each(func(e Error) {
		types = append(types, e.Type)
	})
	return types
}

// Equal returns whether es and other hold the same errors at the same paths,
// regardless of the order they were added in. Nested sets that hold no errors
// do not affect equality.
func (es *ErrorSet) Equal(other *ErrorSet) bool {
	mine := es.All()
	theirs := other.All()
	if len(mine) != len(theirs) {
		return false
	}

	used := make([]bool, len(theirs))
	for _, e := range mine {
		matched := false
		for j, o := range theirs {
			if used[j] {
				continue
			}
			if e.Type == o.Type && values.Equal(e.Path, o.Path) && values.Equal(map[string]any(e.Params), map[string]any(o.Params)) {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Messages returns the String form of every error in es, sorted.
func (es *ErrorSet) Messages() []string {
	var msgs []string
	es.Each(func(e Error) {
		msgs = append(msgs, e.String())
	})
	sort.Strings(msgs)
	return msgs
}

// String returns all messages of es on a single line.
func (es *ErrorSet) String() string {
	if es.Empty() {
		return "no errors"
	}
	return strings.Join(es.Messages(), "; ")
}
