// Package query provides Query, an immutable and chainable pipeline of
// Criteria evaluated lazily against a source of raw records.
//
// Queries are built by chaining calls such as Matching and Limit, each of
// which returns a new Query and leaves its receiver unchanged. Nothing is read
// from the source until a terminal method such as Count or ToSlice is called.
// Criteria are applied strictly in the order they were chained; there is no
// planning or reordering, so q.Limit(2).Matching(s) limits the unfiltered
// records while q.Matching(s).Limit(2) limits the matching ones.
package query

import (
	"fmt"
	"strings"

	"github.com/dekarrin/cuttle"
)

// Source provides the records a Query is evaluated against. Records returns
// the records as they are at the time of the call; callers must not modify
// the returned records.
type Source interface {
	Records() []cuttle.Record
}

// Static is a Source over a fixed slice of records.
type Static []cuttle.Record

func (s Static) Records() []cuttle.Record {
	return s
}

// Query is a pipeline of Criteria over a Source. Terminal methods give results
// as entities of type E, produced by the Query's Transform.
//
// Query is a value type; copying one is safe, and no method modifies its
// receiver. The zero value is not usable except through None; use New or
// Records to create one.
type Query[E any] struct {
	source    Source
	transform cuttle.Transform[E]
	criteria  []Criterion
	none      bool
}

// New returns a Query over all records of src with no Criteria. If t is nil,
// records are returned as-is, which is only valid when E is cuttle.Record.
func New[E any](src Source, t cuttle.Transform[E]) Query[E] {
	return Query[E]{source: src, transform: t}
}

// Records returns a Query over src whose entities are the raw records.
func Records(src Source) Query[cuttle.Record] {
	return New[cuttle.Record](src, cuttle.IdentityTransform{})
}

// With returns a new Query with c appended to the pipeline.
func (q Query[E]) With(c Criterion) Query[E] {
	if c == nil {
		panic(cuttle.NewError("query: nil Criterion", cuttle.ErrBadArgument))
	}

	newCriteria := make([]Criterion, len(q.criteria), len(q.criteria)+1)
	copy(newCriteria, q.criteria)
	newCriteria = append(newCriteria, c)

	return Query[E]{
		source:    q.source,
		transform: q.transform,
		criteria:  newCriteria,
		none:      q.none,
	}
}

// Matching returns a new Query that keeps only the records that match sel.
// sel must not be nil; use an empty Selector to match everything.
func (q Query[E]) Matching(sel Selector) Query[E] {
	if sel == nil {
		panic(cuttle.NewError("query: Matching called with nil Selector", cuttle.ErrBadArgument))
	}

	// copy so that later changes to the caller's map do not leak in
	selCopy := make(Selector, len(sel))
	for k, v := range sel {
		selCopy[k] = v
	}
	return q.With(Match{Selector: selCopy})
}

// Limit returns a new Query that keeps at most n records. n must not be
// negative.
func (q Query[E]) Limit(n int) Query[E] {
	if n < 0 {
		panic(cuttle.NewError(fmt.Sprintf("query: negative limit %d", n), cuttle.ErrBadArgument))
	}
	return q.With(Limit{Count: n})
}

// Offset returns a new Query that skips the first n records. n must not be
// negative.
func (q Query[E]) Offset(n int) Query[E] {
	if n < 0 {
		panic(cuttle.NewError(fmt.Sprintf("query: negative offset %d", n), cuttle.ErrBadArgument))
	}
	return q.With(Offset{Count: n})
}

// OrderBy returns a new Query that sorts records by the given attributes. An
// attribute prefixed with "-" is sorted in descending order.
func (q Query[E]) OrderBy(attrs ...string) Query[E] {
	keys := make([]OrderKey, len(attrs))
	for i := range attrs {
		keys[i] = ParseOrderKey(attrs[i])
	}
	return q.With(Order{Keys: keys})
}

// None returns a Query that matches nothing. Its terminal methods return empty
// results without reading the source, and chaining further Criteria onto it
// gives another Query that matches nothing.
func (q Query[E]) None() Query[E] {
	return Query[E]{
		source:    q.source,
		transform: q.transform,
		none:      true,
	}
}

// IsNone returns whether q is a Query that matches nothing.
func (q Query[E]) IsNone() bool {
	return q.none
}

// Criteria returns a copy of the pipeline of q.
func (q Query[E]) Criteria() []Criterion {
	cp := make([]Criterion, len(q.criteria))
	copy(cp, q.criteria)
	return cp
}

// evaluate runs the pipeline and returns the surviving records. The returned
// slice may share memory with the source and must not be modified.
func (q Query[E]) evaluate() []cuttle.Record {
	if q.none {
		return nil
	}
	if q.source == nil {
		panic(cuttle.Uninitialized("query.Query"))
	}

	records := q.source.Records()
	for _, c := range q.criteria {
		records = c.Apply(records)
	}
	return records
}

func (q Query[E]) denormalize(rec cuttle.Record) E {
	if q.transform != nil {
		return q.transform.Denormalize(rec)
	}
	e, ok := any(rec.Copy()).(E)
	if !ok {
		var zero E
		panic(cuttle.NewError(fmt.Sprintf("query: no Transform to produce %T from a record", zero), cuttle.ErrUninitialized))
	}
	return e
}

// Count returns the number of records the Query matches.
func (q Query[E]) Count() int {
	return len(q.evaluate())
}

// Exists returns whether the Query matches at least one record.
func (q Query[E]) Exists() bool {
	return q.Count() > 0
}

// Records returns copies of the raw records the Query matches.
func (q Query[E]) Records() []cuttle.Record {
	matched := q.evaluate()
	out := make([]cuttle.Record, len(matched))
	for i := range matched {
		out[i] = matched[i].Copy()
	}
	return out
}

// ToSlice returns the entities the Query matches, in pipeline order.
func (q Query[E]) ToSlice() []E {
	matched := q.evaluate()
	out := make([]E, len(matched))
	for i := range matched {
		out[i] = q.denormalize(matched[i])
	}
	return out
}

// One returns the first entity the Query matches. It is equivalent to taking
// the first element of q.Limit(1).ToSlice(). If nothing matches, the zero
// value of E and false are returned.
func (q Query[E]) One() (E, bool) {
	found := q.Limit(1).ToSlice()
	if len(found) == 0 {
		var zero E
		return zero, false
	}
	return found[0], true
}

// Each calls fn with every entity the Query matches, in order, until fn
// returns false.
func (q Query[E]) Each(fn func(E) bool) {
	for _, rec := range q.evaluate() {
		if !fn(q.denormalize(rec)) {
			return
		}
	}
}

// Pluck returns the value of attr in each matched record, in order. Records
// without attr give nil.
func (q Query[E]) Pluck(attr string) []any {
	matched := q.evaluate()
	out := make([]any, len(matched))
	for i := range matched {
		out[i] = matched[i][attr]
	}
	return out
}

// String returns a description of the pipeline of q.
func (q Query[E]) String() string {
	if q.none {
		return "QUERY[NONE]"
	}
	if len(q.criteria) == 0 {
		return "QUERY[ALL]"
	}

	parts := make([]string, len(q.criteria))
	for i := range q.criteria {
		parts[i] = q.criteria[i].String()
	}
	return "QUERY[" + strings.Join(parts, " -> ") + "]"
}
