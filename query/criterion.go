package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/internal/values"
)

// OpIn is the selector key suffix that matches a field against a list of
// allowed values; "status__in": []any{"draft", "review"} matches records
// whose status is either of those.
const OpIn = "__in"

// Selector describes a superset match against record fields. A record
// matches a Selector if it has every key of the Selector and the value under
// each key equals the Selector's value. The empty Selector matches every
// record.
type Selector map[string]any

// AsSelector returns v as a Selector if it has the shape of one.
func AsSelector(v any) (Selector, bool) {
	switch typed := v.(type) {
	case Selector:
		return typed, typed != nil
	case map[string]any:
		return Selector(typed), typed != nil
	case cuttle.Record:
		return Selector(typed), typed != nil
	default:
		return nil, false
	}
}

// Matches returns whether rec contains every key/value pair of sel.
func (sel Selector) Matches(rec cuttle.Record) bool {
	for key, expected := range sel {
		if field, ok := strings.CutSuffix(key, OpIn); ok && field != "" {
			actual, present := rec[field]
			if !present || !containedBy(actual, expected) {
				return false
			}
			continue
		}

		actual, present := rec[key]
		if !present || !values.Equal(actual, expected) {
			return false
		}
	}
	return true
}

func (sel Selector) String() string {
	if len(sel) == 0 {
		return "{}"
	}

	var sb strings.Builder
	sb.WriteRune('{')
	for i, k := range values.SortedKeys(sel) {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s: %#v", k, sel[k]))
	}
	sb.WriteRune('}')
	return sb.String()
}

func containedBy(v any, list any) bool {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return values.Equal(v, list)
	}
	for i := 0; i < rv.Len(); i++ {
		if values.Equal(v, rv.Index(i).Interface()) {
			return true
		}
	}
	return false
}

// Criterion is a single step of a Query pipeline. Apply returns the records
// that remain after the step; it never modifies the slice it is given.
//
// String gives a human-readable description of the step. Two Criteria with
// the same String should produce the same output from the same input.
type Criterion interface {
	Apply(records []cuttle.Record) []cuttle.Record
	String() string
}

// Match keeps only the records that match its Selector.
type Match struct {
	Selector Selector
}

func (m Match) Apply(records []cuttle.Record) []cuttle.Record {
	var kept []cuttle.Record
	for _, rec := range records {
		if m.Selector.Matches(rec) {
			kept = append(kept, rec)
		}
	}
	return kept
}

func (m Match) String() string {
	return "MATCH " + m.Selector.String()
}

// Limit keeps at most Count records, preserving their order.
type Limit struct {
	Count int
}

func (l Limit) Apply(records []cuttle.Record) []cuttle.Record {
	if l.Count >= len(records) {
		return records
	}
	if l.Count <= 0 {
		return nil
	}
	return records[:l.Count:l.Count]
}

func (l Limit) String() string {
	return fmt.Sprintf("LIMIT %d", l.Count)
}

// Offset drops the first Count records.
type Offset struct {
	Count int
}

func (o Offset) Apply(records []cuttle.Record) []cuttle.Record {
	if o.Count <= 0 {
		return records
	}
	if o.Count >= len(records) {
		return nil
	}
	return records[o.Count:]
}

func (o Offset) String() string {
	return fmt.Sprintf("OFFSET %d", o.Count)
}

// OrderKey is a single attribute to order records by.
type OrderKey struct {
	Attribute  string
	Descending bool
}

// ParseOrderKey parses "attr" as an ascending key and "-attr" as a descending
// one.
func ParseOrderKey(s string) OrderKey {
	if attr, ok := strings.CutPrefix(s, "-"); ok {
		return OrderKey{Attribute: attr, Descending: true}
	}
	return OrderKey{Attribute: s}
}

func (k OrderKey) String() string {
	if k.Descending {
		return k.Attribute + " DESC"
	}
	return k.Attribute + " ASC"
}

// Order sorts records by each of its Keys in turn. The sort is stable, so
// records that are equal on every key keep their original order. Missing and
// nil attributes sort before all others.
type Order struct {
	Keys []OrderKey
}

func (o Order) Apply(records []cuttle.Record) []cuttle.Record {
	if len(o.Keys) == 0 {
		return records
	}
	return values.SortBy(records, func(left, right cuttle.Record) bool {
		for _, k := range o.Keys {
			c := values.Compare(left[k.Attribute], right[k.Attribute])
			if c == 0 {
				continue
			}
			if k.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func (o Order) String() string {
	parts := make([]string, len(o.Keys))
	for i := range o.Keys {
		parts[i] = o.Keys[i].String()
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}
