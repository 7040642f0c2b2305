package query

import (
	"testing"

	"github.com/dekarrin/cuttle"
	"github.com/stretchr/testify/assert"
)

func Test_Selector_Matches(t *testing.T) {
	rec := cuttle.Record{"id": "1", "title": "A", "views": 3, "status": "draft"}

	testCases := []struct {
		name   string
		sel    Selector
		expect bool
	}{
		{name: "empty selector", sel: Selector{}, expect: true},
		{name: "single key match", sel: Selector{"title": "A"}, expect: true},
		{name: "single key mismatch", sel: Selector{"title": "B"}, expect: false},
		{name: "numeric kinds compare by value", sel: Selector{"views": 3.0}, expect: true},
		{name: "superset match", sel: Selector{"title": "A", "id": "1"}, expect: true},
		{name: "one of many keys mismatch", sel: Selector{"title": "A", "id": "2"}, expect: false},
		{name: "missing key never matches", sel: Selector{"author": nil}, expect: false},
		{name: "in operator hit", sel: Selector{"status__in": []any{"draft", "review"}}, expect: true},
		{name: "in operator typed slice", sel: Selector{"status__in": []string{"review", "draft"}}, expect: true},
		{name: "in operator miss", sel: Selector{"status__in": []any{"published"}}, expect: false},
		{name: "in operator empty list", sel: Selector{"status__in": []any{}}, expect: false},
		{name: "in operator on missing field", sel: Selector{"author__in": []any{nil}}, expect: false},
		{name: "bare suffix is a plain key", sel: Selector{"__in": "x"}, expect: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := tc.sel.Matches(rec)

			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_AsSelector(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		expectOK bool
	}{
		{name: "selector", input: Selector{"a": 1}, expectOK: true},
		{name: "plain map", input: map[string]any{"a": 1}, expectOK: true},
		{name: "record", input: cuttle.Record{"a": 1}, expectOK: true},
		{name: "nil map", input: map[string]any(nil), expectOK: false},
		{name: "nil", input: nil, expectOK: false},
		{name: "string", input: "title=A", expectOK: false},
		{name: "int-keyed map", input: map[int]any{1: 1}, expectOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := AsSelector(tc.input)

			assert.Equal(t, tc.expectOK, ok)
		})
	}
}

func Test_Criterion_Apply(t *testing.T) {
	records := []cuttle.Record{
		{"id": "1", "title": "C", "rank": 2},
		{"id": "2", "title": "A", "rank": 1},
		{"id": "3", "title": "B"},
		{"id": "4", "title": "A", "rank": 3},
	}

	ids := func(recs []cuttle.Record) []any {
		out := []any{}
		for _, r := range recs {
			out = append(out, r["id"])
		}
		return out
	}

	testCases := []struct {
		name   string
		c      Criterion
		expect []any
	}{
		{name: "match", c: Match{Selector: Selector{"title": "A"}}, expect: []any{"2", "4"}},
		{name: "match nothing", c: Match{Selector: Selector{"title": "Z"}}, expect: []any{}},
		{name: "limit", c: Limit{Count: 2}, expect: []any{"1", "2"}},
		{name: "limit zero", c: Limit{Count: 0}, expect: []any{}},
		{name: "limit over length", c: Limit{Count: 10}, expect: []any{"1", "2", "3", "4"}},
		{name: "offset", c: Offset{Count: 3}, expect: []any{"4"}},
		{name: "offset past end", c: Offset{Count: 8}, expect: []any{}},
		{name: "order ascending, nil first", c: Order{Keys: []OrderKey{{Attribute: "rank"}}}, expect: []any{"3", "2", "1", "4"}},
		{name: "order descending", c: Order{Keys: []OrderKey{ParseOrderKey("-rank")}}, expect: []any{"4", "1", "2", "3"}},
		{name: "order is stable on ties", c: Order{Keys: []OrderKey{{Attribute: "title"}}}, expect: []any{"2", "4", "3", "1"}},
		{name: "order by two keys", c: Order{Keys: []OrderKey{{Attribute: "title"}, {Attribute: "rank", Descending: true}}}, expect: []any{"4", "2", "3", "1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			input := make([]cuttle.Record, len(records))
			copy(input, records)

			actual := tc.c.Apply(input)

			assert.Equal(tc.expect, ids(actual))
			assert.Equal(records, input, "input was modified")
		})
	}
}

func Test_Criterion_String(t *testing.T) {
	testCases := []struct {
		name   string
		c      Criterion
		expect string
	}{
		{name: "match", c: Match{Selector: Selector{"title": "A", "id": 1}}, expect: `MATCH {id: 1, title: "A"}`},
		{name: "empty match", c: Match{Selector: Selector{}}, expect: "MATCH {}"},
		{name: "limit", c: Limit{Count: 4}, expect: "LIMIT 4"},
		{name: "offset", c: Offset{Count: 2}, expect: "OFFSET 2"},
		{name: "order", c: Order{Keys: []OrderKey{ParseOrderKey("-rank"), ParseOrderKey("title")}}, expect: "ORDER BY rank DESC, title ASC"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.c.String())
		})
	}
}
