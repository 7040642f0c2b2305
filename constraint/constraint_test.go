package constraint

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/dekarrin/cuttle/errorset"
	"github.com/stretchr/testify/assert"
)

func Test_Basic(t *testing.T) {
	type widget struct{ Name string }

	shared := &widget{Name: "a"}
	sharedMap := map[string]any{"a": 1}
	var nilPtr *widget

	testCases := []struct {
		name             string
		c                Basic
		input            any
		expectMatch      bool
		expectErr        string
		expectNegatedErr string
		expectParams     errorset.Params
	}{
		{name: "nil/nil", c: Nil(), input: nil, expectMatch: true, expectNegatedErr: NilError},
		{name: "nil/typed nil pointer", c: Nil(), input: nilPtr, expectMatch: true, expectNegatedErr: NilError},
		{name: "nil/zero int", c: Nil(), input: 0, expectMatch: false, expectErr: NotNilError},
		{name: "present/string", c: Present(), input: "x", expectMatch: true, expectNegatedErr: NotEmptyError},
		{name: "present/empty string", c: Present(), input: "", expectMatch: false, expectErr: EmptyError},
		{name: "present/nil", c: Present(), input: nil, expectMatch: false, expectErr: EmptyError},
		{name: "present/empty slice", c: Present(), input: []int{}, expectMatch: false, expectErr: EmptyError},
		{name: "present/empty map", c: Present(), input: map[string]any{}, expectMatch: false, expectErr: EmptyError},
		{name: "present/zero int", c: Present(), input: 0, expectMatch: true, expectNegatedErr: NotEmptyError},
		{
			name: "equal/same", c: Equal(3), input: 3.0, expectMatch: true,
			expectNegatedErr: EqualToError, expectParams: errorset.Params{"value": 3},
		},
		{
			name: "equal/different", c: Equal("a"), input: "b", expectMatch: false,
			expectErr: NotEqualToError, expectParams: errorset.Params{"value": "a"},
		},
		{
			name: "equal/deep", c: Equal([]any{1, "x"}), input: []any{1.0, "x"}, expectMatch: true,
			expectNegatedErr: EqualToError, expectParams: errorset.Params{"value": []any{1, "x"}},
		},
		{
			name: "identical/same pointer", c: Identical(shared), input: shared, expectMatch: true,
			expectNegatedErr: IdenticalToError, expectParams: errorset.Params{"value": shared},
		},
		{
			name: "identical/equal copy", c: Identical(shared), input: &widget{Name: "a"}, expectMatch: false,
			expectErr: NotIdenticalToError, expectParams: errorset.Params{"value": shared},
		},
		{
			name: "identical/same map", c: Identical(sharedMap), input: sharedMap, expectMatch: true,
			expectNegatedErr: IdenticalToError, expectParams: errorset.Params{"value": sharedMap},
		},
		{
			name: "type/exact", c: TypeOf[string](), input: "s", expectMatch: true,
			expectNegatedErr: KindOfError, expectParams: errorset.Params{"type": "string"},
		},
		{
			name: "type/mismatch", c: TypeOf[string](), input: 4, expectMatch: false,
			expectErr: NotKindOfError, expectParams: errorset.Params{"type": "string"},
		},
		{
			name: "type/interface", c: TypeOf[io.Reader](), input: strings.NewReader(""), expectMatch: true,
			expectNegatedErr: KindOfError, expectParams: errorset.Params{"type": "io.Reader"},
		},
		{
			name: "type/nil not allowed", c: TypeOf[string](), input: nil, expectMatch: false,
			expectErr: NotKindOfError, expectParams: errorset.Params{"type": "string"},
		},
		{
			name: "type/nil allowed", c: TypeOf[string]().AllowNil(), input: nil, expectMatch: true,
			expectNegatedErr: KindOfError, expectParams: errorset.Params{"type": "string"},
		},
		{
			name: "type/pointer", c: KindOf(reflect.TypeOf(&widget{})), input: shared, expectMatch: true,
			expectNegatedErr: KindOfError, expectParams: errorset.Params{"type": "*constraint.widget"},
		},
		{
			name: "block/true", c: Satisfies(func(v any) bool { return v == "ok" }), input: "ok", expectMatch: true,
			expectNegatedErr: SatisfyBlockError,
		},
		{
			name: "block/false", c: Satisfies(func(v any) bool { return v == "ok" }), input: "no", expectMatch: false,
			expectErr: NotSatisfyBlockError,
		},
		{
			name: "custom error type", c: Present().WithErrorType("errors.title_blank"), input: "", expectMatch: false,
			expectErr: "errors.title_blank",
		},
		{
			name: "custom negated error type", c: Nil().WithNegatedErrorType("errors.must_be_set"), input: nil, expectMatch: true,
			expectNegatedErr: "errors.must_be_set",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			ok, errs := tc.c.Match(tc.input)
			negOK, negErrs := tc.c.NegatedMatch(tc.input)

			assert.Equal(tc.expectMatch, ok)
			assert.NotEqual(ok, negOK, "match and negated match agree")

			var failed *errorset.ErrorSet
			var expectType string
			if tc.expectMatch {
				assert.True(errs.Empty())
				failed, expectType = negErrs, tc.expectNegatedErr
			} else {
				assert.True(negErrs.Empty())
				failed, expectType = errs, tc.expectErr
			}

			all := failed.All()
			if assert.Len(all, 1) {
				assert.Equal(expectType, all[0].Type)
				assert.Equal(tc.expectParams, all[0].Params)
				assert.Empty(all[0].Path)
			}
		})
	}
}

func Test_Basic_Invalid(t *testing.T) {
	assert.Panics(t, func() { KindOf(nil) })
	assert.Panics(t, func() { Satisfies(nil) })
	assert.Panics(t, func() { Basic{}.Match(1) })
}

func Test_Basic_String(t *testing.T) {
	testCases := []struct {
		c      Basic
		expect string
	}{
		{c: Present(), expect: "present"},
		{c: Equal("a"), expect: `equal("a")`},
		{c: TypeOf[int](), expect: "type(int)"},
	}

	for _, tc := range testCases {
		t.Run(tc.expect, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.c.String())
		})
	}
}

func Test_Contextual(t *testing.T) {
	obj := map[string]any{
		"title": "",
		"author": map[string]any{
			"name": "rose",
		},
		"articles": []any{
			map[string]any{"title": "first"},
			map[string]any{"title": ""},
		},
	}

	t.Run("path extraction nests errors", func(t *testing.T) {
		assert := assert.New(t)

		ok, errs := On(Present(), "articles", 1, "title").Match(obj)

		assert.False(ok)
		assert.Equal([]errorset.Error{
			{Type: EmptyError, Path: errorset.Path{"articles", 1, "title"}},
		}, errs.All())
	})

	t.Run("missing property is nil", func(t *testing.T) {
		assert := assert.New(t)

		ok, errs := On(Nil(), "editor", "name").Match(obj)

		assert.True(ok)
		assert.True(errs.Empty())
	})

	t.Run("empty path checks the object", func(t *testing.T) {
		ok, _ := On(TypeOf[map[string]any]()).Match(obj)
		assert.True(t, ok)
	})

	t.Run("negated flag flips direction", func(t *testing.T) {
		assert := assert.New(t)

		cc := On(Present(), "title")
		cc.Negated = true

		ok, errs := cc.Match(obj)
		assert.True(ok)
		assert.True(errs.Empty())

		ok, errs = cc.NegatedMatch(obj)
		assert.False(ok)
		assert.Equal([]string{EmptyError}, errs.Types())
	})

	t.Run("guard arguments", func(t *testing.T) {
		assert := assert.New(t)

		var gotValue, gotKey, gotColl any
		var gotProp string
		cc := On(Present(), "author", "name")
		cc.If = func(value, key, collection any, property string) bool {
			gotValue, gotKey, gotColl, gotProp = value, key, collection, property
			return true
		}

		cc.Match(obj)

		assert.Equal("rose", gotValue)
		assert.Equal("name", gotKey)
		assert.Equal(map[string]any{"name": "rose"}, gotColl)
		assert.Equal("author.name", gotProp)
	})

	testGuards := []struct {
		name   string
		ifG    Guard
		unless Guard
		expect bool
	}{
		{name: "if false suppresses", ifG: func(_, _, _ any, _ string) bool { return false }, expect: true},
		{name: "if true applies", ifG: func(_, _, _ any, _ string) bool { return true }, expect: false},
		{name: "unless true suppresses", unless: func(_, _, _ any, _ string) bool { return true }, expect: true},
		{name: "unless false applies", unless: func(_, _, _ any, _ string) bool { return false }, expect: false},
	}
	for _, tc := range testGuards {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			cc := On(Present(), "title")
			cc.If = tc.ifG
			cc.Unless = tc.unless

			ok, errs := cc.Match(obj)
			negOK, negErrs := cc.NegatedMatch(obj)

			assert.Equal(tc.expect, ok)
			assert.Equal(tc.expect, errs.Empty())
			if tc.expect {
				// suppressed in both directions
				assert.True(negOK)
				assert.True(negErrs.Empty())
			}
		})
	}

	t.Run("struct accessor", func(t *testing.T) {
		type author struct{ Name string }
		type post struct {
			Title  string
			Author author
		}

		cc := On(Equal("rose"), "author", "name")
		cc.Accessor = StructAccessor

		ok, _ := cc.Match(post{Author: author{Name: "rose"}})
		assert.True(t, ok)

		cc.Accessor = MapAccessor
		ok, _ = cc.Match(post{Author: author{Name: "rose"}})
		assert.False(t, ok)
	})

	t.Run("nil constraint panics", func(t *testing.T) {
		assert.Panics(t, func() { Contextual{}.Match(obj) })
	})
}

func Test_Each(t *testing.T) {
	testCases := []struct {
		name         string
		input        any
		expectOK     bool
		expectErrors []errorset.Error
	}{
		{name: "empty slice", input: []any{}, expectOK: true},
		{name: "empty map", input: map[string]any{}, expectOK: true},
		{name: "nil typed slice", input: []string(nil), expectOK: true},
		{name: "all pass", input: []string{"a", "b"}, expectOK: true},
		{
			name:     "failures nest by index",
			input:    []any{"a", "", nil},
			expectOK: false,
			expectErrors: []errorset.Error{
				{Type: EmptyError, Path: errorset.Path{1}},
				{Type: EmptyError, Path: errorset.Path{2}},
			},
		},
		{
			name:     "map failures nest by sorted key",
			input:    map[string]any{"z": "", "a": "", "m": "ok"},
			expectOK: false,
			expectErrors: []errorset.Error{
				{Type: EmptyError, Path: errorset.Path{"a"}},
				{Type: EmptyError, Path: errorset.Path{"z"}},
			},
		},
		{
			name:     "array",
			input:    [2]string{"", "x"},
			expectOK: false,
			expectErrors: []errorset.Error{
				{Type: EmptyError, Path: errorset.Path{0}},
			},
		},
		{
			name:     "nil is not a collection",
			input:    nil,
			expectOK: false,
			expectErrors: []errorset.Error{
				{Type: NotACollectionError, Params: errorset.Params{"type": "<nil>"}, Path: errorset.Path{}},
			},
		},
		{
			name:     "string is not a collection",
			input:    "abc",
			expectOK: false,
			expectErrors: []errorset.Error{
				{Type: NotACollectionError, Params: errorset.Params{"type": "string"}, Path: errorset.Path{}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			ok, errs := Each(Present()).Match(tc.input)

			assert.Equal(tc.expectOK, ok)
			assert.Equal(tc.expectErrors, errs.All())
		})
	}
}

func Test_Each_AnyConstraintOnEmpty(t *testing.T) {
	never := Satisfies(func(any) bool { return false })
	always := Satisfies(func(any) bool { return true })

	for _, c := range []Constraint{never, always, Nil(), Equal(1), NewContract().AddConstraint(never)} {
		t.Run(fmt.Sprintf("%T", c), func(t *testing.T) {
			assert := assert.New(t)

			ok, _ := Each(c).Match([]any{})
			assert.True(ok)
			ok, _ = Each(c).Match(map[string]any{})
			assert.True(ok)
		})
	}
}

func Test_Each_Guards(t *testing.T) {
	t.Run("guards apply per element", func(t *testing.T) {
		assert := assert.New(t)

		cc := On(Present(), "tags")
		cc.Each = true
		cc.Unless = func(value, key, collection any, property string) bool {
			return key == 0
		}

		ok, errs := cc.Match(map[string]any{"tags": []any{"", "", "x"}})

		assert.False(ok)
		assert.Equal([]errorset.Error{
			{Type: EmptyError, Path: errorset.Path{"tags", 1}},
		}, errs.All())
	})

	t.Run("guard receives element context", func(t *testing.T) {
		assert := assert.New(t)

		tags := []any{"a"}
		var gotColl any
		var gotProp string
		cc := On(Present(), "tags")
		cc.Each = true
		cc.If = func(value, key, collection any, property string) bool {
			gotColl, gotProp = collection, property
			return true
		}

		cc.Match(map[string]any{"tags": tags})

		assert.Equal(tags, gotColl)
		assert.Equal("tags", gotProp)
	})

	t.Run("not a collection ignores guards", func(t *testing.T) {
		assert := assert.New(t)

		cc := Each(Present())
		cc.If = func(_, _, _ any, _ string) bool { return false }

		ok, errs := cc.Match(5)
		assert.False(ok)
		assert.Equal([]string{NotACollectionError}, errs.Types())

		ok, errs = cc.NegatedMatch(5)
		assert.False(ok)
		assert.Equal([]string{NotACollectionError}, errs.Types())
	})

	t.Run("negated each", func(t *testing.T) {
		assert := assert.New(t)

		ok, errs := Each(Nil()).NegatedMatch([]any{1, nil})

		assert.False(ok)
		assert.Equal([]errorset.Error{
			{Type: NilError, Path: errorset.Path{1}},
		}, errs.All())
	})
}
