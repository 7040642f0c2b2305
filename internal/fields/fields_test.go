package fields

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type testAuthor struct {
	Name string
}

type testPost struct {
	ID       uuid.UUID `cuttle:"id"`
	Title    string
	AuthorID int
	Tags     []string
	Author   *testAuthor
	Secret   string `cuttle:"-"`
	internal string
}

func (p testPost) Slug() string {
	return "slug-" + p.Title
}

func Test_Maps_Get(t *testing.T) {
	type namedMap map[string]any

	testCases := []struct {
		name        string
		obj         any
		key         any
		expect      any
		expectFound bool
	}{
		{name: "present key", obj: map[string]any{"title": "A"}, key: "title", expect: "A", expectFound: true},
		{name: "missing key", obj: map[string]any{"title": "A"}, key: "body", expectFound: false},
		{name: "named map type", obj: namedMap{"title": "A"}, key: "title", expect: "A", expectFound: true},
		{name: "typed map", obj: map[string]int{"n": 3}, key: "n", expect: 3, expectFound: true},
		{name: "int key indexes slice", obj: []any{"x", "y"}, key: 1, expect: "y", expectFound: true},
		{name: "int key out of range", obj: []any{"x"}, key: 4, expectFound: false},
		{name: "struct is not read", obj: testPost{Title: "A"}, key: "title", expectFound: false},
		{name: "nil obj", obj: nil, key: "title", expectFound: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, found := Maps.Get(tc.obj, tc.key)

			assert.Equal(tc.expectFound, found)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Structs_Get(t *testing.T) {
	post := testPost{Title: "A", AuthorID: 413, Author: &testAuthor{Name: "rose"}}

	testCases := []struct {
		name        string
		obj         any
		key         any
		expect      any
		expectFound bool
	}{
		{name: "field by snake name", obj: post, key: "author_id", expect: 413, expectFound: true},
		{name: "field by go name", obj: post, key: "AuthorID", expect: 413, expectFound: true},
		{name: "through pointer", obj: &post, key: "title", expect: "A", expectFound: true},
		{name: "method", obj: post, key: "slug", expect: "slug-A", expectFound: true},
		{name: "skipped field", obj: post, key: "secret", expectFound: false},
		{name: "unexported field", obj: post, key: "internal", expectFound: false},
		{name: "map is not read", obj: map[string]any{"title": "A"}, key: "title", expectFound: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, found := Structs.Get(tc.obj, tc.key)

			assert.Equal(tc.expectFound, found)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Dig(t *testing.T) {
	obj := map[string]any{
		"articles": []any{
			map[string]any{"title": "first"},
			map[string]any{"title": "second"},
		},
	}

	t.Run("multi-level path", func(t *testing.T) {
		assert := assert.New(t)

		parent, value := Dig(Maps, obj, []any{"articles", 1, "title"})

		assert.Equal("second", value)
		assert.Equal(map[string]any{"title": "second"}, parent)
	})

	t.Run("missing midway gives nil", func(t *testing.T) {
		assert := assert.New(t)

		_, value := Dig(Maps, obj, []any{"comments", 0, "body"})

		assert.Nil(value)
	})

	t.Run("empty path gives obj", func(t *testing.T) {
		assert := assert.New(t)

		parent, value := Dig(Maps, obj, nil)

		assert.Equal(obj, value)
		assert.Equal(obj, parent)
	})
}

func Test_ToRecord_FromRecord(t *testing.T) {
	id := uuid.MustParse("82779fe7-d681-427d-a011-4954b6a7ec01")

	t.Run("struct to record", func(t *testing.T) {
		assert := assert.New(t)

		rec, err := ToRecord(&testPost{ID: id, Title: "A", AuthorID: 2, Secret: "s"})
		if !assert.NoError(err) {
			return
		}

		assert.Equal(id, rec["id"])
		assert.Equal("A", rec["title"])
		assert.Equal(2, rec["author_id"])
		assert.NotContains(rec, "secret")
		assert.NotContains(rec, "internal")
	})

	t.Run("non-struct is an error", func(t *testing.T) {
		_, err := ToRecord(12)
		assert.Error(t, err)
	})

	t.Run("record to struct converts values", func(t *testing.T) {
		assert := assert.New(t)

		var p testPost
		err := FromRecord(map[string]any{
			"id":        id.String(),
			"title":     "B",
			"author_id": 7.0,
			"tags":      []string{"x"},
		}, &p)

		assert.NoError(err)
		assert.Equal(id, p.ID)
		assert.Equal("B", p.Title)
		assert.Equal(7, p.AuthorID)
		assert.Equal([]string{"x"}, p.Tags)
	})

	t.Run("unassignable value is reported and skipped", func(t *testing.T) {
		assert := assert.New(t)

		var p testPost
		err := FromRecord(map[string]any{"title": 3, "author_id": 1}, &p)

		assert.Error(err)
		assert.Equal("", p.Title)
		assert.Equal(1, p.AuthorID)
	})
}

func Test_FromRecord_Numbers(t *testing.T) {
	type counters struct {
		Count int
		Small int8
		Size  uint
		Ratio float32
	}

	testCases := []struct {
		name      string
		rec       map[string]any
		expect    counters
		expectErr bool
	}{
		{name: "whole float to int", rec: map[string]any{"count": 2.0}, expect: counters{Count: 2}},
		{name: "fractional float to int", rec: map[string]any{"count": 2.75}, expectErr: true},
		{name: "float past int range", rec: map[string]any{"count": 1e19}, expectErr: true},
		{name: "int to int8", rec: map[string]any{"small": 100}, expect: counters{Small: 100}},
		{name: "int overflows int8", rec: map[string]any{"small": 300}, expectErr: true},
		{name: "int to uint", rec: map[string]any{"size": 4}, expect: counters{Size: 4}},
		{name: "negative int to uint", rec: map[string]any{"size": -1}, expectErr: true},
		{name: "negative float to uint", rec: map[string]any{"size": -1.0}, expectErr: true},
		{name: "uint past int range", rec: map[string]any{"count": uint64(1 << 63)}, expectErr: true},
		{name: "int to float", rec: map[string]any{"ratio": 3}, expect: counters{Ratio: 3}},
		{name: "float64 overflows float32", rec: map[string]any{"ratio": 1e300}, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			var c counters
			err := FromRecord(tc.rec, &c)

			if tc.expectErr {
				assert.Error(err)
				assert.Equal(counters{}, c)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, c)
		})
	}
}
