package cuttle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Record_Merge(t *testing.T) {
	assert := assert.New(t)

	base := Record{"id": 1, "title": "A"}
	attrs := Record{"title": "B", "rank": 2}

	merged := base.Merge(attrs)

	assert.Equal(Record{"id": 1, "title": "B", "rank": 2}, merged)
	assert.Equal(Record{"id": 1, "title": "A"}, base)
	assert.Equal(Record{"title": "B", "rank": 2}, attrs)
}

func Test_AsRecord(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		expectOK bool
	}{
		{name: "Record", input: Record{"id": 1}, expectOK: true},
		{name: "map", input: map[string]any{"id": 1}, expectOK: true},
		{name: "empty map", input: map[string]any{}, expectOK: true},
		{name: "nil Record", input: Record(nil), expectOK: false},
		{name: "nil map", input: map[string]any(nil), expectOK: false},
		{name: "other map type", input: map[string]string{"id": "1"}, expectOK: false},
		{name: "nil", input: nil, expectOK: false},
		{name: "string", input: "id", expectOK: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := AsRecord(tc.input)
			assert.Equal(t, tc.expectOK, ok)
		})
	}
}

type testArticle struct {
	ID         int `cuttle:"id"`
	Title      string
	AuthorName string
	Secret     string `cuttle:"-"`
}

func Test_StructTransform(t *testing.T) {
	t.Run("value entities", func(t *testing.T) {
		assert := assert.New(t)
		tr := StructTransform[testArticle]{}

		rec, err := tr.Normalize(testArticle{ID: 8, Title: "A", AuthorName: "Rose", Secret: "x"})
		if !assert.NoError(err) {
			return
		}
		assert.Equal(Record{"id": 8, "title": "A", "author_name": "Rose"}, rec)

		assert.Equal(testArticle{ID: 8, Title: "A", AuthorName: "Rose"}, tr.Denormalize(rec))
	})

	t.Run("pointer entities", func(t *testing.T) {
		assert := assert.New(t)
		tr := StructTransform[*testArticle]{}

		actual := tr.Denormalize(Record{"id": 3, "title": "B"})

		if !assert.NotNil(actual) {
			return
		}
		assert.Equal(testArticle{ID: 3, Title: "B"}, *actual)
	})

	t.Run("unassignable field is an error", func(t *testing.T) {
		assert := assert.New(t)
		tr := StructTransform[testArticle]{}

		actual, err := tr.DenormalizeErr(Record{"id": 2.5, "title": "C"})

		assert.ErrorIs(err, ErrDecodingFailure)
		assert.ErrorContains(err, "id:")
		assert.Equal(testArticle{Title: "C"}, actual)
	})

	t.Run("unassignable field is logged", func(t *testing.T) {
		assert := assert.New(t)
		log := &warnRecorder{}
		tr := StructTransform[testArticle]{Log: log}

		actual := tr.Denormalize(Record{"id": "eight", "title": "D"})

		assert.Equal(testArticle{Title: "D"}, actual)
		if assert.Len(log.warnings, 1) {
			assert.Contains(log.warnings[0], "denormalize cuttle.testArticle")
		}

		tr.Denormalize(Record{"id": 8})
		assert.Len(log.warnings, 1)
	})
}

// warnRecorder keeps the messages given to Warnf. Any other Logger method
// panics.
type warnRecorder struct {
	Logger
	warnings []string
}

func (wr *warnRecorder) Warnf(format string, a ...any) {
	wr.warnings = append(wr.warnings, fmt.Sprintf(format, a...))
}

func Test_IdentityTransform(t *testing.T) {
	assert := assert.New(t)
	tr := IdentityTransform{}

	input := Record{"id": 1}
	rec, err := tr.Normalize(input)
	assert.NoError(err)

	rec["id"] = 2
	assert.Equal(Record{"id": 1}, input)

	_, err = tr.Normalize(nil)
	assert.ErrorIs(err, ErrBadArgument)
}
