// Package dbconv contains Converters for changing between cuttle records and
// the representations persistence backends store them in.
package dbconv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/dekarrin/cuttle"
)

// Converter holds functions to convert a value to and from its stored
// representation. The type param N is the native type and DB is the type in the
// backend.
type Converter[N any, DB any] struct {
	ToDB   func(N) (DB, error)
	FromDB func(DB) (N, error)
}

// Record converts records to JSON text. Numbers that are integral and fit in an
// int are decoded as int, all others as float64; values that JSON has no type
// for, such as time.Time or uuid.UUID, come back in their text form.
var Record = Converter[cuttle.Record, string]{
	ToDB: func(rec cuttle.Record) (string, error) {
		if rec == nil {
			return "", cuttle.NewError("cannot encode nil record", cuttle.ErrBadArgument)
		}
		data, err := json.Marshal(map[string]any(rec))
		if err != nil {
			return "", cuttle.NewError("encode record", err, cuttle.ErrBadArgument)
		}
		return string(data), nil
	},
	FromDB: func(s string) (cuttle.Record, error) {
		dec := json.NewDecoder(bytes.NewBufferString(s))
		dec.UseNumber()

		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, cuttle.NewError("decode record", err, cuttle.ErrDecodingFailure)
		}
		if m == nil {
			return nil, cuttle.NewError("decode record: not a JSON object", cuttle.ErrDecodingFailure)
		}

		for k, v := range m {
			m[k] = fromJSON(v)
		}
		return cuttle.Record(m), nil
	},
}

// Records converts a whole collection of records, in order.
var Records = Converter[[]cuttle.Record, []string]{
	ToDB: func(recs []cuttle.Record) ([]string, error) {
		out := make([]string, len(recs))
		for i := range recs {
			enc, err := Record.ToDB(recs[i])
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			out[i] = enc
		}
		return out, nil
	},
	FromDB: func(data []string) ([]cuttle.Record, error) {
		out := make([]cuttle.Record, len(data))
		for i := range data {
			rec, err := Record.FromDB(data[i])
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			out[i] = rec
		}
		return out, nil
	},
}

func fromJSON(v any) any {
	switch typed := v.(type) {
	case json.Number:
		if i, err := typed.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		f, err := typed.Float64()
		if err != nil {
			return typed.String()
		}
		return f
	case map[string]any:
		for k, elem := range typed {
			typed[k] = fromJSON(elem)
		}
		return typed
	case []any:
		for i := range typed {
			typed[i] = fromJSON(typed[i])
		}
		return typed
	default:
		return v
	}
}
