// Package cuttle provides an entity-oriented data-access and validation layer.
// Records are kept in named collections owned by a repository and are queried
// with chainable, lazily-evaluated queries; entities are validated against
// contracts built from constraints.
//
// The root package holds the types shared by all of the sub-packages: raw
// records, the Transform capability that maps records to domain entities, the
// Backend persistence interface, configuration, logging and the Error type.
// The engines themselves live in the query, collection, constraint and
// errorset packages.
package cuttle

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dekarrin/cuttle/internal/fields"
)

// Record is a single raw record as it is held in a backing store. It maps
// field names to values.
type Record map[string]any

// Copy returns a shallow copy of r. The copy of a nil Record is nil.
func (r Record) Copy() Record {
	if r == nil {
		return nil
	}
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// Merge returns a new Record holding every field of r with the fields of attrs
// set over them. Neither r nor attrs is modified.
func (r Record) Merge(attrs Record) Record {
	merged := make(Record, len(r)+len(attrs))
	for k, v := range r {
		merged[k] = v
	}
	for k, v := range attrs {
		merged[k] = v
	}
	return merged
}

// AsRecord returns v as a Record if it has record shape, that is, if it is a
// Record or a map[string]any. Nil maps of either type are not records.
func AsRecord(v any) (Record, bool) {
	switch typed := v.(type) {
	case Record:
		return typed, typed != nil
	case map[string]any:
		return Record(typed), typed != nil
	default:
		return nil, false
	}
}

// Transform converts between the raw records held in a store and the domain
// entities handed to callers.
type Transform[E any] interface {
	// Normalize converts an entity to the raw record that represents it. An
	// error is returned if the entity cannot be represented as a record.
	Normalize(entity E) (Record, error)

	// Denormalize converts a raw record into an entity.
	Denormalize(rec Record) E
}

// IdentityTransform is a Transform for collections whose entities are the raw
// records themselves. Both directions return a copy so that callers never
// alias stored data.
type IdentityTransform struct{}

func (IdentityTransform) Normalize(entity Record) (Record, error) {
	if entity == nil {
		return nil, NewError("cannot normalize nil record", ErrBadArgument)
	}
	return entity.Copy(), nil
}

func (IdentityTransform) Denormalize(rec Record) Record {
	return rec.Copy()
}

// StructTransform is a Transform for struct entities. Exported fields are
// mapped to record fields by the name given in their `cuttle` struct tag, or by
// the snake_case form of the field name if no tag is given. A tag of "-" skips
// the field. E may be a struct type or a pointer to one.
//
// Record fields that cannot be assigned to their struct field are left at the
// zero value by Denormalize and reported to Log at warn level, if it is set.
// Use DenormalizeErr to get the problem as an error instead.
type StructTransform[E any] struct {
	Log Logger
}

func (StructTransform[E]) Normalize(entity E) (Record, error) {
	m, err := fields.ToRecord(entity)
	if err != nil {
		return nil, NewError(fmt.Sprintf("normalize %T", entity), err, ErrBadArgument)
	}
	return Record(m), nil
}

func (st StructTransform[E]) Denormalize(rec Record) E {
	e, err := st.DenormalizeErr(rec)
	if err != nil && st.Log != nil {
		st.Log.Warnf("%v", err)
	}
	return e
}

// DenormalizeErr is Denormalize but returns an error wrapping
// ErrDecodingFailure when a field of rec could not be assigned. The returned
// entity holds every field that could be.
func (StructTransform[E]) DenormalizeErr(rec Record) (E, error) {
	var e E
	var err error

	t := reflect.TypeOf(&e).Elem()
	if t.Kind() == reflect.Pointer {
		ptr := reflect.New(t.Elem())
		err = fields.FromRecord(rec, ptr.Interface())
		e = ptr.Interface().(E)
	} else {
		err = fields.FromRecord(rec, &e)
	}

	if err != nil {
		return e, NewError(fmt.Sprintf("denormalize %T", e), err, ErrDecodingFailure)
	}
	return e, nil
}

// Backend persists the contents of a repository. It deals only in complete
// snapshots; cuttle does not perform incremental writes.
type Backend interface {
	// Load reads the most recently saved snapshot. A backend that has never
	// been saved to returns an empty map and a nil error.
	Load(ctx context.Context) (map[string][]Record, error)

	// Save replaces the stored snapshot with the given collections.
	Save(ctx context.Context, collections map[string][]Record) error

	// Close releases any resources held by the backend.
	Close() error
}
