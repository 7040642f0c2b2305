// Package collection provides Collection, a named and transform-aware view of
// a Dataset that can be queried and mutated, and Repository, which owns the
// Datasets of every collection by name.
//
// Mutations are validated before anything is changed. A mutation that fails
// validation leaves the Dataset untouched and returns false along with a
// non-empty ErrorSet describing every problem found; it never returns a Go
// error. Misuse of the API, such as calling a method on a Collection that was
// not created by New, Repository.Collection or For, panics.
package collection

import (
	"fmt"
	"reflect"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/errorset"
	"github.com/dekarrin/cuttle/internal/values"
	"github.com/dekarrin/cuttle/logging"
	"github.com/dekarrin/cuttle/query"
)

// DefaultPrimaryKey is the name of the primary key field used when no other
// is given.
const DefaultPrimaryKey = "id"

type options struct {
	name      string
	transform any
	pk        string
	keyType   KeyType
	gen       KeyGenerator
	log       cuttle.Logger
}

func defaultOptions() options {
	return options{pk: DefaultPrimaryKey, keyType: KeyAny}
}

// Option configures a Collection.
type Option func(*options)

// WithName sets the name of the collection. For collections created by a
// Repository this also selects the Dataset the collection reads and writes.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithTransform sets the Transform used to convert between stored records and
// entities. Its entity type must match that of the collection it is given to.
func WithTransform[E any](t cuttle.Transform[E]) Option {
	return func(o *options) {
		o.transform = t
	}
}

// WithPrimaryKey sets the name and type of the primary key field. An empty
// name declares that the collection has no primary key.
func WithPrimaryKey(name string, kt KeyType) Option {
	return func(o *options) {
		o.pk = name
		o.keyType = kt
	}
}

// WithoutPrimaryKey declares that the collection has no primary key. Records
// of such a collection can be inserted and queried but not updated or deleted
// by id.
func WithoutPrimaryKey() Option {
	return WithPrimaryKey("", KeyAny)
}

// WithKeyGenerator sets a generator that is called for a key when a record is
// inserted with a missing, nil, or empty primary key.
func WithKeyGenerator(gen KeyGenerator) Option {
	return func(o *options) {
		o.gen = gen
	}
}

// UUIDKeys makes the primary key a UUID and generates a random one for records
// inserted without a key.
func UUIDKeys() Option {
	return func(o *options) {
		o.keyType = KeyUUID
		o.gen = NewUUIDKey
	}
}

// WithLogger sets the logger that rejected mutations are reported to.
func WithLogger(log cuttle.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Collection is a named set of records held in a Dataset, seen as entities of
// type E through a Transform.
//
// A Collection is safe for concurrent use. Each mutation is validated and
// applied while holding the write lock of its Dataset, so a key checked for
// uniqueness by Insert cannot be taken by another Insert before it is stored.
type Collection[E any] struct {
	data      *Dataset
	transform cuttle.Transform[E]
	pk        string
	keyType   KeyType
	gen       KeyGenerator
	log       cuttle.Logger
}

// New creates a Collection over its own new Dataset. The name given with
// WithName is optional; if not given, it may be set once later with SetName.
//
// If no Transform is given, E must be cuttle.Record, a struct type, or a
// pointer to a struct type; records are then given as-is or converted with
// cuttle.StructTransform respectively.
func New[E any](opts ...Option) *Collection[E] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newCollection[E](NewDataset(o.name), o)
}

func newCollection[E any](ds *Dataset, o options) *Collection[E] {
	var t cuttle.Transform[E]
	if o.transform != nil {
		var ok bool
		t, ok = o.transform.(cuttle.Transform[E])
		if !ok {
			var zero E
			panic(cuttle.NewError(fmt.Sprintf("collection: transform %T does not produce %T", o.transform, zero), cuttle.ErrBadArgument))
		}
	} else {
		t = defaultTransform[E](logging.OrNoOp(o.log))
	}

	return &Collection[E]{
		data:      ds,
		transform: t,
		pk:        o.pk,
		keyType:   o.keyType,
		gen:       o.gen,
		log:       logging.OrNoOp(o.log),
	}
}

func defaultTransform[E any](log cuttle.Logger) cuttle.Transform[E] {
	var zero E
	if t, ok := any(cuttle.IdentityTransform{}).(cuttle.Transform[E]); ok {
		return t
	}

	rt := reflect.TypeOf(&zero).Elem()
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		panic(cuttle.NewError(fmt.Sprintf("collection: no default transform for %T; use WithTransform", zero), cuttle.ErrBadArgument))
	}
	return cuttle.StructTransform[E]{Log: log}
}

func (c *Collection[E]) mustInit() {
	if c == nil || c.data == nil {
		panic(cuttle.Uninitialized("collection.Collection"))
	}
}

// Name returns the name of the collection, or "" if it has not been named.
func (c *Collection[E]) Name() string {
	c.mustInit()
	return c.data.Name()
}

// SetName names the collection. A collection can be named only once; if it
// already has a name, an error that matches cuttle.ErrNameAlreadySet is
// returned.
func (c *Collection[E]) SetName(name string) error {
	c.mustInit()
	if name == "" {
		return cuttle.NewError("collection name cannot be empty", cuttle.ErrBadArgument)
	}
	if cur, ok := c.data.nameOnce(name); !ok {
		return cuttle.NewError(fmt.Sprintf("collection is already named %q", cur), cuttle.ErrNameAlreadySet)
	}
	return nil
}

// PrimaryKey returns the name of the primary key field, or "" if the
// collection has none.
func (c *Collection[E]) PrimaryKey() string {
	c.mustInit()
	return c.pk
}

// Dataset returns the Dataset that backs the collection.
func (c *Collection[E]) Dataset() *Dataset {
	c.mustInit()
	return c.data
}

// Query returns a Query over every record in the collection.
func (c *Collection[E]) Query() query.Query[E] {
	c.mustInit()
	return query.New[E](c.data, c.transform)
}

// Matching returns a Query over the records that match sel.
func (c *Collection[E]) Matching(sel query.Selector) query.Query[E] {
	return c.Query().Matching(sel)
}

// Find returns the entity whose primary key is id. It returns false if there
// is no such entity, if id is not a valid key, or if the collection has no
// primary key.
func (c *Collection[E]) Find(id any) (E, bool) {
	c.mustInit()

	var zero E
	if c.pk == "" || values.IsNil(id) {
		return zero, false
	}
	key, ok := c.keyType.canonical(id)
	if !ok {
		return zero, false
	}
	return c.Query().Matching(query.Selector{c.pk: key}).One()
}

// Count returns the number of records in the collection.
func (c *Collection[E]) Count() int {
	return c.Query().Count()
}

// Exists returns whether the collection holds any records.
func (c *Collection[E]) Exists() bool {
	return c.Query().Exists()
}

// ToSlice returns every entity in the collection.
func (c *Collection[E]) ToSlice() []E {
	return c.Query().ToSlice()
}

// Each calls fn with every entity in the collection until fn returns false.
func (c *Collection[E]) Each(fn func(E) bool) {
	c.Query().Each(fn)
}

// Pluck returns the value of attr in every record of the collection.
func (c *Collection[E]) Pluck(attr string) []any {
	return c.Query().Pluck(attr)
}

// Insert adds a new record to the collection. x may be an entity of type E,
// which is normalized with the collection's Transform, or a cuttle.Record or
// map[string]any. The record must have a valid primary key that is not
// already used by another record, unless the collection has no primary key.
func (c *Collection[E]) Insert(x any) (bool, *errorset.ErrorSet) {
	c.mustInit()
	errs := errorset.New()

	rec, ok := c.normalize(x, errs)
	if !ok {
		return c.reject("insert", errs)
	}

	var key any
	if c.pk != "" {
		raw := rec[c.pk]
		if c.gen != nil && c.blankKey(raw) {
			raw = c.gen()
		}
		if key, ok = c.checkKey(raw, errs); !ok {
			return c.reject("insert", errs)
		}
		rec[c.pk] = key
	}

	c.data.mutate(func(cur []cuttle.Record) ([]cuttle.Record, bool) {
		if c.pk != "" && indexOf(cur, c.pk, key) >= 0 {
			errs.Add(RecordAlreadyExistsError, errorset.Params{"key": c.pk, "value": key})
			return nil, false
		}

		next := make([]cuttle.Record, len(cur), len(cur)+1)
		copy(next, cur)
		return append(next, rec), true
	})
	if !errs.Empty() {
		return c.reject("insert", errs)
	}

	c.log.Tracef("%s: inserted record %v", c.data.Name(), key)
	return true, errs
}

// Update merges attrs into the record whose primary key is id. Fields of the
// stored record that attrs does not name are left as they are, and fields
// the record does not yet have are added. attrs may name the primary key only
// if it gives the same value as id.
//
// The stored record is replaced with a merged copy; records previously read
// from the collection are not changed.
func (c *Collection[E]) Update(id any, attrs any) (bool, *errorset.ErrorSet) {
	c.mustInit()
	errs := errorset.New()

	if c.pk == "" {
		errs.Add(NoPrimaryKeyError, nil)
		return c.reject("update", errs)
	}

	key, ok := c.checkKey(id, errs)
	if !ok {
		return c.reject("update", errs)
	}

	rec, ok := c.normalize(attrs, errs)
	if !ok {
		return c.reject("update", errs)
	}

	if newID, present := rec[c.pk]; present {
		newKey, valid := c.keyType.canonical(newID)
		if values.IsNil(newID) || !valid || !values.Equal(newKey, key) {
			errs.Add(PrimaryKeyChangedError, errorset.Params{"key": c.pk, "value": newID, "expected": key})
			return c.reject("update", errs)
		}
		delete(rec, c.pk)
	}

	if len(rec) == 0 {
		errs.Add(DataEmptyError, nil)
		return c.reject("update", errs)
	}

	c.data.mutate(func(cur []cuttle.Record) ([]cuttle.Record, bool) {
		idx := indexOf(cur, c.pk, key)
		if idx < 0 {
			errs.Add(RecordNotFoundError, errorset.Params{"key": c.pk, "value": key})
			return nil, false
		}

		next := make([]cuttle.Record, len(cur))
		copy(next, cur)
		next[idx] = cur[idx].Merge(rec)
		return next, true
	})
	if !errs.Empty() {
		return c.reject("update", errs)
	}

	c.log.Tracef("%s: updated record %v", c.data.Name(), key)
	return true, errs
}

// Delete removes the record whose primary key is id.
func (c *Collection[E]) Delete(id any) (bool, *errorset.ErrorSet) {
	c.mustInit()
	errs := errorset.New()

	if c.pk == "" {
		errs.Add(NoPrimaryKeyError, nil)
		return c.reject("delete", errs)
	}

	key, ok := c.checkKey(id, errs)
	if !ok {
		return c.reject("delete", errs)
	}

	c.data.mutate(func(cur []cuttle.Record) ([]cuttle.Record, bool) {
		idx := indexOf(cur, c.pk, key)
		if idx < 0 {
			errs.Add(RecordNotFoundError, errorset.Params{"key": c.pk, "value": key})
			return nil, false
		}

		next := make([]cuttle.Record, 0, len(cur)-1)
		next = append(next, cur[:idx]...)
		next = append(next, cur[idx+1:]...)
		return next, true
	})
	if !errs.Empty() {
		return c.reject("delete", errs)
	}

	c.log.Tracef("%s: deleted record %v", c.data.Name(), key)
	return true, errs
}

// DeleteAll removes every record from the collection. It always succeeds.
func (c *Collection[E]) DeleteAll() (bool, *errorset.ErrorSet) {
	c.mustInit()

	c.data.mutate(func(cur []cuttle.Record) ([]cuttle.Record, bool) {
		return nil, true
	})

	c.log.Debugf("%s: deleted all records", c.data.Name())
	return true, errorset.New()
}

// FindMatching returns the entities whose records match sel, which must be a
// query.Selector, cuttle.Record or map[string]any.
func (c *Collection[E]) FindMatching(sel any) ([]E, *errorset.ErrorSet) {
	c.mustInit()
	errs := errorset.New()

	s, ok := checkSelector(sel, errs)
	if !ok {
		c.reject("find", errs)
		return nil, errs
	}
	return c.Matching(s).ToSlice(), errs
}

// UpdateMatching merges attrs into every record that matches sel and returns
// the number of records updated. attrs must not name the primary key.
func (c *Collection[E]) UpdateMatching(sel any, attrs any) (int, *errorset.ErrorSet) {
	c.mustInit()
	errs := errorset.New()

	s, ok := checkSelector(sel, errs)
	if !ok {
		c.reject("update", errs)
		return 0, errs
	}

	rec, ok := c.normalize(attrs, errs)
	if !ok {
		c.reject("update", errs)
		return 0, errs
	}
	if c.pk != "" {
		if newID, present := rec[c.pk]; present {
			errs.Add(PrimaryKeyChangedError, errorset.Params{"key": c.pk, "value": newID})
			c.reject("update", errs)
			return 0, errs
		}
	}
	if len(rec) == 0 {
		errs.Add(DataEmptyError, nil)
		c.reject("update", errs)
		return 0, errs
	}

	var updated int
	c.data.mutate(func(cur []cuttle.Record) ([]cuttle.Record, bool) {
		next := make([]cuttle.Record, len(cur))
		for i := range cur {
			if s.Matches(cur[i]) {
				next[i] = cur[i].Merge(rec)
				updated++
			} else {
				next[i] = cur[i]
			}
		}
		return next, updated > 0
	})

	c.log.Tracef("%s: updated %d record(s) matching %s", c.data.Name(), updated, s)
	return updated, errs
}

// DeleteMatching removes every record that matches sel and returns the number
// of records removed.
func (c *Collection[E]) DeleteMatching(sel any) (int, *errorset.ErrorSet) {
	c.mustInit()
	errs := errorset.New()

	s, ok := checkSelector(sel, errs)
	if !ok {
		c.reject("delete", errs)
		return 0, errs
	}

	var deleted int
	c.data.mutate(func(cur []cuttle.Record) ([]cuttle.Record, bool) {
		next := make([]cuttle.Record, 0, len(cur))
		for i := range cur {
			if s.Matches(cur[i]) {
				deleted++
				continue
			}
			next = append(next, cur[i])
		}
		return next, deleted > 0
	})

	c.log.Tracef("%s: deleted %d record(s) matching %s", c.data.Name(), deleted, s)
	return deleted, errs
}

func (c *Collection[E]) reject(op string, errs *errorset.ErrorSet) (bool, *errorset.ErrorSet) {
	logging.LogRejection(c.log, op, c.data.Name(), errs)
	return false, errs
}

// normalize converts x to a new record that the caller may modify.
func (c *Collection[E]) normalize(x any, errs *errorset.ErrorSet) (cuttle.Record, bool) {
	if values.IsNil(x) {
		errs.Add(DataMissingError, nil)
		return nil, false
	}

	if rec, ok := cuttle.AsRecord(x); ok {
		return rec.Copy(), true
	}

	entity, ok := x.(E)
	if !ok {
		errs.Add(DataInvalidError, errorset.Params{"type": fmt.Sprintf("%T", x)})
		return nil, false
	}
	rec, err := c.transform.Normalize(entity)
	if err != nil || rec == nil {
		params := errorset.Params{"type": fmt.Sprintf("%T", x)}
		if err != nil {
			params["reason"] = err.Error()
		}
		errs.Add(DataInvalidError, params)
		return nil, false
	}
	return rec.Copy(), true
}

// blankKey returns whether raw should be replaced by a generated key.
func (c *Collection[E]) blankKey(raw any) bool {
	if values.IsNil(raw) {
		return true
	}
	key, ok := c.keyType.canonical(raw)
	return ok && c.keyType.empty(key)
}

// checkKey validates raw as a primary key and returns its stored form.
func (c *Collection[E]) checkKey(raw any, errs *errorset.ErrorSet) (any, bool) {
	if values.IsNil(raw) {
		errs.Add(PrimaryKeyMissingError, errorset.Params{"key": c.pk})
		return nil, false
	}

	key, ok := c.keyType.canonical(raw)
	if !ok {
		errs.Add(PrimaryKeyInvalidError, errorset.Params{"key": c.pk, "value": raw, "type": c.keyType.String()})
		return nil, false
	}

	if c.keyType.empty(key) {
		errs.Add(PrimaryKeyEmptyError, errorset.Params{"key": c.pk})
		return nil, false
	}

	return key, true
}

func checkSelector(sel any, errs *errorset.ErrorSet) (query.Selector, bool) {
	if values.IsNil(sel) {
		errs.Add(SelectorMissingError, nil)
		return nil, false
	}
	s, ok := query.AsSelector(sel)
	if !ok {
		errs.Add(SelectorInvalidError, errorset.Params{"type": fmt.Sprintf("%T", sel)})
		return nil, false
	}
	return s, true
}

func indexOf(recs []cuttle.Record, pk string, key any) int {
	for i := range recs {
		if v, ok := recs[i][pk]; ok && values.Equal(v, key) {
			return i
		}
	}
	return -1
}
