package constraint

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/internal/values"
	"github.com/google/uuid"
)

// Options gives the constraints and modifiers of a call to Constrain, keyed by
// name. Each constraint name is looked up in the Registry of the Contract.
//
// The names "if", "unless", "negated" and "allow_nil" are modifiers rather
// than constraints. "if" and "unless" take a Guard, a func(any) bool, or a
// func() bool. "negated" and "allow_nil" take a bool; allow_nil applies to the
// simple constraints built from the other options.
type Options map[string]any

// Modifier option names.
const (
	OptIf       = "if"
	OptUnless   = "unless"
	OptNegated  = "negated"
	OptAllowNil = "allow_nil"
)

// Builder creates the Constraint for a constraint name given the value it was
// set to in Options. ct is the Contract the constraint is being added to.
type Builder func(value any, ct *Contract) (Constraint, error)

// Registry maps constraint names to the Builders that create them, and type
// names to types for the "type" constraint.
//
// Unless DisableDefaults is set, a Registry starts with the constraints
// "present", "nil", "type" (also "kind_of"), "equal", "identical",
// "satisfies", "constraint", "each" and "contract", and with the type names
// "string", "int", "float", "bool", "map", "slice", "time", "uuid" and
// "record". The zero value is ready for use.
type Registry struct {
	DisableDefaults bool

	mu       sync.Mutex
	builders map[string]Builder
	types    map[string]reflect.Type
}

// DefaultRegistry is the Registry used by Contracts that are not given one.
var DefaultRegistry = &Registry{}

func (r *Registry) initDefaults() {
	if r.builders != nil {
		return
	}

	r.builders = map[string]Builder{}
	r.types = map[string]reflect.Type{}
	if r.DisableDefaults {
		return
	}

	r.builders["present"] = boolBuilder(Present)
	r.builders["nil"] = boolBuilder(Nil)
	r.builders["type"] = buildType
	r.builders["kind_of"] = buildType
	r.builders["equal"] = func(v any, _ *Contract) (Constraint, error) {
		return Equal(v), nil
	}
	r.builders["identical"] = func(v any, _ *Contract) (Constraint, error) {
		return Identical(v), nil
	}
	r.builders["satisfies"] = func(v any, _ *Contract) (Constraint, error) {
		fn, ok := v.(func(any) bool)
		if !ok || fn == nil {
			return nil, fmt.Errorf("satisfies must be a func(any) bool, not %T", v)
		}
		return Satisfies(fn), nil
	}
	r.builders["constraint"] = func(v any, _ *Contract) (Constraint, error) {
		c, ok := v.(Constraint)
		if !ok || values.IsNil(c) {
			return nil, fmt.Errorf("constraint must be a Constraint, not %T", v)
		}
		return c, nil
	}
	r.builders["contract"] = func(v any, _ *Contract) (Constraint, error) {
		sub, ok := v.(*Contract)
		if !ok || sub == nil {
			return nil, fmt.Errorf("contract must be a *Contract, not %T", v)
		}
		return sub, nil
	}
	r.builders["each"] = buildEach

	r.types["string"] = reflect.TypeOf("")
	r.types["int"] = reflect.TypeOf(0)
	r.types["float"] = reflect.TypeOf(0.0)
	r.types["bool"] = reflect.TypeOf(false)
	r.types["map"] = reflect.TypeOf(map[string]any{})
	r.types["slice"] = reflect.TypeOf([]any{})
	r.types["time"] = reflect.TypeOf(time.Time{})
	r.types["uuid"] = reflect.TypeOf(uuid.UUID{})
	r.types["record"] = reflect.TypeOf(cuttle.Record{})
}

// Register adds a Builder for the constraint name. It is an error to register
// a name that is already registered or that is a modifier name.
func (r *Registry) Register(name string, b Builder) error {
	if b == nil {
		return fmt.Errorf("builder function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.initDefaults()

	normName := strings.ToLower(name)
	if normName == "" || isModifier(normName) {
		return fmt.Errorf("%q cannot be used as a constraint name", name)
	}
	if _, ok := r.builders[normName]; ok {
		return fmt.Errorf("duplicate constraint registration; %q already has a registered builder", normName)
	}

	r.builders[normName] = b
	return nil
}

// RegisterType adds a type name for use with the "type" constraint.
func (r *Registry) RegisterType(name string, t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("type cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.initDefaults()

	normName := strings.ToLower(name)
	if _, ok := r.types[normName]; ok {
		return fmt.Errorf("duplicate type registration; %q is already registered", normName)
	}
	r.types[normName] = t
	return nil
}

// List returns an alphabetized list of all registered constraint names.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initDefaults()

	names := make([]string, 0, len(r.builders))
	for k := range r.builders {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Type returns the type registered under name.
func (r *Registry) Type(name string) (reflect.Type, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initDefaults()

	t, ok := r.types[strings.ToLower(name)]
	return t, ok
}

func (r *Registry) builder(name string) (Builder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initDefaults()

	b, ok := r.builders[strings.ToLower(name)]
	return b, ok
}

// Constrain adds a clause to ct for every constraint named in opts, applied to
// property. property is a dot-separated path such as "author.name" or
// "articles.1.title" in which all-digit parts are slice indexes; the empty
// string means the object itself. Constraints are added in order of name.
//
// An error matching cuttle.ErrUnknownConstraint is returned if opts names a
// constraint that is not registered, and one matching
// cuttle.ErrInvalidConstraint if an option has a value of the wrong kind or no
// constraint is named at all. If an error is returned, ct is unchanged.
func (ct *Contract) Constrain(property string, opts Options) error {
	ct.mustInit()

	invalid := func(format string, a ...any) error {
		return cuttle.NewError(fmt.Sprintf("constrain %q: ", property)+fmt.Sprintf(format, a...), cuttle.ErrInvalidConstraint)
	}

	base := Contextual{Path: parsePath(property)}
	var allowNil bool
	var built []Constraint

	names := make([]string, 0, len(opts))
	for k := range opts {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		v := opts[name]
		switch strings.ToLower(name) {
		case OptIf:
			g, ok := asGuard(v)
			if !ok {
				return invalid("if must be a guard function, not %T", v)
			}
			base.If = g
		case OptUnless:
			g, ok := asGuard(v)
			if !ok {
				return invalid("unless must be a guard function, not %T", v)
			}
			base.Unless = g
		case OptNegated:
			b, ok := v.(bool)
			if !ok {
				return invalid("negated must be a bool, not %T", v)
			}
			base.Negated = b
		case OptAllowNil:
			b, ok := v.(bool)
			if !ok {
				return invalid("allow_nil must be a bool, not %T", v)
			}
			allowNil = b
		default:
			b, ok := ct.registry.builder(name)
			if !ok {
				return cuttle.NewError(fmt.Sprintf("constrain %q: %q", property, name), cuttle.ErrUnknownConstraint)
			}
			c, err := b(v, ct)
			if err != nil {
				return cuttle.NewError(fmt.Sprintf("constrain %q: %s", property, name), err, cuttle.ErrInvalidConstraint)
			}
			built = append(built, c)
		}
	}

	if len(built) == 0 {
		return invalid("no constraints given")
	}

	if allowNil {
		applied := false
		for i := range built {
			var ok bool
			if built[i], ok = withAllowNil(built[i]); ok {
				applied = true
			}
		}
		if !applied {
			return invalid("allow_nil given without a simple constraint")
		}
	}

	for _, c := range built {
		cc := base
		cc.Constraint = c
		ct.Add(cc)
	}
	return nil
}

// ConstrainFunc adds a clause that applies fn to property, along with the
// constraints named in opts. It is Constrain with fn given as "satisfies".
func (ct *Contract) ConstrainFunc(property string, fn func(any) bool, opts Options) error {
	if fn == nil {
		return cuttle.NewError(fmt.Sprintf("constrain %q: nil function", property), cuttle.ErrInvalidConstraint)
	}
	if _, ok := opts["satisfies"]; ok {
		return cuttle.NewError(fmt.Sprintf("constrain %q: satisfies given with a function", property), cuttle.ErrInvalidConstraint)
	}

	withFn := make(Options, len(opts)+1)
	for k, v := range opts {
		withFn[k] = v
	}
	withFn["satisfies"] = fn
	return ct.Constrain(property, withFn)
}

func isModifier(name string) bool {
	switch name {
	case OptIf, OptUnless, OptNegated, OptAllowNil:
		return true
	default:
		return false
	}
}

// boolBuilder builds c when set to true and its negation when set to false.
func boolBuilder(c func() Basic) Builder {
	return func(v any, _ *Contract) (Constraint, error) {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("value must be a bool, not %T", v)
		}
		if b {
			return c(), nil
		}
		return Contextual{Constraint: c(), Negated: true}, nil
	}
}

func buildType(v any, ct *Contract) (Constraint, error) {
	switch typed := v.(type) {
	case reflect.Type:
		if typed == nil {
			return nil, fmt.Errorf("type cannot be nil")
		}
		return KindOf(typed), nil
	case string:
		t, ok := ct.registry.Type(typed)
		if !ok {
			return nil, fmt.Errorf("%q is not a registered type name", typed)
		}
		return KindOf(t), nil
	default:
		return nil, fmt.Errorf("type must be a reflect.Type or type name, not %T", v)
	}
}

func buildEach(v any, ct *Contract) (Constraint, error) {
	switch typed := v.(type) {
	case Constraint:
		if values.IsNil(typed) {
			return nil, fmt.Errorf("each constraint cannot be nil")
		}
		return Each(typed), nil
	case Options:
		return buildEachOptions(typed, ct)
	case map[string]any:
		return buildEachOptions(Options(typed), ct)
	default:
		return nil, fmt.Errorf("each must be a Constraint or Options, not %T", v)
	}
}

func buildEachOptions(opts Options, ct *Contract) (Constraint, error) {
	sub := NewContract(WithAccessor(ct.accessor), WithRegistry(ct.registry))
	if err := sub.Constrain("", opts); err != nil {
		return nil, err
	}
	return Each(sub), nil
}

// withAllowNil returns c with nil values allowed, and whether c supports that.
func withAllowNil(c Constraint) (Constraint, bool) {
	switch typed := c.(type) {
	case Basic:
		return typed.AllowNil(), true
	case Contextual:
		inner, ok := typed.Constraint.(Basic)
		if !ok {
			return c, false
		}
		typed.Constraint = inner.AllowNil()
		return typed, true
	default:
		return c, false
	}
}

func asGuard(v any) (Guard, bool) {
	switch fn := v.(type) {
	case Guard:
		return fn, fn != nil
	case func(value, key, collection any, property string) bool:
		return Guard(fn), fn != nil
	case func(any) bool:
		if fn == nil {
			return nil, false
		}
		return func(value, _, _ any, _ string) bool { return fn(value) }, true
	case func() bool:
		if fn == nil {
			return nil, false
		}
		return func(_, _, _ any, _ string) bool { return fn() }, true
	default:
		return nil, false
	}
}

func parsePath(property string) []any {
	if property == "" {
		return nil
	}

	parts := strings.Split(property, ".")
	path := make([]any, len(parts))
	for i, p := range parts {
		if n, err := strconv.Atoi(p); err == nil && n >= 0 {
			path[i] = n
		} else {
			path[i] = p
		}
	}
	return path
}
