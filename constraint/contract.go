package constraint

import (
	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/errorset"
)

// Contract is an ordered list of clauses, each a Contextual constraint, that
// an object must satisfy. A Contract is itself a Constraint and may be used as
// the constraint of a clause in another Contract to validate a nested object.
//
// Contracts are built with AddConstraint and Constrain. A Contract must not be
// modified while it is being matched, but once built it may be matched from
// any number of goroutines.
type Contract struct {
	clauses  []Contextual
	accessor Accessor
	registry *Registry
}

// ContractOption configures a Contract.
type ContractOption func(*Contract)

// WithAccessor sets the Accessor used to read properties from validated
// objects for every clause that does not set its own. The default is
// MapAccessor.
func WithAccessor(a Accessor) ContractOption {
	return func(ct *Contract) {
		ct.accessor = a
	}
}

// WithRegistry sets the Registry that Constrain looks up constraint names in.
// The default is DefaultRegistry.
func WithRegistry(r *Registry) ContractOption {
	return func(ct *Contract) {
		ct.registry = r
	}
}

// NewContract creates a Contract with no clauses.
func NewContract(opts ...ContractOption) *Contract {
	ct := &Contract{}
	for _, opt := range opts {
		opt(ct)
	}
	if ct.accessor == nil {
		ct.accessor = MapAccessor
	}
	if ct.registry == nil {
		ct.registry = DefaultRegistry
	}
	return ct
}

func (ct *Contract) mustInit() {
	if ct == nil || ct.accessor == nil {
		panic(cuttle.Uninitialized("constraint.Contract"))
	}
}

// Extend creates a new Contract that starts with every clause of ct followed
// by any clauses added to the new Contract. Clauses added to ct afterwards do
// not affect the new Contract.
func (ct *Contract) Extend(opts ...ContractOption) *Contract {
	ct.mustInit()

	child := &Contract{
		clauses:  make([]Contextual, len(ct.clauses)),
		accessor: ct.accessor,
		registry: ct.registry,
	}
	copy(child.clauses, ct.clauses)
	for _, opt := range opts {
		opt(child)
	}
	return child
}

// ClauseOption configures a clause added with AddConstraint.
type ClauseOption func(*Contextual)

// OnPath applies the constraint to the value at the given path of property
// names and slice indexes.
func OnPath(keys ...any) ClauseOption {
	return func(cc *Contextual) {
		cc.Path = append([]any{}, keys...)
	}
}

// If applies the constraint only when g returns true.
func If(g Guard) ClauseOption {
	return func(cc *Contextual) {
		cc.If = g
	}
}

// Unless applies the constraint only when g returns false.
func Unless(g Guard) ClauseOption {
	return func(cc *Contextual) {
		cc.Unless = g
	}
}

// Negated applies the negated form of the constraint.
func Negated() ClauseOption {
	return func(cc *Contextual) {
		cc.Negated = true
	}
}

// ForEach applies the constraint to each element of the collection at the
// clause path.
func ForEach() ClauseOption {
	return func(cc *Contextual) {
		cc.Each = true
	}
}

// AddConstraint adds a clause that applies c as configured by opts. It returns
// ct so that calls may be chained.
func (ct *Contract) AddConstraint(c Constraint, opts ...ClauseOption) *Contract {
	ct.mustInit()
	if c == nil {
		panic(cuttle.NewError("constraint: nil Constraint", cuttle.ErrBadArgument))
	}

	cc := Contextual{Constraint: c}
	for _, opt := range opts {
		opt(&cc)
	}
	return ct.Add(cc)
}

// Add adds cc as a clause. It returns ct so that calls may be chained.
func (ct *Contract) Add(cc Contextual) *Contract {
	ct.mustInit()
	if cc.Constraint == nil {
		panic(cuttle.NewError("constraint: clause has nil Constraint", cuttle.ErrBadArgument))
	}
	ct.clauses = append(ct.clauses, cc)
	return ct
}

// Clauses returns a copy of the clauses of ct in the order they are applied.
func (ct *Contract) Clauses() []Contextual {
	ct.mustInit()
	cp := make([]Contextual, len(ct.clauses))
	copy(cp, ct.clauses)
	return cp
}

// Len returns the number of clauses in ct.
func (ct *Contract) Len() int {
	ct.mustInit()
	return len(ct.clauses)
}

// Empty returns whether ct has no clauses.
func (ct *Contract) Empty() bool {
	return ct.Len() == 0
}

// Match applies every clause of ct to obj in order and collects all of their
// errors, each nested under its clause path. obj passes if no clause reported
// an error.
func (ct *Contract) Match(obj any) (bool, *errorset.ErrorSet) {
	return ct.run(obj, false)
}

// NegatedMatch applies the negated form of every clause of ct to obj in order.
// It is not the inverse of Match; obj passes only if every clause's negated
// form passes.
func (ct *Contract) NegatedMatch(obj any) (bool, *errorset.ErrorSet) {
	return ct.run(obj, true)
}

func (ct *Contract) run(obj any, negated bool) (bool, *errorset.ErrorSet) {
	ct.mustInit()

	errs := errorset.New()
	allOK := true
	for _, cc := range ct.clauses {
		if cc.Accessor == nil {
			cc.Accessor = ct.accessor
		}

		var ok bool
		var clauseErrs *errorset.ErrorSet
		if negated {
			ok, clauseErrs = cc.NegatedMatch(obj)
		} else {
			ok, clauseErrs = cc.Match(obj)
		}

		if !ok {
			allOK = false
		}
		errs.Merge(clauseErrs)
	}

	return allOK && errs.Empty(), errs
}
