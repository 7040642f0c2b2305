// Package constraint validates values against Constraints and Contracts.
//
// A Constraint is a predicate that reports a pass/fail verdict along with an
// ErrorSet describing each failure. Every Constraint has a negated form whose
// verdict is the opposite of its plain form and which uses its own error
// types; a failed Nil constraint reports NotNilError while a failed negated
// Nil constraint reports NilError.
//
// Constraints are combined into a Contract, an ordered list of clauses that
// each apply a Constraint to a property of the validated object. A Contract is
// itself a Constraint, so contracts can validate nested objects.
package constraint

import (
	"fmt"
	"reflect"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/errorset"
	"github.com/dekarrin/cuttle/internal/values"
)

// Error types reported by the constraints in this package.
const (
	NotNilError          = "constraints.errors.not_nil"
	NilError             = "constraints.errors.nil"
	EmptyError           = "constraints.errors.empty"
	NotEmptyError        = "constraints.errors.not_empty"
	NotEqualToError      = "constraints.errors.not_equal_to"
	EqualToError         = "constraints.errors.equal_to"
	NotIdenticalToError  = "constraints.errors.not_identical_to"
	IdenticalToError     = "constraints.errors.identical_to"
	NotKindOfError       = "constraints.errors.not_kind_of"
	KindOfError          = "constraints.errors.kind_of"
	NotSatisfyBlockError = "constraints.errors.not_satisfy_block"
	SatisfyBlockError    = "constraints.errors.satisfy_block"
	NotACollectionError  = "constraints.errors.not_a_collection"
)

// Constraint is a validation predicate.
type Constraint interface {
	// Match checks v against the constraint. It returns whether v passed and
	// the errors found. The ErrorSet is never nil, and is empty when v passed.
	Match(v any) (bool, *errorset.ErrorSet)

	// NegatedMatch checks v against the negated form of the constraint.
	NegatedMatch(v any) (bool, *errorset.ErrorSet)
}

// Kind identifies the check that a Basic constraint performs.
type Kind int

// The zero Kind is not valid; a zero Basic panics when it is matched.
const (
	KindNil Kind = iota + 1
	KindPresence
	KindEquality
	KindIdentity
	KindType
	KindBlock
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindPresence:
		return "present"
	case KindEquality:
		return "equal"
	case KindIdentity:
		return "identical"
	case KindType:
		return "type"
	case KindBlock:
		return "satisfies"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Basic is one of the fixed set of simple constraints, selected by its Kind.
// Use the constructor for a kind, such as Present or Equal, to create one. A
// Basic is a value; its modifier methods return a modified copy.
type Basic struct {
	kind     Kind
	expected any
	typ      reflect.Type
	pred     func(any) bool
	allowNil bool
	errType  string
	negType  string
}

// Nil returns a constraint that passes when the value is nil, including typed
// nil pointers, maps, slices, and funcs.
func Nil() Basic {
	return Basic{kind: KindNil}
}

// Present returns a constraint that passes when the value is neither nil nor
// empty. Strings, slices, arrays and maps are empty when they have a length of
// zero.
func Present() Basic {
	return Basic{kind: KindPresence}
}

// Equal returns a constraint that passes when the value equals expected.
// Numbers are equal if they hold the same value regardless of their Go type,
// and slices and maps are compared element by element.
func Equal(expected any) Basic {
	return Basic{kind: KindEquality, expected: expected}
}

// Identical returns a constraint that passes when the value is the same
// reference as expected. Values of types without reference semantics are
// identical when they are ==.
func Identical(expected any) Basic {
	return Basic{kind: KindIdentity, expected: expected}
}

// KindOf returns a constraint that passes when the dynamic type of the value
// is assignable to t. If t is an interface type, any value implementing it
// passes. Nil fails unless AllowNil is set.
func KindOf(t reflect.Type) Basic {
	if t == nil {
		panic(cuttle.NewError("constraint: KindOf requires a type", cuttle.ErrBadArgument))
	}
	return Basic{kind: KindType, typ: t}
}

// TypeOf is KindOf for the type T.
func TypeOf[T any]() Basic {
	return KindOf(reflect.TypeOf((*T)(nil)).Elem())
}

// Satisfies returns a constraint that passes when pred returns true for the
// value.
func Satisfies(pred func(any) bool) Basic {
	if pred == nil {
		panic(cuttle.NewError("constraint: Satisfies requires a predicate", cuttle.ErrBadArgument))
	}
	return Basic{kind: KindBlock, pred: pred}
}

// AllowNil returns a copy of b that passes nil values without checking them.
func (b Basic) AllowNil() Basic {
	b.allowNil = true
	return b
}

// WithErrorType returns a copy of b that reports errType when Match fails.
func (b Basic) WithErrorType(errType string) Basic {
	b.errType = errType
	return b
}

// WithNegatedErrorType returns a copy of b that reports errType when
// NegatedMatch fails.
func (b Basic) WithNegatedErrorType(errType string) Basic {
	b.negType = errType
	return b
}

// Kind returns the kind of check b performs.
func (b Basic) Kind() Kind {
	return b.kind
}

func (b Basic) Match(v any) (bool, *errorset.ErrorSet) {
	ok := b.evaluate(v)
	errs := errorset.New()
	if !ok {
		b.buildErrors(errs, false)
	}
	return ok, errs
}

func (b Basic) NegatedMatch(v any) (bool, *errorset.ErrorSet) {
	ok := !b.evaluate(v)
	errs := errorset.New()
	if !ok {
		b.buildErrors(errs, true)
	}
	return ok, errs
}

func (b Basic) evaluate(v any) bool {
	if b.allowNil && values.IsNil(v) {
		return true
	}

	switch b.kind {
	case KindNil:
		return values.IsNil(v)
	case KindPresence:
		return !values.IsNil(v) && !values.IsEmpty(v)
	case KindEquality:
		return values.Equal(v, b.expected)
	case KindIdentity:
		return values.Identical(v, b.expected)
	case KindType:
		if v == nil {
			return false
		}
		return reflect.TypeOf(v).AssignableTo(b.typ)
	case KindBlock:
		if b.pred == nil {
			panic(cuttle.Uninitialized("constraint.Basic"))
		}
		return b.pred(v)
	default:
		panic(cuttle.Uninitialized("constraint.Basic"))
	}
}

func (b Basic) buildErrors(errs *errorset.ErrorSet, negated bool) {
	var errType string
	var params errorset.Params

	switch b.kind {
	case KindNil:
		errType = pick(negated, NilError, NotNilError)
	case KindPresence:
		errType = pick(negated, NotEmptyError, EmptyError)
	case KindEquality:
		errType = pick(negated, EqualToError, NotEqualToError)
		params = errorset.Params{"value": b.expected}
	case KindIdentity:
		errType = pick(negated, IdenticalToError, NotIdenticalToError)
		params = errorset.Params{"value": b.expected}
	case KindType:
		errType = pick(negated, KindOfError, NotKindOfError)
		params = errorset.Params{"type": b.typ.String()}
	case KindBlock:
		errType = pick(negated, SatisfyBlockError, NotSatisfyBlockError)
	}

	if negated && b.negType != "" {
		errType = b.negType
	} else if !negated && b.errType != "" {
		errType = b.errType
	}

	errs.Add(errType, params)
}

func (b Basic) String() string {
	switch b.kind {
	case KindEquality, KindIdentity:
		return fmt.Sprintf("%s(%#v)", b.kind, b.expected)
	case KindType:
		return fmt.Sprintf("%s(%s)", b.kind, b.typ)
	default:
		return b.kind.String()
	}
}

func pick(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
