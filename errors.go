package cuttle

import (
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
)

// Sentinel causes of an Error. Check for them with errors.Is.
var (
	ErrUninitialized       = errors.New("used before initialization")
	ErrBadArgument         = errors.New("invalid argument")
	ErrNameAlreadySet      = errors.New("name is already set")
	ErrUnknownConstraint   = errors.New("unknown constraint")
	ErrInvalidConstraint   = errors.New("invalid constraint")
	ErrNotFound            = errors.New("not found")
	ErrDB                  = errors.New("backend storage error")
	ErrConstraintViolation = errors.New("storage constraint violated")
	ErrDecodingFailure     = errors.New("stored data could not be decoded")
)

// Error is the error type returned by cuttle when an API is misused or a
// persistence backend fails. Validation failures are reported separately as an
// *errorset.ErrorSet and never as an Error.
//
// An Error carries a message and any number of causes. errors.Is reports true
// for an Error and any of its causes, including causes of nested Errors. The
// text of an Error is its message followed by the text of its first cause.
//
// Create one with NewError.
type Error struct {
	msg   string
	cause []error
}

func (e Error) Error() string {
	switch {
	case len(e.cause) == 0:
		return e.msg
	case e.msg == "":
		return e.cause[0].Error()
	default:
		return e.msg + ": " + e.cause[0].Error()
	}
}

// Unwrap returns the causes of e, or nil if it has none.
func (e Error) Unwrap() []error {
	if len(e.cause) == 0 {
		return nil
	}
	return e.cause
}

// Is reports whether target is an Error with the same message and causes as e,
// or is one of the causes of e.
func (e Error) Is(target error) bool {
	if other, ok := target.(Error); ok && e.sameAs(other) {
		return true
	}

	for _, c := range e.cause {
		if nested, ok := c.(Error); ok {
			if nested.Is(target) {
				return true
			}
			continue
		}
		if c == target {
			return true
		}
	}
	return false
}

func (e Error) sameAs(other Error) bool {
	if e.msg != other.msg || len(e.cause) != len(other.cause) {
		return false
	}
	for i := range e.cause {
		if e.cause[i] != other.cause[i] {
			return false
		}
	}
	return true
}

// NewError returns an Error with message msg that wraps causes.
func NewError(msg string, causes ...error) Error {
	err := Error{msg: msg}
	if len(causes) > 0 {
		err.cause = append([]error(nil), causes...)
	}
	return err
}

// Uninitialized returns the Error a zero-value receiver panics with.
func Uninitialized(what string) Error {
	return NewError(what, ErrUninitialized)
}

// primary sqlite result codes
const (
	sqliteGenericError = 1
	sqliteConstraint   = 19
)

// convertDBError maps driver errors onto the cuttle sentinels where one
// applies.
func convertDBError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch sqliteErr.Code() & 0xff {
	case sqliteConstraint:
		// keep the driver message, it names the violated constraint
		return NewError(ErrConstraintViolation.Error(), err, ErrConstraintViolation)
	case sqliteGenericError:
		// the code string for a generic error says nothing useful
		return err
	default:
		return NewError(sqlite.ErrorCodeString[sqliteErr.Code()])
	}
}

// WrapDBError returns an Error whose causes are err and ErrDB. msg, if given,
// is formatted with fmt.Sprint to make the message. Driver errors are first
// converted so that, for instance, sql.ErrNoRows satisfies
// errors.Is(err, ErrNotFound).
func WrapDBError(err error, msg ...any) Error {
	var m string
	if len(msg) > 0 {
		m = fmt.Sprint(msg...)
	}
	return NewError(m, convertDBError(err), ErrDB)
}

// WrapDBErrorf is WrapDBError with a format string for the message.
func WrapDBErrorf(err error, format string, a ...any) Error {
	return NewError(fmt.Sprintf(format, a...), convertDBError(err), ErrDB)
}
