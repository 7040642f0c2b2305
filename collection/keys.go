package collection

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/dekarrin/cuttle/internal/values"
	"github.com/google/uuid"
)

// KeyType is the type of value a primary key holds.
type KeyType int

const (
	// KeyAny accepts any non-nil value as a key.
	KeyAny KeyType = iota

	// KeyString accepts only strings.
	KeyString

	// KeyInt accepts integers, and floats that hold an integral value. Keys
	// are stored as int.
	KeyInt

	// KeyUUID accepts uuid.UUID values and strings that parse as a UUID. Keys
	// are stored as the canonical string form of the UUID.
	KeyUUID
)

func (kt KeyType) String() string {
	switch kt {
	case KeyAny:
		return "any"
	case KeyString:
		return "string"
	case KeyInt:
		return "int"
	case KeyUUID:
		return "uuid"
	default:
		return fmt.Sprintf("KeyType(%d)", int(kt))
	}
}

// ParseKeyType parses the name of a KeyType. The empty string is parsed as
// KeyAny.
func ParseKeyType(s string) (KeyType, error) {
	switch strings.ToLower(s) {
	case KeyAny.String(), "":
		return KeyAny, nil
	case KeyString.String():
		return KeyString, nil
	case KeyInt.String(), "integer":
		return KeyInt, nil
	case KeyUUID.String():
		return KeyUUID, nil
	default:
		return KeyAny, fmt.Errorf("unknown key type %q", s)
	}
}

// canonical returns the stored form of key v, and whether v is a valid key of
// type kt. v must not be nil.
func (kt KeyType) canonical(v any) (any, bool) {
	switch kt {
	case KeyString:
		s, ok := v.(string)
		return s, ok
	case KeyInt:
		return toInt(v)
	case KeyUUID:
		switch typed := v.(type) {
		case uuid.UUID:
			return typed.String(), true
		case string:
			if typed == "" {
				return "", true
			}
			id, err := uuid.Parse(typed)
			if err != nil {
				return nil, false
			}
			return id.String(), true
		default:
			return nil, false
		}
	default:
		return v, true
	}
}

// empty returns whether the canonical key v holds no usable value.
func (kt KeyType) empty(v any) bool {
	switch kt {
	case KeyUUID:
		return v == "" || v == uuid.Nil.String()
	case KeyInt:
		return false
	default:
		return values.IsEmpty(v)
	}
}

func toInt(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt {
			return nil, false
		}
		return int(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		// -MinInt is exact as a float; MaxInt rounds up to it
		if f != math.Trunc(f) || f >= -float64(math.MinInt) || f < float64(math.MinInt) {
			return nil, false
		}
		return int(f), true
	default:
		return nil, false
	}
}

// KeyGenerator produces a new primary key value for a record inserted without
// one.
type KeyGenerator func() any

// NewUUIDKey is a KeyGenerator that returns a new random UUID string.
func NewUUIDKey() any {
	return uuid.NewString()
}
