package snowflake

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"golang.org/x/exp/constraints"
)

// Epoch is the platform epoch (2015-01-01T00:00:00Z) in unix milliseconds.
const Epoch int64 = 1420070400000

// ID is a 64-bit platform identifier. The upstream API transmits ids as
// decimal strings so they survive JSON number precision.
type ID uint64

// Like is implemented by any value that already carries a validated ID.
type Like interface {
	Snowflake() ID
}

// Resolver is implemented by identifier shapes whose conversion can fail.
type Resolver interface {
	Resolve() (ID, error)
}

func (id ID) Snowflake() ID {
	return id
}

func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func (id ID) IsZero() bool {
	return id == 0
}

// Timestamp decodes the creation time embedded in the upper 42 bits.
func (id ID) Timestamp() time.Time {
	ms := int64(uint64(id)>>22) + Epoch
	return time.UnixMilli(ms).UTC()
}

// Int converts any integer to an ID with Go conversion semantics. Values
// outside the uint64 range are narrowed, not rejected.
func Int[T constraints.Integer](value T) ID {
	return ID(uint64(value))
}

// FromBig keeps the low 64 bits of value, matching the narrowing applied to
// 128-bit integers.
func FromBig(value *big.Int) ID {
	if value == nil {
		return 0
	}
	if value.Sign() >= 0 {
		return ID(value.Uint64())
	}
	mod := new(big.Int).Lsh(big.NewInt(1), 64)
	wrapped := new(big.Int).Mod(value, mod)
	return ID(wrapped.Uint64())
}

// Parse reads a base-10 unsigned identifier. Signs, whitespace and overflow
// are rejected.
func Parse(text string) (ID, error) {
	if text == "" {
		return 0, invalidIdentifier(text, nil)
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return 0, invalidIdentifier(text, nil)
		}
	}
	value, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, invalidIdentifier(text, err)
	}
	return ID(value), nil
}

// MustParse is Parse for constants in tests and examples.
func MustParse(text string) ID {
	id, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return id
}

// Text adapts a string to the Resolver capability.
type Text string

func (t Text) Resolve() (ID, error) {
	return Parse(string(t))
}

// Resolve converts any supported identifier shape into an ID: integers of
// any width, *big.Int, strings, byte slices, Like and Resolver values.
func Resolve(value any) (ID, error) {
	switch typed := value.(type) {
	case nil:
		return 0, invalidIdentifier("<nil>", nil)
	case ID:
		return typed, nil
	case Like:
		return typed.Snowflake(), nil
	case Resolver:
		return typed.Resolve()
	case string:
		return Parse(typed)
	case []byte:
		return Parse(string(typed))
	case *big.Int:
		return FromBig(typed), nil
	case fmt.Stringer:
		return Parse(typed.String())
	case int:
		return Int(typed), nil
	case int8:
		return Int(typed), nil
	case int16:
		return Int(typed), nil
	case int32:
		return Int(typed), nil
	case int64:
		return Int(typed), nil
	case uint:
		return Int(typed), nil
	case uint8:
		return Int(typed), nil
	case uint16:
		return Int(typed), nil
	case uint32:
		return Int(typed), nil
	case uint64:
		return Int(typed), nil
	case uintptr:
		return Int(typed), nil
	default:
		return 0, invalidIdentifier(fmt.Sprintf("%T", value), nil)
	}
}

// List is a sequence of identifiers decoded leniently from the wire.
type List []ID

// ParseList parses each element independently and drops the ones that fail.
// Relative order of the valid elements is preserved.
func ParseList(values []string) List {
	out := make(List, 0, len(values))
	for _, value := range values {
		id, err := Parse(value)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (l List) Strings() []string {
	out := make([]string, 0, len(l))
	for _, id := range l {
		out = append(out, id.String())
	}
	return out
}

// Contains reports whether target is in the list. target takes any shape
// accepted by Resolve; one that does not resolve is never contained.
func (l List) Contains(target any) bool {
	want, err := Resolve(target)
	if err != nil {
		return false
	}
	for _, id := range l {
		if id == want {
			return true
		}
	}
	return false
}
