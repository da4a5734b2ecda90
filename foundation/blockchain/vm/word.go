package vm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/holiman/uint256"
)

// Word is a single slot of contract code or a single stack entry. A word
// holds either a 256-bit unsigned number or a string. Opcodes are string
// words.
type Word struct {
	num   uint256.Int
	str   string
	isStr bool
}

// Num constructs a numeric word.
func Num(v uint64) Word {
	var w Word
	w.num.SetUint64(v)
	return w
}

// Str constructs a string word.
func Str(s string) Word {
	return Word{str: s, isStr: true}
}

// Op constructs the word for an opcode.
func Op(op Opcode) Word {
	return Str(string(op))
}

// IsString reports whether the word holds a string.
func (w Word) IsString() bool {
	return w.isStr
}

// Uint64 returns the numeric value of the word and whether it is a number
// that fits in 64 bits.
func (w Word) Uint64() (uint64, bool) {
	if w.isStr || !w.num.IsUint64() {
		return 0, false
	}
	return w.num.Uint64(), true
}

// Equal reports whether both words hold the same type and value.
func (w Word) Equal(o Word) bool {
	if w.isStr != o.isStr {
		return false
	}
	if w.isStr {
		return w.str == o.str
	}
	return w.num.Eq(&o.num)
}

// truthy reports whether the word counts as true for logical operations.
func (w Word) truthy() bool {
	if w.isStr {
		return w.str != ""
	}
	return !w.num.IsZero()
}

// String implements the fmt.Stringer interface. Numbers render in decimal.
func (w Word) String() string {
	if w.isStr {
		return w.str
	}
	return w.num.Dec()
}

// MarshalJSON implements the json.Marshaler interface. Numbers are written
// as JSON numbers and strings as JSON strings.
func (w Word) MarshalJSON() ([]byte, error) {
	if w.isStr {
		return signature.Marshal(w.str)
	}
	return []byte(w.num.Dec()), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (w *Word) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*w = Str(s)
		return nil
	}

	if string(data) == "null" {
		*w = Word{}
		return nil
	}

	var n uint256.Int
	if err := n.SetFromDecimal(string(data)); err != nil {
		return fmt.Errorf("word %s is not an unsigned integer: %w", data, err)
	}
	*w = Word{num: n}

	return nil
}

// =============================================================================

// Code is a flat sequence of words: opcodes followed by any immediate
// operand they consume.
type Code []Word

// NewCode builds code from a mix of opcodes, numbers and strings.
func NewCode(items ...any) (Code, error) {
	code := make(Code, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case Opcode:
			code[i] = Op(v)
		case string:
			code[i] = Str(v)
		case int:
			if v < 0 {
				return nil, fmt.Errorf("item %d: negative number %d", i, v)
			}
			code[i] = Num(uint64(v))
		case uint64:
			code[i] = Num(v)
		case Word:
			code[i] = v
		default:
			return nil, fmt.Errorf("item %d: unsupported type %T", i, item)
		}
	}

	return code, nil
}

// MustCode is like NewCode but panics on error. It is intended for code
// literals known to be valid.
func MustCode(items ...any) Code {
	code, err := NewCode(items...)
	if err != nil {
		panic(err)
	}
	return code
}

// MarshalJSON implements the json.Marshaler interface. Empty code is written
// as an empty array, never null.
func (c Code) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return signature.Marshal([]Word(c))
}
