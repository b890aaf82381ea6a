// Package value implements the typed-value model and line-format wire
// encoding shared by every publish pipeline: a tagged scalar or fixed-length
// array, named and collected in declared order, encoded as a minimal JSON
// subset with trailing-comma elision.
package value

import "fmt"

// Tag identifies the shape of a Value.
type Tag uint8

const (
	I32 Tag = iota
	I16
	I8
	U32
	U16
	U8
	F32
	F64
	Bool
	Str
)

// WireName returns the on-wire type name used in extended parameter encoding
// (the `{t:<tag>,v:<value>}` form).
func (t Tag) WireName() string {
	switch t {
	case I32:
		return "i32"
	case I16:
		return "i16"
	case I8:
		return "i8"
	case U32:
		return "u32"
	case U16:
		return "u16"
	case U8:
		return "u8"
	case F32:
		return "f64"
	case F64:
		return "double"
	case Bool:
		return "bool"
	case Str:
		return "str"
	default:
		return "xxx"
	}
}

// TagFromWireName reverses WireName, returning ok=false for an unknown name.
func TagFromWireName(name string) (Tag, bool) {
	switch name {
	case "i32":
		return I32, true
	case "i16":
		return I16, true
	case "i8":
		return I8, true
	case "u32":
		return U32, true
	case "u16":
		return U16, true
	case "u8":
		return U8, true
	case "f64":
		return F32, true
	case "double":
		return F64, true
	case "bool":
		return Bool, true
	case "str":
		return Str, true
	default:
		return 0, false
	}
}

// Value is a tagged scalar: exactly one of the typed fields is meaningful,
// selected by Tag.
type Value struct {
	Tag Tag

	I int64
	U uint64
	F float64
	B bool
	S string
}

// Int returns an I32-tagged Value.
func Int(v int32) Value { return Value{Tag: I32, I: int64(v)} }

// Int16 returns an I16-tagged Value.
func Int16(v int16) Value { return Value{Tag: I16, I: int64(v)} }

// Int8 returns an I8-tagged Value.
func Int8(v int8) Value { return Value{Tag: I8, I: int64(v)} }

// Uint returns a U32-tagged Value.
func Uint(v uint32) Value { return Value{Tag: U32, U: uint64(v)} }

// Uint16 returns a U16-tagged Value.
func Uint16(v uint16) Value { return Value{Tag: U16, U: uint64(v)} }

// Uint8 returns a U8-tagged Value.
func Uint8(v uint8) Value { return Value{Tag: U8, U: uint64(v)} }

// Float32 returns an F32-tagged Value.
func Float32(v float32) Value { return Value{Tag: F32, F: float64(v)} }

// Float64 returns an F64-tagged Value.
func Float64(v float64) Value { return Value{Tag: F64, F: v} }

// Boolean returns a Bool-tagged Value.
func Boolean(v bool) Value { return Value{Tag: Bool, B: v} }

// String returns a Str-tagged Value.
func String(v string) Value { return Value{Tag: Str, S: v} }

// SameTag reports whether two values share the same Tag, the check the
// decoder runs before accepting an inbound parameter update.
func (v Value) SameTag(other Value) bool { return v.Tag == other.Tag }

func (v Value) String() string {
	switch v.Tag {
	case I32, I16, I8:
		return fmt.Sprintf("%d", v.I)
	case U32, U16, U8:
		return fmt.Sprintf("%d", v.U)
	case F32, F64:
		return fmt.Sprintf("%f", v.F)
	case Bool:
		if v.B {
			return "true"
		}
		return "false"
	case Str:
		return v.S
	default:
		return "<invalid>"
	}
}
