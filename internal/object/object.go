// Package object defines the value types that flow between the generator,
// the virtual machine, and native functions: the tagged register variant and
// the heap/immutable object variant it can point at.
package object

import (
	"fmt"
	"math"
)

// Kind tags the 64-bit payload carried by a Register.
type Kind uint8

const (
	KindNone Kind = iota
	KindInt64
	KindFloat64
	KindBool
	KindMemAddress
	KindImmAddress
	KindStrImm
	KindStrMem
	KindNovaFunctionID
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindInt64:
		return "Int64"
	case KindFloat64:
		return "Float64"
	case KindBool:
		return "Bool"
	case KindMemAddress:
		return "MemAddress"
	case KindImmAddress:
		return "ImmAddress"
	case KindStrImm:
		return "StrImm"
	case KindStrMem:
		return "StrMem"
	case KindNovaFunctionID:
		return "NovaFunctionID"
	default:
		return "?unknown?"
	}
}

// Register is a tagged value living in a frame's register file. The 64-bit
// payload is reinterpreted according to Kind: IEEE-754 bits for Float64,
// two's complement for Int64, 0/1 for Bool, a vector index for the address
// kinds, and a packed function descriptor for NovaFunctionID.
type Register struct {
	Kind  Kind
	Value uint64
}

// None is the zero-value register, used to default-initialize locals and
// fresh frames.
var None = Register{Kind: KindNone}

func Int64(v int64) Register { return Register{Kind: KindInt64, Value: uint64(v)} }
func Float64(v float64) Register {
	return Register{Kind: KindFloat64, Value: floatBits(v)}
}
func Bool(v bool) Register {
	if v {
		return Register{Kind: KindBool, Value: 1}
	}
	return Register{Kind: KindBool, Value: 0}
}
func MemAddress(addr uint32) Register {
	return Register{Kind: KindMemAddress, Value: uint64(addr)}
}
func ImmAddress(idx uint32) Register {
	return Register{Kind: KindImmAddress, Value: uint64(idx)}
}
func StrImm(idx uint32) Register {
	return Register{Kind: KindStrImm, Value: uint64(idx)}
}
func StrMem(addr uint32) Register {
	return Register{Kind: KindStrMem, Value: uint64(addr)}
}

// AsInt64 reinterprets the payload as a two's-complement 64-bit integer.
func (r Register) AsInt64() int64 { return int64(r.Value) }

// AsFloat64 reinterprets the payload as IEEE-754 bits.
func (r Register) AsFloat64() float64 { return bitsFloat(r.Value) }

// AsBool reports whether the payload is non-zero.
func (r Register) AsBool() bool { return r.Value != 0 }

// AsIndex reinterprets the payload as a vector index (address kinds).
func (r Register) AsIndex() uint32 { return uint32(r.Value) }

// Truthy implements the language's truthiness rule: None and Bool(false) are
// falsy, everything else (including 0, 0.0 and "") is truthy.
func (r Register) Truthy() bool {
	switch r.Kind {
	case KindNone:
		return false
	case KindBool:
		return r.AsBool()
	default:
		return true
	}
}

// IsNumeric reports whether the register holds Int64 or Float64.
func (r Register) IsNumeric() bool {
	return r.Kind == KindInt64 || r.Kind == KindFloat64
}

// IsString reports whether the register holds an interned or heap string.
func (r Register) IsString() bool {
	return r.Kind == KindStrImm || r.Kind == KindStrMem
}

// Packed layout of a NovaFunctionID register, low bits first:
//
//	bits  0-31  entry address   (uint32)
//	bits 32-47  locals count    (uint16)
//	bits 48-55  arity           (uint8)
//	bit  56     is_method
//
// Frequent direct calls through this register skip the heap indirection
// into memory that a MemAddress-kind callable requires.
const (
	fnIDEntryShift  = 0
	fnIDLocalsShift = 32
	fnIDArityShift  = 48
	fnIDMethodShift = 56
)

// FitsInlineFunctionID reports whether a function descriptor's fields fit
// the packed bit budget of a NovaFunctionID register.
func FitsInlineFunctionID(entry uint32, locals uint16, arity uint8) bool {
	return true // entry:32 + locals:16 + arity:8 + flag:1 always fits in 64 bits
}

// PackFunctionID builds the NovaFunctionID register for a user function.
func PackFunctionID(entry uint32, locals uint16, arity uint8, isMethod bool) Register {
	v := uint64(entry)<<fnIDEntryShift | uint64(locals)<<fnIDLocalsShift | uint64(arity)<<fnIDArityShift
	if isMethod {
		v |= 1 << fnIDMethodShift
	}
	return Register{Kind: KindNovaFunctionID, Value: v}
}

// UnpackFunctionID extracts the fields packed by PackFunctionID.
func UnpackFunctionID(r Register) (entry uint32, locals uint16, arity uint8, isMethod bool) {
	entry = uint32(r.Value >> fnIDEntryShift)
	locals = uint16(r.Value >> fnIDLocalsShift)
	arity = uint8(r.Value >> fnIDArityShift)
	isMethod = (r.Value>>fnIDMethodShift)&1 != 0
	return
}

func floatBits(f float64) uint64 { return math.Float64bits(f) }
func bitsFloat(u uint64) float64 { return math.Float64frombits(u) }

// ObjectKind tags a NovaObject stored in the immutables table or the heap.
type ObjectKind uint8

const (
	ObjString ObjectKind = iota
	ObjFunction
	ObjNumber
	ObjNative
)

// Function describes a user-defined callable: its interned name, bytecode
// entry address, arity, whether it is a bound method, and the local-variable
// count the generator patches in once the body has been lowered.
type Function struct {
	NameAddr       uint32
	Name           string // populated when read back from a bytecode file
	Address        uint32
	Arity          uint8
	IsMethod       bool
	NumberOfLocals uint16
}

// NativeFunc is the host-supplied implementation behind an ObjNative.
type NativeFunc func(args []Object) (Object, error)

// Native binds a name to a host function. Equality/printability only needs
// the name; the function value itself is opaque.
type Native struct {
	Name string
	Fn   NativeFunc
}

// Object is a tagged union of everything that can live in a Program's
// immutables vector or the VM's heap memory vector.
type Object struct {
	Kind   ObjectKind
	Str    string
	Fn     *Function
	Num    float64
	Native *Native
}

func (k ObjectKind) String() string {
	switch k {
	case ObjString:
		return "string"
	case ObjFunction:
		return "function"
	case ObjNumber:
		return "number"
	case ObjNative:
		return "native"
	default:
		return "?"
	}
}

func NewString(s string) Object      { return Object{Kind: ObjString, Str: s} }
func NewFunction(f *Function) Object { return Object{Kind: ObjFunction, Fn: f} }
func NewNumber(n float64) Object     { return Object{Kind: ObjNumber, Num: n} }
func NewNative(n *Native) Object     { return Object{Kind: ObjNative, Native: n} }

func (o Object) IsCallable() bool { return o.Kind == ObjFunction || o.Kind == ObjNative }

func (o Object) String() string {
	switch o.Kind {
	case ObjString:
		return o.Str
	case ObjNumber:
		return formatNumber(o.Num)
	case ObjFunction:
		return fmt.Sprintf("function(arity=%d)", o.Fn.Arity)
	case ObjNative:
		return fmt.Sprintf("native:%s", o.Native.Name)
	default:
		return "None"
	}
}

// formatNumber produces the canonical decimal representation: integral
// floats print without a fractional part, matching how the machine prints
// numeric registers.
func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
