package machine

import (
	"fmt"
	"math"

	"novalang/internal/object"
)

// formatRegisterNumber renders a numeric register the canonical way: integral
// floats and Int64s print without a fractional part.
func formatRegisterNumber(r object.Register) string {
	switch r.Kind {
	case object.KindInt64:
		return fmt.Sprintf("%d", r.AsInt64())
	case object.KindFloat64:
		f := r.AsFloat64()
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%g", f)
	default:
		return ""
	}
}

// stringOf renders any register the way Print and string-concatenation need.
func (vm *VM) stringOf(r object.Register) string {
	switch r.Kind {
	case object.KindInt64, object.KindFloat64:
		return formatRegisterNumber(r)
	case object.KindBool:
		if r.AsBool() {
			return "true"
		}
		return "false"
	case object.KindNone:
		return "None"
	case object.KindStrImm, object.KindImmAddress:
		return vm.Immutables[r.AsIndex()].Str
	case object.KindStrMem, object.KindMemAddress:
		return vm.Memory[r.AsIndex()].Str
	default:
		return ""
	}
}

func (vm *VM) arith(op func(a, b float64) float64, intOp func(a, b int64) int64, dst, src1, src2 uint32) {
	a := vm.Current.Regs[src1]
	b := vm.Current.Regs[src2]

	if !a.IsNumeric() || !b.IsNumeric() {
		vm.raiseError("arithmetic on non-numeric operand")
		return
	}

	if a.Kind == object.KindInt64 && b.Kind == object.KindInt64 && intOp != nil {
		vm.Current.Regs[dst] = object.Int64(intOp(a.AsInt64(), b.AsInt64()))
		return
	}
	fa := asFloat(a)
	fb := asFloat(b)
	vm.Current.Regs[dst] = object.Float64(op(fa, fb))
}

func asFloat(r object.Register) float64 {
	if r.Kind == object.KindInt64 {
		return float64(r.AsInt64())
	}
	return r.AsFloat64()
}

// add is the one arithmetic opcode with a string rule: if either operand is
// a string, the result is a freshly allocated concatenation instead.
func (vm *VM) add(dst, src1, src2 uint32) {
	if vm.Current.Regs[src1].IsString() || vm.Current.Regs[src2].IsString() {
		vm.concat(dst, src1, src2)
		return
	}
	vm.arith(func(a, b float64) float64 { return a + b }, func(a, b int64) int64 { return a + b }, dst, src1, src2)
}

func (vm *VM) sub(dst, src1, src2 uint32) {
	vm.arith(func(a, b float64) float64 { return a - b }, func(a, b int64) int64 { return a - b }, dst, src1, src2)
}

func (vm *VM) mul(dst, src1, src2 uint32) {
	vm.arith(func(a, b float64) float64 { return a * b }, func(a, b int64) int64 { return a * b }, dst, src1, src2)
}

// div always yields Float64, even for two integer operands.
func (vm *VM) div(dst, src1, src2 uint32) {
	a := vm.Current.Regs[src1]
	b := vm.Current.Regs[src2]
	if !a.IsNumeric() || !b.IsNumeric() {
		vm.raiseError("arithmetic on non-numeric operand")
		return
	}
	vm.Current.Regs[dst] = object.Float64(asFloat(a) / asFloat(b))
}

func (vm *VM) mod(dst, src1, src2 uint32) {
	a := vm.Current.Regs[src1]
	b := vm.Current.Regs[src2]
	if !a.IsNumeric() || !b.IsNumeric() {
		vm.raiseError("arithmetic on non-numeric operand")
		return
	}
	if a.Kind == object.KindInt64 && b.Kind == object.KindInt64 {
		vm.Current.Regs[dst] = object.Int64(a.AsInt64() % b.AsInt64())
		return
	}
	vm.Current.Regs[dst] = object.Float64(math.Remainder(asFloat(a), asFloat(b)))
}

// pow: integer-integer uses float exponentiation then truncates back.
func (vm *VM) pow(dst, src1, src2 uint32) {
	a := vm.Current.Regs[src1]
	b := vm.Current.Regs[src2]
	if !a.IsNumeric() || !b.IsNumeric() {
		vm.raiseError("arithmetic on non-numeric operand")
		return
	}
	result := math.Pow(asFloat(a), asFloat(b))
	if a.Kind == object.KindInt64 && b.Kind == object.KindInt64 {
		vm.Current.Regs[dst] = object.Int64(int64(result))
		return
	}
	vm.Current.Regs[dst] = object.Float64(result)
}

func (vm *VM) concat(dst, src1, src2 uint32) {
	s := vm.stringOf(vm.Current.Regs[src1]) + vm.stringOf(vm.Current.Regs[src2])
	addr := vm.storeInMemory(object.NewString(s))
	vm.Current.Regs[dst] = object.StrMem(addr)
}

func (vm *VM) neg(reg uint32) {
	r := vm.Current.Regs[reg]
	if r.Kind != object.KindFloat64 {
		vm.raiseError("negation requires a float operand")
		return
	}
	vm.Current.Regs[reg] = object.Float64(-r.AsFloat64())
}

func (vm *VM) not(reg uint32) {
	r := vm.Current.Regs[reg]
	vm.Current.Regs[reg] = object.Bool(!r.Truthy())
}

func (vm *VM) less(dst, src1, src2 uint32) {
	a := vm.Current.Regs[src1]
	b := vm.Current.Regs[src2]
	switch {
	case a.IsNumeric() && b.IsNumeric():
		vm.Current.Regs[dst] = object.Bool(asFloat(a) < asFloat(b))
	case a.IsString() && b.IsString():
		vm.Current.Regs[dst] = object.Bool(vm.stringOf(a) < vm.stringOf(b))
	default:
		vm.raiseError("comparison between incompatible types")
	}
}

func (vm *VM) lessEqual(dst, src1, src2 uint32) {
	a := vm.Current.Regs[src1]
	b := vm.Current.Regs[src2]
	switch {
	case a.IsNumeric() && b.IsNumeric():
		vm.Current.Regs[dst] = object.Bool(asFloat(a) <= asFloat(b))
	case a.IsString() && b.IsString():
		vm.Current.Regs[dst] = object.Bool(vm.stringOf(a) <= vm.stringOf(b))
	default:
		vm.raiseError("comparison between incompatible types")
	}
}

func (vm *VM) equal(dst, src1, src2 uint32) {
	a := vm.Current.Regs[src1]
	b := vm.Current.Regs[src2]
	switch {
	case a.Kind == object.KindNone && b.Kind == object.KindNone:
		vm.Current.Regs[dst] = object.Bool(true)
	case a.IsNumeric() && b.IsNumeric():
		vm.Current.Regs[dst] = object.Bool(asFloat(a) == asFloat(b))
	case a.IsString() && b.IsString():
		vm.Current.Regs[dst] = object.Bool(vm.stringOf(a) == vm.stringOf(b))
	case a.Kind == object.KindBool && b.Kind == object.KindBool:
		vm.Current.Regs[dst] = object.Bool(a.AsBool() == b.AsBool())
	default:
		vm.Current.Regs[dst] = object.Bool(false)
	}
}
