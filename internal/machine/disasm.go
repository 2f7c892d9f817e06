package machine

import (
	"fmt"
	"io"
	"math"

	"novalang/internal/bytecode"
	"novalang/internal/object"
)

// Disassemble writes a human-readable listing of a program's instructions
// and immutables table, the format novac prints.
func Disassemble(w io.Writer, p *bytecode.Program) {
	fmt.Fprintln(w, "; instructions")
	for i := 0; i < len(p.Instructions); {
		word := p.Instructions[i]
		op, dst, src1, src2, imm16 := bytecode.Decode(word)
		if op.EmbedsImmutableIndex() && int(imm16) < len(p.Immutables) {
			fmt.Fprintf(w, "%04d  %-20s dst=%d src1=%d src2=%d imm16=%d  ; %s\n", i, op, dst, src1, src2, imm16, p.Immutables[imm16])
		} else {
			fmt.Fprintf(w, "%04d  %-20s dst=%d src1=%d src2=%d imm16=%d\n", i, op, dst, src1, src2, imm16)
		}
		i++

		switch op.PayloadWords() {
		case 1:
			payload := p.Instructions[i]
			if op == bytecode.LoadFloat32 {
				fmt.Fprintf(w, "%04d    .float32 %g\n", i, math.Float32frombits(payload))
			} else {
				fmt.Fprintf(w, "%04d    .int32 %d\n", i, int32(payload))
			}
			i++
		case 2:
			hi, lo := p.Instructions[i], p.Instructions[i+1]
			v := bytecode.MergeU32(hi, lo)
			if op == bytecode.LoadFloat64 {
				fmt.Fprintf(w, "%04d    .float64 %g\n", i, math.Float64frombits(v))
			} else {
				fmt.Fprintf(w, "%04d    .int64 %d\n", i, int64(v))
			}
			i += 2
		}
	}

	fmt.Fprintln(w, "; immutables")
	for i, obj := range p.Immutables {
		switch obj.Kind {
		case object.ObjString:
			fmt.Fprintf(w, "%04d  string %q\n", i, obj.Str)
		case object.ObjFunction:
			fmt.Fprintf(w, "%04d  function entry=%d arity=%d locals=%d\n", i, obj.Fn.Address, obj.Fn.Arity, obj.Fn.NumberOfLocals)
		default:
			fmt.Fprintf(w, "%04d  %s\n", i, obj.Kind)
		}
	}
}
