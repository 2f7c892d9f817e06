package compiler

import (
	"testing"

	"novalang/internal/bytecode"
	"novalang/internal/parser"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func generate(t *testing.T, source string) *bytecode.Program {
	t.Helper()
	statements, err := parser.Parse(source, "test")
	assert(t, err == nil, "parse error: %v", err)
	prog, err := New("test").Generate(statements)
	assert(t, err == nil, "generate error: %v", err)
	return prog
}

// TestTempRegisterHighWaterMark verifies the generator never addresses a
// temp register >= 10: the temp-stack region is R0..R9.
func TestTempRegisterHighWaterMark(t *testing.T) {
	src := `
a := 1
b := 2
c := 3
d := 4
e := 5
println(a + b + c + d + e)
`
	prog := generate(t, src)
	for i := 0; i < len(prog.Instructions); {
		word := prog.Instructions[i]
		op, dst, src1, src2, _ := bytecode.Decode(word)
		assert(t, dst < 10, "instruction %d (%s) addresses dst register %d >= 10", i, op, dst)
		assert(t, src1 < 10 || op == bytecode.Jump, "instruction %d (%s) addresses src1 register %d >= 10", i, op, src1)
		assert(t, src2 < 10 || opUsesSrc2AsImmediate(op), "instruction %d (%s) addresses src2 register %d >= 10", i, op, src2)
		i++
		i += op.PayloadWords()
	}
}

// opUsesSrc2AsImmediate reports whether op's low 4 bits are never a register
// operand at all (so the >=10 register check does not apply).
func opUsesSrc2AsImmediate(op bytecode.Op) bool {
	switch op {
	case bytecode.LoadK, bytecode.LoadBool, bytecode.Jump, bytecode.AllocateLocal,
		bytecode.DeallocateLocal, bytecode.StoreLocal, bytecode.LoadLocal,
		bytecode.DefineGlobalIndirect, bytecode.StoreGlobalIndirect,
		bytecode.LoadGlobalIndirect, bytecode.LoadGlobal:
		return true
	default:
		return false
	}
}

// TestHaltAppendedAtEnd verifies every generated program ends in Halt, per
// the generator's top-level lowering contract.
func TestHaltAppendedAtEnd(t *testing.T) {
	prog := generate(t, `a := 1`)
	last := prog.Instructions[len(prog.Instructions)-1]
	op, _, _, _, _ := bytecode.Decode(last)
	assert(t, op == bytecode.Halt, "expected final instruction to be Halt, got %s", op)
}

// TestIfWithoutElseSkipsDirectlyPastThen exercises the jump_correction=0
// case of the if-without-else lowering rule.
func TestIfWithoutElseSkipsDirectlyPastThen(t *testing.T) {
	prog := generate(t, `if true then a := 1 end`)
	// JumpFalse's paired Jump word must land exactly on Halt, the last
	// instruction, since nothing follows the if.
	for i, word := range prog.Instructions {
		op, _, _, _, _ := bytecode.Decode(word)
		if op == bytecode.JumpFalse {
			jumpWord := prog.Instructions[i+1]
			jop, dir, _, _, imm16 := bytecode.Decode(jumpWord)
			assert(t, jop == bytecode.Jump, "expected JumpFalse to be paired with a Jump word")
			assert(t, dir == 1, "expected a forward jump")
			target := (i + 1) + 1 + int(imm16) - 1
			assert(t, target == len(prog.Instructions)-1, "then-skip should land on Halt: target=%d, Halt at %d", target, len(prog.Instructions)-1)
			return
		}
	}
	t.Fatal("no JumpFalse found")
}
