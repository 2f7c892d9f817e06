package machine

import (
	"bytes"
	"testing"

	"novalang/internal/compiler"
	"novalang/internal/parser"
)

// TestLoadProgramOffsetFixup verifies the module-load offset fix-up
// invariant: after loading program B following program A, every
// Load/Store/DefineGlobalIndirect and LoadK in B still reads/writes the same
// semantic name or immutable it did before being appended.
func TestLoadProgramOffsetFixup(t *testing.T) {
	var out bytes.Buffer
	vm := New(&out)

	loadTurn := func(source string) uint32 {
		statements, err := parser.Parse(source, "turn")
		assert(t, err == nil, "parse error: %v", err)
		prog, err := compiler.New("turn").Generate(statements)
		assert(t, err == nil, "generate error: %v", err)
		entry := vm.LoadProgram(prog)
		code := vm.Start(entry)
		assert(t, code == 0, "unexpected runtime error in turn")
		return entry
	}

	loadTurn(`a := 10`)
	loadTurn(`b := 20`)
	loadTurn(`println(a + b)`)

	if got := out.String(); got != "30\n" {
		t.Fatalf("expected globals from earlier turns to resolve by name after later loads, got %q", got)
	}
}

// TestLoadProgramPreservesInstructionCount checks the loader's linear walk
// reaches exactly the final instruction index of the appended program: no
// payload word of a multi-word instruction is mistaken for an opcode header.
// It does so by round-tripping a program containing both
// LoadInt64 and LoadFloat64 literals (2-payload-word instructions) through
// LoadProgram twice and checking the resulting instruction count is additive.
func TestLoadProgramPreservesInstructionCount(t *testing.T) {
	var out bytes.Buffer
	vm := New(&out)

	src := `
big := 5000000000
pi := 3.14159265358979
println(big)
println(pi)
`
	statements, err := parser.Parse(src, "t")
	assert(t, err == nil, "parse error: %v", err)
	prog, err := compiler.New("t").Generate(statements)
	assert(t, err == nil, "generate error: %v", err)

	wantLen := len(prog.Instructions)
	entry := vm.LoadProgram(prog)

	assert(t, len(vm.Instructions) == wantLen, "expected %d instructions after first load, got %d", wantLen, len(vm.Instructions))

	code := vm.Start(entry)
	assert(t, code == 0, "unexpected runtime error: %s", out.String())
	assert(t, out.String() == "5000000000\n3.14159265358979\n", "unexpected stdout: %q", out.String())

	// Second load appends a second, independent copy; total length doubles
	// and the appended copy's own immutable references still resolve.
	statements2, err := parser.Parse(src, "t2")
	assert(t, err == nil, "parse error: %v", err)
	prog2, err := compiler.New("t2").Generate(statements2)
	assert(t, err == nil, "generate error: %v", err)

	entry2 := vm.LoadProgram(prog2)
	assert(t, len(vm.Instructions) == wantLen*2, "expected instruction count to double after second load, got %d", len(vm.Instructions))

	out.Reset()
	code = vm.Start(entry2)
	assert(t, code == 0, "unexpected runtime error on second program: %s", out.String())
	assert(t, out.String() == "5000000000\n3.14159265358979\n", "unexpected stdout from second program: %q", out.String())
}

// TestFunctionDefinedInLaterLoadKeepsEntryAddress verifies the loader shifts
// a function descriptor's entry address by the instruction offset on append,
// exactly as it shifts embedded immutable indices: a function defined in a
// second load (a REPL turn after the first) must run its own body, not jump
// to whatever instruction happens to live at its pre-append address.
func TestFunctionDefinedInLaterLoadKeepsEntryAddress(t *testing.T) {
	var out bytes.Buffer
	vm := New(&out)

	loadTurn := func(source string) {
		statements, err := parser.Parse(source, "turn")
		assert(t, err == nil, "parse error: %v", err)
		prog, err := compiler.New("turn").Generate(statements)
		assert(t, err == nil, "generate error: %v", err)
		entry := vm.LoadProgram(prog)
		code := vm.Start(entry)
		assert(t, code == 0, "unexpected runtime error in turn %q", source)
	}

	loadTurn(`a := 1`)
	loadTurn(`
function sq(x)
return x * x
end
`)
	loadTurn(`println(sq(9))`)

	if got := out.String(); got != "81\n" {
		t.Fatalf("expected a function from a later load to execute its own body, got %q", got)
	}
}
