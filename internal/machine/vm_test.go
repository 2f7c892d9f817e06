package machine

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"novalang/internal/compiler"
	"novalang/internal/object"
	"novalang/internal/parser"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

// compileAndRun parses and lowers source, loads it into a fresh VM, runs it,
// and returns everything a scenario test wants to inspect.
func compileAndRun(t *testing.T, source string) (vm *VM, stdout string, exitCode int) {
	t.Helper()
	statements, err := parser.Parse(source, "test")
	assert(t, err == nil, "parse error: %v", err)

	prog, err := compiler.New("test").Generate(statements)
	assert(t, err == nil, "generate error: %v", err)

	var buf bytes.Buffer
	vm = New(&buf)
	entry := vm.LoadProgram(prog)
	exitCode = vm.Start(entry)
	return vm, buf.String(), exitCode
}

func runAndEnsureSuccess(t *testing.T, source, wantStdout string) *VM {
	t.Helper()
	vm, out, code := compileAndRun(t, source)
	assert(t, code == 0, "expected normal halt, got exit code %d (stdout=%q)", code, out)
	assert(t, out == wantStdout, "stdout mismatch: got %q, want %q", out, wantStdout)
	return vm
}

func runAndEnsureError(t *testing.T, source string) *VM {
	t.Helper()
	vm, _, code := compileAndRun(t, source)
	assert(t, code == 1, "expected runtime error, got exit code %d", code)
	assert(t, vm.RERR.Kind != object.KindNone, "expected RERR set before ReportError observes it")
	return vm
}

// --- end-to-end scenarios ---

func TestArithmeticChain(t *testing.T) {
	src := `
a := 4
b := a*a
c := b * a
d := 100
e := a + b + c + d
println(e)
`
	runAndEnsureSuccess(t, src, "184\n")
}

func TestBlockLocalsScope(t *testing.T) {
	src := `
block
a := 10
b := 20
println(a*b)
end
`
	runAndEnsureSuccess(t, src, "200\n")
}

func TestWhileLoop(t *testing.T) {
	src := `
i := 1
while i <= 10
println(i)
i = i + 1
end
`
	var want strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&want, "%d\n", i)
	}
	runAndEnsureSuccess(t, src, want.String())
}

func TestUserFunctionCall(t *testing.T) {
	src := `
function sq(x)
return x*x
end
println(sq(7))
`
	runAndEnsureSuccess(t, src, "49\n")
}

func TestStringConcat(t *testing.T) {
	src := `
s := "hello "
println(s + "world")
`
	runAndEnsureSuccess(t, src, "hello world\n")
}

func TestIfElse(t *testing.T) {
	runAndEnsureSuccess(t, `if 3 > 2 then println("yes") else println("no") end`, "yes\n")
	runAndEnsureSuccess(t, `if 1 > 2 then println("yes") else println("no") end`, "no\n")
}

// --- error cases ---

func TestUnknownGlobalIsRuntimeError(t *testing.T) {
	vm := runAndEnsureError(t, `println(missing)`)
	msg := vm.stringOf(vm.RERR)
	assert(t, strings.Contains(msg, "missing"), "error message %q does not name the missing global", msg)
}

func TestArityMismatch(t *testing.T) {
	src := `
function f(x)
return x
end
println(f(1, 2))
`
	vm := runAndEnsureError(t, src)
	msg := vm.stringOf(vm.RERR)
	assert(t, strings.Contains(msg, "1") && strings.Contains(msg, "2"), "arity error %q should name both counts", msg)
}

func TestNumberPlusStringConcatenates(t *testing.T) {
	runAndEnsureSuccess(t, `println(1 + "x")`, "1x\n")
}

func TestNumberPlusNoneIsError(t *testing.T) {
	runAndEnsureError(t, `println(1 + none)`)
}

// --- invariants ---

func TestFrameBalanceAcrossCalls(t *testing.T) {
	src := `
function f(x)
return x + 1
end
a := f(1)
b := f(a)
println(b)
`
	vm, out, code := compileAndRun(t, src)
	assert(t, code == 0, "unexpected error exit: %s", out)
	assert(t, out == "3\n", "stdout mismatch: got %q", out)
	assert(t, len(vm.Locals) == 0, "locals stack not drained after calls returned: %d left", len(vm.Locals))
	assert(t, len(vm.Frames) == 1 && vm.Frames[0].IsMain, "frame stack should only hold the sentinel main frame, got %d frames", len(vm.Frames))
}

func TestTruthiness(t *testing.T) {
	runAndEnsureSuccess(t, `if 0 then println("truthy") else println("falsy") end`, "truthy\n")
	runAndEnsureSuccess(t, `if "" then println("truthy") else println("falsy") end`, "truthy\n")
	runAndEnsureSuccess(t, `if none then println("truthy") else println("falsy") end`, "falsy\n")
	runAndEnsureSuccess(t, `if false then println("truthy") else println("falsy") end`, "falsy\n")
}

func TestDivisionAlwaysFloat(t *testing.T) {
	runAndEnsureSuccess(t, `println(4 / 2)`, "2\n")
	runAndEnsureSuccess(t, `println(5 / 2)`, "2.5\n")
}

func TestSiblingBlocksReuseLocalSlots(t *testing.T) {
	src := `
block
a := 1
println(a)
end
block
b := 2
println(b)
end
`
	vm := runAndEnsureSuccess(t, src, "1\n2\n")
	assert(t, len(vm.Locals) == 0, "locals stack not drained after blocks closed: %d left", len(vm.Locals))
}

func TestNestedBlockInsideFunction(t *testing.T) {
	src := `
function f(x)
r := 0
block
y := x + 1
r = y
end
return r
end
println(f(4))
`
	runAndEnsureSuccess(t, src, "5\n")
}

func TestStringSubtractionIsError(t *testing.T) {
	runAndEnsureError(t, `println("a" - "b")`)
}

func TestAssignToUndefinedGlobalIsError(t *testing.T) {
	runAndEnsureError(t, `x = 5`)
}
