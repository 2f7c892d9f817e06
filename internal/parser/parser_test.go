package parser

import (
	"testing"

	"novalang/internal/ast"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func parseOne(t *testing.T, src string) ast.Node {
	t.Helper()
	statements, err := Parse(src, "test")
	assert(t, err == nil, "parse error: %v", err)
	assert(t, len(statements) == 1, "expected 1 statement, got %d", len(statements))
	return statements[0]
}

func TestDeclarationVersusAssignment(t *testing.T) {
	decl, ok := parseOne(t, `a := 1`).(*ast.VarDeclaration)
	assert(t, ok, "expected := to parse as a declaration")
	assert(t, decl.Name == "a", "wrong declaration name %q", decl.Name)

	stmt, ok := parseOne(t, `a = 1`).(*ast.ExpressionStatement)
	assert(t, ok, "expected = to parse as an expression statement")
	_, ok = stmt.Expr.(*ast.Assign)
	assert(t, ok, "expected = to parse as an assignment expression")
}

func TestMulBindsTighterThanAdd(t *testing.T) {
	stmt := parseOne(t, `1 + 2 * 3`).(*ast.ExpressionStatement)
	bin, ok := stmt.Expr.(*ast.Binary)
	assert(t, ok, "expected a binary expression")
	assert(t, bin.Operator == ast.OpAdd, "expected + at the root, got operator %d", bin.Operator)
	right, ok := bin.Right.(*ast.Binary)
	assert(t, ok && right.Operator == ast.OpMul, "expected 2*3 grouped under the right operand")
}

func TestPowerIsRightAssociative(t *testing.T) {
	stmt := parseOne(t, `2 ^ 3 ^ 2`).(*ast.ExpressionStatement)
	bin := stmt.Expr.(*ast.Binary)
	assert(t, bin.Operator == ast.OpPow, "expected ^ at the root")
	right, ok := bin.Right.(*ast.Binary)
	assert(t, ok && right.Operator == ast.OpPow, "expected 3^2 grouped under the right operand")
	_, leftIsLiteral := bin.Left.(*ast.Literal)
	assert(t, leftIsLiteral, "expected the left operand to stay a literal")
}

func TestElseIfChainsAsNestedIf(t *testing.T) {
	src := `if a then b := 1 else if c then d := 1 end`
	node := parseOne(t, src).(*ast.If)
	nested, ok := node.Else.(*ast.If)
	assert(t, ok, "expected else-if to parse as a nested If in the else arm")
	assert(t, nested.Else == nil, "nested if should carry no else arm")
}

func TestFunctionStatementParameters(t *testing.T) {
	fn := parseOne(t, `function add(a, b) return a + b end`).(*ast.FunctionStatement)
	assert(t, fn.Name == "add", "wrong function name %q", fn.Name)
	assert(t, len(fn.Parameters) == 2 && fn.Parameters[0] == "a" && fn.Parameters[1] == "b",
		"wrong parameter list %v", fn.Parameters)
	assert(t, len(fn.Body.Statements) == 1, "expected a single body statement")
}

func TestCallArgumentsAndNesting(t *testing.T) {
	stmt := parseOne(t, `f(1, g(2), "s")`).(*ast.ExpressionStatement)
	call, ok := stmt.Expr.(*ast.Call)
	assert(t, ok, "expected a call expression")
	assert(t, len(call.Arguments) == 3, "expected 3 arguments, got %d", len(call.Arguments))
	inner, ok := call.Arguments[1].(*ast.Call)
	assert(t, ok, "expected the second argument to be a nested call")
	assert(t, len(inner.Arguments) == 1, "nested call should carry 1 argument")
}

func TestStringEscapes(t *testing.T) {
	stmt := parseOne(t, `"line\nnext"`).(*ast.ExpressionStatement)
	lit := stmt.Expr.(*ast.Literal)
	assert(t, lit.Kind == ast.LitString, "expected a string literal")
	assert(t, lit.Str == "line\nnext", "escape not decoded, got %q", lit.Str)
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		`block a := 1`,         // missing end
		`function f( return 1`, // malformed parameter list
		`"unterminated`,
		`a := `,
		`? := 1`,
	}
	for _, src := range cases {
		if _, err := Parse(src, "test"); err == nil {
			t.Fatalf("expected a parse error for %q", src)
		}
	}
}
