// Package compiler walks a pre-parsed AST in a single depth-first pass and
// emits the instruction stream, immutables table, and line-definition
// bookkeeping that make up a bytecode.Program.
package compiler

import (
	"fmt"
	"math"

	"novalang/internal/ast"
	"novalang/internal/bytecode"
	"novalang/internal/object"
)

// Generator holds every piece of state the one-pass lowering needs: the
// program being built, the temp-register counter, the open lexical scopes,
// and the first error encountered (lowering continues past an error only far
// enough to avoid a nil-pointer panic; Generate returns it immediately
// after).
type Generator struct {
	prog *bytecode.Program

	tempStack uint32

	scopeDepth  int
	localScopes []map[string]uint32
	localCount  uint32

	globals map[string]uint32

	err  error
	file string
}

func New(file string) *Generator {
	return &Generator{
		prog:    &bytecode.Program{},
		file:    file,
		globals: make(map[string]uint32),
	}
}

// Generate lowers a top-level sequence of statements into a complete
// Program, appending Halt at the end.
func (g *Generator) Generate(statements []ast.Node) (*bytecode.Program, error) {
	for _, stmt := range statements {
		g.lowerStatement(stmt)
		if g.err != nil {
			return nil, g.err
		}
	}
	g.emit(bytecode.EncodeHalt())
	return g.prog, nil
}

func (g *Generator) fail(format string, args ...any) {
	if g.err == nil {
		g.err = fmt.Errorf(format, args...)
	}
}

func (g *Generator) emit(word uint32) int {
	g.prog.Instructions = append(g.prog.Instructions, word)
	return len(g.prog.Instructions) - 1
}

func (g *Generator) pushTemp() uint32 {
	r := g.tempStack
	g.tempStack++
	if r >= 10 {
		g.fail("too many live temporaries in one expression (register %d)", r)
	}
	return r
}

func (g *Generator) popTemps(n uint32) { g.tempStack -= n }

// patchForwardJump fixes up a placeholder Jump emitted at jumpWordIdx so that
// it lands on targetIdx. See dispatch's applyJump for the derivation of why
// offset = targetIdx - jumpWordIdx for a forward jump.
func (g *Generator) patchForwardJump(jumpWordIdx, targetIdx int) {
	offset := uint32(targetIdx - jumpWordIdx)
	g.prog.Instructions[jumpWordIdx] = bytecode.EncodeJump(true, offset)
}

// emitBackwardJump emits a Jump back to targetIdx (a loop's condition re-check).
func (g *Generator) emitBackwardJump(targetIdx int) {
	jumpWordIdx := len(g.prog.Instructions)
	offset := uint32(jumpWordIdx - targetIdx)
	g.emit(bytecode.EncodeJump(false, offset))
}

func (g *Generator) allocateLocal(name string) uint32 {
	slot := g.localCount
	g.localCount++
	g.localScopes[len(g.localScopes)-1][name] = slot
	return slot
}

func (g *Generator) resolveLocal(name string) (uint32, bool) {
	for i := len(g.localScopes) - 1; i >= 0; i-- {
		if slot, ok := g.localScopes[i][name]; ok {
			return slot, true
		}
	}
	return 0, false
}

func calleeName(n ast.Node) (string, bool) {
	if v, ok := n.(*ast.Variable); ok {
		return v.Name, true
	}
	return "", false
}

// --- statements ---

func (g *Generator) lowerStatement(node ast.Node) {
	if g.err != nil {
		return
	}
	line, file := node.Position()

	switch n := node.(type) {
	case *ast.VarDeclaration:
		g.lowerVarDeclaration(n)
	case *ast.ExpressionStatement:
		base := g.tempStack
		g.lowerExpr(n.Expr)
		g.tempStack = base
	case *ast.If:
		g.lowerIf(n)
	case *ast.While:
		g.lowerWhile(n)
	case *ast.Block:
		g.lowerBlock(n)
	case *ast.FunctionStatement:
		g.lowerFunctionStatement(n)
	case *ast.Return:
		g.lowerReturn(n)
	default:
		g.fail("generator: unsupported statement node %T", node)
		return
	}

	if len(g.prog.Instructions) > 0 {
		g.prog.MarkLine(line, file)
	}
}

func (g *Generator) lowerVarDeclaration(n *ast.VarDeclaration) {
	base := g.tempStack
	var valueReg uint32
	hasInit := n.Initializer != nil
	if hasInit {
		valueReg = g.lowerExpr(n.Initializer)
	}

	if g.scopeDepth == 0 {
		nameIdx := g.prog.InternString(n.Name)
		g.emit(bytecode.EncodeDefineGlobalIndirect(nameIdx))
		g.globals[n.Name] = nameIdx
		if hasInit {
			g.emit(bytecode.EncodeStoreGlobalIndirect(valueReg, nameIdx))
		}
	} else {
		slot := g.allocateLocal(n.Name)
		if hasInit {
			g.emit(bytecode.EncodeStoreLocal(valueReg, slot))
		}
	}
	g.tempStack = base
}

func (g *Generator) lowerIf(n *ast.If) {
	base := g.tempStack
	condReg := g.lowerExpr(n.Cond)
	g.tempStack = base

	g.emit(bytecode.EncodeJumpFalse(condReg))
	thenSkip := g.emit(bytecode.EncodeJump(true, 0))

	g.lowerStatement(n.Then)

	if n.Else != nil {
		elseSkip := g.emit(bytecode.EncodeJump(true, 0))
		g.patchForwardJump(thenSkip, len(g.prog.Instructions))
		g.lowerStatement(n.Else)
		g.patchForwardJump(elseSkip, len(g.prog.Instructions))
	} else {
		g.patchForwardJump(thenSkip, len(g.prog.Instructions))
	}
}

func (g *Generator) lowerWhile(n *ast.While) {
	loopStart := len(g.prog.Instructions)

	base := g.tempStack
	condReg := g.lowerExpr(n.Cond)
	g.tempStack = base

	g.emit(bytecode.EncodeJumpFalse(condReg))
	forwardSkip := g.emit(bytecode.EncodeJump(true, 0))

	g.lowerStatement(n.Body)

	g.emitBackwardJump(loopStart)
	g.patchForwardJump(forwardSkip, len(g.prog.Instructions))
}

func (g *Generator) lowerBlock(n *ast.Block) {
	g.scopeDepth++
	g.localScopes = append(g.localScopes, make(map[string]uint32))
	baseCount := g.localCount

	allocIdx := g.emit(bytecode.EncodeAllocateLocal(0))
	for _, stmt := range n.Statements {
		g.lowerStatement(stmt)
	}

	count := g.localCount - baseCount
	if count == 0 {
		g.prog.Instructions[allocIdx] = bytecode.EncodeNoOperand(bytecode.NoInstruction)
		g.emit(bytecode.EncodeNoOperand(bytecode.NoInstruction))
	} else {
		g.prog.Instructions[allocIdx] = bytecode.EncodeAllocateLocal(count)
		g.emit(bytecode.EncodeDeallocateLocal(count))
	}

	// Slots above baseCount are dead once the block's DeallocateLocal has
	// drained them; a sibling scope must reuse the same window.
	g.localCount = baseCount
	g.localScopes = g.localScopes[:len(g.localScopes)-1]
	g.scopeDepth--
}

func (g *Generator) lowerFunctionStatement(n *ast.FunctionStatement) {
	skip := g.emit(bytecode.EncodeJump(true, 0))
	entryAddr := uint32(len(g.prog.Instructions))

	nameIdx := g.prog.InternString(n.Name)
	fn := &object.Function{NameAddr: nameIdx, Address: entryAddr, Arity: uint8(len(n.Parameters))}
	g.prog.InternFunction(fn)
	g.globals[n.Name] = nameIdx

	outerScopes, outerCount, outerDepth := g.localScopes, g.localCount, g.scopeDepth
	g.localScopes = []map[string]uint32{make(map[string]uint32)}
	g.localCount = 0
	g.scopeDepth = 1

	for i, param := range n.Parameters {
		slot := g.allocateLocal(param)
		g.emit(bytecode.EncodeStoreLocal(uint32(i), slot))
	}
	for _, stmt := range n.Body.Statements {
		g.lowerStatement(stmt)
	}
	fn.NumberOfLocals = uint16(g.localCount)

	g.localScopes, g.localCount, g.scopeDepth = outerScopes, outerCount, outerDepth

	g.emit(bytecode.EncodeReturnNone())
	g.patchForwardJump(skip, len(g.prog.Instructions))
}

func (g *Generator) lowerReturn(n *ast.Return) {
	if n.Expr == nil {
		g.emit(bytecode.EncodeReturnNone())
		return
	}
	base := g.tempStack
	reg := g.lowerExpr(n.Expr)
	g.emit(bytecode.EncodeReturnVal(reg))
	g.tempStack = base
}

// --- expressions ---

func (g *Generator) lowerExpr(node ast.Node) uint32 {
	switch n := node.(type) {
	case *ast.Literal:
		return g.lowerLiteral(n)
	case *ast.Variable:
		return g.lowerVariable(n)
	case *ast.Assign:
		return g.lowerAssign(n)
	case *ast.Binary:
		return g.lowerBinary(n)
	case *ast.Unary:
		return g.lowerUnary(n)
	case *ast.Grouping:
		return g.lowerExpr(n.Expression)
	case *ast.Call:
		return g.lowerCall(n)
	default:
		g.fail("generator: unsupported expression node %T", node)
		return g.pushTemp()
	}
}

func (g *Generator) lowerLiteral(n *ast.Literal) uint32 {
	dst := g.pushTemp()
	switch n.Kind {
	case ast.LitString:
		idx := g.prog.InternString(n.Str)
		g.emit(bytecode.EncodeLoadK(dst, idx))
	case ast.LitBool:
		g.emit(bytecode.EncodeLoadBool(dst, n.Boolean))
	case ast.LitInt:
		g.emitIntLiteral(dst, n.Int)
	case ast.LitFloat:
		f := n.Float
		if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
			g.emitIntLiteral(dst, int64(f))
		} else {
			g.emitFloatLiteral(dst, f)
		}
	default:
		g.emit(bytecode.EncodeLoadNil(dst))
	}
	return dst
}

func (g *Generator) emitIntLiteral(dst uint32, v int64) {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		g.emit(bytecode.EncodeLoadInt32(dst))
		g.emit(uint32(int32(v)))
		return
	}
	g.emit(bytecode.EncodeLoadInt64(dst))
	hi, lo := bytecode.SplitU64(uint64(v))
	g.emit(hi)
	g.emit(lo)
}

func (g *Generator) emitFloatLiteral(dst uint32, f float64) {
	f32 := float32(f)
	if float64(f32) == f {
		g.emit(bytecode.EncodeLoadFloat32(dst))
		g.emit(math.Float32bits(f32))
		return
	}
	g.emit(bytecode.EncodeLoadFloat64(dst))
	hi, lo := bytecode.SplitU64(math.Float64bits(f))
	g.emit(hi)
	g.emit(lo)
}

func (g *Generator) lowerVariable(n *ast.Variable) uint32 {
	dst := g.pushTemp()
	if slot, ok := g.resolveLocal(n.Name); ok {
		g.emit(bytecode.EncodeLoadLocal(dst, slot))
		return dst
	}
	idx := g.prog.InternString(n.Name)
	g.emit(bytecode.EncodeLoadGlobalIndirect(dst, idx))
	return dst
}

// lowerAssign stores the evaluated value then reloads it, so that `x = v`
// still yields v as an expression value (the store opcodes clear their
// source register, so the post-store value must be re-read).
func (g *Generator) lowerAssign(n *ast.Assign) uint32 {
	base := g.tempStack
	valueReg := g.lowerExpr(n.Value)

	if slot, ok := g.resolveLocal(n.Name); ok {
		g.emit(bytecode.EncodeStoreLocal(valueReg, slot))
		g.tempStack = base
		dst := g.pushTemp()
		g.emit(bytecode.EncodeLoadLocal(dst, slot))
		return dst
	}

	idx := g.prog.InternString(n.Name)
	g.emit(bytecode.EncodeStoreGlobalIndirect(valueReg, idx))
	g.tempStack = base
	dst := g.pushTemp()
	g.emit(bytecode.EncodeLoadGlobalIndirect(dst, idx))
	return dst
}

func (g *Generator) lowerBinary(n *ast.Binary) uint32 {
	leftReg := g.lowerExpr(n.Left)
	rightReg := g.lowerExpr(n.Right)
	g.popTemps(2)
	dst := g.pushTemp()

	switch n.Operator {
	case ast.OpAdd:
		g.emit(bytecode.EncodeBinaryOp(bytecode.Add, dst, leftReg, rightReg))
	case ast.OpSub:
		g.emit(bytecode.EncodeBinaryOp(bytecode.Sub, dst, leftReg, rightReg))
	case ast.OpMul:
		g.emit(bytecode.EncodeBinaryOp(bytecode.Mul, dst, leftReg, rightReg))
	case ast.OpDiv:
		g.emit(bytecode.EncodeBinaryOp(bytecode.Div, dst, leftReg, rightReg))
	case ast.OpMod:
		g.emit(bytecode.EncodeBinaryOp(bytecode.Mod, dst, leftReg, rightReg))
	case ast.OpPow:
		g.emit(bytecode.EncodeBinaryOp(bytecode.Pow, dst, leftReg, rightReg))
	case ast.OpEqual:
		g.emit(bytecode.EncodeBinaryOp(bytecode.Equal, dst, leftReg, rightReg))
	case ast.OpNotEqual:
		g.emit(bytecode.EncodeBinaryOp(bytecode.Equal, dst, leftReg, rightReg))
		g.emit(bytecode.EncodeNot(dst))
	case ast.OpLess:
		g.emit(bytecode.EncodeBinaryOp(bytecode.Less, dst, leftReg, rightReg))
	case ast.OpLessEqual:
		g.emit(bytecode.EncodeBinaryOp(bytecode.LessEqual, dst, leftReg, rightReg))
	case ast.OpGreater:
		g.emit(bytecode.EncodeBinaryOp(bytecode.LessEqual, dst, leftReg, rightReg))
		g.emit(bytecode.EncodeNot(dst))
	case ast.OpGreaterEqual:
		g.emit(bytecode.EncodeBinaryOp(bytecode.Less, dst, leftReg, rightReg))
		g.emit(bytecode.EncodeNot(dst))
	default:
		g.fail("generator: unsupported binary operator")
	}
	return dst
}

func (g *Generator) lowerUnary(n *ast.Unary) uint32 {
	reg := g.lowerExpr(n.Right)
	switch n.Operator {
	case ast.OpNegate:
		g.emit(bytecode.EncodeNeg(reg))
	case ast.OpNot:
		g.emit(bytecode.EncodeNot(reg))
	}
	return reg
}

func (g *Generator) lowerCall(n *ast.Call) uint32 {
	if name, ok := calleeName(n.Callee); ok && (name == "print" || name == "println") {
		return g.lowerPrintCall(n, name == "println")
	}

	base := g.tempStack
	parameterStart := g.tempStack
	for _, arg := range n.Arguments {
		g.lowerExpr(arg)
	}
	argc := uint32(len(n.Arguments))

	var invokeReg uint32
	if name, ok := calleeName(n.Callee); ok {
		if slot, ok2 := g.resolveLocal(name); ok2 {
			invokeReg = g.pushTemp()
			g.emit(bytecode.EncodeLoadLocal(invokeReg, slot))
		} else {
			idx := g.prog.InternString(name)
			invokeReg = g.pushTemp()
			g.emit(bytecode.EncodeLoadGlobalIndirect(invokeReg, idx))
		}
	} else {
		invokeReg = g.lowerExpr(n.Callee)
	}

	g.emit(bytecode.EncodeInvoke(parameterStart, argc, invokeReg))
	g.tempStack = base
	dst := g.pushTemp()
	g.emit(bytecode.EncodeLoadReturn(dst))
	return dst
}

func (g *Generator) lowerPrintCall(n *ast.Call, newline bool) uint32 {
	base := g.tempStack
	for i, arg := range n.Arguments {
		reg := g.lowerExpr(arg)
		isLast := i == len(n.Arguments)-1
		g.emit(bytecode.EncodePrint(reg, newline && isLast))
		g.tempStack = base
	}
	dst := g.pushTemp()
	g.emit(bytecode.EncodeLoadNil(dst))
	return dst
}
