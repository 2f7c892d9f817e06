package parser

import (
	"fmt"

	"novalang/internal/ast"
)

// Parse tokenizes and parses a complete source file into a sequence of
// top-level statements.
func Parse(src, file string) ([]ast.Node, error) {
	tokens, err := newLexer(src, file).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens, file: file}
	var statements []ast.Node
	for !p.check(tokEOF) {
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

type parser struct {
	tokens []token
	pos    int
	file   string
}

func (p *parser) at() token { return p.tokens[p.pos] }

func (p *parser) check(t tokenType) bool { return p.at().typ == t }

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.typ != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) match(types ...tokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) expect(t tokenType, what string) (token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return token{}, fmt.Errorf("%s:%d: expected %s, got %q", p.file, p.at().line, what, p.at().lexeme)
}

func (p *parser) here() (int, string) { return p.at().line, p.file }

// --- statements ---

func (p *parser) statement() (ast.Node, error) {
	switch {
	case p.check(tokBlock):
		return p.blockStatement()
	case p.check(tokIf):
		return p.ifStatement()
	case p.check(tokWhile):
		return p.whileStatement()
	case p.check(tokFunction):
		return p.functionStatement()
	case p.check(tokReturn):
		return p.returnStatement()
	case p.check(tokIdent) && p.peekTypeAt(1) == tokColonEqual:
		return p.varDeclaration()
	default:
		return p.expressionStatement()
	}
}

func (p *parser) peekTypeAt(offset int) tokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return tokEOF
	}
	return p.tokens[idx].typ
}

func (p *parser) varDeclaration() (ast.Node, error) {
	line, file := p.here()
	name := p.advance().lexeme
	if _, err := p.expect(tokColonEqual, "':='"); err != nil {
		return nil, err
	}
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.VarDeclaration{Pos: ast.NewPos(line, file), Name: name, Initializer: value}, nil
}

// statementsUntil parses statements until one of the given terminator token
// types is the next token, without consuming the terminator.
func (p *parser) statementsUntil(terminators ...tokenType) ([]ast.Node, error) {
	var statements []ast.Node
	for {
		for _, t := range terminators {
			if p.check(t) {
				return statements, nil
			}
		}
		if p.check(tokEOF) {
			return nil, fmt.Errorf("%s:%d: unexpected end of input", p.file, p.at().line)
		}
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
}

func (p *parser) blockStatement() (ast.Node, error) {
	line, file := p.here()
	p.advance() // 'block'
	statements, err := p.statementsUntil(tokEnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokEnd, "'end'"); err != nil {
		return nil, err
	}
	return &ast.Block{Pos: ast.NewPos(line, file), Statements: statements}, nil
}

func (p *parser) ifStatement() (ast.Node, error) {
	line, file := p.here()
	p.advance() // 'if'
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokThen, "'then'"); err != nil {
		return nil, err
	}
	thenStatements, err := p.statementsUntil(tokElse, tokEnd)
	if err != nil {
		return nil, err
	}
	thenBlock := &ast.Block{Pos: ast.NewPos(line, file), Statements: thenStatements}

	var elseNode ast.Node
	if p.match(tokElse) {
		if p.check(tokIf) {
			elseNode, err = p.ifStatement()
			if err != nil {
				return nil, err
			}
			return &ast.If{Pos: ast.NewPos(line, file), Cond: cond, Then: thenBlock, Else: elseNode}, nil
		}
		elseStatements, err := p.statementsUntil(tokEnd)
		if err != nil {
			return nil, err
		}
		elseNode = &ast.Block{Pos: ast.NewPos(line, file), Statements: elseStatements}
	}

	if _, err := p.expect(tokEnd, "'end'"); err != nil {
		return nil, err
	}
	return &ast.If{Pos: ast.NewPos(line, file), Cond: cond, Then: thenBlock, Else: elseNode}, nil
}

func (p *parser) whileStatement() (ast.Node, error) {
	line, file := p.here()
	p.advance() // 'while'
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	bodyStatements, err := p.statementsUntil(tokEnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokEnd, "'end'"); err != nil {
		return nil, err
	}
	body := &ast.Block{Pos: ast.NewPos(line, file), Statements: bodyStatements}
	return &ast.While{Pos: ast.NewPos(line, file), Cond: cond, Body: body}, nil
}

func (p *parser) functionStatement() (ast.Node, error) {
	line, file := p.here()
	p.advance() // 'function'
	nameTok, err := p.expect(tokIdent, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var params []string
	if !p.check(tokRParen) {
		for {
			paramTok, err := p.expect(tokIdent, "parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, paramTok.lexeme)
			if !p.match(tokComma) {
				break
			}
		}
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	bodyStatements, err := p.statementsUntil(tokEnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokEnd, "'end'"); err != nil {
		return nil, err
	}
	body := &ast.Block{Pos: ast.NewPos(line, file), Statements: bodyStatements}
	return &ast.FunctionStatement{Pos: ast.NewPos(line, file), Name: nameTok.lexeme, Parameters: params, Body: body}, nil
}

func (p *parser) returnStatement() (ast.Node, error) {
	line, file := p.here()
	p.advance() // 'return'
	if p.check(tokEnd) || p.check(tokEOF) {
		return &ast.Return{Pos: ast.NewPos(line, file)}, nil
	}
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.Return{Pos: ast.NewPos(line, file), Expr: expr}, nil
}

func (p *parser) expressionStatement() (ast.Node, error) {
	line, file := p.here()
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Pos: ast.NewPos(line, file), Expr: expr}, nil
}

// --- expressions, precedence climbing ---

func (p *parser) expression() (ast.Node, error) { return p.assignment() }

func (p *parser) assignment() (ast.Node, error) {
	line, file := p.here()
	if p.check(tokIdent) && p.peekTypeAt(1) == tokEqual {
		name := p.advance().lexeme
		p.advance() // '='
		value, err := p.assignment()
		if err != nil {
			return nil, err
		}
		return &ast.Assign{Pos: ast.NewPos(line, file), Name: name, Value: value}, nil
	}
	return p.equality()
}

func (p *parser) equality() (ast.Node, error) {
	left, err := p.comparison()
	if err != nil {
		return nil, err
	}
	for p.check(tokEqualEqual) || p.check(tokBangEqual) {
		line, file := p.here()
		op := ast.OpEqual
		if p.at().typ == tokBangEqual {
			op = ast.OpNotEqual
		}
		p.advance()
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: ast.NewPos(line, file), Left: left, Operator: op, Right: right}
	}
	return left, nil
}

func (p *parser) comparison() (ast.Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.check(tokLess) || p.check(tokLessEqual) || p.check(tokGreater) || p.check(tokGreaterEqual) {
		line, file := p.here()
		var op ast.BinaryOperator
		switch p.at().typ {
		case tokLess:
			op = ast.OpLess
		case tokLessEqual:
			op = ast.OpLessEqual
		case tokGreater:
			op = ast.OpGreater
		case tokGreaterEqual:
			op = ast.OpGreaterEqual
		}
		p.advance()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: ast.NewPos(line, file), Left: left, Operator: op, Right: right}
	}
	return left, nil
}

func (p *parser) term() (ast.Node, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.check(tokPlus) || p.check(tokMinus) {
		line, file := p.here()
		op := ast.OpAdd
		if p.at().typ == tokMinus {
			op = ast.OpSub
		}
		p.advance()
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: ast.NewPos(line, file), Left: left, Operator: op, Right: right}
	}
	return left, nil
}

func (p *parser) factor() (ast.Node, error) {
	left, err := p.power()
	if err != nil {
		return nil, err
	}
	for p.check(tokStar) || p.check(tokSlash) || p.check(tokPercent) {
		line, file := p.here()
		var op ast.BinaryOperator
		switch p.at().typ {
		case tokStar:
			op = ast.OpMul
		case tokSlash:
			op = ast.OpDiv
		case tokPercent:
			op = ast.OpMod
		}
		p.advance()
		right, err := p.power()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Pos: ast.NewPos(line, file), Left: left, Operator: op, Right: right}
	}
	return left, nil
}

// power is right-associative: 2^3^2 == 2^(3^2).
func (p *parser) power() (ast.Node, error) {
	line, file := p.here()
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	if p.match(tokCaret) {
		right, err := p.power()
		if err != nil {
			return nil, err
		}
		return &ast.Binary{Pos: ast.NewPos(line, file), Left: left, Operator: ast.OpPow, Right: right}, nil
	}
	return left, nil
}

func (p *parser) unary() (ast.Node, error) {
	line, file := p.here()
	if p.check(tokMinus) {
		p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Pos: ast.NewPos(line, file), Operator: ast.OpNegate, Right: right}, nil
	}
	if p.check(tokBang) {
		p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Pos: ast.NewPos(line, file), Operator: ast.OpNot, Right: right}, nil
	}
	return p.call()
}

func (p *parser) call() (ast.Node, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.check(tokLParen) {
		line, file := p.here()
		p.advance()
		var args []ast.Node
		if !p.check(tokRParen) {
			for {
				arg, err := p.expression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.match(tokComma) {
					break
				}
			}
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		expr = &ast.Call{Pos: ast.NewPos(line, file), Callee: expr, Arguments: args}
	}
	return expr, nil
}

func (p *parser) primary() (ast.Node, error) {
	line, file := p.here()
	tok := p.at()

	switch tok.typ {
	case tokNumber:
		p.advance()
		if tok.isInt {
			return &ast.Literal{Pos: ast.NewPos(line, file), Kind: ast.LitInt, Int: tok.ival}, nil
		}
		return &ast.Literal{Pos: ast.NewPos(line, file), Kind: ast.LitFloat, Float: tok.num}, nil
	case tokString:
		p.advance()
		return &ast.Literal{Pos: ast.NewPos(line, file), Kind: ast.LitString, Str: tok.lexeme}, nil
	case tokTrue:
		p.advance()
		return &ast.Literal{Pos: ast.NewPos(line, file), Kind: ast.LitBool, Boolean: true}, nil
	case tokFalse:
		p.advance()
		return &ast.Literal{Pos: ast.NewPos(line, file), Kind: ast.LitBool, Boolean: false}, nil
	case tokNone:
		p.advance()
		return &ast.Literal{Pos: ast.NewPos(line, file), Kind: ast.LitNone}, nil
	case tokIdent:
		p.advance()
		return &ast.Variable{Pos: ast.NewPos(line, file), Name: tok.lexeme}, nil
	case tokLParen:
		p.advance()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return &ast.Grouping{Pos: ast.NewPos(line, file), Expression: expr}, nil
	default:
		return nil, fmt.Errorf("%s:%d: unexpected token %q", p.file, line, tok.lexeme)
	}
}

