package engine

import (
	"fmt"
	"strconv"
)

// binaryPrecedence maps binary operators to their binding power. Higher
// binds tighter; all of them are left-associative.
var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

// maxNesting bounds how deep statements and expressions may nest. Deeper
// input is a SyntaxError instead of an exhausted goroutine stack.
const maxNesting = 2000

type Parser struct {
	lexer *Lexer
	cur   Token
	prev  Token
	depth int
}

// ParseString parses a whole snippet into a Block node. The first syntax
// error aborts parsing and is returned as a *ScriptError.
func ParseString(data string) (*Node, error) {
	p := &Parser{lexer: NewLexer(data)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseProgram()
}

// IsIncomplete reports whether data fails to parse only because it ends
// too early, e.g. inside an open block or after a binary operator.
// Interactive prompts use it to ask for another line.
func IsIncomplete(data string) bool {
	p := &Parser{lexer: NewLexer(data)}
	if err := p.advance(); err != nil {
		return false
	}
	_, err := p.parseProgram()
	return err != nil && p.cur.Type == TokenEOF
}

func (p *Parser) advance() error {
	p.prev = p.cur
	p.cur = p.lexer.NextToken()
	if p.cur.Type == TokenError {
		return newError(ErrSyntax, p.cur.Span(), p.cur.Literal)
	}
	return nil
}

// errorAt pins a syntax error to tok. End of input has no width, so errors
// there are reported on the last real token instead.
func (p *Parser) errorAt(tok Token, format string, args ...interface{}) error {
	span := tok.Span()
	if tok.Type == TokenEOF {
		if p.prev.Length > 0 {
			span = p.prev.Span()
		} else {
			span = Span{Row: tok.Line, Col: tok.Column, Len: 1}
		}
	}
	return newError(ErrSyntax, span, fmt.Sprintf(format, args...))
}

// enter counts one level of nesting; every call is paired with a deferred
// leave.
func (p *Parser) enter(what string) error {
	p.depth++
	if p.depth > maxNesting {
		return p.errorAt(p.cur, "%s nested too deeply", what)
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) expect(text, context string) (Token, error) {
	if !p.cur.Is(text) {
		return p.cur, p.errorAt(p.cur, "expected '%s' %s, got %s", text, context, p.cur.describe())
	}
	tok := p.cur
	return tok, p.advance()
}

func (p *Parser) expectIdentifier(context string) (Token, error) {
	if p.cur.Type != TokenIdentifier {
		return p.cur, p.errorAt(p.cur, "expected identifier %s, got %s", context, p.cur.describe())
	}
	tok := p.cur
	return tok, p.advance()
}

// expectTerminator consumes the ';' ending a simple statement. It may be
// left out before '}' and at end of input.
func (p *Parser) expectTerminator(context string) error {
	if p.cur.Is(";") {
		return p.advance()
	}
	if p.cur.Is("}") || p.cur.Type == TokenEOF {
		return nil
	}
	return p.errorAt(p.cur, "expected ';' after %s, got %s", context, p.cur.describe())
}

func (p *Parser) parseProgram() (*Node, error) {
	root := &Node{Kind: NodeBlock, Span: Span{Row: 1, Col: 1}}
	for p.cur.Type != TokenEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			root.Children = append(root.Children, stmt)
		}
	}
	return root, nil
}

func (p *Parser) parseStatement() (*Node, error) {
	defer p.leave()
	if err := p.enter("statement"); err != nil {
		return nil, err
	}

	switch {
	case p.cur.Is(";"):
		return nil, p.advance()
	case p.cur.Is("{"):
		return p.parseBlock()
	case p.cur.Is("var"):
		return p.parseVar()
	case p.cur.Is("function"):
		return p.parseFunction()
	case p.cur.Is("if"):
		return p.parseIf()
	case p.cur.Is("while"):
		return p.parseWhile()
	case p.cur.Is("return"):
		return p.parseReturn()
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return expr, p.expectTerminator("expression")
}

func (p *Parser) parseBlock() (*Node, error) {
	open, err := p.expect("{", "to open block")
	if err != nil {
		return nil, err
	}
	block := &Node{Kind: NodeBlock, Span: open.Span()}
	for !p.cur.Is("}") {
		if p.cur.Type == TokenEOF {
			return nil, newError(ErrSyntax, open.Span(), "unclosed block: expected '}'")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			block.Children = append(block.Children, stmt)
		}
	}
	return block, p.advance()
}

func (p *Parser) parseVar() (*Node, error) {
	kw := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.expectIdentifier("after 'var'")
	if err != nil {
		return nil, err
	}
	node := &Node{Kind: NodeAssignment, Span: kw.Span().Through(name.Span()), Name: name.Literal, Declare: true}
	if p.cur.Is("=") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node.Children = []*Node{value}
	}
	return node, p.expectTerminator("variable declaration")
}

func (p *Parser) parseFunction() (*Node, error) {
	kw := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.expectIdentifier("after 'function'")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("(", "after function name"); err != nil {
		return nil, err
	}

	var params []string
	seen := make(map[string]bool)
	for !p.cur.Is(")") {
		if len(params) > 0 {
			if _, err := p.expect(",", "between parameters"); err != nil {
				return nil, err
			}
		}
		param, err := p.expectIdentifier("in parameter list")
		if err != nil {
			return nil, err
		}
		if seen[param.Literal] {
			return nil, newError(ErrSyntax, param.Span(), fmt.Sprintf("duplicate parameter '%s'", param.Literal))
		}
		seen[param.Literal] = true
		params = append(params, param.Literal)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &Node{
		Kind:     NodeFunctionDecl,
		Span:     kw.Span().Through(name.Span()),
		Name:     name.Literal,
		Params:   params,
		Children: []*Node{body},
	}, nil
}

func (p *Parser) parseCondition(keyword string) (*Node, error) {
	if _, err := p.expect("(", "after '"+keyword+"'"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(")", "after condition"); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *Parser) parseIf() (*Node, error) {
	kw := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parseCondition("if")
	if err != nil {
		return nil, err
	}
	then, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	node := &Node{Kind: NodeIf, Span: kw.Span(), Children: []*Node{cond, then}}

	if p.cur.Is("else") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		alt, err := p.parseBody()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, alt)
	}
	return node, nil
}

func (p *Parser) parseWhile() (*Node, error) {
	kw := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parseCondition("while")
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: NodeWhile, Span: kw.Span(), Children: []*Node{cond, body}}, nil
}

// parseBody parses the statement controlled by if/else/while. An empty
// statement becomes an empty block.
func (p *Parser) parseBody() (*Node, error) {
	start := p.cur
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return &Node{Kind: NodeBlock, Span: start.Span()}, nil
	}
	return stmt, nil
}

func (p *Parser) parseReturn() (*Node, error) {
	kw := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	node := &Node{Kind: NodeReturn, Span: kw.Span()}
	if !p.cur.Is(";") && !p.cur.Is("}") && p.cur.Type != TokenEOF {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		node.Children = []*Node{value}
	}
	return node, p.expectTerminator("return")
}

func (p *Parser) parseExpression() (*Node, error) {
	defer p.leave()
	if err := p.enter("expression"); err != nil {
		return nil, err
	}
	return p.parseAssignment()
}

// parseAssignment is right-associative: a = b = 1 assigns b first.
func (p *Parser) parseAssignment() (*Node, error) {
	left, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.cur.Is("=") {
		return left, nil
	}
	if left.Kind != NodeIdentifier {
		return nil, newError(ErrSyntax, left.Span, "invalid assignment target")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	value, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	return &Node{
		Kind:     NodeAssignment,
		Span:     left.Span,
		Name:     left.Name,
		Children: []*Node{value},
	}, nil
}

// parseBinary is a precedence climber over binaryPrecedence.
func (p *Parser) parseBinary(minPrec int) (*Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.cur
		prec, ok := binaryPrecedence[op.Literal]
		if op.Type != TokenOperator || !ok || prec < minPrec {
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &Node{
			Kind:     NodeBinary,
			Span:     left.Span.Through(right.Span),
			Op:       op.Literal,
			Children: []*Node{left, right},
		}
	}
}

func (p *Parser) parseUnary() (*Node, error) {
	defer p.leave()
	if err := p.enter("expression"); err != nil {
		return nil, err
	}

	if p.cur.Is("-") || p.cur.Is("!") {
		op := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Node{
			Kind:     NodeUnary,
			Span:     op.Span().Through(operand.Span),
			Op:       op.Literal,
			Children: []*Node{operand},
		}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (*Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.Is("(") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		call := &Node{Kind: NodeCall, Children: []*Node{expr}}
		for !p.cur.Is(")") {
			if len(call.Children) > 1 {
				if _, err := p.expect(",", "between arguments"); err != nil {
					return nil, err
				}
			}
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Children = append(call.Children, arg)
		}
		call.Span = expr.Span.Through(p.cur.Span())
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr = call
	}
	return expr, nil
}

func (p *Parser) parsePrimary() (*Node, error) {
	tok := p.cur
	var node *Node

	switch {
	case tok.Type == TokenNumber:
		n, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorAt(tok, "invalid number literal '%s'", tok.Literal)
		}
		node = &Node{Kind: NodeLiteral, Span: tok.Span(), Value: NewNumber(n)}
	case tok.Type == TokenString:
		node = &Node{Kind: NodeLiteral, Span: tok.Span(), Value: NewString(tok.Literal)}
	case tok.Is("true"), tok.Is("false"):
		node = &Node{Kind: NodeLiteral, Span: tok.Span(), Value: NewBool(tok.Literal == "true")}
	case tok.Is("nil"):
		node = &Node{Kind: NodeLiteral, Span: tok.Span(), Value: NewNil()}
	case tok.Type == TokenIdentifier:
		node = &Node{Kind: NodeIdentifier, Span: tok.Span(), Name: tok.Literal}
	case tok.Is("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		closing, err := p.expect(")", "to close '('")
		if err != nil {
			return nil, err
		}
		// Widen the span over the parentheses so errors cover the group.
		inner.Span = tok.Span().Through(closing.Span())
		return inner, nil
	case tok.Type == TokenEOF:
		return nil, p.errorAt(tok, "unexpected end of input")
	default:
		return nil, p.errorAt(tok, "unexpected token %s", tok.describe())
	}

	return node, p.advance()
}
