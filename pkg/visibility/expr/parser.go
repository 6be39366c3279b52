package expr

import (
	"fmt"
	"strconv"
)

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) done() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() token {
	if p.done() {
		return token{kind: tokEOF, text: "end of rule", pos: -1}
	}
	return p.tokens[p.pos]
}

func (p *parser) accept(kind tokenKind) bool {
	if p.peek().kind == kind {
		p.pos++
		return true
	}
	return false
}

// or := and ("||" and)*
func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

// and := unary ("&&" unary)*
func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

// unary := "!" unary | "(" or ")" | comparison
func (p *parser) parseUnary() (node, error) {
	if p.accept(tokNot) {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	if p.accept(tokLParen) {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokRParen) {
			return nil, fmt.Errorf("expected ) got %q", p.peek().text)
		}
		return inner, nil
	}
	return p.parseComparison()
}

// comparison := operand (op operand)?
func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	switch op := p.peek().kind; op {
	case tokEq, tokNeq, tokLt, tokLte, tokGt, tokGte:
		p.pos++
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return compareNode{op: op, left: left, right: right}, nil
	}
	return truthyNode{left}, nil
}

func (p *parser) parseOperand() (operand, error) {
	tok := p.peek()
	switch tok.kind {
	case tokIdent:
		p.pos++
		return operand{path: tok.text}, nil
	case tokString:
		p.pos++
		return operand{literal: tok.text, isLiteral: true}, nil
	case tokNumber:
		p.pos++
		num, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return operand{}, fmt.Errorf("invalid number %q", tok.text)
		}
		return operand{literal: num, isLiteral: true}, nil
	case tokTrue, tokFalse:
		p.pos++
		return operand{literal: tok.kind == tokTrue, isLiteral: true}, nil
	case tokNull:
		p.pos++
		return operand{literal: nil, isLiteral: true}, nil
	default:
		return operand{}, fmt.Errorf("expected operand got %q", tok.text)
	}
}
