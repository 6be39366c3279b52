// Package expr is the default visibility rule language.
//
// A rule compares properties against literals or other properties:
//
//	active
//	role == "admin" && !archived
//	age >= 18 || extras.role == "staff"
//	kind != null
//
// Operands are property paths (dot separated, "extras." reads caller
// extras), strings in single or double quotes, numbers, true, false and null.
// Ordering operators compare numerically when both sides are numbers and
// lexically otherwise, so ISO dates order as expected.
package expr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-formbind/pkg/visibility"
)

// Program is a compiled rule.
type Program struct {
	source string
	root   node
}

// Compile parses rule. An empty rule compiles to a program that always
// holds.
func Compile(rule string) (*Program, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return &Program{}, nil
	}
	tokens, err := lex(rule)
	if err != nil {
		return nil, fmt.Errorf("expr: %q: %w", rule, err)
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("expr: %q: %w", rule, err)
	}
	if !p.done() {
		return nil, fmt.Errorf("expr: %q: unexpected %q at offset %d", rule, p.peek().text, p.peek().pos)
	}
	return &Program{source: rule, root: root}, nil
}

// Eval runs the program against ctx.
func (p *Program) Eval(ctx visibility.Context) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.test(ctx)
}

func (p *Program) String() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Evaluator implements visibility.Evaluator, compiling each distinct rule
// once. It is safe for concurrent use.
type Evaluator struct {
	programs sync.Map
}

var _ visibility.Evaluator = (*Evaluator)(nil)

func New() *Evaluator { return &Evaluator{} }

func (e *Evaluator) Eval(rule string, ctx visibility.Context) (bool, error) {
	if cached, ok := e.programs.Load(rule); ok {
		return cached.(*Program).Eval(ctx)
	}
	program, err := Compile(rule)
	if err != nil {
		return false, err
	}
	e.programs.Store(rule, program)
	return program.Eval(ctx)
}
