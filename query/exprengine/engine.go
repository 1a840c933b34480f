// Package exprengine implements the query.Engine contract for a
// restricted filter grammar:
//
//	select <column>[, <column>...] from <source> [where <condition> [and|or <condition>...]]
//
// A column is a dotted row path ("this.headers.deviceName") with an
// optional alias; a condition compares a row path against a literal or a
// positional "?" parameter with one of the operators
// = != <> < <= > >= like regexp. Conditions are joined by a single
// uniform logic operator, either all "and" or all "or".
//
// The grammar is intentionally small. Hosts with richer query needs plug
// in their own query.Engine implementation.
package exprengine

import (
	"fmt"
	"strings"

	"github.com/c360/alarmstreams/errors"
	"github.com/c360/alarmstreams/query"
)

// Engine compiles restricted filter queries.
type Engine struct{}

// New returns a new expression engine.
func New() *Engine {
	return &Engine{}
}

// Compile parses the query text into an executable query.
func (e *Engine) Compile(text string) (query.Query, error) {
	q, err := parse(text)
	if err != nil {
		return nil, errors.WrapInvalid(err, "ExprEngine", "Compile", "parse query")
	}
	return q, nil
}

// column is one projected output of a query.
type column struct {
	path  string // row path, "this." prefix stripped
	alias string
}

// operand is the right-hand side of a condition: either a positional
// parameter or a literal value.
type operand struct {
	bind      bool
	bindIndex int
	value     any
}

// condition compares a row path against an operand.
type condition struct {
	path string
	op   string
	rhs  operand
}

// compiled is a parsed query. It is immutable and safe for concurrent Run.
type compiled struct {
	columns   []column
	source    string
	conds     []condition
	logic     string // "and" or "or"; "and" when single condition
	bindCount int
}

func parse(text string) (*compiled, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks}
	q := &compiled{logic: "and"}

	if err := p.expectKeyword("select"); err != nil {
		return nil, err
	}
	if err := p.parseColumns(q); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}

	src, err := p.ident()
	if err != nil {
		return nil, fmt.Errorf("expected source name: %w", err)
	}
	q.source = src

	if p.peekKeyword("where") {
		p.next()
		if err := p.parseConditions(q); err != nil {
			return nil, err
		}
	}

	if tok := p.next(); tok.kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing token %q", tok.text)
	}
	return q, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) next() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	tok := p.toks[p.pos]
	p.pos++
	return tok
}

func (p *parser) peek() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekKeyword(kw string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && strings.EqualFold(tok.text, kw)
}

func (p *parser) expectKeyword(kw string) error {
	tok := p.next()
	if tok.kind != tokIdent || !strings.EqualFold(tok.text, kw) {
		return fmt.Errorf("expected %q, got %q", kw, tok.text)
	}
	return nil
}

func (p *parser) ident() (string, error) {
	tok := p.next()
	if tok.kind != tokIdent {
		return "", fmt.Errorf("expected identifier, got %q", tok.text)
	}
	return tok.text, nil
}

func (p *parser) parseColumns(q *compiled) error {
	for {
		tok := p.next()
		if tok.kind != tokIdent {
			return fmt.Errorf("expected column expression, got %q", tok.text)
		}
		col := column{path: stripThis(tok.text)}

		// Optional alias: a plain or quoted identifier that is not a
		// keyword and not punctuation.
		if next := p.peek(); (next.kind == tokIdent && !isKeyword(next.text)) || next.kind == tokQuotedIdent {
			col.alias = p.next().text
		} else {
			parts := strings.Split(col.path, ".")
			col.alias = parts[len(parts)-1]
		}
		q.columns = append(q.columns, col)

		if p.peek().kind == tokComma {
			p.next()
			continue
		}
		return nil
	}
}

func (p *parser) parseConditions(q *compiled) error {
	logic := ""
	for {
		path, err := p.ident()
		if err != nil {
			return fmt.Errorf("expected condition field: %w", err)
		}

		opTok := p.next()
		op, ok := normalizeOp(opTok)
		if !ok {
			return fmt.Errorf("unsupported operator %q", opTok.text)
		}

		rhs, err := p.parseOperand(q)
		if err != nil {
			return err
		}

		q.conds = append(q.conds, condition{path: stripThis(path), op: op, rhs: rhs})

		next := p.peek()
		if next.kind != tokIdent || (!strings.EqualFold(next.text, "and") && !strings.EqualFold(next.text, "or")) {
			return nil
		}
		joiner := strings.ToLower(p.next().text)
		if logic == "" {
			logic = joiner
			q.logic = joiner
		} else if logic != joiner {
			return fmt.Errorf("mixed and/or without grouping is not supported")
		}
	}
}

func (p *parser) parseOperand(q *compiled) (operand, error) {
	tok := p.next()
	switch tok.kind {
	case tokBind:
		op := operand{bind: true, bindIndex: q.bindCount}
		q.bindCount++
		return op, nil
	case tokNumber:
		return operand{value: tok.number}, nil
	case tokString:
		return operand{value: tok.text}, nil
	case tokIdent:
		switch strings.ToLower(tok.text) {
		case "true":
			return operand{value: true}, nil
		case "false":
			return operand{value: false}, nil
		}
		return operand{}, fmt.Errorf("expected literal or ?, got %q", tok.text)
	default:
		return operand{}, fmt.Errorf("expected literal or ?, got %q", tok.text)
	}
}

func normalizeOp(tok token) (string, bool) {
	switch tok.kind {
	case tokSymbol:
		switch tok.text {
		case "=", "==":
			return "=", true
		case "!=", "<>":
			return "!=", true
		case "<", "<=", ">", ">=":
			return tok.text, true
		}
	case tokIdent:
		switch strings.ToLower(tok.text) {
		case "like":
			return "like", true
		case "regexp":
			return "regexp", true
		}
	}
	return "", false
}

func stripThis(path string) string {
	if rest, ok := strings.CutPrefix(path, "this."); ok {
		return rest
	}
	return path
}

func isKeyword(s string) bool {
	switch strings.ToLower(s) {
	case "select", "from", "where", "and", "or", "like", "regexp":
		return true
	}
	return false
}
