// Package karl implements a minimal evaluator for the surface
// expression language anchored by the knowledge context: arithmetic
// over +, -, *, /, parenthesised grouping, and {name} variable
// references resolved against a knowledge.Context. The language itself
// is treated as opaque and external to the context core; this package
// is one possible external collaborator, not part of the core.
package karl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ppriyankuu/knowledgebase/internal/knowledge"
)

// Evaluator compiles and evaluates expressions against a single
// context, mirroring how a real KaRL evaluator re-enters the context
// under its own recursive lock while resolving {name} references.
type Evaluator struct {
	ctx *knowledge.Context
}

// New returns an Evaluator bound to ctx.
func New(ctx *knowledge.Context) *Evaluator {
	return &Evaluator{ctx: ctx}
}

// Eval parses and evaluates expr, returning its numeric result. A
// {name} reference is resolved via ctx.Get and converted with
// ToDouble; braces are expanded exactly as Context.ExpandStatement
// would, but inline, so nested lookups can feed straight into
// arithmetic without a string round-trip.
func (e *Evaluator) Eval(expr string) (float64, error) {
	p := &parser{ctx: e.ctx, src: []rune(expr)}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return 0, fmt.Errorf("karl: unexpected trailing input at %d", p.pos)
	}
	return v, nil
}

// Assign evaluates rhs and stores the result into name as a DOUBLE
// record, using default update settings.
func (e *Evaluator) Assign(name, rhs string) error {
	v, err := e.Eval(rhs)
	if err != nil {
		return err
	}
	if code := e.ctx.SetDouble(name, v, knowledge.DefaultUpdateSettings()); code != 0 {
		return fmt.Errorf("karl: assignment to %q failed", name)
	}
	return nil
}

type parser struct {
	ctx *knowledge.Context
	src []rune
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *parser) peek() rune {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// parseExpr handles + and - at the lowest precedence.
func (p *parser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v += rhs
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			v -= rhs
		default:
			return v, nil
		}
	}
}

// parseTerm handles * and / at the next precedence level.
func (p *parser) parseTerm() (float64, error) {
	v, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			v *= rhs
		case '/':
			p.pos++
			rhs, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, fmt.Errorf("karl: division by zero")
			}
			v /= rhs
		default:
			return v, nil
		}
	}
}

// parseFactor handles unary sign, parenthesised groups, {name}
// references, and numeric literals.
func (p *parser) parseFactor() (float64, error) {
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case '+':
		p.pos++
		return p.parseFactor()
	case '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("karl: expected ')' at %d", p.pos)
		}
		p.pos++
		return v, nil
	case '{':
		return p.parseReference()
	}
	return p.parseNumber()
}

func (p *parser) parseReference() (float64, error) {
	p.pos++ // consume '{'
	start := p.pos
	depth := 1
	for p.pos < len(p.src) && depth > 0 {
		switch p.src[p.pos] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				name := string(p.src[start:p.pos])
				for {
					open := strings.LastIndex(name, "{")
					if open < 0 {
						break
					}
					close := strings.Index(name[open:], "}")
					if close < 0 {
						break
					}
					close += open
					name = name[:open] + p.ctx.Get(name[open+1:close]).ToString() + name[close+1:]
				}
				p.pos++
				return p.ctx.Get(name).ToDouble(), nil
			}
		}
		p.pos++
	}
	return 0, fmt.Errorf("karl: unterminated '{' at %d", start)
}

func (p *parser) parseNumber() (float64, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '.' || (c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return 0, fmt.Errorf("karl: expected number at %d", start)
	}
	v, err := strconv.ParseFloat(string(p.src[start:p.pos]), 64)
	if err != nil {
		return 0, fmt.Errorf("karl: invalid number %q: %w", string(p.src[start:p.pos]), err)
	}
	return v, nil
}
