package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zzl221000/springql/value"
)

// parser is a precedence-climbing recursive-descent parser over a flat
// token stream, following the teacher's own expr/parser.go shape
// (Pratt-style precedence table) but trimmed to the grammar spec.md §4.4
// actually needs:
//
//	or         := and ( "OR" and )*
//	and        := not ( "AND" not )*
//	not        := "NOT" not | comparison
//	comparison := additive ( ("="|"<>"|"!="|"<"|">"|"<="|">=") additive )?
//	additive   := multiplicative ( ("+"|"-") multiplicative )*
//	multiplicative := unary ( ("*"|"/") unary )*
//	unary      := "-" unary | primary
//	primary    := NUMBER | STRING | TRUE | FALSE | NULL | IDENT | "(" or ")"
type parser struct {
	toks []string
	pos  int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() string {
	if p.atEnd() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *parser) advance() string {
	t := p.peek()
	p.pos++
	return t
}

func keyword(tok string) string { return strings.ToUpper(tok) }

func (p *parser) parseOr() (*Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for keyword(p.peek()) == "OR" {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindBinaryLogical, Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (*Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for keyword(p.peek()) == "AND" {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindBinaryLogical, Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (*Node, error) {
	if keyword(p.peek()) == "NOT" {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindUnary, Op: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]bool{
	"=": true, "<>": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
}

func (p *parser) parseComparison() (*Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if comparisonOps[p.peek()] {
		op := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindComparison, Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseAdditive() (*Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek() == "+" || p.peek() == "-" {
		op := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindNumerical, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (*Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek() == "*" || p.peek() == "/" {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Node{Kind: KindNumerical, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (*Node, error) {
	if p.peek() == "-" {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindUnary, Op: "-", Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*Node, error) {
	if p.atEnd() {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	tok := p.advance()

	switch {
	case tok == "(":
		n, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, fmt.Errorf("expected ')', got %q", p.peek())
		}
		p.advance()
		return n, nil

	case keyword(tok) == "TRUE":
		return Lit(value.NewBool(true)), nil
	case keyword(tok) == "FALSE":
		return Lit(value.NewBool(false)), nil
	case keyword(tok) == "NULL":
		return Lit(value.Null()), nil

	case len(tok) >= 2 && (tok[0] == '\'' || tok[0] == '"'):
		return Lit(value.NewText(unquote(tok))), nil

	case isNumberToken(tok):
		if strings.ContainsAny(tok, ".eE") {
			f, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number literal %q", tok)
			}
			return Lit(value.NewF64(f)), nil
		}
		i, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number literal %q", tok)
		}
		return Lit(value.NewI64(i)), nil

	default:
		return Col(tok), nil
	}
}

func isNumberToken(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !(r >= '0' && r <= '9') && r != '.' && r != 'e' && r != 'E' && r != '+' && r != '-' {
			return false
		}
	}
	return tok[0] >= '0' && tok[0] <= '9' || tok[0] == '.'
}

func unquote(tok string) string {
	if len(tok) < 2 {
		return tok
	}
	inner := tok[1 : len(tok)-1]
	return strings.ReplaceAll(inner, "\\"+tok[:1], tok[:1])
}
