// Package expr implements the expression tree of spec.md §4.4 step 2 and
// §9 Design Notes ("model expressions as an immutable tree of tagged
// variants"): literal, column reference, unary/binary logical, comparison,
// and numerical nodes, evaluated as a pure function of (tree, tuple) with
// SQL three-valued logic. The tokenizer/parser shape (precedence-climbing
// over a flat token stream) follows the teacher's own hand-rolled
// expr/tokenizer.go + expr/parser.go, simplified to the operator set
// spec.md actually needs; pump WHERE-clause filters compile through the
// same tree so Null propagates identically in filter and projection.
package expr

import (
	"github.com/zzl221000/springql/row"
	"github.com/zzl221000/springql/springqlerr"
	"github.com/zzl221000/springql/value"
)

// Kind tags which variant a Node is.
type Kind int

const (
	KindLiteral Kind = iota
	KindColumnRef
	KindUnary
	KindBinaryLogical
	KindComparison
	KindNumerical
)

// Node is one immutable node of the expression tree.
type Node struct {
	Kind Kind

	// KindLiteral
	Literal value.Value

	// KindColumnRef
	Column string

	// KindUnary: Op is "NOT" or "-" (arithmetic negation); Operand is the child.
	// KindBinaryLogical: Op is "AND"/"OR"; Left/Right are children.
	// KindComparison: Op is one of "=","<>","!=","<",">","<=",">="; Left/Right children.
	// KindNumerical: Op is one of "+","-","*","/"; Left/Right children.
	Op      string
	Operand *Node
	Left    *Node
	Right   *Node
}

// Lit builds a literal node.
func Lit(v value.Value) *Node { return &Node{Kind: KindLiteral, Literal: v} }

// Col builds a column-reference node.
func Col(name string) *Node { return &Node{Kind: KindColumnRef, Column: name} }

// Compile parses a scalar expression string into a Node tree.
func Compile(source string) (*Node, error) {
	toks, err := tokenize(source)
	if err != nil {
		return nil, springqlerr.Wrap(springqlerr.Sql, err, "cannot tokenize expression %q", source)
	}
	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, springqlerr.Wrap(springqlerr.Sql, err, "cannot parse expression %q", source)
	}
	if !p.atEnd() {
		return nil, springqlerr.New(springqlerr.Sql, "unexpected trailing input in expression %q", source)
	}
	return n, nil
}

// Eval evaluates the tree against a bound Row's column values, by name.
// Evaluation is strict, short-circuit for AND/OR, with SQL three-valued
// logic: Null propagates through every arithmetic and comparison operator,
// and a Null boolean operand makes AND/OR produce Null unless the other
// operand alone already determines the result (Null AND false == false;
// Null OR true == true) — the classical SQL truth table.
func Eval(n *Node, r *row.Row) (value.Value, error) {
	switch n.Kind {
	case KindLiteral:
		return n.Literal, nil

	case KindColumnRef:
		v, err := r.GetByName(n.Column)
		if err != nil {
			return value.Value{}, err
		}
		return v, nil

	case KindUnary:
		v, err := Eval(n.Operand, r)
		if err != nil {
			return value.Value{}, err
		}
		if n.Op == "NOT" {
			if v.IsNull() {
				return value.Null(), nil
			}
			b, err := v.AsBool()
			if err != nil {
				return value.Value{}, err
			}
			return value.NewBool(!b), nil
		}
		// arithmetic negation
		if v.IsNull() {
			return value.Null(), nil
		}
		f, err := v.AsFloat64()
		if err != nil {
			return value.Value{}, err
		}
		return value.NewF64(-f), nil

	case KindBinaryLogical:
		return evalLogical(n, r)

	case KindComparison:
		return evalComparison(n, r)

	case KindNumerical:
		return evalNumerical(n, r)

	default:
		return value.Value{}, springqlerr.New(springqlerr.Sql, "unknown expression node kind %d", n.Kind)
	}
}

func evalLogical(n *Node, r *row.Row) (value.Value, error) {
	left, err := Eval(n.Left, r)
	if err != nil {
		return value.Value{}, err
	}

	// Short-circuit: AND with a known-false left, or OR with a known-true
	// left, determines the result without evaluating the right side.
	if !left.IsNull() {
		lb, err := left.AsBool()
		if err != nil {
			return value.Value{}, err
		}
		if n.Op == "AND" && !lb {
			return value.NewBool(false), nil
		}
		if n.Op == "OR" && lb {
			return value.NewBool(true), nil
		}
	}

	right, err := Eval(n.Right, r)
	if err != nil {
		return value.Value{}, err
	}

	if left.IsNull() && right.IsNull() {
		return value.Null(), nil
	}
	if left.IsNull() || right.IsNull() {
		// one side is Null, the other is known; SQL three-valued logic:
		// Null AND false == false; Null AND true == Null; symmetric for OR.
		var known bool
		if !left.IsNull() {
			known, err = left.AsBool()
		} else {
			known, err = right.AsBool()
		}
		if err != nil {
			return value.Value{}, err
		}
		if n.Op == "AND" {
			if !known {
				return value.NewBool(false), nil
			}
			return value.Null(), nil
		}
		// OR
		if known {
			return value.NewBool(true), nil
		}
		return value.Null(), nil
	}

	lb, err := left.AsBool()
	if err != nil {
		return value.Value{}, err
	}
	rb, err := right.AsBool()
	if err != nil {
		return value.Value{}, err
	}
	if n.Op == "AND" {
		return value.NewBool(lb && rb), nil
	}
	return value.NewBool(lb || rb), nil
}

func evalComparison(n *Node, r *row.Row) (value.Value, error) {
	left, err := Eval(n.Left, r)
	if err != nil {
		return value.Value{}, err
	}
	right, err := Eval(n.Right, r)
	if err != nil {
		return value.Value{}, err
	}
	if left.IsNull() || right.IsNull() {
		return value.Null(), nil
	}

	if left.Tag() == value.TagText || right.Tag() == value.TagText {
		ls, err1 := left.AsText()
		rs, err2 := right.AsText()
		if err1 == nil && err2 == nil {
			return value.NewBool(compareOp(n.Op, stringCompare(ls, rs))), nil
		}
	}

	lf, err := left.AsFloat64()
	if err != nil {
		return value.Value{}, err
	}
	rf, err := right.AsFloat64()
	if err != nil {
		return value.Value{}, err
	}
	cmp := 0
	switch {
	case lf < rf:
		cmp = -1
	case lf > rf:
		cmp = 1
	}
	return value.NewBool(compareOp(n.Op, cmp)), nil
}

func stringCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareOp(op string, cmp int) bool {
	switch op {
	case "=":
		return cmp == 0
	case "<>", "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case ">":
		return cmp > 0
	case "<=":
		return cmp <= 0
	case ">=":
		return cmp >= 0
	default:
		return false
	}
}

func evalNumerical(n *Node, r *row.Row) (value.Value, error) {
	left, err := Eval(n.Left, r)
	if err != nil {
		return value.Value{}, err
	}
	right, err := Eval(n.Right, r)
	if err != nil {
		return value.Value{}, err
	}
	// Null propagates through arithmetic (spec.md §4.4).
	if left.IsNull() || right.IsNull() {
		return value.Null(), nil
	}
	lf, err := left.AsFloat64()
	if err != nil {
		return value.Value{}, err
	}
	rf, err := right.AsFloat64()
	if err != nil {
		return value.Value{}, err
	}
	var result float64
	switch n.Op {
	case "+":
		result = lf + rf
	case "-":
		result = lf - rf
	case "*":
		result = lf * rf
	case "/":
		if rf == 0 {
			return value.Value{}, springqlerr.New(springqlerr.Sql, "division by zero")
		}
		result = lf / rf
	default:
		return value.Value{}, springqlerr.New(springqlerr.Sql, "unknown numerical operator %q", n.Op)
	}
	// Two integer operands stay integer for +, -, * (like the SUM
	// accumulator); "/" and any F64 operand yield F64.
	lt, rt := left.Tag(), right.Tag()
	if n.Op != "/" && (lt == value.TagI16 || lt == value.TagI32 || lt == value.TagI64) &&
		(rt == value.TagI16 || rt == value.TagI32 || rt == value.TagI64) {
		return value.NewI64(int64(result)), nil
	}
	return value.NewF64(result), nil
}
