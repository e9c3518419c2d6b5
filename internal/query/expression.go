package query

import (
	"fmt"
	"strings"
)

// Expression is the closed set of expression forms.
type Expression interface {
	exprNode()
}

// Literal is a constant: int64, float64, string, bool, or nil for NULL.
type Literal struct {
	Value interface{}
}

// Default is the DEFAULT keyword in an INSERT value position. It must never
// escape the insert processor.
type Default struct{}

// ColumnRef references a column, optionally qualified by the label of a FROM
// source (alias when the source is aliased, else the table name).
type ColumnRef struct {
	Table  string
	Column string
}

// Star is `*` or `t.*`; valid only inside a SELECT list.
type Star struct {
	Table string
}

// Array is the parenthesized list on the right-hand side of IN.
type Array struct {
	Values []Expression
}

// Binary operators. AND and OR use MySQL three-valued logic.
const (
	OpEQ    = "="
	OpNE    = "!="
	OpLT    = "<"
	OpLE    = "<="
	OpGT    = ">"
	OpGE    = ">="
	OpAdd   = "+"
	OpSub   = "-"
	OpMul   = "*"
	OpDiv   = "/"
	OpAnd   = "AND"
	OpOr    = "OR"
	OpIn    = "IN"
	OpLike  = "LIKE"
	OpIs    = "IS"
	OpIsNot = "IS NOT"
)

// BinaryExpr applies Op to Left and Right.
type BinaryExpr struct {
	Op    string
	Left  Expression
	Right Expression
}

// NotExpr is logical NOT with MySQL three-valued semantics: NULL stays
// NULL, anything else negates its truth value.
type NotExpr struct {
	Expr Expression
}

// FuncCall is a scalar or aggregate function call. Aggregates
// (count, sum, min, max, avg) may carry the DISTINCT flag.
type FuncCall struct {
	Name     string // lower-cased
	Args     []Expression
	Distinct bool
}

// When is one WHEN cond THEN result arm of a CASE expression.
type When struct {
	Cond   Expression
	Result Expression
}

// CaseExpr evaluates to the first arm whose condition is truthy, else the
// ELSE expression, else NULL.
type CaseExpr struct {
	Whens []When
	Else  Expression
}

// Subquery is a scalar sub-select.
type Subquery struct {
	Query *SelectQuery
}

func (*Literal) exprNode()    {}
func (*Default) exprNode()    {}
func (*ColumnRef) exprNode()  {}
func (*Star) exprNode()       {}
func (*Array) exprNode()      {}
func (*BinaryExpr) exprNode() {}
func (*NotExpr) exprNode()    {}
func (*FuncCall) exprNode()   {}
func (*CaseExpr) exprNode()   {}
func (*Subquery) exprNode()   {}

// aggregateNames are the function names evaluated over a row group.
var aggregateNames = map[string]bool{
	"count": true,
	"sum":   true,
	"min":   true,
	"max":   true,
	"avg":   true,
}

// IsAggregateName reports whether name (lower-cased) is an aggregate.
func IsAggregateName(name string) bool {
	return aggregateNames[strings.ToLower(name)]
}

// HasAggregate reports whether expr contains an aggregate function call at
// any depth outside of sub-queries.
func HasAggregate(expr Expression) bool {
	switch e := expr.(type) {
	case *FuncCall:
		if IsAggregateName(e.Name) {
			return true
		}
		for _, a := range e.Args {
			if HasAggregate(a) {
				return true
			}
		}
	case *BinaryExpr:
		return HasAggregate(e.Left) || HasAggregate(e.Right)
	case *NotExpr:
		return HasAggregate(e.Expr)
	case *Array:
		for _, v := range e.Values {
			if HasAggregate(v) {
				return true
			}
		}
	case *CaseExpr:
		for _, w := range e.Whens {
			if HasAggregate(w.Cond) || HasAggregate(w.Result) {
				return true
			}
		}
		if e.Else != nil {
			return HasAggregate(e.Else)
		}
	}
	return false
}

// NonAggregatedColumns collects column references that appear outside any
// aggregate argument list, in evaluation order.
func NonAggregatedColumns(expr Expression) []*ColumnRef {
	var out []*ColumnRef
	collectNonAggregated(expr, &out)
	return out
}

func collectNonAggregated(expr Expression, out *[]*ColumnRef) {
	switch e := expr.(type) {
	case *ColumnRef:
		*out = append(*out, e)
	case *BinaryExpr:
		collectNonAggregated(e.Left, out)
		collectNonAggregated(e.Right, out)
	case *NotExpr:
		collectNonAggregated(e.Expr, out)
	case *Array:
		for _, v := range e.Values {
			collectNonAggregated(v, out)
		}
	case *FuncCall:
		if IsAggregateName(e.Name) {
			return
		}
		for _, a := range e.Args {
			collectNonAggregated(a, out)
		}
	case *CaseExpr:
		for _, w := range e.Whens {
			collectNonAggregated(w.Cond, out)
			collectNonAggregated(w.Result, out)
		}
		if e.Else != nil {
			collectNonAggregated(e.Else, out)
		}
	}
}

// exprName derives the output label for an unaliased SELECT column.
func exprName(expr Expression) string {
	switch e := expr.(type) {
	case *ColumnRef:
		return e.Column
	case *FuncCall:
		return e.Name
	case *Literal:
		if e.Value == nil {
			return "NULL"
		}
		if s, ok := e.Value.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", e.Value)
	case *CaseExpr:
		return "case"
	case *Subquery:
		return "subquery"
	case *BinaryExpr:
		return fmt.Sprintf("%s %s %s", exprName(e.Left), e.Op, exprName(e.Right))
	case *NotExpr:
		return "NOT " + exprName(e.Expr)
	case *Star:
		return "*"
	default:
		return "expr"
	}
}
