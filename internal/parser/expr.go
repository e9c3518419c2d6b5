package parser

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"

	"sqlmimic/internal/query"
	"sqlmimic/internal/sqlerr"
)

var binaryOps = map[opcode.Op]string{
	opcode.EQ:       query.OpEQ,
	opcode.NE:       query.OpNE,
	opcode.LT:       query.OpLT,
	opcode.LE:       query.OpLE,
	opcode.GT:       query.OpGT,
	opcode.GE:       query.OpGE,
	opcode.Plus:     query.OpAdd,
	opcode.Minus:    query.OpSub,
	opcode.Mul:      query.OpMul,
	opcode.Div:      query.OpDiv,
	opcode.LogicAnd: query.OpAnd,
	opcode.LogicOr:  query.OpOr,
}

func (c *converter) convertExpr(node ast.ExprNode) (query.Expression, error) {
	switch x := node.(type) {
	case ast.ParamMarkerExpr:
		v, err := c.takeParam()
		if err != nil {
			return nil, err
		}
		return &query.Literal{Value: v}, nil
	case ast.ValueExpr:
		return &query.Literal{Value: normalizeValue(x.GetValue())}, nil
	case *ast.ColumnNameExpr:
		if x.Name.Name.O == "*" {
			return &query.Star{Table: x.Name.Table.O}, nil
		}
		return &query.ColumnRef{Table: x.Name.Table.O, Column: x.Name.Name.O}, nil
	case *ast.ParenthesesExpr:
		return c.convertExpr(x.Expr)
	case *ast.BinaryOperationExpr:
		op, ok := binaryOps[x.Op]
		if !ok {
			return nil, sqlerr.Processor(sqlerr.NumParse, "Unsupported operator '%s'", x.Op)
		}
		left, err := c.convertExpr(x.L)
		if err != nil {
			return nil, err
		}
		right, err := c.convertExpr(x.R)
		if err != nil {
			return nil, err
		}
		return &query.BinaryExpr{Op: op, Left: left, Right: right}, nil
	case *ast.UnaryOperationExpr:
		return c.convertUnary(x)
	case *ast.PatternInExpr:
		return c.convertIn(x)
	case *ast.PatternLikeOrIlikeExpr:
		expr, err := c.convertExpr(x.Expr)
		if err != nil {
			return nil, err
		}
		pattern, err := c.convertExpr(x.Pattern)
		if err != nil {
			return nil, err
		}
		like := &query.BinaryExpr{Op: query.OpLike, Left: expr, Right: pattern}
		if x.Not {
			return negate(like), nil
		}
		return like, nil
	case *ast.IsNullExpr:
		expr, err := c.convertExpr(x.Expr)
		if err != nil {
			return nil, err
		}
		op := query.OpIs
		if x.Not {
			op = query.OpIsNot
		}
		return &query.BinaryExpr{Op: op, Left: expr, Right: &query.Literal{Value: nil}}, nil
	case *ast.IsTruthExpr:
		expr, err := c.convertExpr(x.Expr)
		if err != nil {
			return nil, err
		}
		op := query.OpIs
		if x.Not {
			op = query.OpIsNot
		}
		return &query.BinaryExpr{Op: op, Left: expr, Right: &query.Literal{Value: x.True != 0}}, nil
	case *ast.AggregateFuncExpr:
		args := make([]query.Expression, 0, len(x.Args))
		for _, arg := range x.Args {
			converted, err := c.convertExpr(arg)
			if err != nil {
				return nil, err
			}
			args = append(args, converted)
		}
		return &query.FuncCall{Name: strings.ToLower(x.F), Args: args, Distinct: x.Distinct}, nil
	case *ast.FuncCallExpr:
		args := make([]query.Expression, 0, len(x.Args))
		for _, arg := range x.Args {
			converted, err := c.convertExpr(arg)
			if err != nil {
				return nil, err
			}
			args = append(args, converted)
		}
		return &query.FuncCall{Name: x.FnName.L, Args: args}, nil
	case *ast.CaseExpr:
		return c.convertCase(x)
	case *ast.SubqueryExpr:
		sel, ok := x.Query.(*ast.SelectStmt)
		if !ok {
			return nil, sqlerr.Processor(sqlerr.NumParse, "Unsupported subquery form")
		}
		sub, err := c.convertSelect(sel)
		if err != nil {
			return nil, err
		}
		return &query.Subquery{Query: sub}, nil
	case *ast.DefaultExpr:
		return &query.Default{}, nil
	default:
		return nil, sqlerr.Processor(sqlerr.NumParse, "Unsupported expression type %T", node)
	}
}

func (c *converter) convertUnary(x *ast.UnaryOperationExpr) (query.Expression, error) {
	inner, err := c.convertExpr(x.V)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case opcode.Plus:
		return inner, nil
	case opcode.Minus:
		if lit, ok := inner.(*query.Literal); ok {
			switch v := lit.Value.(type) {
			case int64:
				return &query.Literal{Value: -v}, nil
			case float64:
				return &query.Literal{Value: -v}, nil
			}
		}
		return &query.BinaryExpr{Op: query.OpSub, Left: &query.Literal{Value: int64(0)}, Right: inner}, nil
	case opcode.Not, opcode.Not2:
		return negate(inner), nil
	default:
		return nil, sqlerr.Processor(sqlerr.NumParse, "Unsupported unary operator '%s'", x.Op)
	}
}

func (c *converter) convertIn(x *ast.PatternInExpr) (query.Expression, error) {
	if x.Sel != nil {
		return nil, sqlerr.Processor(sqlerr.NumParse, "IN over a subquery is not supported")
	}
	needle, err := c.convertExpr(x.Expr)
	if err != nil {
		return nil, err
	}
	values := make([]query.Expression, 0, len(x.List))
	for _, member := range x.List {
		converted, err := c.convertExpr(member)
		if err != nil {
			return nil, err
		}
		values = append(values, converted)
	}
	in := &query.BinaryExpr{Op: query.OpIn, Left: needle, Right: &query.Array{Values: values}}
	if x.Not {
		return negate(in), nil
	}
	return in, nil
}

// convertCase lowers both CASE forms onto searched CASE: the operand form
// compares the operand against each WHEN value.
func (c *converter) convertCase(x *ast.CaseExpr) (query.Expression, error) {
	var operand query.Expression
	if x.Value != nil {
		converted, err := c.convertExpr(x.Value)
		if err != nil {
			return nil, err
		}
		operand = converted
	}
	out := &query.CaseExpr{}
	for _, when := range x.WhenClauses {
		cond, err := c.convertExpr(when.Expr)
		if err != nil {
			return nil, err
		}
		if operand != nil {
			cond = &query.BinaryExpr{Op: query.OpEQ, Left: operand, Right: cond}
		}
		result, err := c.convertExpr(when.Result)
		if err != nil {
			return nil, err
		}
		out.Whens = append(out.Whens, query.When{Cond: cond, Result: result})
	}
	if x.ElseClause != nil {
		elseExpr, err := c.convertExpr(x.ElseClause)
		if err != nil {
			return nil, err
		}
		out.Else = elseExpr
	}
	return out, nil
}

// negate wraps expr in a three-valued logical NOT: NULL stays NULL, every
// other value negates its truth value.
func negate(expr query.Expression) query.Expression {
	return &query.NotExpr{Expr: expr}
}
