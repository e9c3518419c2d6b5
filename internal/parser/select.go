package parser

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"

	"sqlmimic/internal/query"
	"sqlmimic/internal/sqlerr"
)

func (c *converter) convertSelect(stmt *ast.SelectStmt) (*query.SelectQuery, error) {
	q := &query.SelectQuery{Distinct: stmt.Distinct}

	if stmt.From != nil {
		froms, err := c.convertTableRefs(stmt.From.TableRefs)
		if err != nil {
			return nil, err
		}
		q.From = froms
	}

	for _, field := range stmt.Fields.Fields {
		if field.WildCard != nil {
			q.Columns = append(q.Columns, query.SelectColumn{
				Expr: &query.Star{Table: field.WildCard.Table.O},
			})
			continue
		}
		expr, err := c.convertExpr(field.Expr)
		if err != nil {
			return nil, err
		}
		q.Columns = append(q.Columns, query.SelectColumn{Expr: expr, Alias: field.AsName.O})
	}

	if stmt.Where != nil {
		where, err := c.convertExpr(stmt.Where)
		if err != nil {
			return nil, err
		}
		q.Where = where
	}

	if stmt.GroupBy != nil {
		for _, item := range stmt.GroupBy.Items {
			ref, err := c.convertColumnRefItem(item.Expr, "GROUP BY")
			if err != nil {
				return nil, err
			}
			q.GroupBy = append(q.GroupBy, ref)
		}
	}

	if stmt.Having != nil {
		having, err := c.convertExpr(stmt.Having.Expr)
		if err != nil {
			return nil, err
		}
		q.Having = having
	}

	if stmt.OrderBy != nil {
		for _, item := range stmt.OrderBy.Items {
			ref, err := c.convertColumnRefItem(item.Expr, "ORDER BY")
			if err != nil {
				return nil, err
			}
			q.OrderBy = append(q.OrderBy, query.OrderItem{Column: ref, Desc: item.Desc})
		}
	}

	if stmt.Limit != nil {
		limit, err := c.limitValue(stmt.Limit.Count)
		if err != nil {
			return nil, err
		}
		offset, err := c.limitValue(stmt.Limit.Offset)
		if err != nil {
			return nil, err
		}
		q.Limit = limit
		q.Offset = offset
	}

	resolveOrderByAliases(q)
	return q, nil
}

// convertTableRefs flattens the parser's left-deep join tree into the
// engine's ordered FROM list.
func (c *converter) convertTableRefs(node ast.ResultSetNode) ([]*query.From, error) {
	switch n := node.(type) {
	case *ast.Join:
		left, err := c.convertTableRefs(n.Left)
		if err != nil {
			return nil, err
		}
		if n.Right == nil {
			return left, nil
		}
		right, err := c.convertTableRefs(n.Right)
		if err != nil {
			return nil, err
		}
		kind, err := joinKind(n)
		if err != nil {
			return nil, err
		}
		right[0].Join = kind
		if n.On != nil {
			on, err := c.convertExpr(n.On.Expr)
			if err != nil {
				return nil, err
			}
			right[0].On = on
		}
		return append(left, right...), nil
	case *ast.TableSource:
		return c.convertTableSource(n)
	default:
		return nil, sqlerr.Processor(sqlerr.NumParse, "Unsupported FROM clause")
	}
}

func joinKind(n *ast.Join) (query.JoinKind, error) {
	switch n.Tp {
	case ast.CrossJoin:
		if n.On != nil {
			return query.JoinInner, nil
		}
		return query.JoinCross, nil
	case ast.LeftJoin:
		return query.JoinLeft, nil
	default:
		return query.JoinNone, sqlerr.Processor(sqlerr.NumParse, "Unsupported join type")
	}
}

func (c *converter) convertTableSource(src *ast.TableSource) ([]*query.From, error) {
	switch source := src.Source.(type) {
	case *ast.TableName:
		return []*query.From{{
			Database: source.Schema.O,
			Table:    source.Name.O,
			Alias:    src.AsName.O,
		}}, nil
	case *ast.SelectStmt:
		sub, err := c.convertSelect(source)
		if err != nil {
			return nil, err
		}
		if src.AsName.O == "" {
			return nil, sqlerr.SubQuery("Every derived table must have its own alias")
		}
		return []*query.From{{Subquery: sub, Alias: src.AsName.O}}, nil
	default:
		return nil, sqlerr.Processor(sqlerr.NumParse, "Unsupported table source")
	}
}

// convertColumnRefItem converts a GROUP BY / ORDER BY term, which the engine
// restricts to column references.
func (c *converter) convertColumnRefItem(node ast.ExprNode, clause string) (*query.ColumnRef, error) {
	expr, err := c.convertExpr(node)
	if err != nil {
		return nil, err
	}
	ref, ok := expr.(*query.ColumnRef)
	if !ok {
		return nil, sqlerr.Processor(sqlerr.NumParse, "%s supports column references only", clause)
	}
	return ref, nil
}

func (c *converter) limitValue(node ast.ExprNode) (int, error) {
	if node == nil {
		return 0, nil
	}
	expr, err := c.convertExpr(node)
	if err != nil {
		return 0, err
	}
	lit, ok := expr.(*query.Literal)
	if !ok {
		return 0, sqlerr.Processor(sqlerr.NumParse, "LIMIT expects a literal")
	}
	if n, ok := lit.Value.(int64); ok {
		return int(n), nil
	}
	return 0, sqlerr.Processor(sqlerr.NumParse, "LIMIT expects an integer")
}

// resolveOrderByAliases rewrites ORDER BY terms naming a SELECT alias to the
// aliased column, so `SELECT c AS a ... ORDER BY a` sorts like ORDER BY c.
// Ordering runs before aliases become visible, so the substitution happens
// here, once, at AST build time.
func resolveOrderByAliases(q *query.SelectQuery) {
	for i, item := range q.OrderBy {
		if item.Column.Table != "" {
			continue
		}
		for _, col := range q.Columns {
			if col.Alias == "" || !strings.EqualFold(col.Alias, item.Column.Column) {
				continue
			}
			if ref, ok := col.Expr.(*query.ColumnRef); ok {
				q.OrderBy[i].Column = ref
			}
			break
		}
	}
}
