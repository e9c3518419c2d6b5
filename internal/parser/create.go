package parser

import (
	"strconv"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"

	"sqlmimic/internal/query"
	"sqlmimic/internal/sqlerr"
)

func (c *converter) convertCreateTable(stmt *ast.CreateTableStmt) (*query.CreateTableQuery, error) {
	q := &query.CreateTableQuery{
		Database:    stmt.Table.Schema.O,
		Table:       stmt.Table.Name.O,
		IfNotExists: stmt.IfNotExists,
	}

	for _, colDef := range stmt.Cols {
		rawType := strings.ToLower(colDef.Tp.String())
		def := query.ColumnDef{
			Name:     colDef.Name.Name.O,
			Type:     normalizeType(rawType),
			Length:   typeLength(rawType, normalizeType(rawType)),
			Unsigned: strings.Contains(rawType, "unsigned"),
			Nullable: true,
		}

		for _, opt := range colDef.Options {
			switch opt.Tp {
			case ast.ColumnOptionNotNull:
				def.Nullable = false
			case ast.ColumnOptionNull:
				def.Nullable = true
			case ast.ColumnOptionPrimaryKey:
				def.Nullable = false
			case ast.ColumnOptionAutoIncrement:
				def.AutoIncrement = true
			case ast.ColumnOptionDefaultValue:
				expr, err := c.convertExpr(opt.Expr)
				if err != nil {
					return nil, err
				}
				def.Default = expr
			}
		}
		q.Columns = append(q.Columns, def)
	}
	return q, nil
}

func (c *converter) convertInsert(stmt *ast.InsertStmt) (*query.InsertQuery, error) {
	if stmt.IsReplace {
		return nil, sqlerr.Processor(sqlerr.NumParse, "REPLACE is not supported")
	}
	if stmt.Setlist {
		return nil, sqlerr.Processor(sqlerr.NumParse, "INSERT ... SET is not supported")
	}
	source, ok := stmt.Table.TableRefs.Left.(*ast.TableSource)
	if !ok {
		return nil, sqlerr.Processor(sqlerr.NumParse, "Unsupported INSERT target")
	}
	target, ok := source.Source.(*ast.TableName)
	if !ok {
		return nil, sqlerr.Processor(sqlerr.NumParse, "Unsupported INSERT target")
	}

	q := &query.InsertQuery{
		Database: target.Schema.O,
		Table:    target.Name.O,
	}
	for _, col := range stmt.Columns {
		q.Columns = append(q.Columns, col.Name.O)
	}
	for _, list := range stmt.Lists {
		row := make([]query.Expression, 0, len(list))
		for _, item := range list {
			expr, err := c.convertExpr(item)
			if err != nil {
				return nil, err
			}
			row = append(row, expr)
		}
		q.Values = append(q.Values, row)
	}
	return q, nil
}

// normalizeType folds a raw MySQL type string down to the engine's five
// column kinds by substring checks; anything unrecognized becomes varchar.
func normalizeType(rawType string) string {
	switch {
	case strings.Contains(rawType, "bool") || strings.HasPrefix(rawType, "tinyint(1)"):
		return "boolean"
	case strings.Contains(rawType, "int"):
		return "int"
	case containsAny(rawType, "float", "double", "decimal", "numeric", "real"):
		return "float"
	case containsAny(rawType, "date", "time", "timestamp"):
		return "datetime"
	default:
		return "varchar"
	}
}

// typeLength extracts the meaningful width: the byte width for integers,
// the declared maximum for character types.
func typeLength(rawType, kind string) int {
	switch kind {
	case "int":
		switch {
		case strings.HasPrefix(rawType, "tinyint"):
			return 1
		case strings.HasPrefix(rawType, "smallint"):
			return 2
		case strings.HasPrefix(rawType, "mediumint"):
			return 3
		case strings.HasPrefix(rawType, "bigint"):
			return 8
		default:
			return 4
		}
	case "varchar":
		open := strings.Index(rawType, "(")
		end := strings.Index(rawType, ")")
		if open >= 0 && end > open {
			if n, err := strconv.Atoi(rawType[open+1 : end]); err == nil {
				return n
			}
		}
		if strings.Contains(rawType, "text") {
			return 65535
		}
		return 255
	default:
		return 0
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
