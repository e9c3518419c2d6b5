// Package parser adapts the MySQL text parser to the engine's typed query
// AST. SQL text goes in; tagged query structs come out. All knowledge of the
// tidb AST stays inside this package.
package parser

import (
	"fmt"
	"strconv"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"

	// Provides the value-expression implementation the parser requires.
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"sqlmimic/internal/query"
	"sqlmimic/internal/sqlerr"
)

// Parser converts SQL text into typed queries.
type Parser struct {
	p *parser.Parser
}

// New creates a Parser.
func New() *Parser {
	return &Parser{p: parser.New()}
}

// Parse parses one or more ;-separated statements. Placeholder markers (?)
// are substituted from params in textual order.
func (p *Parser) Parse(sql string, params ...interface{}) ([]query.Query, error) {
	stmtNodes, _, err := p.p.Parse(sql, "", "")
	if err != nil {
		return nil, sqlerr.Parse(err)
	}

	c := &converter{params: params}
	out := make([]query.Query, 0, len(stmtNodes))
	for _, node := range stmtNodes {
		switch stmt := node.(type) {
		case *ast.SelectStmt:
			q, err := c.convertSelect(stmt)
			if err != nil {
				return nil, err
			}
			out = append(out, q)
		case *ast.InsertStmt:
			q, err := c.convertInsert(stmt)
			if err != nil {
				return nil, err
			}
			out = append(out, q)
		case *ast.CreateTableStmt:
			q, err := c.convertCreateTable(stmt)
			if err != nil {
				return nil, err
			}
			out = append(out, q)
		case *ast.DropTableStmt:
			for _, tn := range stmt.Tables {
				out = append(out, &query.DropTableQuery{
					Database: tn.Schema.O,
					Table:    tn.Name.O,
					IfExists: stmt.IfExists,
				})
			}
		case *ast.UseStmt:
			out = append(out, &query.UseQuery{Database: stmt.DBName})
		case *ast.BeginStmt:
			out = append(out, &query.TransactionQuery{Kind: query.TxBegin})
		case *ast.CommitStmt:
			out = append(out, &query.TransactionQuery{Kind: query.TxCommit})
		case *ast.RollbackStmt:
			out = append(out, &query.TransactionQuery{Kind: query.TxRollback})
		default:
			return nil, sqlerr.Processor(sqlerr.NumParse, "Unsupported statement type %T", node)
		}
	}
	return out, nil
}

// converter carries per-Parse state: the positional parameters consumed by
// placeholder markers.
type converter struct {
	params []interface{}
	next   int
}

func (c *converter) takeParam() (interface{}, error) {
	if c.next >= len(c.params) {
		return nil, sqlerr.Processor(sqlerr.NumParse, "Not enough parameters for placeholders")
	}
	v := c.params[c.next]
	c.next++
	return normalizeValue(v), nil
}

// normalizeValue maps Go values from the parser driver or caller parameters
// onto the engine's value domain.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case bool, int64, float64, string:
		return val
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	case []byte:
		return string(val)
	default:
		// Decimal literals reach us as the parser driver's decimal type;
		// anything that renders as a number becomes a float.
		s := fmt.Sprintf("%v", val)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	}
}
