package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zakazai/flatdb/internal/lexer"
	"github.com/zakazai/flatdb/internal/types"
)

// Statement is a parsed command.
type Statement interface {
	statement()
}

// Condition is one "column op value" comparison. Conditions joined by AND
// are applied in order, each to the result of the previous one.
type Condition struct {
	Column string
	Op     types.Op
	Value  any
}

// SelectStatement represents a SELECT statement
type SelectStatement struct {
	Table string
	// Columns is nil for "*".
	Columns []string
	Where   []Condition
	OrderBy string
}

// InsertStatement represents an INSERT statement with one or more rows
type InsertStatement struct {
	Table string
	Rows  []types.Row
}

// UpdateStatement represents an UPDATE statement
type UpdateStatement struct {
	Table  string
	Column string
	Value  any
	Where  []Condition
}

// DeleteStatement represents a DELETE statement
type DeleteStatement struct {
	Table string
	Where Condition
}

// ColumnDef is one column of a CREATE TABLE statement.
type ColumnDef struct {
	Name string
	Kind types.Kind
}

// CreateStatement represents a CREATE TABLE statement. PrimaryKey defaults
// to the first column.
type CreateStatement struct {
	Table      string
	Columns    []ColumnDef
	PrimaryKey string
}

// RenameColumnStatement represents ALTER TABLE t RENAME COLUMN a TO b
type RenameColumnStatement struct {
	Table string
	From  string
	To    string
}

type ShowTablesStatement struct{}

// CommitStatement persists one table, or every open table when Table is
// empty.
type CommitStatement struct {
	Table string
}

// SyncStatement copies every table to the mirror storage, when there is one.
type SyncStatement struct{}

func (*SelectStatement) statement()       {}
func (*InsertStatement) statement()       {}
func (*UpdateStatement) statement()       {}
func (*DeleteStatement) statement()       {}
func (*CreateStatement) statement()       {}
func (*RenameColumnStatement) statement() {}
func (*ShowTablesStatement) statement()   {}
func (*CommitStatement) statement()       {}
func (*SyncStatement) statement()         {}

// Parser represents a statement parser
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// New creates a new parser with the given lexer
func New(l *lexer.Lexer) *Parser {
	return &Parser{tokens: l.All()}
}

// Parse parses one statement, optionally followed by a semicolon.
func Parse(input string) (Statement, error) {
	return New(lexer.New(input)).Parse()
}

func (p *Parser) next() lexer.Token {
	tok := p.tokens[p.pos]
	if tok.Type != lexer.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peekKeyword(kw string) bool {
	tok := p.peek()
	return tok.Type == lexer.KEYWORD && tok.Literal == kw
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.EOF {
		return tok.Type.String()
	}
	return tok.Literal
}

func (p *Parser) expectKeyword(kw string) error {
	tok := p.next()
	if tok.Type != lexer.KEYWORD || tok.Literal != kw {
		return fmt.Errorf("expected %s, got %s", kw, describe(tok))
	}
	return nil
}

func (p *Parser) expect(tt lexer.TokenType) error {
	tok := p.next()
	if tok.Type != tt {
		return fmt.Errorf("expected %s, got %s", tt, describe(tok))
	}
	return nil
}

func (p *Parser) identifier(what string) (string, error) {
	tok := p.next()
	if tok.Type != lexer.IDENTIFIER {
		return "", fmt.Errorf("expected %s, got %s", what, describe(tok))
	}
	return tok.Literal, nil
}

// Parse parses the token stream as a single statement
func (p *Parser) Parse() (Statement, error) {
	tok := p.next()
	if tok.Type == lexer.EOF {
		return nil, fmt.Errorf("empty statement")
	}
	if tok.Type != lexer.KEYWORD {
		return nil, fmt.Errorf("unsupported statement type: %s", tok.Literal)
	}

	var stmt Statement
	var err error
	switch tok.Literal {
	case "SELECT":
		stmt, err = p.parseSelect()
	case "INSERT":
		stmt, err = p.parseInsert()
	case "UPDATE":
		stmt, err = p.parseUpdate()
	case "DELETE":
		stmt, err = p.parseDelete()
	case "CREATE":
		stmt, err = p.parseCreate()
	case "ALTER":
		stmt, err = p.parseAlter()
	case "SHOW":
		stmt, err = &ShowTablesStatement{}, p.expectKeyword("TABLES")
	case "COMMIT":
		stmt, err = p.parseCommit()
	case "SYNC":
		stmt = &SyncStatement{}
	default:
		return nil, fmt.Errorf("unsupported statement type: %s", tok.Literal)
	}
	if err != nil {
		return nil, err
	}

	if p.peek().Type == lexer.SEMICOLON {
		p.next()
	}
	if tok := p.next(); tok.Type != lexer.EOF {
		return nil, fmt.Errorf("unexpected %s after statement", describe(tok))
	}
	return stmt, nil
}

func (p *Parser) parseSelect() (*SelectStatement, error) {
	stmt := &SelectStatement{}

	if p.peek().Type == lexer.ASTERISK {
		p.next()
	} else {
		for {
			col, err := p.identifier("column name")
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, col)
			if p.peek().Type != lexer.COMMA {
				break
			}
			p.next()
		}
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.identifier("table name")
	if err != nil {
		return nil, err
	}
	stmt.Table = table

	if p.peekKeyword("WHERE") {
		p.next()
		if stmt.Where, err = p.parseConditions(); err != nil {
			return nil, err
		}
	}

	if p.peekKeyword("ORDER") {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		if stmt.OrderBy, err = p.identifier("column name"); err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

func (p *Parser) parseInsert() (*InsertStatement, error) {
	stmt := &InsertStatement{}

	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.identifier("table name")
	if err != nil {
		return nil, err
	}
	stmt.Table = table
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}

	for {
		if err := p.expect(lexer.LPAREN); err != nil {
			return nil, err
		}
		var row types.Row
		for {
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			row = append(row, v)
			tok := p.next()
			if tok.Type == lexer.RPAREN {
				break
			}
			if tok.Type != lexer.COMMA {
				return nil, fmt.Errorf("expected comma or ), got %s", describe(tok))
			}
		}
		stmt.Rows = append(stmt.Rows, row)

		if p.peek().Type != lexer.COMMA {
			break
		}
		p.next()
	}

	return stmt, nil
}

func (p *Parser) parseUpdate() (*UpdateStatement, error) {
	stmt := &UpdateStatement{}

	table, err := p.identifier("table name")
	if err != nil {
		return nil, err
	}
	stmt.Table = table
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	if stmt.Column, err = p.identifier("column name"); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.EQUALS); err != nil {
		return nil, err
	}
	if stmt.Value, err = p.parseValue(); err != nil {
		return nil, err
	}
	if p.peek().Type == lexer.COMMA {
		return nil, fmt.Errorf("UPDATE sets a single column")
	}

	if p.peekKeyword("WHERE") {
		p.next()
		if stmt.Where, err = p.parseConditions(); err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

func (p *Parser) parseDelete() (*DeleteStatement, error) {
	stmt := &DeleteStatement{}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.identifier("table name")
	if err != nil {
		return nil, err
	}
	stmt.Table = table
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	if stmt.Where, err = p.parseCondition(); err != nil {
		return nil, err
	}
	if p.peekKeyword("AND") {
		return nil, fmt.Errorf("DELETE takes a single condition")
	}

	return stmt, nil
}

func (p *Parser) parseCreate() (*CreateStatement, error) {
	stmt := &CreateStatement{}

	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.identifier("table name")
	if err != nil {
		return nil, err
	}
	stmt.Table = table
	if err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}

	for {
		if p.peekKeyword("PRIMARY") {
			p.next()
			if err := p.expectKeyword("KEY"); err != nil {
				return nil, err
			}
			if err := p.expect(lexer.LPAREN); err != nil {
				return nil, err
			}
			if stmt.PrimaryKey, err = p.identifier("column name"); err != nil {
				return nil, err
			}
			if err := p.expect(lexer.RPAREN); err != nil {
				return nil, err
			}
		} else {
			colName, err := p.identifier("column name")
			if err != nil {
				return nil, err
			}
			// Accept both IDENTIFIER and KEYWORD as column types
			tok := p.next()
			if tok.Type != lexer.IDENTIFIER && tok.Type != lexer.KEYWORD {
				return nil, fmt.Errorf("expected column type, got %s", describe(tok))
			}
			kind, err := types.ParseKind(tok.Literal)
			if err != nil {
				return nil, err
			}
			stmt.Columns = append(stmt.Columns, ColumnDef{Name: colName, Kind: kind})
			if p.peekKeyword("PRIMARY") {
				p.next()
				if err := p.expectKeyword("KEY"); err != nil {
					return nil, err
				}
				stmt.PrimaryKey = colName
			}
		}

		tok := p.next()
		if tok.Type == lexer.RPAREN {
			break
		}
		if tok.Type != lexer.COMMA {
			return nil, fmt.Errorf("expected comma or ), got %s", describe(tok))
		}
	}

	if len(stmt.Columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns", stmt.Table)
	}
	if stmt.PrimaryKey == "" {
		stmt.PrimaryKey = stmt.Columns[0].Name
	}
	return stmt, nil
}

func (p *Parser) parseAlter() (*RenameColumnStatement, error) {
	stmt := &RenameColumnStatement{}

	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	var err error
	if stmt.Table, err = p.identifier("table name"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("RENAME"); err != nil {
		return nil, err
	}
	if p.peekKeyword("COLUMN") {
		p.next()
	}
	if stmt.From, err = p.identifier("column name"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TO"); err != nil {
		return nil, err
	}
	if stmt.To, err = p.identifier("column name"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseCommit() (*CommitStatement, error) {
	stmt := &CommitStatement{}
	if p.peek().Type == lexer.IDENTIFIER {
		stmt.Table = p.next().Literal
	}
	return stmt, nil
}

func (p *Parser) parseConditions() ([]Condition, error) {
	var conds []Condition
	for {
		c, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
		if !p.peekKeyword("AND") {
			return conds, nil
		}
		p.next()
	}
}

func (p *Parser) parseCondition() (Condition, error) {
	col, err := p.identifier("column name")
	if err != nil {
		return Condition{}, err
	}
	tok := p.next()
	if tok.Type != lexer.EQUALS && tok.Type != lexer.OPERATOR {
		return Condition{}, fmt.Errorf("expected comparison operator, got %s", describe(tok))
	}
	op, err := types.ParseOp(tok.Literal)
	if err != nil {
		return Condition{}, err
	}
	v, err := p.parseValue()
	if err != nil {
		return Condition{}, err
	}
	return Condition{Column: col, Op: op, Value: v}, nil
}

// parseValue reads a literal: an integer, a float, a string, TRUE or FALSE.
func (p *Parser) parseValue() (any, error) {
	tok := p.next()
	switch {
	case tok.Type == lexer.NUMBER:
		return parseNumber(tok.Literal)
	case tok.Type == lexer.STRING:
		return tok.Literal, nil
	case tok.Type == lexer.KEYWORD && tok.Literal == "TRUE":
		return true, nil
	case tok.Type == lexer.KEYWORD && tok.Literal == "FALSE":
		return false, nil
	}
	return nil, fmt.Errorf("expected number, string or boolean, got %s", describe(tok))
}

func parseNumber(s string) (any, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number: %s", s)
	}
	return f, nil
}
