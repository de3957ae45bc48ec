package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zakazai/flatdb/internal/lexer"
)

func TestLexer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []lexer.Token
	}{
		{
			name:  "Select_all_from_table",
			input: "select * FROM tablex;",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "SELECT"},
				{Type: lexer.ASTERISK, Literal: "*"},
				{Type: lexer.KEYWORD, Literal: "FROM"},
				{Type: lexer.IDENTIFIER, Literal: "tablex"},
				{Type: lexer.SEMICOLON, Literal: ";"},
			},
		},
		{
			name:  "Create_table",
			input: "CREATE TABLE u (id INT PRIMARY KEY, name TEXT)",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "CREATE"},
				{Type: lexer.KEYWORD, Literal: "TABLE"},
				{Type: lexer.IDENTIFIER, Literal: "u"},
				{Type: lexer.LPAREN, Literal: "("},
				{Type: lexer.IDENTIFIER, Literal: "id"},
				{Type: lexer.KEYWORD, Literal: "INT"},
				{Type: lexer.KEYWORD, Literal: "PRIMARY"},
				{Type: lexer.KEYWORD, Literal: "KEY"},
				{Type: lexer.COMMA, Literal: ","},
				{Type: lexer.IDENTIFIER, Literal: "name"},
				{Type: lexer.KEYWORD, Literal: "TEXT"},
				{Type: lexer.RPAREN, Literal: ")"},
			},
		},
		{
			name:  "Insert_values",
			input: "INSERT INTO users VALUES (105, -2.5, 'it\\'s', true, 1e3)",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "INSERT"},
				{Type: lexer.KEYWORD, Literal: "INTO"},
				{Type: lexer.IDENTIFIER, Literal: "users"},
				{Type: lexer.KEYWORD, Literal: "VALUES"},
				{Type: lexer.LPAREN, Literal: "("},
				{Type: lexer.NUMBER, Literal: "105"},
				{Type: lexer.COMMA, Literal: ","},
				{Type: lexer.NUMBER, Literal: "-2.5"},
				{Type: lexer.COMMA, Literal: ","},
				{Type: lexer.STRING, Literal: "it's"},
				{Type: lexer.COMMA, Literal: ","},
				{Type: lexer.KEYWORD, Literal: "TRUE"},
				{Type: lexer.COMMA, Literal: ","},
				{Type: lexer.NUMBER, Literal: "1e3"},
				{Type: lexer.RPAREN, Literal: ")"},
			},
		},
		{
			name:  "Operators",
			input: "a = b == c != d <> e < f <= g > h >= i",
			expected: []lexer.Token{
				{Type: lexer.IDENTIFIER, Literal: "a"},
				{Type: lexer.EQUALS, Literal: "="},
				{Type: lexer.IDENTIFIER, Literal: "b"},
				{Type: lexer.OPERATOR, Literal: "=="},
				{Type: lexer.IDENTIFIER, Literal: "c"},
				{Type: lexer.OPERATOR, Literal: "!="},
				{Type: lexer.IDENTIFIER, Literal: "d"},
				{Type: lexer.OPERATOR, Literal: "<>"},
				{Type: lexer.IDENTIFIER, Literal: "e"},
				{Type: lexer.OPERATOR, Literal: "<"},
				{Type: lexer.IDENTIFIER, Literal: "f"},
				{Type: lexer.OPERATOR, Literal: "<="},
				{Type: lexer.IDENTIFIER, Literal: "g"},
				{Type: lexer.OPERATOR, Literal: ">"},
				{Type: lexer.IDENTIFIER, Literal: "h"},
				{Type: lexer.OPERATOR, Literal: ">="},
				{Type: lexer.IDENTIFIER, Literal: "i"},
			},
		},
		{
			name:  "Double_quoted_string",
			input: `"Cindy"`,
			expected: []lexer.Token{
				{Type: lexer.STRING, Literal: "Cindy"},
			},
		},
		{
			name:  "Unterminated_string",
			input: "'abc",
			expected: []lexer.Token{
				{Type: lexer.ILLEGAL, Literal: "'abc"},
			},
		},
		{
			name:  "Illegal_character",
			input: "a ! b",
			expected: []lexer.Token{
				{Type: lexer.IDENTIFIER, Literal: "a"},
				{Type: lexer.ILLEGAL, Literal: "!"},
				{Type: lexer.IDENTIFIER, Literal: "b"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := lexer.New(tt.input).All()
			assert.Equal(t, lexer.EOF, tokens[len(tokens)-1].Type)
			assert.Equal(t, tt.expected, tokens[:len(tokens)-1])
		})
	}
}

func TestTokenString(t *testing.T) {
	tok := lexer.Token{Type: lexer.KEYWORD, Literal: "SELECT"}
	assert.Equal(t, `Token{Type: keyword, Literal: "SELECT"}`, tok.String())
}
