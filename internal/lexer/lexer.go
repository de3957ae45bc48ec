package lexer

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// TokenType represents the type of a token
type TokenType int

const (
	// EOF represents the end of file token
	EOF TokenType = iota
	// ILLEGAL represents input that cannot start a token, or an unterminated string
	ILLEGAL
	// KEYWORD represents a keyword token
	KEYWORD
	// IDENTIFIER represents an identifier token
	IDENTIFIER
	// NUMBER represents a number token
	NUMBER
	// STRING represents a string token; the literal holds the unquoted text
	STRING
	// OPERATOR represents a comparison operator other than a single '='
	OPERATOR
	// LPAREN represents a left parenthesis
	LPAREN
	// RPAREN represents a right parenthesis
	RPAREN
	// COMMA represents a comma
	COMMA
	// SEMICOLON represents a semicolon
	SEMICOLON
	// ASTERISK represents an asterisk
	ASTERISK
	// EQUALS represents an equals sign
	EQUALS
)

func (t TokenType) String() string {
	switch t {
	case EOF:
		return "end of input"
	case ILLEGAL:
		return "illegal"
	case KEYWORD:
		return "keyword"
	case IDENTIFIER:
		return "identifier"
	case NUMBER:
		return "number"
	case STRING:
		return "string"
	case OPERATOR:
		return "operator"
	case LPAREN:
		return "'('"
	case RPAREN:
		return "')'"
	case COMMA:
		return "','"
	case SEMICOLON:
		return "';'"
	case ASTERISK:
		return "'*'"
	case EQUALS:
		return "'='"
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
}

// Lexer represents a lexical analyzer
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
}

// New creates a new lexer with the given input
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) NextToken() Token {
	var tok Token

	l.skipWhitespace()

	switch l.ch {
	case '(':
		tok = Token{Type: LPAREN, Literal: "("}
	case ')':
		tok = Token{Type: RPAREN, Literal: ")"}
	case ',':
		tok = Token{Type: COMMA, Literal: ","}
	case ';':
		tok = Token{Type: SEMICOLON, Literal: ";"}
	case '*':
		tok = Token{Type: ASTERISK, Literal: "*"}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: OPERATOR, Literal: "=="}
		} else {
			tok = Token{Type: EQUALS, Literal: "="}
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: OPERATOR, Literal: "!="}
		} else {
			tok = Token{Type: ILLEGAL, Literal: "!"}
		}
	case '<':
		switch l.peekChar() {
		case '=', '>':
			l.readChar()
			tok = Token{Type: OPERATOR, Literal: "<" + string(l.ch)}
		default:
			tok = Token{Type: OPERATOR, Literal: "<"}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: OPERATOR, Literal: ">="}
		} else {
			tok = Token{Type: OPERATOR, Literal: ">"}
		}
	case 0:
		return Token{Type: EOF, Literal: ""}
	case '"', '\'':
		quote := l.ch
		l.readChar()
		literal, ok := l.readString(quote)
		if !ok {
			return Token{Type: ILLEGAL, Literal: string(quote) + literal}
		}
		tok = Token{Type: STRING, Literal: literal}
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			upperLiteral := strings.ToUpper(tok.Literal)
			if isKeyword(upperLiteral) {
				tok.Type = KEYWORD
				tok.Literal = upperLiteral
			} else {
				tok.Type = IDENTIFIER
			}
			return tok
		} else if isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())) {
			tok.Type = NUMBER
			tok.Literal = l.readNumber()
			return tok
		} else {
			tok = Token{Type: ILLEGAL, Literal: string(l.ch)}
		}
	}

	l.readChar()
	return tok
}

// All returns every token up to and including EOF.
func (l *Lexer) All() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens
		}
	}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads an optionally signed decimal with an optional fraction
// and exponent.
func (l *Lexer) readNumber() string {
	position := l.position
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[position:l.position]
}

// readString reads up to the closing quote, which is left as the current
// character. A backslash escapes the next character. It reports false when
// the input ends first.
func (l *Lexer) readString(quote byte) (string, bool) {
	var b strings.Builder
	for {
		switch l.ch {
		case quote:
			return b.String(), true
		case 0:
			return b.String(), false
		case '\\':
			l.readChar()
			if l.ch == 0 {
				return b.String(), false
			}
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
}

func isLetter(ch byte) bool {
	return ch == '_' || unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

var keywords = []string{
	"SELECT", "FROM", "WHERE", "AND", "ORDER", "BY",
	"INSERT", "INTO", "VALUES", "UPDATE", "SET", "DELETE",
	"CREATE", "TABLE", "PRIMARY", "KEY", "ALTER", "RENAME", "COLUMN", "TO",
	"SHOW", "TABLES", "COMMIT", "SYNC", "TRUE", "FALSE",
	"INT", "INTEGER", "STRING", "TEXT", "FLOAT", "DOUBLE", "REAL", "BOOL", "BOOLEAN",
}

func isKeyword(word string) bool {
	return slices.Contains(keywords, word)
}

func (t Token) String() string {
	return fmt.Sprintf("Token{Type: %v, Literal: %q}", t.Type, t.Literal)
}
