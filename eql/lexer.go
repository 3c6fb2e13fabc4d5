package eql

import (
	"strings"
	"unicode"
)

// Lexer transforms a query string into a stream of tokens. It is
// stateful: every call to Next advances the position in the input.
type Lexer struct {
	input string
	pos   int
}

// NewLexer returns a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Next returns the next token, or a TokenEOF token at end of input.
func (l *Lexer) Next() Token {
	l.skipSpace()
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}
	start := l.pos
	ch := l.input[l.pos]
	switch {
	// Identifier, dotted path, or keyword.
	case isLetter(ch) || ch == '_':
		for l.pos < len(l.input) && isPathChar(l.input[l.pos]) {
			l.pos++
		}
		lit := l.input[start:l.pos]
		if !strings.ContainsRune(lit, '.') {
			if up, ok := reserved(lit); ok {
				return Token{Type: TokenKeyword, Lit: up, Pos: start}
			}
		}
		return Token{Type: TokenIdent, Lit: lit, Pos: start}

	// Integer or float literal.
	case isDigit(ch):
		typ := TokenInt
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
		if l.pos+1 < len(l.input) && l.input[l.pos] == '.' && isDigit(l.input[l.pos+1]) {
			typ = TokenFloat
			l.pos++
			for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
				l.pos++
			}
		}
		return Token{Type: typ, Lit: l.input[start:l.pos], Pos: start}

	// String literal in single quotes; a doubled quote escapes.
	case ch == '\'':
		l.pos++
		var sb strings.Builder
		for l.pos < len(l.input) {
			c := l.input[l.pos]
			if c == '\'' {
				if l.pos+1 < len(l.input) && l.input[l.pos+1] == '\'' {
					sb.WriteByte('\'')
					l.pos += 2
					continue
				}
				l.pos++
				return Token{Type: TokenString, Lit: sb.String(), Pos: start}
			}
			sb.WriteByte(c)
			l.pos++
		}
		return Token{Type: TokenIllegal, Lit: l.input[start:], Pos: start}

	// Named parameter.
	case ch == ':':
		l.pos++
		for l.pos < len(l.input) && isNameChar(l.input[l.pos]) {
			l.pos++
		}
		if l.pos == start+1 {
			return Token{Type: TokenIllegal, Lit: ":", Pos: start}
		}
		return Token{Type: TokenNamed, Lit: l.input[start+1 : l.pos], Pos: start}

	// Positional parameter.
	case ch == '?':
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
		if l.pos == start+1 {
			return Token{Type: TokenIllegal, Lit: "?", Pos: start}
		}
		return Token{Type: TokenPositional, Lit: l.input[start+1 : l.pos], Pos: start}

	case ch == '<':
		l.pos++
		if l.pos < len(l.input) {
			switch l.input[l.pos] {
			case '=':
				l.pos++
				return Token{Type: TokenLTE, Lit: "<=", Pos: start}
			case '>':
				l.pos++
				return Token{Type: TokenNEQ, Lit: "<>", Pos: start}
			}
		}
		return Token{Type: TokenLT, Lit: "<", Pos: start}

	case ch == '>':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return Token{Type: TokenGTE, Lit: ">=", Pos: start}
		}
		return Token{Type: TokenGT, Lit: ">", Pos: start}

	case ch == '!':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return Token{Type: TokenNEQ, Lit: "!=", Pos: start}
		}
		return Token{Type: TokenIllegal, Lit: "!", Pos: start}
	}
	l.pos++
	switch ch {
	case '=':
		return Token{Type: TokenEQ, Lit: "=", Pos: start}
	case '+':
		return Token{Type: TokenPlus, Lit: "+", Pos: start}
	case '-':
		return Token{Type: TokenMinus, Lit: "-", Pos: start}
	case '*':
		return Token{Type: TokenStar, Lit: "*", Pos: start}
	case '/':
		return Token{Type: TokenSlash, Lit: "/", Pos: start}
	case '(':
		return Token{Type: TokenLParen, Lit: "(", Pos: start}
	case ')':
		return Token{Type: TokenRParen, Lit: ")", Pos: start}
	case ',':
		return Token{Type: TokenComma, Lit: ",", Pos: start}
	}
	return Token{Type: TokenIllegal, Lit: string(ch), Pos: start}
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c == '_'
}

// isPathChar allows dots inside identifiers so dotted paths like
// "e.organizer.name" lex as a single token; the parser splits them.
func isPathChar(c byte) bool {
	return isNameChar(c) || c == '.'
}
