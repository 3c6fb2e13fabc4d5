package eql

import "strings"

// TokenType classifies a lexical token of the query language.
type TokenType int

// Token types.
const (
	TokenEOF     TokenType = iota // end of input
	TokenIllegal                  // unrecognized input
	TokenIdent                    // identifier or dotted path (e, e.name)
	TokenKeyword                  // reserved word, upper-cased
	TokenString                   // string literal ('it''s')
	TokenInt                      // integer literal
	TokenFloat                    // float literal (3.14)
	TokenNamed                    // named parameter (:name)
	TokenPositional               // positional parameter (?1)
	TokenEQ                       // =
	TokenNEQ                      // <> or !=
	TokenLT                       // <
	TokenLTE                      // <=
	TokenGT                       // >
	TokenGTE                      // >=
	TokenPlus                     // +
	TokenMinus                    // -
	TokenStar                     // *
	TokenSlash                    // /
	TokenLParen                   // (
	TokenRParen                   // )
	TokenComma                    // ,
)

// Token is a single lexical unit with its position in the input.
type Token struct {
	Type TokenType
	Lit  string // literal text; keywords are upper-cased
	Pos  int    // byte offset in the input
}

// keywords are the reserved words of the language, matched
// case-insensitively.
var keywords = map[string]bool{
	"SELECT": true, "DISTINCT": true, "AS": true,
	"FROM": true, "WHERE": true,
	"GROUP": true, "BY": true, "HAVING": true,
	"ORDER": true, "ASC": true, "DESC": true,
	"NULLS": true, "FIRST": true, "LAST": true,
	"LIMIT": true, "OFFSET": true,
	"FETCH": true, "NEXT": true, "ROW": true, "ROWS": true,
	"ONLY": true, "PERCENT": true, "TIES": true, "WITH": true,
	"UNION": true, "INTERSECT": true, "EXCEPT": true, "ALL": true,
	"AND": true, "OR": true, "NOT": true,
	"IN": true, "IS": true, "NULL": true,
	"LIKE": true, "ESCAPE": true, "BETWEEN": true,
	"TRUE": true, "FALSE": true,
	"JOIN": true, "INNER": true, "LEFT": true, "OUTER": true,
}

// Keyword reports whether the token is the given keyword.
func (t Token) Keyword(kw string) bool {
	return t.Type == TokenKeyword && t.Lit == kw
}

// reserved reports whether the word is a keyword (case-insensitive).
func reserved(word string) (string, bool) {
	up := strings.ToUpper(word)
	return up, keywords[up]
}
