package eql

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a syntax error with its position in the input.
type ParseError struct {
	Pos  int
	Near string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("eql: %s at offset %d near %q", e.Msg, e.Pos, e.Near)
}

// Parser is a recursive-descent parser for the query language. The
// top-level statement follows:
//
//	selectStatement := queryExpression
//	queryExpression := orderedQuery (setOperator orderedQuery)*
//	orderedQuery    := (query | "(" queryExpression ")") queryOrder?
//	query           := selectClause fromClause? whereClause? groupByClause? havingClause?
//	                 | fromClause whereClause? groupByClause? havingClause? selectClause?
//	queryOrder      := orderByClause limitClause? offsetClause? fetchClause?
type Parser struct {
	lex  *Lexer
	cur  Token
	peek Token
}

// Parse parses a select statement.
func Parse(query string) (*Statement, error) {
	p := &Parser{lex: NewLexer(query)}
	p.cur = p.lex.Next()
	p.peek = p.lex.Next()
	qe, err := p.parseQueryExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != TokenEOF {
		return nil, p.errorf("unexpected trailing input")
	}
	return &Statement{Query: qe}, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lex.Next()
}

func (p *Parser) errorf(format string, args ...any) *ParseError {
	near := p.cur.Lit
	if p.cur.Type == TokenEOF {
		near = "end of input"
	}
	return &ParseError{Pos: p.cur.Pos, Near: near, Msg: fmt.Sprintf(format, args...)}
}

// accept consumes the given keyword if it is next and reports whether
// it did.
func (p *Parser) accept(kw string) bool {
	if p.cur.Keyword(kw) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(kw string) error {
	if !p.accept(kw) {
		return p.errorf("expected %s", strings.ToLower(kw))
	}
	return nil
}

func (p *Parser) parseQueryExpr() (*QueryExpr, error) {
	first, err := p.parseOrderedQuery()
	if err != nil {
		return nil, err
	}
	qe := &QueryExpr{First: first}
	for {
		var op SetOp
		switch {
		case p.cur.Keyword("UNION"):
			op = Union
		case p.cur.Keyword("INTERSECT"):
			op = Intersect
		case p.cur.Keyword("EXCEPT"):
			op = Except
		default:
			return qe, nil
		}
		p.next()
		all := p.accept("ALL")
		oq, err := p.parseOrderedQuery()
		if err != nil {
			return nil, err
		}
		qe.Rest = append(qe.Rest, &SetClause{Op: op, All: all, Query: oq})
	}
}

func (p *Parser) parseOrderedQuery() (*OrderedQuery, error) {
	oq := &OrderedQuery{}
	if p.cur.Type == TokenLParen {
		p.next()
		inner, err := p.parseQueryExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRParen {
			return nil, p.errorf("expected closing parenthesis")
		}
		p.next()
		oq.Paren = inner
	} else {
		block, err := p.parseQueryBlock()
		if err != nil {
			return nil, err
		}
		oq.Block = block
	}
	if p.cur.Keyword("ORDER") {
		order, err := p.parseQueryOrder()
		if err != nil {
			return nil, err
		}
		oq.Order = order
	}
	return oq, nil
}

func (p *Parser) parseQueryBlock() (*QueryBlock, error) {
	b := &QueryBlock{}
	var err error
	switch {
	case p.cur.Keyword("SELECT"):
		b.SelectFirst = true
		if b.Select, err = p.parseSelectClause(); err != nil {
			return nil, err
		}
		if p.cur.Keyword("FROM") {
			if b.From, err = p.parseFromClause(); err != nil {
				return nil, err
			}
		}
		if err := p.parseTail(b); err != nil {
			return nil, err
		}
	case p.cur.Keyword("FROM"):
		if b.From, err = p.parseFromClause(); err != nil {
			return nil, err
		}
		if err := p.parseTail(b); err != nil {
			return nil, err
		}
		if p.cur.Keyword("SELECT") {
			if b.Select, err = p.parseSelectClause(); err != nil {
				return nil, err
			}
		}
	default:
		return nil, p.errorf("expected select or from clause")
	}
	return b, nil
}

// parseTail parses the shared where/group by/having suffix.
func (p *Parser) parseTail(b *QueryBlock) error {
	var err error
	if p.accept("WHERE") {
		if b.Where, err = p.parseExpr(); err != nil {
			return err
		}
	}
	if p.cur.Keyword("GROUP") {
		p.next()
		if err := p.expect("BY"); err != nil {
			return err
		}
		for {
			g, err := p.parseExpr()
			if err != nil {
				return err
			}
			b.GroupBy = append(b.GroupBy, g)
			if p.cur.Type != TokenComma {
				break
			}
			p.next()
		}
	}
	// Parsed even without group by; the translator reports the missing
	// grouping with a better message than a bare syntax error.
	if p.accept("HAVING") {
		if b.Having, err = p.parseExpr(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) parseSelectClause() (*SelectClause, error) {
	if err := p.expect("SELECT"); err != nil {
		return nil, err
	}
	sc := &SelectClause{Distinct: p.accept("DISTINCT")}
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := SelectItem{Expr: expr}
		if alias, ok, err := p.parseAlias(); err != nil {
			return nil, err
		} else if ok {
			item.Alias = alias
		}
		sc.Items = append(sc.Items, item)
		if p.cur.Type != TokenComma {
			break
		}
		p.next()
	}
	return sc, nil
}

// parseAlias parses an optional "[as] identifier" alias.
func (p *Parser) parseAlias() (string, bool, error) {
	if p.accept("AS") {
		if p.cur.Type != TokenIdent || strings.ContainsRune(p.cur.Lit, '.') {
			return "", false, p.errorf("expected alias identifier")
		}
		alias := p.cur.Lit
		p.next()
		return alias, true, nil
	}
	if p.cur.Type == TokenIdent && !strings.ContainsRune(p.cur.Lit, '.') {
		alias := p.cur.Lit
		p.next()
		return alias, true, nil
	}
	return "", false, nil
}

func (p *Parser) parseFromClause() (*FromClause, error) {
	if err := p.expect("FROM"); err != nil {
		return nil, err
	}
	if p.cur.Type != TokenIdent {
		return nil, p.errorf("expected entity name")
	}
	if strings.ContainsRune(p.cur.Lit, '.') {
		return nil, p.errorf("entity name cannot be a path")
	}
	fc := &FromClause{Entity: p.cur.Lit}
	p.next()
	if alias, ok, err := p.parseAlias(); err != nil {
		return nil, err
	} else if ok {
		fc.Alias = alias
	}
	for {
		j := &Join{}
		switch {
		case p.cur.Keyword("LEFT"):
			p.next()
			p.accept("OUTER")
			if err := p.expect("JOIN"); err != nil {
				return nil, err
			}
			j.Left = true
		case p.cur.Keyword("INNER"):
			p.next()
			if err := p.expect("JOIN"); err != nil {
				return nil, err
			}
		case p.cur.Keyword("JOIN"):
			p.next()
		default:
			return fc, nil
		}
		j.Fetch = p.accept("FETCH")
		if p.cur.Type != TokenIdent {
			return nil, p.errorf("expected association path")
		}
		j.Path = &Path{Parts: strings.Split(p.cur.Lit, ".")}
		p.next()
		if alias, ok, err := p.parseAlias(); err != nil {
			return nil, err
		} else if ok {
			j.Alias = alias
		}
		fc.Joins = append(fc.Joins, j)
	}
}

func (p *Parser) parseQueryOrder() (*QueryOrder, error) {
	if err := p.expect("ORDER"); err != nil {
		return nil, err
	}
	if err := p.expect("BY"); err != nil {
		return nil, err
	}
	qo := &QueryOrder{}
	for {
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := OrderItem{Expr: expr}
		switch {
		case p.accept("DESC"):
			item.Desc = true
		case p.accept("ASC"):
		}
		if p.accept("NULLS") {
			switch {
			case p.accept("FIRST"):
				item.Nulls = "first"
			case p.accept("LAST"):
				item.Nulls = "last"
			default:
				return nil, p.errorf("expected first or last")
			}
		}
		qo.Items = append(qo.Items, item)
		if p.cur.Type != TokenComma {
			break
		}
		p.next()
	}
	if p.accept("LIMIT") {
		n, err := p.parseCount()
		if err != nil {
			return nil, err
		}
		qo.Limit = &n
	}
	if p.accept("OFFSET") {
		n, err := p.parseCount()
		if err != nil {
			return nil, err
		}
		qo.Offset = &n
		if !p.accept("ROWS") {
			p.accept("ROW")
		}
	}
	if p.accept("FETCH") {
		f := &FetchSpec{}
		switch {
		case p.accept("FIRST"):
		case p.accept("NEXT"):
			f.Next = true
		default:
			return nil, p.errorf("expected first or next")
		}
		n, err := p.parseCount()
		if err != nil {
			return nil, err
		}
		f.Count = n
		f.Percent = p.accept("PERCENT")
		if !p.accept("ROWS") && !p.accept("ROW") {
			return nil, p.errorf("expected row or rows")
		}
		switch {
		case p.accept("ONLY"):
		case p.accept("WITH"):
			if err := p.expect("TIES"); err != nil {
				return nil, err
			}
			f.WithTies = true
		default:
			return nil, p.errorf("expected only or with ties")
		}
		qo.Fetch = f
	}
	return qo, nil
}

func (p *Parser) parseCount() (int64, error) {
	if p.cur.Type != TokenInt {
		return 0, p.errorf("expected row count")
	}
	n, err := strconv.ParseInt(p.cur.Lit, 10, 64)
	if err != nil {
		return 0, p.errorf("invalid row count")
	}
	p.next()
	return n, nil
}

// Expression precedence, loosest first: or, and, not, comparison and
// quantified tests, additive, multiplicative, unary minus, primary.

func (p *Parser) parseExpr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.accept("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.accept("NOT") {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	switch p.cur.Type {
	case TokenEQ, TokenNEQ, TokenLT, TokenLTE, TokenGT, TokenGTE:
		op := p.cur.Lit
		if op == "!=" {
			op = "<>"
		}
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: op, Left: left, Right: right}, nil
	}
	not := false
	if p.cur.Keyword("NOT") &&
		(p.peek.Keyword("IN") || p.peek.Keyword("LIKE") || p.peek.Keyword("BETWEEN")) {
		not = true
		p.next()
	}
	switch {
	case p.accept("IS"):
		n := p.accept("NOT")
		if err := p.expect("NULL"); err != nil {
			return nil, err
		}
		return &IsNull{Expr: left, Not: n}, nil
	case p.accept("IN"):
		if p.cur.Type != TokenLParen {
			return nil, p.errorf("expected value list")
		}
		p.next()
		in := &InList{Expr: left, Not: not}
		for {
			item, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			in.List = append(in.List, item)
			if p.cur.Type != TokenComma {
				break
			}
			p.next()
		}
		if p.cur.Type != TokenRParen {
			return nil, p.errorf("expected closing parenthesis")
		}
		p.next()
		return in, nil
	case p.accept("LIKE"):
		pattern, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		like := &LikeExpr{Expr: left, Pattern: pattern, Not: not}
		if p.accept("ESCAPE") {
			if like.Escape, err = p.parseAdditive(); err != nil {
				return nil, err
			}
		}
		return like, nil
	case p.accept("BETWEEN"):
		lo, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if err := p.expect("AND"); err != nil {
			return nil, err
		}
		hi, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BetweenExpr{Expr: left, Lo: lo, Hi: hi, Not: not}, nil
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenPlus || p.cur.Type == TokenMinus {
		op := p.cur.Lit
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenStar || p.cur.Type == TokenSlash {
		op := p.cur.Lit
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.cur.Type == TokenMinus {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Neg{Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch p.cur.Type {
	case TokenInt:
		n, err := strconv.ParseInt(p.cur.Lit, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer literal")
		}
		p.next()
		return &Literal{Value: n}, nil
	case TokenFloat:
		f, err := strconv.ParseFloat(p.cur.Lit, 64)
		if err != nil {
			return nil, p.errorf("invalid float literal")
		}
		p.next()
		return &Literal{Value: f}, nil
	case TokenString:
		s := p.cur.Lit
		p.next()
		return &Literal{Value: s}, nil
	case TokenNamed:
		name := p.cur.Lit
		p.next()
		return &NamedParam{Name: name}, nil
	case TokenPositional:
		n, err := strconv.Atoi(p.cur.Lit)
		if err != nil || n < 1 {
			return nil, p.errorf("invalid positional parameter")
		}
		p.next()
		return &PositionalParam{N: n}, nil
	case TokenKeyword:
		switch p.cur.Lit {
		case "TRUE":
			p.next()
			return &Literal{Value: true}, nil
		case "FALSE":
			p.next()
			return &Literal{Value: false}, nil
		case "NULL":
			p.next()
			return &Literal{Value: nil}, nil
		}
		return nil, p.errorf("unexpected keyword")
	case TokenIdent:
		lit := p.cur.Lit
		if p.peek.Type == TokenLParen && !strings.ContainsRune(lit, '.') {
			return p.parseCall(strings.ToLower(lit))
		}
		p.next()
		return &Path{Parts: strings.Split(lit, ".")}, nil
	case TokenLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRParen {
			return nil, p.errorf("expected closing parenthesis")
		}
		p.next()
		return &Paren{Expr: inner}, nil
	}
	return nil, p.errorf("expected expression")
}

func (p *Parser) parseCall(name string) (Expr, error) {
	p.next() // function name
	p.next() // opening parenthesis
	call := &Call{Name: name}
	if p.cur.Type == TokenStar {
		call.Star = true
		p.next()
	} else if p.cur.Type != TokenRParen {
		call.Distinct = p.accept("DISTINCT")
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.cur.Type != TokenComma {
				break
			}
			p.next()
		}
	}
	if p.cur.Type != TokenRParen {
		return nil, p.errorf("expected closing parenthesis")
	}
	p.next()
	return call, nil
}
