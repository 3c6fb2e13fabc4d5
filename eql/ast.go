package eql

import (
	"strconv"
	"strings"
)

// Node is implemented by every AST node. Nodes print back to query
// text in canonical form (lower-case keywords, normalized spacing).
type Node interface {
	String() string
}

// Statement is a parsed select statement: a single query expression.
type Statement struct {
	Query *QueryExpr
}

func (s *Statement) String() string { return s.Query.String() }

// QueryExpr is one or more ordered queries combined with set operators.
type QueryExpr struct {
	First *OrderedQuery
	Rest  []*SetClause
}

func (q *QueryExpr) String() string {
	var sb strings.Builder
	sb.WriteString(q.First.String())
	for _, s := range q.Rest {
		sb.WriteByte(' ')
		sb.WriteString(s.String())
	}
	return sb.String()
}

// SetOp is a set operator combining two ordered queries.
type SetOp int

// Set operators.
const (
	Union SetOp = iota
	Intersect
	Except
)

func (op SetOp) String() string {
	switch op {
	case Intersect:
		return "intersect"
	case Except:
		return "except"
	default:
		return "union"
	}
}

// SetClause is a set operator applied to a right-hand ordered query.
type SetClause struct {
	Op    SetOp
	All   bool
	Query *OrderedQuery
}

func (s *SetClause) String() string {
	op := s.Op.String()
	if s.All {
		op += " all"
	}
	return op + " " + s.Query.String()
}

// OrderedQuery is a query block or a parenthesized query expression,
// with an optional ordering suffix.
type OrderedQuery struct {
	Block *QueryBlock // set when the operand is a plain query
	Paren *QueryExpr  // set when the operand is parenthesized
	Order *QueryOrder
}

func (o *OrderedQuery) String() string {
	var sb strings.Builder
	if o.Paren != nil {
		sb.WriteByte('(')
		sb.WriteString(o.Paren.String())
		sb.WriteByte(')')
	} else {
		sb.WriteString(o.Block.String())
	}
	if o.Order != nil {
		sb.WriteByte(' ')
		sb.WriteString(o.Order.String())
	}
	return sb.String()
}

// QueryBlock is a single query: select/from/where/group by/having,
// with the select clause appearing first or last.
type QueryBlock struct {
	SelectFirst bool
	Select      *SelectClause
	From        *FromClause
	Where       Expr
	GroupBy     []Expr
	Having      Expr
}

func (q *QueryBlock) String() string {
	var parts []string
	if q.Select != nil && q.SelectFirst {
		parts = append(parts, q.Select.String())
	}
	if q.From != nil {
		parts = append(parts, q.From.String())
	}
	if q.Where != nil {
		parts = append(parts, "where "+q.Where.String())
	}
	if len(q.GroupBy) > 0 {
		terms := make([]string, len(q.GroupBy))
		for i, g := range q.GroupBy {
			terms[i] = g.String()
		}
		parts = append(parts, "group by "+strings.Join(terms, ", "))
	}
	if q.Having != nil {
		parts = append(parts, "having "+q.Having.String())
	}
	if q.Select != nil && !q.SelectFirst {
		parts = append(parts, q.Select.String())
	}
	return strings.Join(parts, " ")
}

// SelectClause is the projection of a query block.
type SelectClause struct {
	Distinct bool
	Items    []SelectItem
}

func (s *SelectClause) String() string {
	var sb strings.Builder
	sb.WriteString("select ")
	if s.Distinct {
		sb.WriteString("distinct ")
	}
	for i, item := range s.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item.Expr.String())
		if item.Alias != "" {
			sb.WriteString(" as ")
			sb.WriteString(item.Alias)
		}
	}
	return sb.String()
}

// SelectItem is one projection term with an optional alias.
type SelectItem struct {
	Expr  Expr
	Alias string
}

// FromClause names the root entity and its joins.
type FromClause struct {
	Entity string
	Alias  string
	Joins  []*Join
}

func (f *FromClause) String() string {
	var sb strings.Builder
	sb.WriteString("from ")
	sb.WriteString(f.Entity)
	if f.Alias != "" {
		sb.WriteByte(' ')
		sb.WriteString(f.Alias)
	}
	for _, j := range f.Joins {
		sb.WriteByte(' ')
		sb.WriteString(j.String())
	}
	return sb.String()
}

// Join is an association join in the from clause.
type Join struct {
	Left  bool
	Fetch bool
	Path  *Path
	Alias string
}

func (j *Join) String() string {
	var sb strings.Builder
	if j.Left {
		sb.WriteString("left ")
	}
	sb.WriteString("join ")
	if j.Fetch {
		sb.WriteString("fetch ")
	}
	sb.WriteString(j.Path.String())
	if j.Alias != "" {
		sb.WriteByte(' ')
		sb.WriteString(j.Alias)
	}
	return sb.String()
}

// QueryOrder is the ordering suffix of an ordered query: order by with
// optional limit, offset and fetch clauses.
type QueryOrder struct {
	Items  []OrderItem
	Limit  *int64
	Offset *int64
	Fetch  *FetchSpec
}

func (q *QueryOrder) String() string {
	var sb strings.Builder
	sb.WriteString("order by ")
	for i, item := range q.Items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item.String())
	}
	if q.Limit != nil {
		sb.WriteString(" limit ")
		sb.WriteString(strconv.FormatInt(*q.Limit, 10))
	}
	if q.Offset != nil {
		sb.WriteString(" offset ")
		sb.WriteString(strconv.FormatInt(*q.Offset, 10))
	}
	if q.Fetch != nil {
		sb.WriteByte(' ')
		sb.WriteString(q.Fetch.String())
	}
	return sb.String()
}

// OrderItem is one order-by term.
type OrderItem struct {
	Expr  Expr
	Desc  bool
	Nulls string // "", "first" or "last"
}

func (o OrderItem) String() string {
	s := o.Expr.String()
	if o.Desc {
		s += " desc"
	}
	if o.Nulls != "" {
		s += " nulls " + o.Nulls
	}
	return s
}

// FetchSpec is a standard fetch clause.
type FetchSpec struct {
	Next     bool // "fetch next" instead of "fetch first"
	Count    int64
	Percent  bool
	WithTies bool
}

func (f *FetchSpec) String() string {
	var sb strings.Builder
	sb.WriteString("fetch ")
	if f.Next {
		sb.WriteString("next ")
	} else {
		sb.WriteString("first ")
	}
	sb.WriteString(strconv.FormatInt(f.Count, 10))
	if f.Percent {
		sb.WriteString(" percent")
	}
	sb.WriteString(" rows ")
	if f.WithTies {
		sb.WriteString("with ties")
	} else {
		sb.WriteString("only")
	}
	return sb.String()
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Path is a dotted attribute path: an alias, alias.field, or
// alias.assoc.field.
type Path struct {
	Parts []string
}

func (p *Path) exprNode()      {}
func (p *Path) String() string { return strings.Join(p.Parts, ".") }

// Literal is a string, numeric, boolean or null literal.
type Literal struct {
	Value any // string, int64, float64, bool, or nil for null
}

func (l *Literal) exprNode() {}

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return "?"
}

// NamedParam is a named parameter (:name).
type NamedParam struct {
	Name string
}

func (p *NamedParam) exprNode()      {}
func (p *NamedParam) String() string { return ":" + p.Name }

// PositionalParam is a positional parameter (?1).
type PositionalParam struct {
	N int
}

func (p *PositionalParam) exprNode()      {}
func (p *PositionalParam) String() string { return "?" + strconv.Itoa(p.N) }

// Binary is a binary operation: comparison, arithmetic, and, or.
type Binary struct {
	Op    string // "=", "<>", "<", "<=", ">", ">=", "+", "-", "*", "/", "and", "or"
	Left  Expr
	Right Expr
}

func (b *Binary) exprNode() {}

func (b *Binary) String() string {
	return b.Left.String() + " " + b.Op + " " + b.Right.String()
}

// Not is a logical negation.
type Not struct {
	Expr Expr
}

func (n *Not) exprNode()      {}
func (n *Not) String() string { return "not " + n.Expr.String() }

// Neg is a unary arithmetic negation.
type Neg struct {
	Expr Expr
}

func (n *Neg) exprNode()      {}
func (n *Neg) String() string { return "-" + n.Expr.String() }

// Paren is an explicitly parenthesized expression.
type Paren struct {
	Expr Expr
}

func (p *Paren) exprNode()      {}
func (p *Paren) String() string { return "(" + p.Expr.String() + ")" }

// IsNull is an "is [not] null" test.
type IsNull struct {
	Expr Expr
	Not  bool
}

func (i *IsNull) exprNode() {}

func (i *IsNull) String() string {
	if i.Not {
		return i.Expr.String() + " is not null"
	}
	return i.Expr.String() + " is null"
}

// InList is an "[not] in (list)" test.
type InList struct {
	Expr Expr
	Not  bool
	List []Expr
}

func (i *InList) exprNode() {}

func (i *InList) String() string {
	items := make([]string, len(i.List))
	for j, e := range i.List {
		items[j] = e.String()
	}
	op := " in ("
	if i.Not {
		op = " not in ("
	}
	return i.Expr.String() + op + strings.Join(items, ", ") + ")"
}

// LikeExpr is a "[not] like pattern [escape c]" test.
type LikeExpr struct {
	Expr    Expr
	Pattern Expr
	Escape  Expr // optional
	Not     bool
}

func (l *LikeExpr) exprNode() {}

func (l *LikeExpr) String() string {
	op := " like "
	if l.Not {
		op = " not like "
	}
	s := l.Expr.String() + op + l.Pattern.String()
	if l.Escape != nil {
		s += " escape " + l.Escape.String()
	}
	return s
}

// BetweenExpr is a "[not] between lo and hi" test.
type BetweenExpr struct {
	Expr Expr
	Lo   Expr
	Hi   Expr
	Not  bool
}

func (b *BetweenExpr) exprNode() {}

func (b *BetweenExpr) String() string {
	op := " between "
	if b.Not {
		op = " not between "
	}
	return b.Expr.String() + op + b.Lo.String() + " and " + b.Hi.String()
}

// Call is a function invocation, including aggregates.
type Call struct {
	Name     string // lower-cased
	Distinct bool
	Star     bool // count(*)
	Args     []Expr
}

func (c *Call) exprNode() {}

func (c *Call) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	sb.WriteByte('(')
	if c.Star {
		sb.WriteByte('*')
	} else {
		if c.Distinct {
			sb.WriteString("distinct ")
		}
		for i, a := range c.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
	}
	sb.WriteByte(')')
	return sb.String()
}
