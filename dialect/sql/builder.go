package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fcjm/hibernate-orm/dialect"
)

// Builder is the base query builder shared by all statement builders.
// It accumulates the statement text and its bound arguments, and knows
// how to quote identifiers and number placeholders per dialect.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
	errs    []error
	sub     int // derived table counter for generated aliases
}

// NewBuilder returns a fresh builder for the given dialect.
func NewBuilder(dialect string) *Builder {
	return &Builder{dialect: dialect}
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() string { return b.dialect }

// Quote quotes the given identifier according to the dialect. Strings
// that are not plain identifiers (expressions, stars, already-quoted
// text) are returned unchanged.
func (b *Builder) Quote(ident string) string {
	if ident == "*" || strings.ContainsAny(ident, "`\"() ") {
		return ident
	}
	// ORDER BY ordinals render as written.
	if _, err := strconv.Atoi(ident); err == nil {
		return ident
	}
	switch b.dialect {
	case dialect.MySQL:
		return "`" + ident + "`"
	default:
		return `"` + ident + `"`
	}
}

// Ident writes the quoted identifier to the builder. Dotted paths are
// quoted per part, so "t0.name" becomes "t0"."name".
func (b *Builder) Ident(s string) *Builder {
	parts := strings.Split(s, ".")
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(b.Quote(p))
	}
	return b
}

// WriteString appends the given string to the statement.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends the given byte to the statement.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Pad appends a single space.
func (b *Builder) Pad() *Builder { return b.WriteByte(' ') }

// Comma appends ", ".
func (b *Builder) Comma() *Builder { return b.WriteString(", ") }

// Arg binds the given value and writes its placeholder. PostgreSQL
// placeholders are numbered, all other dialects use "?".
func (b *Builder) Arg(v any) *Builder {
	b.args = append(b.args, v)
	if b.dialect == dialect.Postgres {
		b.WriteString("$" + strconv.Itoa(len(b.args)))
	} else {
		b.WriteByte('?')
	}
	return b
}

// Args binds all given values as a comma-separated placeholder list.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.Comma()
		}
		b.Arg(v)
	}
	return b
}

// AddError records an error that occurred while building the statement.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Err returns the first error recorded during building, if any.
func (b *Builder) Err() error {
	if len(b.errs) == 0 {
		return nil
	}
	return b.errs[0]
}

// String returns the statement built so far.
func (b *Builder) String() string { return b.sb.String() }

// Predicate is a composable WHERE/HAVING condition. Predicates render
// lazily into the statement builder so argument placeholders stay
// correctly numbered across nested and combined conditions.
type Predicate struct {
	fns []func(*Builder)
}

// P returns an empty predicate that custom writers can be appended to.
func P() *Predicate { return &Predicate{} }

// Append adds a raw writer to the predicate.
func (p *Predicate) Append(f func(*Builder)) *Predicate {
	p.fns = append(p.fns, f)
	return p
}

// Query renders the predicate into the given builder.
func (p *Predicate) Query(b *Builder) {
	for _, f := range p.fns {
		f(b)
	}
}

// And combines the given predicates with AND.
func And(preds ...*Predicate) *Predicate {
	switch len(preds) {
	case 0:
		return P()
	case 1:
		return preds[0]
	}
	return P().Append(func(b *Builder) {
		b.WriteByte('(')
		for i, p := range preds {
			if i > 0 {
				b.WriteString(" AND ")
			}
			p.Query(b)
		}
		b.WriteByte(')')
	})
}

// Or combines the given predicates with OR.
func Or(preds ...*Predicate) *Predicate {
	switch len(preds) {
	case 0:
		return P()
	case 1:
		return preds[0]
	}
	return P().Append(func(b *Builder) {
		b.WriteByte('(')
		for i, p := range preds {
			if i > 0 {
				b.WriteString(" OR ")
			}
			p.Query(b)
		}
		b.WriteByte(')')
	})
}

// Not negates the given predicate.
func Not(p *Predicate) *Predicate {
	return P().Append(func(b *Builder) {
		b.WriteString("NOT (")
		p.Query(b)
		b.WriteByte(')')
	})
}

func binary(col, op string, v any) *Predicate {
	return P().Append(func(b *Builder) {
		b.Ident(col).Pad().WriteString(op).Pad().Arg(v)
	})
}

// EQ returns a column = value predicate.
func EQ(col string, v any) *Predicate { return binary(col, "=", v) }

// NEQ returns a column <> value predicate.
func NEQ(col string, v any) *Predicate { return binary(col, "<>", v) }

// GT returns a column > value predicate.
func GT(col string, v any) *Predicate { return binary(col, ">", v) }

// GTE returns a column >= value predicate.
func GTE(col string, v any) *Predicate { return binary(col, ">=", v) }

// LT returns a column < value predicate.
func LT(col string, v any) *Predicate { return binary(col, "<", v) }

// LTE returns a column <= value predicate.
func LTE(col string, v any) *Predicate { return binary(col, "<=", v) }

// ColumnsEQ returns a column = column predicate.
func ColumnsEQ(col1, col2 string) *Predicate {
	return P().Append(func(b *Builder) {
		b.Ident(col1).WriteString(" = ").Ident(col2)
	})
}

// In returns a column IN (...) predicate. An empty list renders the
// always-false condition.
func In(col string, vs ...any) *Predicate {
	return P().Append(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("FALSE")
			return
		}
		b.Ident(col).WriteString(" IN (").Args(vs...).WriteByte(')')
	})
}

// NotIn returns a column NOT IN (...) predicate.
func NotIn(col string, vs ...any) *Predicate {
	return P().Append(func(b *Builder) {
		if len(vs) == 0 {
			b.WriteString("TRUE")
			return
		}
		b.Ident(col).WriteString(" NOT IN (").Args(vs...).WriteByte(')')
	})
}

// Like returns a column LIKE pattern predicate.
func Like(col, pattern string) *Predicate {
	return P().Append(func(b *Builder) {
		b.Ident(col).WriteString(" LIKE ").Arg(pattern)
	})
}

// IsNull returns a column IS NULL predicate.
func IsNull(col string) *Predicate {
	return P().Append(func(b *Builder) {
		b.Ident(col).WriteString(" IS NULL")
	})
}

// NotNull returns a column IS NOT NULL predicate.
func NotNull(col string) *Predicate {
	return P().Append(func(b *Builder) {
		b.Ident(col).WriteString(" IS NOT NULL")
	})
}

// Between returns a column BETWEEN lo AND hi predicate.
func Between(col string, lo, hi any) *Predicate {
	return P().Append(func(b *Builder) {
		b.Ident(col).WriteString(" BETWEEN ").Arg(lo).WriteString(" AND ").Arg(hi)
	})
}

// ExprP returns a predicate from a raw expression with bound arguments.
// The expression must use "?" placeholders regardless of dialect.
func ExprP(expr string, args ...any) *Predicate {
	return P().Append(func(b *Builder) {
		i := 0
		for _, r := range expr {
			if r == '?' && i < len(args) {
				b.Arg(args[i])
				i++
				continue
			}
			b.WriteString(string(r))
		}
	})
}

// SelectTable is a table (optionally aliased) in a FROM or JOIN
// clause, either named or derived from a nested selector.
type SelectTable struct {
	name  string
	alias string
	sub   *Selector
}

// Table returns a new table reference.
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// TableFromSelect returns a derived table backed by the given selector.
func TableFromSelect(s *Selector, alias string) *SelectTable {
	return &SelectTable{sub: s, alias: alias}
}

// As sets the table alias.
func (t *SelectTable) As(alias string) *SelectTable {
	t.alias = alias
	return t
}

// C returns the given column qualified by the table alias (or name).
func (t *SelectTable) C(column string) string {
	q := t.alias
	if q == "" {
		q = t.name
	}
	return q + "." + column
}

// OrderTerm is a single ORDER BY term.
type OrderTerm struct {
	Expr  string // column path or raw expression
	Desc  bool
	Nulls string // "", "FIRST" or "LAST"
}

type joinClause struct {
	kind  string
	table *SelectTable
	on    *Predicate
}

type setOp struct {
	op  string
	all bool
	s   *Selector
}

// Selector builds a SELECT statement: projection, source tables and
// joins, conditions, grouping, set operations and the ordering suffix
// (order by / limit / offset / fetch).
type Selector struct {
	dialect  string
	distinct bool
	columns  []string
	from     *SelectTable
	joins    []joinClause
	where    *Predicate
	groupBy  []string
	having   *Predicate
	orderBy  []OrderTerm
	limit    *int
	offset   *int
	fetch    *fetchClause
	setOps   []setOp
}

type fetchClause struct {
	n        int
	withTies bool
}

// Select returns a new selector with the given projection.
func Select(columns ...string) *Selector {
	return &Selector{columns: columns}
}

// SetDialect sets the dialect used for quoting and placeholders.
func (s *Selector) SetDialect(d string) *Selector {
	s.dialect = d
	return s
}

// Dialect returns the selector dialect.
func (s *Selector) Dialect() string { return s.dialect }

// Distinct marks the projection as DISTINCT.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// AppendSelect adds columns to the projection.
func (s *Selector) AppendSelect(columns ...string) *Selector {
	s.columns = append(s.columns, columns...)
	return s
}

// SelectedColumns returns the current projection.
func (s *Selector) SelectedColumns() []string { return s.columns }

// From sets the source table.
func (s *Selector) From(t *SelectTable) *Selector {
	s.from = t
	return s
}

// C returns the given column qualified by the source table.
func (s *Selector) C(column string) string {
	if s.from == nil {
		return column
	}
	return s.from.C(column)
}

// Join adds an inner join on the given table. The join condition is
// set with On.
func (s *Selector) Join(t *SelectTable) *Selector {
	s.joins = append(s.joins, joinClause{kind: "JOIN", table: t})
	return s
}

// LeftJoin adds a left outer join on the given table.
func (s *Selector) LeftJoin(t *SelectTable) *Selector {
	s.joins = append(s.joins, joinClause{kind: "LEFT JOIN", table: t})
	return s
}

// On sets the condition of the most recently added join to the
// equality of the two given columns.
func (s *Selector) On(col1, col2 string) *Selector {
	if len(s.joins) > 0 {
		s.joins[len(s.joins)-1].on = ColumnsEQ(col1, col2)
	}
	return s
}

// Where adds a condition, combined with AND if one is already set.
func (s *Selector) Where(p *Predicate) *Selector {
	if p == nil {
		return s
	}
	if s.where != nil {
		s.where = And(s.where, p)
	} else {
		s.where = p
	}
	return s
}

// GroupBy adds grouping terms.
func (s *Selector) GroupBy(columns ...string) *Selector {
	s.groupBy = append(s.groupBy, columns...)
	return s
}

// Having sets the HAVING condition.
func (s *Selector) Having(p *Predicate) *Selector {
	s.having = p
	return s
}

// OrderBy adds ascending order terms by column.
func (s *Selector) OrderBy(columns ...string) *Selector {
	for _, c := range columns {
		s.orderBy = append(s.orderBy, OrderTerm{Expr: c})
	}
	return s
}

// OrderExpr adds fully specified order terms.
func (s *Selector) OrderExpr(terms ...OrderTerm) *Selector {
	s.orderBy = append(s.orderBy, terms...)
	return s
}

// Limit sets the maximum number of returned rows. It overrides a
// previously set fetch clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	s.fetch = nil
	return s
}

// Offset sets the number of skipped rows.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// Fetch sets a standard FETCH FIRST row limit. On PostgreSQL the
// clause renders as written (including WITH TIES); other dialects fall
// back to LIMIT and reject WITH TIES at compile time.
func (s *Selector) Fetch(n int, withTies bool) *Selector {
	s.fetch = &fetchClause{n: n, withTies: withTies}
	return s
}

// Union appends a UNION operand.
func (s *Selector) Union(o *Selector) *Selector {
	s.setOps = append(s.setOps, setOp{op: "UNION", s: o})
	return s
}

// UnionAll appends a UNION ALL operand.
func (s *Selector) UnionAll(o *Selector) *Selector {
	s.setOps = append(s.setOps, setOp{op: "UNION", all: true, s: o})
	return s
}

// Intersect appends an INTERSECT operand.
func (s *Selector) Intersect(o *Selector) *Selector {
	s.setOps = append(s.setOps, setOp{op: "INTERSECT", s: o})
	return s
}

// IntersectAll appends an INTERSECT ALL operand.
func (s *Selector) IntersectAll(o *Selector) *Selector {
	s.setOps = append(s.setOps, setOp{op: "INTERSECT", all: true, s: o})
	return s
}

// Except appends an EXCEPT operand.
func (s *Selector) Except(o *Selector) *Selector {
	s.setOps = append(s.setOps, setOp{op: "EXCEPT", s: o})
	return s
}

// ExceptAll appends an EXCEPT ALL operand.
func (s *Selector) ExceptAll(o *Selector) *Selector {
	s.setOps = append(s.setOps, setOp{op: "EXCEPT", all: true, s: o})
	return s
}

// Query renders the statement and returns it with its arguments.
func (s *Selector) Query() (string, []any) {
	b := NewBuilder(s.dialect)
	s.query(b)
	return b.String(), b.args
}

// Err renders the statement and returns the first error recorded while
// doing so, such as a fetch clause the dialect cannot express.
func (s *Selector) Err() error {
	b := NewBuilder(s.dialect)
	s.query(b)
	return b.Err()
}

// compound reports whether the selector cannot stand inline as a set
// operation operand.
func (s *Selector) compound() bool {
	return len(s.setOps) > 0 || len(s.orderBy) > 0 ||
		s.limit != nil || s.offset != nil || s.fetch != nil
}

// query renders into a shared builder so placeholder numbering stays
// consistent across set-operation operands.
func (s *Selector) query(b *Builder) {
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.columns) == 0 {
		b.WriteByte('*')
	}
	for i, c := range s.columns {
		if i > 0 {
			b.Comma()
		}
		b.Ident(c)
	}
	if s.from != nil {
		b.WriteString(" FROM ")
		if s.from.sub != nil {
			b.WriteByte('(')
			s.from.sub.query(b)
			b.WriteByte(')')
		} else {
			b.Ident(s.from.name)
		}
		if s.from.alias != "" {
			b.WriteString(" AS ").Ident(s.from.alias)
		}
	}
	for _, j := range s.joins {
		b.Pad().WriteString(j.kind).Pad().Ident(j.table.name)
		if j.table.alias != "" {
			b.WriteString(" AS ").Ident(j.table.alias)
		}
		if j.on != nil {
			b.WriteString(" ON ")
			j.on.Query(b)
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		s.where.Query(b)
	}
	if len(s.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, g := range s.groupBy {
			if i > 0 {
				b.Comma()
			}
			b.Ident(g)
		}
	}
	if s.having != nil {
		b.WriteString(" HAVING ")
		s.having.Query(b)
	}
	for _, op := range s.setOps {
		b.Pad().WriteString(op.op)
		if op.all {
			b.WriteString(" ALL")
		}
		b.Pad()
		if op.s.compound() {
			// Compound operands keep their grouping as derived tables.
			// SQLite accepts no parenthesized set operation operands.
			alias := "s" + strconv.Itoa(b.sub)
			b.sub++
			b.WriteString("SELECT * FROM (")
			op.s.query(b)
			b.WriteString(") AS ").Ident(alias)
		} else {
			op.s.query(b)
		}
	}
	if len(s.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, t := range s.orderBy {
			if i > 0 {
				b.Comma()
			}
			b.Ident(t.Expr)
			if t.Desc {
				b.WriteString(" DESC")
			}
			if t.Nulls != "" {
				b.WriteString(" NULLS ").WriteString(t.Nulls)
			}
		}
	}
	switch {
	case s.fetch != nil && b.dialect == dialect.Postgres:
		b.WriteString(" FETCH FIRST ").WriteString(strconv.Itoa(s.fetch.n)).WriteString(" ROWS ")
		if s.fetch.withTies {
			b.WriteString("WITH TIES")
		} else {
			b.WriteString("ONLY")
		}
	case s.fetch != nil:
		if s.fetch.withTies {
			b.AddError(fmt.Errorf("sql: FETCH ... WITH TIES requires the postgres dialect"))
		}
		b.WriteString(" LIMIT ").WriteString(strconv.Itoa(s.fetch.n))
	case s.limit != nil:
		b.WriteString(" LIMIT ").WriteString(strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		b.WriteString(" OFFSET ").WriteString(strconv.Itoa(*s.offset))
	}
}

// InsertBuilder builds an INSERT statement.
type InsertBuilder struct {
	dialect   string
	table     string
	columns   []string
	values    []any
	returning []string
}

// Insert returns a new insert builder for the given table.
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// SetDialect sets the dialect used for quoting and placeholders.
func (i *InsertBuilder) SetDialect(d string) *InsertBuilder {
	i.dialect = d
	return i
}

// Columns sets the insert column list.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = append(i.columns, columns...)
	return i
}

// Values sets the inserted row values, in column order.
func (i *InsertBuilder) Values(vs ...any) *InsertBuilder {
	i.values = append(i.values, vs...)
	return i
}

// Returning adds a RETURNING clause (PostgreSQL).
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = append(i.returning, columns...)
	return i
}

// Query renders the statement and returns it with its arguments.
func (i *InsertBuilder) Query() (string, []any) {
	b := NewBuilder(i.dialect)
	b.WriteString("INSERT INTO ").Ident(i.table).WriteString(" (")
	for j, c := range i.columns {
		if j > 0 {
			b.Comma()
		}
		b.Ident(c)
	}
	b.WriteString(") VALUES (").Args(i.values...).WriteByte(')')
	if len(i.returning) > 0 && i.dialect == dialect.Postgres {
		b.WriteString(" RETURNING ")
		for j, c := range i.returning {
			if j > 0 {
				b.Comma()
			}
			b.Ident(c)
		}
	}
	return b.String(), b.args
}
