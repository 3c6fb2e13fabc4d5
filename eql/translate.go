package eql

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/fcjm/hibernate-orm/dialect"
	"github.com/fcjm/hibernate-orm/dialect/sql"
	"github.com/fcjm/hibernate-orm/schema"
)

// Params carries the bound query parameters. Entity instances may be
// bound directly: a registered entity flattens to its primary key
// value, and a nil entity binds SQL NULL.
type Params struct {
	Named      map[string]any
	Positional map[int]any
}

// Fetch records one fetch-joined association of the root entity, in
// join order. Fetched columns follow the root columns in the selection.
type Fetch struct {
	Assoc  *schema.Association
	Target *schema.Type
}

// Compiled is a translated statement ready for execution.
type Compiled struct {
	// Selector renders the final SQL and arguments.
	Selector *sql.Selector
	// Root is the selected entity type, or nil for a value projection.
	Root *schema.Type
	// Fetches lists the fetch-joined associations when Root is set.
	Fetches []*Fetch
}

// Compiler translates parsed statements into SQL against registered
// entity metadata.
type Compiler struct {
	registry *schema.Registry
	dialect  string
}

// NewCompiler returns a compiler for the given metadata and dialect.
func NewCompiler(registry *schema.Registry, d string) *Compiler {
	return &Compiler{registry: registry, dialect: d}
}

// Compile translates the statement with the given parameters.
func (c *Compiler) Compile(stmt *Statement, params Params) (*Compiled, error) {
	cx := &compileCtx{Compiler: c, params: params}
	ce, err := cx.queryExpr(stmt.Query)
	if err != nil {
		return nil, err
	}
	return &Compiled{Selector: ce.sel, Root: ce.root, Fetches: ce.fetches}, nil
}

// CompileString parses and translates the query in one step.
func (c *Compiler) CompileString(query string, params Params) (*Compiled, error) {
	stmt, err := Parse(query)
	if err != nil {
		return nil, err
	}
	return c.Compile(stmt, params)
}

// compileCtx is the per-statement translation state. Table aliases
// (t0, t1, ...) are numbered across the whole statement so operands of
// set operations never collide.
type compileCtx struct {
	*Compiler
	params Params
	n      int
}

func (cx *compileCtx) nextAlias() string {
	a := "t" + strconv.Itoa(cx.n)
	cx.n++
	return a
}

// source is one entity table visible in a query block, either the root
// of the from clause or a joined association.
type source struct {
	tbl *sql.SelectTable
	typ *schema.Type
}

// blockScope resolves attribute paths for a single query block and
// owns its selector so implicit joins can be added during resolution.
type blockScope struct {
	cx      *compileCtx
	sel     *sql.Selector
	root    *source
	sources map[string]*source // by user alias
	joined  map[string]*source // implicit joins by "tN.assoc"
}

// compiledExpr is a translated query expression. The scope is the one
// of the first query block; order terms of a combined statement resolve
// against it. compound marks selectors that carry set operations or an
// ordering suffix and cannot stand inline as operands.
type compiledExpr struct {
	sel      *sql.Selector
	scope    *blockScope
	root     *schema.Type
	fetches  []*Fetch
	compound bool
}

func (cx *compileCtx) queryExpr(qe *QueryExpr) (*compiledExpr, error) {
	first, err := cx.operandExpr(qe.First)
	if err != nil {
		return nil, err
	}
	if len(qe.Rest) == 0 {
		if qe.First.Order != nil {
			if err := cx.applyOrder(first, qe.First.Order); err != nil {
				return nil, err
			}
			first.compound = true
		}
		return first, nil
	}
	if len(first.fetches) > 0 {
		return nil, fmt.Errorf("eql: fetch joins are not allowed in set operations")
	}
	if qe.First.Order != nil {
		return nil, fmt.Errorf("eql: order by must follow the last operand of a set operation")
	}
	sel := first.sel
	if first.compound {
		// A compound first operand becomes a derived table so its set
		// operations and row limits stay grouped.
		sel = sql.Select().
			SetDialect(cx.dialect).
			From(sql.TableFromSelect(sel, cx.nextAlias()))
	}
	combined := &compiledExpr{sel: sel, scope: first.scope, root: first.root, compound: true}
	for i, clause := range qe.Rest {
		last := i == len(qe.Rest)-1
		op, err := cx.operandExpr(clause.Query)
		if err != nil {
			return nil, err
		}
		if len(op.fetches) > 0 {
			return nil, fmt.Errorf("eql: fetch joins are not allowed in set operations")
		}
		if combined.root != op.root {
			return nil, fmt.Errorf("eql: set operation operands select different things")
		}
		switch {
		case clause.Op == Union && clause.All:
			combined.sel.UnionAll(op.sel)
		case clause.Op == Union:
			combined.sel.Union(op.sel)
		case clause.Op == Intersect && clause.All:
			combined.sel.IntersectAll(op.sel)
		case clause.Op == Intersect:
			combined.sel.Intersect(op.sel)
		case clause.Op == Except && clause.All:
			combined.sel.ExceptAll(op.sel)
		default:
			combined.sel.Except(op.sel)
		}
		if clause.Query.Order != nil {
			if !last {
				return nil, fmt.Errorf("eql: order by must follow the last operand of a set operation")
			}
			// The ordering suffix of the last operand applies to the
			// combined result.
			if err := cx.applyOrder(combined, clause.Query.Order); err != nil {
				return nil, err
			}
		}
	}
	return combined, nil
}

// operandExpr compiles a query expression operand. Its ordering suffix
// is left to the caller, which knows whether the operand is last.
func (cx *compileCtx) operandExpr(oq *OrderedQuery) (*compiledExpr, error) {
	if oq.Paren != nil {
		return cx.queryExpr(oq.Paren)
	}
	sel, sc, root, fetches, err := cx.block(oq.Block)
	if err != nil {
		return nil, err
	}
	return &compiledExpr{sel: sel, scope: sc, root: root, fetches: fetches}, nil
}

func (cx *compileCtx) block(b *QueryBlock) (*sql.Selector, *blockScope, *schema.Type, []*Fetch, error) {
	sc := &blockScope{
		cx:      cx,
		sel:     sql.Select().SetDialect(cx.dialect),
		sources: make(map[string]*source),
		joined:  make(map[string]*source),
	}
	var fetches []*Fetch
	if b.From != nil {
		typ, ok := cx.registry.Lookup(b.From.Entity)
		if !ok {
			return nil, nil, nil, nil, fmt.Errorf("eql: unknown entity %q", b.From.Entity)
		}
		root := &source{tbl: sql.Table(typ.Table).As(cx.nextAlias()), typ: typ}
		sc.root = root
		alias := b.From.Alias
		if alias == "" {
			alias = b.From.Entity
		}
		sc.sources[alias] = root
		sc.sel.From(root.tbl)
		for _, j := range b.From.Joins {
			f, err := sc.addJoin(j)
			if err != nil {
				return nil, nil, nil, nil, err
			}
			if f != nil {
				fetches = append(fetches, f)
			}
		}
	}
	if b.Where != nil {
		p, err := sc.predicate(b.Where)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		sc.sel.Where(p)
	}
	for _, g := range b.GroupBy {
		expr, err := sc.render(g)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		sc.sel.GroupBy(expr)
	}
	if b.Having != nil {
		if len(b.GroupBy) == 0 {
			return nil, nil, nil, nil, fmt.Errorf("eql: having requires a group by clause")
		}
		p, err := sc.predicate(b.Having)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		sc.sel.Having(p)
	}
	root, err := sc.project(b.Select, fetches)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if root == nil && len(fetches) > 0 {
		return nil, nil, nil, nil, fmt.Errorf("eql: fetch joins require selecting the root entity")
	}
	return sc.sel, sc, root, fetches, nil
}

// addJoin compiles one join of the from clause. It returns a Fetch
// record for fetch joins.
func (sc *blockScope) addJoin(j *Join) (*Fetch, error) {
	parts := j.Path.Parts
	if len(parts) < 2 {
		return nil, fmt.Errorf("eql: join path %q must name an association", j.Path)
	}
	owner, ok := sc.sources[parts[0]]
	if !ok {
		return nil, fmt.Errorf("eql: unknown alias %q in join path", parts[0])
	}
	for _, step := range parts[1 : len(parts)-1] {
		var err error
		if owner, err = sc.implicitJoin(owner, step); err != nil {
			return nil, err
		}
	}
	name := parts[len(parts)-1]
	assoc := owner.typ.Assoc(name)
	if assoc == nil {
		return nil, fmt.Errorf("eql: entity %s has no association %q", owner.typ.Name, name)
	}
	if j.Fetch && owner != sc.root {
		return nil, fmt.Errorf("eql: only associations of the root entity can be fetch joined")
	}
	target, err := sc.join(owner, assoc, j.Left)
	if err != nil {
		return nil, err
	}
	if j.Alias != "" {
		if _, dup := sc.sources[j.Alias]; dup {
			return nil, fmt.Errorf("eql: duplicate alias %q", j.Alias)
		}
		sc.sources[j.Alias] = target
	}
	if j.Fetch {
		return &Fetch{Assoc: assoc, Target: target.typ}, nil
	}
	return nil, nil
}

// join adds a join on the given association and returns the joined
// source.
func (sc *blockScope) join(owner *source, assoc *schema.Association, left bool) (*source, error) {
	target, ok := sc.cx.registry.Lookup(assoc.Target)
	if !ok {
		return nil, fmt.Errorf("eql: association %q targets unknown entity %q", assoc.Name, assoc.Target)
	}
	tbl := sql.Table(target.Table).As(sc.cx.nextAlias())
	if left {
		sc.sel.LeftJoin(tbl)
	} else {
		sc.sel.Join(tbl)
	}
	sc.sel.On(owner.tbl.C(assoc.Column), tbl.C(target.ID.Name))
	return &source{tbl: tbl, typ: target}, nil
}

// implicitJoin joins through an association for a dotted path like
// "e.organizer.name", reusing an existing join for the same step.
func (sc *blockScope) implicitJoin(owner *source, name string) (*source, error) {
	assoc := owner.typ.Assoc(name)
	if assoc == nil {
		return nil, fmt.Errorf("eql: entity %s has no association %q", owner.typ.Name, name)
	}
	key := owner.tbl.C(assoc.Name)
	if src, ok := sc.joined[key]; ok {
		return src, nil
	}
	src, err := sc.join(owner, assoc, false)
	if err != nil {
		return nil, err
	}
	sc.joined[key] = src
	return src, nil
}

// resolve maps an attribute path to a qualified column. A bare alias
// resolves to the primary key, an association name to its foreign key
// column, and paths through associations add implicit inner joins.
func (sc *blockScope) resolve(p *Path) (string, error) {
	src, ok := sc.sources[p.Parts[0]]
	if !ok {
		return "", fmt.Errorf("eql: unknown alias %q", p.Parts[0])
	}
	parts := p.Parts[1:]
	for len(parts) > 1 {
		var err error
		if src, err = sc.implicitJoin(src, parts[0]); err != nil {
			return "", err
		}
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return src.tbl.C(src.typ.ID.Name), nil
	}
	if col := src.typ.Column(parts[0]); col != nil {
		return src.tbl.C(col.Name), nil
	}
	if assoc := src.typ.Assoc(parts[0]); assoc != nil {
		return src.tbl.C(assoc.Column), nil
	}
	return "", fmt.Errorf("eql: entity %s has no attribute %q", src.typ.Name, parts[0])
}

// project applies the select clause. It returns the selected entity
// type, or nil for a value projection.
func (sc *blockScope) project(clause *SelectClause, fetches []*Fetch) (*schema.Type, error) {
	entity := func(src *source) *schema.Type {
		for _, col := range src.typ.SelectColumns() {
			sc.sel.AppendSelect(src.tbl.C(col))
		}
		if src == sc.root {
			for _, f := range fetches {
				ftbl := sc.fetchTable(f)
				for _, col := range f.Target.SelectColumns() {
					sc.sel.AppendSelect(ftbl.C(col))
				}
			}
		}
		return src.typ
	}
	if clause == nil {
		if sc.root == nil {
			return nil, fmt.Errorf("eql: query needs a select clause or a from clause")
		}
		return entity(sc.root), nil
	}
	if clause.Distinct {
		sc.sel.Distinct()
	}
	if len(clause.Items) == 1 && !clause.Distinct {
		if p, ok := clause.Items[0].Expr.(*Path); ok && len(p.Parts) == 1 {
			if src, ok := sc.sources[p.Parts[0]]; ok {
				return entity(src), nil
			}
		}
	}
	for _, item := range clause.Items {
		expr, err := sc.render(item.Expr)
		if err != nil {
			return nil, err
		}
		sc.sel.AppendSelect(expr)
	}
	return nil, nil
}

// fetchTable finds the joined table of a fetch record by walking the
// scope. Fetch joins always carry an alias or are the only join on the
// association, so the lookup is by target type and association column.
func (sc *blockScope) fetchTable(f *Fetch) *sql.SelectTable {
	for _, src := range sc.sources {
		if src.typ == f.Target && src != sc.root {
			return src.tbl
		}
	}
	for _, src := range sc.joined {
		if src.typ == f.Target {
			return src.tbl
		}
	}
	return sc.root.tbl
}

// applyOrder applies an ordering suffix. Combined set operation results
// are ordered by projection ordinal, resolved against the first block;
// PostgreSQL admits only output names or ordinals after a set operation.
func (cx *compileCtx) applyOrder(ce *compiledExpr, ord *QueryOrder) error {
	for _, item := range ord.Items {
		term := sql.OrderTerm{Desc: item.Desc, Nulls: strings.ToUpper(item.Nulls)}
		if ce.compound {
			n, err := cx.setOrdinal(ce.scope, item.Expr)
			if err != nil {
				return err
			}
			term.Expr = strconv.Itoa(n)
		} else {
			expr, err := ce.scope.render(item.Expr)
			if err != nil {
				return err
			}
			term.Expr = expr
		}
		ce.sel.OrderExpr(term)
	}
	if ord.Limit != nil {
		ce.sel.Limit(int(*ord.Limit))
	}
	if ord.Offset != nil {
		ce.sel.Offset(int(*ord.Offset))
	}
	if f := ord.Fetch; f != nil {
		if f.Percent {
			return fmt.Errorf("eql: percent fetch is not supported")
		}
		if f.WithTies && cx.dialect != dialect.Postgres {
			return fmt.Errorf("eql: fetch with ties requires the postgres dialect")
		}
		ce.sel.Fetch(int(f.Count), f.WithTies)
	}
	return nil
}

// setOrdinal maps an order term of a combined statement to the ordinal
// of the matching projection column of the first operand.
func (cx *compileCtx) setOrdinal(sc *blockScope, e Expr) (int, error) {
	want, err := sc.render(e)
	if err != nil {
		return 0, err
	}
	for i, col := range sc.sel.SelectedColumns() {
		b := sql.NewBuilder(cx.dialect)
		b.Ident(col)
		if b.String() == want {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("eql: order by of a set operation must name a selected attribute")
}

// predicate compiles a boolean expression into a lazily rendered
// condition. Path resolution and parameter binding happen now; only
// the rendering is deferred so placeholder numbering stays correct.
func (sc *blockScope) predicate(e Expr) (*sql.Predicate, error) {
	switch e := e.(type) {
	case *Binary:
		switch e.Op {
		case "and", "or":
			left, err := sc.predicate(e.Left)
			if err != nil {
				return nil, err
			}
			right, err := sc.predicate(e.Right)
			if err != nil {
				return nil, err
			}
			if e.Op == "and" {
				return sql.And(left, right), nil
			}
			return sql.Or(left, right), nil
		case "=", "<>", "<", "<=", ">", ">=":
			left, err := sc.operand(e.Left)
			if err != nil {
				return nil, err
			}
			right, err := sc.operand(e.Right)
			if err != nil {
				return nil, err
			}
			op := e.Op
			return sql.P().Append(func(b *sql.Builder) {
				left(b)
				b.Pad().WriteString(op).Pad()
				right(b)
			}), nil
		}
	case *Not:
		inner, err := sc.predicate(e.Expr)
		if err != nil {
			return nil, err
		}
		return sql.Not(inner), nil
	case *Paren:
		inner, err := sc.predicate(e.Expr)
		if err != nil {
			return nil, err
		}
		return sql.P().Append(func(b *sql.Builder) {
			b.WriteByte('(')
			inner.Query(b)
			b.WriteByte(')')
		}), nil
	case *IsNull:
		inner, err := sc.operand(e.Expr)
		if err != nil {
			return nil, err
		}
		not := e.Not
		return sql.P().Append(func(b *sql.Builder) {
			inner(b)
			if not {
				b.WriteString(" IS NOT NULL")
			} else {
				b.WriteString(" IS NULL")
			}
		}), nil
	case *InList:
		inner, err := sc.operand(e.Expr)
		if err != nil {
			return nil, err
		}
		items := make([]func(*sql.Builder), len(e.List))
		for i, item := range e.List {
			if items[i], err = sc.operand(item); err != nil {
				return nil, err
			}
		}
		not := e.Not
		return sql.P().Append(func(b *sql.Builder) {
			inner(b)
			if not {
				b.WriteString(" NOT IN (")
			} else {
				b.WriteString(" IN (")
			}
			for i, item := range items {
				if i > 0 {
					b.Comma()
				}
				item(b)
			}
			b.WriteByte(')')
		}), nil
	case *LikeExpr:
		inner, err := sc.operand(e.Expr)
		if err != nil {
			return nil, err
		}
		pattern, err := sc.operand(e.Pattern)
		if err != nil {
			return nil, err
		}
		var escape func(*sql.Builder)
		if e.Escape != nil {
			if escape, err = sc.operand(e.Escape); err != nil {
				return nil, err
			}
		}
		not := e.Not
		return sql.P().Append(func(b *sql.Builder) {
			inner(b)
			if not {
				b.WriteString(" NOT LIKE ")
			} else {
				b.WriteString(" LIKE ")
			}
			pattern(b)
			if escape != nil {
				b.WriteString(" ESCAPE ")
				escape(b)
			}
		}), nil
	case *BetweenExpr:
		inner, err := sc.operand(e.Expr)
		if err != nil {
			return nil, err
		}
		lo, err := sc.operand(e.Lo)
		if err != nil {
			return nil, err
		}
		hi, err := sc.operand(e.Hi)
		if err != nil {
			return nil, err
		}
		not := e.Not
		return sql.P().Append(func(b *sql.Builder) {
			inner(b)
			if not {
				b.WriteString(" NOT BETWEEN ")
			} else {
				b.WriteString(" BETWEEN ")
			}
			lo(b)
			b.WriteString(" AND ")
			hi(b)
		}), nil
	}
	// Plain value used as a condition, such as a boolean column or
	// literal true.
	inner, err := sc.operand(e)
	if err != nil {
		return nil, err
	}
	return sql.P().Append(inner), nil
}

// operand compiles a value expression into a deferred writer.
func (sc *blockScope) operand(e Expr) (func(*sql.Builder), error) {
	switch e := e.(type) {
	case *Path:
		col, err := sc.resolve(e)
		if err != nil {
			return nil, err
		}
		return func(b *sql.Builder) { b.Ident(col) }, nil
	case *Literal:
		if e.Value == nil {
			return func(b *sql.Builder) { b.WriteString("NULL") }, nil
		}
		v := e.Value
		return func(b *sql.Builder) { b.Arg(v) }, nil
	case *NamedParam, *PositionalParam:
		v, err := sc.cx.paramValue(e)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return func(b *sql.Builder) { b.WriteString("NULL") }, nil
		}
		return func(b *sql.Builder) { b.Arg(v) }, nil
	case *Binary:
		switch e.Op {
		case "+", "-", "*", "/":
			left, err := sc.operand(e.Left)
			if err != nil {
				return nil, err
			}
			right, err := sc.operand(e.Right)
			if err != nil {
				return nil, err
			}
			op := e.Op
			return func(b *sql.Builder) {
				left(b)
				b.Pad().WriteString(op).Pad()
				right(b)
			}, nil
		}
	case *Neg:
		inner, err := sc.operand(e.Expr)
		if err != nil {
			return nil, err
		}
		return func(b *sql.Builder) {
			b.WriteByte('-')
			inner(b)
		}, nil
	case *Paren:
		inner, err := sc.operand(e.Expr)
		if err != nil {
			return nil, err
		}
		return func(b *sql.Builder) {
			b.WriteByte('(')
			inner(b)
			b.WriteByte(')')
		}, nil
	case *Call:
		fns := make([]func(*sql.Builder), len(e.Args))
		for i, a := range e.Args {
			var err error
			if fns[i], err = sc.operand(a); err != nil {
				return nil, err
			}
		}
		name := strings.ToUpper(e.Name)
		star, distinct := e.Star, e.Distinct
		return func(b *sql.Builder) {
			b.WriteString(name).WriteByte('(')
			switch {
			case star:
				b.WriteByte('*')
			default:
				if distinct {
					b.WriteString("DISTINCT ")
				}
				for i, f := range fns {
					if i > 0 {
						b.Comma()
					}
					f(b)
				}
			}
			b.WriteByte(')')
		}, nil
	}
	// Boolean tests nested inside value positions render as conditions.
	p, err := sc.predicate(e)
	if err != nil {
		return nil, err
	}
	return p.Query, nil
}

// paramValue looks up a bound parameter and flattens registered entity
// instances to their primary key. A nil value, including a typed nil
// pointer, stands for SQL NULL.
func (cx *compileCtx) paramValue(e Expr) (any, error) {
	var v any
	var ok bool
	switch e := e.(type) {
	case *NamedParam:
		v, ok = cx.params.Named[e.Name]
		if !ok {
			return nil, fmt.Errorf("eql: parameter :%s is not bound", e.Name)
		}
	case *PositionalParam:
		v, ok = cx.params.Positional[e.N]
		if !ok {
			return nil, fmt.Errorf("eql: parameter ?%d is not bound", e.N)
		}
	}
	if v == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	if t, ok := cx.registry.TypeOf(v); ok {
		return t.ID.Getter(v), nil
	}
	return v, nil
}

// render eagerly renders an expression for the select, group by and
// order by clauses, where parameters are not permitted.
func (sc *blockScope) render(e Expr) (string, error) {
	b := sql.NewBuilder(sc.cx.dialect)
	if err := sc.renderInto(b, e); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (sc *blockScope) renderInto(b *sql.Builder, e Expr) error {
	switch e := e.(type) {
	case *Path:
		col, err := sc.resolve(e)
		if err != nil {
			return err
		}
		b.Ident(col)
		return nil
	case *Literal:
		switch v := e.Value.(type) {
		case nil:
			b.WriteString("NULL")
		case string:
			b.WriteString("'" + strings.ReplaceAll(v, "'", "''") + "'")
		case int64:
			b.WriteString(strconv.FormatInt(v, 10))
		case float64:
			b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			if v {
				b.WriteString("TRUE")
			} else {
				b.WriteString("FALSE")
			}
		}
		return nil
	case *NamedParam, *PositionalParam:
		return fmt.Errorf("eql: parameters are not allowed in select, group by or order by clauses")
	case *Binary:
		if err := sc.renderInto(b, e.Left); err != nil {
			return err
		}
		b.Pad().WriteString(e.Op).Pad()
		return sc.renderInto(b, e.Right)
	case *Neg:
		b.WriteByte('-')
		return sc.renderInto(b, e.Expr)
	case *Paren:
		b.WriteByte('(')
		if err := sc.renderInto(b, e.Expr); err != nil {
			return err
		}
		b.WriteByte(')')
		return nil
	case *Call:
		b.WriteString(strings.ToUpper(e.Name)).WriteByte('(')
		switch {
		case e.Star:
			b.WriteByte('*')
		default:
			if e.Distinct {
				b.WriteString("DISTINCT ")
			}
			for i, a := range e.Args {
				if i > 0 {
					b.Comma()
				}
				if err := sc.renderInto(b, a); err != nil {
					return err
				}
			}
		}
		b.WriteByte(')')
		return nil
	}
	return fmt.Errorf("eql: unsupported expression %s in this clause", e)
}
