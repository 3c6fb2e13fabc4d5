package eql

import (
	stdsql "database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fcjm/hibernate-orm/dialect"
	"github.com/fcjm/hibernate-orm/schema"
)

type Organizer struct {
	ID   int64
	Name string
}

type Event struct {
	ID          int64
	Name        string
	Organizer   *Organizer
	OrganizerID stdsql.NullInt64
}

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, reg.Register(
		&schema.Type{
			Name:  "Organizer",
			Table: "ORGANIZER_TABLE",
			New:   func() any { return &Organizer{} },
			ID: &schema.Column{
				Name:   "id",
				Type:   schema.TypeInt64,
				Getter: func(e any) any { return e.(*Organizer).ID },
				Scan:   func(e any) any { return &e.(*Organizer).ID },
			},
			Columns: []*schema.Column{{
				Name:   "name",
				Type:   schema.TypeString,
				Getter: func(e any) any { return e.(*Organizer).Name },
				Scan:   func(e any) any { return &e.(*Organizer).Name },
			}},
		},
		&schema.Type{
			Name:  "Event",
			Table: "EVENT_TABLE",
			New:   func() any { return &Event{} },
			ID: &schema.Column{
				Name:   "id",
				Type:   schema.TypeInt64,
				Getter: func(e any) any { return e.(*Event).ID },
				Scan:   func(e any) any { return &e.(*Event).ID },
			},
			Columns: []*schema.Column{{
				Name:   "name",
				Type:   schema.TypeString,
				Getter: func(e any) any { return e.(*Event).Name },
				Scan:   func(e any) any { return &e.(*Event).Name },
			}},
			Assocs: []*schema.Association{{
				Name:     "organizer",
				Target:   "Organizer",
				Column:   "organizer_id",
				Nullable: true,
				FK:       func(e any) any { return &e.(*Event).OrganizerID },
				FKValue:  func(e any) any { return e.(*Event).OrganizerID },
				Ref: func(e any) any {
					if ev := e.(*Event); ev.Organizer != nil {
						return ev.Organizer
					}
					return nil
				},
				Set: func(e, target any) { e.(*Event).Organizer = target.(*Organizer) },
			}},
		},
	))
	return reg
}

func compile(t *testing.T, d, query string, params Params) (*Compiled, string, []any) {
	t.Helper()
	c := NewCompiler(testRegistry(t), d)
	compiled, err := c.CompileString(query, params)
	require.NoError(t, err)
	sqlStr, args := compiled.Selector.Query()
	require.NoError(t, compiled.Selector.Err())
	return compiled, sqlStr, args
}

func TestCompileEntityQuery(t *testing.T) {
	compiled, sqlStr, args := compile(t, dialect.SQLite,
		"from Event e where e.name = 'party'", Params{})
	assert.Equal(t,
		`SELECT "t0"."id", "t0"."name", "t0"."organizer_id" FROM "EVENT_TABLE" AS "t0" WHERE "t0"."name" = ?`,
		sqlStr)
	assert.Equal(t, []any{"party"}, args)
	require.NotNil(t, compiled.Root)
	assert.Equal(t, "Event", compiled.Root.Name)
	assert.Empty(t, compiled.Fetches)
}

func TestCompileSelectAlias(t *testing.T) {
	compiled, sqlStr, _ := compile(t, dialect.SQLite, "select e from Event e", Params{})
	assert.Equal(t,
		`SELECT "t0"."id", "t0"."name", "t0"."organizer_id" FROM "EVENT_TABLE" AS "t0"`,
		sqlStr)
	assert.Equal(t, "Event", compiled.Root.Name)
}

func TestCompileEntityParameter(t *testing.T) {
	query := "from Event e where (:organizer is null and e.organizer is null or e.organizer = :organizer)"

	t.Run("bound entity", func(t *testing.T) {
		org := &Organizer{ID: 7, Name: "acme"}
		_, sqlStr, args := compile(t, dialect.SQLite, query,
			Params{Named: map[string]any{"organizer": org}})
		assert.Equal(t,
			`SELECT "t0"."id", "t0"."name", "t0"."organizer_id" FROM "EVENT_TABLE" AS "t0" `+
				`WHERE (((? IS NULL AND "t0"."organizer_id" IS NULL) OR "t0"."organizer_id" = ?))`,
			sqlStr)
		assert.Equal(t, []any{int64(7), int64(7)}, args)
	})

	t.Run("nil entity", func(t *testing.T) {
		var org *Organizer
		_, sqlStr, args := compile(t, dialect.SQLite, query,
			Params{Named: map[string]any{"organizer": org}})
		assert.Equal(t,
			`SELECT "t0"."id", "t0"."name", "t0"."organizer_id" FROM "EVENT_TABLE" AS "t0" `+
				`WHERE (((NULL IS NULL AND "t0"."organizer_id" IS NULL) OR "t0"."organizer_id" = NULL))`,
			sqlStr)
		assert.Empty(t, args)
	})

	t.Run("untyped nil", func(t *testing.T) {
		_, sqlStr, args := compile(t, dialect.SQLite, query,
			Params{Named: map[string]any{"organizer": nil}})
		assert.Contains(t, sqlStr, "NULL IS NULL")
		assert.Empty(t, args)
	})
}

func TestCompileExplicitJoin(t *testing.T) {
	_, sqlStr, args := compile(t, dialect.SQLite,
		"from Event e join e.organizer o where o.name = 'acme'", Params{})
	assert.Equal(t,
		`SELECT "t0"."id", "t0"."name", "t0"."organizer_id" FROM "EVENT_TABLE" AS "t0" `+
			`JOIN "ORGANIZER_TABLE" AS "t1" ON "t0"."organizer_id" = "t1"."id" WHERE "t1"."name" = ?`,
		sqlStr)
	assert.Equal(t, []any{"acme"}, args)
}

func TestCompileImplicitJoin(t *testing.T) {
	_, sqlStr, _ := compile(t, dialect.SQLite,
		"from Event e where e.organizer.name = 'acme' and e.organizer.name <> 'other'", Params{})
	// Both path steps reuse a single join.
	assert.Contains(t, sqlStr, `JOIN "ORGANIZER_TABLE" AS "t1"`)
	assert.NotContains(t, sqlStr, `"t2"`)
	assert.Contains(t, sqlStr, `"t1"."name" = ?`)
}

func TestCompileFetchJoin(t *testing.T) {
	compiled, sqlStr, _ := compile(t, dialect.SQLite,
		"from Event e left join fetch e.organizer o", Params{})
	assert.Equal(t,
		`SELECT "t0"."id", "t0"."name", "t0"."organizer_id", "t1"."id", "t1"."name" `+
			`FROM "EVENT_TABLE" AS "t0" LEFT JOIN "ORGANIZER_TABLE" AS "t1" ON "t0"."organizer_id" = "t1"."id"`,
		sqlStr)
	require.Len(t, compiled.Fetches, 1)
	assert.Equal(t, "organizer", compiled.Fetches[0].Assoc.Name)
	assert.Equal(t, "Organizer", compiled.Fetches[0].Target.Name)
}

func TestCompileProjection(t *testing.T) {
	compiled, sqlStr, args := compile(t, dialect.SQLite,
		"select e.name, count(e.id) from Event e group by e.name having count(e.id) > 1", Params{})
	assert.Equal(t,
		`SELECT "t0"."name", COUNT("t0"."id") FROM "EVENT_TABLE" AS "t0" `+
			`GROUP BY "t0"."name" HAVING COUNT("t0"."id") > ?`,
		sqlStr)
	assert.Equal(t, []any{int64(1)}, args)
	assert.Nil(t, compiled.Root)
}

func TestCompileDistinct(t *testing.T) {
	_, sqlStr, _ := compile(t, dialect.SQLite, "select distinct e.name from Event e", Params{})
	assert.Equal(t, `SELECT DISTINCT "t0"."name" FROM "EVENT_TABLE" AS "t0"`, sqlStr)
}

func TestCompileOrderLimitOffset(t *testing.T) {
	_, sqlStr, _ := compile(t, dialect.SQLite,
		"from Event e order by e.name desc nulls last, e.id limit 5 offset 2", Params{})
	assert.Contains(t, sqlStr, `ORDER BY "t0"."name" DESC NULLS LAST, "t0"."id" LIMIT 5 OFFSET 2`)
}

func TestCompileFetchClause(t *testing.T) {
	_, sqlStr, _ := compile(t, dialect.SQLite,
		"from Event e order by e.id fetch first 3 rows only", Params{})
	assert.Contains(t, sqlStr, "LIMIT 3")

	_, sqlStr, _ = compile(t, dialect.Postgres,
		"from Event e order by e.id fetch first 3 rows with ties", Params{})
	assert.Contains(t, sqlStr, "FETCH FIRST 3 ROWS WITH TIES")

	c := NewCompiler(testRegistry(t), dialect.SQLite)
	_, err := c.CompileString("from Event e order by e.id fetch first 3 rows with ties", Params{})
	require.ErrorContains(t, err, "with ties")

	_, err = c.CompileString("from Event e order by e.id fetch first 10 percent rows only", Params{})
	require.ErrorContains(t, err, "percent")
}

func TestCompileSetOperation(t *testing.T) {
	_, sqlStr, args := compile(t, dialect.Postgres,
		"from Event e where e.id = 1 union all from Event e where e.id = 2", Params{})
	assert.Equal(t,
		`SELECT "t0"."id", "t0"."name", "t0"."organizer_id" FROM "EVENT_TABLE" AS "t0" WHERE "t0"."id" = $1 `+
			`UNION ALL SELECT "t1"."id", "t1"."name", "t1"."organizer_id" FROM "EVENT_TABLE" AS "t1" WHERE "t1"."id" = $2`,
		sqlStr)
	assert.Equal(t, []any{int64(1), int64(2)}, args)
}

func TestCompileSetOperandGrouping(t *testing.T) {
	_, sqlStr, _ := compile(t, dialect.SQLite,
		"from Event a union (from Event b except from Event c)", Params{})
	assert.Equal(t,
		`SELECT "t0"."id", "t0"."name", "t0"."organizer_id" FROM "EVENT_TABLE" AS "t0" `+
			`UNION SELECT * FROM (`+
			`SELECT "t1"."id", "t1"."name", "t1"."organizer_id" FROM "EVENT_TABLE" AS "t1" `+
			`EXCEPT SELECT "t2"."id", "t2"."name", "t2"."organizer_id" FROM "EVENT_TABLE" AS "t2") AS "s0"`,
		sqlStr)
}

func TestCompileSetOperandWindow(t *testing.T) {
	// The row limit of a parenthesized operand caps that operand only,
	// not the combined result.
	_, sqlStr, _ := compile(t, dialect.SQLite,
		"(from Event e order by e.name limit 2) union all from Event f", Params{})
	assert.Equal(t,
		`SELECT * FROM (`+
			`SELECT "t0"."id", "t0"."name", "t0"."organizer_id" FROM "EVENT_TABLE" AS "t0" `+
			`ORDER BY "t0"."name" LIMIT 2) AS "t1" `+
			`UNION ALL SELECT "t2"."id", "t2"."name", "t2"."organizer_id" FROM "EVENT_TABLE" AS "t2"`,
		sqlStr)
}

func TestCompileParenOrder(t *testing.T) {
	_, sqlStr, _ := compile(t, dialect.SQLite,
		"(from Event e union from Event f) order by e.name", Params{})
	assert.Equal(t,
		`SELECT "t0"."id", "t0"."name", "t0"."organizer_id" FROM "EVENT_TABLE" AS "t0" `+
			`UNION SELECT "t1"."id", "t1"."name", "t1"."organizer_id" FROM "EVENT_TABLE" AS "t1" `+
			`ORDER BY 2`,
		sqlStr)
}

func TestCompileSetOperationOrdinalOrder(t *testing.T) {
	// Combined results are ordered by projection ordinal; PostgreSQL
	// rejects qualified column names after a set operation.
	_, sqlStr, _ := compile(t, dialect.Postgres,
		"from Event e union from Event f order by e.name desc", Params{})
	assert.Contains(t, sqlStr, " ORDER BY 2 DESC")
	assert.NotContains(t, sqlStr, `ORDER BY "t0"`)

	c := NewCompiler(testRegistry(t), dialect.Postgres)
	_, err := c.CompileString(
		"select e.name from Event e union select f.name from Event f order by e.id", Params{})
	require.ErrorContains(t, err, "selected attribute")
}

func TestCompilePositionalParameter(t *testing.T) {
	_, sqlStr, args := compile(t, dialect.SQLite,
		"from Event e where e.id = ?1", Params{Positional: map[int]any{1: int64(5)}})
	assert.Contains(t, sqlStr, `"t0"."id" = ?`)
	assert.Equal(t, []any{int64(5)}, args)
}

func TestCompileErrors(t *testing.T) {
	c := NewCompiler(testRegistry(t), dialect.SQLite)
	for _, tt := range []struct {
		query string
		want  string
	}{
		{"from Meeting m", "unknown entity"},
		{"from Event e where x.name = 'a'", "unknown alias"},
		{"from Event e where e.missing = 'a'", "no attribute"},
		{"from Event e join e.missing o", "no association"},
		{"from Event e where e.id = :id", "not bound"},
		{"from Event e where e.id = ?2", "not bound"},
		{"from Event e having count(e.id) > 1", "group by"},
		{"select e.name from Event e union from Event e", "different things"},
		{"from Event e join fetch e.organizer union from Event e", "set operations"},
		{"from Event e order by e.id union from Event e", "last operand"},
		{"select :p from Event e", "not allowed"},
		{"select o.name from Event e join fetch e.organizer o", "root entity"},
	} {
		_, err := c.CompileString(tt.query, Params{})
		require.ErrorContains(t, err, tt.want, tt.query)
	}
}

func TestCompileLimitOverridesFetch(t *testing.T) {
	compiled, _, _ := compile(t, dialect.SQLite,
		"from Event e order by e.id fetch first 9 rows only", Params{})
	compiled.Selector.Limit(1)
	sqlStr, _ := compiled.Selector.Query()
	assert.Contains(t, sqlStr, "LIMIT 1")
	assert.NotContains(t, sqlStr, "LIMIT 9")
}
