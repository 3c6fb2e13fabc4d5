// Package eql implements the entity query language: an object-level
// select statement over registered entity metadata, translated to
// dialect-specific SQL.
//
// A statement is a query expression, optionally combined with set
// operators, each operand being a query block whose select clause may
// come first or last:
//
//	from Event e where e.organizer is null order by e.id limit 10
//	select e.name, count(e.id) from Event e group by e.name
//
// Parse produces the syntax tree and Compiler translates it against a
// schema.Registry:
//
//	c := eql.NewCompiler(reg, dialect.SQLite)
//	compiled, err := c.CompileString(
//	    "from Event e where e.organizer = :organizer",
//	    eql.Params{Named: map[string]any{"organizer": org}},
//	)
//	query, args := compiled.Selector.Query()
//
// Parameters may be bound to registered entity instances directly; an
// entity flattens to its primary key and a nil entity binds SQL NULL.
package eql
