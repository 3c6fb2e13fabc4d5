// Package sql provides the SQL statement builders and the
// database/sql-backed driver implementation.
//
// The Selector builder covers the full select-statement surface of the
// entity query language: projection, sources and joins, conditions,
// grouping, set operations (union/intersect/except) and the ordering
// suffix (order by, limit, offset, fetch). The compiled query language
// targets this builder, and it can also be used directly:
//
//	s := sql.Select("t0.id", "t0.name").
//	    From(sql.Table("events").As("t0")).
//	    Where(sql.EQ("t0.name", "launch")).
//	    OrderBy("t0.id").
//	    Limit(10)
//	query, args := s.SetDialect(dialect.Postgres).Query()
//
// The Driver type adapts a database/sql connection pool to the
// dialect.Driver interface, and StatsDriver layers query statistics
// and slow-query logging on top of any driver.
package sql
