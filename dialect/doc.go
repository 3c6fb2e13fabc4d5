// Package dialect provides the database dialect abstraction used by
// the rest of the framework.
//
// It defines the interfaces and constants for database-specific
// operations, allowing the same entity queries to run on PostgreSQL,
// MySQL/MariaDB and SQLite.
//
// # Dialect Constants
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Driver Interface
//
// The Driver interface wraps all database operations:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The Tx interface extends ExecQuerier with Commit and Rollback, and
// the Debug wrapper logs every outgoing operation through log/slog.
//
// # Usage
//
// Opening a database connection:
//
//	import (
//	    "github.com/fcjm/hibernate-orm/dialect"
//	    "github.com/fcjm/hibernate-orm/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Sub-packages
//
//   - dialect/sql: SQL statement builders and the database/sql driver
//   - dialect/sql/schema: schema creation and diff validation
package dialect
