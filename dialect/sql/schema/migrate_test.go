package schema

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/fcjm/hibernate-orm/dialect"
)

func TestMigrateCreateSQLite(t *testing.T) {
	db, err := sql.Open("sqlite", "file:migrate_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Create(ctx, db, dialect.SQLite, registryTypes(t)))

	var n int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('events', 'organizers')").Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// The generated key column aliases the rowid.
	res, err := db.Exec("INSERT INTO organizers (name) VALUES ('acme')")
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)

	_, err = db.Exec("INSERT INTO events (name, organizer_id) VALUES ('launch', ?)", id)
	require.NoError(t, err)

	// A second run is a no-op and keeps the data.
	require.NoError(t, Create(ctx, db, dialect.SQLite, registryTypes(t)))
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestNewMigrateUnsupportedDialect(t *testing.T) {
	db, err := sql.Open("sqlite", "file:migrate_unsupported?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()
	_, err = NewMigrate(db, "oracle")
	require.ErrorContains(t, err, "unsupported dialect")
}
