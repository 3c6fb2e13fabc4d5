package orm

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/fcjm/hibernate-orm/dialect"
	entschema "github.com/fcjm/hibernate-orm/schema"
)

type Organizer struct {
	ID   int64
	Name string
}

type Event struct {
	ID          int64
	Name        string
	Ref         uuid.UUID
	Organizer   *Organizer
	OrganizerID stdsql.NullInt64
}

func clientRegistry(t *testing.T) *entschema.Registry {
	t.Helper()
	reg := entschema.NewRegistry()
	require.NoError(t, reg.Register(
		&entschema.Type{
			Name:  "Organizer",
			Table: "ORGANIZER_TABLE",
			New:   func() any { return &Organizer{} },
			ID: &entschema.Column{
				Name:      "id",
				Type:      entschema.TypeInt64,
				Generator: entschema.Database(),
				Getter:    func(e any) any { return e.(*Organizer).ID },
				Scan:      func(e any) any { return &e.(*Organizer).ID },
			},
			Columns: []*entschema.Column{{
				Name:   "name",
				Type:   entschema.TypeString,
				Unique: true,
				Size:   100,
				Getter: func(e any) any { return e.(*Organizer).Name },
				Scan:   func(e any) any { return &e.(*Organizer).Name },
			}},
		},
		&entschema.Type{
			Name:  "Event",
			Table: "EVENT_TABLE",
			New:   func() any { return &Event{} },
			ID: &entschema.Column{
				Name:      "id",
				Type:      entschema.TypeInt64,
				Generator: entschema.Database(),
				Getter:    func(e any) any { return e.(*Event).ID },
				Scan:      func(e any) any { return &e.(*Event).ID },
			},
			Columns: []*entschema.Column{
				{
					Name:   "name",
					Type:   entschema.TypeString,
					Getter: func(e any) any { return e.(*Event).Name },
					Scan:   func(e any) any { return &e.(*Event).Name },
				},
				{
					Name:      "ref",
					Type:      entschema.TypeUUID,
					Unique:    true,
					Generator: entschema.UUID(),
					Getter:    func(e any) any { return e.(*Event).Ref },
					Scan:      func(e any) any { return &e.(*Event).Ref },
				},
			},
			Assocs: []*entschema.Association{{
				Name:     "organizer",
				Target:   "Organizer",
				Column:   "organizer_id",
				Nullable: true,
				FK:       func(e any) any { return &e.(*Event).OrganizerID },
				FKValue:  func(e any) any { return e.(*Event).OrganizerID },
				Ref: func(e any) any {
					if o := e.(*Event).Organizer; o != nil {
						return o
					}
					return nil
				},
				Set: func(e, target any) { e.(*Event).Organizer = target.(*Organizer) },
			}},
		},
	))
	return reg
}

// testClient opens a client over an in-memory database and creates the
// schema. A single connection keeps the shared memory database alive
// for the duration of the test.
func testClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	cfg := &Config{
		Dialect: dialect.SQLite,
		DSN:     fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
		Pool:    PoolConfig{MaxOpenConns: 1},
	}
	client, err := OpenConfig(cfg, clientRegistry(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.CreateSchema(context.Background()))
	return client
}

func persist(t *testing.T, c *Client, entities ...any) {
	t.Helper()
	for _, e := range entities {
		require.NoError(t, c.Persist(context.Background(), e))
	}
}

func TestPersistAndGet(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	org := &Organizer{Name: "acme"}
	persist(t, client, org)
	assert.EqualValues(t, 1, org.ID)

	ev := &Event{Name: "launch", Organizer: org}
	persist(t, client, ev)
	assert.NotZero(t, ev.ID)
	assert.NotEqual(t, uuid.Nil, ev.Ref)

	got, err := client.Get(ctx, "Event", ev.ID)
	require.NoError(t, err)
	loaded := got.(*Event)
	assert.Equal(t, ev.ID, loaded.ID)
	assert.Equal(t, "launch", loaded.Name)
	assert.Equal(t, ev.Ref, loaded.Ref)
	require.True(t, loaded.OrganizerID.Valid)
	assert.Equal(t, org.ID, loaded.OrganizerID.Int64)
	// Get loads the row only; associations require a fetch join.
	assert.Nil(t, loaded.Organizer)

	_, err = client.Get(ctx, "Event", int64(99))
	require.True(t, IsNotFound(err))
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
	assert.Equal(t, "Event", nfe.Label())
	assert.EqualValues(t, 99, nfe.ID())

	_, err = client.Get(ctx, "Nope", int64(1))
	require.ErrorContains(t, err, `unknown entity "Nope"`)
}

// TestUniqueResultEntityParameter covers the query shape where an
// optional association is matched against a parameter that may be a
// whole entity or nil. A nil binding must compare as SQL NULL, and a
// bound entity must compare by its id.
func TestUniqueResultEntityParameter(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	org := &Organizer{Name: "acme"}
	persist(t, client, org)
	persist(t, client,
		&Event{Name: "launch", Organizer: org},
		&Event{Name: "meetup"},
	)

	const text = "from Event e where (:organizer is null and e.organizer is null or e.organizer = :organizer)"

	got, err := client.Query(text).
		SetParameter("organizer", nil).
		MaxResults(1).
		UniqueResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, "meetup", got.(*Event).Name)
	assert.False(t, got.(*Event).OrganizerID.Valid)

	got, err = client.Query(text).
		SetParameter("organizer", org).
		MaxResults(1).
		UniqueResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, "launch", got.(*Event).Name)
	assert.Equal(t, org.ID, got.(*Event).OrganizerID.Int64)

	// A typed nil pointer binds the same way as an untyped nil.
	var none *Organizer
	got, err = client.Query(text).
		SetParameter("organizer", none).
		MaxResults(1).
		UniqueResult(ctx)
	require.NoError(t, err)
	assert.Equal(t, "meetup", got.(*Event).Name)
}

func TestUniqueResultErrors(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	_, err := client.Query("from Event e").UniqueResult(ctx)
	require.True(t, IsNotFound(err))

	persist(t, client, &Event{Name: "a"}, &Event{Name: "b"})
	_, err = client.Query("from Event e").UniqueResult(ctx)
	require.True(t, IsNotSingular(err))
	var nse *NotSingularError
	require.ErrorAs(t, err, &nse)
	assert.Equal(t, 2, nse.Count())
}

func TestListOrderAndWindow(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)
	persist(t, client, &Event{Name: "a"}, &Event{Name: "b"}, &Event{Name: "c"})

	names := func(ents []any) []string {
		out := make([]string, len(ents))
		for i, e := range ents {
			out[i] = e.(*Event).Name
		}
		return out
	}

	ents, err := client.Query("from Event e order by e.name").List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(ents))

	ents, err = client.Query("from Event e order by e.name").
		FirstResult(1).
		MaxResults(2).
		List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, names(ents))

	// MaxResults overrides a textual fetch clause.
	ents, err = client.Query("from Event e order by e.name fetch first 1 rows only").
		MaxResults(3).
		List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(ents))
}

func TestListJoinFetch(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	org := &Organizer{Name: "acme"}
	persist(t, client, org)
	persist(t, client,
		&Event{Name: "launch", Organizer: org},
		&Event{Name: "meetup"},
	)

	ents, err := client.Query("from Event e left join fetch e.organizer o order by e.name").List(ctx)
	require.NoError(t, err)
	require.Len(t, ents, 2)

	launch := ents[0].(*Event)
	require.NotNil(t, launch.Organizer)
	assert.Equal(t, "acme", launch.Organizer.Name)
	assert.Equal(t, org.ID, launch.Organizer.ID)

	meetup := ents[1].(*Event)
	assert.Nil(t, meetup.Organizer)
}

func TestValuesAndInt64(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)
	persist(t, client, &Event{Name: "a"}, &Event{Name: "b"}, &Event{Name: "c"})

	rows, err := client.Query("select e.name from Event e order by e.name").Values(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.EqualValues(t, "a", rows[0][0])
	assert.EqualValues(t, "c", rows[2][0])

	n, err := client.Query("select count(e) from Event e").Int64(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = client.Query("select count(e) from Event e where e.name <> :skip").
		SetParameter("skip", "b").
		Int64(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = client.Query("select e.name from Event e").List(ctx)
	require.ErrorContains(t, err, "use Values")
}

func TestCacheableValues(t *testing.T) {
	ctx := context.Background()
	client := testClient(t, WithCache(NewMemoryCache(), 0))
	persist(t, client, &Event{Name: "a"}, &Event{Name: "b"})

	const text = "select count(e) from Event e"
	n, err := client.Query(text).Cacheable().Int64(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = client.db.Exec("DELETE FROM EVENT_TABLE")
	require.NoError(t, err)

	// The cached count survives the delete; an uncached query sees it.
	n, err = client.Query(text).Cacheable().Int64(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = client.Query(text).Int64(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *Tx) error {
		if err := tx.Persist(ctx, &Event{Name: "doomed"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	n, err := client.Query("select count(e) from Event e").Int64(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	err = client.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.Tx(ctx); !errors.Is(err, ErrTxStarted) {
			return fmt.Errorf("expected ErrTxStarted, got %v", err)
		}
		return tx.Persist(ctx, &Event{Name: "kept"})
	})
	require.NoError(t, err)
	n, err = client.Query("select count(e) from Event e").Int64(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPersistConstraintViolation(t *testing.T) {
	ctx := context.Background()
	client := testClient(t)
	persist(t, client, &Organizer{Name: "acme"})

	err := client.Persist(ctx, &Organizer{Name: "acme"})
	require.Error(t, err)
	assert.True(t, IsConstraintError(err))
}

func TestPersistUnregisteredType(t *testing.T) {
	client := testClient(t)
	type stranger struct{ ID int64 }
	err := client.Persist(context.Background(), &stranger{})
	require.ErrorContains(t, err, "unregistered entity type")
}
