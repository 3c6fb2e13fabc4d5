package orm

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	dsql "github.com/fcjm/hibernate-orm/dialect/sql"
	"github.com/fcjm/hibernate-orm/eql"
	entschema "github.com/fcjm/hibernate-orm/schema"
)

// Query is a select statement under construction: the statement text
// plus bound parameters and execution settings. Queries are built with
// chained calls and executed with List, UniqueResult, Values or Int64.
//
//	events, err := client.Query("from Event e where e.organizer = :o").
//	    SetParameter("o", org).
//	    MaxResults(10).
//	    List(ctx)
type Query struct {
	client      *Client
	text        string
	named       map[string]any
	positional  map[int]any
	firstResult *int
	maxResults  *int
	cacheable   bool
}

// Query returns a new query for the given statement text.
func (c *Client) Query(text string) *Query {
	return &Query{
		client:     c,
		text:       text,
		named:      make(map[string]any),
		positional: make(map[int]any),
	}
}

// SetParameter binds a named parameter. Registered entity instances may
// be bound directly; nil stands for SQL NULL.
func (q *Query) SetParameter(name string, v any) *Query {
	q.named[name] = v
	return q
}

// SetPositional binds a positional parameter (?1, ?2, ...).
func (q *Query) SetPositional(n int, v any) *Query {
	q.positional[n] = v
	return q
}

// FirstResult skips the first n rows. It overrides a textual offset
// clause.
func (q *Query) FirstResult(n int) *Query {
	q.firstResult = &n
	return q
}

// MaxResults caps the number of returned rows. It overrides a textual
// limit or fetch clause.
func (q *Query) MaxResults(n int) *Query {
	q.maxResults = &n
	return q
}

// Cacheable marks the query results as cacheable. Only Values and
// Int64 results are cached; entity results carry identity and are
// always read from the database.
func (q *Query) Cacheable() *Query {
	q.cacheable = true
	return q
}

// compile translates the statement and applies the programmatic row
// window on top of the textual one.
func (q *Query) compile(fallbackLimit *int) (*eql.Compiled, error) {
	compiled, err := q.client.compiler.CompileString(q.text, eql.Params{
		Named:      q.named,
		Positional: q.positional,
	})
	if err != nil {
		return nil, err
	}
	switch {
	case q.maxResults != nil:
		compiled.Selector.Limit(*q.maxResults)
	case fallbackLimit != nil:
		compiled.Selector.Limit(*fallbackLimit)
	}
	if q.firstResult != nil {
		compiled.Selector.Offset(*q.firstResult)
	}
	return compiled, nil
}

func (q *Query) run(ctx context.Context, fallbackLimit *int) ([]any, *entschema.Type, error) {
	compiled, err := q.compile(fallbackLimit)
	if err != nil {
		return nil, nil, err
	}
	if compiled.Root == nil {
		return nil, nil, fmt.Errorf("orm: statement selects values, not entities; use Values")
	}
	query, args := compiled.Selector.Query()
	if err := compiled.Selector.Err(); err != nil {
		return nil, nil, err
	}
	var rows dsql.Rows
	if err := q.client.driver.Query(ctx, query, args, &rows); err != nil {
		return nil, nil, q.client.translateError(err)
	}
	ents, err := scanEntities(&rows, compiled.Root, compiled.Fetches)
	if err != nil {
		return nil, nil, err
	}
	return ents, compiled.Root, nil
}

// List executes the query and returns all matching entities.
func (q *Query) List(ctx context.Context) ([]any, error) {
	ents, _, err := q.run(ctx, nil)
	return ents, err
}

// UniqueResult executes the query and returns exactly one entity. It
// returns a NotFoundError when no row matches and a NotSingularError
// when more than one does.
func (q *Query) UniqueResult(ctx context.Context) (any, error) {
	two := 2
	ents, root, err := q.run(ctx, &two)
	if err != nil {
		return nil, err
	}
	switch len(ents) {
	case 0:
		return nil, NewNotFoundError(root.Name)
	case 1:
		return ents[0], nil
	default:
		return nil, NewNotSingularErrorWithCount(root.Name, len(ents))
	}
}

// Values executes the query and returns the raw result rows. Both
// projection and entity statements are supported. When the query is
// cacheable and the client carries a cache, rows are served from it;
// concurrent misses for the same key share a single database round
// trip.
func (q *Query) Values(ctx context.Context) ([][]any, error) {
	compiled, err := q.compile(nil)
	if err != nil {
		return nil, err
	}
	query, args := compiled.Selector.Query()
	if err := compiled.Selector.Err(); err != nil {
		return nil, err
	}
	width := len(compiled.Selector.SelectedColumns())
	if !q.cacheable || q.client.cache == nil {
		return q.fetchValues(ctx, query, args, width)
	}
	key := cacheKey(query, args)
	if data, err := q.client.cache.Get(ctx, key); err == nil && data != nil {
		var rows [][]any
		if err := msgpack.Unmarshal(data, &rows); err == nil {
			return rows, nil
		}
		// Undecodable entries are replaced below.
		_ = q.client.cache.Delete(ctx, key)
	}
	v, err, _ := q.client.flight.Do(key, func() (any, error) {
		rows, err := q.fetchValues(ctx, query, args, width)
		if err != nil {
			return nil, err
		}
		if data, err := msgpack.Marshal(rows); err == nil {
			if cerr := q.client.cache.Set(ctx, key, data, q.client.cacheTTL); cerr != nil {
				q.client.log.WarnContext(ctx, "cache set failed", "err", cerr)
			}
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([][]any), nil
}

func (q *Query) fetchValues(ctx context.Context, query string, args []any, width int) ([][]any, error) {
	var rows dsql.Rows
	if err := q.client.driver.Query(ctx, query, args, &rows); err != nil {
		return nil, q.client.translateError(err)
	}
	return dsql.ScanSlice(&rows, width)
}

// Int64 executes a single-value query, such as an aggregate, and
// returns its result.
func (q *Query) Int64(ctx context.Context) (int64, error) {
	rows, err := q.Values(ctx)
	if err != nil {
		return 0, err
	}
	switch {
	case len(rows) == 0:
		return 0, ErrNotFound
	case len(rows) > 1:
		return 0, ErrNotSingular
	case len(rows[0]) != 1:
		return 0, fmt.Errorf("orm: expected a single column, got %d", len(rows[0]))
	}
	var n int64
	if err := assign(&n, rows[0][0]); err != nil {
		return 0, err
	}
	return n, nil
}

func cacheKey(query string, args []any) string {
	return fmt.Sprintf("%s|%v", query, args)
}

// scanEntities materializes result rows into entity instances. Fetched
// association segments follow the root columns; a NULL id in a segment
// means the association is absent and the segment is skipped.
func scanEntities(rows *dsql.Rows, root *entschema.Type, fetches []*eql.Fetch) ([]any, error) {
	defer rows.Close()
	var out []any
	for rows.Next() {
		e := root.New()
		dests := root.ScanDests(e)
		type segment struct {
			fetch  *eql.Fetch
			entity any
			id     *nullCatcher
		}
		segments := make([]segment, 0, len(fetches))
		for _, f := range fetches {
			fe := f.Target.New()
			seg := segment{fetch: f, entity: fe}
			for i, d := range f.Target.ScanDests(fe) {
				nc := &nullCatcher{dest: d}
				if i == 0 {
					seg.id = nc
				}
				dests = append(dests, nc)
			}
			segments = append(segments, seg)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		for _, seg := range segments {
			if seg.id.valid && seg.fetch.Assoc.Set != nil {
				seg.fetch.Assoc.Set(e, seg.entity)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
