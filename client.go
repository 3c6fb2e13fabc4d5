package orm

import (
	"context"
	stdsql "database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"golang.org/x/sync/singleflight"

	"github.com/fcjm/hibernate-orm/dialect"
	dsql "github.com/fcjm/hibernate-orm/dialect/sql"
	migrate "github.com/fcjm/hibernate-orm/dialect/sql/schema"
	"github.com/fcjm/hibernate-orm/eql"
	entschema "github.com/fcjm/hibernate-orm/schema"
)

// Client is the entry point to the framework: it owns the driver, the
// entity metadata and the query compiler. A client is safe for
// concurrent use.
type Client struct {
	driver   dialect.Driver
	db       *stdsql.DB // nil when the driver hides its pool
	registry *entschema.Registry
	compiler *eql.Compiler
	cache    Cache
	cacheTTL time.Duration
	log      *slog.Logger
	flight   singleflight.Group
}

// Option configures a client.
type Option func(*Client)

// WithCache enables the query result cache for cacheable queries.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient returns a client over an existing driver.
func NewClient(drv dialect.Driver, registry *entschema.Registry, opts ...Option) *Client {
	c := &Client{
		driver:   drv,
		registry: registry,
		compiler: eql.NewCompiler(registry, drv.Dialect()),
		log:      slog.Default(),
	}
	if d, ok := drv.(interface{ DB() *stdsql.DB }); ok {
		c.db = d.DB()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open opens a connection pool for the given dialect and returns a
// client over it.
func Open(dialectName, dsn string, registry *entschema.Registry, opts ...Option) (*Client, error) {
	drv, err := dsql.Open(dialectName, dsn)
	if err != nil {
		return nil, fmt.Errorf("orm: open %s: %w", dialectName, err)
	}
	return NewClient(drv, registry, opts...), nil
}

// OpenConfig opens a client from a configuration: connection pool
// limits, slow query logging, debug logging and the result cache.
func OpenConfig(cfg *Config, registry *entschema.Registry, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	raw, err := dsql.Open(cfg.Dialect, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("orm: open %s: %w", cfg.Dialect, err)
	}
	db := raw.DB()
	if cfg.Pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime.Std())
	}
	var drv dialect.Driver = raw
	if cfg.SlowQueryThreshold > 0 {
		drv = dsql.NewStatsDriver(raw,
			dsql.WithSlowThreshold(cfg.SlowQueryThreshold.Std()),
			dsql.WithSlowQueryLog(),
		)
	}
	if cfg.Debug {
		drv = dialect.Debug(drv)
	}
	if cfg.Cache.Enabled {
		opts = append([]Option{WithCache(NewMemoryCache(), cfg.Cache.TTL.Std())}, opts...)
	}
	c := NewClient(drv, registry, opts...)
	c.db = db
	return c, nil
}

// Driver returns the underlying driver.
func (c *Client) Driver() dialect.Driver { return c.driver }

// Registry returns the entity metadata registry.
func (c *Client) Registry() *entschema.Registry { return c.registry }

// Cache returns the configured result cache, or nil when caching is
// disabled.
func (c *Client) Cache() Cache { return c.cache }

// Close closes the underlying driver.
func (c *Client) Close() error { return c.driver.Close() }

// Get loads the entity with the given id, or a NotFoundError.
func (c *Client) Get(ctx context.Context, entity string, id any) (any, error) {
	typ, ok := c.registry.Lookup(entity)
	if !ok {
		return nil, fmt.Errorf("orm: unknown entity %q", entity)
	}
	t := dsql.Table(typ.Table)
	sel := dsql.Select().SetDialect(c.driver.Dialect()).From(t)
	for _, col := range typ.SelectColumns() {
		sel.AppendSelect(t.C(col))
	}
	sel.Where(dsql.EQ(t.C(typ.ID.Name), id)).Limit(2)
	query, args := sel.Query()
	var rows dsql.Rows
	if err := c.driver.Query(ctx, query, args, &rows); err != nil {
		return nil, c.translateError(err)
	}
	ents, err := scanEntities(&rows, typ, nil)
	if err != nil {
		return nil, err
	}
	switch len(ents) {
	case 0:
		return nil, NewNotFoundError(typ.Name, id)
	case 1:
		return ents[0], nil
	default:
		return nil, NewNotSingularErrorWithCount(typ.Name, len(ents))
	}
}

// Persist inserts the given entity. Generated attribute values are
// produced first: in-memory generators run and assign into the entity,
// database-side generated keys are read back after the insert.
func (c *Client) Persist(ctx context.Context, e any) error {
	typ, ok := c.registry.TypeOf(e)
	if !ok {
		return fmt.Errorf("orm: unregistered entity type %T", e)
	}
	var (
		cols []string
		vals []any
	)
	dbID := typ.ID.Generator != nil && entschema.IsDatabaseGenerated(typ.ID.Generator)
	if !dbID {
		idv := typ.ID.Getter(e)
		if typ.ID.Generator != nil && isZero(idv) {
			v, err := typ.ID.Generator.Generate(ctx)
			if err != nil {
				return fmt.Errorf("orm: generate %s.%s: %w", typ.Name, typ.ID.Name, err)
			}
			if err := setValue(typ.ID.Scan(e), v); err != nil {
				return err
			}
			idv = v
		}
		cols = append(cols, typ.ID.Name)
		vals = append(vals, idv)
	}
	for _, col := range typ.Columns {
		v := col.Getter(e)
		if col.Generator != nil {
			if entschema.IsDatabaseGenerated(col.Generator) {
				continue
			}
			if col.Timing == entschema.Always || isZero(v) {
				nv, err := col.Generator.Generate(ctx)
				if err != nil {
					return fmt.Errorf("orm: generate %s.%s: %w", typ.Name, col.Name, err)
				}
				if err := setValue(col.Scan(e), nv); err != nil {
					return err
				}
				v = nv
			}
		}
		cols = append(cols, col.Name)
		vals = append(vals, v)
	}
	for _, a := range typ.Assocs {
		fk, err := c.foreignKey(a, e)
		if err != nil {
			return err
		}
		if fk == nil && !a.Nullable {
			return NewValidationError(a.Name, errors.New("required association is not set"))
		}
		cols = append(cols, a.Column)
		vals = append(vals, fk)
	}
	ins := dsql.Insert(typ.Table).SetDialect(c.driver.Dialect()).Columns(cols...).Values(vals...)
	if dbID && c.driver.Dialect() == dialect.Postgres {
		ins.Returning(typ.ID.Name)
		query, args := ins.Query()
		var rows dsql.Rows
		if err := c.driver.Query(ctx, query, args, &rows); err != nil {
			return c.translateError(err)
		}
		defer rows.Close()
		if !rows.Next() {
			return fmt.Errorf("orm: insert of %s returned no generated key", typ.Name)
		}
		if err := rows.Scan(typ.ID.Scan(e)); err != nil {
			return err
		}
		return rows.Err()
	}
	query, args := ins.Query()
	var res dsql.Result
	if err := c.driver.Exec(ctx, query, args, &res); err != nil {
		return c.translateError(err)
	}
	if dbID {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("orm: read generated key of %s: %w", typ.Name, err)
		}
		if err := setValue(typ.ID.Scan(e), id); err != nil {
			return err
		}
	}
	c.log.DebugContext(ctx, "entity persisted", "entity", typ.Name)
	return nil
}

// foreignKey resolves the foreign key value of an association: the
// referenced entity's id when set, otherwise the raw holder value.
func (c *Client) foreignKey(a *entschema.Association, e any) (any, error) {
	if a.Ref != nil {
		if ref := a.Ref(e); ref != nil {
			rt, ok := c.registry.TypeOf(ref)
			if !ok {
				return nil, fmt.Errorf("orm: association %q references unregistered type %T", a.Name, ref)
			}
			return rt.ID.Getter(ref), nil
		}
	}
	if a.FKValue == nil {
		return nil, nil
	}
	v := a.FKValue(e)
	if vl, ok := v.(driver.Valuer); ok {
		dv, err := vl.Value()
		if err != nil {
			return nil, err
		}
		return dv, nil
	}
	return v, nil
}

// CreateSchema creates or updates the database tables of all registered
// entity types.
func (c *Client) CreateSchema(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("orm: schema migration requires a database-backed driver")
	}
	return migrate.Create(ctx, c.db, c.driver.Dialect(), c.registry.Types())
}

// Tx starts a transaction and returns a transactional view of the
// client. All operations on the returned Tx run inside it until Commit
// or Rollback.
func (c *Client) Tx(ctx context.Context) (*Tx, error) {
	if _, ok := c.driver.(*txDriver); ok {
		return nil, ErrTxStarted
	}
	tx, err := c.driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	txc := &Client{
		driver:   &txDriver{drv: c.driver, tx: tx},
		db:       c.db,
		registry: c.registry,
		compiler: c.compiler,
		cache:    c.cache,
		cacheTTL: c.cacheTTL,
		log:      c.log,
	}
	return &Tx{Client: txc, tx: tx}, nil
}

// WithTx runs fn inside a transaction, committing on success and
// rolling back on error or panic.
func (c *Client) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := c.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return NewAggregateError(err, rerr)
		}
		return err
	}
	return tx.Commit()
}

// Tx is a transactional client.
type Tx struct {
	*Client
	tx dialect.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback rolls the transaction back.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		return &RollbackError{Err: err}
	}
	return nil
}

// txDriver routes driver operations through an open transaction.
type txDriver struct {
	drv dialect.Driver
	tx  dialect.Tx
}

func (d *txDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.tx.Exec(ctx, query, args, v)
}

func (d *txDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.tx.Query(ctx, query, args, v)
}

func (d *txDriver) Tx(context.Context) (dialect.Tx, error) { return nil, ErrTxStarted }

func (d *txDriver) Close() error { return nil }

func (d *txDriver) Dialect() string { return d.drv.Dialect() }

// translateError maps driver-specific constraint violations to
// ConstraintError.
func (c *Client) translateError(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		// Duplicate key and foreign key violations.
		case 1062, 1169, 1216, 1217, 1451, 1452, 1557, 3819:
			return NewConstraintError(me.Message, err)
		}
		return err
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		// Class 23: integrity constraint violations.
		if strings.HasPrefix(string(pe.Code), "23") {
			return NewConstraintError(pe.Message, err)
		}
		return err
	}
	if strings.Contains(err.Error(), "constraint") {
		return NewConstraintError(err.Error(), err)
	}
	return err
}

// setValue assigns a generated value into a scan destination pointer.
func setValue(dest, v any) error {
	if err := assign(dest, v); err == nil {
		return nil
	}
	rd := reflect.ValueOf(dest)
	if rd.Kind() != reflect.Pointer || rd.IsNil() {
		return fmt.Errorf("orm: invalid assignment target %T", dest)
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(rd.Elem().Type()):
		rd.Elem().Set(rv)
	case rv.Type().ConvertibleTo(rd.Elem().Type()):
		rd.Elem().Set(rv.Convert(rd.Elem().Type()))
	default:
		return fmt.Errorf("orm: cannot assign generated %T into %T", v, dest)
	}
	return nil
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}
