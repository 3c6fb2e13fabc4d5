package schema

import (
	"context"
	"database/sql"
	"fmt"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	atlas "ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/fcjm/hibernate-orm/dialect"
	entschema "github.com/fcjm/hibernate-orm/schema"
)

// Migrate creates missing tables in the connected database. It is
// additive only: existing tables are left untouched, so column changes
// never destroy data. Use ValidateDiff to review a planned change set.
type Migrate struct {
	drv     migrate.Driver
	dialect string
}

// NewMigrate returns a migrator over the given connection.
func NewMigrate(db *sql.DB, dialectName string) (*Migrate, error) {
	var (
		drv migrate.Driver
		err error
	)
	switch dialectName {
	case dialect.SQLite:
		drv, err = sqlite.Open(db)
	case dialect.MySQL:
		drv, err = mysql.Open(db)
	case dialect.Postgres:
		drv, err = postgres.Open(db)
	default:
		return nil, fmt.Errorf("schema: unsupported dialect %q", dialectName)
	}
	if err != nil {
		return nil, fmt.Errorf("schema: open %s driver: %w", dialectName, err)
	}
	return &Migrate{drv: drv, dialect: dialectName}, nil
}

// Create derives tables from the registered entity types and creates
// the missing ones.
func Create(ctx context.Context, db *sql.DB, dialectName string, types []*entschema.Type) error {
	tables, err := FromRegistry(types)
	if err != nil {
		return err
	}
	m, err := NewMigrate(db, dialectName)
	if err != nil {
		return err
	}
	return m.Create(ctx, tables...)
}

// Create creates the given tables if they do not exist yet.
func (m *Migrate) Create(ctx context.Context, tables ...*Table) error {
	current, err := m.drv.InspectSchema(ctx, "", &atlas.InspectOptions{})
	if err != nil {
		return fmt.Errorf("schema: inspect: %w", err)
	}
	desired := atlas.New(current.Name)
	built := make(map[string]*atlas.Table, len(tables))
	for _, t := range tables {
		at, err := m.table(t)
		if err != nil {
			return err
		}
		desired.AddTables(at)
		built[t.Name] = at
	}
	// Foreign keys are wired after all tables exist so forward
	// references resolve.
	for _, t := range tables {
		at := built[t.Name]
		for _, fk := range t.ForeignKeys {
			ref, ok := built[fk.RefTable]
			if !ok {
				if ref, ok = current.Table(fk.RefTable); !ok {
					return fmt.Errorf("schema: foreign key %s references unknown table %q", fk.Symbol, fk.RefTable)
				}
			}
			col, _ := at.Column(fk.Column.Name)
			refCol, ok := ref.Column(fk.RefColumn)
			if !ok {
				return fmt.Errorf("schema: foreign key %s references unknown column %s.%s", fk.Symbol, fk.RefTable, fk.RefColumn)
			}
			at.AddForeignKeys(atlas.NewForeignKey(fk.Symbol).
				AddColumns(col).
				SetRefTable(ref).
				AddRefColumns(refCol))
		}
	}
	var changes []atlas.Change
	for _, t := range tables {
		if _, exists := current.Table(t.Name); exists {
			continue
		}
		changes = append(changes, &atlas.AddTable{T: built[t.Name]})
	}
	if len(changes) == 0 {
		return nil
	}
	if err := m.drv.ApplyChanges(ctx, changes); err != nil {
		return fmt.Errorf("schema: apply changes: %w", err)
	}
	return nil
}

func (m *Migrate) table(t *Table) (*atlas.Table, error) {
	at := atlas.NewTable(t.Name)
	byName := make(map[string]*atlas.Column, len(t.Columns))
	for _, c := range t.Columns {
		ac, err := m.column(c)
		if err != nil {
			return nil, fmt.Errorf("schema: table %s: %w", t.Name, err)
		}
		at.AddColumns(ac)
		byName[c.Name] = ac
		if c.Unique {
			at.AddIndexes(atlas.NewUniqueIndex(t.Name + "_" + c.Name + "_key").AddColumns(ac))
		}
	}
	if t.PrimaryKey != nil {
		at.SetPrimaryKey(atlas.NewPrimaryKey(byName[t.PrimaryKey.Name]))
	}
	return at, nil
}

func (m *Migrate) column(c *Column) (*atlas.Column, error) {
	ac := atlas.NewColumn(c.Name).SetNull(c.Nullable)
	if c.Increment {
		switch m.dialect {
		case dialect.SQLite:
			// An integer primary key aliases the rowid.
			return ac.SetType(&atlas.IntegerType{T: "integer"}), nil
		case dialect.MySQL:
			ac.SetType(&atlas.IntegerType{T: "bigint"})
			ac.AddAttrs(&mysql.AutoIncrement{})
			return ac, nil
		case dialect.Postgres:
			return ac.SetType(&postgres.SerialType{T: "bigserial"}), nil
		}
	}
	switch c.Type {
	case entschema.TypeBool:
		ac.SetType(&atlas.BoolType{T: m.pick("bool", "bool", "boolean")})
	case entschema.TypeInt:
		ac.SetType(&atlas.IntegerType{T: m.pick("integer", "int", "integer")})
	case entschema.TypeInt64:
		ac.SetType(&atlas.IntegerType{T: m.pick("integer", "bigint", "bigint")})
	case entschema.TypeFloat64:
		ac.SetType(&atlas.FloatType{T: m.pick("real", "double", "double precision")})
	case entschema.TypeString:
		size := c.Size
		if size == 0 && m.dialect == dialect.MySQL {
			size = 255
		}
		t := m.pick("text", "varchar", "varchar")
		if m.dialect == dialect.Postgres && size == 0 {
			t = "text"
		}
		ac.SetType(&atlas.StringType{T: t, Size: size})
	case entschema.TypeTime:
		ac.SetType(&atlas.TimeType{T: m.pick("datetime", "datetime", "timestamptz")})
	case entschema.TypeUUID:
		ac.SetType(&atlas.UUIDType{T: m.pick("uuid", "char(36)", "uuid")})
	case entschema.TypeBytes:
		ac.SetType(&atlas.BinaryType{T: m.pick("blob", "blob", "bytea")})
	default:
		return nil, fmt.Errorf("unsupported column type %s for %q", c.Type, c.Name)
	}
	return ac, nil
}

// pick selects the type name for the current dialect.
func (m *Migrate) pick(sqlite3, mysql8, pg string) string {
	switch m.dialect {
	case dialect.MySQL:
		return mysql8
	case dialect.Postgres:
		return pg
	default:
		return sqlite3
	}
}
