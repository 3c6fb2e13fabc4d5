// Package schema derives database tables from registered entity
// metadata and migrates the connected database to match them.
package schema

import (
	"fmt"

	entschema "github.com/fcjm/hibernate-orm/schema"
)

// Table is the database representation of one entity type.
type Table struct {
	Name        string
	Columns     []*Column // primary key first
	PrimaryKey  *Column
	ForeignKeys []*ForeignKey
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Column is one table column.
type Column struct {
	Name     string
	Type     entschema.FieldType
	Nullable bool
	Unique   bool
	Size     int
	// Increment marks a database-generated integer key.
	Increment bool
}

// ForeignKey is a single-column reference to another table's primary
// key.
type ForeignKey struct {
	Symbol    string
	Column    *Column
	RefTable  string
	RefColumn string
}

// FromRegistry derives the table set of the given entity types. The
// foreign key column type follows the referenced primary key.
func FromRegistry(types []*entschema.Type) ([]*Table, error) {
	byName := make(map[string]*entschema.Type, len(types))
	for _, t := range types {
		byName[t.Name] = t
	}
	tables := make([]*Table, 0, len(types))
	for _, t := range types {
		pk := &Column{
			Name:      t.ID.Name,
			Type:      t.ID.Type,
			Increment: incrementKey(t.ID),
		}
		tbl := &Table{
			Name:       t.Table,
			Columns:    []*Column{pk},
			PrimaryKey: pk,
		}
		for _, c := range t.Columns {
			tbl.Columns = append(tbl.Columns, &Column{
				Name:     c.Name,
				Type:     c.Type,
				Nullable: c.Nullable,
				Unique:   c.Unique,
				Size:     c.Size,
			})
		}
		for _, a := range t.Assocs {
			target, ok := byName[a.Target]
			if !ok {
				return nil, fmt.Errorf("schema: entity %s references unregistered entity %q", t.Name, a.Target)
			}
			col := &Column{
				Name:     a.Column,
				Type:     target.ID.Type,
				Nullable: a.Nullable,
			}
			tbl.Columns = append(tbl.Columns, col)
			tbl.ForeignKeys = append(tbl.ForeignKeys, &ForeignKey{
				Symbol:    fmt.Sprintf("%s_%s_fkey", t.Table, a.Column),
				Column:    col,
				RefTable:  target.Table,
				RefColumn: target.ID.Name,
			})
		}
		tables = append(tables, tbl)
	}
	return tables, nil
}

// incrementKey reports whether the primary key is an integer generated
// by the database.
func incrementKey(id *entschema.Column) bool {
	if id.Generator == nil || !entschema.IsDatabaseGenerated(id.Generator) {
		return false
	}
	return id.Type == entschema.TypeInt || id.Type == entschema.TypeInt64
}
