package schema

import (
	"github.com/go-openapi/inflect"
)

// NamingStrategy derives database names from entity metadata that does
// not specify them explicitly.
type NamingStrategy interface {
	// TableName derives the table name for an entity name.
	TableName(entity string) string
	// ForeignKeyColumn derives the column name for an association.
	ForeignKeyColumn(assoc string) string
}

// DefaultNaming maps CamelCase entity names to pluralized snake_case
// tables ("OrderItem" becomes "order_items") and association names to
// "<name>_id" foreign key columns.
type DefaultNaming struct{}

// TableName implements NamingStrategy.
func (DefaultNaming) TableName(entity string) string {
	return inflect.Pluralize(inflect.Underscore(entity))
}

// ForeignKeyColumn implements NamingStrategy.
func (DefaultNaming) ForeignKeyColumn(assoc string) string {
	return inflect.Underscore(assoc) + "_id"
}
