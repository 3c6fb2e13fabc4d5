// Package schema holds the entity metadata model: registered entity
// types, their mapped columns and to-one associations, the naming
// strategy for deriving table and column names, and the value
// generation machinery for attributes produced outside of plain
// assignment.
//
// Metadata is registered programmatically. Entities are ordinary Go
// structs; the registrant supplies accessor functions instead of the
// framework reflecting over struct tags:
//
//	reg := schema.NewRegistry()
//	err := reg.Register(&schema.Type{
//	    Name:  "Organizer",
//	    Table: "ORGANIZER_TABLE",
//	    New:   func() any { return &Organizer{} },
//	    ID: &schema.Column{
//	        Name:   "id",
//	        Type:   schema.TypeInt64,
//	        Getter: func(e any) any { return e.(*Organizer).ID },
//	        Scan:   func(e any) any { return &e.(*Organizer).ID },
//	    },
//	    Columns: []*schema.Column{{
//	        Name:   "name",
//	        Type:   schema.TypeString,
//	        Getter: func(e any) any { return e.(*Organizer).Name },
//	        Scan:   func(e any) any { return &e.(*Organizer).Name },
//	    }},
//	})
package schema

import (
	"fmt"
	"reflect"
	"sync"
)

// FieldType is the database-facing type of a mapped column.
type FieldType int

// Supported column types.
const (
	TypeInvalid FieldType = iota
	TypeBool
	TypeInt
	TypeInt64
	TypeFloat64
	TypeString
	TypeTime
	TypeUUID
	TypeBytes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeInt:     "int",
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeString:  "string",
	TypeTime:    "time",
	TypeUUID:    "uuid",
	TypeBytes:   "bytes",
}

func (t FieldType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "invalid"
	}
	return typeNames[t]
}

// Column describes one mapped attribute of an entity type.
type Column struct {
	// Name is the database column name.
	Name string
	// Type is the database-facing type.
	Type FieldType
	// Nullable reports whether the column accepts NULL.
	Nullable bool
	// Unique adds a unique constraint on the column.
	Unique bool
	// Size bounds string columns (0 means dialect default).
	Size int
	// Generator produces the attribute value when set. See value.go.
	Generator Generator
	// Timing controls when the generator runs. Defaults to OnInsert.
	Timing Timing
	// Getter returns the current attribute value of an entity.
	Getter func(e any) any
	// Scan returns a pointer to the attribute, used as a row scan
	// destination.
	Scan func(e any) any
}

// Association describes a to-one association mapped through a foreign
// key column on the owning side.
type Association struct {
	// Name is the attribute name used in query paths (for example
	// "organizer" in "e.organizer.name").
	Name string
	// Target is the entity name of the associated type.
	Target string
	// Column is the foreign key column. Derived from Name by the
	// naming strategy when empty.
	Column string
	// Nullable reports whether the association is optional.
	Nullable bool
	// FK returns a pointer to the foreign key holder of an entity,
	// used as a row scan destination (typically *sql.NullInt64).
	FK func(e any) any
	// FKValue returns the current foreign key value for inserts when
	// the associated entity itself is not set.
	FKValue func(e any) any
	// Ref returns the associated entity, or nil when unset.
	Ref func(e any) any
	// Set assigns a loaded associated entity.
	Set func(e, target any)
}

// Type describes a registered entity type.
type Type struct {
	// Name is the entity name used in queries.
	Name string
	// Table is the mapped table name. Derived from Name by the naming
	// strategy when empty.
	Table string
	// ID is the primary key column.
	ID *Column
	// Columns are the plain mapped columns, excluding ID.
	Columns []*Column
	// Assocs are the to-one associations of the type.
	Assocs []*Association
	// New allocates a fresh entity instance.
	New func() any

	goType reflect.Type
}

// SelectColumns returns the column names selected when loading the
// entity: id first, then plain columns, then association foreign keys.
func (t *Type) SelectColumns() []string {
	cols := make([]string, 0, 1+len(t.Columns)+len(t.Assocs))
	cols = append(cols, t.ID.Name)
	for _, c := range t.Columns {
		cols = append(cols, c.Name)
	}
	for _, a := range t.Assocs {
		cols = append(cols, a.Column)
	}
	return cols
}

// ScanDests returns scan destinations for the given instance, in
// SelectColumns order.
func (t *Type) ScanDests(e any) []any {
	dests := make([]any, 0, 1+len(t.Columns)+len(t.Assocs))
	dests = append(dests, t.ID.Scan(e))
	for _, c := range t.Columns {
		dests = append(dests, c.Scan(e))
	}
	for _, a := range t.Assocs {
		dests = append(dests, a.FK(e))
	}
	return dests
}

// Column returns the plain column with the given attribute name, or
// nil. The id column is matched as well.
func (t *Type) Column(name string) *Column {
	if t.ID != nil && t.ID.Name == name {
		return t.ID
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Assoc returns the association with the given attribute name, or nil.
func (t *Type) Assoc(name string) *Association {
	for _, a := range t.Assocs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Registry holds all registered entity types and resolves them by
// entity name or by Go type. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]*Type
	byGo   map[reflect.Type]*Type
	naming NamingStrategy
}

// RegistryOption configures a registry.
type RegistryOption func(*Registry)

// WithNaming overrides the default naming strategy.
func WithNaming(n NamingStrategy) RegistryOption {
	return func(r *Registry) { r.naming = n }
}

// NewRegistry returns an empty registry with the default naming
// strategy.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		types:  make(map[string]*Type),
		byGo:   make(map[reflect.Type]*Type),
		naming: DefaultNaming{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates the given type, applies naming defaults, and adds
// it to the registry.
func (r *Registry) Register(types ...*Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		if err := r.register(t); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) register(t *Type) error {
	switch {
	case t.Name == "":
		return fmt.Errorf("schema: entity type without a name")
	case t.ID == nil:
		return fmt.Errorf("schema: entity %s has no id column", t.Name)
	case t.New == nil:
		return fmt.Errorf("schema: entity %s has no instance constructor", t.Name)
	}
	if _, ok := r.types[t.Name]; ok {
		return fmt.Errorf("schema: entity %s registered twice", t.Name)
	}
	if t.Table == "" {
		t.Table = r.naming.TableName(t.Name)
	}
	seen := map[string]bool{t.ID.Name: true}
	for _, c := range t.Columns {
		if c.Name == "" || c.Getter == nil || c.Scan == nil {
			return fmt.Errorf("schema: entity %s has an incomplete column %q", t.Name, c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("schema: entity %s maps column %q twice", t.Name, c.Name)
		}
		seen[c.Name] = true
	}
	for _, a := range t.Assocs {
		if a.Name == "" || a.Target == "" || a.FK == nil {
			return fmt.Errorf("schema: entity %s has an incomplete association %q", t.Name, a.Name)
		}
		if a.Column == "" {
			a.Column = r.naming.ForeignKeyColumn(a.Name)
		}
		if seen[a.Column] {
			return fmt.Errorf("schema: entity %s maps column %q twice", t.Name, a.Column)
		}
		seen[a.Column] = true
	}
	t.goType = reflect.TypeOf(t.New())
	r.types[t.Name] = t
	r.byGo[t.goType] = t
	return nil
}

// Lookup returns the type registered under the given entity name.
func (r *Registry) Lookup(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// TypeOf returns the registered type of the given entity instance.
func (r *Registry) TypeOf(e any) (*Type, bool) {
	if e == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byGo[reflect.TypeOf(e)]
	return t, ok
}

// Types returns all registered types.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	return out
}
