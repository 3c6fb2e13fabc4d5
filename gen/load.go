// Package gen generates entity registration code from declarative
// schema definitions. A definition file lists entities with their
// attributes and to-one associations; the generator emits one Go file
// per entity (struct, metadata constructor and typed column references)
// plus a registry constructor wiring them all.
package gen

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	entschema "github.com/fcjm/hibernate-orm/schema"
)

// Definition is the root of a schema definition file.
type Definition struct {
	// Package is the package name of the generated files.
	Package string `yaml:"package"`
	// Entities are the entity definitions.
	Entities []*Entity `yaml:"entities"`
}

// Entity defines one entity type.
type Entity struct {
	Name  string `yaml:"name"`
	Table string `yaml:"table"`
	// ID configures the primary key. Defaults to a database-generated
	// int64 column named "id".
	ID           *Attribute     `yaml:"id"`
	Attributes   []*Attribute   `yaml:"attributes"`
	Associations []*Association `yaml:"associations"`
}

// Attribute defines one mapped column.
type Attribute struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
	Unique   bool   `yaml:"unique"`
	Size     int    `yaml:"size"`
	// Generated selects a value generator: "database", "uuid" or "now".
	Generated string `yaml:"generated"`
}

// Association defines one to-one association.
type Association struct {
	Name     string `yaml:"name"`
	Target   string `yaml:"target"`
	Column   string `yaml:"column"`
	Nullable bool   `yaml:"nullable"`
}

var fieldTypes = map[string]entschema.FieldType{
	"bool":    entschema.TypeBool,
	"int":     entschema.TypeInt,
	"int64":   entschema.TypeInt64,
	"float64": entschema.TypeFloat64,
	"string":  entschema.TypeString,
	"time":    entschema.TypeTime,
	"uuid":    entschema.TypeUUID,
	"bytes":   entschema.TypeBytes,
}

// Load reads and validates a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gen: read definitions: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates definition data.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("gen: parse definitions: %w", err)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) validate() error {
	if d.Package == "" {
		d.Package = "model"
	}
	if len(d.Entities) == 0 {
		return fmt.Errorf("gen: no entities defined")
	}
	naming := entschema.DefaultNaming{}
	byName := make(map[string]*Entity, len(d.Entities))
	for _, e := range d.Entities {
		if e.Name == "" {
			return fmt.Errorf("gen: entity without a name")
		}
		if _, ok := byName[e.Name]; ok {
			return fmt.Errorf("gen: entity %s defined twice", e.Name)
		}
		byName[e.Name] = e
		if e.Table == "" {
			e.Table = naming.TableName(e.Name)
		}
		if e.ID == nil {
			e.ID = &Attribute{Name: "id", Type: "int64", Generated: "database"}
		}
		if e.ID.Name == "" {
			e.ID.Name = "id"
		}
		if err := e.ID.validate(e.Name); err != nil {
			return err
		}
		for _, a := range e.Attributes {
			if err := a.validate(e.Name); err != nil {
				return err
			}
		}
		for _, a := range e.Associations {
			if a.Name == "" {
				return fmt.Errorf("gen: entity %s has an association without a name", e.Name)
			}
			if a.Column == "" {
				a.Column = naming.ForeignKeyColumn(a.Name)
			}
		}
	}
	for _, e := range d.Entities {
		for _, a := range e.Associations {
			if _, ok := byName[a.Target]; !ok {
				return fmt.Errorf("gen: association %s.%s targets undefined entity %q", e.Name, a.Name, a.Target)
			}
		}
	}
	return nil
}

func (a *Attribute) validate(entity string) error {
	if a.Name == "" {
		return fmt.Errorf("gen: entity %s has an attribute without a name", entity)
	}
	if _, ok := fieldTypes[a.Type]; !ok {
		return fmt.Errorf("gen: attribute %s.%s has unsupported type %q", entity, a.Name, a.Type)
	}
	switch a.Generated {
	case "", "database", "uuid", "now":
	default:
		return fmt.Errorf("gen: attribute %s.%s has unknown generator %q", entity, a.Name, a.Generated)
	}
	return nil
}
