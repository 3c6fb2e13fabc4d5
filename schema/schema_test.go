package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type organizer struct {
	ID   int64
	Name string
}

func organizerType() *Type {
	return &Type{
		Name: "Organizer",
		New:  func() any { return &organizer{} },
		ID: &Column{
			Name:   "id",
			Type:   TypeInt64,
			Getter: func(e any) any { return e.(*organizer).ID },
			Scan:   func(e any) any { return &e.(*organizer).ID },
		},
		Columns: []*Column{{
			Name:   "name",
			Type:   TypeString,
			Getter: func(e any) any { return e.(*organizer).Name },
			Scan:   func(e any) any { return &e.(*organizer).Name },
		}},
	}
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()
	typ := organizerType()
	require.NoError(t, reg.Register(typ))

	// The default naming strategy fills the table name.
	assert.Equal(t, "organizers", typ.Table)

	got, ok := reg.Lookup("Organizer")
	require.True(t, ok)
	assert.Same(t, typ, got)

	_, ok = reg.Lookup("Event")
	assert.False(t, ok)

	got, ok = reg.TypeOf(&organizer{})
	require.True(t, ok)
	assert.Same(t, typ, got)

	_, ok = reg.TypeOf(nil)
	assert.False(t, ok)
	_, ok = reg.TypeOf("not an entity")
	assert.False(t, ok)

	assert.Len(t, reg.Types(), 1)
}

func TestRegistryAssociationDefaults(t *testing.T) {
	reg := NewRegistry()
	typ := organizerType()
	typ.Assocs = []*Association{{
		Name:   "parentGroup",
		Target: "Group",
		FK:     func(any) any { return nil },
	}}
	require.NoError(t, reg.Register(typ))
	assert.Equal(t, "parent_group_id", typ.Assocs[0].Column)
}

func TestRegistryValidation(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(*Type)
		want   string
	}{
		{"no name", func(typ *Type) { typ.Name = "" }, "without a name"},
		{"no id", func(typ *Type) { typ.ID = nil }, "no id column"},
		{"no constructor", func(typ *Type) { typ.New = nil }, "no instance constructor"},
		{"incomplete column", func(typ *Type) { typ.Columns[0].Getter = nil }, "incomplete column"},
		{"duplicate column", func(typ *Type) { typ.Columns[0].Name = "id" }, `maps column "id" twice`},
		{"incomplete assoc", func(typ *Type) {
			typ.Assocs = []*Association{{Name: "owner"}}
		}, "incomplete association"},
		{"assoc column clash", func(typ *Type) {
			typ.Assocs = []*Association{{
				Name:   "owner",
				Target: "Organizer",
				Column: "name",
				FK:     func(any) any { return nil },
			}}
		}, `maps column "name" twice`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			typ := organizerType()
			tt.mutate(typ)
			err := NewRegistry().Register(typ)
			require.ErrorContains(t, err, tt.want)
		})
	}

	reg := NewRegistry()
	require.NoError(t, reg.Register(organizerType()))
	require.ErrorContains(t, reg.Register(organizerType()), "registered twice")
}

func TestTypeAccessors(t *testing.T) {
	typ := organizerType()
	typ.Assocs = []*Association{{
		Name:   "group",
		Target: "Group",
		Column: "group_id",
		FK:     func(any) any { return nil },
	}}
	require.NoError(t, NewRegistry().Register(typ))

	assert.Equal(t, []string{"id", "name", "group_id"}, typ.SelectColumns())

	e := &organizer{ID: 7, Name: "acme"}
	dests := typ.ScanDests(e)
	require.Len(t, dests, 3)
	assert.Same(t, &e.ID, dests[0])
	assert.Same(t, &e.Name, dests[1])

	assert.Equal(t, typ.ID, typ.Column("id"))
	assert.NotNil(t, typ.Column("name"))
	assert.Nil(t, typ.Column("missing"))
	assert.NotNil(t, typ.Assoc("group"))
	assert.Nil(t, typ.Assoc("missing"))
}

func TestCustomNaming(t *testing.T) {
	upper := namingFunc{}
	reg := NewRegistry(WithNaming(upper))
	typ := organizerType()
	require.NoError(t, reg.Register(typ))
	assert.Equal(t, "ORGANIZER", typ.Table)
}

type namingFunc struct{}

func (namingFunc) TableName(entity string) string   { return "ORGANIZER" }
func (namingFunc) ForeignKeyColumn(a string) string { return a + "_fk" }
