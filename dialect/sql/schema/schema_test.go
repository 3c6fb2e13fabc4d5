package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entschema "github.com/fcjm/hibernate-orm/schema"
)

func registryTypes(t *testing.T) []*entschema.Type {
	t.Helper()
	reg := entschema.NewRegistry()
	type organizer struct {
		ID   int64
		Name string
	}
	type event struct {
		ID          int64
		Name        string
		OrganizerID *int64
	}
	require.NoError(t, reg.Register(
		&entschema.Type{
			Name:  "Organizer",
			Table: "organizers",
			New:   func() any { return &organizer{} },
			ID: &entschema.Column{
				Name:      "id",
				Type:      entschema.TypeInt64,
				Generator: entschema.Database(),
				Getter:    func(e any) any { return e.(*organizer).ID },
				Scan:      func(e any) any { return &e.(*organizer).ID },
			},
			Columns: []*entschema.Column{{
				Name:   "name",
				Type:   entschema.TypeString,
				Size:   100,
				Unique: true,
				Getter: func(e any) any { return e.(*organizer).Name },
				Scan:   func(e any) any { return &e.(*organizer).Name },
			}},
		},
		&entschema.Type{
			Name:  "Event",
			Table: "events",
			New:   func() any { return &event{} },
			ID: &entschema.Column{
				Name:      "id",
				Type:      entschema.TypeInt64,
				Generator: entschema.Database(),
				Getter:    func(e any) any { return e.(*event).ID },
				Scan:      func(e any) any { return &e.(*event).ID },
			},
			Columns: []*entschema.Column{{
				Name:   "name",
				Type:   entschema.TypeString,
				Getter: func(e any) any { return e.(*event).Name },
				Scan:   func(e any) any { return &e.(*event).Name },
			}},
			Assocs: []*entschema.Association{{
				Name:     "organizer",
				Target:   "Organizer",
				Column:   "organizer_id",
				Nullable: true,
				FK:       func(e any) any { return &e.(*event).OrganizerID },
			}},
		},
	))
	return reg.Types()
}

func TestFromRegistry(t *testing.T) {
	tables, err := FromRegistry(registryTypes(t))
	require.NoError(t, err)
	require.Len(t, tables, 2)

	byName := make(map[string]*Table, len(tables))
	for _, tbl := range tables {
		byName[tbl.Name] = tbl
	}
	events := byName["events"]
	require.NotNil(t, events)
	require.NotNil(t, events.PrimaryKey)
	assert.Equal(t, "id", events.PrimaryKey.Name)
	assert.True(t, events.PrimaryKey.Increment)

	fkCol := events.Column("organizer_id")
	require.NotNil(t, fkCol)
	assert.Equal(t, entschema.TypeInt64, fkCol.Type)
	assert.True(t, fkCol.Nullable)

	require.Len(t, events.ForeignKeys, 1)
	fk := events.ForeignKeys[0]
	assert.Equal(t, "organizers", fk.RefTable)
	assert.Equal(t, "id", fk.RefColumn)
	assert.Equal(t, fkCol, fk.Column)

	organizers := byName["organizers"]
	require.NotNil(t, organizers)
	name := organizers.Column("name")
	require.NotNil(t, name)
	assert.True(t, name.Unique)
	assert.Equal(t, 100, name.Size)
}

func TestFromRegistryUnknownTarget(t *testing.T) {
	types := registryTypes(t)
	for _, typ := range types {
		for _, a := range typ.Assocs {
			a.Target = "Missing"
		}
	}
	_, err := FromRegistry(types)
	require.ErrorContains(t, err, "unregistered entity")
}
