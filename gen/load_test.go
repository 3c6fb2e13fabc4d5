package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
package: model
entities:
  - name: Organizer
    table: ORGANIZER_TABLE
    attributes:
      - name: name
        type: string
        unique: true
        size: 100
  - name: Event
    attributes:
      - name: name
        type: string
      - name: ref
        type: uuid
        generated: uuid
      - name: created_at
        type: time
        generated: now
    associations:
      - name: organizer
        target: Organizer
        nullable: true
`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(fixture))
	require.NoError(t, err)
	assert.Equal(t, "model", def.Package)
	require.Len(t, def.Entities, 2)

	org := def.Entities[0]
	assert.Equal(t, "ORGANIZER_TABLE", org.Table)
	// The default primary key is a database-generated int64.
	require.NotNil(t, org.ID)
	assert.Equal(t, "id", org.ID.Name)
	assert.Equal(t, "int64", org.ID.Type)
	assert.Equal(t, "database", org.ID.Generated)

	ev := def.Entities[1]
	assert.Equal(t, "events", ev.Table)
	require.Len(t, ev.Associations, 1)
	assert.Equal(t, "organizer_id", ev.Associations[0].Column)
}

func TestParseErrors(t *testing.T) {
	for _, tt := range []struct {
		name string
		data string
		want string
	}{
		{"empty", "package: model", "no entities"},
		{"unnamed entity", "entities:\n  - table: t", "entity without a name"},
		{
			"duplicate entity",
			"entities:\n  - name: A\n  - name: A",
			"defined twice",
		},
		{
			"bad type",
			"entities:\n  - name: A\n    attributes:\n      - name: x\n        type: decimal",
			`unsupported type "decimal"`,
		},
		{
			"bad generator",
			"entities:\n  - name: A\n    attributes:\n      - name: x\n        type: string\n        generated: sequence",
			`unknown generator "sequence"`,
		},
		{
			"dangling target",
			"entities:\n  - name: A\n    associations:\n      - name: b\n        target: B",
			`targets undefined entity "B"`,
		},
		{"bad yaml", "entities: [", "parse definitions"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.ErrorContains(t, err, tt.want)
		})
	}
}
