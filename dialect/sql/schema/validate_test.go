package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entschema "github.com/fcjm/hibernate-orm/schema"
)

func tableFixture() []*Table {
	id := &Column{Name: "id", Type: entschema.TypeInt64, Increment: true}
	name := &Column{Name: "name", Type: entschema.TypeString, Size: 100}
	return []*Table{{
		Name:       "events",
		Columns:    []*Column{id, name},
		PrimaryKey: id,
	}}
}

func TestValidateDiffDroppedTable(t *testing.T) {
	current := tableFixture()
	result := ValidateDiff(current, nil)
	require.True(t, result.HasErrors())
	assert.True(t, result.HasBreakingChanges())
	assert.Contains(t, result.String(), "table will be dropped")

	result = ValidateDiff(current, nil, AllowDropTable())
	assert.False(t, result.HasErrors())
	assert.True(t, result.HasWarnings())
}

func TestValidateDiffDroppedColumn(t *testing.T) {
	current := tableFixture()
	desired := tableFixture()
	desired[0].Columns = desired[0].Columns[:1]
	result := ValidateDiff(current, desired)
	require.True(t, result.HasErrors())
	assert.Equal(t, "name", result.Errors[0].Column)

	result = ValidateDiff(current, desired, AllowDropColumn())
	assert.False(t, result.HasErrors())
}

func TestValidateDiffColumnChanges(t *testing.T) {
	current := tableFixture()
	desired := tableFixture()
	desired[0].Columns[1] = &Column{Name: "name", Type: entschema.TypeInt64, Size: 50, Unique: true}
	result := ValidateDiff(current, desired)
	assert.False(t, result.HasErrors())
	require.Len(t, result.Warnings, 3)
	assert.Contains(t, result.Warnings[0].Message, "type changing")
	assert.Contains(t, result.Warnings[1].Message, "size reducing")
	assert.Contains(t, result.Warnings[2].Message, "UNIQUE constraint")
}

func TestValidateDiffNullToNotNull(t *testing.T) {
	current := tableFixture()
	current[0].Columns[1].Nullable = true
	desired := tableFixture()
	result := ValidateDiff(current, desired)
	require.True(t, result.HasErrors())
	assert.True(t, result.Errors[0].Breaking)

	result = ValidateDiff(current, desired, AllowNullToNotNull())
	assert.False(t, result.HasErrors())
	assert.True(t, result.HasBreakingChanges())
}

func TestValidateDiffNewNotNullColumn(t *testing.T) {
	current := tableFixture()
	desired := tableFixture()
	desired[0].Columns = append(desired[0].Columns, &Column{Name: "venue", Type: entschema.TypeString})
	result := ValidateDiff(current, desired)
	assert.False(t, result.HasErrors())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "NOT NULL column")
}

func TestValidateTable(t *testing.T) {
	tbl := tableFixture()[0]
	result := ValidateTable(tbl)
	assert.False(t, result.HasErrors())
	assert.False(t, result.HasWarnings())

	tbl.Columns = append(tbl.Columns, &Column{Name: "name", Type: entschema.TypeString})
	result = ValidateTable(tbl)
	require.True(t, result.HasErrors())
	assert.Contains(t, result.Errors[0].Message, "duplicate column")

	result = ValidateTable(&Table{Name: "bare", Columns: []*Column{{Name: "x", Type: entschema.TypeInt64}}})
	assert.True(t, result.HasWarnings())
	assert.Contains(t, result.Warnings[0].Message, "no primary key")
}

func TestValidateSchema(t *testing.T) {
	tables := tableFixture()
	fkCol := &Column{Name: "organizer_id", Type: entschema.TypeInt64, Nullable: true}
	tables[0].Columns = append(tables[0].Columns, fkCol)
	tables[0].ForeignKeys = []*ForeignKey{{
		Symbol:    "events_organizer_id_fkey",
		Column:    fkCol,
		RefTable:  "organizers",
		RefColumn: "id",
	}}
	result := ValidateSchema(tables)
	require.True(t, result.HasErrors())
	assert.Contains(t, result.Errors[0].Message, `non-existent table "organizers"`)

	id := &Column{Name: "id", Type: entschema.TypeInt64, Increment: true}
	tables = append(tables, &Table{Name: "organizers", Columns: []*Column{id}, PrimaryKey: id})
	result = ValidateSchema(tables)
	assert.False(t, result.HasErrors())
}
