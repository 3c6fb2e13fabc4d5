package gen

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	def, err := Parse([]byte(fixture))
	require.NoError(t, err)

	out := t.TempDir()
	require.NoError(t, Generate(def, out))

	event := readFile(t, filepath.Join(out, "event.go"))
	assert.Contains(t, event, header)
	assert.Contains(t, event, "package model")
	assert.Contains(t, event, "type Event struct {")
	assert.Contains(t, event, "ID int64")
	assert.Contains(t, event, "CreatedAt time.Time")
	assert.Contains(t, event, "Organizer *Organizer")
	assert.Contains(t, event, "OrganizerID sql.NullInt64")
	assert.Contains(t, event, "var EventFields = struct {")
	assert.Contains(t, event, "func EventType() *schema.Type {")
	assert.Contains(t, event, `Name: "organizer"`)
	assert.Contains(t, event, "schema.UUID()")
	assert.Contains(t, event, "schema.Now()")
	assert.Contains(t, event, "Ref uuid.UUID")
	// The uuid attribute has no typed field kind.
	assert.NotContains(t, event, `Ref: "ref"`)

	organizer := readFile(t, filepath.Join(out, "organizer.go"))
	assert.Contains(t, organizer, `Table: "ORGANIZER_TABLE"`)
	assert.Contains(t, organizer, "schema.Database()")
	assert.Contains(t, organizer, "Unique: true")

	registry := readFile(t, filepath.Join(out, "registry.go"))
	assert.Contains(t, registry, "func NewRegistry() (*schema.Registry, error) {")
	assert.Contains(t, registry, "OrganizerType()")
	assert.Contains(t, registry, "EventType()")
}

func TestWatchRegenerates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	regenerated := make(chan *Definition, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(def *Definition) error {
			select {
			case regenerated <- def:
			default:
			}
			return nil
		})
	}()

	// Give the watcher a moment to register, then touch the file.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	select {
	case def := <-regenerated:
		assert.Len(t, def.Entities, 2)
	case <-ctx.Done():
		t.Fatal("watcher did not regenerate")
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

var alignment = regexp.MustCompile(`[ \t]+`)

// readFile returns the file contents with gofmt column alignment
// collapsed, so assertions can match single-spaced snippets.
func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return alignment.ReplaceAllString(string(data), " ")
}
