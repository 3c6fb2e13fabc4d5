package schema

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDGenerator(t *testing.T) {
	g := UUID()
	a, err := g.Generate(context.Background())
	require.NoError(t, err)
	b, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, a)
	assert.NotEqual(t, a, b)
}

func TestNowGenerator(t *testing.T) {
	v, err := Now().Generate(context.Background())
	require.NoError(t, err)
	ts, ok := v.(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.UTC, ts.Location())
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestDatabaseGenerated(t *testing.T) {
	assert.True(t, IsDatabaseGenerated(Database()))
	assert.False(t, IsDatabaseGenerated(UUID()))

	v, err := Database().Generate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestGeneratorFunc(t *testing.T) {
	g := GeneratorFunc(func(context.Context) (any, error) { return 7, nil })
	v, err := g.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
