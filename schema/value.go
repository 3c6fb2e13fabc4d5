package schema

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Generator controls whether and how an attribute value is produced:
// either in application memory by a Go function, or by the database
// engine (in which case the column is omitted from the insert and read
// back afterwards).
type Generator interface {
	// Generate produces the attribute value. Database-side generators
	// never have their Generate method called.
	Generate(ctx context.Context) (any, error)
}

// Timing controls when a generated attribute is produced.
type Timing int

const (
	// OnInsert generates the value when the entity is first persisted.
	OnInsert Timing = iota
	// Always generates the value on every write.
	Always
)

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context) (any, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context) (any, error) {
	return f(ctx)
}

// UUID returns a generator producing random UUIDs in memory.
func UUID() Generator {
	return GeneratorFunc(func(context.Context) (any, error) {
		return uuid.New(), nil
	})
}

// Now returns a generator producing the current UTC time in memory.
func Now() Generator {
	return GeneratorFunc(func(context.Context) (any, error) {
		return time.Now().UTC(), nil
	})
}

type databaseGenerated struct{}

func (databaseGenerated) Generate(context.Context) (any, error) {
	return nil, nil
}

// Database returns the marker generator for values produced by the
// database engine: auto-increment keys, column defaults, triggers.
// The column is omitted from inserts; generated keys are read back
// through RETURNING or the driver's last-insert id.
func Database() Generator {
	return databaseGenerated{}
}

// IsDatabaseGenerated reports whether the generator marks a
// database-produced value.
func IsDatabaseGenerated(g Generator) bool {
	_, ok := g.(databaseGenerated)
	return ok
}
