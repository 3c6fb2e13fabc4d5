package sql

// Typed column helpers for building predicates without going through
// the textual query language. Generated metadata packages declare one
// constant per mapped column:
//
//	const Name = sql.StringField("t0.name")
//	sel.Where(Name.Contains("event"))
type (
	// StringField is a string-valued column.
	StringField string
	// IntField is an integer-valued column.
	IntField string
	// Int64Field is an int64-valued column.
	Int64Field string
	// Float64Field is a float64-valued column.
	Float64Field string
	// BoolField is a boolean column.
	BoolField string
	// TimeField is a time-valued column. T is the time type.
	TimeField[T any] string
)

// Name returns the column name.
func (f StringField) Name() string { return string(f) }

// EQ returns a field = value predicate.
func (f StringField) EQ(v string) *Predicate { return EQ(string(f), v) }

// NEQ returns a field <> value predicate.
func (f StringField) NEQ(v string) *Predicate { return NEQ(string(f), v) }

// In returns a field IN (...) predicate.
func (f StringField) In(vs ...string) *Predicate { return In(string(f), anys(vs)...) }

// NotIn returns a field NOT IN (...) predicate.
func (f StringField) NotIn(vs ...string) *Predicate { return NotIn(string(f), anys(vs)...) }

// GT returns a field > value predicate.
func (f StringField) GT(v string) *Predicate { return GT(string(f), v) }

// LT returns a field < value predicate.
func (f StringField) LT(v string) *Predicate { return LT(string(f), v) }

// Contains returns a field LIKE %v% predicate.
func (f StringField) Contains(v string) *Predicate { return Like(string(f), "%"+v+"%") }

// HasPrefix returns a field LIKE v% predicate.
func (f StringField) HasPrefix(v string) *Predicate { return Like(string(f), v+"%") }

// HasSuffix returns a field LIKE %v predicate.
func (f StringField) HasSuffix(v string) *Predicate { return Like(string(f), "%"+v) }

// IsNull returns a field IS NULL predicate.
func (f StringField) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a field IS NOT NULL predicate.
func (f StringField) NotNull() *Predicate { return NotNull(string(f)) }

// Name returns the column name.
func (f IntField) Name() string { return string(f) }

// EQ returns a field = value predicate.
func (f IntField) EQ(v int) *Predicate { return EQ(string(f), v) }

// NEQ returns a field <> value predicate.
func (f IntField) NEQ(v int) *Predicate { return NEQ(string(f), v) }

// In returns a field IN (...) predicate.
func (f IntField) In(vs ...int) *Predicate { return In(string(f), anys(vs)...) }

// NotIn returns a field NOT IN (...) predicate.
func (f IntField) NotIn(vs ...int) *Predicate { return NotIn(string(f), anys(vs)...) }

// GT returns a field > value predicate.
func (f IntField) GT(v int) *Predicate { return GT(string(f), v) }

// GTE returns a field >= value predicate.
func (f IntField) GTE(v int) *Predicate { return GTE(string(f), v) }

// LT returns a field < value predicate.
func (f IntField) LT(v int) *Predicate { return LT(string(f), v) }

// LTE returns a field <= value predicate.
func (f IntField) LTE(v int) *Predicate { return LTE(string(f), v) }

// Between returns a field BETWEEN lo AND hi predicate.
func (f IntField) Between(lo, hi int) *Predicate { return Between(string(f), lo, hi) }

// IsNull returns a field IS NULL predicate.
func (f IntField) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a field IS NOT NULL predicate.
func (f IntField) NotNull() *Predicate { return NotNull(string(f)) }

// Name returns the column name.
func (f Int64Field) Name() string { return string(f) }

// EQ returns a field = value predicate.
func (f Int64Field) EQ(v int64) *Predicate { return EQ(string(f), v) }

// NEQ returns a field <> value predicate.
func (f Int64Field) NEQ(v int64) *Predicate { return NEQ(string(f), v) }

// In returns a field IN (...) predicate.
func (f Int64Field) In(vs ...int64) *Predicate { return In(string(f), anys(vs)...) }

// NotIn returns a field NOT IN (...) predicate.
func (f Int64Field) NotIn(vs ...int64) *Predicate { return NotIn(string(f), anys(vs)...) }

// GT returns a field > value predicate.
func (f Int64Field) GT(v int64) *Predicate { return GT(string(f), v) }

// GTE returns a field >= value predicate.
func (f Int64Field) GTE(v int64) *Predicate { return GTE(string(f), v) }

// LT returns a field < value predicate.
func (f Int64Field) LT(v int64) *Predicate { return LT(string(f), v) }

// LTE returns a field <= value predicate.
func (f Int64Field) LTE(v int64) *Predicate { return LTE(string(f), v) }

// Between returns a field BETWEEN lo AND hi predicate.
func (f Int64Field) Between(lo, hi int64) *Predicate { return Between(string(f), lo, hi) }

// IsNull returns a field IS NULL predicate.
func (f Int64Field) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a field IS NOT NULL predicate.
func (f Int64Field) NotNull() *Predicate { return NotNull(string(f)) }

// Name returns the column name.
func (f Float64Field) Name() string { return string(f) }

// EQ returns a field = value predicate.
func (f Float64Field) EQ(v float64) *Predicate { return EQ(string(f), v) }

// NEQ returns a field <> value predicate.
func (f Float64Field) NEQ(v float64) *Predicate { return NEQ(string(f), v) }

// GT returns a field > value predicate.
func (f Float64Field) GT(v float64) *Predicate { return GT(string(f), v) }

// GTE returns a field >= value predicate.
func (f Float64Field) GTE(v float64) *Predicate { return GTE(string(f), v) }

// LT returns a field < value predicate.
func (f Float64Field) LT(v float64) *Predicate { return LT(string(f), v) }

// LTE returns a field <= value predicate.
func (f Float64Field) LTE(v float64) *Predicate { return LTE(string(f), v) }

// IsNull returns a field IS NULL predicate.
func (f Float64Field) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a field IS NOT NULL predicate.
func (f Float64Field) NotNull() *Predicate { return NotNull(string(f)) }

// Name returns the column name.
func (f BoolField) Name() string { return string(f) }

// EQ returns a field = value predicate.
func (f BoolField) EQ(v bool) *Predicate { return EQ(string(f), v) }

// NEQ returns a field <> value predicate.
func (f BoolField) NEQ(v bool) *Predicate { return NEQ(string(f), v) }

// IsNull returns a field IS NULL predicate.
func (f BoolField) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a field IS NOT NULL predicate.
func (f BoolField) NotNull() *Predicate { return NotNull(string(f)) }

// Name returns the column name.
func (f TimeField[T]) Name() string { return string(f) }

// EQ returns a field = value predicate.
func (f TimeField[T]) EQ(v T) *Predicate { return EQ(string(f), v) }

// NEQ returns a field <> value predicate.
func (f TimeField[T]) NEQ(v T) *Predicate { return NEQ(string(f), v) }

// GT returns a field > value predicate.
func (f TimeField[T]) GT(v T) *Predicate { return GT(string(f), v) }

// GTE returns a field >= value predicate.
func (f TimeField[T]) GTE(v T) *Predicate { return GTE(string(f), v) }

// LT returns a field < value predicate.
func (f TimeField[T]) LT(v T) *Predicate { return LT(string(f), v) }

// LTE returns a field <= value predicate.
func (f TimeField[T]) LTE(v T) *Predicate { return LTE(string(f), v) }

// Between returns a field BETWEEN lo AND hi predicate.
func (f TimeField[T]) Between(lo, hi T) *Predicate { return Between(string(f), lo, hi) }

// IsNull returns a field IS NULL predicate.
func (f TimeField[T]) IsNull() *Predicate { return IsNull(string(f)) }

// NotNull returns a field IS NOT NULL predicate.
func (f TimeField[T]) NotNull() *Predicate { return NotNull(string(f)) }

func anys[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i := range vs {
		out[i] = vs[i]
	}
	return out
}
