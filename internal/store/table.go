package store

import (
	"strconv"
	"strings"
	"time"
)

// Row is one record of a table. Every value is text; callers coerce.
type Row map[string]string

// Get returns the value of a column, or "" when absent.
func (r Row) Get(column string) string {
	return r[column]
}

// Table is a whole persisted table held in memory. Rows keep the order
// they were loaded in; aggregates rely on that order for stable sorts.
type Table struct {
	Columns []string
	Rows    []Row
}

// Append adds a row to the end of the table.
func (t *Table) Append(row Row) {
	t.Rows = append(t.Rows, row)
}

// FindIndex returns the index of the first row whose column equals
// value, or -1.
func (t *Table) FindIndex(column, value string) int {
	for i, row := range t.Rows {
		if row.Get(column) == value {
			return i
		}
	}
	return -1
}

// DeleteIndex removes the row at index i.
func (t *Table) DeleteIndex(i int) {
	if i < 0 || i >= len(t.Rows) {
		return
	}
	t.Rows = append(t.Rows[:i], t.Rows[i+1:]...)
}

// Column describes one column of a schema. Aliases are legacy header
// names that are renamed to Name when seen on load.
type Column struct {
	Name    string
	Default string
	Aliases []string
}

// Schema names a table and enumerates its expected columns.
type Schema struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the canonical column names in schema order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// canonical maps a loaded header name to its canonical column name, or
// returns the input unchanged when it is not a known alias.
func (s Schema) canonical(header string) string {
	for _, c := range s.Columns {
		for _, alias := range c.Aliases {
			if alias == header {
				return c.Name
			}
		}
	}
	return header
}

// Migrate normalizes a loaded table against the schema: legacy headers
// are renamed and missing columns are backfilled with their defaults.
// It reports whether the table changed and must be persisted.
func (s Schema) Migrate(t *Table) bool {
	changed := false

	// Rename alias columns in place.
	for i, col := range t.Columns {
		canon := s.canonical(col)
		if canon == col {
			continue
		}
		t.Columns[i] = canon
		for _, row := range t.Rows {
			if v, ok := row[col]; ok {
				row[canon] = v
				delete(row, col)
			}
		}
		changed = true
	}

	// Backfill missing columns.
	present := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		present[col] = true
	}
	for _, c := range s.Columns {
		if present[c.Name] {
			continue
		}
		t.Columns = append(t.Columns, c.Name)
		for _, row := range t.Rows {
			row[c.Name] = c.Default
		}
		changed = true
	}

	return changed
}

// Empty returns a fresh table with exactly the schema's columns.
func (s Schema) Empty() *Table {
	return &Table{Columns: s.ColumnNames()}
}

// Store is the persistence contract the rest of the system depends on.
// Save must replace the whole table atomically; Update serializes
// writers per table so that concurrent mutations cannot lose each
// other's changes (single-writer policy).
type Store interface {
	Load(schema Schema) (*Table, error)
	Save(schema Schema, t *Table) error
	Update(schema Schema, mutate func(*Table) error) error
}

// AsInt coerces a stored text value to an integer. Anything that does
// not parse counts as zero; reads stay fault tolerant.
func AsInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// DateLayout is the storage layout of creation dates.
const DateLayout = "2006-01-02"

// AsDate coerces a stored text value to a date. The second return is
// false when the value does not parse; callers treat that as "no date".
func AsDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TimeLayout is the storage layout of timestamps (sessions, audit).
const TimeLayout = time.RFC3339

// AsTime coerces a stored text value to a timestamp, zero on failure.
func AsTime(s string) time.Time {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
