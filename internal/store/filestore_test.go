package store

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"sync"
	"testing"
)

func testSchema() Schema {
	return Schema{
		Name: "things",
		Columns: []Column{
			{Name: "id"},
			{Name: "created_on", Aliases: []string{"date"}},
			{Name: "points", Default: "0", Aliases: []string{"score"}},
		},
	}
}

func TestLoadMissingFileSelfHeals(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	schema := testSchema()
	table, err := s.Load(schema)
	if err != nil {
		t.Fatalf("Failed to load missing table: %v", err)
	}
	if len(table.Rows) != 0 {
		t.Errorf("Expected empty table, got %d rows", len(table.Rows))
	}
	if !reflect.DeepEqual(table.Columns, schema.ColumnNames()) {
		t.Errorf("Expected columns %v, got %v", schema.ColumnNames(), table.Columns)
	}

	// The empty table must have been persisted.
	if _, err := os.Stat(filepath.Join(dir, "things.csv")); err != nil {
		t.Errorf("Expected table file to exist: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	schema := testSchema()

	table := schema.Empty()
	table.Append(Row{"id": "1", "created_on": "2024-05-01", "points": "10"})
	table.Append(Row{"id": "2", "created_on": "2024-05-02", "points": ""})
	if err := s.Save(schema, table); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := s.Load(schema)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if !reflect.DeepEqual(loaded, table) {
		t.Errorf("Round trip mismatch:\nsaved  %+v\nloaded %+v", table, loaded)
	}
}

func TestLoadBackfillsMissingColumns(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// A legacy file without the points column.
	legacy := "id,created_on\n1,2024-05-01\n"
	if err := os.WriteFile(filepath.Join(dir, "things.csv"), []byte(legacy), 0o644); err != nil {
		t.Fatalf("Failed to write legacy file: %v", err)
	}

	table, err := s.Load(testSchema())
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if got := table.Rows[0].Get("points"); got != "0" {
		t.Errorf("Expected backfilled default '0', got %q", got)
	}

	// The migration must be persisted, not just applied in memory.
	data, err := os.ReadFile(filepath.Join(dir, "things.csv"))
	if err != nil {
		t.Fatalf("Failed to read migrated file: %v", err)
	}
	if string(data) != "id,created_on,points\n1,2024-05-01,0\n" {
		t.Errorf("Unexpected migrated file contents: %q", string(data))
	}
}

func TestLoadRenamesAliasColumns(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	legacy := "id,date,score\n1,2024-05-01,7\n"
	if err := os.WriteFile(filepath.Join(dir, "things.csv"), []byte(legacy), 0o644); err != nil {
		t.Fatalf("Failed to write legacy file: %v", err)
	}

	table, err := s.Load(testSchema())
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	row := table.Rows[0]
	if row.Get("created_on") != "2024-05-01" {
		t.Errorf("Expected alias 'date' renamed to 'created_on', row: %+v", row)
	}
	if row.Get("points") != "7" {
		t.Errorf("Expected alias 'score' renamed to 'points', row: %+v", row)
	}
	if row.Get("date") != "" || row.Get("score") != "" {
		t.Errorf("Legacy columns should be gone, row: %+v", row)
	}
}

func TestUpdateSerializesWriters(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	schema := testSchema()

	// Concurrent read-modify-write cycles must not lose increments.
	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := s.Update(schema, func(t *Table) error {
				t.Append(Row{"id": strconv.Itoa(n), "created_on": "", "points": "0"})
				return nil
			})
			if err != nil {
				t.Errorf("Update failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	table, err := s.Load(schema)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(table.Rows) != writers {
		t.Errorf("Expected %d rows after concurrent updates, got %d", writers, len(table.Rows))
	}
}

func TestCoercion(t *testing.T) {
	if got := AsInt("12"); got != 12 {
		t.Errorf("AsInt(\"12\") = %d", got)
	}
	if got := AsInt(" 12 "); got != 12 {
		t.Errorf("AsInt with spaces = %d", got)
	}
	for _, bad := range []string{"", "-", "abc", "1.5"} {
		if got := AsInt(bad); got != 0 {
			t.Errorf("AsInt(%q) = %d, want 0", bad, got)
		}
	}

	if _, ok := AsDate("2024-05-01"); !ok {
		t.Error("AsDate rejected a valid date")
	}
	if _, ok := AsDate("not a date"); ok {
		t.Error("AsDate accepted garbage")
	}
}
