package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists each table as one CSV file under a data directory.
// Saves write a temp file and rename it over the old one, so readers
// never observe a partially written table.
type FileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates the data directory if needed and returns a
// store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// tableLock returns the per-table mutex, creating it on first use.
func (s *FileStore) tableLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".csv")
}

// Load reads the whole table. A missing file self-heals into an empty
// table with the expected schema. Legacy headers are renamed and
// missing columns backfilled, and the migrated table is persisted
// immediately so the migration runs once.
func (s *FileStore) Load(schema Schema) (*Table, error) {
	l := s.tableLock(schema.Name)
	l.Lock()
	defer l.Unlock()
	return s.load(schema)
}

// Save overwrites the table atomically.
func (s *FileStore) Save(schema Schema, t *Table) error {
	l := s.tableLock(schema.Name)
	l.Lock()
	defer l.Unlock()
	return s.save(schema, t)
}

// Update runs a load-mutate-save cycle while holding the table's write
// lock, so concurrent mutations of one table are serialized instead of
// silently overwriting each other.
func (s *FileStore) Update(schema Schema, mutate func(*Table) error) error {
	l := s.tableLock(schema.Name)
	l.Lock()
	defer l.Unlock()

	t, err := s.load(schema)
	if err != nil {
		return err
	}
	if err := mutate(t); err != nil {
		return err
	}
	return s.save(schema, t)
}

// load and save assume the caller holds the table lock.

func (s *FileStore) load(schema Schema) (*Table, error) {
	f, err := os.Open(s.path(schema.Name))
	if os.IsNotExist(err) {
		t := schema.Empty()
		if err := s.save(schema, t); err != nil {
			return nil, err
		}
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", schema.Name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", schema.Name, err)
	}

	t := &Table{}
	if len(records) == 0 {
		t.Columns = schema.ColumnNames()
	} else {
		t.Columns = records[0]
		for _, rec := range records[1:] {
			row := make(Row, len(t.Columns))
			for i, col := range t.Columns {
				if i < len(rec) {
					row[col] = rec[i]
				} else {
					row[col] = ""
				}
			}
			t.Append(row)
		}
	}

	if schema.Migrate(t) {
		if err := s.save(schema, t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (s *FileStore) save(schema Schema, t *Table) error {
	tmp, err := os.CreateTemp(s.dir, schema.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", schema.Name, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Columns); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header for %s: %w", schema.Name, err)
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			rec[i] = row.Get(col)
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write row for %s: %w", schema.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush table %s: %w", schema.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", schema.Name, err)
	}

	if err := os.Rename(tmp.Name(), s.path(schema.Name)); err != nil {
		return fmt.Errorf("failed to replace table %s: %w", schema.Name, err)
	}
	return nil
}
