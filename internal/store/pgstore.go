package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/lib/pq"
)

// PGStore implements the same whole-table contract on Postgres, for
// deployments that outgrow the CSV files. Each logical table is a SQL
// table of text columns plus a serial ordinal that preserves row
// order. Save replaces the table contents in one transaction, which is
// the engine's equivalent of the temp-file-then-rename replace.
type PGStore struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPGStore returns a store over an open connection.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *PGStore) tableLock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// Load reads all rows in insertion order, creating or migrating the
// table first so the expected columns are always present.
func (s *PGStore) Load(schema Schema) (*Table, error) {
	l := s.tableLock(schema.Name)
	l.Lock()
	defer l.Unlock()
	return s.load(schema)
}

// Save replaces the whole table in one transaction.
func (s *PGStore) Save(schema Schema, t *Table) error {
	l := s.tableLock(schema.Name)
	l.Lock()
	defer l.Unlock()
	return s.save(schema, t)
}

// Update serializes writers per table, same policy as the file store.
func (s *PGStore) Update(schema Schema, mutate func(*Table) error) error {
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

func (s *PGStore) load(schema Schema) (*Table, error) {
	if err := s.migrate(schema); err != nil {
		return nil, err
	}

	cols := schema.ColumnNames()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY seq",
		strings.Join(quoted, ", "), pq.QuoteIdentifier(schema.Name))

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to load table %s: %w", schema.Name, err)
	}
	defer rows.Close()

	t := &Table{Columns: cols}
	values := make([]sql.NullString, len(cols))
	scan := make([]any, len(cols))
	for i := range values {
		scan[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", schema.Name, err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = values[i].String
		}
		t.Append(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", schema.Name, err)
	}
	return t, nil
}

func (s *PGStore) save(schema Schema, t *Table) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin save of %s: %w", schema.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("TRUNCATE " + pq.QuoteIdentifier(schema.Name) + " RESTART IDENTITY"); err != nil {
		return fmt.Errorf("failed to clear table %s: %w", schema.Name, err)
	}

	cols := schema.ColumnNames()
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pq.QuoteIdentifier(schema.Name),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))

	stmt, err := tx.Prepare(insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert for %s: %w", schema.Name, err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for _, row := range t.Rows {
		for i, c := range cols {
			args[i] = row.Get(c)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert row into %s: %w", schema.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save of %s: %w", schema.Name, err)
	}
	return nil
}

// migrate creates the table if needed, renames legacy alias columns
// and adds missing columns with their defaults.
func (s *PGStore) migrate(schema Schema) error {
	defs := []string{"seq BIGSERIAL PRIMARY KEY"}
	for _, c := range schema.Columns {
		defs = append(defs, fmt.Sprintf("%s TEXT NOT NULL DEFAULT %s",
			pq.QuoteIdentifier(c.Name), quoteLiteral(c.Default)))
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pq.QuoteIdentifier(schema.Name), strings.Join(defs, ", "))
	if _, err := s.db.Exec(create); err != nil {
		return fmt.Errorf("failed to create table %s: %w", schema.Name, err)
	}

	existing, err := s.columnSet(schema.Name)
	if err != nil {
		return err
	}

	for _, c := range schema.Columns {
		if existing[c.Name] {
			continue
		}
		renamed := false
		for _, alias := range c.Aliases {
			if !existing[alias] {
				continue
			}
			rename := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
				pq.QuoteIdentifier(schema.Name), pq.QuoteIdentifier(alias), pq.QuoteIdentifier(c.Name))
			if _, err := s.db.Exec(rename); err != nil {
				return fmt.Errorf("failed to rename column %s.%s: %w", schema.Name, alias, err)
			}
			renamed = true
			break
		}
		if renamed {
			continue
		}
		add := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s TEXT NOT NULL DEFAULT %s",
			pq.QuoteIdentifier(schema.Name), pq.QuoteIdentifier(c.Name), quoteLiteral(c.Default))
		if _, err := s.db.Exec(add); err != nil {
			return fmt.Errorf("failed to add column %s.%s: %w", schema.Name, c.Name, err)
		}
	}
	return nil
}

func (s *PGStore) columnSet(table string) (map[string]bool, error) {
	rows, err := s.db.Query(
		`SELECT column_name FROM information_schema.columns WHERE table_name = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
