package store

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18",
		postgres.WithDatabase("tpmhub_test"),
		postgres.WithUsername("tpmhub_test"),
		postgres.WithPassword("tpmhub_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping: %v", err)
	}
	return db
}

func TestPGStoreRoundTrip(t *testing.T) {
	db := setupPostgres(t)
	s := NewPGStore(db)
	schema := testSchema()

	table, err := s.Load(schema)
	if err != nil {
		t.Fatalf("Failed to load fresh table: %v", err)
	}
	if len(table.Rows) != 0 {
		t.Fatalf("Expected empty table, got %d rows", len(table.Rows))
	}

	table.Append(Row{"id": "1", "created_on": "2024-05-01", "points": "10"})
	table.Append(Row{"id": "2", "created_on": "2024-05-02", "points": "0"})
	if err := s.Save(schema, table); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := s.Load(schema)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if !reflect.DeepEqual(loaded.Rows, table.Rows) {
		t.Errorf("Round trip mismatch:\nsaved  %+v\nloaded %+v", table.Rows, loaded.Rows)
	}
}

func TestPGStoreMigratesLegacyColumns(t *testing.T) {
	db := setupPostgres(t)
	s := NewPGStore(db)

	// Simulate a table created by an older deployment: alias column
	// names and no points column.
	_, err := db.Exec(`CREATE TABLE things (seq BIGSERIAL PRIMARY KEY, id TEXT NOT NULL DEFAULT '', date TEXT NOT NULL DEFAULT '')`)
	if err != nil {
		t.Fatalf("Failed to create legacy table: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO things (id, date) VALUES ('1', '2024-05-01')`); err != nil {
		t.Fatalf("Failed to seed legacy table: %v", err)
	}

	table, err := s.Load(testSchema())
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(table.Rows))
	}
	row := table.Rows[0]
	if row.Get("created_on") != "2024-05-01" {
		t.Errorf("Expected renamed created_on, row: %+v", row)
	}
	if row.Get("points") != "0" {
		t.Errorf("Expected backfilled points default, row: %+v", row)
	}
}

func TestPGStoreUpdate(t *testing.T) {
	db := setupPostgres(t)
	s := NewPGStore(db)
	schema := testSchema()

	err := s.Update(schema, func(t *Table) error {
		t.Append(Row{"id": "1", "created_on": "2024-05-01", "points": "5"})
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	table, err := s.Load(schema)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0].Get("points") != "5" {
		t.Errorf("Unexpected table after update: %+v", table.Rows)
	}
}
