package migrations

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

var exampleMigrations = []Migration{
	{
		Version:     1,
		Description: "Add example table",
		Up:          `CREATE TABLE example (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
	},
	{
		Version:     2,
		Description: "Add example index",
		Up:          `CREATE INDEX idx_example_name ON example(name)`,
	},
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	manager := NewManager(exampleMigrations...)

	applied, err := manager.Apply(ctx, db)
	if err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	if applied != 2 {
		t.Errorf("expected 2 migrations applied, got %d", applied)
	}

	version, err := Version(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}

	if _, err := db.Exec("INSERT INTO example (id, name) VALUES (1, 'test')"); err != nil {
		t.Fatalf("example table not created: %v", err)
	}

	// Re-applying is a no-op
	applied, err = manager.Apply(ctx, db)
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	if applied != 0 {
		t.Errorf("expected no migrations on second apply, got %d", applied)
	}
}

func TestApply_RejectsNewerSchema(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, err := NewManager(exampleMigrations...).Apply(ctx, db); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	// An older build only knows version 1
	applied, err := NewManager(exampleMigrations[0]).Apply(ctx, db)
	if !errors.Is(err, ErrNewerSchema) {
		t.Fatalf("expected ErrNewerSchema, got %v", err)
	}
	if applied != 0 {
		t.Errorf("expected no migrations applied, got %d", applied)
	}
	if version, _ := Version(ctx, db); version != 2 {
		t.Errorf("expected version to stay 2, got %d", version)
	}
}

func TestApply_FailedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	manager := NewManager(exampleMigrations[0], Migration{Version: 2, Description: "broken", Up: "CREATE TABLE ("})

	applied, err := manager.Apply(ctx, db)
	if err == nil {
		t.Fatal("expected error from broken migration")
	}
	if applied != 1 {
		t.Errorf("expected 1 migration applied before failure, got %d", applied)
	}
	if version, _ := Version(ctx, db); version != 1 {
		t.Errorf("expected version 1, got %d", version)
	}
}

func TestMigrationOrdering(t *testing.T) {
	manager := NewManager(
		Migration{Version: 3, Description: "Third"},
		Migration{Version: 1, Description: "First"},
		Migration{Version: 2, Description: "Second"},
	)

	manager.sortMigrations()

	if len(manager.migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(manager.migrations))
	}
	for i, m := range manager.migrations {
		if m.Version != i+1 {
			t.Errorf("expected migration %d at index %d, got %d", i+1, i, m.Version)
		}
	}
	if manager.Latest() != 3 {
		t.Errorf("expected latest 3, got %d", manager.Latest())
	}
}
