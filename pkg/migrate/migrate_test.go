package migrate

import (
	"path/filepath"
	"runtime"
	"testing"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate package directory")
	}
	return filepath.Join(filepath.Dir(file), "migrations")
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := ValidateDir(migrationsDir(t)); err != nil {
		t.Fatalf("migrations directory invalid: %v", err)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Sample Table!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration does not validate: %v", err)
	}
	if filepath.Ext(path) != ".sql" {
		t.Fatalf("unexpected extension on %q", path)
	}
}
