package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func withMigrations(t *testing.T, fsys fstest.MapFS) {
	t.Helper()
	origFS, origDir := registeredMigrations()
	RegisterMigrations(fsys, ".")
	t.Cleanup(func() { RegisterMigrations(origFS, origDir) })
}

func TestMigrate(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20261018_120000_readings.up.sql":   {Data: []byte("CREATE TABLE readings (id TEXT PRIMARY KEY);")},
		"20261018_120000_readings.down.sql": {Data: []byte("DROP TABLE readings;")},
		"20261019_090000_notes.up.sql":      {Data: []byte("CREATE TABLE notes (id TEXT);")},
		"README.md":                         {Data: []byte("ignored")},
	})

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{"readings", "notes"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Fatalf("applied=%d pending=%d, want 2/0", len(applied), len(pending))
	}
	if applied[0].Version != "20261018_120000" {
		t.Errorf("first applied = %s, want oldest first", applied[0].Version)
	}

	// Idempotent.
	if err := db.Migrate(ctx); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureStopsBatch(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20261018_120000_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id TEXT);")},
		"20261018_130000_broken.up.sql": {Data: []byte("CREATE TABL broken;")},
		"20261018_140000_later.up.sql":  {Data: []byte("CREATE TABLE later (id TEXT);")},
	})

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() expected error for broken migration")
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 2 {
		t.Errorf("applied=%d pending=%d, want 1/2", len(applied), len(pending))
	}
}

func TestMigrate_NoneRegistered(t *testing.T) {
	origFS, origDir := registeredMigrations()
	RegisterMigrations(nil, ".")
	t.Cleanup(func() { RegisterMigrations(origFS, origDir) })

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() with no migrations error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20261018_120000_decision_log.up.sql", "20261018_120000", "decision_log", true, true},
		{"20261018_120000_decision_log.down.sql", "20261018_120000", "decision_log", false, true},
		{"20261018_120000.up.sql", "20261018_120000", "20261018_120000", true, true},
		{"20261018.up.sql", "", "", false, false},
		{"20261018_120000_schema.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || isUp != tt.wantUp {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)",
					version, name, isUp, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
