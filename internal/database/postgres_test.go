package database

import (
	"testing"
	"testing/fstest"
)

func TestMigrationVersion(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"001_client_storage.sql", 1},
		{"012_add_index.sql", 12},
		{"embed.go", 0},
		{"README.md", 0},
		{"abc_bad.sql", 0},
		{"001-nounderscore.sql", 0},
		{"001_notes.txt", 0},
	}

	for _, tc := range tests {
		if got := migrationVersion(tc.name); got != tc.want {
			t.Errorf("migrationVersion(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestPendingOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"010_later.sql":  {Data: []byte("SELECT 1")},
		"002_second.sql": {Data: []byte("SELECT 1")},
		"001_first.sql":  {Data: []byte("SELECT 1")},
		"embed.go":       {Data: []byte("package migrations")},
	}

	got, err := pendingOrder(fsys)
	if err != nil {
		t.Fatalf("pendingOrder: %v", err)
	}

	want := []string{"001_first.sql", "002_second.sql", "010_later.sql"}
	if len(got) != len(want) {
		t.Fatalf("got %d migrations, want %d", len(got), len(want))
	}
	for i, m := range got {
		if m.name != want[i] {
			t.Errorf("migration %d = %s, want %s", i, m.name, want[i])
		}
	}
}
