package database

import (
	"testing"
	"time"
)

func TestDialectFor(t *testing.T) {
	tests := []struct {
		driver  string
		want    Dialect
		wantErr bool
	}{
		{"postgres", Postgres, false},
		{"pgx", Postgres, false},
		{"sqlite3", SQLite, false},
		{"mysql", "", true},
	}
	for _, tt := range tests {
		got, err := DialectFor(tt.driver)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("DialectFor(%q) = %q, %v", tt.driver, got, err)
		}
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT id FROM ride_groups WHERE id = $1 AND status = $2"
	if got := Rebind(Postgres, q); got != q {
		t.Errorf("postgres rebind changed query: %s", got)
	}
	want := "SELECT id FROM ride_groups WHERE id = ?1 AND status = ?2"
	if got := Rebind(SQLite, q); got != want {
		t.Errorf("sqlite rebind = %s", got)
	}
}

func TestSQLiteDSN(t *testing.T) {
	got := sqliteDSN("file:rides.db", 1500*time.Millisecond)
	want := "file:rides.db?_txlock=immediate&_foreign_keys=1&_busy_timeout=1500"
	if got != want {
		t.Errorf("sqliteDSN = %s", got)
	}

	got = sqliteDSN("file:rides.db?_txlock=deferred", time.Second)
	want = "file:rides.db?_txlock=deferred&_foreign_keys=1&_busy_timeout=1000"
	if got != want {
		t.Errorf("sqliteDSN keeps explicit params: %s", got)
	}
}
