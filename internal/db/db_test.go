package db

import (
	"path/filepath"
	"testing"
)

func TestDetectDialectFromDSN(t *testing.T) {
	cases := []struct {
		dsn     string
		dialect string
		wantErr bool
	}{
		{dsn: "postgres://u:p@localhost:5432/cliqued", dialect: DialectPostgres},
		{dsn: "postgresql://localhost/cliqued", dialect: DialectPostgres},
		{dsn: "host=localhost user=cliqued dbname=cliqued", dialect: DialectPostgres},
		{dsn: "data/cliqued.db", dialect: DialectSQLite},
		{dsn: "file:cliqued.db?cache=shared", dialect: DialectSQLite},
		{dsn: "sqlite://data/cliqued.db", dialect: DialectSQLite},
		{dsn: "mysql://localhost/cliqued", wantErr: true},
	}
	for _, tc := range cases {
		dialect, err := detectDialectFromDSN(tc.dsn)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%s: expected error, got %s", tc.dsn, dialect)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tc.dsn, err)
			continue
		}
		if dialect != tc.dialect {
			t.Errorf("%s: expected %s, got %s", tc.dsn, tc.dialect, dialect)
		}
	}
}

func TestNormalizeSQLiteDSN(t *testing.T) {
	if got := normalizeSQLiteDSN("sqlite://data/app.db"); got != "file:data/app.db" {
		t.Fatalf("unexpected dsn: %q", got)
	}
	if got := normalizeSQLiteDSN("file:app.db?mode=memory"); got != "file:app.db?mode=memory" {
		t.Fatalf("unexpected dsn: %q", got)
	}
}

func TestSQLitePathFromDSN(t *testing.T) {
	if got := sqlitePathFromDSN("file:data/app.db?cache=shared"); got != "data/app.db" {
		t.Fatalf("unexpected path: %q", got)
	}
	if got := sqlitePathFromDSN("file::memory:"); got != "" {
		t.Fatalf("expected empty path for memory dsn, got %q", got)
	}
	if got := sqlitePathFromDSN(":memory:"); got != "" {
		t.Fatalf("expected empty path for memory dsn, got %q", got)
	}
}

func TestOpenSQLiteAndDialectHelpers(t *testing.T) {
	conn, errOpen := Open(filepath.Join(t.TempDir(), "nested", "app.db"))
	if errOpen != nil {
		t.Fatalf("open: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("sql db: %v", errDB)
	}
	defer sqlDB.Close()

	if !IsSQLite(conn) {
		t.Fatalf("expected sqlite dialect, got %s", DialectName(conn))
	}
	if expr := CaseInsensitiveLikeExpr(conn, "name"); expr != "LOWER(name) LIKE ?" {
		t.Fatalf("unexpected like expr: %q", expr)
	}
	if got := NormalizeLikePattern(conn, "%Trip%"); got != "%trip%" {
		t.Fatalf("unexpected pattern: %q", got)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
}
