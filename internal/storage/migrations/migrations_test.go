package migrations

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	input := `-- header
CREATE TABLE a (x Int32);

-- second
CREATE TABLE b (
    y String
);
`
	stmts := splitStatements(input)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (x Int32)" {
		t.Errorf("unexpected first statement %q", stmts[0])
	}
	if !strings.HasPrefix(stmts[1], "CREATE TABLE b") {
		t.Errorf("unexpected second statement %q", stmts[1])
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	if err := validateNoSemicolonInStrings("SELECT 'it''s'; SELECT 1;"); err != nil {
		t.Errorf("expected escaped quote to pass, got %v", err)
	}
	err := validateNoSemicolonInStrings("SELECT 'a;b';")
	if !errors.Is(err, ErrSemicolonInString) {
		t.Errorf("expected ErrSemicolonInString, got %v", err)
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/signals")
	if err != nil || db != "signals" {
		t.Errorf("expected signals, got %q (%v)", db, err)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for DSN without database")
	}
}

func TestEmbeddedMigrationsSplit(t *testing.T) {
	for _, dir := range []string{"postgres", "clickhouse"} {
		fsys := PostgresFS
		if dir == "clickhouse" {
			fsys = ClickhouseFS
		}
		files, err := sqlFiles(fsys, dir)
		if err != nil {
			t.Fatalf("list %s migrations: %v", dir, err)
		}
		if len(files) < 2 {
			t.Fatalf("expected at least 2 %s migrations, got %v", dir, files)
		}
		for _, f := range files {
			data, err := fsys.ReadFile(f)
			if err != nil {
				t.Fatalf("read %s: %v", f, err)
			}
			if err := validateNoSemicolonInStrings(string(data)); err != nil {
				t.Errorf("%s: %v", f, err)
			}
			if len(splitStatements(string(data))) == 0 {
				t.Errorf("%s: no statements", f)
			}
		}
	}
}
