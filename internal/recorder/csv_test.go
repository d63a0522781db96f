package recorder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCsvAppenderWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ticks.csv")

	a, err := OpenCsvAppender(path, []string{"a", "b"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := a.WriteRecord([]string{"1", "2"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := OpenCsvAppender(path, []string{"a", "b"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := b.WriteRecord([]string{"3", "4"}); err != nil {
		t.Fatalf("write after reopen: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines (header + 2 rows), got %d: %v", len(lines), lines)
	}
	if lines[0] != "a,b" {
		t.Fatalf("header = %q, want a,b", lines[0])
	}
}

func TestCsvAppenderRotatesOnSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.csv")

	if err := os.WriteFile(path, []byte("old,header\nfoo,bar\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	a, err := OpenCsvAppender(path, []string{"new", "header"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	var sawBackup bool
	for _, e := range entries {
		if strings.Contains(e.Name(), "schema_mismatch") {
			sawBackup = true
		}
	}
	if !sawBackup {
		t.Fatal("expected a schema_mismatch backup file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "new,header") {
		t.Fatalf("expected fresh file to start with new header, got %q", string(data))
	}
}
