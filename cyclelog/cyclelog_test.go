package cyclelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"toteguard.dev/cycle"
)

func TestHeaderWrittenOnceOnCreation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cycles.csv")

	if _, err := New(path); err != nil {
		t.Fatal(err)
	}
	if _, err := New(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one header line across two New() calls, got %d lines: %q", len(lines), lines)
	}
	if lines[0] != header {
		t.Fatalf("header = %q, want %q", lines[0], header)
	}
}

func TestAppendFormatsRow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cycles.csv")
	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2026, 7, 31, 10, 0, 0, 0, time.Local)
	rec := cycle.Record{Start: start, End: start.Add(3500 * time.Millisecond), MeanCurrentA: 12.345678, Reason: cycle.Complete}
	if err := w.Append(rec); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	want := start.Format("2006-01-02T15:04:05") + "," + start.Add(3500*time.Millisecond).Format("2006-01-02T15:04:05") + ",3.500,12.346,Complete"
	if lines[1] != want {
		t.Fatalf("row = %q, want %q", lines[1], want)
	}
}

func TestAppendAccumulatesRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cycles.csv")
	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 7, 31, 10, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		rec := cycle.Record{Start: base.Add(time.Duration(i) * time.Minute), End: base.Add(time.Duration(i)*time.Minute + time.Second), Reason: cycle.Complete}
		if err := w.Append(rec); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(lines))
	}
}
