package main

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/lightcurve.report/internal/fsutil"
	"github.com/banshee-data/lightcurve.report/internal/ingest"
)

func TestSplitList(t *testing.T) {
	got := splitList(" g, r ,,i")
	want := []string{"g", "r", "i"}
	if len(got) != len(want) {
		t.Fatalf("splitList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if splitList("") != nil {
		t.Error("Empty input should give nil")
	}
}

func TestReadRows(t *testing.T) {
	m := fsutil.NewMemoryFileSystem()
	path := filepath.Join("data", "labels.csv")
	m.WriteFile(path, []byte("object,class,ra,dec,z\nZTF20a,SNIa,10.5,,0.02\n"))

	rows, err := readRows(m, path, ingest.ReadLabels)
	if err != nil {
		t.Fatalf("readRows: %v", err)
	}
	if len(rows) != 1 || rows[0].Class != "SNIa" {
		t.Errorf("Unexpected rows %+v", rows)
	}

	if _, err := readRows(m, "missing.csv", ingest.ReadLabels); err == nil {
		t.Error("Expected error for missing file")
	}
}
