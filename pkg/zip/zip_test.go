package zip

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestBundleDeterministicOrder(t *testing.T) {
	files := []File{
		{Name: "report.md", MIME: "text/markdown", Data: []byte("# Report")},
		{Name: "financials.csv", MIME: "text/csv", Data: []byte("name,value")},
	}

	first, err := Bundle(files)
	if err != nil {
		t.Fatalf("Bundle error: %v", err)
	}
	second, err := Bundle([]File{files[1], files[0]})
	if err != nil {
		t.Fatalf("Bundle error: %v", err)
	}

	names := func(data []byte) []string {
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			t.Fatalf("open archive: %v", err)
		}
		var out []string
		for _, f := range zr.File {
			out = append(out, f.Name)
		}
		return out
	}

	a, b := names(first), names(second)
	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("expected 3 entries (manifest + 2 files), got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("entry order differs at %d: %q vs %q", i, a[i], b[i])
		}
	}
	if a[0] != "MANIFEST.txt" {
		t.Fatalf("expected manifest first, got %q", a[0])
	}
}
