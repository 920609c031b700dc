package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
)

// File is one entry of a report bundle.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Bundle archives the given files into a zip, sorted by name so the output
// is deterministic for identical inputs. A plain-text manifest listing the
// entries is prepended as the first file.
func Bundle(files []File) ([]byte, error) {
	sorted := append([]File(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	manifest := &bytes.Buffer{}
	for _, f := range sorted {
		fmt.Fprintf(manifest, "%s\t%s\t%d\n", f.Name, f.MIME, len(f.Data))
	}
	w, err := zw.Create("MANIFEST.txt")
	if err != nil {
		return nil, fmt.Errorf("zip: create manifest: %w", err)
	}
	if _, err := w.Write(manifest.Bytes()); err != nil {
		return nil, fmt.Errorf("zip: write manifest: %w", err)
	}

	for _, f := range sorted {
		w, err := zw.Create(f.Name)
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	return buf.Bytes(), nil
}
