package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/statesnap/internal/core/domain"
)

func TestInspect_MatchesRecord(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, "zst")

	rec, err := w.Export(testState{Step: 5, Names: []string{"x", "y"}}, "e5")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	d, err := Inspect(rec.Path, nil)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if d.Fingerprint != rec.Fingerprint {
		t.Errorf("Fingerprint = %s, want %s", d.Fingerprint, rec.Fingerprint)
	}
	if d.Size != rec.Size || d.Codec != "zst" || d.Protocol != GobProtocol {
		t.Errorf("detail = %+v, record = %+v", d, rec)
	}
	if d.PayloadSize == 0 {
		t.Error("PayloadSize = 0")
	}

	alias, err := Inspect(rec.Alias, nil)
	if err != nil {
		t.Fatalf("Inspect(alias) error = %v", err)
	}
	if alias.Target != filepath.Base(rec.Path) {
		t.Errorf("Target = %q, want %q", alias.Target, filepath.Base(rec.Path))
	}
}

func TestInspect_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Inspect(filepath.Join(dir, "run_x.4.pickle.gz"), nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing: error = %v, want ErrNotFound", err)
	}

	corrupt := filepath.Join(dir, "run_bad.4.pickle.gz")
	if err := os.WriteFile(corrupt, []byte("not gzip at all"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Inspect(corrupt, nil); !errors.Is(err, domain.ErrSnapshotDecode) {
		t.Errorf("corrupt: error = %v, want ErrSnapshotDecode", err)
	}
}

func TestRecompress(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, "gz")
	want := testState{Step: 9, Names: []string{"a", "b"}}

	rec, err := w.Export(want, "e9")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	out, err := Recompress(rec.Path, "lz4", 9, nil)
	if err != nil {
		t.Fatalf("Recompress() error = %v", err)
	}
	if filepath.Base(out) != "run_e9.4.pickle.lz4" {
		t.Fatalf("out = %q, want run_e9.4.pickle.lz4", out)
	}
	if _, err := os.Stat(rec.Path); err != nil {
		t.Errorf("source removed: %v", err)
	}
	if _, err := os.Stat(out + tempSuffix); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}

	got, err := Import(out, GobSerializer{})
	if err != nil {
		t.Fatalf("Import(%s) error = %v", out, err)
	}
	st, ok := got.(testState)
	if !ok || st.Step != want.Step || len(st.Names) != 2 {
		t.Errorf("state = %#v, want %#v", got, want)
	}

	raw, err := Recompress(out, "none", 0, nil)
	if err != nil {
		t.Fatalf("Recompress(raw) error = %v", err)
	}
	if filepath.Base(raw) != "run_e9.4.pickle" {
		t.Errorf("raw = %q", raw)
	}
}

func TestRecompress_Errors(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, "gz")
	rec, err := w.Export(testState{Step: 1}, "e1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	tests := []struct {
		name string
		path string
		id   string
	}{
		{"same codec", rec.Path, "gz"},
		{"unknown codec", rec.Path, "rar"},
		{"unknown extension", filepath.Join(dir, "run_e1.4.pickle.rar"), "zst"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Recompress(tt.path, tt.id, 6, nil); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("Recompress() error = %v, want ErrConfiguration", err)
			}
		})
	}

	if _, err := Recompress(filepath.Join(dir, "run_gone.4.pickle.gz"), "zst", 6, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing: error = %v, want ErrNotFound", err)
	}
}
