package codec

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/yndnr/statesnap/internal/core/domain"
)

func TestRegistry_RoundTripAllCodecs(t *testing.T) {
	data := payload(DefaultChunkSize*3 + 999)
	dir := t.TempDir()

	for _, c := range Default().Codecs() {
		for _, level := range []int{0, DefaultLevel, MaxLevel} {
			name := "raw"
			if c.ID() != "" {
				name = c.ID()
			}
			t.Run(name, func(t *testing.T) {
				path := filepath.Join(dir, "state.4"+RawExtension+c.Extension())

				w, err := Create(path, c.ID(), level)
				if err != nil {
					t.Fatalf("Create: %v", err)
				}
				if _, err := w.Write(data); err != nil {
					w.Close()
					t.Fatalf("Write: %v", err)
				}
				if err := w.Close(); err != nil {
					t.Fatalf("Close: %v", err)
				}

				r, err := Open(path)
				if err != nil {
					t.Fatalf("Open: %v", err)
				}
				got, err := io.ReadAll(r)
				if cerr := r.Close(); cerr != nil {
					t.Fatalf("Close reader: %v", cerr)
				}
				if err != nil {
					t.Fatalf("ReadAll: %v", err)
				}
				if !bytes.Equal(got, data) {
					t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
				}
			})
		}
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := Default()

	tests := []struct {
		id      string
		wantExt string
		wantErr bool
	}{
		{"", "", false},
		{"none", "", false},
		{"NONE", "", false},
		{"snappy", ".snappy", false},
		{"gz", ".gz", false},
		{" bz2 ", ".bz2", false},
		{"xz", ".xz", false},
		{"zst", ".zst", false},
		{"lz4", ".lz4", false},
		{"rar", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			c, err := r.Lookup(tt.id)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrConfiguration) {
					t.Fatalf("Lookup(%q) err = %v, want ErrConfiguration", tt.id, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%q): %v", tt.id, err)
			}
			if c.Extension() != tt.wantExt {
				t.Fatalf("Extension() = %q, want %q", c.Extension(), tt.wantExt)
			}
		})
	}
}

func TestRegistry_ForPath(t *testing.T) {
	r := Default()

	tests := []struct {
		path    string
		wantID  string
		wantErr bool
	}{
		{"/snap/run_epoch1.4.pickle", "", false},
		{"/snap/run_epoch1.4.pickle.gz", "gz", false},
		{"/snap/run_epoch1.4.pickle.snappy", "snappy", false},
		{"/snap/run_epoch1.4.pickle.bz2\n", "bz2", false},
		{"/snap/run_epoch1.4.pickle.xz", "xz", false},
		{"/snap/run_epoch1.4.pickle.zip", "", true},
		{"/snap/noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c, err := r.ForPath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrConfiguration) {
					t.Fatalf("ForPath err = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForPath: %v", err)
			}
			if c.ID() != tt.wantID {
				t.Fatalf("ID() = %q, want %q", c.ID(), tt.wantID)
			}
		})
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r, err := NewRegistry(Raw{}, Gzip{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := r.Register(Gzip{}); err == nil {
		t.Fatal("Register duplicate id should fail")
	}
	if _, err := NewRegistry(Raw{}, Raw{}); err == nil {
		t.Fatal("NewRegistry with duplicate codecs should fail")
	}
}

type dotlessCodec struct{ Raw }

func (dotlessCodec) ID() string        { return "weird" }
func (dotlessCodec) Extension() string { return "weird" }

func TestRegistry_RegisterCustomCodec(t *testing.T) {
	r, err := NewRegistry(Raw{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := r.Register(dotlessCodec{}); err == nil {
		t.Fatal("Register should reject an extension without a leading dot")
	}
	if err := r.Register(Snappy{ChunkSize: 1024}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.LookupExtension(".snappy"); err != nil {
		t.Fatalf("LookupExtension: %v", err)
	}
	if _, err := r.LookupExtension(".gz"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("LookupExtension(.gz) err = %v, want ErrConfiguration", err)
	}
}

func TestRegistry_CreateUnknownCodecLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.4.pickle.rar")
	if _, err := Create(path, "rar", 6); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("Create err = %v, want ErrConfiguration", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("Stat err = %v, want not exist", err)
	}
}

func TestRegistry_OpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.4.pickle.gz"))
	if !os.IsNotExist(err) {
		t.Fatalf("Open err = %v, want not exist", err)
	}
}

func TestClampLevel(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 0}, {0, 0}, {6, 6}, {9, 9}, {42, 9},
	}
	for _, tt := range tests {
		if got := ClampLevel(tt.in); got != tt.want {
			t.Errorf("ClampLevel(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
