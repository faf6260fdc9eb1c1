package codec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/yndnr/statesnap/internal/core/domain"
)

// RawExtension is the extension carried by every snapshot file. A path that
// ends in it is read without decompression.
const RawExtension = ".pickle"

// Level bounds accepted by level-aware codecs.
const (
	MinLevel     = 0
	MaxLevel     = 9
	DefaultLevel = 6
)

// Codec is one compression scheme.
type Codec interface {
	// ID is the configuration identifier ("" for no compression).
	ID() string

	// Extension is the suffix appended after ".pickle" ("" for raw).
	Extension() string

	// NewWriter wraps w. Closing the result finalizes the compressed stream
	// but never closes w.
	NewWriter(w io.Writer, level int) (io.WriteCloser, error)

	// NewReader wraps r. Closing the result never closes r.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// Registry maps codec ids and file extensions to codecs.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Codec
	byExt map[string]Codec
}

// NewRegistry creates a registry holding the given codecs.
func NewRegistry(codecs ...Codec) (*Registry, error) {
	r := &Registry{
		byID:  make(map[string]Codec),
		byExt: make(map[string]Codec),
	}
	for _, c := range codecs {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a codec. Ids and extensions must be unique.
func (r *Registry) Register(c Codec) error {
	id := normalizeID(c.ID())
	ext := c.Extension()
	if ext != "" && !strings.HasPrefix(ext, ".") {
		return fmt.Errorf("codec: extension %q of %q must start with a dot", ext, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; ok {
		return fmt.Errorf("codec: duplicate id %q", id)
	}
	if _, ok := r.byExt[ext]; ok {
		return fmt.Errorf("codec: duplicate extension %q", ext)
	}
	r.byID[id] = c
	r.byExt[ext] = c
	return nil
}

// Lookup returns the codec registered under id. "none" is an alias of "".
func (r *Registry) Lookup(id string) (Codec, error) {
	r.mu.RLock()
	c, ok := r.byID[normalizeID(id)]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrConfiguration.WithDetails(fmt.Sprintf("unknown compression %q", id))
	}
	return c, nil
}

// LookupExtension returns the codec for a file extension as produced by
// filepath.Ext. RawExtension selects the uncompressed codec.
func (r *Registry) LookupExtension(ext string) (Codec, error) {
	key := ext
	if key == RawExtension {
		key = ""
	}
	r.mu.RLock()
	c, ok := r.byExt[key]
	r.mu.RUnlock()
	if !ok || (key == "" && ext != RawExtension) {
		return nil, domain.ErrConfiguration.WithDetails(fmt.Sprintf("unknown snapshot extension %q", ext))
	}
	return c, nil
}

// ForPath returns the codec selected by the extension of path.
func (r *Registry) ForPath(path string) (Codec, error) {
	return r.LookupExtension(filepath.Ext(strings.TrimSpace(path)))
}

// Codecs returns the registered codecs ordered by id.
func (r *Registry) Codecs() []Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Codec, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Create creates the file at path and returns a writer compressing into it
// with codec id. Closing the writer finalizes the codec and closes the file.
func (r *Registry) Create(path, id string, level int) (io.WriteCloser, error) {
	c, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := c.NewWriter(writerOnly{f}, level)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileWriter{WriteCloser: w, f: f}, nil
}

// Open opens path and returns a reader decompressing it with the codec
// selected by its extension.
func (r *Registry) Open(path string) (io.ReadCloser, error) {
	c, err := r.ForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc, err := c.NewReader(readerOnly{f})
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileReader{ReadCloser: rc, f: f}, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry holding the built-in codecs.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(Builtin()...)
		if err != nil {
			panic(err) // built-ins never collide
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Create uses the default registry.
func Create(path, id string, level int) (io.WriteCloser, error) {
	return Default().Create(path, id, level)
}

// Open uses the default registry.
func Open(path string) (io.ReadCloser, error) {
	return Default().Open(path)
}

func normalizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "none" {
		return ""
	}
	return id
}

// ClampLevel forces level into [MinLevel, MaxLevel].
func ClampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// writerOnly hides Close (and any Flush) of the wrapped writer.
type writerOnly struct {
	io.Writer
}

// readerOnly hides Close of the wrapped reader.
type readerOnly struct {
	io.Reader
}

type fileWriter struct {
	io.WriteCloser
	f *os.File
}

func (w *fileWriter) Close() error {
	err := w.WriteCloser.Close()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}

type fileReader struct {
	io.ReadCloser
	f *os.File
}

func (r *fileReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	return err
}
