package snapshot

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spaolacci/murmur3"

	"github.com/yndnr/statesnap/internal/core/domain"
	"github.com/yndnr/statesnap/internal/storage/codec"
)

const tempSuffix = ".tmp"

// WriterConfig configures a Writer.
type WriterConfig struct {
	// Dir is the directory snapshots are written to. Created if missing.
	Dir string

	// Prefix names the snapshot series ("<prefix>_<suffix>...").
	Prefix string

	// Compression is a codec id of Registry. Empty means uncompressed.
	Compression string

	// Level is the compression level in [0,9]; out of range values are clamped.
	Level int

	Serializer Serializer

	// Registry defaults to codec.Default().
	Registry *codec.Registry

	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Writer exports state into versioned snapshot files and keeps the
// "current" alias of the series pointed at the newest one.
type Writer struct {
	dir        string
	prefix     string
	level      int
	codec      codec.Codec
	serializer Serializer
	logger     *slog.Logger
	now        func() time.Time
}

// NewWriter validates cfg and prepares the snapshot directory.
//
// An unknown compression id fails with domain.ErrConfiguration.
func NewWriter(cfg WriterConfig) (*Writer, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, domain.ErrConfiguration.WithDetails("snapshot directory is required")
	}
	if cfg.Prefix == "" {
		return nil, domain.ErrConfiguration.WithDetails("snapshot prefix is required")
	}
	if strings.ContainsAny(cfg.Prefix, `/\`) {
		return nil, domain.ErrConfiguration.WithDetails(fmt.Sprintf("invalid snapshot prefix %q", cfg.Prefix))
	}
	if cfg.Serializer == nil {
		return nil, domain.ErrConfiguration.WithDetails("serializer is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = codec.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c, err := cfg.Registry.Lookup(cfg.Compression)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}

	return &Writer{
		dir:        cfg.Dir,
		prefix:     cfg.Prefix,
		level:      codec.ClampLevel(cfg.Level),
		codec:      c,
		serializer: cfg.Serializer,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}, nil
}

// Dir returns the snapshot directory.
func (w *Writer) Dir() string { return w.dir }

// Prefix returns the series prefix.
func (w *Writer) Prefix() string { return w.prefix }

// Codec returns the codec used for new snapshots.
func (w *Writer) Codec() codec.Codec { return w.codec }

// Level returns the effective compression level.
func (w *Writer) Level() int { return w.level }

// Path returns the file path a snapshot with the given suffix is written to.
func (w *Writer) Path(suffix string) string {
	return filepath.Join(w.dir, FileName(w.prefix, suffix, w.serializer.Protocol(), w.codec.Extension()))
}

// AliasPath returns the path of the "current" alias.
func (w *Writer) AliasPath() string {
	return filepath.Join(w.dir, AliasName(w.prefix, w.serializer.Protocol(), w.codec.Extension()))
}

// Export serializes state into a new snapshot named after suffix and then
// repoints the alias at it.
//
// Payload is written to "<path>.tmp" and renamed into place once the codec
// stream is closed and synced, so readers never observe a partial file under
// the final name. Write errors are returned unchanged apart from wrapping; the
// alias is left untouched in that case. Alias failures are only logged:
// Record.Alias is empty when the alias could not be published.
func (w *Writer) Export(state any, suffix string) (*Record, error) {
	if suffix == "" || suffix == AliasSuffix || strings.ContainsAny(suffix, `/\`) {
		return nil, domain.ErrConfiguration.WithDetails(fmt.Sprintf("invalid snapshot suffix %q", suffix))
	}

	now := w.now()
	path := w.Path(suffix)
	tempPath := path + tempSuffix

	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			os.Remove(tempPath)
		}
	}()

	hash := murmur3.New128()
	counter := &countingWriter{w: io.MultiWriter(file, hash)}

	stream, err := w.codec.NewWriter(counter, w.level)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: open %s stream: %w", codecName(w.codec), err)
	}
	if err := w.serializer.Serialize(stream, state); err != nil {
		stream.Close()
		file.Close()
		return nil, fmt.Errorf("snapshot: serialize: %w", err)
	}
	if err := stream.Close(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: close %s stream: %w", codecName(w.codec), err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return nil, fmt.Errorf("snapshot: rename: %w", err)
	}
	committed = true

	rec := &Record{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Path:        path,
		Prefix:      w.prefix,
		Suffix:      suffix,
		Codec:       w.codec.ID(),
		Level:       w.level,
		Protocol:    w.serializer.Protocol(),
		Size:        counter.n,
		Fingerprint: hex.EncodeToString(hash.Sum(nil)),
		CreatedAt:   now,
	}
	if alias, ok := w.publishAlias(path); ok {
		rec.Alias = alias
	}

	w.logger.Debug("snapshot written",
		"path", path,
		"codec", codecName(w.codec),
		"size", rec.Size,
		"alias", rec.Alias)
	return rec, nil
}

// publishAlias points the alias at target. A fresh symlink is created under a
// unique hidden name and renamed over the alias, so concurrent writers race on
// the rename only and the last one wins. Errors are logged and absorbed.
func (w *Writer) publishAlias(target string) (string, bool) {
	alias := w.AliasPath()
	tmp := filepath.Join(w.dir, "."+filepath.Base(alias)+"."+ulid.Make().String()+tempSuffix)

	if err := os.Symlink(filepath.Base(target), tmp); err != nil {
		w.logger.Debug("create snapshot alias failed", "alias", alias, "error", err)
		return "", false
	}
	if err := os.Rename(tmp, alias); err != nil {
		os.Remove(tmp)
		w.logger.Debug("replace snapshot alias failed", "alias", alias, "error", err)
		return "", false
	}
	return alias, true
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func codecName(c codec.Codec) string {
	if c.ID() == "" {
		return "raw"
	}
	return c.ID()
}
