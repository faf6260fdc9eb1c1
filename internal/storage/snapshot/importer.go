package snapshot

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yndnr/statesnap/internal/core/domain"
	"github.com/yndnr/statesnap/internal/storage/codec"
)

// Importer loads snapshot files written by any Writer.
type Importer struct {
	// Registry defaults to codec.Default().
	Registry *codec.Registry
	Logger   *slog.Logger
}

// Import reads the snapshot at path with the default registry.
func Import(path string, s Serializer) (any, error) {
	return (&Importer{}).Import(path, s)
}

// Import selects the codec from the extension of path, decompresses the file
// and deserializes it with s.
//
// Errors: domain.ErrNotFound when path does not exist, domain.ErrConfiguration
// for an unknown extension, domain.ErrIncompatibleSnapshot when the file was
// written with another protocol or references unknown types,
// domain.ErrSnapshotDecode for corrupt compressed data. Other I/O errors are
// returned as is.
func (im *Importer) Import(path string, s Serializer) (any, error) {
	reg := im.Registry
	if reg == nil {
		reg = codec.Default()
	}
	logger := im.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if s == nil {
		return nil, domain.ErrConfiguration.WithDetails("serializer is required")
	}

	path = strings.TrimSpace(path)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound.WithDetails(path).WithCause(err)
		}
		return nil, err
	}

	c, err := reg.ForPath(path)
	if err != nil {
		return nil, err
	}

	if protocol, ok := protocolOf(filepath.Base(path)); ok && protocol != s.Protocol() {
		return nil, domain.ErrIncompatibleSnapshot.WithDetails(
			fmt.Sprintf("%s: protocol %d, reader expects %d", path, protocol, s.Protocol()))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src := &sourceReader{r: f}
	rc, err := c.NewReader(src)
	if err != nil {
		return nil, src.classify(err, "open "+codecName(c)+" stream")
	}
	defer rc.Close()
	r := &decodeReader{r: rc, src: src}

	state, err := s.Deserialize(r)
	if err != nil {
		if src.err != nil {
			return nil, src.err
		}
		if errors.Is(err, domain.ErrIncompatibleSnapshot) {
			logger.Error("are you trying to import snapshot of a different workflow?",
				"path", path,
				"error", err)
		}
		return nil, err
	}

	// Reading to EOF makes the codec verify its trailer checksums.
	extra, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, err
	}
	if extra > 0 {
		return nil, domain.ErrSnapshotDecode.WithDetails(
			fmt.Sprintf("%s: %d bytes after payload", path, extra))
	}

	logger.Debug("snapshot imported", "path", path, "codec", codecName(c))
	return state, nil
}

// sourceReader remembers the first I/O error of the underlying file so that
// it is not mistaken for corrupt compressed data.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF && s.err == nil {
		s.err = err
	}
	return n, err
}

func (s *sourceReader) classify(err error, details string) error {
	if s.err != nil || domain.IsDomainError(err, "") {
		return err
	}
	return domain.ErrSnapshotDecode.WithDetails(details).WithCause(err)
}

// decodeReader reports codec failures as domain.ErrSnapshotDecode. The first
// error is sticky so a failure swallowed by a buffering deserializer
// surfaces again when the stream is drained.
type decodeReader struct {
	r   io.Reader
	src *sourceReader
	err error
}

func (d *decodeReader) Read(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	n, err := d.r.Read(p)
	if err != nil && err != io.EOF {
		d.err = d.src.classify(err, "decompress")
		return n, d.err
	}
	return n, err
}
