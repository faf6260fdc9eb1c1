package snapshot

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/yndnr/statesnap/internal/core/domain"
	"github.com/yndnr/statesnap/internal/storage/codec"
)

// Detail describes a snapshot file without deserializing it.
type Detail struct {
	Path        string    `json:"path" yaml:"path"`
	Target      string    `json:"target,omitempty" yaml:"target,omitempty"`
	Protocol    int       `json:"protocol" yaml:"protocol"`
	Codec       string    `json:"codec" yaml:"codec"`
	Size        int64     `json:"size" yaml:"size" table:"bytes"`
	PayloadSize int64     `json:"payload_size" yaml:"payload_size" table:"bytes"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`
	ModTime     time.Time `json:"mod_time" yaml:"mod_time"`
}

// Inspect reads the snapshot at path through its codec. Fingerprint is the
// murmur3 hash of the file bytes, the same value a Writer records.
// PayloadSize is the number of decompressed bytes. A corrupt stream yields
// domain.ErrSnapshotDecode.
func Inspect(path string, reg *codec.Registry) (*Detail, error) {
	if reg == nil {
		reg = codec.Default()
	}
	path = strings.TrimSpace(path)

	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound.WithDetails(path).WithCause(err)
		}
		return nil, err
	}
	c, err := reg.ForPath(path)
	if err != nil {
		return nil, err
	}
	d := &Detail{
		Path:    path,
		Codec:   codecName(c),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
	}
	if target, err := os.Readlink(path); err == nil {
		d.Target = target
	}
	if p, ok := protocolOf(filepath.Base(path)); ok {
		d.Protocol = p
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hash := murmur3.New128()
	rc, err := c.NewReader(io.TeeReader(f, hash))
	if err != nil {
		return nil, domain.ErrSnapshotDecode.WithDetails(path).WithCause(err)
	}
	defer rc.Close()

	n, err := io.Copy(io.Discard, rc)
	if err != nil {
		if domain.IsDomainError(err, "") {
			return nil, err
		}
		return nil, domain.ErrSnapshotDecode.WithDetails(path).WithCause(err)
	}
	// Drain trailing bytes the codec did not consume.
	if _, err := io.Copy(hash, f); err != nil {
		return nil, err
	}
	d.PayloadSize = n
	d.Fingerprint = hex.EncodeToString(hash.Sum(nil))
	return d, nil
}

// Recompress rewrites the snapshot at path with codec id at level and
// returns the path of the new file, "<same name>.pickle<new ext>". The new
// file is written to a temporary name and renamed into place. The source is
// kept; recompressing into the same codec is an error.
func Recompress(path, id string, level int, reg *codec.Registry) (string, error) {
	if reg == nil {
		reg = codec.Default()
	}
	path = strings.TrimSpace(path)

	src, err := reg.ForPath(path)
	if err != nil {
		return "", err
	}
	dst, err := reg.Lookup(id)
	if err != nil {
		return "", err
	}
	if src.ID() == dst.ID() {
		return "", domain.ErrConfiguration.WithDetails(fmt.Sprintf("%s is already %s", path, codecName(dst)))
	}

	stem := path
	if src.ID() != "" {
		stem = strings.TrimSuffix(path, src.Extension())
	}
	if !strings.HasSuffix(stem, codec.RawExtension) {
		return "", domain.ErrConfiguration.WithDetails(fmt.Sprintf("%s is not a snapshot file", path))
	}
	out := stem + dst.Extension()
	tmp := out + tempSuffix

	in, err := reg.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrNotFound.WithDetails(path).WithCause(err)
		}
		return "", err
	}
	defer in.Close()

	w, err := reg.Create(tmp, dst.ID(), codec.ClampLevel(level))
	if err != nil {
		return "", fmt.Errorf("snapshot: create %s: %w", tmp, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		w.Close()
		os.Remove(tmp)
		if domain.IsDomainError(err, "") {
			return "", err
		}
		return "", fmt.Errorf("snapshot: recompress %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("snapshot: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, out); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("snapshot: rename: %w", err)
	}
	return out, nil
}
