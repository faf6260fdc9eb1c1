package codec

import (
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Builtin returns fresh instances of the built-in codecs.
func Builtin() []Codec {
	return []Codec{
		Raw{},
		Snappy{},
		Gzip{},
		Bzip2{},
		XZ{},
		Zstd{},
		LZ4{},
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// Raw stores the payload uncompressed.
type Raw struct{}

func (Raw) ID() string        { return "" }
func (Raw) Extension() string { return "" }

func (Raw) NewWriter(w io.Writer, _ int) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (Raw) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

// Snappy writes a snappy framed stream through a StreamWriter. The level is
// ignored.
type Snappy struct {
	// ChunkSize overrides DefaultChunkSize when positive.
	ChunkSize int
}

func (Snappy) ID() string        { return "snappy" }
func (Snappy) Extension() string { return ".snappy" }

func (s Snappy) NewWriter(w io.Writer, _ int) (io.WriteCloser, error) {
	return NewStreamWriter(writerOnly{w}, NewSnappyCompressor(), s.ChunkSize), nil
}

func (s Snappy) NewReader(r io.Reader) (io.ReadCloser, error) {
	return NewStreamReader(readerOnly{r}, NewSnappyDecompressor(), s.ChunkSize), nil
}

// Gzip is the default codec.
type Gzip struct{}

func (Gzip) ID() string        { return "gz" }
func (Gzip) Extension() string { return ".gz" }

func (Gzip) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, ClampLevel(level))
}

func (Gzip) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// Bzip2 accepts levels 1..9; level 0 is treated as 1.
type Bzip2 struct{}

func (Bzip2) ID() string        { return "bz2" }
func (Bzip2) Extension() string { return ".bz2" }

func (Bzip2) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	level = ClampLevel(level)
	if level < bzip2.BestSpeed {
		level = bzip2.BestSpeed
	}
	return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: level})
}

func (Bzip2) NewReader(r io.Reader) (io.ReadCloser, error) {
	return bzip2.NewReader(r, nil)
}

// xzDictCaps follows the dictionary sizes of the xz presets 0..9.
var xzDictCaps = [...]int{
	256 << 10,
	1 << 20,
	2 << 20,
	4 << 20,
	4 << 20,
	8 << 20,
	8 << 20,
	16 << 20,
	32 << 20,
	64 << 20,
}

// XZ maps the level to an xz preset dictionary size.
type XZ struct{}

func (XZ) ID() string        { return "xz" }
func (XZ) Extension() string { return ".xz" }

func (XZ) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	cfg := xz.WriterConfig{DictCap: xzDictCaps[ClampLevel(level)]}
	return cfg.NewWriter(w)
}

func (XZ) NewReader(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

// Zstd maps the level with zstd.EncoderLevelFromZstd.
type Zstd struct{}

func (Zstd) ID() string        { return "zst" }
func (Zstd) Extension() string { return ".zst" }

func (Zstd) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(ClampLevel(level))))
}

func (Zstd) NewReader(r io.Reader) (io.ReadCloser, error) {
	d, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return d.IOReadCloser(), nil
}

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast,
	lz4.Level1,
	lz4.Level2,
	lz4.Level3,
	lz4.Level4,
	lz4.Level5,
	lz4.Level6,
	lz4.Level7,
	lz4.Level8,
	lz4.Level9,
}

// LZ4 writes the lz4 frame format; level 0 selects the fast mode.
type LZ4 struct{}

func (LZ4) ID() string        { return "lz4" }
func (LZ4) Extension() string { return ".lz4" }

func (LZ4) NewWriter(w io.Writer, level int) (io.WriteCloser, error) {
	zw := lz4.NewWriter(w)
	if err := zw.Apply(lz4.CompressionLevelOption(lz4Levels[ClampLevel(level)])); err != nil {
		return nil, err
	}
	return zw, nil
}

func (LZ4) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}
