package codec

import (
	"errors"
	"io"
)

// DefaultChunkSize is the capacity of the StreamWriter chunk buffer.
// It matches the largest block a snappy frame may carry.
const DefaultChunkSize = 65536

// StreamCompressor compresses successive chunks of a single stream.
type StreamCompressor interface {
	// Compress returns the compressed form of p. The result may be empty
	// when the compressor keeps internal state.
	Compress(p []byte) ([]byte, error)

	// Flush returns trailing bytes that terminate the stream. Some
	// compressors emit a frame here even if nothing was compressed.
	Flush() ([]byte, error)
}

// StreamDecompressor decompresses a stream fed in arbitrary slices.
type StreamDecompressor interface {
	// Decompress consumes p and returns whatever output became complete.
	Decompress(p []byte) ([]byte, error)

	// Finish reports an error if the stream ended inside a frame.
	Finish() error
}

type flusher interface {
	Flush() error
}

// StreamWriter buffers writes into fixed-size chunks and hands every full
// chunk to a StreamCompressor.
//
// StreamWriter is not safe for concurrent use. Close must be called exactly
// once.
type StreamWriter struct {
	sink io.Writer
	comp StreamCompressor
	buf  []byte
	pos  int
}

// NewStreamWriter creates a StreamWriter with the given chunk capacity.
// A non-positive size selects DefaultChunkSize.
func NewStreamWriter(sink io.Writer, comp StreamCompressor, size int) *StreamWriter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &StreamWriter{
		sink: sink,
		comp: comp,
		buf:  make([]byte, size),
	}
}

// Buffered returns the number of bytes waiting in the chunk buffer.
func (w *StreamWriter) Buffered() int {
	return w.pos
}

// Write implements io.Writer.
func (w *StreamWriter) Write(p []byte) (int, error) {
	n := len(p)
	size := len(w.buf)

	for w.pos+len(p) > size {
		if w.pos == 0 && len(p) > size {
			// Large write: emit whole chunks straight from p.
			full := (len(p) / size) * size
			if err := w.emit(p[:full]); err != nil {
				return n - len(p), err
			}
			p = p[full:]
			continue
		}
		remainder := size - w.pos
		copy(w.buf[w.pos:], p[:remainder])
		if err := w.emit(w.buf); err != nil {
			return n - len(p), err
		}
		p = p[remainder:]
		w.pos = 0
	}

	copy(w.buf[w.pos:], p)
	w.pos += len(p)
	return n, nil
}

// Flush compresses the residual chunk, writes the compressor trailer and
// flushes the sink when it supports flushing.
func (w *StreamWriter) Flush() error {
	if w.pos > 0 {
		if err := w.emit(w.buf[:w.pos]); err != nil {
			return err
		}
		w.pos = 0
	}

	last, err := w.comp.Flush()
	if err != nil {
		return err
	}
	if len(last) > 0 {
		if _, err := w.sink.Write(last); err != nil {
			return err
		}
	}

	if f, ok := w.sink.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Close flushes the writer and closes the sink if it is an io.Closer.
func (w *StreamWriter) Close() error {
	err := w.Flush()
	if c, ok := w.sink.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (w *StreamWriter) emit(chunk []byte) error {
	out, err := w.comp.Compress(chunk)
	if err != nil {
		return err
	}
	if len(out) == 0 {
		return nil
	}
	_, err = w.sink.Write(out)
	return err
}

// StreamReader reads compressed data from a source and decompresses it one
// pass at a time.
type StreamReader struct {
	src     io.Reader
	dec     StreamDecompressor
	raw     []byte
	pending []byte
	eof     bool
}

// NewStreamReader creates a StreamReader pulling at most size compressed
// bytes per pass. A non-positive size selects DefaultChunkSize.
func NewStreamReader(src io.Reader, dec StreamDecompressor, size int) *StreamReader {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &StreamReader{
		src: src,
		dec: dec,
		raw: make([]byte, size),
	}
}

// ReadBlock reads up to one chunk of compressed bytes from the source and
// returns the output decompressed from it. The returned block may be empty
// when the chunk ended inside a frame; callers invoke ReadBlock again until
// it returns io.EOF.
func (r *StreamReader) ReadBlock() ([]byte, error) {
	if r.eof {
		return nil, io.EOF
	}

	n, err := r.src.Read(r.raw)
	var out []byte
	if n > 0 {
		var derr error
		out, derr = r.dec.Decompress(r.raw[:n])
		if derr != nil {
			return nil, derr
		}
	}

	if errors.Is(err, io.EOF) {
		r.eof = true
		if ferr := r.dec.Finish(); ferr != nil {
			return nil, ferr
		}
		if len(out) == 0 {
			return nil, io.EOF
		}
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Read implements io.Reader on top of ReadBlock.
func (r *StreamReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.pending) == 0 {
		block, err := r.ReadBlock()
		if err != nil {
			return 0, err
		}
		r.pending = block
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// Close closes the source if it is an io.Closer.
func (r *StreamReader) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
