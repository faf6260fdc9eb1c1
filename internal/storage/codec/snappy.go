package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/golang/snappy"

	"github.com/yndnr/statesnap/internal/core/domain"
)

// Snappy framing format chunk types.
const (
	chunkTypeCompressed       = 0x00
	chunkTypeUncompressed     = 0x01
	chunkTypePadding          = 0xfe
	chunkTypeStreamIdentifier = 0xff

	chunkHeaderSize = 4
	checksumSize    = 4
	maxBlockSize    = 65536
)

var (
	streamIdentifier = []byte("sNaPpY")
	castagnoli       = crc32.MakeTable(crc32.Castagnoli)
)

// maskedCRC returns the CRC-32C of b in the masked form used by the framing
// format.
func maskedCRC(b []byte) uint32 {
	c := crc32.Update(0, castagnoli, b)
	return (c>>15 | c<<17) + 0xa282ead8
}

func appendChunkHeader(dst []byte, typ byte, n int) []byte {
	return append(dst, typ, byte(n), byte(n>>8), byte(n>>16))
}

func decodeError(details string, cause error) error {
	e := domain.ErrSnapshotDecode.WithDetails(details)
	if cause != nil {
		e = e.WithCause(cause)
	}
	return e
}

// SnappyCompressor produces a snappy framed stream with snappy.Writer. The
// stream identifier is emitted before the first chunk, or by Flush if nothing
// was compressed.
type SnappyCompressor struct {
	buf     bytes.Buffer
	w       *snappy.Writer
	started bool
}

// NewSnappyCompressor creates a compressor for a new stream.
func NewSnappyCompressor() *SnappyCompressor {
	c := &SnappyCompressor{}
	// Unbuffered: every Write emits complete frames into c.buf.
	c.w = snappy.NewWriter(&c.buf)
	return c
}

// Compress implements StreamCompressor. Input larger than one frame is split
// into several frames.
func (c *SnappyCompressor) Compress(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return nil, nil
	}
	c.buf.Reset()
	if _, err := c.w.Write(p); err != nil {
		return nil, err
	}
	c.started = true
	return append([]byte(nil), c.buf.Bytes()...), nil
}

// Flush implements StreamCompressor.
func (c *SnappyCompressor) Flush() ([]byte, error) {
	if c.started {
		return nil, nil
	}
	c.started = true
	out := appendChunkHeader(nil, chunkTypeStreamIdentifier, len(streamIdentifier))
	return append(out, streamIdentifier...), nil
}

// SnappyDecompressor parses a snappy framed stream fed in arbitrary slices.
type SnappyDecompressor struct {
	pending []byte
	started bool
}

// NewSnappyDecompressor creates a decompressor for a new stream.
func NewSnappyDecompressor() *SnappyDecompressor {
	return &SnappyDecompressor{}
}

// Decompress implements StreamDecompressor.
func (d *SnappyDecompressor) Decompress(p []byte) ([]byte, error) {
	d.pending = append(d.pending, p...)

	var out []byte
	off := 0
	for len(d.pending)-off >= chunkHeaderSize {
		hdr := d.pending[off:]
		typ := hdr[0]
		n := int(hdr[1]) | int(hdr[2])<<8 | int(hdr[3])<<16
		if len(hdr) < chunkHeaderSize+n {
			break
		}
		body := hdr[chunkHeaderSize : chunkHeaderSize+n]
		off += chunkHeaderSize + n

		if !d.started && typ != chunkTypeStreamIdentifier {
			return nil, decodeError("missing stream identifier", nil)
		}

		switch {
		case typ == chunkTypeStreamIdentifier:
			if !bytes.Equal(body, streamIdentifier) {
				return nil, decodeError("bad stream identifier", nil)
			}
			d.started = true

		case typ == chunkTypeCompressed:
			if n < checksumSize {
				return nil, decodeError("short compressed chunk", nil)
			}
			want := binary.LittleEndian.Uint32(body[:checksumSize])
			size, err := snappy.DecodedLen(body[checksumSize:])
			if err != nil {
				return nil, decodeError("decode block", err)
			}
			if size > maxBlockSize {
				return nil, decodeError("oversized block", nil)
			}
			block, err := snappy.Decode(nil, body[checksumSize:])
			if err != nil {
				return nil, decodeError("decode block", err)
			}
			if maskedCRC(block) != want {
				return nil, decodeError("checksum mismatch", nil)
			}
			out = append(out, block...)

		case typ == chunkTypeUncompressed:
			if n < checksumSize || n-checksumSize > maxBlockSize {
				return nil, decodeError("bad uncompressed chunk length", nil)
			}
			want := binary.LittleEndian.Uint32(body[:checksumSize])
			block := body[checksumSize:]
			if maskedCRC(block) != want {
				return nil, decodeError("checksum mismatch", nil)
			}
			out = append(out, block...)

		case typ >= 0x80 && typ <= chunkTypePadding:
			// Skippable.

		default:
			return nil, decodeError(fmt.Sprintf("reserved chunk type 0x%02x", typ), nil)
		}
	}

	d.pending = append(d.pending[:0], d.pending[off:]...)
	return out, nil
}

// Finish implements StreamDecompressor.
func (d *SnappyDecompressor) Finish() error {
	if len(d.pending) > 0 {
		return decodeError(fmt.Sprintf("truncated frame (%d trailing bytes)", len(d.pending)), nil)
	}
	return nil
}
