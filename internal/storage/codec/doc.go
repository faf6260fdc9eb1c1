// Package codec provides the compression layer used to write and read
// snapshot files.
//
// Two pieces live here:
//
//   - stream.go: StreamWriter/StreamReader, a chunked adapter that turns a
//     block oriented compressor into a plain io.Writer/io.Reader. Writes are
//     buffered into fixed-size chunks (DefaultChunkSize) before compression.
//   - codec.go: the Registry mapping a codec id ("", "snappy", "gz", "bz2",
//     "xz", "zst", "lz4") to a writer constructor, and a file extension
//     (".pickle", ".snappy", ".gz", ...) to a reader constructor.
//
// Adding a codec only requires registering a new Codec implementation.
//
// Unknown ids and extensions fail with domain.ErrConfiguration, corrupt
// snappy frames with domain.ErrSnapshotDecode. I/O errors are returned as-is.
package codec
