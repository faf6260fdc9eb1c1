// Package domain defines the core domain types for statesnap.
//
// It holds the error taxonomy shared by the codec, snapshot and snapshotter
// packages:
//
//   - ErrConfiguration: unknown codec id or extension
//   - ErrNotFound: import target missing
//   - ErrSnapshotDecode: corrupt or truncated compressed block
//   - ErrIncompatibleSnapshot: payload of a foreign workflow
//
// I/O errors are never converted into domain errors.
package domain
