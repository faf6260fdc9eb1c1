// Package snapshot writes, lists and imports state snapshot files.
//
// A snapshot series lives in one directory and is identified by a prefix.
// Every export produces a uniquely named, immutable file and repoints the
// series alias at it:
//
//	<prefix>_<suffix>.<protocol>.pickle<ext>   versioned snapshot
//	<prefix>_current.<protocol>.pickle<ext>    alias (relative symlink)
//
// <protocol> is the Serializer protocol and <ext> the extension of the codec
// the payload was compressed with ("" for uncompressed). The extension alone
// selects the decompressor on import.
//
// Files are written under a ".tmp" name and renamed into place, so a crashed
// or failed export never replaces the previous snapshot the alias points at.
// The alias swap is best effort: concurrent writers may race on it and the
// last rename wins.
package snapshot
