package snapshot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/statesnap/internal/storage/codec"
)

// AliasSuffix is the suffix of the alias that points at the newest snapshot.
const AliasSuffix = "current"

// FileName returns "<prefix>_<suffix>.<protocol>.pickle<ext>".
func FileName(prefix, suffix string, protocol int, ext string) string {
	return fmt.Sprintf("%s_%s.%d%s%s", prefix, suffix, protocol, codec.RawExtension, ext)
}

// AliasName returns "<prefix>_current.<protocol>.pickle<ext>".
func AliasName(prefix string, protocol int, ext string) string {
	return FileName(prefix, AliasSuffix, protocol, ext)
}

// Name is a parsed snapshot file name.
type Name struct {
	Prefix    string
	Suffix    string
	Protocol  int
	Extension string
}

// IsAlias reports whether the name is the "current" alias of its series.
func (n Name) IsAlias() bool {
	return n.Suffix == AliasSuffix
}

// String formats the name back into a file name.
func (n Name) String() string {
	return FileName(n.Prefix, n.Suffix, n.Protocol, n.Extension)
}

// ParseName parses a base file name of the series identified by prefix.
func ParseName(name, prefix string) (Name, bool) {
	lead := prefix + "_"
	if !strings.HasPrefix(name, lead) {
		return Name{}, false
	}

	idx := strings.LastIndex(name, codec.RawExtension)
	if idx < len(lead) {
		return Name{}, false
	}
	ext := name[idx+len(codec.RawExtension):]
	if ext != "" && (ext[0] != '.' || len(ext) == 1 || strings.Contains(ext[1:], ".")) {
		return Name{}, false
	}

	head := name[len(lead):idx]
	dot := strings.LastIndex(head, ".")
	if dot <= 0 {
		return Name{}, false
	}
	protocol, err := strconv.Atoi(head[dot+1:])
	if err != nil || protocol < 0 {
		return Name{}, false
	}

	return Name{
		Prefix:    prefix,
		Suffix:    head[:dot],
		Protocol:  protocol,
		Extension: ext,
	}, true
}

// protocolOf extracts the protocol from any "<...>.<protocol>.pickle<ext>"
// base name, regardless of its prefix.
func protocolOf(base string) (int, bool) {
	idx := strings.LastIndex(base, codec.RawExtension)
	if idx <= 0 {
		return 0, false
	}
	head := base[:idx]
	dot := strings.LastIndex(head, ".")
	if dot < 0 {
		return 0, false
	}
	protocol, err := strconv.Atoi(head[dot+1:])
	if err != nil {
		return 0, false
	}
	return protocol, true
}
