package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yndnr/statesnap/internal/core/domain"
	"github.com/yndnr/statesnap/internal/storage/codec"
)

// Info contains metadata about a snapshot file on disk.
type Info struct {
	Path     string    `json:"path" yaml:"path" table:"wide"`
	Name     string    `json:"name" yaml:"name"`
	Prefix   string    `json:"prefix" yaml:"prefix" table:"-"`
	Suffix   string    `json:"suffix" yaml:"suffix"`
	Protocol int       `json:"protocol" yaml:"protocol" table:"wide"`
	Codec    string    `json:"codec" yaml:"codec"`
	Size     int64     `json:"size" yaml:"size" table:"bytes"`
	ModTime  time.Time `json:"mod_time" yaml:"mod_time"`

	// Current is set when the series alias resolves to this file.
	Current bool `json:"current" yaml:"current"`
}

// RetentionPolicy selects the snapshots Prune keeps.
type RetentionPolicy struct {
	// Count keeps the newest Count snapshots. Zero disables the rule.
	Count int
	// Days keeps snapshots modified within the last Days days. Zero disables the rule.
	Days int
}

// List lists the snapshot files of the series prefix in dir, oldest first.
// Aliases, temp files and files with an extension unknown to reg are skipped.
// A missing directory yields an empty list.
func List(dir, prefix string, reg *codec.Registry) ([]*Info, error) {
	if reg == nil {
		reg = codec.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	aliases := make(map[string]struct{})
	var infos []*Info
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, tempSuffix) {
			continue
		}
		parsed, ok := ParseName(name, prefix)
		if !ok {
			continue
		}
		c, err := reg.LookupExtension(lookupKey(parsed.Extension))
		if err != nil {
			continue
		}

		if parsed.IsAlias() {
			if target, err := readAlias(dir, name); err == nil {
				aliases[target] = struct{}{}
			}
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		st, err := e.Info()
		if err != nil {
			continue
		}

		infos = append(infos, &Info{
			Path:     filepath.Join(dir, name),
			Name:     name,
			Prefix:   parsed.Prefix,
			Suffix:   parsed.Suffix,
			Protocol: parsed.Protocol,
			Codec:    c.ID(),
			Size:     st.Size(),
			ModTime:  st.ModTime(),
		})
	}

	for _, info := range infos {
		if _, ok := aliases[filepath.Clean(info.Path)]; ok {
			info.Current = true
		}
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].ModTime.Equal(infos[j].ModTime) {
			return infos[i].ModTime.Before(infos[j].ModTime)
		}
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

// Current resolves the alias of the series to the snapshot path it points at.
// ext is the codec extension ("" for uncompressed). A missing alias fails
// with domain.ErrNotFound.
func Current(dir, prefix string, protocol int, ext string) (string, error) {
	name := AliasName(prefix, protocol, ext)
	target, err := readAlias(dir, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrNotFound.WithDetails(filepath.Join(dir, name)).WithCause(err)
		}
		return "", err
	}
	return target, nil
}

// lookupKey maps a parsed name extension to the key LookupExtension expects.
func lookupKey(ext string) string {
	if ext == "" {
		return codec.RawExtension
	}
	return ext
}

func readAlias(dir, name string) (string, error) {
	target, err := os.Readlink(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(dir, target)
	}
	return filepath.Clean(target), nil
}

// Prune applies policy to the series and deletes older snapshots. The newest
// snapshot and the alias target are always kept. Removal errors are ignored;
// the removed paths are returned.
func Prune(dir, prefix string, policy RetentionPolicy) ([]string, error) {
	return prune(dir, prefix, policy, time.Now())
}

// PrunePlan returns the snapshots Prune would delete, without deleting them.
func PrunePlan(dir, prefix string, policy RetentionPolicy) ([]*Info, error) {
	return plan(dir, prefix, policy, time.Now())
}

func prune(dir, prefix string, policy RetentionPolicy, now time.Time) ([]string, error) {
	victims, err := plan(dir, prefix, policy, now)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, info := range victims {
		if err := os.Remove(info.Path); err != nil {
			continue
		}
		removed = append(removed, info.Path)
	}
	return removed, nil
}

func plan(dir, prefix string, policy RetentionPolicy, now time.Time) ([]*Info, error) {
	if policy.Count < 0 || policy.Days < 0 {
		return nil, domain.ErrConfiguration.WithDetails(fmt.Sprintf("invalid retention policy %+v", policy))
	}
	if policy.Count == 0 && policy.Days == 0 {
		return nil, nil
	}

	infos, err := List(dir, prefix, nil)
	if err != nil {
		return nil, err
	}
	if len(infos) <= 1 {
		return nil, nil
	}

	keep := make(map[string]struct{}, len(infos))

	if policy.Count > 0 {
		start := len(infos) - policy.Count
		if start < 0 {
			start = 0
		}
		for _, info := range infos[start:] {
			keep[info.Path] = struct{}{}
		}
	}

	if policy.Days > 0 {
		cutoff := now.Add(-time.Duration(policy.Days) * 24 * time.Hour)
		for _, info := range infos {
			if info.ModTime.After(cutoff) {
				keep[info.Path] = struct{}{}
			}
		}
	}

	keep[infos[len(infos)-1].Path] = struct{}{}
	for _, info := range infos {
		if info.Current {
			keep[info.Path] = struct{}{}
		}
	}

	var victims []*Info
	for _, info := range infos {
		if _, ok := keep[info.Path]; !ok {
			victims = append(victims, info)
		}
	}
	return victims, nil
}
