package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/statesnap/internal/infra/shutdown"
	"github.com/yndnr/statesnap/internal/storage/snapshot"
)

// snapshotEvent is printed for every snapshot that appears in the directory.
type snapshotEvent struct {
	Time   time.Time `json:"time"`
	Name   string    `json:"name"`
	Alias  bool      `json:"alias"`
	Target string    `json:"target,omitempty"`
	Size   int64     `json:"size"`
}

// WatchCommand follows the snapshot directory and prints new snapshots.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Print snapshots of the series as they are written",
		Action: snapshotWatch,
	}
}

func snapshotWatch(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := shutdown.WithSignals(c.Context)
	defer stop()

	jsonLines := ParseGlobalFlags(c).Output == "json"
	return watchDir(ctx, cfg.Snapshot.Directory, cfg.Snapshot.Prefix, c.App.Writer, jsonLines, nil)
}

// watchDir reports snapshot files of prefix created in dir until ctx is
// done. Temp files are ignored; a completed export shows up as the rename of
// its temp file. ready, when set, is closed once the watch is installed.
func watchDir(ctx context.Context, dir, prefix string, w io.Writer, jsonLines bool, ready chan<- struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) {
				continue
			}
			out, ok := describe(ev.Name, prefix)
			if !ok {
				continue
			}
			if err := printEvent(w, out, jsonLines); err != nil {
				return err
			}
		}
	}
}

func describe(path, prefix string) (snapshotEvent, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") {
		return snapshotEvent{}, false
	}
	name, ok := snapshot.ParseName(base, prefix)
	if !ok {
		return snapshotEvent{}, false
	}

	ev := snapshotEvent{Time: time.Now(), Name: base, Alias: name.IsAlias()}
	if ev.Alias {
		target, err := os.Readlink(path)
		if err != nil {
			return snapshotEvent{}, false
		}
		ev.Target = target
		return ev, true
	}
	if fi, err := os.Stat(path); err == nil {
		ev.Size = fi.Size()
	}
	return ev, true
}

func printEvent(w io.Writer, ev snapshotEvent, jsonLines bool) error {
	if jsonLines {
		return json.NewEncoder(w).Encode(ev)
	}
	var err error
	if ev.Alias {
		_, err = fmt.Fprintf(w, "%s  %s -> %s\n", ev.Time.Format("15:04:05"), ev.Name, ev.Target)
	} else {
		_, err = fmt.Fprintf(w, "%s  %s  %s\n", ev.Time.Format("15:04:05"), ev.Name, humanize.Bytes(uint64(ev.Size)))
	}
	return err
}
