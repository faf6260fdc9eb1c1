package command

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/yndnr/statesnap/internal/storage/codec"
	"github.com/yndnr/statesnap/internal/storage/snapshot"
	"github.com/yndnr/statesnap/internal/telemetry/logger"
)

// ListCommand lists the snapshots of the configured series.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List snapshots of the series, oldest first",
		Action:  snapshotList,
	}
}

func snapshotList(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	infos, err := snapshot.List(cfg.Snapshot.Directory, cfg.Snapshot.Prefix, codec.Default())
	if err != nil {
		return err
	}
	return render(c, infos)
}

type currentResult struct {
	Alias  string `json:"alias" yaml:"alias"`
	Target string `json:"target" yaml:"target"`
}

// CurrentCommand resolves the "current" alias of the series.
func CurrentCommand() *cli.Command {
	return &cli.Command{
		Name:  "current",
		Usage: "Show the snapshot the current alias points at",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "compression",
				Usage: "Codec of the alias (defaults to snapshot.compression)",
			},
		},
		Action: snapshotCurrent,
	}
}

func snapshotCurrent(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	s, err := snapshot.NewSerializer(cfg.Snapshot.Serializer)
	if err != nil {
		return err
	}
	id := cfg.Snapshot.Compression
	if c.IsSet("compression") {
		id = c.String("compression")
	}
	cd, err := codec.Default().Lookup(id)
	if err != nil {
		return err
	}

	target, err := snapshot.Current(cfg.Snapshot.Directory, cfg.Snapshot.Prefix, s.Protocol(), cd.Extension())
	if err != nil {
		return err
	}
	alias := filepath.Join(cfg.Snapshot.Directory, snapshot.AliasName(cfg.Snapshot.Prefix, s.Protocol(), cd.Extension()))
	if ParseGlobalFlags(c).Output == "table" {
		fmt.Fprintln(c.App.Writer, target)
		return nil
	}
	return render(c, currentResult{Alias: alias, Target: target})
}

// InspectCommand describes a snapshot file and optionally decodes it.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the codec, sizes and fingerprint of a snapshot file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "decode",
				Usage: "Deserialize the payload and print it as JSON",
			},
		},
		Action: snapshotInspect,
	}
}

func snapshotInspect(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("inspect requires exactly one FILE argument")
	}
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	path := c.Args().First()

	detail, err := snapshot.Inspect(path, codec.Default())
	if err != nil {
		return err
	}
	if err := render(c, detail); err != nil {
		return err
	}
	if !c.Bool("decode") {
		return nil
	}

	s, err := snapshot.NewSerializer(cfg.Snapshot.Serializer)
	if err != nil {
		return err
	}
	im := &snapshot.Importer{Logger: logger.Default().Slog()}
	state, err := im.Import(path, s)
	if err != nil {
		return err
	}
	return printState(c, state)
}

func printState(c *cli.Context, state any) error {
	if m, ok := state.(proto.Message); ok {
		b, err := protojson.MarshalOptions{Multiline: true}.Marshal(m)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, string(b))
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

type recompressResult struct {
	Source  string `json:"source" yaml:"source"`
	Output  string `json:"output" yaml:"output"`
	Size    int64  `json:"size" yaml:"size" table:"bytes"`
	Removed bool   `json:"removed" yaml:"removed"`
}

// RecompressCommand rewrites snapshot files with another codec.
func RecompressCommand() *cli.Command {
	return &cli.Command{
		Name:      "recompress",
		Usage:     "Rewrite snapshot files with another codec",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Target codec id (none, snappy, gz, bz2, xz, zst, lz4)",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "level",
				Usage: "Compression level 0-9",
				Value: codec.DefaultLevel,
			},
			&cli.BoolFlag{
				Name:  "remove",
				Usage: "Delete each source after it was rewritten",
			},
		},
		Action: snapshotRecompress,
	}
}

func snapshotRecompress(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("recompress requires at least one FILE argument")
	}
	var results []recompressResult
	for _, path := range c.Args().Slice() {
		out, err := snapshot.Recompress(path, c.String("to"), c.Int("level"), codec.Default())
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		res := recompressResult{Source: path, Output: out}
		if fi, err := os.Stat(out); err == nil {
			res.Size = fi.Size()
		}
		if c.Bool("remove") {
			res.Removed = os.Remove(path) == nil
		}
		results = append(results, res)
	}
	return render(c, results)
}

// PruneCommand deletes old snapshots of the series.
func PruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Delete old snapshots; the newest one and the alias target are kept",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "keep",
				Usage: "Keep the newest N snapshots (defaults to snapshot.retention_count)",
			},
			&cli.IntFlag{
				Name:  "days",
				Usage: "Keep snapshots modified within N days (defaults to snapshot.retention_days)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show what would be deleted",
			},
		},
		Action: snapshotPrune,
	}
}

func snapshotPrune(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	policy := snapshot.RetentionPolicy{
		Count: cfg.Snapshot.RetentionCount,
		Days:  cfg.Snapshot.RetentionDays,
	}
	if c.IsSet("keep") {
		policy.Count = c.Int("keep")
	}
	if c.IsSet("days") {
		policy.Days = c.Int("days")
	}
	if policy.Count == 0 && policy.Days == 0 {
		return fmt.Errorf("no retention rule: pass --keep or --days")
	}

	victims, err := snapshot.PrunePlan(cfg.Snapshot.Directory, cfg.Snapshot.Prefix, policy)
	if err != nil {
		return err
	}
	if c.Bool("dry-run") {
		return render(c, victims)
	}

	removed, err := snapshot.Prune(cfg.Snapshot.Directory, cfg.Snapshot.Prefix, policy)
	if err != nil {
		return err
	}
	logger.Default().Info("pruned snapshots", "removed", len(removed), "dir", cfg.Snapshot.Directory)
	return render(c, removed)
}
