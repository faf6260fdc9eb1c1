package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/statesnap/internal/core/domain"
	"github.com/yndnr/statesnap/internal/storage/snapshot"
	"github.com/yndnr/statesnap/internal/telemetry/logger"
)

type historyRow struct {
	ID          string `json:"id" yaml:"id"`
	Suffix      string `json:"suffix" yaml:"suffix"`
	Codec       string `json:"codec" yaml:"codec"`
	Size        int64  `json:"size" yaml:"size" table:"bytes"`
	CreatedAt   string `json:"created_at" yaml:"created_at"`
	Path        string `json:"path" yaml:"path" table:"wide"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint" table:"wide"`
}

// HistoryCommand prints the export history recorded in the catalog.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the export history recorded in snapshot.catalog_dir",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "latest",
				Usage: "Show only the most recent export",
			},
		},
		Action: historyList,
	}
}

func historyList(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Snapshot.CatalogDir == "" {
		return domain.ErrConfiguration.WithDetails("snapshot.catalog_dir is not set")
	}

	catalog, err := snapshot.OpenCatalog(snapshot.CatalogConfig{
		Dir:      cfg.Snapshot.CatalogDir,
		ReadOnly: true,
		Logger:   logger.Default().Slog(),
	})
	if err != nil {
		return err
	}
	defer catalog.Close()

	var recs []*snapshot.Record
	if c.Bool("latest") {
		rec, err := catalog.Latest(cfg.Snapshot.Prefix)
		if err != nil {
			return err
		}
		recs = []*snapshot.Record{rec}
	} else if recs, err = catalog.List(cfg.Snapshot.Prefix); err != nil {
		return err
	}

	if ParseGlobalFlags(c).Output != "table" {
		return render(c, recs)
	}
	rows := make([]historyRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, historyRow{
			ID:          r.ID,
			Suffix:      r.Suffix,
			Codec:       r.Codec,
			Size:        r.Size,
			CreatedAt:   r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			Path:        r.Path,
			Fingerprint: r.Fingerprint,
		})
	}
	return render(c, rows)
}
