package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/statesnap/internal/storage/codec"
)

type codecRow struct {
	ID        string `json:"id" yaml:"id"`
	Extension string `json:"extension" yaml:"extension"`
	Example   string `json:"example" yaml:"example"`
}

// CodecsCommand lists the registered compression codecs.
func CodecsCommand() *cli.Command {
	return &cli.Command{
		Name:   "codecs",
		Usage:  "List supported compression codecs",
		Action: codecsList,
	}
}

func codecsList(c *cli.Context) error {
	var rows []codecRow
	for _, cd := range codec.Default().Codecs() {
		id := cd.ID()
		if id == "" {
			id = "none"
		}
		rows = append(rows, codecRow{
			ID:        id,
			Extension: cd.Extension(),
			Example:   "run_1.4" + codec.RawExtension + cd.Extension(),
		})
	}
	return render(c, rows)
}
