package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statesnap/internal/cli/output"
	"github.com/yndnr/statesnap/internal/config"
)

// ConfigCommand shows and validates the effective configuration.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show the merged configuration (defaults, file, STATESNAP_* env, flags)",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration",
				Action: configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(ParseGlobalFlags(c).Output)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		format = output.FormatYAML
	}
	return output.NewFormatter(format, false).Format(c.App.Writer, config.Sanitize(cfg))
}

func configValidate(c *cli.Context) error {
	_, loader, err := loadConfig(c)
	if err != nil {
		return err
	}
	source := loader.FilePath()
	if source == "" {
		source = "defaults and environment"
	}
	fmt.Fprintf(c.App.Writer, "configuration OK (%s)\n", source)
	return nil
}
