package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statesnap/internal/infra/buildinfo"
)

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "deps",
				Usage: "Include linked module versions",
			},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("deps") && ParseGlobalFlags(c).Output == "table" {
				fmt.Fprintln(c.App.Writer, "statesnap "+buildinfo.String())
				return nil
			}
			info := buildinfo.Get()
			if c.Bool("deps") {
				info = buildinfo.GetWithDeps()
			}
			if ParseGlobalFlags(c).Output == "table" {
				return render(c, info.Deps)
			}
			return render(c, info)
		},
	}
}
