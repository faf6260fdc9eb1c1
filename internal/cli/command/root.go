package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/statesnap/internal/cli/output"
	"github.com/yndnr/statesnap/internal/config"
	"github.com/yndnr/statesnap/internal/infra/buildinfo"
	"github.com/yndnr/statesnap/internal/infra/confloader"
	"github.com/yndnr/statesnap/internal/telemetry/logger"
)

const (
	metaConfig = "config"
	metaLoader = "loader"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "statesnap",
		Usage:   "inspect and manage workflow state snapshots",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			CodecsCommand(),
			ListCommand(),
			CurrentCommand(),
			InspectCommand(),
			RecompressCommand(),
			PruneCommand(),
			HistoryCommand(),
			WatchCommand(),
			ConfigCommand(),
			AgentCommand(),
			VersionCommand(),
		},
		Metadata: map[string]any{},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (YAML)",
			EnvVars: []string{"STATESNAP_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "Snapshot directory (overrides snapshot.directory)",
		},
		&cli.StringFlag{
			Name:    "prefix",
			Aliases: []string{"p"},
			Usage:   "Snapshot series prefix (overrides snapshot.prefix)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Enable debug logging",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config  string
	Dir     string
	Prefix  string
	Output  string
	Wide    bool
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:  c.String("config"),
		Dir:     c.String("dir"),
		Prefix:  c.String("prefix"),
		Output:  c.String("output"),
		Wide:    c.Bool("wide"),
		Verbose: c.Bool("verbose"),
	}
}

// loadConfig loads and verifies the configuration once per invocation and
// installs the process logger.
func loadConfig(c *cli.Context) (*config.Config, *confloader.Loader, error) {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.Config); ok {
		return cfg, c.App.Metadata[metaLoader].(*confloader.Loader), nil
	}

	flags := ParseGlobalFlags(c)
	overrides := map[string]any{}
	if flags.Dir != "" {
		overrides["snapshot.directory"] = flags.Dir
	}
	if flags.Prefix != "" {
		overrides["snapshot.prefix"] = flags.Prefix
	}
	if flags.Verbose {
		overrides["log.level"] = "debug"
	}

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if flags.Config != "" {
		opts = append(opts, confloader.WithConfigFile(flags.Config))
	}
	loader := confloader.NewLoader(opts...)

	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.SetDefault(log)

	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaLoader] = loader
	return cfg, loader, nil
}

// render writes data in the format selected by --output.
func render(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}
	return output.NewFormatter(format, flags.Wide).Format(c.App.Writer, data)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
