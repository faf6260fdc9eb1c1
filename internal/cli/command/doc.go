// Package command provides the statesnap CLI commands using urfave/cli/v2:
//
//   - root.go: root command, global flags, configuration loading
//   - codecs.go: registered compression codecs
//   - snapshots.go: list, current, inspect, recompress and prune
//   - history.go: export catalog queries
//   - watch.go: follow a snapshot directory
//   - config.go: show and validate configuration
//   - agent.go: run the snapshot coordinator
//   - version.go: build information
//
// Commands follow a consistent pattern of parsing flags, calling the storage
// or coordinator packages, and formatting output through cli/output.
package command
