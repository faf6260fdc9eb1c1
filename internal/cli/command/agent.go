package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/urfave/cli/v2"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/yndnr/statesnap/internal/cluster"
	"github.com/yndnr/statesnap/internal/config"
	"github.com/yndnr/statesnap/internal/coordinator"
	"github.com/yndnr/statesnap/internal/core/snapshotter"
	"github.com/yndnr/statesnap/internal/infra/confloader"
	"github.com/yndnr/statesnap/internal/infra/shutdown"
	"github.com/yndnr/statesnap/internal/server/httpserver"
	"github.com/yndnr/statesnap/internal/storage/codec"
	"github.com/yndnr/statesnap/internal/storage/snapshot"
	"github.com/yndnr/statesnap/internal/telemetry/logger"
	"github.com/yndnr/statesnap/internal/telemetry/metric"
)

// agentState is the progress record the agent snapshots.
type agentState struct {
	NodeID  string
	Role    string
	Exports uint64
	Started time.Time
	Members []string
}

func init() {
	snapshot.RegisterType(agentState{})
}

// AgentCommand runs the coordinator loop, snapshotting the agent's own
// progress record. It exercises the full pipeline: gossip membership, config
// hot reload, the catalog and the metrics endpoint.
func AgentCommand() *cli.Command {
	return &cli.Command{
		Name:  "agent",
		Usage: "Run the snapshot coordinator until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "role",
				Usage: "standalone, master or worker (overrides coordinator.role)",
			},
			&cli.DurationFlag{
				Name:  "tick-every",
				Usage: "Tick period (overrides coordinator.tick_every)",
			},
			&cli.BoolFlag{
				Name:  "final",
				Usage: "Export once more on shutdown",
			},
		},
		Action: runAgent,
	}
}

func runAgent(c *cli.Context) error {
	cfg, loader, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("role") {
		cfg.Coordinator.Role = c.String("role")
	}
	if c.IsSet("tick-every") {
		cfg.Coordinator.TickEvery = c.Duration("tick-every")
	}
	if err := config.Verify(cfg); err != nil {
		return err
	}
	if cfg.Coordinator.TickEvery <= 0 {
		return fmt.Errorf("agent needs coordinator.tick_every or --tick-every")
	}

	role, _ := snapshotter.ParseRole(cfg.Coordinator.Role)
	nodeID := cfg.Cluster.NodeID
	if nodeID == "" {
		host, _ := os.Hostname()
		nodeID = host + "-" + ulid.Make().String()[20:]
	}
	base := logger.Default().With("node_id", nodeID, "series", cfg.Snapshot.Prefix)
	log := base.Slog()

	ctx, stop := shutdown.WithSignals(c.Context)
	defer stop()
	hooks := shutdown.NewHandler(10*time.Second, log)

	serializer, err := snapshot.NewSerializer(cfg.Snapshot.Serializer)
	if err != nil {
		return err
	}
	writer, err := snapshot.NewWriter(snapshot.WriterConfig{
		Dir:         cfg.Snapshot.Directory,
		Prefix:      cfg.Snapshot.Prefix,
		Compression: cfg.Snapshot.Compression,
		Level:       cfg.Snapshot.CompressionLevel,
		Serializer:  serializer,
		Logger:      base.Component("writer").Slog(),
	})
	if err != nil {
		return err
	}

	metrics := metric.NewRegistry()
	metrics.MustRegister(metric.NewCollector(cfg.Snapshot.Prefix, dirStats(cfg.Snapshot.Directory, cfg.Snapshot.Prefix)))

	opts := []snapshotter.Option{snapshotter.WithLogger(base.Component("snapshotter").Slog()), snapshotter.WithMetrics(metrics)}
	if cfg.Snapshot.CatalogDir != "" {
		catalog, err := snapshot.OpenCatalog(snapshot.CatalogConfig{Dir: cfg.Snapshot.CatalogDir, Logger: base.Component("catalog").Slog()})
		if err != nil {
			return err
		}
		hooks.OnShutdown("catalog", func(context.Context) error { return catalog.Close() })
		opts = append(opts, snapshotter.WithRecorder(catalog))
	}

	var (
		discovery *cluster.Discovery
		exports   atomic.Uint64
		started   = time.Now().UTC()
	)
	state := func() (any, error) {
		st := agentState{
			NodeID:  nodeID,
			Role:    string(role),
			Exports: exports.Add(1),
			Started: started,
		}
		if discovery != nil {
			for _, m := range discovery.Members() {
				st.Members = append(st.Members, m.NodeID)
			}
		}
		return encodeAgentState(serializer, st)
	}

	snapshotter.SetDisabled(cfg.Snapshot.Disabled)
	snap, err := snapshotter.New(writer, state, snapshotter.Config{
		Role:         role,
		TickInterval: cfg.Snapshot.TickInterval,
		TimeInterval: cfg.Snapshot.TimeInterval,
		Skip:         cfg.Snapshot.Skip,
		Suffix:       cfg.Snapshot.Suffix,
		Retention: snapshot.RetentionPolicy{
			Count: cfg.Snapshot.RetentionCount,
			Days:  cfg.Snapshot.RetentionDays,
		},
	}, opts...)
	if err != nil {
		return err
	}

	loop := coordinator.New(snap, coordinator.Config{
		TickEvery: cfg.Coordinator.TickEvery,
		QueueSize: cfg.Coordinator.QueueSize,
		Logger:    base.Component("coordinator").Slog(),
	})

	if cfg.Cluster.Enabled {
		var key []byte
		if cfg.Cluster.GossipKey != "" {
			if key, err = config.GossipKeyBytes(cfg.Cluster.GossipKey); err != nil {
				return err
			}
		}
		discovery, err = cluster.New(cluster.Config{
			NodeID:    nodeID,
			BindAddr:  cfg.Cluster.BindAddr,
			BindPort:  cfg.Cluster.BindPort,
			Role:      string(role),
			Series:    cfg.Snapshot.Prefix,
			Seeds:     cfg.Cluster.Seeds,
			SecretKey: key,
			Logger:    base.Component("cluster").Slog(),
		})
		if err != nil {
			return err
		}
		loop.BindCluster(discovery)
		hooks.OnShutdown("cluster", discovery.Close)
	}

	if path := loader.FilePath(); path != "" {
		watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(base.Component("config").Slog()))
		if err != nil {
			return err
		}
		if err := watcher.Watch(path); err != nil {
			watcher.Stop()
			return err
		}
		watcher.OnChange(loop.ReloadOnChange(reloadFlags(loader)))
		go watcher.Run(ctx)
		hooks.OnShutdown("config watcher", func(context.Context) error { return watcher.Stop() })
	}

	if cfg.Metrics.Addr != "" {
		srv := httpserver.New(httpserver.Config{
			Addr:    cfg.Metrics.Addr,
			Metrics: metrics.Handler(),
			Status:  agentStatus(nodeID, role, loop, &discovery),
			Logger:  base.Component("http").Slog(),
		})
		go func() {
			log.Info("metrics listening", "addr", srv.Addr())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", "error", err)
			}
		}()
		hooks.OnShutdown("metrics", srv.Shutdown)
	}

	loopDone := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(loopDone)
	}()

	log.Info("agent started",
		"role", role,
		"dir", writer.Dir(),
		"compression", codecLabel(writer.Codec()),
		"tick_every", cfg.Coordinator.TickEvery)

	<-ctx.Done()
	<-loopDone

	if c.Bool("final") {
		if rec, err := snap.ForceExport(context.Background()); err != nil {
			log.Error("final snapshot failed", "error", err)
		} else {
			log.Info("final snapshot written", "path", rec.Path)
		}
	}
	fired, failed := loop.Stats()
	log.Info("agent stopping", "fired", fired, "failed", failed)
	return hooks.Shutdown()
}

// encodeAgentState converts st to a value the serializer accepts.
func encodeAgentState(s snapshot.Serializer, st agentState) (any, error) {
	if s.Protocol() != snapshot.ProtoProtocol {
		return st, nil
	}
	members := make([]any, 0, len(st.Members))
	for _, m := range st.Members {
		members = append(members, m)
	}
	return structpb.NewStruct(map[string]any{
		"node_id": st.NodeID,
		"role":    st.Role,
		"exports": float64(st.Exports),
		"started": st.Started.Format(time.RFC3339),
		"members": members,
	})
}

// reloadFlags re-reads the configuration and extracts the runtime flags.
func reloadFlags(loader *confloader.Loader) func() (coordinator.Flags, error) {
	return func() (coordinator.Flags, error) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			return coordinator.Flags{}, err
		}
		if err := config.Verify(next); err != nil {
			return coordinator.Flags{}, err
		}
		_ = logger.SetLevel(next.Log.Level)
		return coordinator.Flags{
			Skip:     next.Snapshot.Skip,
			Disabled: next.Snapshot.Disabled,
			Suffix:   next.Snapshot.Suffix,
		}, nil
	}
}

func dirStats(dir, prefix string) metric.DirStats {
	return func() (int, int64, error) {
		infos, err := snapshot.List(dir, prefix, codec.Default())
		if err != nil {
			return 0, 0, err
		}
		var total int64
		for _, info := range infos {
			total += info.Size
		}
		return len(infos), total, nil
	}
}

// agentStatus reports counters that are safe to read outside the loop.
func agentStatus(nodeID string, role snapshotter.Role, loop *coordinator.Loop, discovery **cluster.Discovery) httpserver.StatusFunc {
	return func() any {
		fired, failed := loop.Stats()
		st := struct {
			NodeID  string   `json:"node_id"`
			Role    string   `json:"role"`
			Fired   int64    `json:"fired"`
			Failed  int64    `json:"failed"`
			Members []string `json:"members,omitempty"`
		}{NodeID: nodeID, Role: string(role), Fired: fired, Failed: failed}
		if d := *discovery; d != nil {
			for _, m := range d.Members() {
				st.Members = append(st.Members, m.NodeID)
			}
		}
		return st
	}
}

func codecLabel(c codec.Codec) string {
	if c.ID() == "" {
		return "none"
	}
	return c.ID()
}

