package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/memberlist"
)

// Member is a node seen through gossip.
type Member struct {
	NodeID string `json:"node_id"`
	Addr   string `json:"addr"`
	Role   string `json:"role"`
	Series string `json:"series,omitempty"`
}

// Config configures discovery.
type Config struct {
	// NodeID is the unique member name.
	NodeID string

	// BindAddr and BindPort select the gossip listener. Port 0 picks a free port.
	BindAddr string
	BindPort int

	// Role and Series are published in the node metadata.
	Role   string
	Series string

	// Seeds are the members to join at startup.
	Seeds []string

	// SecretKey enables gossip encryption (16, 24 or 32 bytes).
	SecretKey []byte

	Logger *slog.Logger
}

// Discovery tracks cluster membership using gossip.
type Discovery struct {
	list   *memberlist.Memberlist
	logger *slog.Logger

	mu       sync.RWMutex
	onJoin   func(Member)
	onLeave  func(Member)
	shutdown bool
}

// nodeMetadata is the JSON document gossiped with each node.
type nodeMetadata struct {
	Role   string `json:"role"`
	Series string `json:"series,omitempty"`
}

// New creates the memberlist and joins the seeds.
func New(cfg Config) (*Discovery, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NodeID == "" {
		return nil, fmt.Errorf("cluster: node id is required")
	}

	meta, err := json.Marshal(nodeMetadata{Role: cfg.Role, Series: cfg.Series})
	if err != nil {
		return nil, fmt.Errorf("cluster: encode metadata: %w", err)
	}

	mlConfig := memberlist.DefaultLANConfig()
	mlConfig.Name = cfg.NodeID
	mlConfig.BindAddr = cfg.BindAddr
	mlConfig.BindPort = cfg.BindPort
	mlConfig.AdvertisePort = cfg.BindPort
	mlConfig.SecretKey = cfg.SecretKey
	mlConfig.Delegate = &metadataDelegate{meta: meta}
	mlConfig.Logger = newHCLogger(cfg.Logger).StandardLogger(&hclog.StandardLoggerOptions{
		InferLevels: true,
	})

	d := &Discovery{logger: cfg.Logger}
	mlConfig.Events = &eventDelegate{discovery: d}

	list, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("cluster: create memberlist: %w", err)
	}
	d.list = list

	if len(cfg.Seeds) > 0 {
		n, err := list.Join(cfg.Seeds)
		if err != nil {
			_ = list.Shutdown()
			return nil, fmt.Errorf("cluster: join seeds: %w", err)
		}
		cfg.Logger.Info("joined cluster", "node_id", cfg.NodeID, "seeds", cfg.Seeds, "joined", n)
	} else {
		cfg.Logger.Info("started discovery", "node_id", cfg.NodeID, "addr", d.LocalAddr())
	}
	return d, nil
}

// OnJoin registers the callback invoked when a member joins.
func (d *Discovery) OnJoin(fn func(Member)) {
	d.mu.Lock()
	d.onJoin = fn
	d.mu.Unlock()
}

// OnLeave registers the callback invoked when a member leaves or fails.
func (d *Discovery) OnLeave(fn func(Member)) {
	d.mu.Lock()
	d.onLeave = fn
	d.mu.Unlock()
}

// Members returns the live members, the local node included.
func (d *Discovery) Members() []Member {
	nodes := d.list.Members()
	out := make([]Member, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toMember(n))
	}
	return out
}

// LocalAddr returns the host:port other members use to join this node.
func (d *Discovery) LocalAddr() string {
	n := d.list.LocalNode()
	return net.JoinHostPort(n.Addr.String(), strconv.Itoa(int(n.Port)))
}

// Leave broadcasts a graceful leave and waits up to timeout for it to spread.
func (d *Discovery) Leave(timeout time.Duration) error {
	if err := d.list.Leave(timeout); err != nil {
		return fmt.Errorf("cluster: leave: %w", err)
	}
	d.logger.Info("left cluster")
	return nil
}

// Shutdown stops gossip. It is safe to call more than once.
func (d *Discovery) Shutdown() error {
	d.mu.Lock()
	if d.shutdown {
		d.mu.Unlock()
		return nil
	}
	d.shutdown = true
	d.mu.Unlock()

	if err := d.list.Shutdown(); err != nil {
		return fmt.Errorf("cluster: shutdown memberlist: %w", err)
	}
	d.logger.Info("discovery shutdown complete")
	return nil
}

// Close leaves the cluster and shuts down, for use as a shutdown hook.
func (d *Discovery) Close(ctx context.Context) error {
	timeout := time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := d.Leave(timeout); err != nil {
		d.logger.Warn("leave cluster failed", "error", err)
	}
	return d.Shutdown()
}

func toMember(n *memberlist.Node) Member {
	m := Member{
		NodeID: n.Name,
		Addr:   net.JoinHostPort(n.Addr.String(), strconv.Itoa(int(n.Port))),
	}
	var meta nodeMetadata
	if len(n.Meta) > 0 && json.Unmarshal(n.Meta, &meta) == nil {
		m.Role = meta.Role
		m.Series = meta.Series
	}
	return m
}

type eventDelegate struct {
	discovery *Discovery
}

func (e *eventDelegate) NotifyJoin(node *memberlist.Node) {
	m := toMember(node)
	e.discovery.logger.Info("node joined", "node_id", m.NodeID, "addr", m.Addr, "role", m.Role)

	e.discovery.mu.RLock()
	fn := e.discovery.onJoin
	e.discovery.mu.RUnlock()
	if fn != nil {
		fn(m)
	}
}

func (e *eventDelegate) NotifyLeave(node *memberlist.Node) {
	m := toMember(node)
	e.discovery.logger.Info("node left", "node_id", m.NodeID, "addr", m.Addr, "role", m.Role)

	e.discovery.mu.RLock()
	fn := e.discovery.onLeave
	e.discovery.mu.RUnlock()
	if fn != nil {
		fn(m)
	}
}

func (e *eventDelegate) NotifyUpdate(node *memberlist.Node) {
	e.discovery.logger.Debug("node updated", "node_id", node.Name)
}

// metadataDelegate publishes the node metadata; memberlist messages are unused.
type metadataDelegate struct {
	meta []byte
}

func (m *metadataDelegate) NodeMeta(limit int) []byte {
	if len(m.meta) > limit {
		return m.meta[:limit]
	}
	return m.meta
}

func (m *metadataDelegate) NotifyMsg([]byte)                           {}
func (m *metadataDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (m *metadataDelegate) LocalState(join bool) []byte                { return nil }
func (m *metadataDelegate) MergeRemoteState(buf []byte, join bool)     {}

// newHCLogger builds the hclog logger memberlist writes through. Lines are
// forwarded to the slog handler at the level hclog inferred.
func newHCLogger(logger *slog.Logger) hclog.Logger {
	level := hclog.Info
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:            "memberlist",
		Level:           level,
		Output:          &slogWriter{logger: logger},
		DisableTime:     true,
		IncludeLocation: false,
	})
}

// slogWriter forwards formatted hclog lines to slog.
type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	level := slog.LevelDebug
	switch {
	case strings.HasPrefix(line, "[ERROR]"):
		level = slog.LevelError
	case strings.HasPrefix(line, "[WARN]"):
		level = slog.LevelWarn
	case strings.HasPrefix(line, "[INFO]"):
		level = slog.LevelInfo
	}
	w.logger.Log(context.Background(), level, line, "component", "memberlist")
	return len(p), nil
}

var _ io.Writer = (*slogWriter)(nil)
