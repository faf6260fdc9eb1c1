package config

import "time"

// Config is the root configuration.
type Config struct {
	Snapshot    SnapshotSection    `koanf:"snapshot" yaml:"snapshot" json:"snapshot"`
	Coordinator CoordinatorSection `koanf:"coordinator" yaml:"coordinator" json:"coordinator"`
	Cluster     ClusterSection     `koanf:"cluster" yaml:"cluster" json:"cluster"`
	Metrics     MetricsSection     `koanf:"metrics" yaml:"metrics" json:"metrics"`
	Log         LogSection         `koanf:"log" yaml:"log" json:"log"`
}

// SnapshotSection configures the snapshot series and its schedule.
type SnapshotSection struct {
	// Directory receives the snapshot files.
	Directory string `koanf:"directory" yaml:"directory" json:"directory"`
	// Prefix names the series.
	Prefix string `koanf:"prefix" yaml:"prefix" json:"prefix"`
	// Suffix labels the first snapshot files until the workflow changes it.
	Suffix string `koanf:"suffix" yaml:"suffix" json:"suffix"`

	// Compression is a codec id: "" (none), snappy, gz, bz2, xz, zst or lz4.
	Compression      string `koanf:"compression" yaml:"compression" json:"compression"`
	CompressionLevel int    `koanf:"compression_level" yaml:"compression_level" json:"compression_level"`

	TickInterval int           `koanf:"tick_interval" yaml:"tick_interval" json:"tick_interval"`
	TimeInterval time.Duration `koanf:"time_interval" yaml:"time_interval" json:"time_interval"`
	Skip         bool          `koanf:"skip" yaml:"skip" json:"skip"`

	// Disabled turns snapshotting off for the whole process.
	Disabled bool `koanf:"disabled" yaml:"disabled" json:"disabled"`

	RetentionCount int `koanf:"retention_count" yaml:"retention_count" json:"retention_count"`
	RetentionDays  int `koanf:"retention_days" yaml:"retention_days" json:"retention_days"`

	// CatalogDir enables the export history database when set.
	CatalogDir string `koanf:"catalog_dir" yaml:"catalog_dir" json:"catalog_dir"`

	// Serializer is "gob" or "proto".
	Serializer string `koanf:"serializer" yaml:"serializer" json:"serializer"`
}

// CoordinatorSection configures the event loop driving the snapshotter.
type CoordinatorSection struct {
	// Role is standalone, master or worker.
	Role string `koanf:"role" yaml:"role" json:"role"`
	// TickEvery makes the loop tick on its own; zero leaves ticking to the
	// embedding workflow.
	TickEvery time.Duration `koanf:"tick_every" yaml:"tick_every" json:"tick_every"`
	// QueueSize bounds the number of pending events.
	QueueSize int `koanf:"queue_size" yaml:"queue_size" json:"queue_size"`
}

// ClusterSection configures gossip membership between master and workers.
type ClusterSection struct {
	Enabled bool `koanf:"enabled" yaml:"enabled" json:"enabled"`

	// NodeID is the unique member name. Generated when empty.
	NodeID   string   `koanf:"node_id" yaml:"node_id" json:"node_id"`
	BindAddr string   `koanf:"bind_addr" yaml:"bind_addr" json:"bind_addr"`
	BindPort int      `koanf:"bind_port" yaml:"bind_port" json:"bind_port"`
	Seeds    []string `koanf:"seeds" yaml:"seeds" json:"seeds"`

	// GossipKey is an optional base64 AES key (16, 24 or 32 bytes) encrypting
	// gossip traffic.
	GossipKey string `koanf:"gossip_key" yaml:"gossip_key" json:"gossip_key"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	// Addr serves /metrics when set.
	Addr string `koanf:"addr" yaml:"addr" json:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}
