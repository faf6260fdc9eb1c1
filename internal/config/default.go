package config

import "time"

// Default configuration values.
const (
	DefaultDirectory        = "snapshots"
	DefaultPrefix           = "workflow"
	DefaultSuffix           = "0"
	DefaultCompression      = "gz"
	DefaultCompressionLevel = 6
	DefaultTickInterval     = 1
	DefaultTimeInterval     = 15 * time.Second
	DefaultSerializer       = "gob"

	DefaultRole      = "standalone"
	DefaultQueueSize = 256

	DefaultBindAddr = "0.0.0.0"
	DefaultBindPort = 7946

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Snapshot: SnapshotSection{
			Directory:        DefaultDirectory,
			Prefix:           DefaultPrefix,
			Suffix:           DefaultSuffix,
			Compression:      DefaultCompression,
			CompressionLevel: DefaultCompressionLevel,
			TickInterval:     DefaultTickInterval,
			TimeInterval:     DefaultTimeInterval,
			Serializer:       DefaultSerializer,
		},
		Coordinator: CoordinatorSection{
			Role:      DefaultRole,
			QueueSize: DefaultQueueSize,
		},
		Cluster: ClusterSection{
			BindAddr: DefaultBindAddr,
			BindPort: DefaultBindPort,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
