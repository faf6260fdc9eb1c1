package config

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/statesnap/internal/core/domain"
	"github.com/yndnr/statesnap/internal/core/snapshotter"
	"github.com/yndnr/statesnap/internal/storage/codec"
	"github.com/yndnr/statesnap/internal/storage/snapshot"
	"github.com/yndnr/statesnap/internal/telemetry/logger"
)

// Verify validates the configuration. Every failure matches
// domain.ErrConfiguration.
func Verify(cfg *Config) error {
	if err := verifySnapshot(&cfg.Snapshot); err != nil {
		return err
	}
	if err := verifyCoordinator(&cfg.Coordinator); err != nil {
		return err
	}
	if err := verifyCluster(&cfg.Cluster); err != nil {
		return err
	}
	if _, err := logger.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if _, err := logger.ParseFormat(cfg.Log.Format); err != nil {
		return err
	}
	return nil
}

func invalid(format string, args ...any) error {
	return domain.ErrConfiguration.WithDetails(fmt.Sprintf(format, args...))
}

func verifySnapshot(cfg *SnapshotSection) error {
	if strings.TrimSpace(cfg.Directory) == "" {
		return invalid("snapshot.directory is required")
	}
	if cfg.Prefix == "" || strings.ContainsAny(cfg.Prefix, `/\`) {
		return invalid("snapshot.prefix %q is invalid", cfg.Prefix)
	}
	if cfg.Suffix == "" || cfg.Suffix == snapshot.AliasSuffix {
		return invalid("snapshot.suffix %q is invalid", cfg.Suffix)
	}
	if _, err := codec.Default().Lookup(cfg.Compression); err != nil {
		return err
	}
	if cfg.CompressionLevel < codec.MinLevel || cfg.CompressionLevel > codec.MaxLevel {
		return invalid("snapshot.compression_level must be in [%d,%d], got %d",
			codec.MinLevel, codec.MaxLevel, cfg.CompressionLevel)
	}
	if cfg.TickInterval < 1 {
		return invalid("snapshot.tick_interval must be at least 1")
	}
	if cfg.TimeInterval < 0 {
		return invalid("snapshot.time_interval must not be negative")
	}
	if cfg.RetentionCount < 0 || cfg.RetentionDays < 0 {
		return invalid("snapshot retention must not be negative")
	}
	if _, err := snapshot.NewSerializer(cfg.Serializer); err != nil {
		return err
	}
	return nil
}

func verifyCoordinator(cfg *CoordinatorSection) error {
	if _, err := snapshotter.ParseRole(cfg.Role); err != nil {
		return err
	}
	if cfg.TickEvery < 0 {
		return invalid("coordinator.tick_every must not be negative")
	}
	if cfg.QueueSize < 1 {
		return invalid("coordinator.queue_size must be at least 1")
	}
	return nil
}

func verifyCluster(cfg *ClusterSection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BindPort < 0 || cfg.BindPort > 65535 {
		return invalid("cluster.bind_port %d out of range", cfg.BindPort)
	}
	if cfg.GossipKey != "" {
		if _, err := GossipKeyBytes(cfg.GossipKey); err != nil {
			return err
		}
	}
	return nil
}

// PassphrasePrefix marks a gossip key that is a passphrase rather than a
// base64 AES key.
const PassphrasePrefix = "passphrase:"

const gossipKeyInfo = "statesnap gossip key v1"

// GossipKeyBytes decodes a base64 gossip key and checks its AES length.
//
// A key of the form "passphrase:<text>" is stretched to a 32 byte AES key with
// HKDF-SHA256, so every node configured with the same text derives the same key.
func GossipKeyBytes(key string) ([]byte, error) {
	if pass, ok := strings.CutPrefix(key, PassphrasePrefix); ok {
		if len(pass) < 8 {
			return nil, invalid("cluster.gossip_key passphrase must be at least 8 characters")
		}
		out := make([]byte, 32)
		if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(pass), nil, []byte(gossipKeyInfo)), out); err != nil {
			return nil, domain.ErrConfiguration.WithDetails("derive gossip key").WithCause(err)
		}
		return out, nil
	}
	b, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, domain.ErrConfiguration.WithDetails("cluster.gossip_key is not valid base64").WithCause(err)
	}
	switch len(b) {
	case 16, 24, 32:
		return b, nil
	default:
		return nil, invalid("cluster.gossip_key must decode to 16, 24 or 32 bytes, got %d", len(b))
	}
}
