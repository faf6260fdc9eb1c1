package config

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/statesnap/internal/core/domain"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify(Default()) error = %v", err)
	}
	if cfg.Snapshot.Compression != "gz" || cfg.Snapshot.CompressionLevel != 6 {
		t.Errorf("compression = %q/%d, want gz/6", cfg.Snapshot.Compression, cfg.Snapshot.CompressionLevel)
	}
	if cfg.Snapshot.TimeInterval != 15*time.Second {
		t.Errorf("time_interval = %v, want 15s", cfg.Snapshot.TimeInterval)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty directory", func(c *Config) { c.Snapshot.Directory = " " }},
		{"prefix with separator", func(c *Config) { c.Snapshot.Prefix = "a/b" }},
		{"alias suffix", func(c *Config) { c.Snapshot.Suffix = "current" }},
		{"unknown compression", func(c *Config) { c.Snapshot.Compression = "rar" }},
		{"level too high", func(c *Config) { c.Snapshot.CompressionLevel = 10 }},
		{"zero tick interval", func(c *Config) { c.Snapshot.TickInterval = 0 }},
		{"negative time interval", func(c *Config) { c.Snapshot.TimeInterval = -time.Second }},
		{"negative retention", func(c *Config) { c.Snapshot.RetentionCount = -1 }},
		{"unknown serializer", func(c *Config) { c.Snapshot.Serializer = "pickle" }},
		{"unknown role", func(c *Config) { c.Coordinator.Role = "observer" }},
		{"zero queue", func(c *Config) { c.Coordinator.QueueSize = 0 }},
		{"bad port", func(c *Config) { c.Cluster.Enabled = true; c.Cluster.BindPort = 70000 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad gossip key", func(c *Config) { c.Cluster.Enabled = true; c.Cluster.GossipKey = "c2hvcnQ=" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := Verify(cfg); !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("Verify() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestVerify_AcceptsNoCompression(t *testing.T) {
	cfg := Default()
	cfg.Snapshot.Compression = "none"
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
}

func TestGossipKeyBytes(t *testing.T) {
	key := "MDEyMzQ1Njc4OWFiY2RlZg==" // 16 bytes
	b, err := GossipKeyBytes(key)
	if err != nil {
		t.Fatalf("GossipKeyBytes() error = %v", err)
	}
	if len(b) != 16 {
		t.Errorf("len = %d, want 16", len(b))
	}
	if _, err := GossipKeyBytes("!!!"); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("GossipKeyBytes(!!!) error = %v, want ErrConfiguration", err)
	}
}

func TestGossipKeyBytes_Passphrase(t *testing.T) {
	a, err := GossipKeyBytes(PassphrasePrefix + "correct horse battery")
	if err != nil {
		t.Fatalf("GossipKeyBytes() error = %v", err)
	}
	if len(a) != 32 {
		t.Fatalf("len = %d, want 32", len(a))
	}
	b, _ := GossipKeyBytes(PassphrasePrefix + "correct horse battery")
	if !bytes.Equal(a, b) {
		t.Error("same passphrase derived different keys")
	}
	c, _ := GossipKeyBytes(PassphrasePrefix + "another passphrase")
	if bytes.Equal(a, c) {
		t.Error("different passphrases derived the same key")
	}
	if _, err := GossipKeyBytes(PassphrasePrefix + "short"); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("short passphrase error = %v, want ErrConfiguration", err)
	}
}

func TestSanitize(t *testing.T) {
	cfg := Default()
	cfg.Cluster.GossipKey = "MDEyMzQ1Njc4OWFiY2RlZg=="
	cfg.Cluster.Seeds = []string{"10.0.0.1"}

	s := Sanitize(cfg)
	if s.Cluster.GossipKey == cfg.Cluster.GossipKey || !strings.Contains(s.Cluster.GossipKey, "****") {
		t.Errorf("GossipKey = %q, want masked", s.Cluster.GossipKey)
	}
	if cfg.Cluster.GossipKey != "MDEyMzQ1Njc4OWFiY2RlZg==" {
		t.Error("Sanitize modified the original")
	}
	s.Cluster.Seeds[0] = "changed"
	if cfg.Cluster.Seeds[0] != "10.0.0.1" {
		t.Error("Sanitize shares the seeds slice")
	}
	if maskSecret("abc") != "****" {
		t.Errorf("maskSecret(abc) = %q", maskSecret("abc"))
	}
}
