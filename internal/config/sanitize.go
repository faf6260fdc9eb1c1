package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging and
// the "config" command.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg
	sanitized.Cluster.Seeds = append([]string(nil), cfg.Cluster.Seeds...)

	if sanitized.Cluster.GossipKey != "" {
		sanitized.Cluster.GossipKey = maskSecret(sanitized.Cluster.GossipKey)
	}
	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
