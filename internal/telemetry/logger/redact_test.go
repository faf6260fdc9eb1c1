package logger

import (
	"log/slog"
	"testing"
)

func TestRedactSensitive(t *testing.T) {
	l, buf := newJSON(t, "info")

	l.Info("cluster starting", "gossip_key", "c2VjcmV0LWtleS0xMjM0NQ==", "bind_addr", "0.0.0.0")

	entry := decode(t, buf)
	if entry["gossip_key"] != redactedValue {
		t.Errorf("gossip_key = %v, want redacted", entry["gossip_key"])
	}
	if entry["bind_addr"] != "0.0.0.0" {
		t.Errorf("bind_addr = %v, want unchanged", entry["bind_addr"])
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	a := slog.Group("cluster", slog.String("secret_key", "abc"), slog.Int("port", 7946))

	got := redactSensitive(a)
	attrs := got.Value.Group()
	if attrs[0].Value.String() != redactedValue {
		t.Errorf("secret_key = %v, want redacted", attrs[0].Value)
	}
	if attrs[1].Value.Int64() != 7946 {
		t.Errorf("port = %v, want 7946", attrs[1].Value)
	}
}

func TestRedactSensitive_EmptyValueKept(t *testing.T) {
	got := redactSensitive(slog.String("password", ""))
	if got.Value.String() != "" {
		t.Errorf("empty password = %q, want empty", got.Value.String())
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := map[string]bool{
		"gossip_key": true,
		"Password":   true,
		"api_token":  true,
		"path":       false,
		"codec":      false,
		"prefix":     false,
	}
	for key, want := range tests {
		if got := IsSensitiveKey(key); got != want {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", key, got, want)
		}
	}
}
