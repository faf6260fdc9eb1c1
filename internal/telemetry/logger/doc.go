// Package logger provides structured logging for statesnap.
//
// It wraps the standard library log/slog. Components that only need a plain
// *slog.Logger get one from Logger.Slog; the agent hands each subsystem a
// Component logger so lines can be filtered by "component".
//
// Values of keys that look like secrets (passwords, gossip keys) are
// redacted before they reach the handler.
package logger
