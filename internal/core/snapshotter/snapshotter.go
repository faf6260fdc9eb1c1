package snapshotter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yndnr/statesnap/internal/core/domain"
	"github.com/yndnr/statesnap/internal/storage/snapshot"
	"github.com/yndnr/statesnap/internal/telemetry/metric"
)

// Role is the part a process plays in a distributed run.
type Role string

const (
	// RoleStandalone snapshots on its own ticks; there are no workers.
	RoleStandalone Role = "standalone"
	// RoleMaster coordinates workers and owns the gate.
	RoleMaster Role = "master"
	// RoleWorker never snapshots.
	RoleWorker Role = "worker"
)

// ParseRole parses a configured role name. Empty means standalone.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RoleStandalone, nil
	case RoleStandalone, RoleMaster, RoleWorker:
		return r, nil
	default:
		return "", domain.ErrConfiguration.WithDetails(fmt.Sprintf("unknown role %q", s))
	}
}

// State is the scheduler state.
type State int32

const (
	StateArmed State = iota
	StateFiring
)

func (s State) String() string {
	if s == StateFiring {
		return "firing"
	}
	return "armed"
}

var (
	ErrDisabled         = errors.New("snapshotter: snapshotting is disabled")
	ErrExportInProgress = errors.New("snapshotter: export in progress")
)

var disabled atomic.Bool

// SetDisabled toggles snapshotting for the whole process.
func SetDisabled(v bool) { disabled.Store(v) }

// Disabled reports whether snapshotting is disabled process-wide.
func Disabled() bool { return disabled.Load() }

// StateFunc returns the state to snapshot.
type StateFunc func() (any, error)

// Recorder stores the record of each successful export.
type Recorder interface {
	Put(rec *snapshot.Record) error
}

// Config configures a Snapshotter.
type Config struct {
	Role Role

	// TickInterval is the minimum number of ticks between fires (>= 1).
	TickInterval int
	// TimeInterval is the minimum time between fires.
	TimeInterval time.Duration
	Skip         bool

	// Suffix labels the next snapshot file, e.g. an epoch. Change it with
	// SetSuffix as the run progresses.
	Suffix string

	// Retention, when set, prunes the series after each successful export.
	Retention snapshot.RetentionPolicy
}

// Option configures optional Snapshotter dependencies.
type Option func(*Snapshotter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Snapshotter) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Snapshotter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records tick, export and gate metrics into r.
func WithMetrics(r *metric.Registry) Option {
	return func(s *Snapshotter) { s.metrics = r }
}

// WithRecorder stores every exported record, e.g. into a snapshot.Catalog.
func WithRecorder(r Recorder) Option {
	return func(s *Snapshotter) { s.recorder = r }
}

// Snapshotter schedules snapshots of one workflow.
//
// It is driven by a single control thread: OnTick, the worker notifications,
// SetSkip, SetSuffix, SetBlocked and ForceExport must not be called
// concurrently. State and LastSnapshot may be read from any goroutine.
type Snapshotter struct {
	writer    *snapshot.Writer
	state     StateFunc
	role      Role
	suffix    string
	retention snapshot.RetentionPolicy

	policy Policy
	gate   *Gate

	logger   *slog.Logger
	metrics  *metric.Registry
	recorder Recorder
	now      func() time.Time

	firing atomic.Int32
	last   atomic.Pointer[snapshot.Record]
}

// New creates a Snapshotter exporting the value returned by state through w.
func New(w *snapshot.Writer, state StateFunc, cfg Config, opts ...Option) (*Snapshotter, error) {
	if w == nil || state == nil {
		return nil, domain.ErrConfiguration.WithDetails("writer and state source are required")
	}
	if cfg.Role == "" {
		cfg.Role = RoleStandalone
	}
	if _, err := ParseRole(string(cfg.Role)); err != nil {
		return nil, err
	}
	if cfg.TickInterval < 1 {
		return nil, domain.ErrConfiguration.WithDetails(fmt.Sprintf("tick interval must be >= 1, got %d", cfg.TickInterval))
	}
	if cfg.TimeInterval < 0 {
		return nil, domain.ErrConfiguration.WithDetails(fmt.Sprintf("time interval must be >= 0, got %s", cfg.TimeInterval))
	}
	if cfg.Suffix == "" {
		return nil, domain.ErrConfiguration.WithDetails("snapshot suffix is required")
	}

	s := &Snapshotter{
		writer:    w,
		state:     state,
		role:      cfg.Role,
		suffix:    cfg.Suffix,
		retention: cfg.Retention,
		gate:      NewGate(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.policy = NewPolicy(cfg.TickInterval, cfg.TimeInterval, s.now())
	s.policy.Skip = cfg.Skip

	s.logger.Debug("snapshotter initialized",
		"role", s.role,
		"compression", w.Codec().ID(),
		"compression_level", w.Level(),
		"interval", cfg.TickInterval,
		"time_interval", cfg.TimeInterval)
	return s, nil
}

// OnTick is called once per step of the owning computation. It reports
// whether a snapshot was exported. Export errors are returned as is; the
// scheduler does not retry and waits for the next due tick.
func (s *Snapshotter) OnTick(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.role == RoleWorker || Disabled() {
		return false, nil
	}
	if s.State() == StateFiring {
		s.countTick(metric.TickIgnored)
		return false, nil
	}

	s.policy.Tick()
	return s.evaluate()
}

// evaluate fires when the policy is due and the gate is open. A due fire held
// back by the gate is deferred until the gate opens.
func (s *Snapshotter) evaluate() (bool, error) {
	now := s.now()
	if !s.policy.Due(now) {
		if !s.policy.Skip && s.policy.Ticks() >= s.policy.TickInterval {
			s.logger.Debug("snapshot dropped",
				"elapsed", s.policy.Elapsed(now),
				"time_interval", s.policy.TimeInterval)
		}
		s.countTick(metric.TickSkipped)
		return false, nil
	}
	if !s.gate.Open() {
		s.gate.Defer()
		s.countTick(metric.TickDeferred)
		s.logger.Debug("snapshot deferred",
			"pending", s.gate.Len(),
			"blocked", s.gate.Blocked())
		return false, nil
	}

	s.policy.Reset(now)
	s.countTick(metric.TickFired)
	if _, err := s.export(); err != nil {
		return true, err
	}
	return true, nil
}

// ForceExport exports immediately, bypassing the policy and the gate, and
// restarts the policy window.
func (s *Snapshotter) ForceExport(ctx context.Context) (*snapshot.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if Disabled() {
		return nil, ErrDisabled
	}
	if s.State() == StateFiring {
		return nil, ErrExportInProgress
	}
	s.policy.Reset(s.now())
	return s.export()
}

func (s *Snapshotter) export() (*snapshot.Record, error) {
	s.firing.Store(int32(StateFiring))
	defer s.firing.Store(int32(StateArmed))

	codecID := s.writer.Codec().ID()
	if codecID == "" {
		codecID = "raw"
	}
	s.logger.Info("snapshotting", "path", s.writer.Path(s.suffix))

	start := time.Now()
	state, err := s.state()
	if err != nil {
		s.countExport(codecID, metric.ResultError)
		return nil, fmt.Errorf("snapshotter: collect state: %w", err)
	}

	rec, err := s.writer.Export(state, s.suffix)
	if err != nil {
		s.countExport(codecID, metric.ResultError)
		s.logger.Error("snapshot export failed", "path", s.writer.Path(s.suffix), "error", err)
		return nil, err
	}
	s.last.Store(rec)

	if s.metrics != nil {
		s.metrics.ExportsTotal.WithLabelValues(codecID, metric.ResultSuccess).Inc()
		s.metrics.ExportDuration.WithLabelValues(codecID).Observe(time.Since(start).Seconds())
		s.metrics.SnapshotSize.Set(float64(rec.Size))
		if rec.Alias == "" {
			s.metrics.AliasFailures.Inc()
		}
	}

	if s.recorder != nil {
		if err := s.recorder.Put(rec); err != nil {
			s.logger.Warn("record snapshot failed", "id", rec.ID, "error", err)
		}
	}
	if s.retention.Count > 0 || s.retention.Days > 0 {
		removed, err := snapshot.Prune(s.writer.Dir(), s.writer.Prefix(), s.retention)
		if err != nil {
			s.logger.Warn("prune snapshots failed", "error", err)
		} else if len(removed) > 0 {
			s.logger.Debug("pruned snapshots", "removed", removed)
		}
	}

	s.logger.Info("snapshot complete",
		"path", rec.Path,
		"size", rec.Size,
		"duration", time.Since(start))
	return rec, nil
}

// OnWorkerAssigned marks a worker as busy with a unit of work. Ignored unless
// the role is master.
func (s *Snapshotter) OnWorkerAssigned(id string) {
	if s.role != RoleMaster {
		return
	}
	s.gate.Assign(id)
	s.observePending()
}

// OnWorkerCompleted is called when a worker reports its unit of work done.
// If it was the last pending worker and a fire had been deferred, the policy
// is evaluated again (without counting a tick). Ignored unless the role is
// master.
func (s *Snapshotter) OnWorkerCompleted(ctx context.Context, id string) error {
	if s.role != RoleMaster {
		return nil
	}
	released := s.gate.Complete(id)
	s.observePending()
	return s.afterRelease(ctx, released)
}

// OnWorkerDropped is called when a worker disconnects or fails.
func (s *Snapshotter) OnWorkerDropped(ctx context.Context, id string) error {
	if s.role != RoleMaster {
		return nil
	}
	released := s.gate.Drop(id)
	s.observePending()
	return s.afterRelease(ctx, released)
}

// SetBlocked sets the additional gating condition. Unblocking may fire a
// deferred snapshot.
func (s *Snapshotter) SetBlocked(ctx context.Context, blocked bool) error {
	return s.afterRelease(ctx, s.gate.SetBlocked(blocked))
}

func (s *Snapshotter) afterRelease(ctx context.Context, released bool) error {
	if !released {
		return nil
	}
	if Disabled() || s.State() == StateFiring {
		s.gate.Defer()
		return nil
	}
	if err := ctx.Err(); err != nil {
		s.gate.Defer()
		return err
	}
	_, err := s.evaluate()
	return err
}

// SetSkip toggles the force-skip flag of the policy.
func (s *Snapshotter) SetSkip(skip bool) {
	s.policy.Skip = skip
}

// Skip returns the force-skip flag.
func (s *Snapshotter) Skip() bool { return s.policy.Skip }

// SetSuffix changes the label of subsequent snapshot files.
func (s *Snapshotter) SetSuffix(suffix string) error {
	if suffix == "" || suffix == snapshot.AliasSuffix {
		return domain.ErrConfiguration.WithDetails(fmt.Sprintf("invalid snapshot suffix %q", suffix))
	}
	s.suffix = suffix
	return nil
}

// Role returns the configured role.
func (s *Snapshotter) Role() Role { return s.role }

// State returns the scheduler state.
func (s *Snapshotter) State() State {
	return State(s.firing.Load())
}

// Policy returns a copy of the current policy.
func (s *Snapshotter) Policy() Policy { return s.policy }

// Pending returns the pending worker ids.
func (s *Snapshotter) Pending() []string { return s.gate.Pending() }

// LastSnapshot returns the record of the last successful export, or nil.
func (s *Snapshotter) LastSnapshot() *snapshot.Record {
	return s.last.Load()
}

// LastSnapshotPath returns the path of the last successful export.
func (s *Snapshotter) LastSnapshotPath() (string, bool) {
	rec := s.last.Load()
	if rec == nil {
		return "", false
	}
	return rec.Path, true
}

func (s *Snapshotter) countTick(result string) {
	if s.metrics != nil {
		s.metrics.TicksTotal.WithLabelValues(result).Inc()
	}
}

func (s *Snapshotter) countExport(codecID, result string) {
	if s.metrics != nil {
		s.metrics.ExportsTotal.WithLabelValues(codecID, result).Inc()
	}
}

func (s *Snapshotter) observePending() {
	if s.metrics != nil {
		s.metrics.PendingWorkers.Set(float64(s.gate.Len()))
	}
}
