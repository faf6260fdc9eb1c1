package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/yndnr/statesnap/internal/cluster"
	"github.com/yndnr/statesnap/internal/core/snapshotter"
)

// ErrStopped is returned when an event is submitted after Run returned.
var ErrStopped = errors.New("coordinator: loop stopped")

// DefaultQueueSize is used when Config.QueueSize is not positive.
const DefaultQueueSize = 256

type eventKind int

const (
	eventTick eventKind = iota
	eventAssigned
	eventCompleted
	eventDropped
	eventBlocked
	eventSkip
	eventDisabled
	eventReload
	eventForce
	eventSync
)

func (k eventKind) String() string {
	switch k {
	case eventTick:
		return "tick"
	case eventAssigned:
		return "worker_assigned"
	case eventCompleted:
		return "worker_completed"
	case eventDropped:
		return "worker_dropped"
	case eventBlocked:
		return "blocked"
	case eventSkip:
		return "skip"
	case eventDisabled:
		return "disabled"
	case eventReload:
		return "reload"
	case eventForce:
		return "force"
	case eventSync:
		return "sync"
	default:
		return "unknown"
	}
}

type event struct {
	kind   eventKind
	worker string
	flag   bool
	flags  Flags
	done   chan struct{}
}

// Flags are the runtime switches a configuration reload may change.
type Flags struct {
	Skip     bool
	Disabled bool
	Suffix   string
}

// Config configures the loop.
type Config struct {
	// TickEvery makes the loop tick on its own. Zero disables the ticker.
	TickEvery time.Duration
	// QueueSize bounds the event queue.
	QueueSize int
	Logger    *slog.Logger
}

// Loop serializes every interaction with a Snapshotter onto one goroutine,
// in arrival order.
type Loop struct {
	snap      *snapshotter.Snapshotter
	events    chan event
	stopped   chan struct{}
	tickEvery time.Duration
	logger    *slog.Logger

	fired  atomic.Int64
	failed atomic.Int64
}

// New creates a loop around snap. Call Run to start processing.
func New(snap *snapshotter.Snapshotter, cfg Config) *Loop {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		snap:      snap,
		events:    make(chan event, cfg.QueueSize),
		stopped:   make(chan struct{}),
		tickEvery: cfg.TickEvery,
		logger:    cfg.Logger,
	}
}

// Run processes events until ctx is cancelled. Events still queued at that
// point are discarded.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.stopped)

	var tick <-chan time.Time
	if l.tickEvery > 0 {
		t := time.NewTicker(l.tickEvery)
		defer t.Stop()
		tick = t.C
	}

	l.logger.Info("coordinator started", "role", l.snap.Role(), "tick_every", l.tickEvery)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("coordinator stopped", "fired", l.fired.Load(), "errors", l.failed.Load())
			return
		case <-tick:
			l.handle(ctx, event{kind: eventTick})
		case ev := <-l.events:
			l.handle(ctx, ev)
		}
	}
}

func (l *Loop) handle(ctx context.Context, ev event) {
	var (
		fired bool
		err   error
	)
	switch ev.kind {
	case eventTick:
		fired, err = l.snap.OnTick(ctx)
	case eventAssigned:
		l.snap.OnWorkerAssigned(ev.worker)
	case eventCompleted:
		err = l.snap.OnWorkerCompleted(ctx, ev.worker)
	case eventDropped:
		err = l.snap.OnWorkerDropped(ctx, ev.worker)
	case eventBlocked:
		err = l.snap.SetBlocked(ctx, ev.flag)
	case eventSkip:
		l.snap.SetSkip(ev.flag)
	case eventDisabled:
		snapshotter.SetDisabled(ev.flag)
	case eventReload:
		err = l.apply(ev.flags)
	case eventForce:
		_, err = l.snap.ForceExport(ctx)
		fired = err == nil
	case eventSync:
	}
	if fired {
		l.fired.Add(1)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		l.failed.Add(1)
		l.logger.Error("coordinator event failed", "event", ev.kind.String(), "worker", ev.worker, "error", err)
	}
	if ev.done != nil {
		close(ev.done)
	}
}

func (l *Loop) apply(f Flags) error {
	l.snap.SetSkip(f.Skip)
	snapshotter.SetDisabled(f.Disabled)
	if f.Suffix != "" {
		if err := l.snap.SetSuffix(f.Suffix); err != nil {
			return err
		}
	}
	l.logger.Info("configuration reloaded", "skip", f.Skip, "disabled", f.Disabled, "suffix", f.Suffix)
	return nil
}

func (l *Loop) submit(ctx context.Context, ev event) error {
	select {
	case <-l.stopped:
		return ErrStopped
	default:
	}
	select {
	case l.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrStopped
	}
}

// Tick queues one step of the owning computation.
func (l *Loop) Tick(ctx context.Context) error {
	return l.submit(ctx, event{kind: eventTick})
}

// WorkerAssigned queues a work assignment to worker id.
func (l *Loop) WorkerAssigned(ctx context.Context, id string) error {
	return l.submit(ctx, event{kind: eventAssigned, worker: id})
}

// WorkerCompleted queues a completion report from worker id.
func (l *Loop) WorkerCompleted(ctx context.Context, id string) error {
	return l.submit(ctx, event{kind: eventCompleted, worker: id})
}

// WorkerDropped queues the disconnection of worker id.
func (l *Loop) WorkerDropped(ctx context.Context, id string) error {
	return l.submit(ctx, event{kind: eventDropped, worker: id})
}

// SetBlocked queues a change of the additional gating condition.
func (l *Loop) SetBlocked(ctx context.Context, blocked bool) error {
	return l.submit(ctx, event{kind: eventBlocked, flag: blocked})
}

// SetSkip queues a change of the force-skip flag.
func (l *Loop) SetSkip(ctx context.Context, skip bool) error {
	return l.submit(ctx, event{kind: eventSkip, flag: skip})
}

// SetDisabled queues a change of the process-wide disable flag.
func (l *Loop) SetDisabled(ctx context.Context, disabled bool) error {
	return l.submit(ctx, event{kind: eventDisabled, flag: disabled})
}

// Reload queues new runtime flags.
func (l *Loop) Reload(ctx context.Context, f Flags) error {
	return l.submit(ctx, event{kind: eventReload, flags: f})
}

// ForceExport queues an immediate export.
func (l *Loop) ForceExport(ctx context.Context) error {
	return l.submit(ctx, event{kind: eventForce})
}

// Sync blocks until every event queued before it has been processed.
func (l *Loop) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if err := l.submit(ctx, event{kind: eventSync, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrStopped
	}
}

// Stats returns the number of exports fired and of failed events so far.
func (l *Loop) Stats() (fired, failed int64) {
	return l.fired.Load(), l.failed.Load()
}

// BindCluster drops workers from the gate when they leave the cluster.
func (l *Loop) BindCluster(d *cluster.Discovery) {
	d.OnLeave(l.memberLeft)
}

func (l *Loop) memberLeft(m cluster.Member) {
	if m.Role != string(snapshotter.RoleWorker) {
		return
	}
	if err := l.WorkerDropped(context.Background(), m.NodeID); err != nil {
		l.logger.Warn("worker drop not delivered", "node_id", m.NodeID, "error", err)
	}
}

// ReloadOnChange returns a config watcher callback that reloads the flags
// through load and queues them.
func (l *Loop) ReloadOnChange(load func() (Flags, error)) func(path string) {
	return func(path string) {
		f, err := load()
		if err != nil {
			l.logger.Error("reload configuration failed", "path", path, "error", err)
			return
		}
		if err := l.Reload(context.Background(), f); err != nil {
			l.logger.Warn("reload not delivered", "path", path, "error", err)
		}
	}
}
