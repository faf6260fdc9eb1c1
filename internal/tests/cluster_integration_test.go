// Package tests holds integration tests that span several packages.
//
// The cluster test starts a master and a worker on loopback gossip and
// verifies that a worker leaving the cluster releases the acknowledgement
// gate of the master's snapshotter.
package tests

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/statesnap/internal/cluster"
	"github.com/yndnr/statesnap/internal/coordinator"
	"github.com/yndnr/statesnap/internal/core/snapshotter"
	"github.com/yndnr/statesnap/internal/storage/snapshot"
)

type runState struct {
	Epoch   int
	Workers []string
}

func init() {
	snapshot.RegisterType(runState{})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func startNode(t *testing.T, id, role string, seeds ...string) *cluster.Discovery {
	t.Helper()
	d, err := cluster.New(cluster.Config{
		NodeID:   id,
		BindAddr: "127.0.0.1",
		BindPort: 0,
		Role:     role,
		Series:   "run",
		Seeds:    seeds,
		Logger:   quietLogger(),
	})
	if err != nil {
		t.Fatalf("cluster.New(%s) error = %v", id, err)
	}
	t.Cleanup(func() { _ = d.Shutdown() })
	return d
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// TestCluster_WorkerLeaveReleasesGate runs a master and a worker locally.
func TestCluster_WorkerLeaveReleasesGate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()
	w, err := snapshot.NewWriter(snapshot.WriterConfig{
		Dir:         dir,
		Prefix:      "run",
		Compression: "zst",
		Serializer:  snapshot.GobSerializer{},
		Logger:      quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	var (
		mu      sync.Mutex
		workers []string
	)
	state := func() (any, error) {
		mu.Lock()
		defer mu.Unlock()
		return runState{Epoch: 1, Workers: append([]string(nil), workers...)}, nil
	}
	snap, err := snapshotter.New(w, state, snapshotter.Config{
		Role:         snapshotter.RoleMaster,
		TickInterval: 1,
		Suffix:       "1",
	}, snapshotter.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("snapshotter.New() error = %v", err)
	}

	loop := coordinator.New(snap, coordinator.Config{QueueSize: 16, Logger: quietLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	ended := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(ended)
	}()
	t.Cleanup(func() {
		cancel()
		<-ended
	})

	master := startNode(t, "master", "master")
	loop.BindCluster(master)

	joined := make(chan cluster.Member, 1)
	master.OnJoin(func(m cluster.Member) {
		mu.Lock()
		workers = append(workers, m.NodeID)
		mu.Unlock()
		joined <- m
	})

	worker := startNode(t, "worker-1", "worker", master.LocalAddr())

	var m cluster.Member
	select {
	case m = <-joined:
	case <-time.After(15 * time.Second):
		t.Fatal("worker never joined")
	}
	if err := loop.WorkerAssigned(ctx, m.NodeID); err != nil {
		t.Fatalf("WorkerAssigned() error = %v", err)
	}
	if err := loop.Tick(ctx); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if err := loop.Sync(ctx); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if snap.LastSnapshot() != nil {
		t.Fatal("snapshot exported while the worker still owes an acknowledgement")
	}

	if err := worker.Leave(5 * time.Second); err != nil {
		t.Fatalf("Leave() error = %v", err)
	}
	eventually(t, "deferred snapshot", func() bool {
		if err := loop.Sync(ctx); err != nil {
			return false
		}
		return snap.LastSnapshot() != nil
	})

	rec := snap.LastSnapshot()
	got, err := snapshot.Import(rec.Path, snapshot.GobSerializer{})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	rs, ok := got.(runState)
	if !ok {
		t.Fatalf("Import() returned %T", got)
	}
	if rs.Epoch != 1 || len(rs.Workers) != 1 || rs.Workers[0] != "worker-1" {
		t.Errorf("state = %+v", rs)
	}
	if fired, failed := loop.Stats(); fired != 1 || failed != 0 {
		t.Errorf("Stats() = %d, %d, want 1, 0", fired, failed)
	}
}
