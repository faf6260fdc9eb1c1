// Package coordinator drives a Snapshotter from a single event loop.
//
// Ticks, worker notifications, gating changes and configuration reloads may
// originate from many goroutines (the workflow, gossip callbacks, the config
// watcher). The Loop queues them and applies them one at a time, in arrival
// order, so the Snapshotter never sees concurrent calls.
//
//	loop := coordinator.New(snap, coordinator.Config{TickEvery: time.Second})
//	go loop.Run(ctx)
//	loop.WorkerAssigned(ctx, "w1")
//	loop.Tick(ctx)
package coordinator
