// Package snapshotter decides when workflow state is snapshotted.
//
// A Snapshotter is ticked once per step of its owning computation. It fires
// an export through a snapshot.Writer when its Policy is due:
//
//	ticks since last fire >= TickInterval
//	time since last fire  >= TimeInterval
//	Skip is unset
//
// On a master, the Gate additionally holds fires back while any worker has
// an outstanding unit of work. A fire that was due while the gate was closed
// is re-evaluated exactly once when the last pending worker completes or is
// dropped.
//
// The scheduler has two states, Armed and Firing. Ticks that arrive while an
// export is running are ignored. Failed exports are not retried.
package snapshotter
