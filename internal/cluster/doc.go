// Package cluster provides gossip membership between the master and its
// workers.
//
// Each node publishes its role and snapshot series as metadata. The master
// subscribes to leave events and reports departed workers to the
// coordinator, which drops them from the acknowledgement gate.
package cluster
