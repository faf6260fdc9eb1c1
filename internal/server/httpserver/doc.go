// Package httpserver serves the agent's operational endpoints:
//
//	GET /metrics  Prometheus exposition
//	GET /healthz  liveness probe
//	GET /status   JSON snapshot of the coordinator counters
//
// Every request passes through RequestID, Recover and AccessLog.
package httpserver
