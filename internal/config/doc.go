// Package config defines the statesnap configuration structure, its defaults
// and validation.
//
// Configuration is loaded by internal/infra/confloader from a YAML file and
// STATESNAP_* environment variables, e.g.:
//
//	snapshot:
//	  directory: /var/lib/statesnap
//	  prefix: run
//	  compression: snappy
//	  tick_interval: 3
//	  time_interval: 30s
//	coordinator:
//	  role: master
//	cluster:
//	  enabled: true
//	  seeds: [10.0.0.2:7946]
package config
