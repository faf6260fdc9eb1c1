// Package output renders command results as a table, JSON or YAML.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: reflection based table rendering with wide mode
//   - json.go: indented JSON
//   - yaml.go: YAML through gopkg.in/yaml.v3
package output
