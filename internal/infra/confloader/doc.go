// Package confloader provides the configuration loading mechanism.
//
// Loader layers a YAML file, STATESNAP_* environment variables and explicit
// overrides with koanf. Watcher notifies about changes of the configuration
// file (hot reload) or of files in a directory, on top of fsnotify.
package confloader
