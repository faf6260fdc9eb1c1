package snapshot

import "time"

// Record describes one successfully written snapshot.
type Record struct {
	ID          string    `json:"id" yaml:"id"`
	Path        string    `json:"path" yaml:"path"`
	Alias       string    `json:"alias,omitempty" yaml:"alias,omitempty"`
	Prefix      string    `json:"prefix" yaml:"prefix"`
	Suffix      string    `json:"suffix" yaml:"suffix"`
	Codec       string    `json:"codec" yaml:"codec"`
	Level       int       `json:"level" yaml:"level"`
	Protocol    int       `json:"protocol" yaml:"protocol"`
	Size        int64     `json:"size" yaml:"size"`
	Fingerprint string    `json:"fingerprint" yaml:"fingerprint"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}
