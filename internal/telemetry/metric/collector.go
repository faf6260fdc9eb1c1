package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DirStats reports the number of snapshot files of a series and their
// total size.
type DirStats func() (files int, bytes int64, err error)

// Collector reports on-disk snapshot statistics at scrape time.
type Collector struct {
	stats DirStats

	files *prometheus.Desc
	bytes *prometheus.Desc
}

// NewCollector creates a collector for the series described by series.
func NewCollector(series string, stats DirStats) *Collector {
	labels := prometheus.Labels{"series": series}
	return &Collector{
		stats: stats,
		files: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "snapshot_files"),
			"Snapshot files of the series on disk",
			nil, labels),
		bytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "snapshot_dir_bytes"),
			"Total size of the snapshot files of the series",
			nil, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.files
	ch <- c.bytes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	files, size, err := c.stats()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.files, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.files, prometheus.GaugeValue, float64(files))
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(size))
}
