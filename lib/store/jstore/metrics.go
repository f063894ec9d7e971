package jstore

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"io"
)

// storeMetrics holds the metrics of one backing file. Stores opened on the same
// path share their metrics.
type storeMetrics struct {
	syncs         *metrics.Counter
	asyncSyncs    *metrics.Counter
	syncErrors    *metrics.Counter
	asyncErrors   *metrics.Counter
	writeDuration *metrics.Histogram
	documentSize  *metrics.Histogram
}

func newStoreMetrics(path string) *storeMetrics {
	label := fmt.Sprintf("path=%q", path)
	return &storeMetrics{
		syncs:         metrics.GetOrCreateCounter(fmt.Sprintf(`jsondb_syncs_total{%s,mode="sync"}`, label)),
		asyncSyncs:    metrics.GetOrCreateCounter(fmt.Sprintf(`jsondb_syncs_total{%s,mode="async"}`, label)),
		syncErrors:    metrics.GetOrCreateCounter(fmt.Sprintf(`jsondb_sync_errors_total{%s,mode="sync"}`, label)),
		asyncErrors:   metrics.GetOrCreateCounter(fmt.Sprintf(`jsondb_sync_errors_total{%s,mode="async"}`, label)),
		writeDuration: metrics.GetOrCreateHistogram(fmt.Sprintf(`jsondb_write_duration_seconds{%s}`, label)),
		documentSize:  metrics.GetOrCreateHistogram(fmt.Sprintf(`jsondb_document_size_bytes{%s}`, label)),
	}
}

// SyncCount returns how many synchronous and asynchronous writes were started for the
// backing file since the process started.
func (s *Store) SyncCount() (syncs, asyncs uint64) {
	return s.metrics.syncs.Get(), s.metrics.asyncSyncs.Get()
}

// WriteMetrics writes the metrics of all stores in Prometheus text format to w.
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
