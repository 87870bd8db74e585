package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters of one harvest run on a private registry
type Metrics struct {
	registry *prometheus.Registry

	URLsFound       *prometheus.CounterVec
	SearchErrors    *prometheus.CounterVec
	Duplicates      prometheus.Counter
	Downloads       *prometheus.CounterVec
	DownloadBytes   prometheus.Counter
	Attempts        prometheus.Counter
	DownloadSeconds prometheus.Histogram
	MetadataRecords *prometheus.CounterVec
	RunDuration     prometheus.Gauge
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		URLsFound: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imgharvest_urls_found_total",
			Help: "Candidate URLs returned by the search provider.",
		}, []string{"provider", "source"}),
		SearchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imgharvest_search_errors_total",
			Help: "Queries that ended with a provider failure.",
		}, []string{"provider"}),
		Duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "imgharvest_duplicates_total",
			Help: "URLs skipped because they were already seen in this run.",
		}),
		Downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imgharvest_downloads_total",
			Help: "Fetch outcomes.",
		}, []string{"result"}),
		DownloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "imgharvest_download_bytes_total",
			Help: "Bytes written to the output directory.",
		}),
		Attempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "imgharvest_download_attempts_total",
			Help: "HTTP attempts made by the fetch stage, including retries.",
		}),
		DownloadSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "imgharvest_download_duration_seconds",
			Help:    "Duration of fetches including retries.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		MetadataRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "imgharvest_metadata_records_total",
			Help: "Metadata rows by store outcome.",
		}, []string{"result"}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "imgharvest_run_duration_seconds",
			Help: "Wall time of the last harvest run.",
		}),
	}
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSearch records one query result
func (m *Metrics) ObserveSearch(provider, source string, found int, failed bool) {
	m.URLsFound.WithLabelValues(provider, source).Add(float64(found))
	if failed {
		m.SearchErrors.WithLabelValues(provider).Inc()
	}
}

// ObserveDownload records one fetch outcome
func (m *Metrics) ObserveDownload(success bool, size int64, attempts int, d time.Duration) {
	result := "failure"
	if success {
		result = "success"
		m.DownloadBytes.Add(float64(size))
	}
	m.Downloads.WithLabelValues(result).Inc()
	m.Attempts.Add(float64(attempts))
	m.DownloadSeconds.Observe(d.Seconds())
}

// ObserveMetadata records one metadata store outcome
func (m *Metrics) ObserveMetadata(stored bool) {
	result := "failed"
	if stored {
		result = "stored"
	}
	m.MetadataRecords.WithLabelValues(result).Inc()
}

// WriteTextfile writes the registry in the node-exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
