package imagestore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	uploadsTotal   *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	encodeAttempts *prometheus.HistogramVec
	outputBytes    *prometheus.HistogramVec
	deletesTotal   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagehelper_uploads_total",
			Help: "Total image uploads by format and outcome.",
		}, []string{"format", "status"}),
		uploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imagehelper_upload_duration_seconds",
			Help:    "Time spent decoding, resizing, encoding and writing one upload.",
			Buckets: prometheus.DefBuckets,
		}, []string{"format"}),
		encodeAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imagehelper_encode_attempts",
			Help:    "Encode attempts used by the quality search per upload.",
			Buckets: prometheus.LinearBuckets(1, 1, 8),
		}, []string{"format"}),
		outputBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "imagehelper_output_bytes",
			Help:    "Size of the stored image after re-encoding.",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12),
		}, []string{"format"}),
		deletesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagehelper_deletes_total",
			Help: "Total delete requests by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.uploadsTotal,
			m.uploadDuration,
			m.encodeAttempts,
			m.outputBytes,
			m.deletesTotal,
		)
	}
	return m
}

func (m *Metrics) observeUpload(format, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(format, status).Inc()
	m.uploadDuration.WithLabelValues(format).Observe(elapsed.Seconds())
}

func (m *Metrics) observeEncode(format string, attempts, size int) {
	if m == nil {
		return
	}
	m.encodeAttempts.WithLabelValues(format).Observe(float64(attempts))
	m.outputBytes.WithLabelValues(format).Observe(float64(size))
}

func (m *Metrics) observeDelete(result string) {
	if m == nil {
		return
	}
	m.deletesTotal.WithLabelValues(result).Inc()
}
