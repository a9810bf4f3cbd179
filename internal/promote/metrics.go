package promote

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"modelops/pkg/types"
)

var (
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelops",
			Subsystem: "export",
			Name:      "total",
			Help:      "Promotions attempted, by result",
		},
		[]string{"result"},
	)

	exportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "modelops",
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Duration of resolve+export in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	lastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelops",
			Subsystem: "export",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful export",
		},
	)

	exportedVersion = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "modelops",
			Name:      "exported_model_version",
			Help:      "Numeric version currently installed in the export directory",
		},
		[]string{"model", "stage"},
	)
)

func init() {
	prometheus.MustRegister(exportsTotal, exportDuration, lastSuccess, exportedVersion)
}

func observeSuccess(res types.ExportResult, dur time.Duration) {
	exportsTotal.WithLabelValues("success").Inc()
	exportDuration.Observe(dur.Seconds())
	lastSuccess.Set(float64(res.FinishedUnix))
	if v, err := strconv.ParseFloat(res.Version, 64); err == nil {
		exportedVersion.WithLabelValues(res.ModelName, res.Stage).Set(v)
	}
}

func observeFailure(class string, dur time.Duration) {
	exportsTotal.WithLabelValues(class).Inc()
	exportDuration.Observe(dur.Seconds())
}
