package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var namespace = "brokerd"
var subsystem = "broker"

var (
	// StartupTime stores how long the startup took (in seconds)
	StartupTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "startup_seconds",
			Help:      "Seconds taken by the startup",
		},
	)

	// AppendsTotal stores the number of appended messages partitioned by channel
	AppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "appends_total",
		Help:      "Number of appended messages partitioned by channel",
	}, []string{"channel"})

	// AppendedBytesTotal stores the number of appended payload bytes partitioned by channel
	AppendedBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "appended_bytes_total",
		Help:      "Number of appended payload bytes partitioned by channel",
	}, []string{"channel"})

	// AppendRequestDuration stores the processing time of append requests
	AppendRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "append_request_duration_seconds",
		Help:      "Append request processing time including the disk sync",
	})

	// FetchRequestDuration stores the processing time of fetch requests
	FetchRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "fetch_request_duration_seconds",
		Help:      "Fetch request processing time",
	})

	// TotalDiskUsageBytes stores the disk usage of the channel root directory
	TotalDiskUsageBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "total_disk_usage_bytes",
		Help:      "Disk usage of the channel root directory",
	})
)
