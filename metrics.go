package tabletsnap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// managerMetrics mirrors the fileWALMetrics shape the teacher's wal.go
// builds around promauto: one struct of pre-registered collectors handed
// back from a constructor that takes the already-prefixed Registerer.
type managerMetrics struct {
	snapshotsTotal        *prometheus.CounterVec
	snapshotDuration      prometheus.Histogram
	snapshotRowsetsLinked prometheus.Histogram
	releasesTotal         *prometheus.CounterVec
	rebindsTotal          *prometheus.CounterVec
	rebindDuration        prometheus.Histogram
}

func newManagerMetrics(reg prometheus.Registerer) *managerMetrics {
	reg = prometheus.WrapRegistererWithPrefix("tabletsnap_", reg)
	return &managerMetrics{
		snapshotsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "snapshots_total",
			Help: "Number of MakeSnapshot calls by outcome.",
		}, []string{"outcome"}),
		snapshotDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "snapshot_duration_seconds",
			Help:    "Time spent materialising a snapshot directory.",
			Buckets: prometheus.DefBuckets,
		}),
		snapshotRowsetsLinked: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "snapshot_rowsets_linked",
			Help:    "Number of rowsets hard-linked into a single snapshot.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		releasesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "releases_total",
			Help: "Number of ReleaseSnapshot calls by outcome.",
		}, []string{"outcome"}),
		rebindsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rebinds_total",
			Help: "Number of ConvertRowsetIds calls by outcome.",
		}, []string{"outcome"}),
		rebindDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "rebind_duration_seconds",
			Help:    "Time spent rebinding a tablet's rowset ids.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
