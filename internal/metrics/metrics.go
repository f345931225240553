package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingest results used as the "result" label.
const (
	ResultOK          = "ok"
	ResultNoFile      = "no_file"
	ResultParseError  = "parse_error"
	ResultSchemaError = "schema_error"
	ResultFailed      = "failed"
)

var (
	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoview",
		Subsystem: "ingest",
		Name:      "uploads_total",
		Help:      "GeoJSON uploads by outcome",
	}, []string{"result"})

	IngestFeatures = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "geoview",
		Subsystem: "ingest",
		Name:      "features",
		Help:      "Features per accepted upload",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	LayersReplaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "geoview",
		Subsystem: "map",
		Name:      "layers_replaced_total",
		Help:      "Uploads that replaced a layer with the same ID",
	})

	StyleChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "geoview",
		Subsystem: "map",
		Name:      "style_changes_total",
		Help:      "Basemap style switches",
	}, []string{"style"})

	DrawExports = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "geoview",
		Subsystem: "draw",
		Name:      "exports_total",
		Help:      "Drawing exports served",
	})

	ViewerStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "geoview",
		Subsystem: "viewer",
		Name:      "streams",
		Help:      "Open viewer event streams",
	})
)

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
