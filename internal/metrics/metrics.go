// Package metrics holds the Prometheus collectors for embed activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EmbedsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbembed_embeds_total",
		Help: "Total number of thumbnail embeds, by save mode and outcome",
	}, []string{"mode", "outcome"})

	EmbedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "thumbembed_embed_duration_seconds",
		Help:    "Duration of a thumbnail embed including publishing",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"mode"})

	ActiveEmbeds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "thumbembed_active_embeds",
		Help: "Number of embeds currently running",
	})

	PublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbembed_publish_total",
		Help: "Total number of S3 uploads, by outcome",
	}, []string{"outcome"})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
