// Package metrics exposes Prometheus counters for catalog refreshes, arrival
// polling, and the MQTT publisher on a dedicated listener.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg    *prometheus.Registry
	logger *slog.Logger

	CatalogRefreshes   prometheus.Counter
	CatalogRefreshErrs prometheus.Counter
	CatalogRefreshDur  prometheus.Histogram
	CatalogStops       prometheus.Gauge

	ArrivalPolls     prometheus.Counter
	ArrivalPollErrs  prometheus.Counter
	ArrivalPollDur   prometheus.Histogram
	ArrivalCacheHits prometheus.Counter

	MQTTPublished   prometheus.Counter
	MQTTPublishErrs prometheus.Counter
	MQTTConnected   prometheus.Gauge

	WatchActive prometheus.Gauge
}

func NewCollector(logger *slog.Logger) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg:    reg,
		logger: logger,
		CatalogRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busassistant_catalog_refreshes_total",
			Help: "Total successful bus-stop catalog refreshes.",
		}),
		CatalogRefreshErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busassistant_catalog_refresh_errors_total",
			Help: "Total failed bus-stop catalog refreshes.",
		}),
		CatalogRefreshDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "busassistant_catalog_refresh_duration_seconds",
			Help:    "Duration of catalog fetch-and-store cycles.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		CatalogStops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busassistant_catalog_stops",
			Help: "Number of bus stops in the local catalog.",
		}),
		ArrivalPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busassistant_arrival_polls_total",
			Help: "Total upstream arrival fetches.",
		}),
		ArrivalPollErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busassistant_arrival_poll_errors_total",
			Help: "Total failed upstream arrival fetches.",
		}),
		ArrivalPollDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "busassistant_arrival_poll_duration_seconds",
			Help:    "Duration of upstream arrival fetches.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ArrivalCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busassistant_arrival_cache_hits_total",
			Help: "Arrival lookups served from the throttle cache.",
		}),
		MQTTPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busassistant_mqtt_published_total",
			Help: "Total MQTT messages published.",
		}),
		MQTTPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busassistant_mqtt_publish_errors_total",
			Help: "Total MQTT publish errors.",
		}),
		MQTTConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busassistant_mqtt_connected",
			Help: "1 if the MQTT connection is established, 0 otherwise.",
		}),
		WatchActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busassistant_watch_active",
			Help: "1 while an arrival watch session exists, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.CatalogRefreshes, c.CatalogRefreshErrs, c.CatalogRefreshDur, c.CatalogStops,
		c.ArrivalPolls, c.ArrivalPollErrs, c.ArrivalPollDur, c.ArrivalCacheHits,
		c.MQTTPublished, c.MQTTPublishErrs, c.MQTTConnected,
		c.WatchActive,
	)

	return c
}

func (c *Collector) CatalogRefreshInc()                    { c.CatalogRefreshes.Inc() }
func (c *Collector) CatalogRefreshErrInc()                 { c.CatalogRefreshErrs.Inc() }
func (c *Collector) CatalogRefreshObserve(d time.Duration) { c.CatalogRefreshDur.Observe(d.Seconds()) }
func (c *Collector) CatalogSetStops(n int)                 { c.CatalogStops.Set(float64(n)) }

func (c *Collector) ArrivalPollInc()                    { c.ArrivalPolls.Inc() }
func (c *Collector) ArrivalPollErrInc()                 { c.ArrivalPollErrs.Inc() }
func (c *Collector) ArrivalPollObserve(d time.Duration) { c.ArrivalPollDur.Observe(d.Seconds()) }
func (c *Collector) ArrivalCacheHitInc()                { c.ArrivalCacheHits.Inc() }

func (c *Collector) MQTTPublishedInc()  { c.MQTTPublished.Inc() }
func (c *Collector) MQTTPublishErrInc() { c.MQTTPublishErrs.Inc() }
func (c *Collector) MQTTSetConnected(connected bool) {
	if connected {
		c.MQTTConnected.Set(1)
	} else {
		c.MQTTConnected.Set(0)
	}
}

func (c *Collector) WatchSetActive(active bool) {
	if active {
		c.WatchActive.Set(1)
	} else {
		c.WatchActive.Set(0)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.logger.Error("metrics server error", "error", err)
		}
	}()
	c.logger.Info("metrics listening", "addr", addr)
	return srv
}
