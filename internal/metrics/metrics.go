package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tripbreaker/internal/log"
	"tripbreaker/internal/tripbreaker"
)

type Collector struct {
	reg *prometheus.Registry

	IndividualsProcessed prometheus.Counter
	IndividualsFailed    prometheus.Counter
	ActiveWorkers        prometheus.Gauge

	PointsInput   prometheus.Counter
	PointsDropped *prometheus.CounterVec // reason label: projection|accuracy|noise
	Trips         *prometheus.CounterVec // code label: direct|velocity-merged|station-inferred

	PromptsMatched   prometheus.Counter
	PromptsUnmatched prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	PipelineDuration prometheus.Histogram
	PublishDuration  prometheus.Histogram

	BreakInterval     prometheus.Gauge // seconds
	SubwayBuffer      prometheus.Gauge // meters
	AccuracyCutoff    prometheus.Gauge // meters
	MaxPlausibleSpeed prometheus.Gauge // m/s
	MinTravelSpeed    prometheus.Gauge // m/s
	ConfiguredWorkers prometheus.Gauge
}

func NewCollector(p tripbreaker.Parameters, workers int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		IndividualsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripbreaker_individuals_processed_total",
			Help: "Total individuals whose trips were detected and stored.",
		}),
		IndividualsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripbreaker_individuals_failed_total",
			Help: "Total individuals skipped because of an error.",
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripbreaker_active_workers",
			Help: "Number of workers currently processing an individual.",
		}),
		PointsInput: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripbreaker_points_input_total",
			Help: "Total location points read.",
		}),
		PointsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripbreaker_points_dropped_total",
			Help: "Total location points left out of every trip.",
		}, []string{"reason"}),
		Trips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripbreaker_trips_total",
			Help: "Total trips detected.",
		}, []string{"code"}),
		PromptsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripbreaker_prompts_matched_total",
			Help: "Total prompt groups attributed to a trip.",
		}),
		PromptsUnmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripbreaker_prompts_unmatched_total",
			Help: "Total prompt groups no trip could claim.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripbreaker_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tripbreaker_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripbreaker_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripbreaker_pipeline_duration_seconds",
			Help:    "Duration of trip detection for one individual.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripbreaker_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		BreakInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripbreaker_break_interval_seconds",
			Help: "Configured segment break interval in seconds.",
		}),
		SubwayBuffer: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripbreaker_subway_buffer_meters",
			Help: "Configured station proximity radius in meters.",
		}),
		AccuracyCutoff: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripbreaker_accuracy_cutoff_meters",
			Help: "Configured horizontal accuracy cutoff in meters.",
		}),
		MaxPlausibleSpeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripbreaker_max_plausible_speed_mps",
			Help: "Configured connector speed ceiling in m/s.",
		}),
		MinTravelSpeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripbreaker_min_travel_speed_mps",
			Help: "Configured connector speed floor in m/s.",
		}),
		ConfiguredWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripbreaker_workers",
			Help: "Configured worker count.",
		}),
	}

	// Register
	reg.MustRegister(
		c.IndividualsProcessed, c.IndividualsFailed, c.ActiveWorkers,
		c.PointsInput, c.PointsDropped, c.Trips,
		c.PromptsMatched, c.PromptsUnmatched,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.PipelineDuration, c.PublishDuration,
		c.BreakInterval, c.SubwayBuffer, c.AccuracyCutoff, c.MaxPlausibleSpeed, c.MinTravelSpeed,
		c.ConfiguredWorkers,
	)

	// Set static gauges
	c.BreakInterval.Set(p.BreakInterval.Seconds())
	c.SubwayBuffer.Set(p.SubwayBufferMeters)
	c.AccuracyCutoff.Set(p.AccuracyCutoffMeters)
	c.MaxPlausibleSpeed.Set(p.MaxPlausibleSpeedMps)
	c.MinTravelSpeed.Set(p.MinTravelSpeedMps)
	c.ConfiguredWorkers.Set(float64(workers))

	return c
}

// ObserveResult records one successful individual.
func (c *Collector) ObserveResult(res tripbreaker.Result, d time.Duration) {
	c.IndividualsProcessed.Inc()
	c.PipelineDuration.Observe(d.Seconds())

	diag := res.Diagnostics
	c.PointsInput.Add(float64(diag.InputPoints))
	c.PointsDropped.WithLabelValues("projection").Add(float64(diag.ProjectionDropped))
	c.PointsDropped.WithLabelValues("accuracy").Add(float64(diag.AccuracyDropped))
	c.PointsDropped.WithLabelValues("noise").Add(float64(diag.NoisePoints))
	for _, t := range res.Trips {
		c.Trips.WithLabelValues(string(t.Code)).Inc()
	}
}

func (c *Collector) IndividualFailed() { c.IndividualsFailed.Inc() }

func (c *Collector) WorkerBusy(busy bool) {
	if busy {
		c.ActiveWorkers.Inc()
	} else {
		c.ActiveWorkers.Dec()
	}
}

func (c *Collector) ObservePrompts(matched, unmatched int) {
	c.PromptsMatched.Add(float64(matched))
	c.PromptsUnmatched.Add(float64(unmatched))
}

func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }

func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server error", "err", err)
		}
	}()
	log.Infow("metrics listening", "addr", addr)
	return srv
}
