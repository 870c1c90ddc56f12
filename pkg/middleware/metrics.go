package middleware

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wayfare-dev/wayfare/pkg/location"
	"github.com/wayfare-dev/wayfare/pkg/router"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "wayfare").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for navigation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "wayfare",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus collectors for navigation activity.
type metrics struct {
	navRequests    *prometheus.CounterVec
	navCommits     *prometheus.CounterVec
	navDuration    prometheus.Histogram
	locChanges     prometheus.Counter
	leaveApp       prometheus.Counter
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	pageEvictions  prometheus.Counter
	vpCaptures     prometheus.Counter
	vpRestores     prometheus.Counter
	messages       *prometheus.CounterVec
	messageDropped prometheus.Counter
}

// globalMetrics is the singleton metrics instance; collectors can only
// be registered once per process. Created on first call to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

// initMetrics registers the collectors.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &metrics{
		navRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_requests_total",
			Help:        "Total accepted internal navigation requests",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),

		navCommits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_commits_total",
			Help:        "Total push/replace commands issued",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),

		navDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Time from navigation request to confirmed location change",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		locChanges:     counter("location_changes_total", "Total confirmed location changes"),
		leaveApp:       counter("leave_app_total", "Total leave-app commands issued"),
		cacheHits:      counter("page_cache_hits_total", "Revisits that reused cached page state"),
		cacheMisses:    counter("page_cache_misses_total", "First visits that created page state"),
		pageEvictions:  counter("page_evictions_total", "Revisits that recreated page state per policy"),
		vpCaptures:     counter("viewport_captures_total", "Viewport grab replies stored"),
		vpRestores:     counter("viewport_restores_total", "Stored viewports replayed"),
		messageDropped: counter("messages_dropped_total", "Stale page messages discarded"),

		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "messages_total",
			Help:        "Page messages delivered, by origin",
			ConstLabels: config.ConstLabels,
		}, []string{"origin"}),
	}
}

// GetMetrics returns the process-wide collectors, or nil if
// Prometheus() has not been called yet.
func GetMetrics() *metrics {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	return globalMetrics
}

// promObserver implements router.Observer on the shared collectors.
// Pending navigation start times are per observer so one instance can
// be shared across sessions.
type promObserver struct {
	m *metrics

	mu      sync.Mutex
	pending map[string]time.Time
}

// Prometheus creates a router.Observer that records navigation metrics.
//
// Metrics collected (under the configured namespace):
//   - navigation_requests_total: Counter of accepted requests by mode
//   - navigation_commits_total: Counter of push/replace commands by mode
//   - navigation_duration_seconds: Histogram of request-to-change time
//   - location_changes_total, leave_app_total
//   - page_cache_hits_total, page_cache_misses_total, page_evictions_total
//   - viewport_captures_total, viewport_restores_total
//   - messages_total (by origin), messages_dropped_total
//
// Collectors are process-wide singletons: the first call registers
// them, later calls reuse them and ignore the options.
//
// Example:
//
//	cfg := router.DefaultConfig[Route]()
//	cfg.Observer = middleware.Prometheus(
//	    middleware.WithNamespace("myapp"),
//	)
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) router.Observer {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return &promObserver{m: m, pending: make(map[string]time.Time)}
}

func (o *promObserver) NavigationRequested(mode router.NavMode, target location.Location) {
	o.m.navRequests.WithLabelValues(mode.String()).Inc()
	o.mu.Lock()
	o.pending[target.Key()] = time.Now()
	o.mu.Unlock()
}

func (o *promObserver) NavigationCommitted(mode router.NavMode, target location.Location) {
	o.m.navCommits.WithLabelValues(mode.String()).Inc()
}

func (o *promObserver) LocationChanged(loc location.Location) {
	o.m.locChanges.Inc()

	key := loc.Key()
	o.mu.Lock()
	start, ok := o.pending[key]
	if ok {
		delete(o.pending, key)
	}
	o.mu.Unlock()
	if ok {
		o.m.navDuration.Observe(time.Since(start).Seconds())
	}
}

func (o *promObserver) LeaveApp(url string) {
	o.m.leaveApp.Inc()
}

func (o *promObserver) PageCacheHit()  { o.m.cacheHits.Inc() }
func (o *promObserver) PageCacheMiss() { o.m.cacheMisses.Inc() }
func (o *promObserver) PageEvicted()   { o.m.pageEvictions.Inc() }

func (o *promObserver) ViewportCaptured() { o.m.vpCaptures.Inc() }
func (o *promObserver) ViewportRestored() { o.m.vpRestores.Inc() }

func (o *promObserver) MessageDelivered(background bool) {
	origin := "foreground"
	if background {
		origin = "background"
	}
	o.m.messages.WithLabelValues(origin).Inc()
}

func (o *promObserver) MessageDropped() { o.m.messageDropped.Inc() }
