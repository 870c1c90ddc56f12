package wayfare

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/wayfare-dev/wayfare/pkg/router"
	"github.com/wayfare-dev/wayfare/pkg/server"
)

// AppConfig holds the application-level options collected by NewApp.
type AppConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string

	// WSPath is the WebSocket endpoint path.
	WSPath string

	// MetricsEndpoint mounts the Prometheus handler at /metrics.
	MetricsEndpoint bool

	// CheckOrigin validates WebSocket upgrade origins.
	CheckOrigin func(r *http.Request) bool

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// Logger is the structured logger for the host and routers.
	Logger *slog.Logger

	// NavigationDelay postpones navigation commits after viewport
	// grabs, giving transitions time to animate.
	NavigationDelay time.Duration

	// ExceptionPaths force a full reload instead of an in-app
	// transition.
	ExceptionPaths []string

	// Observer receives router instrumentation callbacks.
	Observer Observer

	// OnNotice receives navigation notices.
	OnNotice func(Notice)
}

// Option configures an App.
type Option func(*AppConfig)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *AppConfig) { c.Addr = addr }
}

// WithWSPath sets the WebSocket endpoint path.
func WithWSPath(path string) Option {
	return func(c *AppConfig) { c.WSPath = path }
}

// WithMetricsEndpoint mounts the Prometheus handler at /metrics.
func WithMetricsEndpoint() Option {
	return func(c *AppConfig) { c.MetricsEndpoint = true }
}

// WithCheckOrigin sets the WebSocket origin check.
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(c *AppConfig) { c.CheckOrigin = check }
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *AppConfig) { c.ShutdownTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *AppConfig) { c.Logger = logger }
}

// WithNavigationDelay postpones navigation commits by d.
func WithNavigationDelay(d time.Duration) Option {
	return func(c *AppConfig) { c.NavigationDelay = d }
}

// WithExceptionPaths marks paths that force a full reload.
func WithExceptionPaths(paths ...string) Option {
	return func(c *AppConfig) { c.ExceptionPaths = append(c.ExceptionPaths, paths...) }
}

// WithObserver attaches a router instrumentation observer.
func WithObserver(obs Observer) Option {
	return func(c *AppConfig) { c.Observer = obs }
}

// WithOnNotice attaches a navigation notice hook.
func WithOnNotice(fn func(Notice)) Option {
	return func(c *AppConfig) { c.OnNotice = fn }
}

// App ties a route codec and a page provider to a host server.
type App[R, S, M any] struct {
	cfg       AppConfig
	routerCfg *router.Config[R]
	codec     router.Codec[R]
	provider  func() router.Provider[R, S, M]

	srv *server.Server[R, S, M]
}

// NewApp assembles an application. The provider factory runs once per
// connected tab. The page cache policy defaults to Always; override it
// with SetCachePolicy before Run.
func NewApp[R, S, M any](
	codec router.Codec[R],
	provider func() router.Provider[R, S, M],
	opts ...Option,
) *App[R, S, M] {
	var cfg AppConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	routerCfg := router.DefaultConfig[R]()
	routerCfg.NavigationDelay = cfg.NavigationDelay
	routerCfg.ExceptionPaths = cfg.ExceptionPaths
	routerCfg.Observer = cfg.Observer
	routerCfg.OnNotice = cfg.OnNotice
	routerCfg.Logger = cfg.Logger

	return &App[R, S, M]{
		cfg:       cfg,
		routerCfg: routerCfg,
		codec:     codec,
		provider:  provider,
	}
}

// SetCachePolicy overrides the page cache eviction policy.
// Must be called before Run.
func (a *App[R, S, M]) SetCachePolicy(policy router.CachePolicy[R]) {
	a.routerCfg.Cache = policy
}

// RouterConfig exposes the router configuration for adjustments that
// have no dedicated option. Must not be mutated after Run.
func (a *App[R, S, M]) RouterConfig() *router.Config[R] {
	return a.routerCfg
}

// Handler builds the HTTP handler without starting a listener.
// Useful for mounting under an outer mux or for tests.
func (a *App[R, S, M]) Handler() http.Handler {
	return a.server().Handler()
}

// Run serves until ctx is cancelled.
func (a *App[R, S, M]) Run(ctx context.Context) error {
	return a.server().ListenAndServe(ctx)
}

func (a *App[R, S, M]) server() *server.Server[R, S, M] {
	if a.srv == nil {
		a.srv = server.New(a.codec, a.provider, a.routerCfg, &server.Config{
			Addr:                  a.cfg.Addr,
			WSPath:                a.cfg.WSPath,
			CheckOrigin:           a.cfg.CheckOrigin,
			EnableMetricsEndpoint: a.cfg.MetricsEndpoint,
			ShutdownTimeout:       a.cfg.ShutdownTimeout,
			Logger:                a.cfg.Logger,
		})
	}
	return a.srv
}
