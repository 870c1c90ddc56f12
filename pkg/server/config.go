package server

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds configuration for the HTTP/WebSocket host.
type Config struct {
	// Addr is the address ListenAndServe binds to.
	// Default: ":8080".
	Addr string

	// WSPath is the WebSocket endpoint path.
	// Default: "/_wayfare/ws".
	WSPath string

	// ReadTimeout is the maximum time to wait for a client message.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// MaxMessageSize is the maximum incoming WebSocket message size.
	// Default: 16KB.
	MaxMessageSize int64

	// EventQueueSize is the session event channel buffer. Events
	// arriving on a full queue are dropped.
	// Default: 64.
	EventQueueSize int

	// PingInterval is how often the session sends a heartbeat ping.
	// The client answers with a pong, which keeps an idle but connected
	// tab inside ReadTimeout. Must be shorter than ReadTimeout; set
	// negative to disable.
	// Default: 25 seconds.
	PingInterval time.Duration

	// CheckOrigin validates the WebSocket upgrade origin.
	// Default: same-origin only (the gorilla default).
	CheckOrigin func(r *http.Request) bool

	// EnableMetricsEndpoint mounts the Prometheus handler at /metrics.
	// Default: false.
	EnableMetricsEndpoint bool

	// ShutdownTimeout is the maximum time for graceful shutdown.
	// Default: 15 seconds.
	ShutdownTimeout time.Duration

	// Logger is the structured logger for the host.
	// Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		WSPath:          "/_wayfare/ws",
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		MaxMessageSize:  16 * 1024,
		EventQueueSize:  64,
		PingInterval:    25 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// withDefaults fills zero fields from DefaultConfig. The nil receiver
// goes through the same path so derived fields (the logger) are always
// populated.
func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	if c == nil {
		c = &Config{}
	}
	out := c.Clone()
	if out.Addr == "" {
		out.Addr = def.Addr
	}
	if out.WSPath == "" {
		out.WSPath = def.WSPath
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = def.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = def.WriteTimeout
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = def.MaxMessageSize
	}
	if out.EventQueueSize == 0 {
		out.EventQueueSize = def.EventQueueSize
	}
	if out.PingInterval == 0 {
		out.PingInterval = def.PingInterval
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = def.ShutdownTimeout
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}
