package middleware

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wayfare-dev/wayfare/pkg/location"
	"github.com/wayfare-dev/wayfare/pkg/router"
)

// Default tracer name for wayfare applications.
const defaultTracerName = "wayfare"

// OTelConfig configures the OpenTelemetry observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "wayfare").
	TracerName string

	// IncludeQuery includes the target's query string in span
	// attributes. Query strings may carry sensitive values, so this is
	// disabled by default; only the canonical path is recorded.
	IncludeQuery bool

	// Filter determines which navigations to trace.
	// Return true to trace, false to skip. If nil, all are traced.
	Filter func(target location.Location) bool

	// AttributeExtractor extracts custom attributes per navigation.
	AttributeExtractor func(target location.Location) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithIncludeQuery enables recording query strings in spans.
func WithIncludeQuery(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeQuery = include
	}
}

// WithNavigationFilter sets a filter function for navigations.
func WithNavigationFilter(filter func(target location.Location) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(target location.Location) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// defaultOTelConfig returns the default OpenTelemetry configuration.
func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// otelObserver traces navigations. A span opens when a navigation
// request is accepted and closes when the location change for the same
// target is confirmed. Location changes with no pending request
// (browser back/forward) produce an instantaneous span.
type otelObserver struct {
	router.NopObserver

	config OTelConfig

	mu      sync.Mutex
	pending map[string]trace.Span
}

// OpenTelemetry creates a router.Observer that traces every navigation.
//
// The observer:
//   - Opens a span per accepted navigation request
//   - Closes it when the location change is confirmed
//   - Records leave-app transitions as instantaneous spans
//
// The tracer uses the global OpenTelemetry tracer provider. Configure
// it in your main() before starting the server:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	    sdktrace.WithResource(resource.NewWithAttributes(
//	        semconv.SchemaURL,
//	        semconv.ServiceName("my-app"),
//	    )),
//	)
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) router.Observer {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	return &otelObserver{
		config:  config,
		pending: make(map[string]trace.Span),
	}
}

func (o *otelObserver) attrs(target location.Location, mode router.NavMode) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("wayfare.target_path", target.Path),
		attribute.String("wayfare.mode", mode.String()),
	}
	if o.config.IncludeQuery && target.Query != "" {
		attrs = append(attrs, attribute.String("wayfare.target_query", target.Query))
	}
	if o.config.AttributeExtractor != nil {
		attrs = append(attrs, o.config.AttributeExtractor(target)...)
	}
	return attrs
}

func (o *otelObserver) NavigationRequested(mode router.NavMode, target location.Location) {
	if o.config.Filter != nil && !o.config.Filter(target) {
		return
	}

	_, span := o.config.tracer.Start(
		context.Background(),
		"wayfare.navigate",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(o.attrs(target, mode)...),
	)

	o.mu.Lock()
	// A superseded request for the same target loses its span here;
	// in-flight navigations are not cancelled, only untracked.
	if old, ok := o.pending[target.Key()]; ok {
		old.End()
	}
	o.pending[target.Key()] = span
	o.mu.Unlock()
}

func (o *otelObserver) LocationChanged(loc location.Location) {
	key := loc.Key()

	o.mu.Lock()
	span, ok := o.pending[key]
	if ok {
		delete(o.pending, key)
	}
	o.mu.Unlock()

	if ok {
		span.End()
		return
	}

	if o.config.Filter != nil && !o.config.Filter(loc) {
		return
	}

	// History traversal: no request preceded this change.
	_, span = o.config.tracer.Start(
		context.Background(),
		"wayfare.history_traversal",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("wayfare.target_path", loc.Path)),
	)
	span.End()
}

func (o *otelObserver) LeaveApp(url string) {
	now := time.Now()
	_, span := o.config.tracer.Start(
		context.Background(),
		"wayfare.leave_app",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("wayfare.url", url)),
		trace.WithTimestamp(now),
	)
	span.End(trace.WithTimestamp(now))
}
