// Package middleware provides ready-made router.Observer
// implementations: Prometheus metrics and OpenTelemetry tracing for
// navigation activity, plus Multi for fanning out to several observers.
//
// Observers attach through the router configuration:
//
//	cfg := router.DefaultConfig[Route]()
//	cfg.Observer = middleware.Multi(
//	    middleware.Prometheus(middleware.WithNamespace("myapp")),
//	    middleware.OpenTelemetry(),
//	)
package middleware
