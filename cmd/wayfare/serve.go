package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wayfare-dev/wayfare"
	"github.com/wayfare-dev/wayfare/pkg/location"
	"github.com/wayfare-dev/wayfare/pkg/middleware"
	"github.com/wayfare-dev/wayfare/pkg/router"
	"github.com/wayfare-dev/wayfare/pkg/vdom"
)

func serveCmd() *cobra.Command {
	var (
		addr    string
		delay   time.Duration
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo application",
		Long: `Run a small demo application showcasing the navigation core:
a home page, an about page, and a counter whose state survives
navigation and keeps ticking while another page is displayed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner()
			info("demo app on %s", addr)

			opts := []wayfare.Option{
				wayfare.WithAddr(addr),
				wayfare.WithNavigationDelay(delay),
				wayfare.WithLogger(slog.Default()),
			}
			if metrics {
				opts = append(opts,
					wayfare.WithMetricsEndpoint(),
					wayfare.WithObserver(middleware.Multi(
						middleware.Prometheus(),
						middleware.OpenTelemetry(),
					)),
				)
			}

			app := wayfare.NewApp(
				router.CodecFunc[demoRoute](parseRoute),
				newDemoProvider,
				opts...,
			)

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			success("listening on %s", addr)
			return app.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Listen address")
	cmd.Flags().DurationVar(&delay, "nav-delay", 0, "Delay navigation commits (for transitions)")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Expose Prometheus metrics at /metrics")

	return cmd
}

// =============================================================================
// Demo Application
// =============================================================================

type demoRoute struct {
	name string
}

func parseRoute(loc location.Location) demoRoute {
	switch loc.Path {
	case "/":
		return demoRoute{name: "home"}
	case "/about":
		return demoRoute{name: "about"}
	case "/counter":
		return demoRoute{name: "counter"}
	default:
		return demoRoute{name: "not-found"}
	}
}

type demoState struct {
	route demoRoute
	ticks int
}

type demoMsg struct {
	kind string
}

type demoProvider struct{}

func newDemoProvider() router.Provider[demoRoute, demoState, demoMsg] {
	return demoProvider{}
}

func (demoProvider) Init(r demoRoute) (demoState, router.Cmd[demoMsg]) {
	return demoState{route: r}, nil
}

func (demoProvider) Update(msg demoMsg, s demoState) (demoState, router.Cmd[demoMsg]) {
	if msg.kind == "tick" {
		s.ticks++
	}
	return s, nil
}

func (demoProvider) Render(s demoState) router.Layout {
	nav := vdom.El("nav", nil,
		vdom.El("a", []vdom.Attr{vdom.A("href", "/")}, vdom.Text("Home")),
		vdom.Text(" | "),
		vdom.El("a", []vdom.Attr{vdom.A("href", "/about")}, vdom.Text("About")),
		vdom.Text(" | "),
		vdom.El("a", []vdom.Attr{vdom.A("href", "/counter")}, vdom.Text("Counter")),
	)

	switch s.route.name {
	case "home":
		return router.Layout{Content: []*vdom.VNode{nav,
			vdom.El("h1", nil, vdom.Text("wayfare demo")),
			vdom.El("p", nil, vdom.Text("Navigate around; the counter keeps ticking.")),
		}}.WithTitle("Home")
	case "about":
		return router.Layout{Content: []*vdom.VNode{nav,
			vdom.El("h1", nil, vdom.Text("About")),
			vdom.El("p", nil, vdom.Text("Server-driven navigation with cached page state.")),
		}}.WithTitle("About")
	case "counter":
		return router.Layout{Content: []*vdom.VNode{nav,
			vdom.El("h1", nil, vdom.Text("Counter")),
			vdom.El("p", nil, vdom.Text(fmt.Sprintf("%d seconds since first visit", s.ticks))),
		}}.WithTitle("Counter")
	default:
		return router.Layout{Content: []*vdom.VNode{nav,
			vdom.El("h1", nil, vdom.Text("Not found")),
		}}.WithTitle("Not found")
	}
}

func (demoProvider) Subscriptions(s demoState) router.Sub[demoMsg] {
	if s.route.name != "counter" {
		return nil
	}
	return func(ctx context.Context, emit func(demoMsg)) {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				emit(demoMsg{kind: "tick"})
			}
		}
	}
}
