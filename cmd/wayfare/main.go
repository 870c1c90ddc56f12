package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬ ┬┌─┐┬ ┬┌─┐┌─┐┬─┐┌─┐
  │││├─┤└┬┘├┤ ├─┤├┬┘├┤
  └┴┘┴ ┴ ┴ └  ┴ ┴┴└─└─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "wayfare",
		Short: "Server-driven SPA navigation for Go",
		Long: `Wayfare runs single-page navigation on the server.

Applications describe their pages in Go; wayfare keeps per-page state
cached across visits, restores scroll positions on return, and drives
the browser's history through a thin WebSocket client. Features:

  • Page cache with pluggable eviction policies
  • Viewport capture and restoration per location
  • Delayed navigation commits for transition animations
  • Background pages that keep receiving their messages
  • Prometheus and OpenTelemetry instrumentation`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		deployCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the wayfare ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
