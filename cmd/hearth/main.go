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

func main() {
	rootCmd := &cobra.Command{
		Use:   "hearth",
		Short: "Embeddable HTTP/WebSocket event-pipeline server",
		Long: `Hearth serves HTTP and WebSocket traffic through ordered,
pluggable handler chains bound to named lifecycle events.

  • Handler stacks with positional insertion per event
  • Cooperative blocking loop or daemonized background serving
  • Filesystem, watcher, and S3 trigger-file event injection
  • Prometheus metrics and OpenTelemetry tracing`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		triggerCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
