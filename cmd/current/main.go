// Package main implements the Current command line interface. Current is an
// in-memory bounded message queue with sequence-tracked delivery, optional
// durable journaling, and NATS replication; this binary load-tests a queue
// pipeline and replays journal contents.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "current"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Current bounded message queue runtime",
		Long:    "Current is a bounded in-memory message queue with ordered single-consumer delivery,\ndrop or block admission, durable journaling, and NATS replication.",
		Version: Version,
	}

	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug|info|warn|error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text|json")

	rootCmd.AddCommand(newBenchCommand())
	rootCmd.AddCommand(newReplayCommand())

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
