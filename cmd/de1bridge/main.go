package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "de1bridge",
	Short: "A local network bridge for a DE1 espresso machine and BLE scales/sensors",
	Long: `de1bridge connects to a DE1 espresso machine and nearby BLE scales and
sensors, and republishes their state over HTTP REST and WebSocket so any
client on the local network can watch a shot or drive the machine without
talking BLE itself.`,
	Version: version,
	RunE:    runServe,
}

var (
	flagHTTPPort int
	flagWSPort   int
	flagConfig   string
	flagVerbose  bool
)

func init() {
	rootCmd.Flags().IntVarP(&flagHTTPPort, "http-port", "p", 0, "HTTP port (overrides settings/default 8080)")
	rootCmd.Flags().IntVarP(&flagWSPort, "ws-port", "w", 0, "WebSocket port (overrides settings/default 8081)")
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Settings file path (JSON or YAML)")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Verbose logging")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "de1bridge: %s\n", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
