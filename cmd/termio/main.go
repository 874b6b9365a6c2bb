/*
Package main is the entry point for the TermIO CLI.

It exposes the broadcast server (serve), a headless chat client (chat), and
version information.
*/
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
		Use:   "termio",
		Short: "Terminal video chat over WebSockets",
		Long: `TermIO is a real-time broadcast server for terminal video chat.

Clients stream ASCII-rendered video frames and text chat; the server fans
each update out to every other connected client with per-recipient frame
coalescing and slow-consumer isolation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		chatCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
