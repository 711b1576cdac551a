package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kleeedolinux/easysocket/debug"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var verbose bool
	rootCmd := &cobra.Command{
		Use:   "easysocket",
		Short: "Event-style sockets over TCP, UDP, WebSocket and HTTP",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				debug.Enable()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug tracing")

	rootCmd.AddCommand(
		serveCmd(),
		sendCmd(),
		getCmd(),
		postCmd(),
		latestCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
