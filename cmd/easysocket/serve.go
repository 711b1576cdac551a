package main

import (
	"fmt"
	"net/http"

	"github.com/kleeedolinux/easysocket/debug"
	"github.com/kleeedolinux/easysocket/socket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		addr        string
		concurrency int
		greeting    string
		reply       string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:       "serve {tcp|udp|ws|http}",
		Short:     "Run a demo server on one transport",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"tcp", "udp", "ws", "http"},
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			metrics, err := socket.NewMetrics(reg, "easysocket")
			if err != nil {
				return err
			}

			log := debug.Logger()
			if metricsAddr != "" {
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
					log.Printf("Serving metrics on http://%s/metrics", metricsAddr)
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						log.Printf("Metrics server stopped: %v", err)
					}
				}()
			}

			opts := []socket.ServerOption{
				socket.WithMaxConcurrency(concurrency),
				socket.WithMetrics(metrics),
			}
			if reply != "" {
				opts = append(opts, socket.WithHTTPResponse(reply), socket.WithWebSocketReply(reply))
			}
			srv := socket.NewServer(opts...)

			onConnection := func(s *socket.Socket) {
				log.Printf("Client connected: %d (%s)", s.ID(), s.Addr())
				s.On("hello, server", func(msg string) {
					log.Printf("Server received: %s", msg)
				})
				if s.Transport() != "udp" {
					if err := s.Emit(greeting); err != nil {
						log.Printf("Emit to %d failed: %v", s.ID(), err)
						return
					}
					if err := s.Listen(s.Context()); err != nil {
						log.Printf("Listen on %d ended: %v", s.ID(), err)
					}
				}
			}

			ctx := cmd.Context()
			switch args[0] {
			case "tcp":
				srv.On(socket.EventConnection, onConnection)
				return srv.ListenTCP(ctx, addr)
			case "udp":
				srv.On(socket.EventConnection, onConnection)
				return srv.ListenUDP(ctx, addr)
			case "ws":
				return srv.ListenWS(ctx, addr)
			case "http":
				return srv.ListenHTTP(ctx, addr)
			default:
				return fmt.Errorf("unknown transport %q", args[0])
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:4000", "listen address")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "max concurrent connection handlers (0 = sequential)")
	cmd.Flags().StringVar(&greeting, "greeting", "hello, client!", "event emitted to each stream peer")
	cmd.Flags().StringVar(&reply, "reply", "", "fixed HTTP/WebSocket reply")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}
