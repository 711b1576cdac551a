package socket

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kleeedolinux/easysocket/debug"
)

// kindHTTP labels the fixed HTTP responder in logs and metrics.
const kindHTTP = "http"

// ListenHTTP binds addr and answers every request with the fixed body.
func (s *Server) ListenHTTP(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", addr, err)
	}
	return s.ServeHTTPListener(ctx, ln)
}

func (s *Server) ServeHTTPListener(ctx context.Context, ln net.Listener) error {
	return s.serveHTTP(ctx, ln, kindHTTP, s.HTTPHandler())
}

// HTTPHandler ignores method, path and body.
func (s *Server) HTTPHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	fixed := func(w http.ResponseWriter, req *http.Request) {
		debug.Printf("HTTP: %s %s from %s", req.Method, req.URL.Path, req.RemoteAddr)
		s.metrics.connection(kindHTTP)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := io.WriteString(w, s.httpResponse); err != nil {
			s.log.WithError(err).Debug("http write failed")
			return
		}
		s.metrics.send(kindHTTP)
	}
	r.HandleFunc("/", fixed)
	r.HandleFunc("/*", fixed)
	return r
}
