// Package mcpserver exposes the bridge as an MCP server, over stdio by
// default or streamable HTTP when a listen address is configured.
package mcpserver

import (
	"context"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mumez/neobridge/core/logx"
	"github.com/mumez/neobridge/core/secret"
	"github.com/mumez/neobridge/internal/bridge"
	"github.com/mumez/neobridge/internal/config"
	"github.com/mumez/neobridge/internal/history"
	"github.com/mumez/neobridge/internal/metrics"
	"github.com/mumez/neobridge/internal/neoconsole"
	"github.com/mumez/neobridge/internal/subprocess"
)

// Build identification, set from main at startup.
var (
	Version   = "dev"
	BuildSHA  = "unknown"
	BuildDate = "unknown"
)

// New constructs the MCP server with every bridge tool registered.
func New(d *bridge.Dispatcher) *server.MCPServer {
	s := server.NewMCPServer(
		"neobridge",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	registerTools(s, d)
	return s
}

// Handler mounts the streamable HTTP endpoint together with health and
// metrics on one router.
func Handler(cfg config.BridgeConfig, s *server.MCPServer, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(cfg.APIKey))
		r.Handle("/mcp", server.NewStreamableHTTPServer(s))
	})
	return r
}

// bearerAuth rejects requests whose Authorization header does not carry the
// configured token. An empty token leaves the endpoint open.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got == "" || got != token {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Run wires the bridge and serves until the context is canceled. The
// transport is stdio unless cfg.HTTPAddr is set; a standalone metrics
// listener is started in stdio mode when configured.
func Run(ctx context.Context, cfg config.BridgeConfig) error {
	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	metrics.SetBuildInfo(Version, BuildSHA, BuildDate)

	supervisor := neoconsole.NewSupervisor(cfg.ConsoleAddr, cfg.DialTimeout)
	defer supervisor.Shutdown()
	runner := subprocess.NewRunner(cfg.ResolvedVM(), cfg.PharoDir, cfg.MaxOutputBytes)
	dispatcher := bridge.NewDispatcher(supervisor, runner, cfg.ImageFile, cfg.RequestTimeout, history.New(cfg.HistorySize))
	srv := New(dispatcher)

	if cfg.HTTPAddr != "" {
		addr, err := serveUntilContext(ctx, cfg.HTTPAddr, Handler(cfg, srv, reg))
		if err != nil {
			return err
		}
		ev := logx.Log.Info().Str("addr", addr).Str("console", cfg.ConsoleAddr)
		if cfg.APIKey != "" {
			ev = ev.Str("api_key", secret.Mask(cfg.APIKey))
		}
		ev.Msg("neobridge serving streamable HTTP")
		<-ctx.Done()
		return nil
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr, err := serveUntilContext(ctx, cfg.MetricsAddr, mux)
		if err != nil {
			return err
		}
		logx.Log.Info().Str("addr", addr).Msg("metrics server started")
	}
	logx.Log.Info().Str("console", cfg.ConsoleAddr).Msg("neobridge serving stdio")
	return server.NewStdioServer(srv).Listen(ctx, os.Stdin, os.Stdout)
}

// serveUntilContext starts an HTTP server bound to addr and shuts it
// down when ctx is done. It returns the resolved listen address.
func serveUntilContext(ctx context.Context, addr string, handler http.Handler) (string, error) {
	srv := &http.Server{Handler: handler}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	actual := ln.Addr().String()
	go func() {
		<-ctx.Done()
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(c)
	}()
	go func() { _ = srv.Serve(ln) }()
	return actual, nil
}
