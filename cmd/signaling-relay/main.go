package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/config"
	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/httpserver"
	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/metrics"
	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/signaling"
	"github.com/wilsonzlin/aero/proxy/signaling-relay/internal/turnrest"
)

var (
	// Set via -ldflags at build time. Values may be empty in local/dev builds.
	buildCommit = ""
	buildTime   = ""
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	var creds *turnrest.Generator
	if cfg.TURN.Enabled() {
		creds, err = turnrest.NewGenerator(turnrest.GeneratorConfig{
			SharedSecret: cfg.TURN.Secret,
			TTL:          cfg.TURN.TTL,
			Realm:        cfg.TURN.Realm,
		})
		if err != nil {
			logger.Error("failed to configure turn credentials", "err", err)
			os.Exit(2)
		}
	}

	tlsCfg, tlsErr := httpserver.LoadTLSConfig(cfg.CertFile, cfg.KeyFile)
	if tlsErr != nil {
		// Serving plain is preferred over not serving at all.
		logger.Error("failed to load tls certificate, serving plain http", "err", tlsErr)
	}

	logStartupWarnings(logger, cfg, tlsErr)

	addr := httpserver.ListenAddr(cfg.ListenHost, cfg.Port, tlsCfg != nil)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen", "addr", addr, "err", err)
		os.Exit(1)
	}
	if tlsCfg != nil {
		ln = tls.NewListener(ln, tlsCfg)
	}

	logger.Info("starting signaling-relay",
		"addr", addr,
		"tls", tlsCfg != nil,
		"mode", cfg.Mode,
		"config_path", cfg.ConfigPath,
		"heartbeat_interval", cfg.HeartbeatInterval,
		"max_message_bytes", cfg.MaxMessageBytes,
		"send_queue_bytes", cfg.SendQueueBytes,
		"turn_enabled", creds != nil,
		"allowed_turn_origins", cfg.TURN.AllowedOrigins,
		"ice_servers", len(cfg.ICEServers),
	)

	commit, built := resolveBuildInfo(buildCommit, buildTime)
	m := metrics.New()

	srv := httpserver.New(cfg, logger, httpserver.BuildInfo{Commit: commit, BuildTime: built}, creds, m)
	sig := signaling.NewServer(signaling.Config{
		HeartbeatInterval: cfg.HeartbeatInterval,
		MaxMessageBytes:   cfg.MaxMessageBytes,
		SendQueueBytes:    cfg.SendQueueBytes,
		Logger:            logger,
		Metrics:           m,
	})
	srv.Mux().Handle("GET /metrics", metrics.PrometheusHandler(m, func() int64 {
		return int64(sig.Registry().Len())
	}))
	sig.RegisterRoutes(srv.Mux())

	if err := run(logger, cfg, srv, sig, ln); err != nil {
		logger.Error("signaling-relay exited", "err", err)
		os.Exit(1)
	}
}

// run serves until SIGINT/SIGTERM or until the listener fails, then drains
// HTTP and closes every signaling connection with 1001.
func run(logger *slog.Logger, cfg config.Config, srv *httpserver.Server, sig *signaling.Server, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, httpserver.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sig.Heartbeat().Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Hijacked WebSocket connections are not tracked by Shutdown.
		sig.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown failed", "err", err)
		}
		return nil
	})

	return g.Wait()
}

func resolveBuildInfo(commit, buildTime string) (string, string) {
	// Prefer ldflags-injected values but fall back to the Go build info, which
	// is populated for `go run` / dev builds.
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "" {
					commit = s.Value
				}
			case "vcs.time":
				if buildTime == "" {
					buildTime = s.Value
				}
			}
		}
	}

	return commit, buildTime
}
