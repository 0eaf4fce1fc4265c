package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/lexiqai/synth-session/internal/observability"
	"github.com/lexiqai/synth-session/internal/resilience"
	"github.com/lexiqai/synth-session/internal/session"
	"github.com/lexiqai/synth-session/internal/transport"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Run the session behind HTTP, WebSocket and gRPC health endpoints",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(*logLevel)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt)
		},
	}
}

func serve(ctx context.Context, rt *runtime) error {
	cfg, logger := rt.cfg, rt.logger

	logger.Info().
		Str("port", cfg.Port).
		Str("grpc_port", cfg.GRPCPort).
		Str("engine", cfg.EngineBackend).
		Str("data_dir", cfg.DataDir).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Synthesis session service starting")

	hub := transport.NewHub(logger)
	grpcHealth := observability.NewGRPCHealth()
	readiness := session.ListenerFuncs{
		StateChanged: func(_, to session.State) {
			grpcHealth.SetReady(to == session.Ready)
		},
	}

	sess, err := rt.newSession(rt.defaults(), session.Listeners{hub, readiness})
	if err != nil {
		return err
	}
	hub.Attach(sess)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.Handler())
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(observability.NamedCheck{
		Name: "session",
		Check: func(context.Context) (bool, error) {
			if st := sess.State(); st != session.Ready {
				return false, fmt.Errorf("session is %s", st)
			}
			return true, nil
		},
	}))
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/ws", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var grpcServer *grpc.Server
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			sess.Close(context.Background())
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcServer, grpcHealth.Server())
		g.Go(func() error {
			logger.Info().Str("port", cfg.GRPCPort).Msg("gRPC health server listening")
			return grpcServer.Serve(lis)
		})
	}

	if cfg.WatchProfiles {
		g.Go(func() error {
			return resilience.Supervise(gctx, "profile watcher", rt.catalog.Watch, nil, logger)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcHealth.Shutdown()
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server forced to shutdown")
		}
		if err := sess.Close(shutdownCtx); err != nil {
			return fmt.Errorf("close session: %w", err)
		}

		select {
		case <-sess.Done():
		case <-shutdownCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("Server exited gracefully")
	return nil
}
