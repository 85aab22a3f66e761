package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ALZHEIMER_MRI/go-frontend/internal/database"
	"ALZHEIMER_MRI/go-frontend/internal/handlers"
	"ALZHEIMER_MRI/go-frontend/internal/proxy"
	"ALZHEIMER_MRI/go-frontend/internal/services"
	"ALZHEIMER_MRI/go-frontend/internal/telemetry"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const (
	sessionSweepInterval = time.Minute
	sessionMaxIdle       = 30 * time.Minute
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		zap.String("http_addr", cfg.HTTPAddr()),
		zap.String("grpc_addr", cfg.GRPCAddr()),
		zap.String("environment", cfg.Environment),
		zap.String("predictor_mode", cfg.PredictorMode))

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	predictor := services.NewPredictor(cfg, logger)
	metrics := services.NewMetrics()

	var recorder database.Recorder = database.NopRecorder{}
	if cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		recorder = database.NewOutcomeStore(db)
	}

	h := handlers.New(handlers.Deps{
		Config:    cfg,
		Predictor: predictor,
		Metrics:   metrics,
		Recorder:  recorder,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	h.Routes(mux)
	if cfg.IsDev() {
		p, err := proxy.New(cfg.ResolvedProxyTarget(), logger)
		if err != nil {
			return fmt.Errorf("dev proxy: %w", err)
		}
		proxy.Register(mux, p)
		logger.Info("dev proxy enabled",
			zap.String("prefix", proxy.PathPrefix),
			zap.String("target", cfg.ResolvedProxyTarget()))
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hr := handlers.NewHealthReporter(predictor, cfg.HealthInterval, logger)
	grpcServer := handlers.NewGRPCServer(hr)
	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		hr.Run(gctx)
		return nil
	})
	g.Go(func() error {
		h.SweepSessions(gctx, sessionSweepInterval, sessionMaxIdle)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdown(httpServer, grpcServer, h)
		return nil
	})

	return g.Wait()
}

func shutdown(httpServer *http.Server, grpcServer *grpc.Server, h *handlers.Handler) {
	logger.Info("shutting down")

	httpCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(httpCtx); err != nil {
		logger.Warn("HTTP shutdown failed", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		logger.Warn("forcing gRPC stop")
		grpcServer.Stop()
	}

	h.Close()
	logger.Info("goodbye")
}
