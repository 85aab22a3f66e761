package handlers

import (
	"context"
	"time"

	"ALZHEIMER_MRI/go-frontend/internal/services"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// PredictorService is the gRPC health service name reporting on the
// prediction backend.
const PredictorService = "assessment.Predictor"

// HealthReporter mirrors predictor reachability into a gRPC health server.
type HealthReporter struct {
	server   *health.Server
	checker  services.HealthChecker
	interval time.Duration
	logger   *zap.Logger
}

func NewHealthReporter(checker services.HealthChecker, interval time.Duration, logger *zap.Logger) *HealthReporter {
	return &HealthReporter{
		server:   health.NewServer(),
		checker:  checker,
		interval: interval,
		logger:   logger,
	}
}

// Check probes the predictor once and updates both the named service and
// the overall server status.
func (hr *HealthReporter) Check(ctx context.Context) bool {
	healthy := hr.checker.HealthCheck(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hr.server.SetServingStatus(PredictorService, status)
	hr.server.SetServingStatus("", status)
	return healthy
}

// Run probes every interval until ctx is done, then marks everything as
// not serving.
func (hr *HealthReporter) Run(ctx context.Context) {
	last := hr.Check(ctx)
	hr.logger.Info("predictor health", zap.Bool("healthy", last))

	ticker := time.NewTicker(hr.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hr.server.Shutdown()
			return
		case <-ticker.C:
			if now := hr.Check(ctx); now != last {
				hr.logger.Info("predictor health changed", zap.Bool("healthy", now))
				last = now
			}
		}
	}
}

// NewGRPCServer builds the gRPC server exposing the health service.
func NewGRPCServer(hr *HealthReporter) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	healthpb.RegisterHealthServer(srv, hr.server)
	return srv
}
