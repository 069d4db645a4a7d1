// Package server exposes the rover console, health and metrics to the ground
// station over HTTP and gRPC.
package server

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/autopeer-io/rover/internal/telemetry"
	"github.com/autopeer-io/rover/pkg/log"
	"github.com/autopeer-io/rover/pkg/options"
)

// MissionService is the health service name reported while the scheduler runs.
const MissionService = "rover.Mission"

// Server defines the common interface for all sub-servers.
type Server interface {
	Start(ctx context.Context) error
}

// API is the rover surface served to the ground station.
type API interface {
	Status(ctx context.Context) (telemetry.Status, error)
	Tasks(ctx context.Context) ([]telemetry.TaskInfo, error)
	Submit(ctx context.Context, line string) (string, error)
}

// Config selects the servers to run.
type Config struct {
	HttpOptions *options.HttpOptions
	GrpcOptions *options.GrpcOptions
}

// Manager manages the lifecycle of all protocol servers.
type Manager struct {
	servers []Server
	health  *health.Server
	ready   atomic.Bool
}

// NewManager creates the enabled servers. The mission reports NOT_SERVING
// until SetServing is called.
func NewManager(cfg *Config, api API) *Manager {
	m := &Manager{health: health.NewServer()}
	m.health.SetServingStatus(MissionService, healthpb.HealthCheckResponse_NOT_SERVING)

	if cfg.HttpOptions != nil && cfg.HttpOptions.Enabled {
		m.servers = append(m.servers, NewHttpServer(cfg.HttpOptions, api, m.ready.Load))
	}
	if cfg.GrpcOptions != nil && cfg.GrpcOptions.Enabled {
		m.servers = append(m.servers, NewGrpcServer(cfg.GrpcOptions, m.health))
	}
	return m
}

// SetServing flips the readiness of the mission service.
func (m *Manager) SetServing(serving bool) {
	m.ready.Store(serving)
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	m.health.SetServingStatus(MissionService, status)
}

// Start launches all servers in parallel and waits for termination.
func (m *Manager) Start(ctx context.Context) error {
	if len(m.servers) == 0 {
		<-ctx.Done()
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range m.servers {
		g.Go(func() error {
			return s.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}
