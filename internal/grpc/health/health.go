package health

import (
	"context"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"honeypot-lab/pkg/logger"
)

// ServiceName is the named service reported next to the overall status
const ServiceName = "honeypot.v1.Honeypot"

// DefaultInterval is how often dependencies are checked
const DefaultInterval = 10 * time.Second

// Pinger is a dependency that can be pinged, such as the Redis cache
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker keeps the gRPC health status in line with the process dependencies
type Checker struct {
	server *grpchealth.Server
	deps   map[string]Pinger
	logger *logger.Logger
}

// NewChecker creates a checker that reports SERVING until a ping fails.
// Nil dependencies are skipped, so an instance without Redis is always serving.
func NewChecker(deps map[string]Pinger, log *logger.Logger) *Checker {
	live := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			live[name] = p
		}
	}

	c := &Checker{
		server: grpchealth.NewServer(),
		deps:   live,
		logger: log.WithComponent("grpc-health"),
	}
	c.set(grpc_health_v1.HealthCheckResponse_SERVING)
	return c
}

// Register attaches the health service to a gRPC server
func (c *Checker) Register(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, c.server)
}

// Server returns the underlying health server
func (c *Checker) Server() *grpchealth.Server {
	return c.server
}

// Check pings every dependency once and updates the serving status
func (c *Checker) Check(ctx context.Context) bool {
	healthy := true
	for name, dep := range c.deps {
		if err := dep.Ping(ctx); err != nil {
			healthy = false
			c.logger.Warn().Err(err).Str("dependency", name).Msg("health check failed")
		}
	}

	if healthy {
		c.set(grpc_health_v1.HealthCheckResponse_SERVING)
	} else {
		c.set(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	return healthy
}

// Run pings the dependencies every interval until ctx is cancelled
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		c.Check(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Shutdown marks every service NOT_SERVING and ignores later updates
func (c *Checker) Shutdown() {
	c.server.Shutdown()
}

func (c *Checker) set(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	c.server.SetServingStatus("", status)
	c.server.SetServingStatus(ServiceName, status)
}
