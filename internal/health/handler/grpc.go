// Package handler backs the standard grpc.health.v1 service with readiness probes of
// the database and the authorization policy.
package handler

import (
	"context"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// probeTimeout bounds a single readiness probe.
const probeTimeout = 2 * time.Second

// Pinger checks a dependency is reachable (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks the authorization policy is usable (e.g. *engine.OPAEvaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server reports overall serving status ("" service) through a grpc health server.
// It starts NOT_SERVING; Probe or Run flip it once the checks pass.
type Server struct {
	health  *health.Server
	pinger  Pinger
	checker PolicyChecker
}

// NewServer returns a health Server. Nil pinger or checker skips that check.
func NewServer(pinger Pinger, checker PolicyChecker) *Server {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{health: hs, pinger: pinger, checker: checker}
}

// Register registers the grpc.health.v1.Health service on s.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(r, s.health)
}

// Probe runs the checks once and updates the serving status. It returns the first failure.
func (s *Server) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	err := s.check(ctx)
	if err != nil {
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		return err
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return nil
}

func (s *Server) check(ctx context.Context) error {
	if s.pinger != nil {
		if err := s.pinger.PingContext(ctx); err != nil {
			return err
		}
	}
	if s.checker != nil {
		if err := s.checker.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Run probes every interval until ctx is done. Status changes are logged.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	healthy := s.Probe(ctx) == nil
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.Probe(ctx)
			if (err == nil) != healthy {
				healthy = err == nil
				if healthy {
					log.Printf("health: serving")
				} else {
					log.Printf("health: not serving: %v", err)
				}
			}
		}
	}
}

// Shutdown marks every service NOT_SERVING so load balancers drain the instance.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

// Check answers a health check for service.
func (s *Server) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
