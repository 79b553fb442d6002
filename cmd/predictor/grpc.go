package main

import (
	"crypto/tls"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/HatiCode/ridewise/pkg/features"
)

// healthServiceName is the gRPC health service name reported for a variant.
func healthServiceName(v features.Variant) string {
	return "ridewise." + string(v)
}

// newGRPCServer returns a gRPC server exposing the standard health service
// and reflection. The overall status is SERVING only when every variant is
// ready.
func newGRPCServer(ready map[features.Variant]bool, tlsConfig *tls.Config) (*grpc.Server, *health.Server) {
	var opts []grpc.ServerOption
	if tlsConfig != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
	}

	srv := grpc.NewServer(opts...)
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	setHealth(hs, ready)
	return srv, hs
}

func setHealth(hs *health.Server, ready map[features.Variant]bool) {
	overall := grpc_health_v1.HealthCheckResponse_SERVING
	for _, v := range []features.Variant{features.Daily, features.Hourly} {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if !ready[v] {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			overall = status
		}
		hs.SetServingStatus(healthServiceName(v), status)
	}
	hs.SetServingStatus("", overall)
}
