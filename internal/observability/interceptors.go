// Package observability provides gRPC client interceptors and the metrics HTTP server.
package observability

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"ai-speech-translation-service/internal/observability/metrics"
)

// UnaryClientInterceptor returns a gRPC unary client interceptor recording
// latency and failures of calls to a Google backend.
func UnaryClientInterceptor(m *metrics.Metrics, backend string) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		start := time.Now()

		err := invoker(ctx, method, req, reply, cc, opts...)

		duration := time.Since(start)
		code := status.Code(err)
		m.RecordBackendCall(backend, method, code.String(), duration.Seconds())

		log.Debug().
			Str("backend", backend).
			Str("method", method).
			Str("code", code.String()).
			Dur("duration", duration).
			Msg("gRPC unary call")

		return err
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor recording
// how long opening a stream took and whether it failed.
func StreamClientInterceptor(m *metrics.Metrics, backend string) grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		start := time.Now()

		cs, err := streamer(ctx, desc, cc, method, opts...)

		duration := time.Since(start)
		code := status.Code(err)
		m.RecordBackendCall(backend, method, code.String(), duration.Seconds())

		log.Debug().
			Str("backend", backend).
			Str("method", method).
			Str("code", code.String()).
			Dur("duration", duration).
			Msg("gRPC stream opened")

		return cs, err
	}
}
