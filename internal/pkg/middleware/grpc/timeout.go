package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/autopeer-io/rover/pkg/log"
)

const DefaultRPCTimeout = 10 * time.Second

// UnaryServerTimeout bounds every unary call that arrives without a deadline.
func UnaryServerTimeout(d time.Duration) grpc.UnaryServerInterceptor {
	if d <= 0 {
		d = DefaultRPCTimeout
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return handler(ctx, req)
	}
}

// UnaryServerLogging logs failed unary calls.
func UnaryServerLogging(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		log.Warn("gRPC call failed", "method", info.FullMethod, "duration", time.Since(start), "err", err.Error())
	}
	return resp, err
}
