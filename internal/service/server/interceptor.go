package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/oshokin/home-security/internal/logger"
	"github.com/oshokin/home-security/internal/service/common"
)

// loggingInterceptor scopes the request logger with the method and calling actor
// and logs the outcome of every call.
func loggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	started := time.Now()

	ctx = logger.WithKV(ctx, "method", info.FullMethod)

	if actor, ok := common.ActorFromIncomingContext(ctx); ok {
		ctx = logger.WithKV(ctx, "actor", actor.String())
	}

	resp, err := handler(ctx, req)

	logger.DebugKV(ctx, "gRPC call served",
		"code", status.Code(err).String(),
		"elapsed", time.Since(started),
	)

	return resp, err
}
