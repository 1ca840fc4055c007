package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Leganyst/apartment-booking/internal/logging"
)

// UnaryLoggingInterceptor кладёт в контекст логгер с request_id и методом
// и пишет одну строку на вызов.
func UnaryLoggingInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	base = defaultLogger(base)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		logger := base.With("request_id", uuid.NewString(), "method", info.FullMethod)
		ctx = logging.ContextWithLogger(ctx, logger)

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		attrs := []any{"code", code.String(), "duration_ms", time.Since(start).Milliseconds()}
		switch code {
		case codes.OK:
			logger.InfoContext(ctx, "grpc call", attrs...)
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			logger.ErrorContext(ctx, "grpc call failed", append(attrs, "error", err)...)
		default:
			logger.WarnContext(ctx, "grpc call rejected", append(attrs, "error", err)...)
		}
		return resp, err
	}
}
