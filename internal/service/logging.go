package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Leganyst/apartment-booking/internal/access"
	"github.com/Leganyst/apartment-booking/internal/booking"
	"github.com/Leganyst/apartment-booking/internal/logging"
	"github.com/Leganyst/apartment-booking/internal/repository"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// serviceLogger: логгер из контекста запроса (если интерсептор его положил),
// иначе базовый, с атрибутами сервиса и операции.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	pairs = append(pairs, attrs...)
	return logger.With(pairs...)
}

// ErrorKind: стабильная метка ошибки для логов.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var vErr *booking.ValidationError
	var cErr *booking.ConflictError
	switch {
	case errors.As(err, &vErr):
		return "validation"
	case errors.As(err, &cErr):
		return "conflict"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, booking.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, access.ErrPermissionDenied),
		errors.Is(err, access.ErrOperatorInactive),
		errors.Is(err, access.ErrOperatorNotFound),
		errors.Is(err, access.ErrInvalidOperatorID):
		return "unauthorized"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "unexpected"
}
