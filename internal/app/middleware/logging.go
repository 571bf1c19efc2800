package middleware

import (
	"context"
	"log/slog"
	"time"

	"chakastays/internal/app/apperr"
	"chakastays/internal/app/commands"
	"chakastays/internal/app/queries"
)

// Logging records the outcome of every command at debug level and failures at warn.
// Validation and authorization rejections are expected and stay at debug.
func Logging(logger *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			logOutcome(ctx, logger, "command", cmd.Key(), start, err)
			return res, err
		})
	}
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			logOutcome(ctx, logger, "query", q.Key(), start, err)
			return res, err
		})
	}
}

func logOutcome(ctx context.Context, logger *slog.Logger, kind, key string, start time.Time, err error) {
	if logger == nil {
		return
	}
	attrs := []any{"kind", kind, "key", key, "duration", time.Since(start)}
	switch {
	case err == nil:
		logger.DebugContext(ctx, "message handled", attrs...)
	case apperr.IsValidation(err), apperr.IsAuthorization(err):
		logger.DebugContext(ctx, "message rejected", append(attrs, "error", err)...)
	default:
		logger.WarnContext(ctx, "message failed", append(attrs, "error", err)...)
	}
}
