// Package logging provides invocation logging middleware.
//
// Every invocation is logged with the consumer, handler, channel, message id
// and duration. Successful invocations log at debug, domain errors at info
// and every other error at error level. The middleware runs inside the error
// policy, so it sees domain errors before they are turned into replies.
//
//	consumers.Define("chat", consumers.WithMiddleware(logging.New(logger)))
package logging

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bjaus/consumers"
)

// New creates logging middleware. A nil logger uses zap.L().
func New(logger *zap.Logger) consumers.Middleware {
	if logger == nil {
		logger = zap.L()
	}

	return func(next consumers.HandlerFunc) consumers.HandlerFunc {
		return func(ctx context.Context, inv *consumers.Invocation) error {
			start := time.Now()

			err := next(ctx, inv)

			fields := []zap.Field{
				zap.String("consumer", inv.Consumer()),
				zap.String("handler", inv.Handler()),
				zap.Stringer("event", inv.Event()),
				zap.String("channel", inv.Message.Channel),
				zap.String("message_id", inv.Message.ID),
				zap.Duration("duration", time.Since(start)),
			}

			var derr *consumers.DomainError
			switch {
			case err == nil:
				logger.Debug("message handled", fields...)
			case errors.As(err, &derr):
				logger.Info("message rejected", append(fields, zap.String("reason", derr.Message))...)
			default:
				logger.Error("message handler failed", append(fields, zap.Error(err))...)
			}

			return err
		}
	}
}
