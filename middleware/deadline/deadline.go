// Package deadline bounds the time a handler may take.
//
// The handler runs with a context that expires after the timeout. Handlers
// and middleware that block on external collaborators must honor the
// context; when they report context.DeadlineExceeded after the deadline has
// passed, the error becomes a DomainError so the client gets an error reply
// instead of silence.
//
//	consumers.Define("chat", consumers.WithMiddleware(deadline.Timeout(5*time.Second)))
package deadline

import (
	"context"
	"errors"
	"time"

	"github.com/bjaus/consumers"
)

// Message is the domain error message used when the deadline passes.
const Message = "request timed out"

// Timeout creates middleware that cancels the handler context after d.
// A non-positive d disables the middleware.
func Timeout(d time.Duration) consumers.Middleware {
	return func(next consumers.HandlerFunc) consumers.HandlerFunc {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, inv *consumers.Invocation) error {
			tctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			err := next(tctx, inv)
			if err != nil && errors.Is(err, context.DeadlineExceeded) && errors.Is(tctx.Err(), context.DeadlineExceeded) {
				return &consumers.DomainError{Message: Message, Err: err}
			}
			return err
		}
	}
}
