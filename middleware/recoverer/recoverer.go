// Package recoverer provides panic recovery middleware.
//
// A panic in a handler is turned into a *PanicError so one bad message cannot
// take down the worker. The error is not a domain error: it propagates to the
// dispatcher and is reported, never replied to the client.
//
//	consumers.Define("chat", consumers.WithMiddleware(recoverer.New()))
package recoverer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/bjaus/consumers"
)

// PanicError wraps the value recovered from a panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// Unwrap returns the recovered value if it is an error. A recovered domain
// error is not exposed, so a panic is never contained as a client reply.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	if errors.Is(err, consumers.ErrDomain) {
		return nil
	}
	return err
}

// New creates panic recovery middleware.
func New() consumers.Middleware {
	return func(next consumers.HandlerFunc) consumers.HandlerFunc {
		return func(ctx context.Context, inv *consumers.Invocation) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r, Stack: debug.Stack()}
				}
			}()
			return next(ctx, inv)
		}
	}
}
