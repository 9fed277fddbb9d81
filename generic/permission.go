package generic

import (
	"context"

	"github.com/bjaus/consumers"
)

// Check reports whether the invocation is allowed.
type Check func(ctx context.Context, inv *consumers.Invocation) bool

// Permission runs the receive handler only when every check passes. A denied
// message is dropped silently. Other events are not checked.
func Permission(checks ...Check) consumers.Middleware {
	return func(next consumers.HandlerFunc) consumers.HandlerFunc {
		return func(ctx context.Context, inv *consumers.Invocation) error {
			if inv.Event() != consumers.EventReceive {
				return next(ctx, inv)
			}
			for _, check := range checks {
				if !check(ctx, inv) {
					return nil
				}
			}
			return next(ctx, inv)
		}
	}
}

// Authenticated passes when User resolved a user for the connection.
func Authenticated(_ context.Context, inv *consumers.Invocation) bool {
	return UserFrom(inv) != nil
}

// NoReceive drops every websocket.receive message without running the
// receive handler. Use it for consumers that only push to the client.
func NoReceive() consumers.Middleware {
	return func(next consumers.HandlerFunc) consumers.HandlerFunc {
		return func(ctx context.Context, inv *consumers.Invocation) error {
			if inv.Event() == consumers.EventReceive {
				return nil
			}
			return next(ctx, inv)
		}
	}
}
