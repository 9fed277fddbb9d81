package consumers

import (
	"context"
	"time"
)

// OnDispatchFunc is called just before a route is invoked.
type OnDispatchFunc func(ctx context.Context, route Route, msg *Message)

// OnSuccessFunc is called after a route returns without error. Domain errors
// contained by the consumer's error policy count as success.
type OnSuccessFunc func(ctx context.Context, route Route, msg *Message, duration time.Duration)

// OnFailureFunc is called after a route returns an error.
type OnFailureFunc func(ctx context.Context, route Route, msg *Message, err error, duration time.Duration)

// OnNoRouteFunc is called when no route matches a message.
// Return nil to drop the message, return an error to fail.
type OnNoRouteFunc func(ctx context.Context, msg *Message) error

// hooks holds all configured hook functions.
type hooks struct {
	onDispatch []OnDispatchFunc
	onSuccess  []OnSuccessFunc
	onFailure  []OnFailureFunc
	onNoRoute  []OnNoRouteFunc
}

// WithOnDispatch adds a hook called just before a route is invoked.
// Multiple hooks are called in order.
//
// Example:
//
//	consumers.WithOnDispatch(func(ctx context.Context, route consumers.Route, msg *consumers.Message) {
//	    logger.Debug("dispatching", zap.String("handler", route.Name))
//	})
func WithOnDispatch(fn OnDispatchFunc) RouterOption {
	return func(r *Router) {
		r.hooks.onDispatch = append(r.hooks.onDispatch, fn)
	}
}

// WithOnSuccess adds a hook called after a route succeeds.
// Multiple hooks are called in order.
//
// Example:
//
//	consumers.WithOnSuccess(func(ctx context.Context, route consumers.Route, msg *consumers.Message, d time.Duration) {
//	    metrics.Timing("consumers.success", d, "handler:"+route.Name)
//	})
func WithOnSuccess(fn OnSuccessFunc) RouterOption {
	return func(r *Router) {
		r.hooks.onSuccess = append(r.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after a route fails.
// Multiple hooks are called in order.
func WithOnFailure(fn OnFailureFunc) RouterOption {
	return func(r *Router) {
		r.hooks.onFailure = append(r.hooks.onFailure, fn)
	}
}

// WithOnNoRoute adds a hook called when no route matches a message.
// Return nil to drop, return an error to fail.
// Multiple hooks are called in order; first error wins.
//
// Example:
//
//	consumers.WithOnNoRoute(func(ctx context.Context, msg *consumers.Message) error {
//	    logger.Warn("unrouted message", zap.String("channel", msg.Channel))
//	    return nil
//	})
func WithOnNoRoute(fn OnNoRouteFunc) RouterOption {
	return func(r *Router) {
		r.hooks.onNoRoute = append(r.hooks.onNoRoute, fn)
	}
}
