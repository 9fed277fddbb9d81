package consumers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Router dispatches messages to the routes of mounted route tables.
//
// Usage:
//  1. Create a router with New
//  2. Build route tables with Consumer.AsRoutes
//  3. Mount them
//  4. Dispatch messages, directly or through a Worker
//
// Router is safe for concurrent use. Mount swaps the whole routing snapshot
// atomically; dispatches already in flight finish against the snapshot they
// started with.
type Router struct {
	inspector Inspector
	hooks     hooks
	logger    *zap.Logger

	current atomic.Pointer[routing]
}

// routing is an immutable snapshot of the mounted tables.
type routing struct {
	tables   []*RouteTable
	routes   map[string][]Route
	channels []string
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// New creates a Router with the given options.
//
// Example:
//
//	r := consumers.New(
//	    consumers.WithLogger(logger),
//	    consumers.WithOnFailure(func(ctx context.Context, route consumers.Route, msg *consumers.Message, err error, d time.Duration) {
//	        metrics.Incr("consumers.failure", "handler:"+route.Name)
//	    }),
//	)
//	r.Mount(chatRoutes, presenceRoutes)
func New(opts ...RouterOption) *Router {
	r := &Router{
		inspector: ContentInspector(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(&routing{routes: map[string][]Route{}})
	return r
}

// WithInspector sets the inspector used to evaluate predicates.
func WithInspector(i Inspector) RouterOption {
	return func(r *Router) {
		r.inspector = i
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// Mount replaces the mounted tables. Routes are evaluated in the order the
// tables are given, then in the order of each table's routes.
func (r *Router) Mount(tables ...*RouteTable) {
	next := &routing{routes: make(map[string][]Route)}
	for _, t := range tables {
		if t == nil {
			continue
		}
		next.tables = append(next.tables, t)
		for _, route := range t.Routes() {
			if _, ok := next.routes[route.Channel]; !ok {
				next.channels = append(next.channels, route.Channel)
			}
			next.routes[route.Channel] = append(next.routes[route.Channel], route)
		}
	}
	r.current.Store(next)
	r.logger.Debug("mounted route tables",
		zap.Int("tables", len(next.tables)),
		zap.Strings("channels", next.channels),
	)
}

// Tables returns the mounted tables.
func (r *Router) Tables() []*RouteTable {
	return append([]*RouteTable(nil), r.current.Load().tables...)
}

// Channels returns every channel with at least one route.
func (r *Router) Channels() []string {
	return append([]string(nil), r.current.Load().channels...)
}

// Match returns the first route registered on the message's channel whose
// predicate matches, with the kwargs it extracted.
func (r *Router) Match(msg *Message) (Route, Kwargs, bool) {
	return matchRoutes(r.current.Load().routes[msg.Channel], msg, r.inspector)
}

// Dispatch routes msg to the first matching route and invokes it.
//
// A message no route matches is dropped and Dispatch returns nil, unless an
// OnNoRoute hook returns an error. Errors the consumer's error policy does not
// contain are returned wrapped with the consumer and handler names.
func (r *Router) Dispatch(ctx context.Context, msg *Message) error {
	route, kwargs, ok := r.Match(msg)
	if !ok {
		return r.handleNoRoute(ctx, msg)
	}

	for _, fn := range r.hooks.onDispatch {
		fn(ctx, route, msg)
	}

	start := time.Now()
	err := route.Invoke(ctx, msg, kwargs)
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("handler failed",
			zap.String("consumer", route.Consumer),
			zap.String("handler", route.Name),
			zap.String("channel", msg.Channel),
			zap.String("message_id", msg.ID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		for _, fn := range r.hooks.onFailure {
			fn(ctx, route, msg, err, duration)
		}
		return fmt.Errorf("%s.%s: %w", route.Consumer, route.Name, err)
	}

	for _, fn := range r.hooks.onSuccess {
		fn(ctx, route, msg, duration)
	}
	return nil
}

// handleNoRoute handles a message no route matches.
func (r *Router) handleNoRoute(ctx context.Context, msg *Message) error {
	for _, fn := range r.hooks.onNoRoute {
		if err := fn(ctx, msg); err != nil {
			return err
		}
	}
	r.logger.Debug("dropped unrouted message",
		zap.String("channel", msg.Channel),
		zap.String("message_id", msg.ID),
	)
	return nil
}
