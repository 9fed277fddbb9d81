// Package consumers provides declarative, class-based message consumers for
// websocket-style messaging.
//
// A consumer groups the lifecycle handlers of a connection (connect,
// disconnect, receive) with any number of custom handlers selected by
// attribute filters. Registering a consumer with a configuration produces a
// route table; a Router dispatches messages against mounted tables; a Worker
// feeds a Router from a channel layer.
//
// # Quick Start
//
// Define a consumer once, at package initialization:
//
//	var Chat = consumers.Define("chat",
//	    consumers.WithChannelName("chat"),
//	    consumers.WithPath(`^/chat/(?P<room>\d+)$`),
//	    consumers.WithMiddleware(recoverer.New(), logging.New(logger)),
//	).
//	    HandleFunc("join", func(ctx context.Context, inv *consumers.Invocation) error {
//	        return inv.Reply(ctx, map[string]any{"joined": inv.Kwargs["room"]})
//	    }, consumers.Where("command", consumers.Literal("join")))
//
// Register it and dispatch:
//
//	layer := memory.New()
//	routes, err := Chat.AsRoutes(layer, nil)
//	if err != nil {
//	    log.Fatal(err) // configuration errors are reported before any route exists
//	}
//
//	r := consumers.New()
//	r.Mount(routes)
//	err = r.Dispatch(ctx, consumers.NewMessage(layer, consumers.ChannelConnect, content))
//
// # Routes
//
// AsRoutes always produces one route per lifecycle channel:
//
//   - websocket.connect
//   - websocket.disconnect
//   - websocket.receive
//
// filtered on the "path" attribute when a path is configured. Custom handlers
// are routed on the internal channel "<channel name>.receive", so messages
// from clients and messages forwarded by the consumer itself never collide.
// A consumer without custom handlers has no internal sub-table at all.
//
// The channel name of a custom handler is resolved with this precedence:
//
//  1. "channel_name" in the registration Config
//  2. the handler's OnChannel
//  3. the consumer's WithChannelName
//
// and AsRoutes fails when none is set. Two registrations with different
// channel names are isolated; two registrations sharing a channel name share
// one internal channel.
//
// Route tables are immutable. Registering the same consumer twice with
// different configuration yields two independent tables.
//
// # Filters
//
// A filter maps attribute paths to rules. Every path must be present in the
// message content and satisfy its rule:
//
//   - Literal: exact string equality
//   - Pattern: regular expression matched against the whole value; named
//     groups become kwargs of the invocation
//   - Deferred: a pattern computed from the registration Config when routes
//     are built
//
// Top-level keys are read directly from the content; other paths use gjson
// syntax, so a filter can reach nested values. Routes on a channel are tried
// in declaration order and the first match wins. A message no route matches
// is dropped.
//
// # Invocations
//
// Every message gets a fresh Invocation carrying the message, its reply
// channel, a copy of the registration Config and the kwargs: the captures of
// the matching route overlaid with the conversational state found under
// "_kwargs" in the content. The default receive handler forwards each message
// to the internal channel with the connection's kwargs attached, so custom
// handlers see values captured when the connection was opened.
//
// # Middleware
//
// Middleware wraps handlers:
//
//	type Middleware func(next HandlerFunc) HandlerFunc
//
// Consumer middleware (WithMiddleware, then WithMiddlewareFunc) wraps every
// handler, and handler middleware (Use) runs inside it, closest to the body.
// The first middleware given is the outermost. Capabilities such as groups,
// sessions and permissions are provided as middleware by package generic.
//
// # Error Handling
//
// Three kinds of errors are kept apart:
//
//   - *ConfigError: returned by AsRoutes, never while dispatching
//   - *DomainError: returned by handlers through Fail or Failf and turned into
//     an {"error": msg} reply by the default ErrorPolicy
//   - anything else: returned from Router.Dispatch so it is visible to the
//     caller
//
// Override the containment with WithErrorPolicy.
//
// # Thread Safety
//
// Define consumers before building routes and do not modify them afterwards.
// Route tables and Routers are safe for concurrent use; Router.Mount may be
// called while messages are being dispatched.
package consumers
