package consumers

import (
	"context"
	"errors"
	"fmt"
)

// NameFunc computes a channel name from the registration configuration.
type NameFunc func(cfg Config) (string, error)

// Descriptor is one declared handler. Descriptors are created when the
// consumer is defined and never change afterwards.
type Descriptor struct {
	// Name identifies the handler within its consumer.
	Name string

	// Filter selects the messages the handler receives.
	Filter Filter

	// ChannelName overrides the consumer channel name for this handler.
	// Nil when the handler does not declare one.
	ChannelName NameFunc

	// Middleware runs inside the consumer middleware, closest to Handler.
	Middleware []Middleware

	// Handler is the handler body.
	Handler Handler
}

func (d *Descriptor) clone() *Descriptor {
	cp := *d
	cp.Filter = make(Filter, len(d.Filter))
	for k, v := range d.Filter {
		cp.Filter[k] = v
	}
	cp.Middleware = append([]Middleware(nil), d.Middleware...)
	return &cp
}

// HandlerOption configures a Descriptor.
type HandlerOption func(*Descriptor)

// Where adds a filter rule on path.
//
//	c.HandleFunc("join", join, consumers.Where("command", consumers.Pattern("^join$")))
func Where(path string, v FilterValue) HandlerOption {
	return func(d *Descriptor) {
		d.Filter[path] = v
	}
}

// WithFilter adds every rule of f.
func WithFilter(f Filter) HandlerOption {
	return func(d *Descriptor) {
		for k, v := range f {
			d.Filter[k] = v
		}
	}
}

// OnChannel routes the handler on name instead of the consumer channel name.
// A channel_name supplied to AsRoutes still takes precedence.
func OnChannel(name string) HandlerOption {
	return OnChannelFunc(func(Config) (string, error) { return name, nil })
}

// OnChannelFunc is like OnChannel but computes the name when routes are built.
func OnChannelFunc(fn NameFunc) HandlerOption {
	return func(d *Descriptor) {
		d.ChannelName = fn
	}
}

// Use adds middleware that runs only around this handler, inside the
// consumer middleware.
func Use(mws ...Middleware) HandlerOption {
	return func(d *Descriptor) {
		d.Middleware = append(d.Middleware, mws...)
	}
}

// Consumer is the declarative definition of a set of message handlers: the
// lifecycle handlers for a websocket connection plus any number of custom
// handlers routed on the consumer's internal channel.
//
// A Consumer is built once, typically in a package-level variable, and only
// read afterwards. Do not call Handle concurrently with AsRoutes.
//
// Example:
//
//	var Chat = consumers.Define("chat",
//	    consumers.WithChannelName("chat"),
//	    consumers.WithPath(`^/chat/(?P<room>\d+)$`),
//	).
//	    HandleFunc("join", chatJoin, consumers.Where("command", consumers.Literal("join"))).
//	    HandleFunc("leave", chatLeave, consumers.Where("command", consumers.Literal("leave")))
type Consumer struct {
	name           string
	channelName    string
	path           string
	middleware     []Middleware
	middlewareFunc func(cfg Config) []Middleware
	connect        *Descriptor
	disconnect     *Descriptor
	receive        *Descriptor
	handlers       []*Descriptor
	inherited      map[string]bool
	policy         ErrorPolicy
	errs           []error
}

// Option configures a Consumer.
type Option func(*Consumer)

// Define creates a consumer definition.
func Define(name string, opts ...Option) *Consumer {
	c := &Consumer{
		name:       name,
		connect:    lifecycleDescriptor(EventConnect, nil),
		disconnect: lifecycleDescriptor(EventDisconnect, nil),
		receive:    lifecycleDescriptor(EventReceive, HandlerFunc(ForwardReceive)),
		inherited:  make(map[string]bool),
		policy:     DefaultErrorPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extends copies the definition of base into the consumer: options,
// lifecycle handlers and custom handlers. A handler declared later with the
// name of an inherited one replaces it in place. Extends should be the first
// option.
func Extends(base *Consumer) Option {
	return func(c *Consumer) {
		c.channelName = base.channelName
		c.path = base.path
		c.middleware = append([]Middleware(nil), base.middleware...)
		c.middlewareFunc = base.middlewareFunc
		c.connect = base.connect.clone()
		c.disconnect = base.disconnect.clone()
		c.receive = base.receive.clone()
		c.policy = base.policy
		c.handlers = make([]*Descriptor, 0, len(base.handlers))
		for _, d := range base.handlers {
			c.handlers = append(c.handlers, d.clone())
			c.inherited[d.Name] = true
		}
		c.errs = append(c.errs, base.errs...)
	}
}

// WithChannelName sets the default channel name. The internal channel is the
// channel name with a ".receive" suffix.
func WithChannelName(name string) Option {
	return func(c *Consumer) {
		c.channelName = name
	}
}

// WithPath sets the default path pattern the lifecycle handlers filter on.
func WithPath(pattern string) Option {
	return func(c *Consumer) {
		c.path = pattern
	}
}

// WithMiddleware appends consumer middleware. Consumer middleware wraps every
// handler, outside any handler middleware, in the order given.
func WithMiddleware(mws ...Middleware) Option {
	return func(c *Consumer) {
		c.middleware = append(c.middleware, mws...)
	}
}

// WithMiddlewareFunc sets a function that computes additional consumer
// middleware from the registration configuration. Its result runs inside the
// middleware given to WithMiddleware.
func WithMiddlewareFunc(fn func(cfg Config) []Middleware) Option {
	return func(c *Consumer) {
		c.middlewareFunc = fn
	}
}

// WithOnConnect sets the handler for websocket.connect.
func WithOnConnect(fn HandlerFunc, mws ...Middleware) Option {
	return func(c *Consumer) {
		c.connect = lifecycleDescriptor(EventConnect, fn, mws...)
	}
}

// WithOnDisconnect sets the handler for websocket.disconnect.
func WithOnDisconnect(fn HandlerFunc, mws ...Middleware) Option {
	return func(c *Consumer) {
		c.disconnect = lifecycleDescriptor(EventDisconnect, fn, mws...)
	}
}

// WithOnReceive replaces the handler for websocket.receive. The default
// forwards the message to the internal channel; ForwardReceive exposes it for
// handlers that want to extend rather than replace it.
func WithOnReceive(fn HandlerFunc, mws ...Middleware) Option {
	return func(c *Consumer) {
		c.receive = lifecycleDescriptor(EventReceive, fn, mws...)
	}
}

// WithErrorPolicy sets the containment policy applied to errors returned by
// the middleware chain.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(c *Consumer) {
		if p != nil {
			c.policy = p
		}
	}
}

func lifecycleDescriptor(e Event, fn HandlerFunc, mws ...Middleware) *Descriptor {
	var h Handler = HandlerFunc(noop)
	if fn != nil {
		h = fn
	}
	return &Descriptor{
		Name:       e.String(),
		Filter:     Filter{},
		Middleware: mws,
		Handler:    h,
	}
}

func noop(context.Context, *Invocation) error { return nil }

// Name returns the consumer name.
func (c *Consumer) Name() string { return c.name }

// Handle declares a custom handler. Handlers are matched in declaration
// order. Problems such as a duplicate name are reported by AsRoutes.
func (c *Consumer) Handle(name string, h Handler, opts ...HandlerOption) *Consumer {
	switch {
	case name == "":
		c.errs = append(c.errs, errors.New("handler with empty name"))
		return c
	case h == nil:
		c.errs = append(c.errs, fmt.Errorf("handler %q: nil handler", name))
		return c
	case isLifecycleName(name):
		c.errs = append(c.errs, fmt.Errorf("handler %q: name is reserved for a lifecycle handler", name))
		return c
	}

	d := &Descriptor{Name: name, Filter: Filter{}, Handler: h}
	for _, opt := range opts {
		opt(d)
	}

	for i, existing := range c.handlers {
		if existing.Name != name {
			continue
		}
		if c.inherited[name] {
			delete(c.inherited, name)
			c.handlers[i] = d
			return c
		}
		c.errs = append(c.errs, fmt.Errorf("handler %q declared twice", name))
		return c
	}
	c.handlers = append(c.handlers, d)
	return c
}

// HandleFunc declares a custom handler function.
func (c *Consumer) HandleFunc(name string, fn HandlerFunc, opts ...HandlerOption) *Consumer {
	if fn == nil {
		return c.Handle(name, nil, opts...)
	}
	return c.Handle(name, fn, opts...)
}

// Handlers returns the custom handler descriptors in declaration order.
func (c *Consumer) Handlers() []Descriptor {
	out := make([]Descriptor, len(c.handlers))
	for i, d := range c.handlers {
		out[i] = *d.clone()
	}
	return out
}

func isLifecycleName(name string) bool {
	switch name {
	case EventConnect.String(), EventDisconnect.String(), EventReceive.String():
		return true
	}
	return false
}
