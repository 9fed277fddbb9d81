package consumers

import (
	"context"
	"errors"
	"fmt"
)

// Primary inbound channels of a websocket connection.
const (
	ChannelConnect    = "websocket.connect"
	ChannelDisconnect = "websocket.disconnect"
	ChannelReceive    = "websocket.receive"
)

// InternalSuffix is appended to a consumer channel name to form the internal
// channel its custom handlers are routed on.
const InternalSuffix = ".receive"

// Configuration keys read by AsRoutes.
const (
	ConfigChannelName = "channel_name"
	ConfigPath        = "path"
)

var reservedConfigKeys = []string{"message", "kwargs", "replyTarget", ReplyChannelKey}

// Route is one materialized, invocable entry of a RouteTable.
type Route struct {
	Consumer  string
	Name      string
	Event     Event
	Channel   string
	Predicate Predicate
	Invoke    Invoker
}

// RouteTable is the result of registering a consumer with one configuration.
// It is immutable: registering again builds a new table.
type RouteTable struct {
	consumer        string
	channelName     string
	internalChannel string
	config          Config
	layer           Layer
	lifecycle       []Route
	internal        []Route
}

// AsRoutes builds the routes of the consumer for one registration.
//
// The table always holds one route per lifecycle channel (websocket.connect,
// websocket.disconnect, websocket.receive), filtered on "path" when a path is
// configured and matching any message otherwise. Custom handlers are routed on
// "<channel name>.receive" in declaration order. The channel name of a handler
// is, by precedence: cfg["channel_name"], the handler's OnChannel, the
// consumer's WithChannelName.
//
// Every problem is reported at once in a *ConfigError and no table is
// returned.
//
// Example:
//
//	routes, err := Chat.AsRoutes(layer, consumers.Config{
//	    "channel_name": "chat.lobby",
//	    "path":         `^/lobby/(?P<room>\w+)$`,
//	})
func (c *Consumer) AsRoutes(layer Layer, cfg Config) (*RouteTable, error) {
	errs := append([]error(nil), c.errs...)
	for _, key := range reservedConfigKeys {
		if _, ok := cfg[key]; ok {
			errs = append(errs, fmt.Errorf("%q is a reserved configuration key", key))
		}
	}

	cfg = cfg.Clone()
	callChannel, err := configString(cfg, ConfigChannelName)
	if err != nil {
		errs = append(errs, err)
	}
	path, err := configString(cfg, ConfigPath)
	if err != nil {
		errs = append(errs, err)
	}

	channelName := callChannel
	if channelName == "" {
		channelName = c.channelName
	}
	if path == "" {
		path = c.path
	}

	t := &RouteTable{
		consumer:    c.name,
		channelName: channelName,
		config:      cfg,
		layer:       layer,
	}
	if channelName != "" {
		t.internalChannel = channelName + InternalSuffix
	}

	mws := append([]Middleware(nil), c.middleware...)
	if c.middlewareFunc != nil {
		mws = append(mws, c.middlewareFunc(cfg)...)
	}

	pathFilter := Filter{}
	if path != "" {
		pathFilter[ConfigPath] = Pattern(path)
	}
	pathPredicate, err := Compile(pathFilter, cfg)
	if err != nil {
		errs = append(errs, err)
	}
	for _, lc := range []struct {
		channel string
		event   Event
		desc    *Descriptor
	}{
		{ChannelConnect, EventConnect, c.connect},
		{ChannelDisconnect, EventDisconnect, c.disconnect},
		{ChannelReceive, EventReceive, c.receive},
	} {
		t.lifecycle = append(t.lifecycle, Route{
			Consumer:  c.name,
			Name:      lc.desc.Name,
			Event:     lc.event,
			Channel:   lc.channel,
			Predicate: pathPredicate,
			Invoke:    c.invoker(t, lc.event, lc.desc, mws),
		})
	}

	seen := make(map[string]string, len(c.handlers))
	for _, d := range c.handlers {
		name, err := c.handlerChannel(d, callChannel, cfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pred, err := Compile(d.Filter, cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("handler %q: %w", d.Name, err))
			continue
		}
		channel := name + InternalSuffix
		key := channel + " " + pred.String()
		if other, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("handlers %q and %q declare identical filters %s on %s", other, d.Name, pred, channel))
			continue
		}
		seen[key] = d.Name
		t.internal = append(t.internal, Route{
			Consumer:  c.name,
			Name:      d.Name,
			Event:     EventHandler,
			Channel:   channel,
			Predicate: pred,
			Invoke:    c.invoker(t, EventHandler, d, mws),
		})
	}

	if len(errs) > 0 {
		return nil, &ConfigError{Consumer: c.name, Reason: "build routes", Err: errors.Join(errs...)}
	}
	return t, nil
}

// MustAsRoutes is like AsRoutes but panics on error. Use it in package
// initialization where a configuration error is a programming error.
func (c *Consumer) MustAsRoutes(layer Layer, cfg Config) *RouteTable {
	t, err := c.AsRoutes(layer, cfg)
	if err != nil {
		panic(err)
	}
	return t
}

func (c *Consumer) handlerChannel(d *Descriptor, callChannel string, cfg Config) (string, error) {
	if callChannel != "" {
		return callChannel, nil
	}
	if d.ChannelName != nil {
		name, err := d.ChannelName(cfg)
		if err != nil {
			return "", fmt.Errorf("handler %q: channel name: %w", d.Name, err)
		}
		if name != "" {
			return name, nil
		}
	}
	if c.channelName != "" {
		return c.channelName, nil
	}
	return "", fmt.Errorf("handler %q: no channel name: set %s or WithChannelName", d.Name, ConfigChannelName)
}

// invoker binds a descriptor to the table: it builds the invocation, runs the
// middleware chain and applies the error policy.
func (c *Consumer) invoker(t *RouteTable, e Event, d *Descriptor, mws []Middleware) Invoker {
	chain := make([]Middleware, 0, len(mws)+len(d.Middleware))
	chain = append(chain, mws...)
	chain = append(chain, d.Middleware...)
	h := Wrap(d.Handler, chain...)
	policy := c.policy
	name := d.Name
	return func(ctx context.Context, msg *Message, kwargs Kwargs) error {
		inv := newInvocation(t, name, e, msg, kwargs)
		if err := h.Handle(ctx, inv); err != nil {
			return policy(ctx, inv, err)
		}
		return nil
	}
}

func configString(cfg Config, key string) (string, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%q must be a string, got %T", key, v)
	}
	return s, nil
}

// Consumer returns the name of the consumer the table was built from.
func (t *RouteTable) Consumer() string { return t.consumer }

// ChannelName returns the resolved consumer channel name.
func (t *RouteTable) ChannelName() string { return t.channelName }

// InternalChannel returns the channel the default receive handler forwards to.
func (t *RouteTable) InternalChannel() string { return t.internalChannel }

// Lifecycle returns the routes on the primary websocket channels.
func (t *RouteTable) Lifecycle() []Route {
	return append([]Route(nil), t.lifecycle...)
}

// Internal returns the routes of the custom handlers. It reports false when
// the consumer declares no custom handlers, so callers can tell "no internal
// routing" apart from an empty sub-table.
func (t *RouteTable) Internal() ([]Route, bool) {
	if len(t.internal) == 0 {
		return nil, false
	}
	return append([]Route(nil), t.internal...), true
}

// HasInternal reports whether the table has custom handler routes.
func (t *RouteTable) HasInternal() bool { return len(t.internal) > 0 }

// Routes returns every route: lifecycle routes first, then custom handlers.
func (t *RouteTable) Routes() []Route {
	out := make([]Route, 0, len(t.lifecycle)+len(t.internal))
	out = append(out, t.lifecycle...)
	return append(out, t.internal...)
}

// Channels returns the channels the table has routes on, in route order.
func (t *RouteTable) Channels() []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range t.Routes() {
		if !seen[r.Channel] {
			seen[r.Channel] = true
			out = append(out, r.Channel)
		}
	}
	return out
}

// Match returns the first route on the message's channel whose predicate
// matches the content.
func (t *RouteTable) Match(msg *Message) (Route, Kwargs, bool) {
	return matchRoutes(t.Routes(), msg, ContentInspector())
}

func matchRoutes(routes []Route, msg *Message, insp Inspector) (Route, Kwargs, bool) {
	var view View
	for _, r := range routes {
		if r.Channel != msg.Channel {
			continue
		}
		if view == nil {
			view = insp.Inspect(msg.Content)
		}
		if kw, ok := r.Predicate.Match(view); ok {
			return r, kw, true
		}
	}
	return Route{}, nil, false
}
