package consumers

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Reserved content keys.
const (
	// KwargsKey carries conversational state between related messages.
	// The default receive handler writes the invocation kwargs under this key
	// when it forwards a message to the internal channel, and the next
	// invocation overlays them onto its own kwargs.
	KwargsKey = "_kwargs"

	// ReplyChannelKey carries the reply channel name inside content.
	ReplyChannelKey = "reply_channel"
)

// Content is the body of a message.
type Content map[string]any

// Clone returns a shallow copy of the content.
func (c Content) Clone() Content {
	if c == nil {
		return Content{}
	}
	out := make(Content, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// String returns the value at key if it is a string.
func (c Content) String(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// Kwargs holds the values extracted for a single invocation: named captures
// from filter patterns overlaid with propagated conversational state.
type Kwargs map[string]any

// Clone returns a shallow copy of the kwargs.
func (k Kwargs) Clone() Kwargs {
	out := make(Kwargs, len(k))
	for key, v := range k {
		out[key] = v
	}
	return out
}

// Config is the registration-time configuration passed to AsRoutes.
type Config map[string]any

// Clone returns a shallow copy of the configuration.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// String returns the value at key if it is a string.
func (c Config) String(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// Message is an inbound message: content plus an addressable reply channel.
type Message struct {
	// ID identifies the message in logs.
	ID string

	// Channel is the channel the message was received on.
	Channel string

	// Content is the message body.
	Content Content

	// ReplyChannel is where responses to this message go. It is nil for
	// messages that did not originate from a client connection.
	ReplyChannel *Channel
}

// NewMessage creates a message received on channel. A plain string under
// ReplyChannelKey is lifted into a Channel bound to layer.
//
// Example:
//
//	msg := consumers.NewMessage(layer, consumers.ChannelConnect, consumers.Content{
//	    "path":          "/chat/42",
//	    "reply_channel": "websocket.send!abc",
//	})
func NewMessage(layer Layer, channel string, content Content) *Message {
	if content == nil {
		content = Content{}
	}
	msg := &Message{
		ID:      uuid.NewString(),
		Channel: channel,
		Content: content,
	}
	switch rc := content[ReplyChannelKey].(type) {
	case string:
		if rc != "" {
			msg.ReplyChannel = NewChannel(rc, layer)
		}
	case *Channel:
		msg.ReplyChannel = rc
	}
	return msg
}

// Channel is a structured handle to a named channel on a layer.
type Channel struct {
	name  string
	layer Layer
}

// NewChannel returns a handle for the named channel on layer.
func NewChannel(name string, layer Layer) *Channel {
	return &Channel{name: name, layer: layer}
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// String implements fmt.Stringer.
func (c *Channel) String() string { return c.name }

// Send delivers content to the channel.
func (c *Channel) Send(ctx context.Context, content Content) error {
	if c.layer == nil {
		return ErrNoLayer
	}
	return c.layer.Send(ctx, c.name, content)
}

// MarshalJSON encodes the channel as its name so handles never cross a wire
// boundary.
func (c *Channel) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.name)
}

// NormalizeReplyChannel replaces a structured reply handle stored under
// ReplyChannelKey with its channel name. It modifies and returns content.
func NormalizeReplyChannel(content Content) Content {
	switch rc := content[ReplyChannelKey].(type) {
	case *Channel:
		if rc == nil {
			delete(content, ReplyChannelKey)
		} else {
			content[ReplyChannelKey] = rc.Name()
		}
	case Channel:
		content[ReplyChannelKey] = rc.Name()
	}
	return content
}

// Handler processes one invocation.
type Handler interface {
	Handle(ctx context.Context, inv *Invocation) error
}

// HandlerFunc is a function adapter for Handler.
//
//	c.HandleFunc("join", func(ctx context.Context, inv *consumers.Invocation) error {
//	    return inv.Reply(ctx, map[string]string{"joined": inv.Kwargs["room"].(string)})
//	}, consumers.Where("command", consumers.Literal("join")))
type HandlerFunc func(ctx context.Context, inv *Invocation) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, inv *Invocation) error {
	return f(ctx, inv)
}

// Invoker is the materialized entry point of a route. It receives the
// message and the kwargs extracted by the route's predicate.
type Invoker func(ctx context.Context, msg *Message, kwargs Kwargs) error
