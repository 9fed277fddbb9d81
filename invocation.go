package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Event identifies which kind of handler an invocation runs.
type Event int

// Events.
const (
	EventHandler Event = iota
	EventConnect
	EventDisconnect
	EventReceive
)

func (e Event) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventReceive:
		return "receive"
	default:
		return "handler"
	}
}

// Invocation is the per-message state a handler runs with. A new Invocation
// is built for every message and is never shared between messages, so
// handlers and middleware may modify it freely.
type Invocation struct {
	// Message is the message being processed.
	Message *Message

	// ReplyChannel is the message's reply channel, or nil.
	ReplyChannel *Channel

	// Kwargs holds the named captures of the matching route. For custom
	// handlers they are overlaid with the state propagated under KwargsKey in
	// the message content.
	Kwargs Kwargs

	// Config is a copy of the registration configuration.
	Config Config

	table   *RouteTable
	handler string
	event   Event
	values  map[any]any
}

// newInvocation builds the invocation for one message. It does no I/O.
// Propagated state is read only by custom handlers: lifecycle channels carry
// client frames, whose content must not override route captures.
func newInvocation(t *RouteTable, handler string, e Event, msg *Message, matched Kwargs) *Invocation {
	var propagated map[string]any
	if e == EventHandler {
		propagated = propagatedKwargs(msg.Content)
	}
	kwargs := make(Kwargs, len(matched)+len(propagated))
	for k, v := range matched {
		kwargs[k] = v
	}
	for k, v := range propagated {
		kwargs[k] = v
	}
	return &Invocation{
		Message:      msg,
		ReplyChannel: msg.ReplyChannel,
		Kwargs:       kwargs,
		Config:       t.config.Clone(),
		table:        t,
		handler:      handler,
		event:        e,
	}
}

func propagatedKwargs(c Content) map[string]any {
	switch kw := c[KwargsKey].(type) {
	case map[string]any:
		return kw
	case Kwargs:
		return map[string]any(kw)
	}
	return nil
}

// Consumer returns the name of the consumer that owns the handler.
func (inv *Invocation) Consumer() string { return inv.table.consumer }

// Handler returns the name of the handler being invoked.
func (inv *Invocation) Handler() string { return inv.handler }

// Event returns the kind of handler being invoked.
func (inv *Invocation) Event() Event { return inv.event }

// ChannelName returns the resolved consumer channel name, or "" if the
// consumer has none.
func (inv *Invocation) ChannelName() string { return inv.table.channelName }

// InternalChannel returns the channel Send delivers to.
func (inv *Invocation) InternalChannel() string { return inv.table.internalChannel }

// Layer returns the layer the routes were built with.
func (inv *Invocation) Layer() Layer { return inv.table.layer }

// Get returns the named value from the kwargs, falling back to the
// configuration.
func (inv *Invocation) Get(key string) (any, bool) {
	if v, ok := inv.Kwargs[key]; ok {
		return v, true
	}
	v, ok := inv.Config[key]
	return v, ok
}

// Set stores a value on the invocation. Middleware uses it to hand state such
// as a loaded session to the handlers it wraps.
func (inv *Invocation) Set(key, value any) {
	if inv.values == nil {
		inv.values = make(map[any]any)
	}
	inv.values[key] = value
}

// Value returns a value stored with Set, or nil.
func (inv *Invocation) Value(key any) any {
	return inv.values[key]
}

// Reply encodes v as JSON and sends it to the reply channel as
// {"text": "<json>"}.
func (inv *Invocation) Reply(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	return inv.ReplyContent(ctx, Content{"text": string(b)})
}

// ReplyContent sends content to the reply channel as is.
func (inv *Invocation) ReplyContent(ctx context.Context, content Content) error {
	if inv.ReplyChannel == nil {
		return ErrNoReplyChannel
	}
	return inv.ReplyChannel.Send(ctx, content)
}

// Send delivers content to the consumer's internal channel.
func (inv *Invocation) Send(ctx context.Context, content Content) error {
	if inv.table.internalChannel == "" {
		return ErrNoInternalChannel
	}
	if inv.table.layer == nil {
		return ErrNoLayer
	}
	return inv.table.layer.Send(ctx, inv.table.internalChannel, NormalizeReplyChannel(content))
}

// ForwardReceive is the default websocket.receive handler. It forwards a copy
// of the content to the internal channel with the reply channel name and the
// invocation kwargs attached, so the custom handlers see the connection's
// conversational state. It does nothing when the consumer has no custom
// handlers.
func ForwardReceive(ctx context.Context, inv *Invocation) error {
	if !inv.table.HasInternal() || inv.table.internalChannel == "" {
		return nil
	}
	content := inv.Message.Content.Clone()
	delete(content, KwargsKey)
	if inv.ReplyChannel != nil {
		content[ReplyChannelKey] = inv.ReplyChannel.Name()
	}
	if len(inv.Kwargs) > 0 {
		content[KwargsKey] = map[string]any(inv.Kwargs.Clone())
	}
	return inv.Send(ctx, content)
}

// ErrorPolicy contains errors returned by a consumer's middleware chain. The
// error it returns, if any, propagates to the dispatcher.
type ErrorPolicy func(ctx context.Context, inv *Invocation, err error) error

// DefaultErrorPolicy replies {"error": msg} for a DomainError and returns nil.
// A DomainError on a message without a reply channel is dropped. Every other
// error is returned unchanged.
func DefaultErrorPolicy(ctx context.Context, inv *Invocation, err error) error {
	var derr *DomainError
	if !errors.As(err, &derr) {
		return err
	}
	if inv.ReplyChannel == nil {
		return nil
	}
	if rerr := inv.Reply(ctx, map[string]string{"error": derr.Message}); rerr != nil {
		return fmt.Errorf("reply domain error: %w", rerr)
	}
	return nil
}
