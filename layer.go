package consumers

import "context"

// Layer is the messaging substrate consumers send through. It is passed
// explicitly to AsRoutes and reaches every invocation through its route
// table; there is no process-wide default.
type Layer interface {
	// Send delivers content to a single channel.
	Send(ctx context.Context, channel string, content Content) error

	// GroupAdd adds channel to group.
	GroupAdd(ctx context.Context, group, channel string) error

	// GroupDiscard removes channel from group. Removing a channel that is
	// not a member is not an error.
	GroupDiscard(ctx context.Context, group, channel string) error

	// GroupSend delivers content to every channel that is a member of group
	// at the instant of the call.
	GroupSend(ctx context.Context, group string, content Content) error
}

// ReceiveLayer is a Layer that can also be consumed from. Worker uses it to
// pull messages for the channels a Router serves.
type ReceiveLayer interface {
	Layer

	// Receive blocks until a message is available on one of channels or ctx
	// is done.
	Receive(ctx context.Context, channels ...string) (channel string, content Content, err error)
}
