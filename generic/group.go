package generic

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bjaus/consumers"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Group adds the connection's reply channel to a group on connect, removes it
// on disconnect and broadcasts every received message to the group. Each
// action runs after the wrapped handler succeeds.
//
// The group name is template with {key} placeholders replaced by invocation
// values; an empty template uses the consumer channel name.
func Group(template string) consumers.Middleware {
	return func(next consumers.HandlerFunc) consumers.HandlerFunc {
		return func(ctx context.Context, inv *consumers.Invocation) error {
			e := inv.Event()
			if e == consumers.EventHandler {
				return next(ctx, inv)
			}
			if err := next(ctx, inv); err != nil {
				return err
			}

			name, err := GroupName(template, inv)
			if err != nil {
				return err
			}
			layer := inv.Layer()
			if layer == nil {
				return consumers.ErrNoLayer
			}

			switch e {
			case consumers.EventConnect:
				if inv.ReplyChannel == nil {
					return nil
				}
				return layer.GroupAdd(ctx, name, inv.ReplyChannel.Name())
			case consumers.EventDisconnect:
				if inv.ReplyChannel == nil {
					return nil
				}
				return layer.GroupDiscard(ctx, name, inv.ReplyChannel.Name())
			case consumers.EventReceive:
				return layer.GroupSend(ctx, name, broadcastContent(inv.Message.Content))
			}
			return nil
		}
	}
}

// GroupName formats template with values from inv. Placeholders look up
// kwargs first, then the registration configuration. A placeholder without a
// value is a domain error.
func GroupName(template string, inv *consumers.Invocation) (string, error) {
	if template == "" {
		template = inv.ChannelName()
	}
	if template == "" {
		return "", consumers.Fail("group name is not configured")
	}

	var missing string
	name := placeholder.ReplaceAllStringFunc(template, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := inv.Get(key)
		if !ok {
			if missing == "" {
				missing = key
			}
			return m
		}
		return fmt.Sprint(v)
	})
	if missing != "" {
		return "", consumers.Failf("group name %q: no value for %q", template, missing)
	}
	return name, nil
}

// broadcastContent strips routing state from content before it is sent to
// other connections.
func broadcastContent(c consumers.Content) consumers.Content {
	out := c.Clone()
	delete(out, consumers.ReplyChannelKey)
	delete(out, consumers.KwargsKey)
	return out
}
