package consumers

import (
	"context"
	"sync"
)

type sent struct {
	channel string
	content Content
}

// recordingLayer records sends and group operations.
type recordingLayer struct {
	mu     sync.Mutex
	sends  []sent
	groups map[string][]string
	err    error
}

func newRecordingLayer() *recordingLayer {
	return &recordingLayer{groups: make(map[string][]string)}
}

func (l *recordingLayer) Send(_ context.Context, channel string, content Content) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.sends = append(l.sends, sent{channel: channel, content: content})
	return nil
}

func (l *recordingLayer) GroupAdd(_ context.Context, group, channel string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.groups[group] = append(l.groups[group], channel)
	return nil
}

func (l *recordingLayer) GroupDiscard(_ context.Context, group, channel string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	members := l.groups[group][:0]
	for _, m := range l.groups[group] {
		if m != channel {
			members = append(members, m)
		}
	}
	l.groups[group] = members
	return nil
}

func (l *recordingLayer) GroupSend(ctx context.Context, group string, content Content) error {
	l.mu.Lock()
	members := append([]string(nil), l.groups[group]...)
	l.mu.Unlock()
	for _, m := range members {
		if err := l.Send(ctx, m, content); err != nil {
			return err
		}
	}
	return nil
}

func (l *recordingLayer) sentTo(channel string) []Content {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Content
	for _, s := range l.sends {
		if s.channel == channel {
			out = append(out, s.content)
		}
	}
	return out
}
