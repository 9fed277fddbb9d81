// Package memory provides an in-process channel layer.
//
// It implements consumers.ReceiveLayer with per-channel FIFO queues and
// groups of channel names. It is meant for tests and single-process
// deployments: nothing is persisted and messages are lost when the process
// exits.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/bjaus/consumers"
)

// DefaultCapacity is the default number of messages a channel holds before
// Send fails with ErrChannelFull.
const DefaultCapacity = 100

// ErrChannelFull is returned by Send when the channel holds as many messages
// as the layer capacity.
var ErrChannelFull = errors.New("memory: channel full")

var _ consumers.ReceiveLayer = (*Layer)(nil)

// Layer is an in-memory channel layer. It is safe for concurrent use.
type Layer struct {
	mu       sync.Mutex
	capacity int
	queues   map[string][]consumers.Content
	groups   map[string]map[string]struct{}
	// wake is closed and replaced on every send so blocked receivers rescan.
	wake chan struct{}
}

// Option configures a Layer.
type Option func(*Layer)

// WithCapacity sets the per-channel queue capacity. Values below 1 leave the
// default.
func WithCapacity(n int) Option {
	return func(l *Layer) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// New creates an empty layer.
func New(opts ...Option) *Layer {
	l := &Layer{
		capacity: DefaultCapacity,
		queues:   make(map[string][]consumers.Content),
		groups:   make(map[string]map[string]struct{}),
		wake:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewChannel returns a unique channel name with the given prefix, such as
// "websocket.send!3f2b...". Use it to name reply channels.
func NewChannel(prefix string) string {
	return prefix + "!" + uuid.NewString()
}

// Send appends a copy of content to the channel queue. Reply handles in the
// content are replaced by their names.
func (l *Layer) Send(ctx context.Context, channel string, content consumers.Content) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if channel == "" {
		return errors.New("memory: send: empty channel name")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enqueue(channel, content)
}

func (l *Layer) enqueue(channel string, content consumers.Content) error {
	if len(l.queues[channel]) >= l.capacity {
		return fmt.Errorf("send %s: %w", channel, ErrChannelFull)
	}
	l.queues[channel] = append(l.queues[channel], consumers.NormalizeReplyChannel(content.Clone()))
	close(l.wake)
	l.wake = make(chan struct{})
	return nil
}

// Receive blocks until a message is queued on one of channels or ctx is done.
// Channels are checked in the order given.
func (l *Layer) Receive(ctx context.Context, channels ...string) (string, consumers.Content, error) {
	if len(channels) == 0 {
		return "", nil, errors.New("memory: receive: no channels")
	}
	for {
		l.mu.Lock()
		channel, content, ok := l.pop(channels)
		wake := l.wake
		l.mu.Unlock()
		if ok {
			return channel, content, nil
		}

		select {
		case <-ctx.Done():
			return "", nil, ctx.Err()
		case <-wake:
		}
	}
}

// ReceiveNow returns the next message on one of channels without blocking.
func (l *Layer) ReceiveNow(channels ...string) (string, consumers.Content, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pop(channels)
}

func (l *Layer) pop(channels []string) (string, consumers.Content, bool) {
	for _, ch := range channels {
		q := l.queues[ch]
		if len(q) == 0 {
			continue
		}
		content := q[0]
		q[0] = nil
		if len(q) == 1 {
			delete(l.queues, ch)
		} else {
			l.queues[ch] = q[1:]
		}
		return ch, content, true
	}
	return "", nil, false
}

// GroupAdd adds channel to group. Adding a member twice has no effect.
func (l *Layer) GroupAdd(ctx context.Context, group, channel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	members, ok := l.groups[group]
	if !ok {
		members = make(map[string]struct{})
		l.groups[group] = members
	}
	members[channel] = struct{}{}
	return nil
}

// GroupDiscard removes channel from group.
func (l *Layer) GroupDiscard(ctx context.Context, group, channel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	members := l.groups[group]
	delete(members, channel)
	if len(members) == 0 {
		delete(l.groups, group)
	}
	return nil
}

// GroupSend sends content to every member of group at the time of the call.
// A full member channel does not stop delivery to the others; the errors are
// joined.
func (l *Layer) GroupSend(ctx context.Context, group string, content consumers.Content) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for _, ch := range sortedKeys(l.groups[group]) {
		if err := l.enqueue(ch, content); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Members returns the channels in group, sorted.
func (l *Layer) Members(group string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedKeys(l.groups[group])
}

// Groups returns the names of the non-empty groups, sorted.
func (l *Layer) Groups() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedKeys(l.groups)
}

// Len returns the number of messages queued on channel.
func (l *Layer) Len(channel string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queues[channel])
}

// Channels returns the channels with queued messages, sorted.
func (l *Layer) Channels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedKeys(l.queues)
}

// Flush drops every queued message and group.
func (l *Layer) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queues = make(map[string][]consumers.Content)
	l.groups = make(map[string]map[string]struct{})
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
