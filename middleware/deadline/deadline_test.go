package deadline_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/consumers"
	"github.com/bjaus/consumers/layer/memory"
	"github.com/bjaus/consumers/middleware/deadline"
)

const reply = "websocket.send!1"

func run(t *testing.T, d time.Duration, fn consumers.HandlerFunc) (*memory.Layer, error) {
	t.Helper()
	layer := memory.New()
	c := consumers.Define("slow",
		consumers.WithChannelName("slow"),
		consumers.WithMiddleware(deadline.Timeout(d)),
	).HandleFunc("h", fn)

	r := consumers.New()
	r.Mount(c.MustAsRoutes(layer, nil))
	msg := consumers.NewMessage(layer, "slow.receive", consumers.Content{"reply_channel": reply})
	return layer, r.Dispatch(context.Background(), msg)
}

func TestTimeout(t *testing.T) {
	t.Run("expired deadline replies error", func(t *testing.T) {
		layer, err := run(t, 10*time.Millisecond, func(ctx context.Context, _ *consumers.Invocation) error {
			<-ctx.Done()
			return ctx.Err()
		})
		require.NoError(t, err)

		_, content, ok := layer.ReceiveNow(reply)
		require.True(t, ok)
		var body map[string]string
		require.NoError(t, json.Unmarshal([]byte(content["text"].(string)), &body))
		assert.Equal(t, deadline.Message, body["error"])
	})

	t.Run("handler sees deadline", func(t *testing.T) {
		var has bool
		_, err := run(t, time.Second, func(ctx context.Context, _ *consumers.Invocation) error {
			_, has = ctx.Deadline()
			return nil
		})
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("other errors untouched", func(t *testing.T) {
		sentinel := errors.New("boom")
		layer, err := run(t, time.Second, func(context.Context, *consumers.Invocation) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Zero(t, layer.Len(reply))
	})

	t.Run("disabled", func(t *testing.T) {
		var has bool
		_, err := run(t, 0, func(ctx context.Context, _ *consumers.Invocation) error {
			_, has = ctx.Deadline()
			return nil
		})
		require.NoError(t, err)
		assert.False(t, has)
	})
}
