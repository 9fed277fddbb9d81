package recoverer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/consumers"
	"github.com/bjaus/consumers/layer/memory"
	"github.com/bjaus/consumers/middleware/recoverer"
)

func dispatch(t *testing.T, fn consumers.HandlerFunc) error {
	t.Helper()
	layer := memory.New()
	c := consumers.Define("test",
		consumers.WithChannelName("test"),
		consumers.WithMiddleware(recoverer.New()),
	).HandleFunc("h", fn)

	r := consumers.New()
	r.Mount(c.MustAsRoutes(layer, nil))
	return r.Dispatch(context.Background(), consumers.NewMessage(layer, "test.receive", consumers.Content{}))
}

func TestRecoverer(t *testing.T) {
	t.Run("panic becomes error", func(t *testing.T) {
		err := dispatch(t, func(context.Context, *consumers.Invocation) error {
			panic("boom")
		})

		var perr *recoverer.PanicError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "boom", perr.Value)
		assert.NotEmpty(t, perr.Stack)
		assert.Contains(t, err.Error(), "handler panic: boom")
		assert.False(t, errors.Is(err, consumers.ErrDomain))
	})

	t.Run("panic with error value unwraps", func(t *testing.T) {
		sentinel := errors.New("sentinel")
		err := dispatch(t, func(context.Context, *consumers.Invocation) error {
			panic(sentinel)
		})
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("panicked domain error is not replied", func(t *testing.T) {
		layer := memory.New()
		c := consumers.Define("test",
			consumers.WithChannelName("test"),
			consumers.WithMiddleware(recoverer.New()),
		).HandleFunc("h", func(context.Context, *consumers.Invocation) error {
			panic(consumers.Fail("denied"))
		})
		r := consumers.New()
		r.Mount(c.MustAsRoutes(layer, nil))

		msg := consumers.NewMessage(layer, "test.receive", consumers.Content{consumers.ReplyChannelKey: "websocket.send!1"})
		err := r.Dispatch(context.Background(), msg)

		var perr *recoverer.PanicError
		require.ErrorAs(t, err, &perr)
		assert.False(t, errors.Is(err, consumers.ErrDomain))
		assert.Zero(t, layer.Len("websocket.send!1"))
	})

	t.Run("no panic passes through", func(t *testing.T) {
		sentinel := errors.New("plain")
		err := dispatch(t, func(context.Context, *consumers.Invocation) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)

		var perr *recoverer.PanicError
		assert.False(t, errors.As(err, &perr))
	})
}
