package consumers

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrNoChannels is returned by Worker.Run when the router serves no channel.
var ErrNoChannels = errors.New("worker has no channels to listen on")

// Worker receives messages from a layer and dispatches them through a Router.
// Messages are dispatched concurrently, including messages of the same
// connection; handlers must not depend on ordering between them.
type Worker struct {
	router      *Router
	layer       ReceiveLayer
	channels    []string
	concurrency int64
	logger      *zap.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithConcurrency bounds the number of messages dispatched at once.
// The default is 1.
func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = int64(n)
		}
	}
}

// WithChannels restricts the worker to the given channels. By default the
// worker listens on every channel the router serves when Run starts.
func WithChannels(channels ...string) WorkerOption {
	return func(w *Worker) {
		w.channels = append([]string(nil), channels...)
	}
}

// WithWorkerLogger sets the logger. The default discards everything.
func WithWorkerLogger(l *zap.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorker creates a worker that feeds messages from layer to r.
//
// Example:
//
//	layer := memory.New()
//	r := consumers.New()
//	r.Mount(Chat.MustAsRoutes(layer, nil))
//
//	w := consumers.NewWorker(r, layer, consumers.WithConcurrency(8))
//	go w.Run(ctx)
func NewWorker(r *Router, layer ReceiveLayer, opts ...WorkerOption) *Worker {
	w := &Worker{
		router:      r,
		layer:       layer,
		concurrency: 1,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run receives and dispatches messages until ctx is done. Dispatch errors are
// logged and do not stop the worker. Run waits for in-flight dispatches before
// returning; it returns nil when ctx is cancelled and the receive error
// otherwise.
func (w *Worker) Run(ctx context.Context) error {
	channels := w.channels
	if len(channels) == 0 {
		channels = w.router.Channels()
	}
	if len(channels) == 0 {
		return ErrNoChannels
	}

	w.logger.Info("worker started",
		zap.Strings("channels", channels),
		zap.Int64("concurrency", w.concurrency),
	)

	sem := semaphore.NewWeighted(w.concurrency)
	var g errgroup.Group
	var runErr error

	for ctx.Err() == nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		channel, content, err := w.layer.Receive(ctx, channels...)
		if err != nil {
			sem.Release(1)
			if ctx.Err() == nil {
				runErr = err
			}
			break
		}

		msg := NewMessage(w.layer, channel, content)
		g.Go(func() error {
			defer sem.Release(1)
			if err := w.router.Dispatch(ctx, msg); err != nil {
				w.logger.Warn("dispatch failed",
					zap.String("channel", msg.Channel),
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
			}
			return nil
		})
	}

	_ = g.Wait()
	w.logger.Info("worker stopped")
	return runErr
}
