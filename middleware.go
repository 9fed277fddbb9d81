package consumers

import "context"

// Middleware wraps a handler with additional behavior. It may act before and
// after calling next, transform the invocation, or return without calling
// next at all.
//
//	func audit(next consumers.HandlerFunc) consumers.HandlerFunc {
//	    return func(ctx context.Context, inv *consumers.Invocation) error {
//	        // before
//	        err := next(ctx, inv)
//	        // after
//	        return err
//	    }
//	}
type Middleware func(next HandlerFunc) HandlerFunc

// wrapped marks a handler that already carries its middleware chain.
type wrapped struct {
	fn HandlerFunc
}

func (w *wrapped) Handle(ctx context.Context, inv *Invocation) error {
	return w.fn(ctx, inv)
}

// Wrap applies chain around h with chain[0] outermost:
//
//	chain[0](chain[1](...chain[n-1](h)))
//
// Wrapping a handler returned by Wrap returns it unchanged, so rebuilding
// routes never stacks the same middleware twice. Nil entries are skipped.
func Wrap(h Handler, chain ...Middleware) Handler {
	if w, ok := h.(*wrapped); ok {
		return w
	}
	fn := HandlerFunc(h.Handle)
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i] != nil {
			fn = chain[i](fn)
		}
	}
	return &wrapped{fn: fn}
}

// IsWrapped reports whether h was returned by Wrap.
func IsWrapped(h Handler) bool {
	_, ok := h.(*wrapped)
	return ok
}

// Chain composes middlewares into one, mws[0] outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		fn := next
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				fn = mws[i](fn)
			}
		}
		return fn
	}
}
