package generic

import (
	"context"

	"github.com/bjaus/consumers"
)

// UserSessionKey is the session key the user is stored under.
const UserSessionKey = "user"

// UserResolver identifies the user of a connection from its connect message.
// It returns nil for an anonymous connection.
type UserResolver func(ctx context.Context, inv *consumers.Invocation) (any, error)

type userKey struct{}

// User resolves the user when a connection opens and keeps it in the channel
// session, so every later message of the connection sees the same user
// without resolving it again. It must run inside ChannelSession.
//
// Handlers reach the user with UserFrom.
func User(resolve UserResolver) consumers.Middleware {
	return func(next consumers.HandlerFunc) consumers.HandlerFunc {
		return func(ctx context.Context, inv *consumers.Invocation) error {
			s := SessionFrom(inv)

			if inv.Event() == consumers.EventConnect {
				u, err := resolve(ctx, inv)
				if err != nil {
					return err
				}
				if s != nil {
					if u == nil {
						delete(s, UserSessionKey)
					} else {
						s[UserSessionKey] = u
					}
				}
				inv.Set(userKey{}, u)
				return next(ctx, inv)
			}

			if s != nil {
				inv.Set(userKey{}, s[UserSessionKey])
			}
			return next(ctx, inv)
		}
	}
}

// UserFrom returns the user set by User, or nil for anonymous connections.
func UserFrom(inv *consumers.Invocation) any {
	return inv.Value(userKey{})
}
