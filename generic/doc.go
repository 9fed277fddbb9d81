// Package generic provides capability middleware for consumers: groups,
// channel sessions, users, permissions and a receive suppressor.
//
// Capabilities are plain consumers.Middleware attached in order, so the
// order they run in is the order they are listed:
//
//	var Room = consumers.Define("room",
//	    consumers.WithChannelName("room"),
//	    consumers.WithPath(`^/rooms/(?P<id>\d+)$`),
//	    consumers.WithMiddleware(
//	        generic.ChannelSession(store),
//	        generic.User(resolveUser),
//	        generic.Permission(generic.Authenticated),
//	        generic.Group("room_{id}"),
//	    ),
//	)
//
// Lifecycle capabilities act only on the connect, disconnect and receive
// events and pass custom handler invocations through untouched.
package generic
