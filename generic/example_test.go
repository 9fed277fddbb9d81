package generic_test

import (
	"context"
	"fmt"

	"github.com/bjaus/consumers"
	"github.com/bjaus/consumers/generic"
	"github.com/bjaus/consumers/layer/memory"
)

// Rooms are joined and left with commands; membership is kept in the channel
// session and messages are fanned out through layer groups.
func Example_rooms() {
	ctx := context.Background()
	layer := memory.New()
	store := generic.NewMemoryStore()

	roomOf := func(inv *consumers.Invocation) string {
		name, _ := inv.Message.Content.String("room")
		return name
	}

	rooms := consumers.Define("rooms",
		consumers.WithChannelName("rooms"),
		consumers.WithMiddleware(generic.ChannelSession(store)),
	).
		HandleFunc("join", func(ctx context.Context, inv *consumers.Invocation) error {
			generic.SessionFrom(inv)["room:"+roomOf(inv)] = true
			return inv.Layer().GroupAdd(ctx, roomOf(inv), inv.ReplyChannel.Name())
		}, consumers.Where("command", consumers.Literal("join"))).
		HandleFunc("leave", func(ctx context.Context, inv *consumers.Invocation) error {
			delete(generic.SessionFrom(inv), "room:"+roomOf(inv))
			return inv.Layer().GroupDiscard(ctx, roomOf(inv), inv.ReplyChannel.Name())
		}, consumers.Where("command", consumers.Literal("leave"))).
		HandleFunc("send", func(ctx context.Context, inv *consumers.Invocation) error {
			if generic.SessionFrom(inv)["room:"+roomOf(inv)] != true {
				return consumers.Failf("not in room %s", roomOf(inv))
			}
			text, _ := inv.Message.Content.String("text")
			return inv.Layer().GroupSend(ctx, roomOf(inv), consumers.Content{"text": text})
		}, consumers.Where("command", consumers.Literal("send")))

	r := consumers.New()
	r.Mount(rooms.MustAsRoutes(layer, nil))

	command := func(from string, content consumers.Content) {
		content[consumers.ReplyChannelKey] = from
		_ = r.Dispatch(ctx, consumers.NewMessage(layer, "rooms.receive", content))
	}
	command("websocket.send!alice", consumers.Content{"command": "join", "room": "lobby"})
	command("websocket.send!alice", consumers.Content{"command": "send", "room": "lobby", "text": "hello"})
	command("websocket.send!bob", consumers.Content{"command": "send", "room": "lobby", "text": "hi"})
	command("websocket.send!alice", consumers.Content{"command": "leave", "room": "lobby"})

	for _, reply := range []string{"websocket.send!alice", "websocket.send!bob"} {
		_, out, _ := layer.ReceiveNow(reply)
		fmt.Println(reply, out["text"])
	}
	fmt.Println(layer.Members("lobby"))
	// Output:
	// websocket.send!alice hello
	// websocket.send!bob {"error":"not in room lobby"}
	// []
}
