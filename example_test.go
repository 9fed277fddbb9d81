package consumers_test

import (
	"context"
	"fmt"

	"github.com/bjaus/consumers"
	"github.com/bjaus/consumers/generic"
	"github.com/bjaus/consumers/layer/memory"
)

// deliver dispatches every message queued on the internal channel.
func deliver(ctx context.Context, r *consumers.Router, layer *memory.Layer, channel string) {
	for {
		ch, content, ok := layer.ReceiveNow(channel)
		if !ok {
			return
		}
		_ = r.Dispatch(ctx, consumers.NewMessage(layer, ch, content))
	}
}

func Example() {
	ctx := context.Background()
	layer := memory.New()

	chat := consumers.Define("chat",
		consumers.WithChannelName("chat"),
		consumers.WithPath(`/chat/(?P<room>\w+)`),
	).
		HandleFunc("echo", func(ctx context.Context, inv *consumers.Invocation) error {
			return inv.Reply(ctx, map[string]any{
				"room": inv.Kwargs["room"],
				"echo": inv.Message.Content["text"],
			})
		}, consumers.Where("text", consumers.Pattern(`.+`)))

	r := consumers.New()
	r.Mount(chat.MustAsRoutes(layer, nil))

	reply := memory.NewChannel("websocket.send")
	_ = r.Dispatch(ctx, consumers.NewMessage(layer, consumers.ChannelReceive, consumers.Content{
		"path":                    "/chat/lobby",
		"text":                    "hello",
		consumers.ReplyChannelKey: reply,
	}))
	deliver(ctx, r, layer, "chat.receive")

	_, out, _ := layer.ReceiveNow(reply)
	fmt.Println(out["text"])
	// Output: {"echo":"hello","room":"lobby"}
}

func Example_domainError() {
	ctx := context.Background()
	layer := memory.New()

	rooms := consumers.Define("rooms", consumers.WithChannelName("rooms")).
		HandleFunc("join", func(ctx context.Context, inv *consumers.Invocation) error {
			room, _ := inv.Message.Content.String("room")
			return consumers.Failf("room %s is full", room)
		}, consumers.Where("command", consumers.Literal("join")))

	r := consumers.New()
	r.Mount(rooms.MustAsRoutes(layer, nil))

	err := r.Dispatch(ctx, consumers.NewMessage(layer, "rooms.receive", consumers.Content{
		"command":                 "join",
		"room":                    "lobby",
		consumers.ReplyChannelKey: "websocket.send!1",
	}))
	fmt.Println(err)

	_, out, _ := layer.ReceiveNow("websocket.send!1")
	fmt.Println(out["text"])
	// Output:
	// <nil>
	// {"error":"room lobby is full"}
}

func Example_group() {
	ctx := context.Background()
	layer := memory.New()

	room := consumers.Define("room",
		consumers.WithPath(`/rooms/(?P<id>\d+)`),
		consumers.WithMiddleware(generic.Group("room_{id}")),
	)

	r := consumers.New()
	r.Mount(room.MustAsRoutes(layer, nil))

	for _, reply := range []string{"websocket.send!alice", "websocket.send!bob"} {
		_ = r.Dispatch(ctx, consumers.NewMessage(layer, consumers.ChannelConnect, consumers.Content{
			"path":                    "/rooms/7",
			consumers.ReplyChannelKey: reply,
		}))
	}
	fmt.Println(layer.Members("room_7"))

	_ = r.Dispatch(ctx, consumers.NewMessage(layer, consumers.ChannelReceive, consumers.Content{
		"path":                    "/rooms/7",
		"text":                    "hi all",
		consumers.ReplyChannelKey: "websocket.send!alice",
	}))
	for _, reply := range []string{"websocket.send!alice", "websocket.send!bob"} {
		_, out, _ := layer.ReceiveNow(reply)
		fmt.Println(reply, out["text"])
	}
	// Output:
	// [websocket.send!alice websocket.send!bob]
	// websocket.send!alice hi all
	// websocket.send!bob hi all
}
