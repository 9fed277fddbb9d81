package consumers

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func nop(context.Context, *Invocation) error { return nil }

func TestConsumer_Handle(t *testing.T) {
	t.Run("keeps declaration order", func(t *testing.T) {
		c := Define("test").
			HandleFunc("b", nop).
			HandleFunc("a", nop).
			HandleFunc("c", nop)

		var names []string
		for _, d := range c.Handlers() {
			names = append(names, d.Name)
		}
		if strings.Join(names, ",") != "b,a,c" {
			t.Errorf("expected b,a,c, got %v", names)
		}
	})

	t.Run("options populate descriptor", func(t *testing.T) {
		c := Define("test").HandleFunc("h", nop,
			Where("tag", Literal("x")),
			WithFilter(Filter{"kind": Pattern("a|b")}),
			OnChannel("other"),
			Use(func(next HandlerFunc) HandlerFunc { return next }),
		)

		d := c.Handlers()[0]
		if len(d.Filter) != 2 {
			t.Errorf("expected 2 filter rules, got %d", len(d.Filter))
		}
		if d.ChannelName == nil {
			t.Fatal("expected channel name override")
		}
		if name, _ := d.ChannelName(nil); name != "other" {
			t.Errorf("expected other, got %s", name)
		}
		if len(d.Middleware) != 1 {
			t.Errorf("expected 1 middleware, got %d", len(d.Middleware))
		}
	})

	t.Run("handlers returns copies", func(t *testing.T) {
		c := Define("test").HandleFunc("h", nop, Where("tag", Literal("x")))
		c.Handlers()[0].Filter["other"] = Literal("y")

		if len(c.Handlers()[0].Filter) != 1 {
			t.Error("descriptor was modified through Handlers")
		}
	})

	tests := []struct {
		name   string
		define func() *Consumer
		want   string
	}{
		{
			name:   "empty name",
			define: func() *Consumer { return Define("test").HandleFunc("", nop) },
			want:   "empty name",
		},
		{
			name:   "nil handler",
			define: func() *Consumer { return Define("test").HandleFunc("h", nil) },
			want:   "nil handler",
		},
		{
			name:   "lifecycle name",
			define: func() *Consumer { return Define("test").HandleFunc("connect", nop) },
			want:   "reserved",
		},
		{
			name:   "duplicate name",
			define: func() *Consumer { return Define("test").HandleFunc("h", nop).HandleFunc("h", nop) },
			want:   "declared twice",
		},
	}
	for _, tt := range tests {
		t.Run("reports "+tt.name, func(t *testing.T) {
			_, err := tt.define().AsRoutes(nil, Config{ConfigChannelName: "test"})
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestExtends(t *testing.T) {
	var calls []string
	record := func(name string) HandlerFunc {
		return func(context.Context, *Invocation) error {
			calls = append(calls, name)
			return nil
		}
	}

	base := Define("base",
		WithChannelName("base"),
		WithPath(`/base`),
		WithOnConnect(record("base-connect")),
	).
		HandleFunc("a", record("base-a"), Where("kind", Literal("a"))).
		HandleFunc("b", record("base-b"), Where("kind", Literal("b")))

	child := Define("child", Extends(base), WithChannelName("child")).
		HandleFunc("b", record("child-b"), Where("kind", Literal("b"))).
		HandleFunc("c", record("child-c"), Where("kind", Literal("c")))

	t.Run("child keeps order and overrides in place", func(t *testing.T) {
		var names []string
		for _, d := range child.Handlers() {
			names = append(names, d.Name)
		}
		if strings.Join(names, ",") != "a,b,c" {
			t.Errorf("expected a,b,c, got %v", names)
		}
	})

	t.Run("child routes use overrides", func(t *testing.T) {
		routes, err := child.AsRoutes(nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if routes.InternalChannel() != "child.receive" {
			t.Errorf("expected child.receive, got %s", routes.InternalChannel())
		}

		calls = nil
		for _, kind := range []string{"a", "b", "c"} {
			msg := NewMessage(nil, "child.receive", Content{"kind": kind})
			route, kw, ok := routes.Match(msg)
			if !ok {
				t.Fatalf("expected a route for %s", kind)
			}
			_ = route.Invoke(context.Background(), msg, kw)
		}
		want := "base-a,child-b,child-c"
		if strings.Join(calls, ",") != want {
			t.Errorf("expected %s, got %v", want, calls)
		}

		calls = nil
		msg := NewMessage(nil, ChannelConnect, Content{"path": "/base"})
		route, kw, ok := routes.Match(msg)
		if !ok {
			t.Fatal("expected connect route with inherited path")
		}
		_ = route.Invoke(context.Background(), msg, kw)
		if strings.Join(calls, ",") != "base-connect" {
			t.Errorf("expected inherited connect handler, got %v", calls)
		}
	})

	t.Run("base is unchanged", func(t *testing.T) {
		if len(base.Handlers()) != 2 {
			t.Errorf("expected 2 base handlers, got %d", len(base.Handlers()))
		}
	})

	t.Run("redeclaring in child twice is an error", func(t *testing.T) {
		c := Define("child", Extends(base)).
			HandleFunc("a", nop).
			HandleFunc("a", nop)
		if _, err := c.AsRoutes(nil, nil); !errors.Is(err, ErrConfiguration) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}
