// Package schema validates message content against a JSON Schema.
//
// Invalid content is rejected with a DomainError, so the client receives an
// {"error": ...} reply and the handler never runs.
//
//	sch := schema.MustCompile("urn:chat:message", `{
//	    "type": "object",
//	    "required": ["command"],
//	    "properties": {"command": {"enum": ["join", "leave", "send"]}}
//	}`)
//	c.HandleFunc("send", send, consumers.Use(schema.ValidateText(sch)))
package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	jschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/bjaus/consumers"
)

// Schema is a compiled JSON Schema.
type Schema = jschema.Schema

// Compile compiles schemaJSON. The uri identifies the schema to the compiler
// and does not need to be resolvable.
func Compile(uri, schemaJSON string) (*Schema, error) {
	doc, err := jschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", uri, err)
	}
	c := jschema.NewCompiler()
	if err := c.AddResource(uri, doc); err != nil {
		return nil, fmt.Errorf("schema: add resource %s: %w", uri, err)
	}
	sch, err := c.Compile(uri)
	if err != nil {
		return nil, fmt.Errorf("schema: compile %s: %w", uri, err)
	}
	return sch, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(uri, schemaJSON string) *Schema {
	sch, err := Compile(uri, schemaJSON)
	if err != nil {
		panic(err)
	}
	return sch
}

// Validate creates middleware that validates the whole message content.
// The reply channel and propagated kwargs are removed before validation.
func Validate(sch *Schema) consumers.Middleware {
	return func(next consumers.HandlerFunc) consumers.HandlerFunc {
		return func(ctx context.Context, inv *consumers.Invocation) error {
			content := inv.Message.Content.Clone()
			delete(content, consumers.ReplyChannelKey)
			delete(content, consumers.KwargsKey)

			data, err := json.Marshal(content)
			if err != nil {
				return fmt.Errorf("schema: encode content: %w", err)
			}
			if err := validate(sch, data); err != nil {
				return err
			}
			return next(ctx, inv)
		}
	}
}

// ValidateText creates middleware that validates the JSON document carried
// in the "text" field of websocket frames.
func ValidateText(sch *Schema) consumers.Middleware {
	return func(next consumers.HandlerFunc) consumers.HandlerFunc {
		return func(ctx context.Context, inv *consumers.Invocation) error {
			text, ok := inv.Message.Content.String("text")
			if !ok {
				return consumers.Fail("invalid message content: missing text")
			}
			if err := validate(sch, []byte(text)); err != nil {
				return err
			}
			return next(ctx, inv)
		}
	}
}

func validate(sch *Schema, data []byte) error {
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return consumers.Failf("invalid message content: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return consumers.Failf("invalid message content: %w", err)
	}
	return nil
}
