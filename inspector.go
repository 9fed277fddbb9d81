package consumers

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Inspector produces a View over message content for predicate matching.
type Inspector interface {
	Inspect(c Content) View
}

// View provides field access for predicate matching.
type View interface {
	// HasField returns true if the path exists in the content.
	HasField(path string) bool

	// GetString returns the string value at path, or false if not found
	// or not a string.
	GetString(path string) (string, bool)
}

// ContentInspector returns the default Inspector.
//
// Top-level keys are looked up directly in the content map. Any other path is
// evaluated with gjson syntax against the JSON encoding of the content, so a
// filter may reach into nested values:
//
//	consumers.Where("payload.command", consumers.Literal("join"))
func ContentInspector() Inspector {
	return contentInspector{}
}

type contentInspector struct{}

func (contentInspector) Inspect(c Content) View {
	return &contentView{content: c}
}

// contentView encodes the content at most once, on the first nested lookup.
type contentView struct {
	content Content
	raw     []byte
	encoded bool
}

func (v *contentView) HasField(path string) bool {
	if _, ok := v.content[path]; ok {
		return true
	}
	return v.get(path).Exists()
}

func (v *contentView) GetString(path string) (string, bool) {
	if val, ok := v.content[path]; ok {
		s, ok := val.(string)
		return s, ok
	}
	r := v.get(path)
	if !r.Exists() || r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

func (v *contentView) get(path string) gjson.Result {
	if !v.encoded {
		v.encoded = true
		raw, err := json.Marshal(v.content)
		if err == nil {
			v.raw = raw
		}
	}
	if v.raw == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(v.raw, path)
}

// Attributes is a flat View over string attributes.
type Attributes map[string]string

// HasField implements View.
func (a Attributes) HasField(path string) bool {
	_, ok := a[path]
	return ok
}

// GetString implements View.
func (a Attributes) GetString(path string) (string, bool) {
	s, ok := a[path]
	return s, ok
}
