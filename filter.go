package consumers

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Matcher decides whether a single attribute value satisfies a rule.
type Matcher interface {
	// Match reports whether value satisfies the rule, returning any named
	// captures it produced.
	Match(value string) (Kwargs, bool)

	// String returns a canonical form used to detect duplicate filters.
	String() string
}

// FilterValue is a declared filter rule. It is resolved into a Matcher once
// per AsRoutes call, never per message.
type FilterValue interface {
	Resolve(cfg Config) (Matcher, error)
}

// Filter maps attribute paths to declared rules. Every path must be present
// in a message for the filter to match. An empty filter matches any message
// on the channel.
type Filter map[string]FilterValue

// Literal returns a rule that matches value exactly.
func Literal(value string) FilterValue {
	return literal{value: value}
}

type literal struct {
	value string
}

func (l literal) Resolve(Config) (Matcher, error) { return l, nil }

func (l literal) Match(value string) (Kwargs, bool) {
	return nil, value == l.value
}

func (l literal) String() string { return "=" + strconv.Quote(l.value) }

// Pattern returns a rule that matches when the regular expression matches the
// whole value. Named groups such as (?P<slug>[^/]+) become kwargs of the
// invocation. Invalid expressions are reported by AsRoutes.
func Pattern(expr string) FilterValue {
	return pattern{expr: expr}
}

type pattern struct {
	expr string
}

func (p pattern) Resolve(Config) (Matcher, error) {
	return compilePattern(p.expr)
}

// Deferred returns a rule whose pattern is computed from the registration
// configuration when routes are built. This lets a filter depend on values
// supplied at mount time:
//
//	consumers.Where("path", consumers.Deferred(func(cfg consumers.Config) (string, error) {
//	    model, _ := cfg.String("model")
//	    return "^/" + model + "/(?P<pk>\\d+)$", nil
//	}))
func Deferred(fn func(cfg Config) (string, error)) FilterValue {
	return deferred{fn: fn}
}

type deferred struct {
	fn func(cfg Config) (string, error)
}

func (d deferred) Resolve(cfg Config) (Matcher, error) {
	if d.fn == nil {
		return nil, errors.New("nil deferred filter")
	}
	expr, err := d.fn(cfg)
	if err != nil {
		return nil, err
	}
	return compilePattern(expr)
}

type compiledPattern struct {
	expr  string
	re    *regexp.Regexp
	names []string
}

func compilePattern(expr string) (*compiledPattern, error) {
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
	}
	return &compiledPattern{expr: expr, re: re, names: re.SubexpNames()}, nil
}

func (p *compiledPattern) Match(value string) (Kwargs, bool) {
	m := p.re.FindStringSubmatch(value)
	if m == nil {
		return nil, false
	}
	var kw Kwargs
	for i, name := range p.names {
		if name == "" || i >= len(m) {
			continue
		}
		if kw == nil {
			kw = make(Kwargs)
		}
		kw[name] = m[i]
	}
	return kw, true
}

func (p *compiledPattern) String() string { return "~" + strconv.Quote(p.expr) }

// Predicate is a compiled Filter. It is immutable and safe for concurrent use.
type Predicate struct {
	fields []field
}

type field struct {
	path    string
	matcher Matcher
}

// Compile resolves every rule of f against cfg. Paths are evaluated in sorted
// order so the same filter always compiles to the same predicate.
func Compile(f Filter, cfg Config) (Predicate, error) {
	paths := make([]string, 0, len(f))
	for path := range f {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var errs []error
	fields := make([]field, 0, len(paths))
	for _, path := range paths {
		if f[path] == nil {
			errs = append(errs, fmt.Errorf("filter %q: nil rule", path))
			continue
		}
		m, err := f[path].Resolve(cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("filter %q: %w", path, err))
			continue
		}
		fields = append(fields, field{path: path, matcher: m})
	}
	if len(errs) > 0 {
		return Predicate{}, errors.Join(errs...)
	}
	return Predicate{fields: fields}, nil
}

// Match reports whether every field is present in v and satisfies its rule.
// Named captures of all fields are merged into the returned kwargs.
func (p Predicate) Match(v View) (Kwargs, bool) {
	kwargs := Kwargs{}
	for _, f := range p.fields {
		s, ok := v.GetString(f.path)
		if !ok {
			return nil, false
		}
		kw, ok := f.matcher.Match(s)
		if !ok {
			return nil, false
		}
		for k, val := range kw {
			kwargs[k] = val
		}
	}
	return kwargs, true
}

// Matches reports whether the flat attributes satisfy the predicate.
func (p Predicate) Matches(attrs map[string]string) bool {
	_, ok := p.Match(Attributes(attrs))
	return ok
}

// IsWildcard reports whether the predicate has no fields.
func (p Predicate) IsWildcard() bool { return len(p.fields) == 0 }

// String returns the canonical form of the predicate. Paths and values are
// quoted, so two predicates have the same form only if they have the same
// fields and rules.
func (p Predicate) String() string {
	parts := make([]string, len(p.fields))
	for i, f := range p.fields {
		parts[i] = strconv.Quote(f.path) + f.matcher.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
