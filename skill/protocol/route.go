package protocol

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Action handles a matched request. The returned value, when non-nil, is
// JSON-encoded into the response body.
type Action func(ctx context.Context, req *ReceiveRequest, params map[string]string) (any, error)

// Template is a method plus a path pattern with named placeholders, e.g.
// "POST /activities/{activityId}".
type Template struct {
	Method string
	Path   string
	Action Action
}

func (t Template) String() string {
	return t.Method + " " + t.Path
}

// Match is the result of matching a concrete request against a template.
type Match struct {
	Template *Template
	Params   map[string]string
}

// Param returns the value captured for the named placeholder.
func (m *Match) Param(name string) string {
	if m == nil {
		return ""
	}
	return m.Params[name]
}

type segment struct {
	literal     string
	placeholder string
}

type compiledRoute struct {
	template Template
	segments []segment
}

// Table is an immutable, ordered set of route templates.
type Table struct {
	routes []compiledRoute
}

// NewTable validates and compiles templates. Registration order is matching order.
func NewTable(templates ...Template) (*Table, error) {
	t := &Table{routes: make([]compiledRoute, 0, len(templates))}
	for i, tmpl := range templates {
		segs, err := compile(tmpl)
		if err != nil {
			return nil, fmt.Errorf("%w: #%d %q: %v", ErrInvalidTemplate, i, tmpl.String(), err)
		}
		t.routes = append(t.routes, compiledRoute{template: tmpl, segments: segs})
	}
	return t, nil
}

// MustNewTable is like NewTable but panics on an invalid template.
func MustNewTable(templates ...Template) *Table {
	t, err := NewTable(templates...)
	if err != nil {
		panic(err)
	}
	return t
}

func compile(tmpl Template) ([]segment, error) {
	if tmpl.Method == "" {
		return nil, fmt.Errorf("empty method")
	}
	if !strings.HasPrefix(tmpl.Path, "/") {
		return nil, fmt.Errorf("path must start with '/'")
	}

	parts := splitPath(tmpl.Path)
	segs := make([]segment, len(parts))
	seen := make(map[string]struct{})
	for i, p := range parts {
		if !strings.ContainsAny(p, "{}") {
			segs[i] = segment{literal: p}
			continue
		}
		if len(p) < 3 || p[0] != '{' || p[len(p)-1] != '}' {
			return nil, fmt.Errorf("malformed placeholder %q", p)
		}
		name := p[1 : len(p)-1]
		if strings.ContainsAny(name, "{}") {
			return nil, fmt.Errorf("malformed placeholder %q", p)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate placeholder %q", name)
		}
		seen[name] = struct{}{}
		segs[i] = segment{placeholder: name}
	}
	return segs, nil
}

// splitPath drops the leading '/' and splits on '/'. "/" yields one empty segment.
func splitPath(path string) []string {
	return strings.Split(path[1:], "/")
}

// Match returns the first template, in registration order, matching method and path.
// path is in escaped form, so an encoded '/' stays inside one segment; placeholder
// values are returned unescaped. The boolean is false when nothing matches.
func (t *Table) Match(method, path string) (*Match, bool) {
	if t == nil || !strings.HasPrefix(path, "/") {
		return nil, false
	}
	parts := splitPath(path)

	for i := range t.routes {
		r := &t.routes[i]
		if r.template.Method != method || len(r.segments) != len(parts) {
			continue
		}
		if params, ok := r.match(parts); ok {
			return &Match{Template: &r.template, Params: params}, true
		}
	}
	return nil, false
}

func (r *compiledRoute) match(parts []string) (map[string]string, bool) {
	var params map[string]string
	for i, seg := range r.segments {
		if seg.placeholder == "" {
			if seg.literal != parts[i] {
				return nil, false
			}
			continue
		}
		v, err := url.PathUnescape(parts[i])
		if err != nil || v == "" {
			return nil, false
		}
		if params == nil {
			params = make(map[string]string, len(r.segments))
		}
		params[seg.placeholder] = v
	}
	if params == nil {
		params = map[string]string{}
	}
	return params, true
}

// Templates returns a copy of the registered templates in order.
func (t *Table) Templates() []Template {
	out := make([]Template, len(t.routes))
	for i, r := range t.routes {
		out[i] = r.template
	}
	return out
}
