package expr

import (
	"strings"
)

// Mapping is the resolved name->value data used to populate a template.
// Keys may be dotted paths; values are scalars, lists or nested mappings.
type Mapping map[string]any

// Clone returns a shallow copy of m.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge copies every entry of other into m, overwriting existing keys.
func (m Mapping) Merge(other Mapping) {
	for k, v := range other {
		m[k] = v
	}
}

// Overlay merges other into m like Merge. Nested maps are also written
// under their dotted paths, so they replace flat keys already in m.
func (m Mapping) Overlay(other Mapping) {
	for k, v := range other {
		Walk(k, v, func(path string, value any) { m[path] = value })
	}
}

// Walk calls fn for key and, when value is a map, for every nested entry
// under its dotted path. Parents are visited before their children.
func Walk(key string, value any, fn func(path string, value any)) {
	fn(key, value)
	var nested map[string]any
	switch v := value.(type) {
	case Mapping:
		nested = v
	case map[string]any:
		nested = v
	}
	for k, child := range nested {
		Walk(key+"."+k, child, fn)
	}
}

// Lookup resolves a dotted path in m. A key equal to the whole path wins
// over nested traversal.
func (m Mapping) Lookup(path string) (any, bool) {
	return lookupMap(m, path)
}

// Scope is a stack of frames. The root frame holds the request mapping; a
// loop body pushes one frame per element. Scopes are immutable: Push returns
// a new scope sharing the outer frames.
type Scope struct {
	frames []frame
}

type frame struct {
	values  map[string]any
	current any
}

// NewScope returns a scope with root as its only frame.
func NewScope(root Mapping) *Scope {
	return &Scope{frames: []frame{{values: root, current: map[string]any(root)}}}
}

// Push returns a scope with value as the innermost frame. Map values expose
// their keys to lookups; any value is reachable through the "." expression.
func (s *Scope) Push(value any) *Scope {
	f := frame{current: value}
	switch v := value.(type) {
	case Mapping:
		f.values = v
	case map[string]any:
		f.values = v
	}
	frames := make([]frame, len(s.frames), len(s.frames)+1)
	copy(frames, s.frames)
	return &Scope{frames: append(frames, f)}
}

// Depth is the number of frames.
func (s *Scope) Depth() int { return len(s.frames) }

// Current is the value of the innermost frame.
func (s *Scope) Current() any {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1].current
}

// Lookup walks the frames from innermost to outermost and returns the first
// value defined at path. A missing path is not an error.
func (s *Scope) Lookup(path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, false
	}
	if path == "." {
		return s.Current(), true
	}
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].values == nil {
			continue
		}
		if v, ok := lookupMap(s.frames[i].values, path); ok {
			return v, true
		}
	}
	return nil, false
}

func lookupMap(values map[string]any, path string) (any, bool) {
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}

	parts := strings.Split(path, ".")
	// the longest dotted prefix present as a flat key is tried before
	// descending, so {"coverageDetails.vehicleInfo": {...}} resolves too
	for cut := len(parts) - 1; cut >= 1; cut-- {
		head := strings.Join(parts[:cut], ".")
		if v, ok := values[head]; ok {
			if got, ok := descend(v, parts[cut:]); ok {
				return got, true
			}
		}
	}
	return nil, false
}

func descend(current any, parts []string) (any, bool) {
	for _, part := range parts {
		if part == "" {
			return nil, false
		}
		switch typed := current.(type) {
		case Mapping:
			next, ok := lookupMap(typed, part)
			if !ok {
				return nil, false
			}
			current = next
		case map[string]any:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		case map[string]string:
			next, ok := typed[part]
			if !ok {
				return nil, false
			}
			current = next
		default:
			return nil, false
		}
	}
	return current, true
}
