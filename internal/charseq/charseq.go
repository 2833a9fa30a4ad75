package charseq

import "strings"

// Attr is one element attribute, kept in document order.
type Attr struct {
	Key string
	Val string
}

// TagFrame is one ancestor wrapper captured when a character was visited.
type TagFrame struct {
	Name  string // Lower-cased tag name
	Attrs []Attr // Attributes in source order (nil when none)
}

// Attributes returns the frame's attributes as a map. Later duplicates win.
func (f TagFrame) Attributes() map[string]string {
	m := make(map[string]string, len(f.Attrs))
	for _, a := range f.Attrs {
		m[a.Key] = a.Val
	}
	return m
}

// Attr returns the value of the named attribute.
func (f TagFrame) Attr(key string) (string, bool) {
	for _, a := range f.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// TagPath is the ancestry of one character, root first.
type TagPath []TagFrame

// Names returns the tag names along the path, e.g. ["p", "em", "a"].
func (p TagPath) Names() []string {
	names := make([]string, len(p))
	for i, f := range p {
		names[i] = f.Name
	}
	return names
}

// Has reports whether any frame in the path has the given name.
func (p TagPath) Has(name string) bool {
	for _, f := range p {
		if f.Name == name {
			return true
		}
	}
	return false
}

// CharUnit is one source character plus the ancestry active at it.
type CharUnit struct {
	Char rune
	Path TagPath
}

// Sequence is the ordered flattening of a content tree into CharUnits.
// It is built once per content assignment and never mutated afterwards.
type Sequence []CharUnit

// Len returns the number of characters in the sequence.
func (s Sequence) Len() int {
	return len(s)
}

// Text returns the plain text of the first n units.
func (s Sequence) Text(n int) string {
	if n > len(s) {
		n = len(s)
	}
	var buf strings.Builder
	for _, u := range s[:max(n, 0)] {
		buf.WriteRune(u.Char)
	}
	return buf.String()
}

// MaxDepth returns the deepest TagPath in the sequence.
func (s Sequence) MaxDepth() int {
	depth := 0
	for _, u := range s {
		depth = max(depth, len(u.Path))
	}
	return depth
}
