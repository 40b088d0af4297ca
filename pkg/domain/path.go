package domain

import "strings"

// PathSeparator joins path segments in their string form ("parent.child").
const PathSeparator = "."

// Path is the ordered list of keys from the machine root down to a node.
// The root node has an empty path.
type Path []string

// ParsePath splits a dotted path. An empty string yields the root path.
func ParsePath(s string) Path {
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}
	}
	return Path(strings.Split(s, PathSeparator))
}

// String returns the dotted form of the path.
func (p Path) String() string {
	return strings.Join(p, PathSeparator)
}

// Equal reports whether both paths have the same segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is an ancestor-or-self path of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return p[:len(prefix)].Equal(prefix)
}

// Child returns a new path with key appended. The receiver is never aliased.
func (p Path) Child(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, key)
}
