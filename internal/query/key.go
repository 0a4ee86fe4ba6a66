package query

import (
	"strings"
)

// Key identifies a cached fetch. Two queries with equal keys share one
// cache entry.
type Key []string

// String renders the key for logs and metrics labels.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether k starts with every segment of prefix. An empty
// prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, seg := range prefix {
		if k[i] != seg {
			return false
		}
	}
	return true
}

// Equal reports whether both keys hold the same segments in the same order.
func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

// hash is an unambiguous map key. Segments may contain any byte except the
// unit separator used to join them.
func (k Key) hash() string {
	var b strings.Builder
	for i, seg := range k {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(seg)
	}
	return b.String()
}

func (k Key) clone() Key {
	if k == nil {
		return nil
	}
	dup := make(Key, len(k))
	copy(dup, k)
	return dup
}
