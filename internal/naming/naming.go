// Package naming derives batch-unique process identifiers from raw record keys.
package naming

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// minNameLength is the shortest normalized key kept as a process name.
const minNameLength = 2

// Normalize replaces every character outside [A-Za-z0-9_] with '_' and trims
// surrounding whitespace. "A-1" becomes "A_1".
func Normalize(rawKey string) string {
	var b strings.Builder
	b.Grow(len(rawKey))
	for _, r := range rawKey {
		if isWordRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.TrimSpace(b.String())
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// Allocator hands out process names that are unique within one batch.
// It is owned by a single run and is not safe for concurrent use.
type Allocator struct {
	used map[string]struct{}
	// newID supplies the fallback name for keys too short to use.
	newID func() string
}

// NewAllocator returns an allocator with an empty used set.
func NewAllocator() *Allocator {
	return &Allocator{used: make(map[string]struct{}), newID: uuid.NewString}
}

// Allocate returns the normalized key, a random identifier when the
// normalized key is shorter than two characters, or the normalized key with
// the first free "_N" suffix. The returned name is recorded as used.
func (a *Allocator) Allocate(rawKey string) string {
	name := Normalize(rawKey)
	if len(name) < minNameLength {
		name = a.newID()
	} else if a.Used(name) {
		base := name
		for n := 1; ; n++ {
			name = base + "_" + strconv.Itoa(n)
			if !a.Used(name) {
				break
			}
		}
	}
	a.used[name] = struct{}{}
	return name
}

// Used reports whether name was already handed out.
func (a *Allocator) Used(name string) bool {
	_, ok := a.used[name]
	return ok
}

// Len is the number of names handed out.
func (a *Allocator) Len() int {
	return len(a.used)
}
