// Package history keeps a bounded in-memory record of console commands
// executed during this server's lifetime. Nothing is persisted; a
// restart starts empty.
package history

import (
	"fmt"
	"strings"
	"sync"
)

// Ring records the most recent commands, oldest first, dropping from
// the front once the capacity is reached. Safe for concurrent use.
type Ring struct {
	mu      sync.Mutex
	max     int
	seq     int
	entries []entry
}

type entry struct {
	n    int
	line string
}

// New returns a Ring holding at most max entries. A non-positive max
// defaults to 100.
func New(max int) *Ring {
	if max <= 0 {
		max = 100
	}
	return &Ring{max: max}
}

// Add records one executed command line.
func (r *Ring) Add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.entries = append(r.entries, entry{n: r.seq, line: line})
	if len(r.entries) > r.max {
		r.entries = r.entries[len(r.entries)-r.max:]
	}
}

// Len reports how many entries are currently held.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// String renders the history as numbered lines, one command each,
// matching what the console's own history command prints.
func (r *Ring) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return "No command history"
	}
	var b strings.Builder
	for _, e := range r.entries {
		fmt.Fprintf(&b, "%d: %s\n", e.n, e.line)
	}
	return strings.TrimRight(b.String(), "\n")
}
