package result

import (
	"sort"
	"sync"
)

// Check is the outcome of validating one snapshot file.
type Check struct {
	Path   string
	Report *Report // nil when Err is set
	Err    error
}

// OK reports whether the file decoded cleanly.
func (c Check) OK() bool {
	return c.Err == nil
}

// Table collects checks from concurrent verifiers.
type Table struct {
	mu     sync.Mutex
	checks []Check
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add inserts a check into the table.
func (t *Table) Add(c Check) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checks = append(t.checks, c)
}

// Checks returns a copy of all checks, failures first, then by path.
func (t *Table) Checks() []Check {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]Check, len(t.checks))
	copy(result, t.checks)
	sort.Slice(result, func(i, j int) bool {
		if result[i].OK() != result[j].OK() {
			return !result[i].OK()
		}
		return result[i].Path < result[j].Path
	})
	return result
}

// Failed returns the number of checks with an error.
func (t *Table) Failed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.checks {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// Len returns the number of checks.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.checks)
}
