package orchestration

import (
	"slices"
	"sync"
)

// activeRoster is the ordered set of agent ids currently eligible to speak.
//
// The scheduler loop is the only writer; the mutex exists so control-surface
// queries can read a consistent copy while a turn decision is in flight.
type activeRoster struct {
	mu  sync.RWMutex
	ids []string
	// cursor points at the next rotation candidate.
	cursor int
}

func (r *activeRoster) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.ids))
	copy(ids, r.ids)
	return ids
}

func (r *activeRoster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

func (r *activeRoster) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.ids, id)
}

// Replace swaps the roster atomically. The rotation pointer re-anchors to
// the id it was about to grant if that id survives, otherwise to the first
// surviving id that came after it, so no agent is skipped or granted twice
// across the change.
func (r *activeRoster) Replace(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]string, len(ids))
	copy(next, ids)

	cursor := 0
	for offset := range r.ids {
		candidate := r.ids[(r.cursor+offset)%len(r.ids)]
		if i := slices.Index(next, candidate); i >= 0 {
			cursor = i
			break
		}
	}

	r.ids = next
	r.cursor = cursor
	if len(r.ids) == 0 {
		r.cursor = 0
	}
}

// rotationOrder returns the roster ids starting at the rotation pointer.
func (r *activeRoster) rotationOrder() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order := make([]string, 0, len(r.ids))
	for offset := range r.ids {
		order = append(order, r.ids[(r.cursor+offset)%len(r.ids)])
	}
	return order
}

// grant advances the rotation pointer past the chosen id.
func (r *activeRoster) grant(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := slices.Index(r.ids, id); i >= 0 {
		r.cursor = (i + 1) % len(r.ids)
	}
}
