// internal/callengine/router.go
package callengine

import "sync"

// PersonaRouter picks the persona/agent identifier for a live conversation,
// least-used-first. Counts are process-scoped and reset with the run; the
// recorded persona on each CallLog is the durable record.
type PersonaRouter struct {
	mu       sync.Mutex
	personas []string
	used     map[string]int
}

func NewPersonaRouter(personas []string) *PersonaRouter {
	return &PersonaRouter{
		personas: personas,
		used:     make(map[string]int, len(personas)),
	}
}

// Pick returns the least-used persona and counts the use. Ties go to
// declaration order.
func (r *PersonaRouter) Pick() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.personas) == 0 {
		return ""
	}
	best := r.personas[0]
	for _, p := range r.personas[1:] {
		if r.used[p] < r.used[best] {
			best = p
		}
	}
	r.used[best]++
	return best
}
