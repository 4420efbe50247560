package tickets

import "sync"

// guardRegistry holds process-local one-shot flags for actions that must
// not be double-handled within a process lifetime (role picks, button
// clicks). It is not crash-durable: the durable slots on the ticket row
// (role ids, tx hash) are additionally protected by conditional updates,
// which is what actually survives a restart.
type guardRegistry struct {
	mu   sync.Mutex
	used map[uint]map[string]bool
}

func newGuardRegistry() *guardRegistry {
	return &guardRegistry{
		used: map[uint]map[string]bool{},
	}
}

// checkAndSet returns true if this is the first use of (ticket, action).
func (g *guardRegistry) checkAndSet(ticketID uint, action string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	actions, exists := g.used[ticketID]
	if !exists {
		actions = map[string]bool{}
		g.used[ticketID] = actions
	}
	if actions[action] {
		return false
	}
	actions[action] = true
	return true
}

func (g *guardRegistry) clear(ticketID uint, actions ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if flags, exists := g.used[ticketID]; exists {
		for _, action := range actions {
			delete(flags, action)
		}
	}
}

// remove drops every guard for a ticket; called on terminal transitions.
func (g *guardRegistry) remove(ticketID uint) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.used, ticketID)
}
