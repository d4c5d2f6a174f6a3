// Package agents holds the immutable panelist profiles and the registry the
// orchestrator resolves speaker ids against.
package agents

import (
	"fmt"
)

// Agent is one panelist profile. Profiles are loaded once at startup and
// never mutated during a run.
type Agent struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Role          string   `json:"role,omitempty"`
	Background    string   `json:"background,omitempty"`
	Personality   string   `json:"personality,omitempty"`
	Expertise     []string `json:"expertise,omitempty"`
	SpeakingStyle string   `json:"speakingStyle,omitempty"`
	// Keywords feed audience-question routing: the agent with the highest
	// keyword overlap against a question answers it.
	Keywords []string `json:"keywords,omitempty"`
	// Voice is the synthesis voice id used when the panel is broadcast.
	Voice string `json:"voice,omitempty"`
}

// Registry is the static agent lookup. It is safe for concurrent reads.
type Registry struct {
	agents []Agent
	byID   map[string]Agent
}

func NewRegistry(profiles []Agent) (*Registry, error) {
	registry := &Registry{
		agents: make([]Agent, len(profiles)),
		byID:   make(map[string]Agent, len(profiles)),
	}
	copy(registry.agents, profiles)

	for _, agent := range registry.agents {
		if agent.ID == "" {
			return nil, fmt.Errorf("agent %q has no id", agent.Name)
		}
		if agent.Name == "" {
			return nil, fmt.Errorf("agent %q has no name", agent.ID)
		}
		if _, dup := registry.byID[agent.ID]; dup {
			return nil, fmt.Errorf("duplicate agent id %q", agent.ID)
		}
		registry.byID[agent.ID] = agent
	}

	return registry, nil
}

func (r *Registry) Get(id string) (Agent, bool) {
	agent, ok := r.byID[id]
	return agent, ok
}

// All returns the profiles in configuration order.
func (r *Registry) All() []Agent {
	agents := make([]Agent, len(r.agents))
	copy(agents, r.agents)
	return agents
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.agents))
	for _, agent := range r.agents {
		ids = append(ids, agent.ID)
	}
	return ids
}

func (r *Registry) Len() int {
	return len(r.agents)
}
