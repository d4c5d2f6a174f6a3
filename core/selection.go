package orchestration

import (
	"github.com/aircasthq/panel-core/core/interruptions"
)

// nextSpeaker picks the participant to grant the floor to.
//
// Selection is recency-weighted: among eligible agents the one with the
// fewest turns inside the recent window wins, ties broken by rotation order.
// The previous speaker is excluded unless it is the only agent left, so two
// natural completions never repeat a speaker back to back.
func (r *activeRoster) nextSpeaker(recentCounts map[string]int, lastSpeaker string) (string, bool) {
	order := r.rotationOrder()
	if len(order) == 0 {
		return "", false
	}

	candidates := order
	if len(order) > 1 {
		candidates = make([]string, 0, len(order)-1)
		for _, id := range order {
			if id != lastSpeaker {
				candidates = append(candidates, id)
			}
		}
	}

	chosen := candidates[0]
	for _, id := range candidates[1:] {
		if recentCounts[id] < recentCounts[chosen] {
			chosen = id
		}
	}

	r.grant(chosen)
	return chosen, true
}

// bestAudienceMatch routes an audience question to the active agent with the
// highest keyword-overlap score. Ties go to the agent earliest in rotation
// order; an all-zero scoreboard still returns the first agent in rotation so
// every question finds an answerer.
func (o *Orchestrator) bestAudienceMatch(question string) (string, float64) {
	order := o.roster.rotationOrder()
	if len(order) == 0 {
		return "", 0
	}

	best := ""
	bestScore := -1.0
	for _, id := range order {
		agent, ok := o.registry.Get(id)
		if !ok {
			continue
		}

		if score := interruptions.Score(question, agent.Keywords); score > bestScore {
			best, bestScore = id, score
		}
	}
	if best == "" {
		return order[0], 0
	}
	return best, bestScore
}

// recentTurnCounts tallies agent turns inside the recency window used for
// participation balancing.
func (o *Orchestrator) recentTurnCounts() map[string]int {
	counts := map[string]int{}
	for _, turn := range o.ledger.Recent(o.policy.MaxHistoryLength) {
		if !turn.IsAudience {
			counts[turn.Speaker]++
		}
	}
	return counts
}
