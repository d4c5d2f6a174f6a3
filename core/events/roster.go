package events

const KindRosterUpdated Kind = "roster.updated"

// RosterUpdated marks the active agent set being replaced.
type RosterUpdated struct {
	Base
	AgentIDs []string `json:"agentIds"`
}

func NewRosterUpdated(agentIDs []string) RosterUpdated {
	ids := make([]string, len(agentIDs))
	copy(ids, agentIDs)
	return RosterUpdated{Base: NewBase(KindRosterUpdated), AgentIDs: ids}
}
