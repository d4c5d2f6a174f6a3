package orchestration

import (
	"sync"
	"time"
)

// Statistics is a point-in-time aggregate over the turn ledger.
//
// SpeakerOrder lists every speaker ever recorded in first-seen order;
// TurnsByAgent holds a count for each of them, audience turns included under
// [AudienceSpeaker]. The per-speaker counts always sum to TotalTurns.
type Statistics struct {
	TotalTurns    int `json:"totalTurns"`
	AgentTurns    int `json:"agentTurns"`
	AudienceTurns int `json:"audienceTurns"`

	AverageTurnDuration time.Duration `json:"averageTurnDuration"`

	TurnsByAgent map[string]int `json:"turnsByAgent"`
	SpeakerOrder []string       `json:"speakerOrder"`

	CurrentSpeaker string `json:"currentSpeaker,omitempty"`
}

// statistics is updated incrementally on every ledger append; status queries
// never rescan the ledger.
type statistics struct {
	mu sync.RWMutex

	totalTurns    int
	agentTurns    int
	audienceTurns int
	totalDuration time.Duration

	turnsBySpeaker map[string]int
	speakerOrder   []string
}

func newStatistics() *statistics {
	return &statistics{turnsBySpeaker: map[string]int{}}
}

func (s *statistics) record(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalTurns++
	if turn.IsAudience {
		s.audienceTurns++
	} else {
		s.agentTurns++
	}
	s.totalDuration += turn.Duration()

	if _, seen := s.turnsBySpeaker[turn.Speaker]; !seen {
		s.speakerOrder = append(s.speakerOrder, turn.Speaker)
	}
	s.turnsBySpeaker[turn.Speaker]++
}

// trackSpeaker registers an agent id with a zero count so fresh rosters show
// up in statistics before their first turn.
func (s *statistics) trackSpeaker(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.turnsBySpeaker[id]; !seen {
		s.turnsBySpeaker[id] = 0
		s.speakerOrder = append(s.speakerOrder, id)
	}
}

func (s *statistics) Snapshot(currentSpeaker string) Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byAgent := make(map[string]int, len(s.turnsBySpeaker))
	for id, count := range s.turnsBySpeaker {
		byAgent[id] = count
	}
	order := make([]string, len(s.speakerOrder))
	copy(order, s.speakerOrder)

	var average time.Duration
	if s.totalTurns > 0 {
		average = s.totalDuration / time.Duration(s.totalTurns)
	}

	return Statistics{
		TotalTurns:          s.totalTurns,
		AgentTurns:          s.agentTurns,
		AudienceTurns:       s.audienceTurns,
		AverageTurnDuration: average,
		TurnsByAgent:        byAgent,
		SpeakerOrder:        order,
		CurrentSpeaker:      currentSpeaker,
	}
}
