package events

const (
	KindAudienceMessageQueued   Kind = "audience.message_queued"
	KindAudienceMessageAnswered Kind = "audience.message_answered"
)

// AudienceMessageQueued marks an accepted audience question and its routing
// decision.
type AudienceMessageQueued struct {
	Base
	Text         string  `json:"text"`
	MatchedAgent string  `json:"matchedAgent"`
	Score        float64 `json:"score"`
	Interrupting bool    `json:"interrupting"`
}

func NewAudienceMessageQueued(text, matchedAgent string, score float64, interrupting bool) AudienceMessageQueued {
	return AudienceMessageQueued{
		Base:         NewBase(KindAudienceMessageQueued),
		Text:         text,
		MatchedAgent: matchedAgent,
		Score:        score,
		Interrupting: interrupting,
	}
}

// AudienceMessageAnswered marks the matched agent taking the floor to answer.
type AudienceMessageAnswered struct {
	Base
	Text  string `json:"text"`
	Agent string `json:"agent"`
}

func NewAudienceMessageAnswered(text, agent string) AudienceMessageAnswered {
	return AudienceMessageAnswered{Base: NewBase(KindAudienceMessageAnswered), Text: text, Agent: agent}
}
