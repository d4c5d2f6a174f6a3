package events

const (
	KindConversationStarted Kind = "conversation.started"
	KindConversationStopped Kind = "conversation.stopped"
	KindPhaseChanged        Kind = "conversation.phase_changed"
)

// ConversationStarted marks the panel going on air.
type ConversationStarted struct{ Base }

func NewConversationStarted() ConversationStarted {
	return ConversationStarted{Base: NewBase(KindConversationStarted)}
}

// ConversationStopped marks the panel going off air.
type ConversationStopped struct{ Base }

func NewConversationStopped() ConversationStopped {
	return ConversationStopped{Base: NewBase(KindConversationStopped)}
}

// PhaseChanged marks a scheduler phase transition.
type PhaseChanged struct {
	Base
	From string `json:"from"`
	To   string `json:"to"`
}

func NewPhaseChanged(from, to string) PhaseChanged {
	return PhaseChanged{Base: NewBase(KindPhaseChanged), From: from, To: to}
}
