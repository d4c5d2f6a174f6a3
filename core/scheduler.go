package orchestration

import (
	"context"
	"log"
	"time"

	"github.com/aircasthq/panel-core/core/events"
	"github.com/aircasthq/panel-core/core/producers"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// scheduler is the turn-taking state machine. It lives entirely on the
// runtime loop goroutine; nothing here is safe to touch from outside it.
type scheduler struct {
	o *Orchestrator

	phase       Phase
	lastSpeaker string
	lastEndedAt time.Time

	// In-flight turn. token guards against late results from abandoned
	// producer calls: only the completion carrying the current token wins.
	token           uint64
	turnID          string
	speaker         string
	startedAt       time.Time
	pendingText     string
	pendingEstimate time.Duration
	cancelTurn      context.CancelFunc

	audienceQueue []audienceCommand

	// timer doubles as the max-duration ceiling while speaking and the
	// cooldown gap between turns.
	timer *time.Timer
}

func newScheduler(o *Orchestrator) *scheduler {
	return &scheduler{o: o, phase: PhaseStopped}
}

func (s *scheduler) handle(command schedulerCommand) {
	switch command := command.(type) {
	case startCommand:
		command.reply <- s.handleStart()
	case stopCommand:
		command.reply <- s.handleStop()
	case rosterCommand:
		command.reply <- s.handleRoster(command.ids)
	case audienceCommand:
		s.handleAudience(command)
	case turnGeneratedCommand:
		s.handleGenerated(command)
	case turnFinishedCommand:
		s.handleFinished(command)
	}
}

func (s *scheduler) handleStart() error {
	if s.phase != PhaseStopped {
		return nil
	}

	if s.o.roster.Len() == 0 {
		return &ConfigurationError{Reason: "cannot start with an empty roster"}
	}

	s.o.emit(events.NewConversationStarted())
	s.setPhase(PhaseIdle)
	s.scheduleNext()
	return nil
}

func (s *scheduler) handleStop() error {
	if s.phase == PhaseStopped {
		return nil
	}

	// A stopped turn is abandoned, not recorded: the partial text never
	// reached the air in full and the run is over.
	s.abandonTurn()
	s.disarm()
	s.setPhase(PhaseStopped)
	s.o.emit(events.NewConversationStopped())
	return nil
}

func (s *scheduler) handleRoster(ids []string) error {
	if len(ids) == 0 && s.phase != PhaseStopped {
		return &ConfigurationError{Reason: "cannot empty the roster while the conversation is running"}
	}

	s.o.roster.Replace(ids)
	for _, id := range ids {
		s.o.stats.trackSpeaker(id)
	}
	s.o.emit(events.NewRosterUpdated(ids))
	return nil
}

func (s *scheduler) handleAudience(command audienceCommand) {
	_, span := tracer.Start(s.o.runtime.baseContext, "route audience message")
	defer span.End()
	span.SetAttributes(
		attribute.Float64("audience_message.queued_time", time.Since(command.queuedAt).Seconds()),
		attribute.Float64("audience_message.score", command.score),
	)

	matched, _ := s.o.bestAudienceMatch(command.text)
	interrupting := s.phase == PhaseSpeaking && command.score > s.o.policy.InterruptionThreshold
	span.SetAttributes(attribute.Bool("audience_message.interrupting", interrupting))

	s.o.emit(events.NewAudienceMessageQueued(command.text, matched, command.score, interrupting))

	if interrupting {
		s.truncateTurn(AudienceSpeaker)
		s.answerAudience(command)
		return
	}

	s.audienceQueue = append(s.audienceQueue, command)
	if s.phase == PhaseIdle {
		s.scheduleNext()
	}
}

func (s *scheduler) handleGenerated(command turnGeneratedCommand) {
	if command.token != s.token || s.phase != PhaseSpeaking {
		return
	}

	s.pendingText = command.text
	s.pendingEstimate = command.estimated
}

func (s *scheduler) handleFinished(command turnFinishedCommand) {
	if command.token != s.token || s.phase != PhaseSpeaking {
		return
	}

	s.disarm()
	if s.cancelTurn != nil {
		s.cancelTurn()
		s.cancelTurn = nil
	}

	if command.err != nil {
		turn := s.o.ledger.Append(Turn{
			ID:        s.turnID,
			Speaker:   s.speaker,
			StartedAt: s.startedAt,
			EndedAt:   time.Now(),
			Skipped:   true,
			Err:       command.err.Error(),
		})
		s.o.stats.record(turn)
		s.lastSpeaker = turn.Speaker
		s.lastEndedAt = turn.EndedAt
		s.o.emit(events.NewTurnSkipped(turn.ID, turn.Speaker, turn.Err))
		s.enterCooldown()
		return
	}

	turn := s.o.ledger.Append(Turn{
		ID:        s.turnID,
		Speaker:   s.speaker,
		Text:      command.text,
		StartedAt: s.startedAt,
		EndedAt:   time.Now(),
		Estimated: command.estimated,
	})
	s.o.stats.record(turn)
	s.lastSpeaker = turn.Speaker
	s.lastEndedAt = turn.EndedAt
	s.o.emit(events.NewTurnCompleted(turn.ID, turn.Speaker, turn.Text, false, turn.Duration()))
	s.enterCooldown()
}

func (s *scheduler) handleTimer() {
	switch s.phase {
	case PhaseSpeaking:
		// Hard ceiling: the turn is over whether or not the producer is.
		s.truncateTurn("")
		s.enterCooldown()
	case PhaseCoolingDown:
		s.setPhase(PhaseIdle)
		s.scheduleNext()
	}
}

// scheduleNext grants the floor from the idle phase. Queued audience
// questions are answered before any regular agent turn.
func (s *scheduler) scheduleNext() {
	if len(s.audienceQueue) > 0 {
		command := s.audienceQueue[0]
		s.audienceQueue = s.audienceQueue[1:]
		s.answerAudience(command)
		return
	}

	speaker, ok := s.o.roster.nextSpeaker(s.o.recentTurnCounts(), s.lastSpeaker)
	if !ok {
		return
	}
	s.beginTurn(speaker, "")
}

// answerAudience records the audience question as a turn and grants the floor
// to the best-matching agent, resolved against the roster as it stands now.
func (s *scheduler) answerAudience(command audienceCommand) {
	matched, _ := s.o.bestAudienceMatch(command.text)
	if matched == "" {
		s.audienceQueue = append([]audienceCommand{command}, s.audienceQueue...)
		return
	}

	turn := s.o.ledger.Append(Turn{
		ID:         uuid.NewString(),
		Speaker:    AudienceSpeaker,
		Text:       command.text,
		StartedAt:  command.queuedAt,
		EndedAt:    time.Now(),
		IsAudience: true,
		Estimated:  producers.EstimateSpokenDuration(command.text),
	})
	s.o.stats.record(turn)
	s.lastEndedAt = turn.EndedAt
	s.o.emit(events.NewTurnCompleted(turn.ID, turn.Speaker, turn.Text, true, turn.Duration()))
	s.o.emit(events.NewAudienceMessageAnswered(command.text, matched))

	s.o.roster.grant(matched)
	s.beginTurn(matched, command.text)
}

func (s *scheduler) beginTurn(speakerID, prompt string) {
	agent, ok := s.o.registry.Get(speakerID)
	if !ok {
		log.Println("Warning: scheduled speaker missing from registry:", speakerID)
		return
	}

	s.token++
	s.turnID = uuid.NewString()
	s.speaker = speakerID
	s.startedAt = time.Now()
	s.pendingText = ""
	s.pendingEstimate = 0

	ctx, cancel := context.WithCancel(s.o.runtime.baseContext)
	s.cancelTurn = cancel

	s.setPhase(PhaseSpeaking)
	s.o.emit(events.NewTurnStarted(speakerID, false))
	s.arm(s.o.policy.MaxTurnDuration)

	go s.o.produceUtterance(ctx, s.token, agent, prompt)
}

// truncateTurn completes the in-progress turn at its current point, recording
// whatever text was generated so far. by names the preempting participant, or
// is empty when the max-duration ceiling fired.
func (s *scheduler) truncateTurn(by string) {
	s.disarm()
	if s.cancelTurn != nil {
		s.cancelTurn()
		s.cancelTurn = nil
	}
	s.token++

	turn := s.o.ledger.Append(Turn{
		ID:          s.turnID,
		Speaker:     s.speaker,
		Text:        s.pendingText,
		StartedAt:   s.startedAt,
		EndedAt:     time.Now(),
		Estimated:   s.pendingEstimate,
		Interrupted: true,
	})
	s.o.stats.record(turn)
	s.lastSpeaker = turn.Speaker
	s.lastEndedAt = turn.EndedAt
	s.o.emit(events.NewTurnInterrupted(turn.ID, turn.Speaker, by))
}

// abandonTurn drops the in-progress turn without a ledger entry.
func (s *scheduler) abandonTurn() {
	if s.cancelTurn != nil {
		s.cancelTurn()
		s.cancelTurn = nil
	}
	s.token++
	s.speaker = ""
	s.turnID = ""
	s.pendingText = ""
	s.pendingEstimate = 0
}

func (s *scheduler) enterCooldown() {
	s.speaker = ""
	s.turnID = ""
	s.pendingText = ""
	s.pendingEstimate = 0
	s.cancelTurn = nil

	s.setPhase(PhaseCoolingDown)
	s.arm(s.o.policy.MinTimeBetweenTurns)
}

func (s *scheduler) shutdown() {
	if s.phase == PhaseStopped {
		return
	}

	s.abandonTurn()
	s.disarm()
	s.setPhase(PhaseStopped)
	s.o.emit(events.NewConversationStopped())
}

// setPhase publishes the shared state snapshot and emits a phase change when
// the phase actually moved. A Speaking-to-Speaking call republishes the new
// speaker without a phase event, which is exactly the interruption case.
func (s *scheduler) setPhase(to Phase) {
	from := s.phase
	s.phase = to

	state := ConversationState{Phase: to, LastTurnEndedAt: s.lastEndedAt}
	if to == PhaseSpeaking {
		state.CurrentSpeaker = s.speaker
		state.TurnStartedAt = s.startedAt
	}
	s.o.state.publish(state)

	if from != to {
		s.o.emit(events.NewPhaseChanged(string(from), string(to)))
	}
}

func (s *scheduler) timerC() <-chan time.Time {
	if s.timer == nil {
		return nil
	}
	return s.timer.C
}

func (s *scheduler) arm(d time.Duration) {
	s.disarm()
	s.timer = time.NewTimer(d)
}

func (s *scheduler) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
