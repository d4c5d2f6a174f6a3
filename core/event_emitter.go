package orchestration

import (
	"github.com/aircasthq/panel-core/core/events"
)

// eventEmitter delivers conversation events to whoever is listening. It is
// called from the scheduler goroutine only, so callbacks must not block on
// control-surface calls back into the orchestrator.
type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

// newCallbackEventEmitter fans a single event stream out to the typed
// callbacks registered on Run.
func newCallbackEventEmitter(opts runOptions) eventEmitter {
	return func(event events.Event) {
		switch e := event.(type) {
		case events.TurnStarted:
			if opts.onTurnStarted != nil {
				opts.onTurnStarted(e)
			}
		case events.TurnCompleted:
			if opts.onTurnCompleted != nil {
				opts.onTurnCompleted(e)
			}
		case events.TurnSkipped:
			if opts.onTurnSkipped != nil {
				opts.onTurnSkipped(e)
			}
		case events.TurnInterrupted:
			if opts.onTurnInterrupted != nil {
				opts.onTurnInterrupted(e)
			}
		case events.PhaseChanged:
			if opts.onPhaseChanged != nil {
				opts.onPhaseChanged(e)
			}
		case events.AudienceMessageQueued:
			if opts.onAudienceMessage != nil {
				opts.onAudienceMessage(e)
			}
		case events.RosterUpdated:
			if opts.onRosterUpdated != nil {
				opts.onRosterUpdated(e)
			}
		}

		if opts.onEvent != nil {
			opts.onEvent(event)
		}
	}
}
