// Package events defines the typed notification contract the orchestrator
// publishes on every state transition and ledger append.
//
// Event kinds are grouped by namespaces:
//
//   - conversation.*
//   - turn_state.*
//   - audience.*
//   - roster.*
//
// conversation events
//
//   - ConversationStarted (conversation.started): the scheduler left the
//     stopped phase and the panel is on air.
//   - ConversationStopped (conversation.stopped): the scheduler stopped;
//     any in-flight turn was cancelled.
//   - PhaseChanged (conversation.phase_changed): the scheduler moved between
//     idle, speaking, cooling-down and stopped phases.
//
// turn_state events
//
//   - TurnStarted (turn_state.started): a participant was granted the floor.
//   - TurnCompleted (turn_state.completed): a turn finished and was appended
//     to the ledger.
//   - TurnSkipped (turn_state.skipped): utterance generation failed; the
//     ledger records a skipped entry and the floor moves on.
//   - TurnInterrupted (turn_state.interrupted): an in-progress turn was
//     truncated, either by a preempting participant or by the max-duration
//     ceiling.
//
// audience events
//
//   - AudienceMessageQueued (audience.message_queued): an audience question
//     was accepted and routed to its best-matching agent.
//   - AudienceMessageAnswered (audience.message_answered): the matched agent
//     was granted the floor to answer.
//
// roster events
//
//   - RosterUpdated (roster.updated): the set of active agents was replaced.
package events
