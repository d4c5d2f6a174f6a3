package orchestration

import (
	"errors"
	"fmt"
)

var (
	ErrClosed        = errors.New("orchestrator closed")
	ErrNotStarted    = errors.New("orchestrator runtime not started, call Run first")
	ErrEmptyQuestion = errors.New("audience message is empty")
)

// ConfigurationError reports a rejected operation caused by invalid
// configuration (empty roster on start, malformed policy values). It is fatal
// to the requested operation, never to the process.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// UnknownAgentError reports a reference to an agent id that is not present in
// the registry. It is rejected at the control surface boundary and never
// reaches the scheduler.
type UnknownAgentError struct {
	AgentID string
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("unknown agent: %q", e.AgentID)
}

// ProducerError wraps an utterance producer failure (timeout, backend error).
// The scheduler absorbs it: the turn is recorded as skipped and the
// conversation keeps flowing.
type ProducerError struct {
	AgentID string
	Err     error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("utterance producer failed for agent %q: %v", e.AgentID, e.Err)
}

func (e *ProducerError) Unwrap() error { return e.Err }
