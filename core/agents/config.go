package agents

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the on-disk panel configuration document.
type Config struct {
	Agents []Agent `json:"agents"`

	TurnTakingRules TurnTakingRules `json:"turnTakingRules"`

	// MaxHistoryLength bounds the recent-turn context window handed to the
	// utterance producer.
	MaxHistoryLength int `json:"maxHistoryLength,omitempty"`

	// PromptTemplates overrides the built-in system/continuation prompt
	// templates, keyed by template name.
	PromptTemplates map[string]string `json:"promptTemplates,omitempty"`
}

// TurnTakingRules carries the numeric scheduling rules, durations in seconds
// as the configuration files have always spelled them.
type TurnTakingRules struct {
	MaxTurnDuration       float64 `json:"maxTurnDuration,omitempty"`
	MinTimeBetweenTurns   float64 `json:"minTimeBetweenTurns,omitempty"`
	InterruptionThreshold float64 `json:"interruptionThreshold,omitempty"`
}

// LoadConfig parses the configuration document eagerly so malformed files
// fail at startup rather than at first use.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read agent config: %w", err)
	}

	var config Config
	if err := json.Unmarshal(raw, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse agent config: %w", err)
	}

	if len(config.Agents) == 0 {
		return Config{}, fmt.Errorf("agent config %q declares no agents", path)
	}

	return config, nil
}

// FilterAgents keeps only the profiles whose ids are listed, in list order.
// An id missing from the config is an error rather than a silent drop.
func (c Config) FilterAgents(ids []string) ([]Agent, error) {
	byID := make(map[string]Agent, len(c.Agents))
	for _, agent := range c.Agents {
		byID[agent.ID] = agent
	}

	filtered := make([]Agent, 0, len(ids))
	for _, id := range ids {
		agent, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("agent %q is not declared in the config", id)
		}
		filtered = append(filtered, agent)
	}
	return filtered, nil
}
