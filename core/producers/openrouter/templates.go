package openrouter

import (
	"strings"

	"github.com/aircasthq/panel-core/core/agents"
)

const (
	templateSystem   = "system"
	templateContinue = "continue"
	templateAnswer   = "answer"
)

// defaultTemplates are the stock prompt templates; any of them can be
// overridden per deployment through the config document's promptTemplates.
var defaultTemplates = map[string]string{
	templateSystem: "You are {name}, {role} on a live audio panel show. " +
		"Background: {background} " +
		"Personality: {personality} " +
		"Areas of expertise: {expertise}. " +
		"Speaking style: {speakingStyle}. " +
		"Stay in character, speak in first person, and keep every response " +
		"short and conversational so it sounds natural when spoken aloud. " +
		"Never prefix your response with your own name.",
	templateContinue: "Continue the panel discussion naturally, reacting to " +
		"what was just said. Respond as {name}.",
	templateAnswer: "An audience member asked: \"{question}\". " +
		"Answer them directly as {name}.",
}

func (c *Client) template(name string) string {
	if override, ok := c.templates[name]; ok && override != "" {
		return override
	}
	return defaultTemplates[name]
}

func (c *Client) systemPrompt(agent agents.Agent) string {
	return renderTemplate(c.template(templateSystem), agent, "")
}

func (c *Client) turnPrompt(agent agents.Agent, question string) string {
	if question != "" {
		return renderTemplate(c.template(templateAnswer), agent, question)
	}
	return renderTemplate(c.template(templateContinue), agent, "")
}

func renderTemplate(template string, agent agents.Agent, question string) string {
	return strings.NewReplacer(
		"{name}", agent.Name,
		"{role}", agent.Role,
		"{background}", agent.Background,
		"{personality}", agent.Personality,
		"{expertise}", strings.Join(agent.Expertise, ", "),
		"{speakingStyle}", agent.SpeakingStyle,
		"{question}", question,
	).Replace(template)
}
