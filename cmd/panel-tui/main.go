// panel-tui is a terminal operator console for a running paneld instance. It
// mirrors the live event stream over the websocket, polls status, and turns
// slash commands into control calls:
//
//	/start             open the conversation floor
//	/stop              stop the conversation
//	/agents a,b,c      replace the active roster
//	/test id prompt    dry-run one agent without touching the ledger
//	/quit              exit
//
// Anything that is not a slash command is submitted as an audience message.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/muesli/reflow/wordwrap"
)

const (
	defaultAddress  = "http://127.0.0.1:8080"
	statusInterval  = 2 * time.Second
	requestTimeout  = 30 * time.Second
	eventBacklogMax = 500
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	speakerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	audienceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
	helpStyle     = lipgloss.NewStyle().Faint(true).Italic(true)
)

func main() {
	address := flag.String("address", defaultAddress, "base URL of the paneld dashboard")
	altScreen := flag.Bool("alt-screen", true, "run in the terminal's alternate screen")
	flag.Parse()

	client, err := newAPIClient(*address)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid address:", err)
		os.Exit(1)
	}

	opts := []tea.ProgramOption{}
	if *altScreen {
		opts = append(opts, tea.WithAltScreen())
	}

	program := tea.NewProgram(newModel(client), opts...)
	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "panel-tui failed:", err)
		os.Exit(1)
	}
}

// API client

type apiClient struct {
	baseURL *url.URL
	http    *http.Client
}

func newAPIClient(address string) (*apiClient, error) {
	baseURL, err := url.Parse(address)
	if err != nil {
		return nil, err
	}
	if baseURL.Scheme == "" {
		return nil, fmt.Errorf("address %q has no scheme", address)
	}
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: requestTimeout}}, nil
}

type conversationStatus struct {
	Running bool `json:"running"`
	State   struct {
		Phase          string `json:"phase"`
		CurrentSpeaker string `json:"currentSpeaker"`
	} `json:"state"`
	Statistics struct {
		TotalTurns    int            `json:"totalTurns"`
		AudienceTurns int            `json:"audienceTurns"`
		TurnsByAgent  map[string]int `json:"turnsByAgent"`
	} `json:"statistics"`
	ActiveAgents []string `json:"activeAgents"`
}

func (c *apiClient) call(method, path string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL.JoinPath(path).String(), payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}

	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}

func (c *apiClient) status() (conversationStatus, error) {
	var status conversationStatus
	err := c.call(http.MethodGet, "/api/status", nil, &status)
	return status, err
}

func (c *apiClient) wsURL() string {
	wsURL := *c.baseURL.JoinPath("/ws")
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	return wsURL.String()
}

// Event stream

type streamEvent struct {
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type wsEventMsg struct{ event streamEvent }
type wsClosedMsg struct{ err error }
type statusMsg struct{ status conversationStatus }
type statusErrMsg struct{ err error }
type actionDoneMsg struct{ note string }
type actionErrMsg struct{ err error }
type tickMsg struct{}

func connectEventStream(wsURL string, events chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			return wsClosedMsg{err: err}
		}

		go func() {
			defer conn.Close()
			defer close(events)
			for {
				var event streamEvent
				if err := conn.ReadJSON(&event); err != nil {
					return
				}
				events <- event
			}
		}()

		return waitForEvent(events)()
	}
}

func waitForEvent(events chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return wsClosedMsg{}
		}
		return wsEventMsg{event: event}
	}
}

func fetchStatus(client *apiClient) tea.Cmd {
	return func() tea.Msg {
		status, err := client.status()
		if err != nil {
			return statusErrMsg{err: err}
		}
		return statusMsg{status: status}
	}
}

func scheduleTick() tea.Cmd {
	return tea.Tick(statusInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

// Model

type model struct {
	client *apiClient

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	status      conversationStatus
	events      chan streamEvent
	log         []string
	busy        bool
	streamState string
	lastError   string

	width  int
	height int
	ready  bool
}

func newModel(client *apiClient) model {
	input := textinput.New()
	input.Placeholder = "audience message or /command"
	input.Focus()
	input.CharLimit = 500

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return model{
		client:      client,
		input:       input,
		spinner:     spin,
		events:      make(chan streamEvent, 32),
		streamState: "connecting",
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		fetchStatus(m.client),
		connectEventStream(m.client.wsURL(), m.events),
		scheduleTick(),
		m.spinner.Tick,
		textinput.Blink,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logHeight := max(3, m.height-6)
		if !m.ready {
			m.viewport = viewport.New(m.width, logHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = logHeight
		}
		m.refreshLog()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, nil
			}
			return m.dispatch(line)
		}

	case statusMsg:
		m.status = msg.status
		m.lastError = ""
		return m, nil

	case statusErrMsg:
		m.lastError = msg.err.Error()
		return m, nil

	case tickMsg:
		return m, tea.Batch(fetchStatus(m.client), scheduleTick())

	case wsEventMsg:
		m.streamState = "live"
		m.appendLog(renderEvent(msg.event))
		return m, waitForEvent(m.events)

	case wsClosedMsg:
		m.streamState = "disconnected"
		if msg.err != nil {
			m.appendLog(errorStyle.Render("event stream: " + msg.err.Error()))
		} else {
			m.appendLog(faintStyle.Render("event stream closed"))
		}
		return m, nil

	case actionDoneMsg:
		m.busy = false
		m.lastError = ""
		if msg.note != "" {
			m.appendLog(faintStyle.Render(msg.note))
		}
		return m, fetchStatus(m.client)

	case actionErrMsg:
		m.busy = false
		m.lastError = msg.err.Error()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) dispatch(line string) (tea.Model, tea.Cmd) {
	if !strings.HasPrefix(line, "/") {
		return m.runAction(func(c *apiClient) (string, error) {
			err := c.call(http.MethodPost, "/api/audience", map[string]string{"text": line}, nil)
			return "audience message submitted", err
		})
	}

	command, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)

	switch command {
	case "quit", "q":
		return m, tea.Quit

	case "start":
		return m.runAction(func(c *apiClient) (string, error) {
			return "conversation started", c.call(http.MethodPost, "/api/start", nil, nil)
		})

	case "stop":
		return m.runAction(func(c *apiClient) (string, error) {
			return "conversation stopped", c.call(http.MethodPost, "/api/stop", nil, nil)
		})

	case "agents":
		if rest == "" {
			m.lastError = "usage: /agents id1,id2,..."
			return m, nil
		}
		ids := strings.Split(rest, ",")
		for i := range ids {
			ids[i] = strings.TrimSpace(ids[i])
		}
		return m.runAction(func(c *apiClient) (string, error) {
			err := c.call(http.MethodPost, "/api/agents/active", map[string]any{"ids": ids}, nil)
			return "roster updated: " + strings.Join(ids, ", "), err
		})

	case "test":
		agentID, prompt, _ := strings.Cut(rest, " ")
		prompt = strings.TrimSpace(prompt)
		if agentID == "" || prompt == "" {
			m.lastError = "usage: /test agent-id prompt..."
			return m, nil
		}
		return m.runAction(func(c *apiClient) (string, error) {
			var resp struct {
				Text string `json:"text"`
			}
			err := c.call(http.MethodPost, "/api/agents/"+agentID+"/test", map[string]string{"prompt": prompt}, &resp)
			return agentID + " (test): " + resp.Text, err
		})

	default:
		m.lastError = "unknown command: /" + command
		return m, nil
	}
}

func (m model) runAction(action func(*apiClient) (string, error)) (tea.Model, tea.Cmd) {
	m.busy = true
	client := m.client
	return m, func() tea.Msg {
		note, err := action(client)
		if err != nil {
			return actionErrMsg{err: err}
		}
		return actionDoneMsg{note: note}
	}
}

func (m *model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > eventBacklogMax {
		m.log = m.log[len(m.log)-eventBacklogMax:]
	}
	m.refreshLog()
}

func (m *model) refreshLog() {
	if !m.ready {
		return
	}
	wrapped := make([]string, len(m.log))
	for i, line := range m.log {
		wrapped[i] = wordwrap.String(line, m.viewport.Width)
	}
	m.viewport.SetContent(strings.Join(wrapped, "\n"))
	m.viewport.GotoBottom()
}

func renderEvent(event streamEvent) string {
	timestamp := faintStyle.Render(event.Timestamp.Local().Format("15:04:05"))

	var payload struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
		By      string `json:"by"`
		From    string `json:"from"`
		To      string `json:"to"`
	}
	_ = json.Unmarshal(event.Data, &payload)

	switch event.Kind {
	case "turn_state.started":
		return fmt.Sprintf("%s %s takes the floor", timestamp, speakerStyle.Render(payload.Speaker))
	case "turn_state.completed":
		return fmt.Sprintf("%s %s: %s", timestamp, speakerStyle.Render(payload.Speaker), payload.Text)
	case "turn_state.skipped":
		return fmt.Sprintf("%s %s", timestamp, errorStyle.Render(payload.Speaker+" turn skipped"))
	case "turn_state.interrupted":
		by := payload.By
		if by == "" {
			by = "time limit"
		}
		return fmt.Sprintf("%s %s interrupted by %s", timestamp, speakerStyle.Render(payload.Speaker), by)
	case "audience.message_queued":
		return fmt.Sprintf("%s %s %s", timestamp, audienceStyle.Render("audience:"), payload.Text)
	case "conversation.phase_changed":
		return fmt.Sprintf("%s %s", timestamp, faintStyle.Render(payload.From+" -> "+payload.To))
	default:
		return fmt.Sprintf("%s %s", timestamp, faintStyle.Render(event.Kind))
	}
}

func (m model) View() string {
	if !m.ready {
		return "loading..."
	}

	title := titleStyle.Render("panel")

	phase := m.status.State.Phase
	if phase == "" {
		phase = "unknown"
	}
	statusLine := fmt.Sprintf("phase: %s", phase)
	if m.status.State.CurrentSpeaker != "" {
		statusLine += "  speaking: " + m.status.State.CurrentSpeaker
	}
	statusLine += fmt.Sprintf("  turns: %d (audience %d)  stream: %s",
		m.status.Statistics.TotalTurns, m.status.Statistics.AudienceTurns, m.streamState)
	if m.busy {
		statusLine += "  " + m.spinner.View()
	}

	rosterLine := "roster: " + strings.Join(m.status.ActiveAgents, ", ")
	if counts := formatTurnCounts(m.status.Statistics.TurnsByAgent); counts != "" {
		rosterLine += "  [" + counts + "]"
	}

	inputLine := "> " + m.input.View()
	if m.lastError != "" {
		inputLine = errorStyle.Render(m.lastError) + "\n" + inputLine
	}

	help := helpStyle.Render("/start /stop /agents /test /quit - plain text asks the panel")

	return strings.Join([]string{
		title,
		statusStyle.Render(statusLine),
		statusStyle.Render(rosterLine),
		m.viewport.View(),
		inputLine,
		help,
	}, "\n")
}

func formatTurnCounts(byAgent map[string]int) string {
	if len(byAgent) == 0 {
		return ""
	}
	ids := make([]string, 0, len(byAgent))
	for id := range byAgent {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s:%d", id, byAgent[id]))
	}
	return strings.Join(parts, " ")
}
