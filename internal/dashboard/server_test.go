package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	orchestration "github.com/aircasthq/panel-core/core"
	"github.com/aircasthq/panel-core/core/agents"
	"github.com/aircasthq/panel-core/core/audio"
)

type fakeController struct {
	running      bool
	started      int
	stopped      int
	audience     []string
	activeAgents []string
	setErr       error
	submitErr    error
	testText     string
	testErr      error
}

func (f *fakeController) Start(context.Context) error {
	f.started++
	f.running = true
	return nil
}

func (f *fakeController) Stop(context.Context) error {
	f.stopped++
	f.running = false
	return nil
}

func (f *fakeController) SetActiveAgents(_ context.Context, ids ...string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.activeAgents = ids
	return nil
}

func (f *fakeController) SubmitAudienceMessage(_ context.Context, text string) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.audience = append(f.audience, text)
	return nil
}

func (f *fakeController) Status() orchestration.Status {
	return orchestration.Status{
		Running:      f.running,
		State:        orchestration.ConversationState{Phase: orchestration.PhaseIdle},
		ActiveAgents: f.activeAgents,
	}
}

func (f *fakeController) History(limit int) []orchestration.Turn {
	turns := []orchestration.Turn{
		{ID: "1", Speaker: "alex", Text: "one"},
		{ID: "2", Speaker: "jordan", Text: "two"},
	}
	if limit > 0 && limit < len(turns) {
		return turns[len(turns)-limit:]
	}
	return turns
}

func (f *fakeController) ListAgents() []agents.Agent {
	return []agents.Agent{{ID: "alex", Name: "Alex"}, {ID: "jordan", Name: "Jordan"}}
}

func (f *fakeController) TestPrompt(_ context.Context, agentID, prompt string) (string, error) {
	if f.testErr != nil {
		return "", f.testErr
	}
	return f.testText, nil
}

type fakeDeviceLister struct{ devices []audio.Device }

func (f *fakeDeviceLister) Devices() ([]audio.Device, error) { return f.devices, nil }

func serve(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	controller := &fakeController{running: true, activeAgents: []string{"alex"}}
	server := NewServer(controller, NewHub())

	rec := serve(t, server, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}

	var status struct {
		Running      bool     `json:"running"`
		ActiveAgents []string `json:"activeAgents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !status.Running || len(status.ActiveAgents) != 1 {
		t.Fatalf("unexpected status payload %+v", status)
	}
}

func TestStartAndStopEndpoints(t *testing.T) {
	controller := &fakeController{}
	server := NewServer(controller, NewHub())

	if rec := serve(t, server, http.MethodPost, "/api/start", ""); rec.Code != http.StatusOK {
		t.Fatalf("unexpected start status %d: %s", rec.Code, rec.Body)
	}
	if controller.started != 1 {
		t.Fatalf("expected one start call, got %d", controller.started)
	}

	if rec := serve(t, server, http.MethodPost, "/api/stop", ""); rec.Code != http.StatusOK {
		t.Fatalf("unexpected stop status %d: %s", rec.Code, rec.Body)
	}
	if controller.stopped != 1 {
		t.Fatalf("expected one stop call, got %d", controller.stopped)
	}
}

func TestAudienceEndpoint(t *testing.T) {
	controller := &fakeController{}
	server := NewServer(controller, NewHub())

	rec := serve(t, server, http.MethodPost, "/api/audience", `{"text": "what about security"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}
	if len(controller.audience) != 1 || controller.audience[0] != "what about security" {
		t.Fatalf("unexpected submissions %v", controller.audience)
	}
}

func TestAudienceEndpointMapsValidationErrors(t *testing.T) {
	controller := &fakeController{submitErr: orchestration.ErrEmptyQuestion}
	server := NewServer(controller, NewHub())

	rec := serve(t, server, http.MethodPost, "/api/audience", `{"text": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty question, got %d", rec.Code)
	}

	controller.submitErr = orchestration.ErrNotStarted
	rec = serve(t, server, http.MethodPost, "/api/audience", `{"text": "hello"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 before the conversation runs, got %d", rec.Code)
	}
}

func TestSetActiveAgentsEndpoint(t *testing.T) {
	controller := &fakeController{}
	server := NewServer(controller, NewHub())

	rec := serve(t, server, http.MethodPost, "/api/agents/active", `{"ids": ["jordan", "alex"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}
	if len(controller.activeAgents) != 2 || controller.activeAgents[0] != "jordan" {
		t.Fatalf("unexpected roster %v", controller.activeAgents)
	}
}

func TestUnknownAgentMapsToNotFound(t *testing.T) {
	controller := &fakeController{setErr: &orchestration.UnknownAgentError{AgentID: "nobody"}}
	server := NewServer(controller, NewHub())

	rec := serve(t, server, http.MethodPost, "/api/agents/active", `{"ids": ["nobody"]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown agent, got %d: %s", rec.Code, rec.Body)
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if !strings.Contains(body.Error, "nobody") {
		t.Fatalf("expected the offending id in the error, got %q", body.Error)
	}
}

func TestTestPromptEndpoint(t *testing.T) {
	controller := &fakeController{testText: "a dry remark"}
	server := NewServer(controller, NewHub())

	rec := serve(t, server, http.MethodPost, "/api/agents/alex/test", `{"prompt": "say something"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}

	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Text != "a dry remark" {
		t.Fatalf("unexpected response %q", body.Text)
	}
}

func TestHistoryEndpointHonorsLimit(t *testing.T) {
	server := NewServer(&fakeController{}, NewHub())

	rec := serve(t, server, http.MethodGet, "/api/history?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}

	var body struct {
		Turns []struct {
			ID string `json:"id"`
		} `json:"turns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Turns) != 1 || body.Turns[0].ID != "2" {
		t.Fatalf("expected only the most recent turn, got %+v", body.Turns)
	}

	if rec := serve(t, server, http.MethodGet, "/api/history?limit=notanumber", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad limit, got %d", rec.Code)
	}
}

func TestDeviceEndpoint(t *testing.T) {
	withoutDevices := NewServer(&fakeController{}, NewHub())
	rec := serve(t, withoutDevices, http.MethodGet, "/api/audio/devices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}

	lister := &fakeDeviceLister{devices: []audio.Device{{Name: "Broadcast Out", IsDefault: true}}}
	withDevices := NewServer(&fakeController{}, NewHub(), WithDeviceLister(lister))
	rec = serve(t, withDevices, http.MethodGet, "/api/audio/devices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}

	var body struct {
		Devices []struct {
			Name string `json:"name"`
		} `json:"devices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Devices) != 1 || body.Devices[0].Name != "Broadcast Out" {
		t.Fatalf("unexpected devices %+v", body.Devices)
	}
}

func TestHealthz(t *testing.T) {
	server := NewServer(&fakeController{}, NewHub())
	if rec := serve(t, server, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}
