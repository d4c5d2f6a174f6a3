// Package dashboard exposes the operator control surface over HTTP: status
// and history queries, start/stop/roster commands, audience-message
// injection, and a websocket event push.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	orchestration "github.com/aircasthq/panel-core/core"
	"github.com/aircasthq/panel-core/core/agents"
	"github.com/aircasthq/panel-core/core/audio"
)

// Controller is the slice of the orchestrator the dashboard drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	SetActiveAgents(ctx context.Context, ids ...string) error
	SubmitAudienceMessage(ctx context.Context, text string) error
	Status() orchestration.Status
	History(limit int) []orchestration.Turn
	ListAgents() []agents.Agent
	TestPrompt(ctx context.Context, agentID, prompt string) (string, error)
}

// DeviceLister is implemented by audio backends that can enumerate devices.
type DeviceLister interface {
	Devices() ([]audio.Device, error)
}

type Server struct {
	echo       *echo.Echo
	controller Controller
	hub        *Hub
	devices    DeviceLister
}

type ServerOption func(*Server)

// WithDeviceLister enables the audio-device listing endpoint.
func WithDeviceLister(devices DeviceLister) ServerOption {
	return func(s *Server) { s.devices = devices }
}

func NewServer(controller Controller, hub *Hub, opts ...ServerOption) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(echo.WrapMiddleware(otelhttp.NewMiddleware("dashboard")))

	server := &Server{echo: e, controller: controller, hub: hub}
	for _, opt := range opts {
		opt(server)
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	api := e.Group("/api")
	api.GET("/status", server.status)
	api.POST("/start", server.start)
	api.POST("/stop", server.stop)
	api.GET("/agents", server.listAgents)
	api.POST("/agents/active", server.setActiveAgents)
	api.POST("/agents/:id/test", server.testAgent)
	api.POST("/audience", server.submitAudienceMessage)
	api.GET("/history", server.history)
	api.GET("/audio/devices", server.listDevices)

	e.GET("/ws", func(c echo.Context) error {
		hub.serveWS(c.Response(), c.Request())
		return nil
	})

	return server
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) status(c echo.Context) error {
	return c.JSON(http.StatusOK, s.controller.Status())
}

func (s *Server) start(c echo.Context) error {
	if err := s.controller.Start(c.Request().Context()); err != nil {
		return commandError(c, err)
	}
	return c.JSON(http.StatusOK, s.controller.Status())
}

func (s *Server) stop(c echo.Context) error {
	if err := s.controller.Stop(c.Request().Context()); err != nil {
		return commandError(c, err)
	}
	return c.JSON(http.StatusOK, s.controller.Status())
}

func (s *Server) listAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"agents": s.controller.ListAgents(),
		"active": s.controller.Status().ActiveAgents,
	})
}

func (s *Server) setActiveAgents(c echo.Context) error {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	if err := s.controller.SetActiveAgents(c.Request().Context(), body.IDs...); err != nil {
		return commandError(c, err)
	}
	return c.JSON(http.StatusOK, s.controller.Status())
}

func (s *Server) testAgent(c echo.Context) error {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	text, err := s.controller.TestPrompt(c.Request().Context(), c.Param("id"), body.Prompt)
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"text": text})
}

func (s *Server) submitAudienceMessage(c echo.Context) error {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	if err := s.controller.SubmitAudienceMessage(c.Request().Context(), body.Text); err != nil {
		return commandError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) history(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody("limit must be an integer"))
		}
		limit = parsed
	}

	return c.JSON(http.StatusOK, map[string]any{
		"turns": s.controller.History(limit),
	})
}

func (s *Server) listDevices(c echo.Context) error {
	if s.devices == nil {
		return c.JSON(http.StatusOK, map[string]any{"devices": []audio.Device{}})
	}

	devices, err := s.devices.Devices()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]any{"devices": devices})
}

// commandError maps the orchestrator's error taxonomy onto HTTP statuses:
// unknown agents and bad configuration are the caller's fault, everything
// else is ours.
func commandError(c echo.Context, err error) error {
	var unknownAgent *orchestration.UnknownAgentError
	var configuration *orchestration.ConfigurationError

	switch {
	case errors.As(err, &unknownAgent):
		return c.JSON(http.StatusNotFound, errorBody(err.Error()))
	case errors.As(err, &configuration):
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, orchestration.ErrEmptyQuestion):
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, orchestration.ErrNotStarted), errors.Is(err, orchestration.ErrClosed):
		return c.JSON(http.StatusConflict, errorBody(err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}
