package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/NotCoffee418/water_tank_monitor/pkg/alerts"
	"github.com/NotCoffee418/water_tank_monitor/pkg/livefeed"
	"github.com/NotCoffee418/water_tank_monitor/pkg/tankutils"
	"github.com/NotCoffee418/water_tank_monitor/pkg/types"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type SessionStore interface {
	Login(ctx context.Context, cfg types.SessionConfig) error
	Logout(ctx context.Context) error
	Config() *types.SessionConfig
	IsAuthenticated() bool
}

type FeedState interface {
	State() livefeed.State
}

type AlertService interface {
	TriggerAlert(ctx context.Context, title, message string, priority types.AlertPriority) types.AlertEvent
	History() []types.AlertEvent
	ClearAlerts()
	Config() types.AlertConfig
	UpdateConfig(ctx context.Context, patch types.AlertConfigPatch) (types.AlertConfig, error)
	RequestPermission(ctx context.Context) (bool, error)
	PermissionGranted() bool
	Capabilities() alerts.Capabilities
}

type BackgroundChecker interface {
	Start(ctx context.Context, interval time.Duration)
	Stop(ctx context.Context)
	IsActive() bool
}

type Deps struct {
	Session SessionStore
	Feed    FeedState
	Alerts  AlertService
	Checker BackgroundChecker
	Hub     *Hub
	Logger  *zap.Logger
}

// StatusResponse is the dashboard's view of the tank.
type StatusResponse struct {
	livefeed.View
	PercentageDisplay float64 `json:"percentageDisplay"`
	VolumeLiters      uint32  `json:"volumeLiters"`
	DisplayName       string  `json:"displayName,omitempty"`
}

func NewStatusResponse(state livefeed.State, session *types.SessionConfig) StatusResponse {
	view := state.View()
	resp := StatusResponse{
		View:              view,
		PercentageDisplay: tankutils.RoundPercent(view.Percentage),
		VolumeLiters:      tankutils.RoundLiters(view.Volume),
	}
	if session != nil {
		resp.DisplayName = session.DisplayName
	}
	return resp
}

// CheckInterval converts the configured minutes to a ticker interval.
func CheckInterval(cfg types.AlertConfig) time.Duration {
	return time.Duration(cfg.BackgroundCheckInterval) * time.Minute
}

type Server struct {
	addr   string
	deps   Deps
	engine *gin.Engine
}

func New(addr string, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{addr: addr, deps: deps, engine: engine}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.deps.Logger.Info("dashboard listening", zap.String("addr", s.addr))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine.GET("/login", s.handleLoginPage)
	s.engine.POST("/login", s.handleLogin)
	s.engine.POST("/logout", s.handleLogout)
	s.engine.GET("/", s.handleDashboardPage)

	api := s.engine.Group("/api", s.requireSession)
	api.GET("/status", s.handleStatus)
	api.GET("/alerts", s.handleListAlerts)
	api.POST("/alerts", s.handleTriggerAlert)
	api.DELETE("/alerts", s.handleClearAlerts)
	api.GET("/alert-config", s.handleGetAlertConfig)
	api.PATCH("/alert-config", s.handleUpdateAlertConfig)
	api.POST("/permission", s.handleRequestPermission)
	api.GET("/capabilities", s.handleCapabilities)
	api.POST("/background/start", s.handleBackgroundStart)
	api.POST("/background/stop", s.handleBackgroundStop)

	s.engine.GET("/ws", s.requireSession, s.handleWebsocket)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "page not found", "path": c.Request.URL.Path})
	})
}

func (s *Server) requireSession(c *gin.Context) {
	if !s.deps.Session.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}
	c.Next()
}

func (s *Server) handleLoginPage(c *gin.Context) {
	if s.deps.Session.IsAuthenticated() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":   "login",
		"fields": []string{"credential", "tankHeight", "tankVolume", "fullGap", "displayName"},
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var cfg types.SessionConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login body"})
		return
	}
	if err := s.deps.Session.Login(c.Request.Context(), cfg); err != nil {
		if errors.Is(err, types.ErrInvalidSessionConfig) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.deps.Logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "redirect": "/"})
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.deps.Session.Logout(c.Request.Context()); err != nil {
		s.deps.Logger.Warn("logout could not clear the stored session", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": false, "redirect": "/login"})
}

func (s *Server) handleDashboardPage(c *gin.Context) {
	if !s.deps.Session.IsAuthenticated() {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":   "dashboard",
		"status": s.status(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status())
}

func (s *Server) status() StatusResponse {
	return NewStatusResponse(s.deps.Feed.State(), s.deps.Session.Config())
}

func (s *Server) handleListAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alerts": s.deps.Alerts.History()})
}

type triggerRequest struct {
	Title    string `json:"title" binding:"required"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

func (s *Server) handleTriggerAlert(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	priority, err := types.ParseAlertPriority(req.Priority)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	event := s.deps.Alerts.TriggerAlert(c.Request.Context(), req.Title, req.Message, priority)
	c.JSON(http.StatusCreated, event)
}

func (s *Server) handleClearAlerts(c *gin.Context) {
	s.deps.Alerts.ClearAlerts()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetAlertConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Alerts.Config())
}

func (s *Server) handleUpdateAlertConfig(c *gin.Context) {
	var patch types.AlertConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert config body"})
		return
	}

	before := s.deps.Alerts.Config()
	updated, err := s.deps.Alerts.UpdateConfig(c.Request.Context(), patch)
	if err != nil {
		if errors.Is(err, types.ErrInvalidAlertConfig) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.deps.Logger.Error("failed to update alert config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save alert config"})
		return
	}

	if updated.BackgroundCheckInterval != before.BackgroundCheckInterval && s.deps.Checker.IsActive() {
		s.deps.Checker.Start(c.Request.Context(), CheckInterval(updated))
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleRequestPermission(c *gin.Context) {
	granted, err := s.deps.Alerts.RequestPermission(c.Request.Context())
	if err != nil {
		s.deps.Logger.Warn("notification permission request failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "notification service unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"granted": granted})
}

func (s *Server) handleCapabilities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"capabilities":      s.deps.Alerts.Capabilities(),
		"permissionGranted": s.deps.Alerts.PermissionGranted(),
		"backgroundActive":  s.deps.Checker.IsActive(),
	})
}

func (s *Server) handleBackgroundStart(c *gin.Context) {
	s.deps.Checker.Start(c.Request.Context(), CheckInterval(s.deps.Alerts.Config()))
	c.JSON(http.StatusOK, gin.H{"active": s.deps.Checker.IsActive()})
}

func (s *Server) handleBackgroundStop(c *gin.Context) {
	s.deps.Checker.Stop(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"active": s.deps.Checker.IsActive()})
}

func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.deps.Logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	s.deps.Hub.Add(conn)

	// Send current status immediately
	if err := s.deps.Hub.Send(conn, MessageStatus, s.status()); err != nil {
		s.deps.Hub.Remove(conn)
		return
	}

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.deps.Hub.Remove(conn)
			return
		}
	}
}
