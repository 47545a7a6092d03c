package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/application"
	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/bnema/modal-accounts-cli/internal/version"
	"github.com/gin-gonic/gin"
)

// Server exposes the coordinator to the CLI. The watchdog is optional.
type Server struct {
	coordinator *application.Coordinator
	store       *application.CredentialStore
	watchdog    *application.Watchdog
	logger      *slog.Logger

	// base outlives individual requests; background setups run under it.
	base       context.Context
	background sync.WaitGroup
}

func NewServer(ctx context.Context, coordinator *application.Coordinator, watchdog *application.Watchdog, logger *slog.Logger) *Server {
	return &Server{
		coordinator: coordinator,
		store:       coordinator.Store(),
		watchdog:    watchdog,
		logger:      logger,
		base:        context.WithoutCancel(ctx),
	}
}

func (s *Server) loggerSafe() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}

	return slog.Default()
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler(debug bool) http.Handler {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.GET("/accounts", s.listAccounts)
		api.POST("/accounts", s.addAccount)
		api.POST("/accounts/switch-next", s.switchNext)
		api.DELETE("/accounts/:username", s.removeAccount)
		api.GET("/accounts/:username/history", s.history)
		api.PUT("/accounts/:username/gpu", s.setGPU)
		api.POST("/accounts/:username/switch", s.switchTo)
		api.POST("/accounts/:username/balance", s.checkBalance)

		api.POST("/balances/check", s.checkAllBalances)

		api.GET("/session", s.session)
		api.POST("/session/start", s.startSession)
		api.POST("/session/stop", s.stopSession)

		api.POST("/setup", s.runSetup)

		api.GET("/watchdog", s.watchdogStatus)
	}

	return r
}

// Wait blocks until background setups accepted by the server have returned.
func (s *Server) Wait() {
	s.background.Wait()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.loggerSafe().Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func (s *Server) fail(c *gin.Context, operation string, err error) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		s.loggerSafe().Error("request failed", "operation", operation, "code", code, "error", err)
	} else {
		s.loggerSafe().Info("request rejected", "operation", operation, "code", code, "error", err)
	}

	c.JSON(status, errorBody{Error: err.Error(), Code: code})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: "validation"})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthView{Status: "ok", Version: version.Version})
}

func (s *Server) listAccounts(c *gin.Context) {
	overview, err := s.coordinator.Overview(c.Request.Context())
	if err != nil {
		s.fail(c, "accounts.list", err)
		return
	}

	c.JSON(http.StatusOK, newOverviewView(overview))
}

func (s *Server) addAccount(c *gin.Context) {
	var req addAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	account, err := s.store.Add(c.Request.Context(), application.AddAccountCommand{
		Username:    req.Username,
		TokenID:     req.TokenID,
		TokenSecret: req.TokenSecret,
	})
	if err != nil {
		s.fail(c, "accounts.add", err)
		return
	}

	c.JSON(http.StatusCreated, newAccountView(account))
}

func (s *Server) removeAccount(c *gin.Context) {
	if err := s.store.Remove(c.Request.Context(), c.Param("username")); err != nil {
		s.fail(c, "accounts.remove", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) history(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer", Code: "validation"})
			return
		}
		limit = parsed
	}

	entries, err := s.store.History(c.Request.Context(), c.Param("username"), limit)
	if err != nil {
		s.fail(c, "accounts.history", err)
		return
	}

	c.JSON(http.StatusOK, newUsageEntryViews(entries))
}

func (s *Server) setGPU(c *gin.Context) {
	var req gpuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	username := c.Param("username")
	if err := s.store.UpdateSelectedGPU(ctx, username, req.GPU); err != nil {
		s.fail(c, "accounts.gpu", err)
		return
	}
	account, err := s.store.ByUsername(ctx, username)
	if err != nil {
		s.fail(c, "accounts.gpu", err)
		return
	}

	c.JSON(http.StatusOK, newAccountView(account))
}

func (s *Server) switchTo(c *gin.Context) {
	account, err := s.coordinator.SwitchTo(c.Request.Context(), c.Param("username"))
	if err != nil {
		s.fail(c, "accounts.switch", err)
		return
	}

	c.JSON(http.StatusOK, newAccountView(account))
}

func (s *Server) switchNext(c *gin.Context) {
	account, err := s.coordinator.SwitchToNextAvailable(c.Request.Context())
	if err != nil {
		s.fail(c, "accounts.switch_next", err)
		return
	}

	c.JSON(http.StatusOK, newAccountView(account))
}

func (s *Server) checkBalance(c *gin.Context) {
	username := c.Param("username")
	balance, err := s.coordinator.CheckBalance(c.Request.Context(), username)
	if err != nil {
		s.fail(c, "balance.check", err)
		return
	}

	c.JSON(http.StatusOK, BalanceView{Username: username, Balance: balance})
}

// checkAllBalances reports partial results with 200 and the joined error text.
func (s *Server) checkAllBalances(c *gin.Context) {
	balances, err := s.coordinator.CheckAllBalances(c.Request.Context())
	view := BalancesView{Balances: balances}
	if err != nil {
		if len(balances) == 0 {
			s.fail(c, "balance.check_all", err)
			return
		}
		view.Error = err.Error()
		s.loggerSafe().Warn("some balance checks failed", "error", err)
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) session(c *gin.Context) {
	c.JSON(http.StatusOK, newSessionView(s.coordinator.Status(c.Request.Context())))
}

func (s *Server) startSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	deployment, err := s.coordinator.Start(c.Request.Context(), application.StartSessionCommand{
		Username: req.Username,
		GPU:      req.GPU,
	})
	if err != nil {
		s.fail(c, "session.start", err)
		return
	}

	c.JSON(http.StatusCreated, newDeploymentView(deployment))
}

func (s *Server) stopSession(c *gin.Context) {
	if err := s.coordinator.Stop(c.Request.Context()); err != nil {
		s.fail(c, "session.stop", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// runSetup answers 202 and runs the pipeline detached from the request.
func (s *Server) runSetup(c *gin.Context) {
	var req setupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	if req.GPU != "" {
		gpu, err := domain.NormalizeGPU(req.GPU)
		if err != nil {
			s.fail(c, "setup", err)
			return
		}
		req.GPU = gpu
	}

	if _, err := s.store.ByUsername(c.Request.Context(), req.Username); err != nil {
		s.fail(c, "setup", err)
		return
	}

	logger := s.loggerSafe().With("account", req.Username, "operation", "setup")
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if err := s.coordinator.RunSetup(s.base, application.SetupCommand{Username: req.Username, GPU: req.GPU}); err != nil {
			logger.Error("background setup failed", "error", err)
			return
		}
		logger.Info("background setup finished")
	}()

	c.JSON(http.StatusAccepted, SetupAccepted{Username: req.Username, GPU: req.GPU})
}

func (s *Server) watchdogStatus(c *gin.Context) {
	view := WatchdogView{Pending: []PendingView{}}
	if s.watchdog != nil {
		opts := s.watchdog.Options()
		view.Enabled = true
		view.AutoSwitch = opts.AutoSwitch
		view.Interval = opts.Interval.String()
		view.GracePeriod = opts.GracePeriod.String()
		for _, pending := range s.watchdog.Pending() {
			view.Pending = append(view.Pending, PendingView{Username: pending.Username, Deadline: pending.Deadline})
		}
	}

	c.JSON(http.StatusOK, view)
}
