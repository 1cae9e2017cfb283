package api

import (
	"net/http"
	"strconv"
	"time"

	"trading-autopilot/internal/autopilot"
	"trading-autopilot/internal/lifecycle"
	"trading-autopilot/internal/positions"

	"github.com/gin-gonic/gin"
)

type tickRequest struct {
	DryRun bool `json:"dryRun"`
}

func (s *Server) handleRunTick(c *gin.Context) {
	var req tickRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	result := s.engine.RunTick(c.Request.Context(), req.DryRun)
	c.JSON(http.StatusOK, result)
}

type sweepRequest struct {
	DryRun           *bool    `json:"dryRun"`
	AutopilotOnly    *bool    `json:"autopilotOnly"`
	TimeStopDays     *int     `json:"timeStopDays"`
	TrailAfterR      *float64 `json:"trailAfterR"`
	TrailLockInR     *float64 `json:"trailLockInR"`
	ExecuteLiveExits *bool    `json:"executeLiveExits"`
	Force            *bool    `json:"force"`
}

// handleSweep runs one lifecycle sweep. Unset request fields fall back
// to the stored lifecycle configuration; a disabled lifecycle skips the
// sweep unless the request forces it.
func (s *Server) handleSweep(c *gin.Context) {
	cfg, err := s.store.LoadAutomationConfig(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load config: "+err.Error())
		return
	}

	params := lifecycle.Params{
		AutopilotOnly:    true,
		TimeStopDays:     cfg.Lifecycle.TimeStopDays,
		TrailAfterR:      cfg.Lifecycle.TrailAfterR,
		TrailLockInR:     cfg.Lifecycle.TrailLockInR,
		ExecuteLiveExits: cfg.Lifecycle.ExecuteLiveExits,
	}

	var req sweepRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	if !cfg.Lifecycle.Enabled && (req.Force == nil || !*req.Force) {
		c.JSON(http.StatusOK, lifecycle.SweepResult{
			OK: true,
			Actions: []autopilot.Action{{
				Type:   autopilot.ActionSkip,
				Reason: "lifecycle sweeps disabled",
				At:     time.Now(),
			}},
		})
		return
	}

	if req.DryRun != nil {
		params.DryRun = *req.DryRun
	}
	if req.AutopilotOnly != nil {
		params.AutopilotOnly = *req.AutopilotOnly
	}
	if req.TimeStopDays != nil {
		params.TimeStopDays = *req.TimeStopDays
	}
	if req.TrailAfterR != nil {
		params.TrailAfterR = *req.TrailAfterR
	}
	if req.TrailLockInR != nil {
		params.TrailLockInR = *req.TrailLockInR
	}
	if req.ExecuteLiveExits != nil {
		params.ExecuteLiveExits = *req.ExecuteLiveExits
	}

	result := s.lifecycle.Sweep(c.Request.Context(), params)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetConfig(c *gin.Context) {
	cfg, err := s.store.LoadAutomationConfig(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load config: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleUpdateConfig(c *gin.Context) {
	cfg, err := s.store.LoadAutomationConfig(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load config: "+err.Error())
		return
	}

	// Bind over the stored config so partial updates keep the rest.
	if err := c.ShouldBindJSON(cfg); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid config: "+err.Error())
		return
	}

	if err := s.store.SaveAutomationConfig(c.Request.Context(), cfg); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to save config: "+err.Error())
		return
	}

	successResponse(c, cfg)
}

type armRequest struct {
	Minutes int `json:"minutes"`
}

// handleArm opens the live-trading arm window for a short span. The
// environment allow-flag is still required before any live order.
func (s *Server) handleArm(c *gin.Context) {
	var req armRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Minutes <= 0 || req.Minutes > 240 {
		errorResponse(c, http.StatusBadRequest, "minutes must be between 1 and 240")
		return
	}

	cfg, err := s.store.LoadAutomationConfig(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load config: "+err.Error())
		return
	}

	expires := time.Now().Add(time.Duration(req.Minutes) * time.Minute)
	cfg.LiveArmExpiresAt = &expires

	if err := s.store.SaveAutomationConfig(c.Request.Context(), cfg); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to save config: "+err.Error())
		return
	}

	successResponse(c, gin.H{"liveArmExpiresAt": expires})
}

type killRequest struct {
	Halted bool   `json:"halted"`
	Reason string `json:"reason"`
}

func (s *Server) handleKillSwitch(c *gin.Context) {
	var req killRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cfg, err := s.store.LoadAutomationConfig(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load config: "+err.Error())
		return
	}

	cfg.Kill.Halted = req.Halted
	cfg.Kill.Reason = req.Reason

	if err := s.store.SaveAutomationConfig(c.Request.Context(), cfg); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to save config: "+err.Error())
		return
	}

	successResponse(c, cfg.Kill)
}

func (s *Server) handleListPositions(c *gin.Context) {
	scope := c.DefaultQuery("scope", "open")

	var (
		list []*positions.Position
		err  error
	)
	switch scope {
	case "open":
		list, err = s.store.ListPositionsByStatus(c.Request.Context(),
			positions.StatusActive, positions.StatusExitSubmitted)
	case "all":
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		list, err = s.store.ListRecentPositions(c.Request.Context(), limit)
	default:
		errorResponse(c, http.StatusBadRequest, "scope must be open or all")
		return
	}
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list positions: "+err.Error())
		return
	}

	if list == nil {
		list = []*positions.Position{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetPosition(c *gin.Context) {
	pos, err := s.store.GetPosition(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusNotFound, "position not found")
		return
	}
	c.JSON(http.StatusOK, pos)
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	entries, err := s.store.ListRunLog(c.Request.Context(), limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to list runs: "+err.Error())
		return
	}

	if entries == nil {
		entries = []*autopilot.RunLogEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleBreakerStatus(c *gin.Context) {
	if s.breaker == nil {
		errorResponse(c, http.StatusNotFound, "circuit breaker not configured")
		return
	}
	c.JSON(http.StatusOK, s.breaker.Stats())
}

func (s *Server) handleBreakerReset(c *gin.Context) {
	if s.breaker == nil {
		errorResponse(c, http.StatusNotFound, "circuit breaker not configured")
		return
	}
	s.breaker.ForceReset()
	successResponse(c, s.breaker.Stats())
}
