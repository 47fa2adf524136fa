package main

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phantomguard/warden/automod/engine"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
)

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

type CommandFailure struct {
	Op     string `json:"op"`
	Target string `json:"target"`
	Error  string `json:"error"`
}

type CommandReport struct {
	Attempted int              `json:"attempted"`
	Succeeded int              `json:"succeeded"`
	Failures  []CommandFailure `json:"failures,omitempty"`
}

func commandReport(rep engine.Report) CommandReport {
	out := CommandReport{
		Attempted: rep.Attempted,
		Succeeded: rep.Succeeded,
	}
	for _, f := range rep.Failures {
		out.Failures = append(out.Failures, CommandFailure{Op: f.Op, Target: f.Target, Error: f.Err.Error()})
	}
	return out
}

type LockdownResponse struct {
	Locked bool          `json:"locked"`
	Report CommandReport `json:"report"`
}

type UnlockResponse struct {
	WasLocked bool          `json:"wasLocked"`
	Report    CommandReport `json:"report"`
}

type ResetMuteResponse struct {
	Unmuted       int           `json:"unmuted"`
	ProfilesReset int           `json:"profilesReset"`
	RoleMissing   bool          `json:"roleMissing"`
	Report        CommandReport `json:"report"`
}

type ResetSpamResponse struct {
	ProfilesReset int `json:"profilesReset"`
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(apiMetrics)

	e.GET("/_health", s.HandleHealthCheck)

	admin := e.Group("/admin", s.requireAdminToken)
	admin.POST("/tenants/:tenant/lockdown", s.HandleLockdown)
	admin.POST("/tenants/:tenant/unlock", s.HandleUnlock)
	admin.POST("/tenants/:tenant/reset-mute", s.HandleResetMute)
	admin.POST("/tenants/:tenant/reset-spam", s.HandleResetSpam)
	admin.GET("/tenants/:tenant/stats", s.HandleStats)
	admin.GET("/tenants/:tenant/members/:user", s.HandleMemberInfo)
	return e
}

func (s *Server) RunAPI(ctx context.Context, bind string) error {
	s.logger.Info("starting admin API", "bind", bind)
	httpd := &http.Server{
		Addr:           bind,
		Handler:        s.newEcho(),
		WriteTimeout:   1 * time.Minute,
		ReadTimeout:    1 * time.Minute,
		MaxHeaderBytes: 1024 * 1024,
	}
	return serveUntilDone(ctx, httpd)
}

func (s *Server) requireAdminToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		hdr := c.Request().Header.Get("Authorization")
		token, ok := strings.CutPrefix(hdr, "Bearer ")
		if !ok || s.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			adminAuthFailures.Inc()
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing admin token")
		}
		return next(c)
	}
}

func (s *Server) HandleHealthCheck(c echo.Context) error {
	if s.rdb != nil {
		if err := s.rdb.Ping(c.Request().Context()).Err(); err != nil {
			slog.Error("healthcheck can't connect to redis", "err", err)
			return c.JSON(http.StatusInternalServerError, GenericStatus{Status: "error", Daemon: "warden", Message: "can't connect to redis"})
		}
	}
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "warden"})
}

func (s *Server) HandleLockdown(c echo.Context) error {
	adminCommands.WithLabelValues("lockdown").Inc()
	locked, rep := s.engine.Lockdown(c.Request().Context(), c.Param("tenant"))
	return c.JSON(http.StatusOK, LockdownResponse{Locked: locked, Report: commandReport(rep)})
}

func (s *Server) HandleUnlock(c echo.Context) error {
	adminCommands.WithLabelValues("unlock").Inc()
	res := s.engine.Unlock(c.Request().Context(), c.Param("tenant"))
	return c.JSON(http.StatusOK, UnlockResponse{WasLocked: res.WasLocked, Report: commandReport(res.Report)})
}

func (s *Server) HandleResetMute(c echo.Context) error {
	adminCommands.WithLabelValues("reset-mute").Inc()
	res := s.engine.ResetMute(c.Request().Context(), c.Param("tenant"))
	return c.JSON(http.StatusOK, ResetMuteResponse{
		Unmuted:       res.Unmuted,
		ProfilesReset: res.ProfilesReset,
		RoleMissing:   res.RoleMissing,
		Report:        commandReport(res.Report),
	})
}

func (s *Server) HandleResetSpam(c echo.Context) error {
	adminCommands.WithLabelValues("reset-spam").Inc()
	n := s.engine.ResetSpam(c.Request().Context(), c.Param("tenant"))
	return c.JSON(http.StatusOK, ResetSpamResponse{ProfilesReset: n})
}

func (s *Server) HandleStats(c echo.Context) error {
	stats, err := s.engine.Stats(c.Request().Context(), c.Param("tenant"))
	if err != nil {
		return fmt.Errorf("reading tenant stats: %w", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) HandleMemberInfo(c echo.Context) error {
	tenant, user := c.Param("tenant"), c.Param("user")
	sum, err := s.engine.Info(c.Request().Context(), tenant, user)
	if err != nil {
		return fmt.Errorf("reading member info: %w", err)
	}
	if sum == nil {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no data for %s", user))
	}
	return c.JSON(http.StatusOK, sum)
}
