package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/librescoot/timeout"
)

type startRequest struct {
	Timer    string `json:"timer" binding:"required"`
	Interval string `json:"interval"` // empty uses the manager default
}

// newRouter exposes the app over HTTP
func newRouter(a *app, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, a.store.State())
	})
	r.GET("/managers", func(c *gin.Context) {
		c.JSON(http.StatusOK, a.statuses())
	})
	r.POST("/managers/:id/start", func(c *gin.Context) {
		var req startRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id := timeout.ManagerID(c.Param("id"))
		if err := a.start(id, req.Interval, timeout.TimerID(req.Timer)); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"manager": id, "timer": req.Timer})
	})
	r.POST("/managers/:id/stop", func(c *gin.Context) {
		id := timeout.ManagerID(c.Param("id"))
		if err := a.stop(id); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"manager": id})
	})

	return r
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnknownManager):
		return http.StatusNotFound
	case errors.Is(err, timeout.ErrAlreadyRunning), errors.Is(err, timeout.ErrNotRunning):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}

// serve runs srv until ctx is done, then shuts it down. It returns an error
// only when the listener fails on its own.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", "error", err)
	}
	return nil
}
