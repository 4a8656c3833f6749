package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Health serves liveness and readiness. Required checks gate readiness;
// optional ones are only reported.
type Health struct {
	started  time.Time
	required map[string]Check
	optional map[string]Check
}

func NewHealth() *Health {
	return &Health{started: time.Now(), required: map[string]Check{}, optional: map[string]Check{}}
}

func (h *Health) Require(name string, c Check) { h.required[name] = c }

func (h *Health) Optional(name string, c Check) { h.optional[name] = c }

func (h *Health) Register(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", h.ready)
}

func (h *Health) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ready := true
	deps := map[string]bool{}
	for name, check := range h.required {
		deps[name] = check(ctx) == nil
		ready = ready && deps[name]
	}
	for name, check := range h.optional {
		deps[name] = check(ctx) == nil
	}
	body := gin.H{"deps": deps, "uptime": time.Since(h.started).Round(time.Second).String()}
	if !ready {
		body["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ready"
	c.JSON(http.StatusOK, body)
}
