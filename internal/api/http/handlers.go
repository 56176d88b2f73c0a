// Package http exposes the orchestrator API: the shell frontend mounts and
// unmounts micro-apps and inspects their sandboxes through it.
package http

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/SCWR/qiankun/internal/app"
	"github.com/SCWR/qiankun/internal/sandbox"
)

// Handlers holds the API's dependencies.
type Handlers struct {
	apps *app.Manager
}

// NewHandlers creates the handler set over the app manager.
func NewHandlers(apps *app.Manager) *Handlers {
	return &Handlers{apps: apps}
}

// Health reports liveness and the number of running sandboxes.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"active_sandboxes": sandbox.ActiveCount(),
	})
}

// ListApps returns every registered micro-app.
func (h *Handlers) ListApps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"apps": h.apps.List()})
}

// MountApp activates and executes a micro-app.
func (h *Handlers) MountApp(c *gin.Context) {
	name := c.Param("name")
	if err := h.apps.Mount(c.Request.Context(), name); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mounted": name})
}

// UnmountApp deactivates a micro-app.
func (h *Handlers) UnmountApp(c *gin.Context) {
	name := c.Param("name")
	if err := h.apps.Unmount(name); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unmounted": name})
}

// DebugApp returns the sandbox diagnostics snapshot. Serialized with sonic:
// mutation sets can get large for chatty modules.
func (h *Handlers) DebugApp(c *gin.Context) {
	info, err := h.apps.Debug(c.Param("name"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	payload, err := sonic.Marshal(info)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrUnknownApp):
		return http.StatusNotFound
	case errors.Is(err, app.ErrAlreadyMounted), errors.Is(err, app.ErrNotMounted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
