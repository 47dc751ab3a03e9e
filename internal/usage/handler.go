package usage

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fumble-backend/internal/shared/server/respond"
)

// Handler exposes usage endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches usage routes to the router.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/usage", h.getUsage)
}

// RegisterDevRoutes attaches dev-only usage routes.
func (h *Handler) RegisterDevRoutes(r gin.IRoutes) {
	r.POST("/usage/reset", h.resetUsage)
}

func (h *Handler) getUsage(c *gin.Context) {
	if !h.Svc.Enabled() {
		respond.JSON(c, http.StatusOK, gin.H{"enabled": false})
		return
	}
	u, err := h.Svc.EnsurePeriod(c.Request.Context(), c.ClientIP())
	if err != nil {
		writeStoreError(c, err, "failed to fetch usage")
		return
	}
	respond.JSON(c, http.StatusOK, snapshot(u))
}

func (h *Handler) resetUsage(c *gin.Context) {
	if !h.Svc.Enabled() {
		respond.JSON(c, http.StatusOK, gin.H{"enabled": false})
		return
	}
	u, err := h.Svc.Reset(c.Request.Context(), c.ClientIP())
	if err != nil {
		writeStoreError(c, err, "failed to reset usage")
		return
	}
	respond.JSON(c, http.StatusOK, snapshot(u))
}

func snapshot(u Usage) gin.H {
	return gin.H{
		"enabled":  true,
		"limit":    u.Limit,
		"used":     u.Used,
		"resetsAt": u.ResetsAt,
	}
}

func writeStoreError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
	}
}
