package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	apperrors "community-bot-backend/internal/common/errors"
	"community-bot-backend/internal/common/middleware"
	"community-bot-backend/internal/features/eventlog"
)

const defaultTailLines = 20

type Handler struct {
	events *eventlog.Logger
	log    zerolog.Logger
}

func NewHandler(events *eventlog.Logger, log zerolog.Logger) *Handler {
	return &Handler{events: events, log: log}
}

// RegisterRoutes mounts the staff-only log inspection endpoints.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup, staffOnly gin.HandlerFunc) {
	logs := group.Group("/logs", staffOnly)
	{
		logs.GET("", h.tail)
		logs.GET("/recent", h.recent)
	}
}

// tail returns the last n lines of the unbounded file rendering.
func (h *Handler) tail(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("lines", strconv.Itoa(defaultTailLines)))
	if err != nil || n <= 0 {
		middleware.RespondError(c, h.log, apperrors.NewValidationError("lines", "must be a positive integer"))
		return
	}

	lines, err := h.events.TailLines(n)
	if err != nil {
		middleware.RespondError(c, h.log, apperrors.NewDatabaseError("tail event log", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "lines": lines})
}

// recent returns entries from the capped structured rendering, newest first.
func (h *Handler) recent(c *gin.Context) {
	n, err := strconv.ParseInt(c.DefaultQuery("count", strconv.Itoa(defaultTailLines)), 10, 64)
	if err != nil || n <= 0 {
		middleware.RespondError(c, h.log, apperrors.NewValidationError("count", "must be a positive integer"))
		return
	}

	entries, err := h.events.Recent(c.Request.Context(), n)
	if err != nil {
		middleware.RespondError(c, h.log, apperrors.NewDatabaseError("read recent events", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "entries": entries})
}
