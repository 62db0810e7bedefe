package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	apperrors "community-bot-backend/internal/common/errors"
	"community-bot-backend/internal/common/middleware"
	"community-bot-backend/internal/features/giveaway/service"
)

type Handler struct {
	service *service.Service
	log     zerolog.Logger
}

func NewHandler(svc *service.Service, log zerolog.Logger) *Handler {
	return &Handler{service: svc, log: log}
}

// RegisterRoutes mounts the giveaway entry points. Start and end are staff
// only; joining is open to everyone.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup, staffOnly gin.HandlerFunc) {
	giveaways := group.Group("/giveaways")
	{
		giveaways.POST("", staffOnly, h.start)
		giveaways.POST("/:id/end", staffOnly, h.end)
		giveaways.POST("/:id/join", h.join)
	}
}

type startRequest struct {
	GuildID         string `json:"guild_id" binding:"required"`
	ChannelID       string `json:"channel_id" binding:"required"`
	DurationSeconds int64  `json:"duration_seconds" binding:"required"`
	WinnerCount     int    `json:"winner_count" binding:"required"`
	Prize           string `json:"prize" binding:"required"`
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, h.log, apperrors.NewValidationError("body", err.Error()))
		return
	}

	giveaway, err := h.service.Start(c.Request.Context(), req.GuildID, req.ChannelID, req.DurationSeconds, req.WinnerCount, req.Prize)
	if err != nil {
		middleware.RespondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "giveaway": giveaway})
}

func (h *Handler) end(c *gin.Context) {
	result, err := h.service.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, h.log, err)
		return
	}

	// Ended or unknown giveaways are a 200 no-op, not an error.
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

type joinRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (h *Handler) join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, h.log, apperrors.NewValidationError("body", err.Error()))
		return
	}

	if err := h.service.RegisterParticipant(c.Request.Context(), c.Param("id"), req.UserID); err != nil {
		middleware.RespondError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}
