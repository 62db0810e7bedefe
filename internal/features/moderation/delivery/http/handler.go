package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	apperrors "community-bot-backend/internal/common/errors"
	"community-bot-backend/internal/common/middleware"
	"community-bot-backend/internal/features/archive"
	"community-bot-backend/internal/features/moderation/service"
)

type Handler struct {
	service *service.Service
	archive *archive.Service
	log     zerolog.Logger
}

func NewHandler(svc *service.Service, archiveSvc *archive.Service, log zerolog.Logger) *Handler {
	return &Handler{service: svc, archive: archiveSvc, log: log}
}

// RegisterRoutes mounts the message event intake.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/events/message", h.message)
}

type messageRequest struct {
	GuildID   string `json:"guild_id" binding:"required"`
	ChannelID string `json:"channel_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	Username  string `json:"username"`
	Content   string `json:"content"`
}

func (h *Handler) message(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, h.log, apperrors.NewValidationError("body", err.Error()))
		return
	}

	ctx := c.Request.Context()

	// Every message is archived, violation or not.
	if err := h.archive.SaveMessage(ctx, archive.Message{
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		UserID:    req.UserID,
		Username:  req.Username,
		Content:   req.Content,
	}); err != nil {
		h.log.Warn().Err(err).Str("user_id", req.UserID).Msg("Failed to archive message")
	}

	result, err := h.service.CheckMessage(ctx, req.Content, req.GuildID, req.UserID)
	if err != nil {
		middleware.RespondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}
