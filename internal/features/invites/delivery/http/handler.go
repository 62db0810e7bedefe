package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	apperrors "community-bot-backend/internal/common/errors"
	"community-bot-backend/internal/common/middleware"
	"community-bot-backend/internal/features/invites/service"
)

type Handler struct {
	service *service.Service
	log     zerolog.Logger
}

func NewHandler(svc *service.Service, log zerolog.Logger) *Handler {
	return &Handler{service: svc, log: log}
}

// RegisterRoutes mounts the join event intake. Join events come from the
// gateway process and carry no staff token.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/events/member-join", h.memberJoin)
}

type memberJoinRequest struct {
	GuildID  string `json:"guild_id" binding:"required"`
	UserID   string `json:"user_id" binding:"required"`
	Username string `json:"username"`
}

func (h *Handler) memberJoin(c *gin.Context) {
	var req memberJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, h.log, apperrors.NewValidationError("body", err.Error()))
		return
	}

	result, err := h.service.OnJoin(c.Request.Context(), req.GuildID, req.UserID, req.Username)
	if err != nil {
		middleware.RespondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}
