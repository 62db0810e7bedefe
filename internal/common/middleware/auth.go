package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"community-bot-backend/internal/common/errors"
)

const staffTokenHeader = "X-Staff-Token"

// StaffOnly gates privileged entry points (giveaway start/end, log access).
// The caller presents one of the configured staff tokens; everything else is
// rejected before any state mutation.
func StaffOnly(log zerolog.Logger, tokens []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t != "" {
			allowed[t] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		token := c.GetHeader(staffTokenHeader)
		if token == "" {
			RespondError(c, log, errors.NewForbiddenError("staff token required"))
			return
		}
		if _, ok := allowed[token]; !ok {
			RespondError(c, log, errors.NewForbiddenError("invalid staff token"))
			return
		}
		c.Next()
	}
}
