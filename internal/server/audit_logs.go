package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/shopdesk/internal/audit/domain"
)

type listAuditLogsQuery struct {
	OwnerID string `form:"owner_id"`
	Limit   int    `form:"limit"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ownerID, err := snowflake.ParseString(strings.TrimSpace(query.OwnerID))
	if err != nil || ownerID <= 0 {
		AbortWithError(c, newValidationError("owner_id", "invalid_owner_id", "owner_id is required"))
		return
	}
	if query.Limit < 0 || query.Limit > auditdomain.MaxListLimit {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit out of range"))
		return
	}

	items, err := s.auditSvc.ListByOwner(c.Request.Context(), ownerID, query.Limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
