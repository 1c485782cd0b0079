package identity

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/shopdesk/internal/observability/context"
	"github.com/smallbiznis/shopdesk/internal/ownercontext"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// GinMiddleware trusts the identity headers set by the auth gateway. Requests
// without a valid user id pass through unauthenticated; handlers decide.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			c.Next()
			return
		}

		userID, err := snowflake.ParseString(raw)
		if err != nil || userID <= 0 {
			c.Next()
			return
		}
		role, err := NormalizeRole(c.GetHeader(HeaderUserRole))
		if err != nil {
			c.Next()
			return
		}

		user := User{ID: userID, Role: role}
		ctx := WithUser(c.Request.Context(), user)
		ctx = ownercontext.WithOwnerID(ctx, user.ID)
		ctx = obscontext.WithActor(ctx, role, user.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set("owner_id", user.ID.String())

		c.Next()
	}
}
