package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shopdesk/internal/ownercontext"
)

// AuthRequired rejects requests the identity middleware could not attribute
// to a user.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := s.identity.CurrentUser(c.Request.Context()); err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.identity.CurrentUser(c.Request.Context())
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), user, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func ownerIDFromRequest(c *gin.Context) (snowflake.ID, bool) {
	ownerID, ok := ownercontext.OwnerIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return 0, false
	}
	return ownerID, true
}
