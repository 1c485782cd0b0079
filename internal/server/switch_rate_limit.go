package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SwitchRateLimit throttles switch requests per owner. A limiter outage lets
// the request through; the switch lease still serialises writes.
func (s *Server) SwitchRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.switchLimiter.Enabled() {
			c.Next()
			return
		}
		ownerID, ok := ownerIDFromRequest(c)
		if !ok {
			return
		}

		res, err := s.switchLimiter.AllowOwner(c.Request.Context(), ownerID)
		if err != nil {
			s.log.Warn("switch rate limit unavailable", zap.String("owner_id", ownerID.String()), zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			seconds := int(math.Ceil(res.RetryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
