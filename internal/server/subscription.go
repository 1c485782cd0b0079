package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type switchSubscriptionRequest struct {
	LicenseID int64 `json:"license_id"`
}

func (s *Server) GetCurrentSubscription(c *gin.Context) {
	ownerID, ok := ownerIDFromRequest(c)
	if !ok {
		return
	}

	current, err := s.subscriptionSvc.GetCurrent(c.Request.Context(), ownerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": current})
}

// SwitchSubscription answers 200 only with the state read back from the
// store after the switch.
func (s *Server) SwitchSubscription(c *gin.Context) {
	ownerID, ok := ownerIDFromRequest(c)
	if !ok {
		return
	}

	var req switchSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.LicenseID <= 0 {
		AbortWithError(c, newValidationError("license_id", "invalid_license_id", "license_id must be positive"))
		return
	}

	current, err := s.subscriptionSvc.SwitchTo(c.Request.Context(), ownerID, req.LicenseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": current})
}

func (s *Server) ListDuplicateSubscriptions(c *gin.Context) {
	items, err := s.subscriptionSvc.FindDuplicates(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
