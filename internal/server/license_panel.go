package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	licensedomain "github.com/smallbiznis/shopdesk/internal/license/domain"
	subscriptiondomain "github.com/smallbiznis/shopdesk/internal/subscription/domain"
	usagedomain "github.com/smallbiznis/shopdesk/internal/usage/domain"
)

type licensePanelResponse struct {
	Licenses []licensedomain.License                  `json:"licenses"`
	Current  *subscriptiondomain.CurrentSubscription `json:"current"`
	Usage    usagedomain.Snapshot                    `json:"usage"`
	Report   *usagedomain.QuotaReport                `json:"report"`
}

// GetLicensePanel loads everything the license screen shows in one call.
func (s *Server) GetLicensePanel(c *gin.Context) {
	ownerID, ok := ownerIDFromRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	licenses, err := s.licenseSvc.List(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	current, err := s.subscriptionSvc.GetCurrent(ctx, ownerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	usage, err := s.usageFor(ctx, ownerID, current)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": licensePanelResponse{
		Licenses: licenses,
		Current:  current,
		Usage:    usage.Usage,
		Report:   usage.Report,
	}})
}
