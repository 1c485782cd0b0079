package server

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/smallbiznis/shopdesk/internal/subscription/domain"
	usagedomain "github.com/smallbiznis/shopdesk/internal/usage/domain"
)

type usageResponse struct {
	Usage  usagedomain.Snapshot     `json:"usage"`
	Report *usagedomain.QuotaReport `json:"report"`
}

func (s *Server) GetUsage(c *gin.Context) {
	ownerID, ok := ownerIDFromRequest(c)
	if !ok {
		return
	}

	current, err := s.subscriptionSvc.GetCurrent(c.Request.Context(), ownerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.usageFor(c.Request.Context(), ownerID, current)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// usageFor computes usage and, when the owner has a license, the quota
// report against it.
func (s *Server) usageFor(ctx context.Context, ownerID snowflake.ID, current *subscriptiondomain.CurrentSubscription) (usageResponse, error) {
	snapshot, err := s.usageSvc.ComputeUsage(ctx, ownerID)
	if err != nil {
		return usageResponse{}, err
	}

	resp := usageResponse{Usage: snapshot}
	if current != nil {
		report := usagedomain.Report(snapshot, current.License)
		resp.Report = &report
	}
	return resp, nil
}
