package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListLicenses(c *gin.Context) {
	items, err := s.licenseSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
