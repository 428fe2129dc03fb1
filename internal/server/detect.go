package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	detectiondomain "github.com/veritext/veritext/internal/detection/domain"
)

func (s *Server) Detect(c *gin.Context) {
	act := currentActor(c)

	var req detectiondomain.DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.detectionSvc.Detect(c.Request.Context(), act, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
