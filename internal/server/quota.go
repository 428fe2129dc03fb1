package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type quotaResponse struct {
	ActorType string `json:"actor_type"`
	Limit     int64  `json:"limit"`
	UsedToday int64  `json:"used_today"`
	Remaining int64  `json:"remaining"`
}

func (s *Server) GetQuota(c *gin.Context) {
	act := currentActor(c)

	used, limit, err := s.quotaSvc.UsedToday(c.Request.Context(), act.Kind, act.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	c.JSON(http.StatusOK, quotaResponse{
		ActorType: act.Kind,
		Limit:     limit,
		UsedToday: used,
		Remaining: remaining,
	})
}
