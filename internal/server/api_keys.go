package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	apikeydomain "github.com/veritext/veritext/internal/apikey/domain"
)

func (s *Server) ListAPIKeys(c *gin.Context) {
	act := currentActor(c)

	keys, err := s.apiKeySvc.List(c.Request.Context(), act.UserID())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

func (s *Server) CreateAPIKey(c *gin.Context) {
	act := currentActor(c)

	var req apikeydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	secret, err := s.apiKeySvc.Create(c.Request.Context(), act.UserID(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, secret)
}

func (s *Server) DeactivateAPIKey(c *gin.Context) {
	act := currentActor(c)

	keyID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, apikeydomain.ErrNotFound)
		return
	}

	if err := s.apiKeySvc.Deactivate(c.Request.Context(), act.UserID(), keyID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// APIKeySelfTest lets an integrator verify a key end to end: it echoes the
// identity the key resolved to.
func (s *Server) APIKeySelfTest(c *gin.Context) {
	act := currentActor(c)

	resp := gin.H{
		"actor_type": act.Kind,
		"actor_id":   act.ID,
		"role":       act.Role,
	}
	if act.APIKeyID != 0 {
		resp["api_key_id"] = act.APIKeyID.String()
	}
	c.JSON(http.StatusOK, resp)
}
