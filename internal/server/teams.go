package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	teamdomain "github.com/veritext/veritext/internal/team/domain"
)

func (s *Server) CreateTeam(c *gin.Context) {
	act := currentActor(c)

	var req teamdomain.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	team, err := s.teamSvc.Create(c.Request.Context(), act.UserID(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (s *Server) GetOwnTeam(c *gin.Context) {
	act := currentActor(c)

	team, err := s.teamSvc.GetOwn(c.Request.Context(), act.UserID())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (s *Server) AddTeamMember(c *gin.Context) {
	act := currentActor(c)

	var req teamdomain.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	member, err := s.teamSvc.AddMember(c.Request.Context(), act.UserID(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (s *Server) RemoveTeamMember(c *gin.Context) {
	act := currentActor(c)

	memberID, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, teamdomain.ErrMemberNotFound)
		return
	}

	if err := s.teamSvc.RemoveMember(c.Request.Context(), act.UserID(), memberID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListTeamMembers(c *gin.Context) {
	act := currentActor(c)

	members, err := s.teamSvc.ListMembers(c.Request.Context(), act.UserID())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}
