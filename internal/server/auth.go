package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/veritext/veritext/internal/auth/domain"
)

func (s *Server) Register(c *gin.Context) {
	var req authdomain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.authsvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) Login(c *gin.Context) {
	var req authdomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.authsvc.Login(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GuestToken(c *gin.Context) {
	resp, err := s.authsvc.GuestToken(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) Me(c *gin.Context) {
	act := currentActor(c)

	resp, err := s.authsvc.CurrentUser(c.Request.Context(), act.UserID())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpdateProfile(c *gin.Context) {
	act := currentActor(c)

	var req authdomain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.authsvc.UpdateProfile(c.Request.Context(), act.UserID(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
