package server

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/veritext/veritext/internal/auth/domain"
	"gorm.io/gorm"
)

func (s *Server) AdminListUsers(c *gin.Context) {
	var req authdomain.ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	users, err := s.authsvc.ListUsers(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (s *Server) AdminSetUserRole(c *gin.Context) {
	userID, ok := adminUserID(c)
	if !ok {
		return
	}

	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	if err := s.authsvc.SetUserRole(c.Request.Context(), userID, req.Role); err != nil {
		AbortWithError(c, adminNotFound(err))
		return
	}
	c.Status(http.StatusNoContent)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (s *Server) AdminSetUserActive(c *gin.Context) {
	userID, ok := adminUserID(c)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	if err := s.authsvc.SetUserActive(c.Request.Context(), userID, *req.IsActive); err != nil {
		AbortWithError(c, adminNotFound(err))
		return
	}
	c.Status(http.StatusNoContent)
}

func adminUserID(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, gorm.ErrRecordNotFound)
		return 0, false
	}
	return id, true
}

// adminNotFound keeps a missing target account a 404 here; the 401
// USER_NOT_FOUND mapping belongs to the login flow.
func adminNotFound(err error) error {
	if errors.Is(err, authdomain.ErrUserNotFound) {
		return gorm.ErrRecordNotFound
	}
	return err
}
