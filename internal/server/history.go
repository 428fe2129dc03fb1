package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	detectiondomain "github.com/veritext/veritext/internal/detection/domain"
	"github.com/veritext/veritext/pkg/db/pagination"
)

func (s *Server) ListHistory(c *gin.Context) {
	act := currentActor(c)

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	resp, err := s.detectionSvc.ListHistory(c.Request.Context(), act.UserID(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetHistoryItem(c *gin.Context) {
	act := currentActor(c)
	id, ok := historyID(c)
	if !ok {
		return
	}

	item, err := s.detectionSvc.GetHistory(c.Request.Context(), act.UserID(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type renameRequest struct {
	Title string `json:"title"`
}

func (s *Server) RenameHistoryItem(c *gin.Context) {
	act := currentActor(c)
	id, ok := historyID(c)
	if !ok {
		return
	}

	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	item, err := s.detectionSvc.RenameHistory(c.Request.Context(), act.UserID(), id, req.Title)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) DeleteHistoryItem(c *gin.Context) {
	act := currentActor(c)
	id, ok := historyID(c)
	if !ok {
		return
	}

	if err := s.detectionSvc.DeleteHistory(c.Request.Context(), act.UserID(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type batchDeleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

func (s *Server) BatchDeleteHistory(c *gin.Context) {
	act := currentActor(c)

	var req batchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError(err))
		return
	}

	ids := make([]snowflake.ID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, detectiondomain.ErrNotFound)
			return
		}
		ids = append(ids, id)
	}

	deleted, err := s.detectionSvc.BatchDeleteHistory(c.Request.Context(), act.UserID(), ids)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (s *Server) ClearHistory(c *gin.Context) {
	act := currentActor(c)

	deleted, err := s.detectionSvc.ClearHistory(c.Request.Context(), act.UserID())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func historyID(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, detectiondomain.ErrNotFound)
		return 0, false
	}
	return id, true
}
