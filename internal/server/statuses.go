package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/models"
)

type statusRequest struct {
	Name   *string `json:"name"`
	Color  *string `json:"color"`
	IsDone *bool   `json:"is_done"`
}

type rankBatchRequest struct {
	Items []models.RankUpdate `json:"items" binding:"required"`
}

func (s *Server) handleListStatuses(c *gin.Context) {
	projectID, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetProject(c.Request.Context(), projectID); err != nil {
		s.respondError(c, err)
		return
	}
	statuses, err := s.store.ListStatuses(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"statuses": statuses})
}

// handleCreateStatus appends a column to the right of the board.
func (s *Server) handleCreateStatus(c *gin.Context) {
	projectID, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !s.bindJSON(c, &req) {
		return
	}

	st, err := s.store.CreateStatus(c.Request.Context(), projectID, deref(req.Name), deref(req.Color), req.IsDone)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"status": st})
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !s.bindJSON(c, &req) {
		return
	}

	st, err := s.store.UpdateStatus(c.Request.Context(), id, req.Name, req.Color, req.IsDone)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": st})
}

// handleReorderStatuses applies the ranks of a column drag as submitted.
func (s *Server) handleReorderStatuses(c *gin.Context) {
	projectID, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req rankBatchRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.store.ReorderStatuses(c.Request.Context(), projectID, req.Items); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"updated": len(req.Items)})
}

// handleDeleteStatus removes an unused column.
func (s *Server) handleDeleteStatus(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteStatus(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
