package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

type itemRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	StatusID    *int64  `json:"status_id"`
	SprintID    *int64  `json:"sprint_id"`
}

type itemBatchRequest struct {
	Items []models.ItemPlacement `json:"items" binding:"required"`
}

// positionRequest places an item at Index within a status column when
// StatusID is set, or within a sprint (or the backlog) otherwise.
type positionRequest struct {
	StatusID *int64 `json:"status_id"`
	SprintID *int64 `json:"sprint_id"`
	Backlog  bool   `json:"backlog"`
	Index    *int   `json:"index" binding:"required,gte=0"`
}

type moveRequest struct {
	SprintID *int64 `json:"sprint_id"`
}

// handleListItems returns the kanban view of a project.
func (s *Server) handleListItems(c *gin.Context) {
	projectID, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetProject(c.Request.Context(), projectID); err != nil {
		s.respondError(c, err)
		return
	}
	items, err := s.store.ListItems(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleListBacklog(c *gin.Context) {
	projectID, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetProject(c.Request.Context(), projectID); err != nil {
		s.respondError(c, err)
		return
	}
	items, err := s.store.ListBacklog(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"items": items})
}

// handleCreateItem inserts a work item at the bottom of its column. Without
// a status_id the first column of the project is used.
func (s *Server) handleCreateItem(c *gin.Context) {
	projectID, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req itemRequest
	if !s.bindJSON(c, &req) {
		return
	}

	statusID := deref(req.StatusID)
	if req.StatusID == nil {
		if _, err := s.store.GetProject(c.Request.Context(), projectID); err != nil {
			s.respondError(c, err)
			return
		}
		statuses, err := s.store.ListStatuses(c.Request.Context(), projectID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		if len(statuses) == 0 {
			s.respondError(c, apperr.Invalid("status_id", "project %d has no status columns", projectID))
			return
		}
		statusID = statuses[0].ID
	}

	item, err := s.store.CreateItem(c.Request.Context(), models.WorkItem{
		ProjectID:   projectID,
		StatusID:    statusID,
		SprintID:    req.SprintID,
		Priority:    models.Priority(deref(req.Priority)),
		Title:       deref(req.Title),
		Description: deref(req.Description),
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"item": item})
}

func (s *Server) handleGetItem(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	item, err := s.store.GetItem(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"item": item})
}

// handleUpdateItem edits item fields. A status change moves the item to the
// bottom of the new column; sprint membership has its own endpoint.
func (s *Server) handleUpdateItem(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req itemRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.SprintID != nil {
		s.respondError(c, apperr.Invalid("sprint_id", "use PUT /api/items/%d/sprint to change the sprint", id))
		return
	}

	upd := models.ItemUpdate{
		Title:       req.Title,
		Description: req.Description,
		StatusID:    req.StatusID,
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		upd.Priority = &p
	}

	item, err := s.store.UpdateItem(c.Request.Context(), id, upd)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"item": item})
}

func (s *Server) handleDeleteItem(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteItem(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleReorderItems applies a drag batch computed by the client.
func (s *Server) handleReorderItems(c *gin.Context) {
	projectID, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req itemBatchRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.store.ReorderItems(c.Request.Context(), projectID, req.Items); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"updated": len(req.Items)})
}

// handlePlaceItem moves an item to an index and lets the server recompute
// the ranks of the affected columns or sprint buckets.
func (s *Server) handlePlaceItem(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req positionRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var (
		item models.WorkItem
		err  error
	)
	switch {
	case req.StatusID != nil && (req.SprintID != nil || req.Backlog):
		err = apperr.Invalid("status_id", "place in a column or in a sprint, not both")
	case req.StatusID != nil:
		item, err = s.store.PlaceItem(c.Request.Context(), id, *req.StatusID, *req.Index)
	case req.SprintID != nil && req.Backlog:
		err = apperr.Invalid("backlog", "backlog and sprint_id are exclusive")
	case req.SprintID != nil || req.Backlog:
		item, err = s.store.PlaceInBucket(c.Request.Context(), id, req.SprintID, *req.Index)
	default:
		err = apperr.Invalid("status_id", "one of status_id, sprint_id or backlog is required")
	}
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"item": item})
}

// handleMoveItem assigns an item to a sprint, or to the backlog when
// sprint_id is null. The rank is kept.
func (s *Server) handleMoveItem(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req moveRequest
	if !s.bindJSON(c, &req) {
		return
	}
	item, err := s.store.MoveItem(c.Request.Context(), id, req.SprintID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"item": item})
}
