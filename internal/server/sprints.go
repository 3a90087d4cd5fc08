package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

const dateLayout = "2006-01-02"

type sprintRequest struct {
	Name       *string `json:"name"`
	Goal       *string `json:"goal"`
	StartDate  *string `json:"start_date"`
	EndDate    *string `json:"end_date"`
	ClearDates bool    `json:"clear_dates"`
	State      *string `json:"state" binding:"omitempty,oneof=planning active completed"`
}

type completeRequest struct {
	MovePolicy   string `json:"move_policy"`
	NextSprintID *int64 `json:"next_sprint_id"`
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, *raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.Invalid(field, "expected a date like 2006-01-02, got %q", *raw)
}

func (r sprintRequest) dates() (start, end *time.Time, err error) {
	if start, err = parseDate("start_date", r.StartDate); err != nil {
		return nil, nil, err
	}
	if end, err = parseDate("end_date", r.EndDate); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func (s *Server) handleListSprints(c *gin.Context) {
	projectID, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	if _, err := s.store.GetProject(c.Request.Context(), projectID); err != nil {
		s.respondError(c, err)
		return
	}
	sprints, err := s.store.ListSprints(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprints": sprints})
}

// handleCreateSprint adds a sprint in the planning state.
func (s *Server) handleCreateSprint(c *gin.Context) {
	projectID, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req sprintRequest
	if !s.bindJSON(c, &req) {
		return
	}
	start, end, err := req.dates()
	if err != nil {
		s.respondError(c, err)
		return
	}

	sp, err := s.store.CreateSprint(c.Request.Context(), projectID, models.SprintInput{
		Name:      deref(req.Name),
		Goal:      deref(req.Goal),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"sprint": sp})
}

func (s *Server) handleGetSprint(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	sp, err := s.store.GetSprint(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sp})
}

// handleUpdateSprint edits sprint details. Setting state to active starts
// the sprint and returns any previously active sprint to planning.
func (s *Server) handleUpdateSprint(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req sprintRequest
	if !s.bindJSON(c, &req) {
		return
	}
	start, end, err := req.dates()
	if err != nil {
		s.respondError(c, err)
		return
	}

	upd := models.SprintUpdate{
		Name:       req.Name,
		Goal:       req.Goal,
		StartDate:  start,
		EndDate:    end,
		ClearDates: req.ClearDates,
	}
	if req.State != nil {
		state := models.SprintState(*req.State)
		upd.State = &state
	}

	sp, err := s.store.UpdateSprint(c.Request.Context(), id, upd)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sp})
}

func (s *Server) handleStartSprint(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	sp, err := s.store.StartSprint(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"sprint": sp})
}

// handleCompleteSprint finishes the active sprint and redistributes its
// unfinished items. An empty body completes to the backlog.
func (s *Server) handleCompleteSprint(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req completeRequest
	if c.Request.ContentLength != 0 && !s.bindJSON(c, &req) {
		return
	}
	policy, err := models.ParseMovePolicy(req.MovePolicy)
	if err != nil {
		s.respondError(c, apperr.Invalid("move_policy", "%v", err))
		return
	}

	res, err := s.store.CompleteSprint(c.Request.Context(), id, policy, req.NextSprintID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, res)
}

// handleDeleteSprint removes a sprint; its items go back to the backlog.
func (s *Server) handleDeleteSprint(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteSprint(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleReorderSprints(c *gin.Context) {
	projectID, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	var req rankBatchRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.store.ReorderSprints(c.Request.Context(), projectID, req.Items); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"updated": len(req.Items)})
}

func (s *Server) handleListSprintItems(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}
	items, err := s.store.ListSprintItems(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"items": items})
}
