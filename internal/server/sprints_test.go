package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/models"
)

func TestSprintLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t, Options{})
	p, statuses := h.project("Apollo")
	todo, done := statuses[0], statuses[2]

	a := h.sprint(p.ID, "A")
	b := h.sprint(p.ID, "B")
	assert.Equal(t, models.SprintPlanning, a.State)
	assert.Equal(t, a.Rank+1, b.Rank)

	var started struct {
		Sprint models.Sprint `json:"sprint"`
	}
	h.call(http.MethodPost, fmt.Sprintf("/api/sprints/%d/start", a.ID), nil, http.StatusOK, &started)
	assert.Equal(t, models.SprintActive, started.Sprint.State)

	body := h.fail(http.MethodPost, fmt.Sprintf("/api/sprints/%d/start", a.ID), nil, http.StatusUnprocessableEntity)
	assert.Equal(t, "invalid_state", body.Error.Code)

	finished := h.item(p.ID, gin.H{"title": "T1", "status_id": done.ID, "sprint_id": a.ID})
	open := h.item(p.ID, gin.H{"title": "T2", "status_id": todo.ID, "sprint_id": a.ID})

	var res models.Completion
	h.call(http.MethodPost, fmt.Sprintf("/api/sprints/%d/complete", a.ID),
		gin.H{"move_policy": "next_sprint", "next_sprint_id": b.ID}, http.StatusOK, &res)
	assert.Equal(t, models.SprintCompleted, res.Sprint.State)
	assert.Equal(t, models.MoveToNextSprint, res.Policy)
	require.NotNil(t, res.MovedTo)
	assert.Equal(t, b.ID, *res.MovedTo)
	assert.Equal(t, []int64{open.ID}, res.MovedItems)

	assert.Equal(t, a.ID, *h.getItem(finished.ID).SprintID)
	assert.Equal(t, b.ID, *h.getItem(open.ID).SprintID)

	h.fail(http.MethodPost, fmt.Sprintf("/api/sprints/%d/complete", a.ID), nil, http.StatusUnprocessableEntity)
}

func TestCompleteSprintDefaultsToBacklog(t *testing.T) {
	h := newHarness(t, Options{})
	p, statuses := h.project("Apollo")
	sp := h.sprint(p.ID, "S1")
	h.call(http.MethodPost, fmt.Sprintf("/api/sprints/%d/start", sp.ID), nil, http.StatusOK, nil)
	w := h.item(p.ID, gin.H{"title": "open", "status_id": statuses[1].ID, "sprint_id": sp.ID})

	rec := h.do(http.MethodPost, fmt.Sprintf("/api/sprints/%d/complete", sp.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, h.getItem(w.ID).InBacklog())

	var backlog struct {
		Items []models.WorkItem `json:"items"`
	}
	h.call(http.MethodGet, fmt.Sprintf("/api/projects/%d/backlog", p.ID), nil, http.StatusOK, &backlog)
	require.Len(t, backlog.Items, 1)
	assert.Equal(t, w.ID, backlog.Items[0].ID)
}

func TestCompleteSprintRejectsBadInput(t *testing.T) {
	h := newHarness(t, Options{})
	p, _ := h.project("Apollo")
	sp := h.sprint(p.ID, "S1")
	h.call(http.MethodPost, fmt.Sprintf("/api/sprints/%d/start", sp.ID), nil, http.StatusOK, nil)

	body := h.fail(http.MethodPost, fmt.Sprintf("/api/sprints/%d/complete", sp.ID), gin.H{"move_policy": "shred"}, http.StatusBadRequest)
	assert.Contains(t, body.Error.Fields, "move_policy")

	body = h.fail(http.MethodPost, fmt.Sprintf("/api/sprints/%d/complete", sp.ID),
		gin.H{"move_policy": "next_sprint", "next_sprint_id": sp.ID}, http.StatusBadRequest)
	assert.Contains(t, body.Error.Fields, "next_sprint_id")

	var got struct {
		Sprint models.Sprint `json:"sprint"`
	}
	h.call(http.MethodGet, fmt.Sprintf("/api/sprints/%d", sp.ID), nil, http.StatusOK, &got)
	assert.Equal(t, models.SprintActive, got.Sprint.State)
}

func TestUpdateSprintActivatesAndDemotes(t *testing.T) {
	h := newHarness(t, Options{})
	p, _ := h.project("Apollo")
	a := h.sprint(p.ID, "A")
	b := h.sprint(p.ID, "B")
	h.call(http.MethodPost, fmt.Sprintf("/api/sprints/%d/start", a.ID), nil, http.StatusOK, nil)

	var out struct {
		Sprint models.Sprint `json:"sprint"`
	}
	h.call(http.MethodPut, fmt.Sprintf("/api/sprints/%d", b.ID),
		gin.H{"state": "active", "start_date": "2026-03-02", "end_date": "2026-03-16"}, http.StatusOK, &out)
	assert.Equal(t, models.SprintActive, out.Sprint.State)
	require.NotNil(t, out.Sprint.StartDate)
	assert.Equal(t, "2026-03-02", out.Sprint.StartDate.Format(dateLayout))

	var list struct {
		Sprints []models.Sprint `json:"sprints"`
	}
	h.call(http.MethodGet, fmt.Sprintf("/api/projects/%d/sprints", p.ID), nil, http.StatusOK, &list)
	states := map[int64]models.SprintState{}
	for _, sp := range list.Sprints {
		states[sp.ID] = sp.State
	}
	assert.Equal(t, map[int64]models.SprintState{a.ID: models.SprintPlanning, b.ID: models.SprintActive}, states)

	body := h.fail(http.MethodPut, fmt.Sprintf("/api/sprints/%d", b.ID), gin.H{"state": "archived"}, http.StatusBadRequest)
	assert.Contains(t, body.Error.Fields, "state")

	body = h.fail(http.MethodPut, fmt.Sprintf("/api/sprints/%d", b.ID), gin.H{"end_date": "2026-01-01"}, http.StatusBadRequest)
	assert.Contains(t, body.Error.Fields, "end_date")

	body = h.fail(http.MethodPut, fmt.Sprintf("/api/sprints/%d", b.ID), gin.H{"start_date": "next week"}, http.StatusBadRequest)
	assert.Contains(t, body.Error.Fields, "start_date")
}

func TestDeleteSprintAndReorder(t *testing.T) {
	h := newHarness(t, Options{})
	p, statuses := h.project("Apollo")
	s1 := h.sprint(p.ID, "S1")
	s2 := h.sprint(p.ID, "S2")
	w := h.item(p.ID, gin.H{"title": "w", "status_id": statuses[0].ID, "sprint_id": s1.ID})

	h.call(http.MethodPut, fmt.Sprintf("/api/projects/%d/sprints/order", p.ID),
		gin.H{"items": []models.RankUpdate{{ID: s1.ID, Rank: 1}, {ID: s2.ID, Rank: 0}}}, http.StatusOK, nil)
	var list struct {
		Sprints []models.Sprint `json:"sprints"`
	}
	h.call(http.MethodGet, fmt.Sprintf("/api/projects/%d/sprints", p.ID), nil, http.StatusOK, &list)
	require.Len(t, list.Sprints, 2)
	assert.Equal(t, s2.ID, list.Sprints[0].ID)

	other, _ := h.project("Other")
	foreign := h.sprint(other.ID, "X")
	h.fail(http.MethodPut, fmt.Sprintf("/api/projects/%d/sprints/order", p.ID),
		gin.H{"items": []models.RankUpdate{{ID: foreign.ID, Rank: 3}}}, http.StatusBadRequest)

	h.call(http.MethodDelete, fmt.Sprintf("/api/sprints/%d", s1.ID), nil, http.StatusOK, nil)
	assert.True(t, h.getItem(w.ID).InBacklog())
	h.fail(http.MethodGet, fmt.Sprintf("/api/sprints/%d/items", s1.ID), nil, http.StatusNotFound)
}
