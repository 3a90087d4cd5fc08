package models

import (
	"fmt"
	"time"
)

// SprintState is the lifecycle state of a sprint.
type SprintState string

const (
	SprintPlanning  SprintState = "planning"
	SprintActive    SprintState = "active"
	SprintCompleted SprintState = "completed"
)

// Valid reports whether s is a known state.
func (s SprintState) Valid() bool {
	switch s {
	case SprintPlanning, SprintActive, SprintCompleted:
		return true
	}
	return false
}

// CanTransition reports whether a sprint may move from s to next.
//
//	planning  -> active     (start)
//	active    -> completed  (complete)
//	active    -> planning   (another sprint was started)
//
// completed is terminal.
func (s SprintState) CanTransition(next SprintState) bool {
	switch s {
	case SprintPlanning:
		return next == SprintActive
	case SprintActive:
		return next == SprintCompleted || next == SprintPlanning
	}
	return false
}

// Sprint is a time-boxed container of work items.
type Sprint struct {
	ID          int64       `json:"id"`
	ProjectID   int64       `json:"project_id"`
	Name        string      `json:"name"`
	Goal        string      `json:"goal"`
	StartDate   *time.Time  `json:"start_date"`
	EndDate     *time.Time  `json:"end_date"`
	State       SprintState `json:"state"`
	Rank        int64       `json:"rank"`
	CompletedAt *time.Time  `json:"completed_at"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// MovePolicy decides where unfinished items go when a sprint completes.
type MovePolicy string

const (
	MoveToBacklog    MovePolicy = "backlog"
	MoveToNextSprint MovePolicy = "next_sprint"
)

// ParseMovePolicy validates a policy name. An empty name means backlog.
func ParseMovePolicy(raw string) (MovePolicy, error) {
	switch MovePolicy(raw) {
	case "", MoveToBacklog:
		return MoveToBacklog, nil
	case MoveToNextSprint:
		return MoveToNextSprint, nil
	}
	return "", fmt.Errorf("unknown move policy %q", raw)
}

// SprintInput describes a sprint to create.
type SprintInput struct {
	Name      string
	Goal      string
	StartDate *time.Time
	EndDate   *time.Time
}

// SprintUpdate carries the optional fields of a sprint update. Nil fields
// are left untouched; ClearDates removes both dates.
type SprintUpdate struct {
	Name       *string
	Goal       *string
	StartDate  *time.Time
	EndDate    *time.Time
	ClearDates bool
	State      *SprintState
}

// Completion is the result of completing a sprint.
type Completion struct {
	Sprint     Sprint     `json:"sprint"`
	Policy     MovePolicy `json:"move_policy"`
	MovedTo    *int64     `json:"moved_to"`
	MovedItems []int64    `json:"moved_items"`
}
