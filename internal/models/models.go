package models

import "time"

// Project groups the statuses, sprints and work items of one board.
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status is a kanban column. IsDone marks the terminal column used when a
// sprint is completed.
type Status struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	IsDone    bool      `json:"is_done"`
	Rank      int64     `json:"rank"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkItem is a single card on the board. A nil SprintID means the item
// sits in the backlog.
type WorkItem struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	StatusID    int64     `json:"status_id"`
	SprintID    *int64    `json:"sprint_id"`
	Rank        int64     `json:"rank"`
	Priority    Priority  `json:"priority"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InBacklog reports whether the item has no sprint assigned.
func (w WorkItem) InBacklog() bool {
	return w.SprintID == nil
}

// ItemUpdate carries the optional fields of a work item update.
type ItemUpdate struct {
	Title       *string
	Description *string
	Priority    *Priority
	StatusID    *int64
}

// Priority of a work item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriorities enumerates the priorities accepted by the store.
var ValidPriorities = map[Priority]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
	PriorityUrgent: {},
}

// RankUpdate assigns a rank to a status or sprint.
type RankUpdate struct {
	ID   int64 `json:"id"`
	Rank int64 `json:"rank"`
}

// ItemPlacement is one entry of a work item reorder batch. Both the column
// and the rank are overwritten.
type ItemPlacement struct {
	ID       int64 `json:"id"`
	StatusID int64 `json:"status_id"`
	Rank     int64 `json:"rank"`
}

// DefaultStatuses seeds every new project.
var DefaultStatuses = []struct {
	Name   string
	Color  string
	IsDone bool
}{
	{Name: "To Do", Color: "#64748b"},
	{Name: "In Progress", Color: "#2563eb"},
	{Name: "Done", Color: "#059669", IsDone: true},
}
