package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

const itemColumns = `w.id, w.project_id, w.status_id, w.sprint_id, w.rank, w.priority, w.title, w.description, w.created_at, w.updated_at`

func scanItem(row interface{ Scan(...any) error }) (models.WorkItem, error) {
	var (
		w        models.WorkItem
		sprintID sql.NullInt64
		priority string
	)
	err := row.Scan(&w.ID, &w.ProjectID, &w.StatusID, &sprintID, &w.Rank, &priority, &w.Title, &w.Description, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return models.WorkItem{}, err
	}
	w.SprintID = idPtr(sprintID)
	w.Priority = models.Priority(priority)
	return w, nil
}

func queryItems(ctx context.Context, q querier, query string, args ...any) ([]models.WorkItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	items := []models.WorkItem{}
	for rows.Next() {
		w, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work item: %w", err)
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

// ListItems returns the kanban view of a project: items grouped by column
// in column order, then by rank.
func (s *Store) ListItems(ctx context.Context, projectID int64) ([]models.WorkItem, error) {
	return queryItems(ctx, s.db, `SELECT `+itemColumns+`
        FROM work_items w JOIN statuses st ON st.id = w.status_id
        WHERE w.project_id = ? ORDER BY st.rank, w.status_id, w.rank, w.id`, projectID)
}

// ListBacklog returns the items of a project without a sprint, by rank.
func (s *Store) ListBacklog(ctx context.Context, projectID int64) ([]models.WorkItem, error) {
	return queryItems(ctx, s.db, `SELECT `+itemColumns+` FROM work_items w
        WHERE w.project_id = ? AND w.sprint_id IS NULL ORDER BY w.rank, w.id`, projectID)
}

// ListSprintItems returns the items assigned to a sprint, by rank.
func (s *Store) ListSprintItems(ctx context.Context, sprintID int64) ([]models.WorkItem, error) {
	if _, err := s.GetSprint(ctx, sprintID); err != nil {
		return nil, err
	}
	return queryItems(ctx, s.db, `SELECT `+itemColumns+` FROM work_items w
        WHERE w.sprint_id = ? ORDER BY w.rank, w.id`, sprintID)
}

// GetItem retrieves a work item by id.
func (s *Store) GetItem(ctx context.Context, id int64) (models.WorkItem, error) {
	return getItem(ctx, s.db, id)
}

func getItem(ctx context.Context, q querier, id int64) (models.WorkItem, error) {
	w, err := scanItem(q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items w WHERE w.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.WorkItem{}, apperr.NotFound("work item", id)
	}
	if err != nil {
		return models.WorkItem{}, fmt.Errorf("get work item: %w", err)
	}
	return w, nil
}

// CreateItem inserts a work item at the bottom of its status column.
func (s *Store) CreateItem(ctx context.Context, w models.WorkItem) (models.WorkItem, error) {
	w.Title = strings.TrimSpace(w.Title)
	if w.Title == "" {
		return models.WorkItem{}, apperr.Invalid("title", "work item title must not be empty")
	}
	if w.Priority == "" {
		w.Priority = models.PriorityMedium
	}
	if _, ok := models.ValidPriorities[w.Priority]; !ok {
		return models.WorkItem{}, apperr.Invalid("priority", "unknown priority %q", w.Priority)
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, w.ProjectID); err != nil {
			return err
		}
		if err := checkStatusInProject(ctx, tx, w.ProjectID, w.StatusID, "status_id"); err != nil {
			return err
		}
		if w.SprintID != nil {
			if err := checkSprintAssignable(ctx, tx, w.ProjectID, *w.SprintID, "sprint_id"); err != nil {
				return err
			}
		}
		rank, err := nextRank(ctx, tx, `SELECT MAX(rank) FROM work_items WHERE project_id = ? AND status_id = ?`, w.ProjectID, w.StatusID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO work_items(project_id, status_id, sprint_id, rank, priority, title, description) VALUES(?, ?, ?, ?, ?, ?, ?)`,
			w.ProjectID, w.StatusID, nullableID(w.SprintID), rank, string(w.Priority), w.Title, strings.TrimSpace(w.Description))
		if err != nil {
			return fmt.Errorf("insert work item: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return models.WorkItem{}, err
	}
	return s.GetItem(ctx, id)
}

// UpdateItem updates item fields and moves the item to the bottom of a new
// column when its status changes.
func (s *Store) UpdateItem(ctx context.Context, id int64, upd models.ItemUpdate) (models.WorkItem, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getItem(ctx, tx, id)
		if err != nil {
			return err
		}

		if upd.Title != nil {
			if strings.TrimSpace(*upd.Title) == "" {
				return apperr.Invalid("title", "work item title must not be empty")
			}
			current.Title = strings.TrimSpace(*upd.Title)
		}
		if upd.Description != nil {
			current.Description = strings.TrimSpace(*upd.Description)
		}
		if upd.Priority != nil {
			if _, ok := models.ValidPriorities[*upd.Priority]; !ok {
				return apperr.Invalid("priority", "unknown priority %q", *upd.Priority)
			}
			current.Priority = *upd.Priority
		}
		if upd.StatusID != nil && *upd.StatusID != current.StatusID {
			if err := checkStatusInProject(ctx, tx, current.ProjectID, *upd.StatusID, "status_id"); err != nil {
				return err
			}
			rank, err := nextRank(ctx, tx, `SELECT MAX(rank) FROM work_items WHERE project_id = ? AND status_id = ?`, current.ProjectID, *upd.StatusID)
			if err != nil {
				return err
			}
			current.StatusID, current.Rank = *upd.StatusID, rank
		}

		_, err = tx.ExecContext(ctx, `UPDATE work_items SET title = ?, description = ?, priority = ?, status_id = ?, rank = ? WHERE id = ?`,
			current.Title, current.Description, string(current.Priority), current.StatusID, current.Rank, id)
		if err != nil {
			return fmt.Errorf("update work item: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.WorkItem{}, err
	}
	return s.GetItem(ctx, id)
}

// DeleteItem removes a work item by id. Nothing else is touched.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM work_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete work item: %w", err)
	}
	return expectAffected(res, "work item", id)
}

// checkStatusInProject reports a validation error on field unless statusID
// is a column of projectID.
func checkStatusInProject(ctx context.Context, q querier, projectID, statusID int64, field string) error {
	st, err := getStatus(ctx, q, statusID)
	if apperr.Is(err, apperr.CodeNotFound) || (err == nil && st.ProjectID != projectID) {
		return apperr.Invalid(field, "status %d does not exist in project %d", statusID, projectID)
	}
	return err
}

// checkSprintAssignable reports a validation error on field unless sprintID
// is an open sprint of projectID.
func checkSprintAssignable(ctx context.Context, q querier, projectID, sprintID int64, field string) error {
	sp, err := getSprint(ctx, q, sprintID)
	if apperr.Is(err, apperr.CodeNotFound) || (err == nil && sp.ProjectID != projectID) {
		return apperr.Invalid(field, "sprint %d does not exist in project %d", sprintID, projectID)
	}
	if err != nil {
		return err
	}
	if sp.State == models.SprintCompleted {
		return apperr.Invalid(field, "sprint %d is completed", sprintID)
	}
	return nil
}
