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

const statusColumns = `id, project_id, name, color, is_done, rank, created_at, updated_at`

func scanStatus(row interface{ Scan(...any) error }) (models.Status, error) {
	var st models.Status
	err := row.Scan(&st.ID, &st.ProjectID, &st.Name, &st.Color, &st.IsDone, &st.Rank, &st.CreatedAt, &st.UpdatedAt)
	return st, err
}

// ListStatuses returns the columns of a project in board order.
func (s *Store) ListStatuses(ctx context.Context, projectID int64) ([]models.Status, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+statusColumns+` FROM statuses WHERE project_id = ? ORDER BY rank, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer rows.Close()

	statuses := []models.Status{}
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

// GetStatus fetches a single status by id.
func (s *Store) GetStatus(ctx context.Context, id int64) (models.Status, error) {
	return getStatus(ctx, s.db, id)
}

func getStatus(ctx context.Context, q querier, id int64) (models.Status, error) {
	st, err := scanStatus(q.QueryRowContext(ctx, `SELECT `+statusColumns+` FROM statuses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Status{}, apperr.NotFound("status", id)
	}
	if err != nil {
		return models.Status{}, fmt.Errorf("get status: %w", err)
	}
	return st, nil
}

// CreateStatus appends a column to the project. When isDone is nil the
// column is treated as terminal only if it is named "Done".
func (s *Store) CreateStatus(ctx context.Context, projectID int64, name, color string, isDone *bool) (models.Status, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Status{}, apperr.Invalid("name", "status name must not be empty")
	}
	if !validColor(color) {
		return models.Status{}, apperr.Invalid("color", "color must be a #rrggbb hex value")
	}
	done := strings.EqualFold(name, "done")
	if isDone != nil {
		done = *isDone
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, projectID); err != nil {
			return err
		}
		rank, err := nextRank(ctx, tx, `SELECT MAX(rank) FROM statuses WHERE project_id = ?`, projectID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO statuses(project_id, name, color, is_done, rank) VALUES(?, ?, ?, ?, ?)`,
			projectID, name, color, done, rank)
		if err != nil {
			return fmt.Errorf("insert status: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return models.Status{}, err
	}
	return s.GetStatus(ctx, id)
}

// UpdateStatus renames, recolors or toggles the done flag of a column. Nil
// arguments leave the field unchanged.
func (s *Store) UpdateStatus(ctx context.Context, id int64, name, color *string, isDone *bool) (models.Status, error) {
	current, err := s.GetStatus(ctx, id)
	if err != nil {
		return models.Status{}, err
	}

	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return models.Status{}, apperr.Invalid("name", "status name must not be empty")
		}
		current.Name = strings.TrimSpace(*name)
	}
	if color != nil {
		if !validColor(*color) {
			return models.Status{}, apperr.Invalid("color", "color must be a #rrggbb hex value")
		}
		current.Color = *color
	}
	if isDone != nil {
		current.IsDone = *isDone
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE statuses SET name = ?, color = ?, is_done = ? WHERE id = ?`,
		current.Name, current.Color, current.IsDone, id); err != nil {
		return models.Status{}, fmt.Errorf("update status: %w", err)
	}
	return s.GetStatus(ctx, id)
}

// ReorderStatuses writes the submitted rank of every listed column. Ranks
// are applied as given: gaps and duplicates are the caller's business.
func (s *Store) ReorderStatuses(ctx context.Context, projectID int64, items []models.RankUpdate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return applyRanks(ctx, tx, "statuses", "status", projectID, items)
	})
}

// DeleteStatus removes an empty column. Remaining ranks are not compacted.
func (s *Store) DeleteStatus(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getStatus(ctx, tx, id); err != nil {
			return err
		}
		var count int64
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_items WHERE status_id = ?`, id).Scan(&count); err != nil {
			return fmt.Errorf("count status items: %w", err)
		}
		if count > 0 {
			return apperr.Conflict("status %d still has %d work item(s); move them first", id, count)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM statuses WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete status: %w", err)
		}
		return nil
	})
}

// applyRanks sets rank on rows of table that belong to projectID. An id
// outside the project fails the whole batch.
func applyRanks(ctx context.Context, tx *sql.Tx, table, entity string, projectID int64, items []models.RankUpdate) error {
	query := fmt.Sprintf(`UPDATE %s SET rank = ? WHERE id = ? AND project_id = ?`, table)
	for i, item := range items {
		res, err := tx.ExecContext(ctx, query, item.Rank, item.ID, projectID)
		if err != nil {
			return fmt.Errorf("update %s rank: %w", table, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperr.Invalid(fmt.Sprintf("items[%d].id", i), "%s %d does not exist in project %d", entity, item.ID, projectID)
		}
	}
	return nil
}
