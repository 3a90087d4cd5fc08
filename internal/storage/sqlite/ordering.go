package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

// ReorderItems applies a batch of (status, rank) overwrites computed by the
// client. Every entry is validated against the project and the batch is
// applied all-or-nothing. Rows are written unconditionally, so two
// overlapping batches resolve as last-write-wins per row.
func (s *Store) ReorderItems(ctx context.Context, projectID int64, items []models.ItemPlacement) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		known := map[int64]bool{}
		for i, p := range items {
			if !known[p.StatusID] {
				if err := checkStatusInProject(ctx, tx, projectID, p.StatusID, fmt.Sprintf("items[%d].status_id", i)); err != nil {
					return err
				}
				known[p.StatusID] = true
			}

			res, err := tx.ExecContext(ctx, `UPDATE work_items SET status_id = ?, rank = ? WHERE id = ? AND project_id = ?`,
				p.StatusID, p.Rank, p.ID, projectID)
			if err != nil {
				return fmt.Errorf("reorder work item %d: %w", p.ID, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return apperr.Invalid(fmt.Sprintf("items[%d].id", i), "work item %d does not exist in project %d", p.ID, projectID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("work items reordered", slog.Int64("project_id", projectID), slog.Int("count", len(items)))
	return nil
}

// PlaceItem moves an item to position index of a status column and
// recomputes dense ranks for the destination column and, when the item
// changed column, for the column it left.
func (s *Store) PlaceItem(ctx context.Context, itemID, statusID int64, index int) (models.WorkItem, error) {
	if index < 0 {
		return models.WorkItem{}, apperr.Invalid("index", "index must not be negative")
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		item, err := getItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if err := checkStatusInProject(ctx, tx, item.ProjectID, statusID, "status_id"); err != nil {
			return err
		}

		const column = `SELECT id FROM work_items WHERE project_id = ? AND status_id = ? AND id <> ? ORDER BY rank, id`
		dest, err := selectIDs(ctx, tx, column, item.ProjectID, statusID, itemID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE work_items SET status_id = ? WHERE id = ?`, statusID, itemID); err != nil {
			return fmt.Errorf("move work item %d: %w", itemID, err)
		}
		if err := rewriteRanks(ctx, tx, insertAt(dest, itemID, index)); err != nil {
			return err
		}
		if item.StatusID == statusID {
			return nil
		}
		src, err := selectIDs(ctx, tx, column, item.ProjectID, item.StatusID, itemID)
		if err != nil {
			return err
		}
		return rewriteRanks(ctx, tx, src)
	})
	if err != nil {
		return models.WorkItem{}, err
	}
	return s.GetItem(ctx, itemID)
}

// PlaceInBucket is PlaceItem for the sprint board: it assigns the item to
// sprintID (nil for the backlog) at position index and recomputes dense
// ranks for the destination bucket and the bucket it left.
func (s *Store) PlaceInBucket(ctx context.Context, itemID int64, sprintID *int64, index int) (models.WorkItem, error) {
	if index < 0 {
		return models.WorkItem{}, apperr.Invalid("index", "index must not be negative")
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		item, err := getItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if sprintID != nil {
			if err := checkSprintAssignable(ctx, tx, item.ProjectID, *sprintID, "sprint_id"); err != nil {
				return err
			}
		}

		dest, err := bucketIDs(ctx, tx, item.ProjectID, sprintID, itemID)
		if err != nil {
			return err
		}
		if err := setItemSprint(ctx, tx, itemID, sprintID); err != nil {
			return err
		}
		if err := rewriteRanks(ctx, tx, insertAt(dest, itemID, index)); err != nil {
			return err
		}
		if sameBucket(item.SprintID, sprintID) {
			return nil
		}
		src, err := bucketIDs(ctx, tx, item.ProjectID, item.SprintID, itemID)
		if err != nil {
			return err
		}
		return rewriteRanks(ctx, tx, src)
	})
	if err != nil {
		return models.WorkItem{}, err
	}
	return s.GetItem(ctx, itemID)
}

// setItemSprint assigns an item to a sprint, or to the backlog when sprintID
// is nil. The rank is left alone.
func setItemSprint(ctx context.Context, q querier, itemID int64, sprintID *int64) error {
	res, err := q.ExecContext(ctx, `UPDATE work_items SET sprint_id = ? WHERE id = ?`, nullableID(sprintID), itemID)
	if err != nil {
		return fmt.Errorf("move work item %d: %w", itemID, err)
	}
	return expectAffected(res, "work item", itemID)
}

func bucketIDs(ctx context.Context, q querier, projectID int64, sprintID *int64, exclude int64) ([]int64, error) {
	if sprintID == nil {
		return selectIDs(ctx, q, `SELECT id FROM work_items WHERE project_id = ? AND sprint_id IS NULL AND id <> ? ORDER BY rank, id`,
			projectID, exclude)
	}
	return selectIDs(ctx, q, `SELECT id FROM work_items WHERE project_id = ? AND sprint_id = ? AND id <> ? ORDER BY rank, id`,
		projectID, *sprintID, exclude)
}

func selectIDs(ctx context.Context, q querier, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// rewriteRanks assigns ranks 0..n-1 in slice order.
func rewriteRanks(ctx context.Context, tx *sql.Tx, ids []int64) error {
	for rank, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE work_items SET rank = ? WHERE id = ?`, rank, id); err != nil {
			return fmt.Errorf("rank work item %d: %w", id, err)
		}
	}
	return nil
}

// insertAt returns ids with id inserted at index, clamped to the end.
func insertAt(ids []int64, id int64, index int) []int64 {
	if index > len(ids) {
		index = len(ids)
	}
	out := make([]int64, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	return append(out, ids[index:]...)
}

func sameBucket(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
