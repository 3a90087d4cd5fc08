package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

// StartSprint moves a planning sprint to active. Any other active sprint of
// the same project goes back to planning in the same transaction.
func (s *Store) StartSprint(ctx context.Context, id int64) (models.Sprint, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sp, err := getSprint(ctx, tx, id)
		if err != nil {
			return err
		}
		if sp.State != models.SprintPlanning {
			return apperr.InvalidState("sprint %d is %s; only a planning sprint can be started", id, sp.State)
		}
		return s.activate(ctx, tx, sp)
	})
	if err != nil {
		return models.Sprint{}, err
	}
	return s.GetSprint(ctx, id)
}

// activate demotes every other active sprint of the project and then marks
// sp active. The order matters for idx_sprints_one_active.
func (s *Store) activate(ctx context.Context, tx *sql.Tx, sp models.Sprint) error {
	res, err := tx.ExecContext(ctx, `UPDATE sprints SET state = ? WHERE project_id = ? AND state = ? AND id <> ?`,
		string(models.SprintPlanning), sp.ProjectID, string(models.SprintActive), sp.ID)
	if err != nil {
		return fmt.Errorf("deactivate sprints: %w", err)
	}
	demoted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE sprints SET state = ? WHERE id = ?`, string(models.SprintActive), sp.ID); err != nil {
		return fmt.Errorf("activate sprint: %w", err)
	}
	s.logger.Info("sprint started",
		slog.Int64("project_id", sp.ProjectID),
		slog.Int64("sprint_id", sp.ID),
		slog.Int64("deactivated", demoted),
	)
	return nil
}

// CompleteSprint finishes an active sprint. Items whose status is not a
// done column move to nextSprintID when policy is next_sprint and a target
// is given, and to the backlog otherwise. Done items keep their sprint.
func (s *Store) CompleteSprint(ctx context.Context, id int64, policy models.MovePolicy, nextSprintID *int64) (models.Completion, error) {
	if policy != models.MoveToBacklog && policy != models.MoveToNextSprint {
		return models.Completion{}, apperr.Invalid("move_policy", "unknown move policy %q", policy)
	}

	result := models.Completion{Policy: policy, MovedItems: []int64{}}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sp, err := getSprint(ctx, tx, id)
		if err != nil {
			return err
		}
		if sp.State != models.SprintActive {
			return apperr.InvalidState("sprint %d is %s; only an active sprint can be completed", id, sp.State)
		}

		var target *int64
		if policy == models.MoveToNextSprint && nextSprintID != nil {
			if *nextSprintID == id {
				return apperr.Invalid("next_sprint_id", "next sprint must differ from the completed sprint")
			}
			if err := checkSprintAssignable(ctx, tx, sp.ProjectID, *nextSprintID, "next_sprint_id"); err != nil {
				return err
			}
			target = nextSprintID
		}

		unfinished, err := selectIDs(ctx, tx, `SELECT w.id FROM work_items w JOIN statuses st ON st.id = w.status_id
            WHERE w.sprint_id = ? AND st.is_done = 0 ORDER BY w.rank, w.id`, id)
		if err != nil {
			return err
		}
		for _, itemID := range unfinished {
			if err := setItemSprint(ctx, tx, itemID, target); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE sprints SET state = ?, completed_at = ? WHERE id = ?`,
			string(models.SprintCompleted), time.Now().UTC(), id); err != nil {
			return fmt.Errorf("complete sprint: %w", err)
		}
		result.MovedTo = target
		if unfinished != nil {
			result.MovedItems = unfinished
		}
		return nil
	})
	if err != nil {
		return models.Completion{}, err
	}

	if result.Sprint, err = s.GetSprint(ctx, id); err != nil {
		return models.Completion{}, err
	}
	s.logger.Info("sprint completed",
		slog.Int64("project_id", result.Sprint.ProjectID),
		slog.Int64("sprint_id", id),
		slog.String("policy", string(policy)),
		slog.Int("moved_items", len(result.MovedItems)),
	)
	return result, nil
}

// MoveItem assigns a work item to a sprint, or to the backlog when sprintID
// is nil. Ranks are not recomputed; callers that care about order follow up
// with a reorder batch or use PlaceInBucket.
func (s *Store) MoveItem(ctx context.Context, itemID int64, sprintID *int64) (models.WorkItem, error) {
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
		return setItemSprint(ctx, tx, itemID, sprintID)
	})
	if err != nil {
		return models.WorkItem{}, err
	}
	return s.GetItem(ctx, itemID)
}
