package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

const sprintColumns = `id, project_id, name, goal, start_date, end_date, state, rank, completed_at, created_at, updated_at`

func scanSprint(row interface{ Scan(...any) error }) (models.Sprint, error) {
	var (
		sp                        models.Sprint
		state                     string
		start, end, completedTime sql.NullTime
	)
	err := row.Scan(&sp.ID, &sp.ProjectID, &sp.Name, &sp.Goal, &start, &end, &state, &sp.Rank, &completedTime, &sp.CreatedAt, &sp.UpdatedAt)
	if err != nil {
		return models.Sprint{}, err
	}
	sp.State = models.SprintState(state)
	sp.StartDate = timePtr(start)
	sp.EndDate = timePtr(end)
	sp.CompletedAt = timePtr(completedTime)
	return sp, nil
}

// ListSprints returns the sprints of a project ordered by rank.
func (s *Store) ListSprints(ctx context.Context, projectID int64) ([]models.Sprint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE project_id = ? ORDER BY rank, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	defer rows.Close()

	sprints := []models.Sprint{}
	for rows.Next() {
		sp, err := scanSprint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sprint: %w", err)
		}
		sprints = append(sprints, sp)
	}
	return sprints, rows.Err()
}

// GetSprint fetches a sprint by id.
func (s *Store) GetSprint(ctx context.Context, id int64) (models.Sprint, error) {
	return getSprint(ctx, s.db, id)
}

func getSprint(ctx context.Context, q querier, id int64) (models.Sprint, error) {
	sp, err := scanSprint(q.QueryRowContext(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Sprint{}, apperr.NotFound("sprint", id)
	}
	if err != nil {
		return models.Sprint{}, fmt.Errorf("get sprint: %w", err)
	}
	return sp, nil
}

// CreateSprint appends a sprint in the planning state.
func (s *Store) CreateSprint(ctx context.Context, projectID int64, in models.SprintInput) (models.Sprint, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Sprint{}, apperr.Invalid("name", "sprint name must not be empty")
	}
	if err := checkDates(in.StartDate, in.EndDate); err != nil {
		return models.Sprint{}, err
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, projectID); err != nil {
			return err
		}
		rank, err := nextRank(ctx, tx, `SELECT MAX(rank) FROM sprints WHERE project_id = ?`, projectID)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO sprints(project_id, name, goal, start_date, end_date, state, rank) VALUES(?, ?, ?, ?, ?, ?, ?)`,
			projectID, name, strings.TrimSpace(in.Goal), nullableTime(in.StartDate), nullableTime(in.EndDate), string(models.SprintPlanning), rank)
		if err != nil {
			return fmt.Errorf("insert sprint: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return models.Sprint{}, err
	}
	return s.GetSprint(ctx, id)
}

// UpdateSprint changes sprint details. Requesting the active state starts
// the sprint and parks any other active sprint of the project back in
// planning; requesting planning deactivates it. Completion has its own
// operation because it redistributes work.
func (s *Store) UpdateSprint(ctx context.Context, id int64, upd models.SprintUpdate) (models.Sprint, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sp, err := getSprint(ctx, tx, id)
		if err != nil {
			return err
		}

		if upd.Name != nil {
			if strings.TrimSpace(*upd.Name) == "" {
				return apperr.Invalid("name", "sprint name must not be empty")
			}
			sp.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Goal != nil {
			sp.Goal = strings.TrimSpace(*upd.Goal)
		}
		if upd.ClearDates {
			sp.StartDate, sp.EndDate = nil, nil
		}
		if upd.StartDate != nil {
			sp.StartDate = upd.StartDate
		}
		if upd.EndDate != nil {
			sp.EndDate = upd.EndDate
		}
		if err := checkDates(sp.StartDate, sp.EndDate); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE sprints SET name = ?, goal = ?, start_date = ?, end_date = ? WHERE id = ?`,
			sp.Name, sp.Goal, nullableTime(sp.StartDate), nullableTime(sp.EndDate), id); err != nil {
			return fmt.Errorf("update sprint: %w", err)
		}

		if upd.State == nil || *upd.State == sp.State {
			return nil
		}
		switch next := *upd.State; {
		case !next.Valid():
			return apperr.Invalid("state", "unknown sprint state %q", next)
		case next == models.SprintCompleted:
			return apperr.Invalid("state", "use the complete action to finish a sprint")
		case !sp.State.CanTransition(next):
			return apperr.InvalidState("sprint %d cannot move from %s to %s", id, sp.State, next)
		case next == models.SprintActive:
			return s.activate(ctx, tx, sp)
		default:
			_, err := tx.ExecContext(ctx, `UPDATE sprints SET state = ? WHERE id = ?`, string(models.SprintPlanning), id)
			return err
		}
	})
	if err != nil {
		return models.Sprint{}, err
	}
	return s.GetSprint(ctx, id)
}

// ReorderSprints writes the submitted rank of every listed sprint.
func (s *Store) ReorderSprints(ctx context.Context, projectID int64, items []models.RankUpdate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return applyRanks(ctx, tx, "sprints", "sprint", projectID, items)
	})
}

// DeleteSprint releases the sprint's work items to the backlog and removes
// the sprint.
func (s *Store) DeleteSprint(ctx context.Context, id int64) error {
	var released int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getSprint(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE work_items SET sprint_id = NULL WHERE sprint_id = ?`, id)
		if err != nil {
			return fmt.Errorf("release sprint items: %w", err)
		}
		if released, err = res.RowsAffected(); err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, `DELETE FROM sprints WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete sprint: %w", err)
		}
		return expectAffected(res, "sprint", id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("sprint deleted", slog.Int64("sprint_id", id), slog.Int64("released_items", released))
	return nil
}

func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return apperr.Invalid("end_date", "end date must not be before start date")
	}
	return nil
}
