package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

const projectColumns = `id, name, color, created_at, updated_at`

// ListProjects retrieves all projects ordered by creation date.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Color, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject persists a new project and seeds its default status columns.
func (s *Store) CreateProject(ctx context.Context, name, color string) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, apperr.Invalid("name", "project name must not be empty")
	}
	if color == "" {
		color = randomPaletteColor()
	} else if !validColor(color) {
		return models.Project{}, apperr.Invalid("color", "color must be a #rrggbb hex value")
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO projects(name, color) VALUES(?, ?)`, name, color)
		if err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("project %q already exists", name)
			}
			return fmt.Errorf("insert project: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("project id: %w", err)
		}
		for rank, st := range models.DefaultStatuses {
			if _, err := tx.ExecContext(ctx, `INSERT INTO statuses(project_id, name, color, is_done, rank) VALUES(?, ?, ?, ?, ?)`,
				id, st.Name, st.Color, st.IsDone, rank); err != nil {
				return fmt.Errorf("seed status %q: %w", st.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, id)
}

// GetProject fetches a single project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	return getProject(ctx, s.db, id)
}

func getProject(ctx context.Context, q querier, id int64) (models.Project, error) {
	var p models.Project
	err := q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Color, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, apperr.NotFound("project", id)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// UpdateProject renames a project and optionally changes its color.
func (s *Store) UpdateProject(ctx context.Context, id int64, name, color string) (models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Project{}, apperr.Invalid("name", "project name must not be empty")
	}
	if color == "" {
		color = randomPaletteColor()
	} else if !validColor(color) {
		return models.Project{}, apperr.Invalid("color", "color must be a #rrggbb hex value")
	}

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, color = ? WHERE id = ?`, name, color, id)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Project{}, apperr.Conflict("project %q already exists", name)
		}
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	if err := expectAffected(res, "project", id); err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project along with its statuses, sprints and items.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return expectAffected(res, "project", id)
}

func expectAffected(res sql.Result, entity string, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}

// isUniqueViolation matches the constraint message of both drivers.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func validColor(c string) bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	for _, r := range c[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func randomPaletteColor() string {
	palette := []string{
		"#2563eb", // blue-600
		"#7c3aed", // violet-600
		"#dc2626", // red-600
		"#059669", // green-600
		"#ea580c", // orange-600
		"#d97706", // amber-600
		"#0ea5e9", // sky-500
	}
	return palette[rand.Intn(len(palette))]
}
