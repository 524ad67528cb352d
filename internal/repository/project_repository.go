package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// ProjectRepository handles user to project assignments
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Assign links a user to a project; assigning twice is a no-op
func (r *ProjectRepository) Assign(ctx context.Context, userID string, projectID int64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_projects (user_id, project_id) VALUES (?, ?)",
		userID, projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to assign project %d to user %s: %w", projectID, userID, err)
	}
	return nil
}

// Unassign removes a user from a project
func (r *ProjectRepository) Unassign(ctx context.Context, userID string, projectID int64) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM user_projects WHERE user_id = ? AND project_id = ?",
		userID, projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to unassign project %d from user %s: %w", projectID, userID, err)
	}
	return nil
}

// ProjectIDs returns the projects a user belongs to
func (r *ProjectRepository) ProjectIDs(ctx context.Context, userID string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT project_id FROM user_projects WHERE user_id = ? ORDER BY project_id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
