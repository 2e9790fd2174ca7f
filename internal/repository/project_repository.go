// internal/repository/project_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eisenflow/eisenflow/internal/models"
)

type ProjectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, user_id, remote_id, name, color, sort_order,
	archived, created_at, updated_at`

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := r.db.GetContext(ctx, &p,
		r.db.Rebind(`SELECT `+projectColumns+` FROM projects WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return &p, nil
}

func (r *ProjectRepository) FindByRemoteID(ctx context.Context, userID, remoteID string) (*models.Project, error) {
	var p models.Project
	err := r.db.GetContext(ctx, &p,
		r.db.Rebind(`SELECT `+projectColumns+` FROM projects WHERE user_id = ? AND remote_id = ?`),
		userID, remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find project by remote id %s: %w", remoteID, err)
	}
	return &p, nil
}

func (r *ProjectRepository) ListByUser(ctx context.Context, userID string) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.SelectContext(ctx, &projects,
		r.db.Rebind(`SELECT `+projectColumns+` FROM projects WHERE user_id = ? ORDER BY sort_order ASC`),
		userID)
	if err != nil {
		return nil, fmt.Errorf("list projects for user %s: %w", userID, err)
	}
	return projects, nil
}

// UpsertFromSnapshot creates or refreshes the local mirror of one remote
// project and returns it. Pull-sync is the only caller; projects are never
// created locally.
func (r *ProjectRepository) UpsertFromSnapshot(ctx context.Context, userID string, snap models.ProjectSnapshot) (*models.Project, error) {
	now := time.Now().UTC()

	existing, err := r.FindByRemoteID(ctx, userID, snap.RemoteID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if existing == nil {
		p := &models.Project{
			ID:        uuid.NewString(),
			UserID:    userID,
			RemoteID:  sql.NullString{String: snap.RemoteID, Valid: true},
			Name:      snap.Name,
			Color:     snap.Color,
			SortOrder: snap.SortOrder,
			Archived:  snap.Archived,
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, err := r.db.NamedExecContext(ctx,
			`INSERT INTO projects (`+projectColumns+`) VALUES (
				:id, :user_id, :remote_id, :name, :color, :sort_order,
				:archived, :created_at, :updated_at)`, p)
		if err != nil {
			return nil, fmt.Errorf("insert project: %w", err)
		}
		return p, nil
	}

	existing.Name = snap.Name
	existing.Color = snap.Color
	existing.SortOrder = snap.SortOrder
	existing.Archived = snap.Archived
	existing.UpdatedAt = now

	_, err = r.db.NamedExecContext(ctx,
		`UPDATE projects SET name = :name, color = :color,
			sort_order = :sort_order, archived = :archived,
			updated_at = :updated_at WHERE id = :id`, existing)
	if err != nil {
		return nil, fmt.Errorf("update project %s: %w", existing.ID, err)
	}
	return existing, nil
}
