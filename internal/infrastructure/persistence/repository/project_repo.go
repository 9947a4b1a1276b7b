package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/infrastructure/persistence/sqlite"
)

const projectColumns = `id, code, contract_id, name, description, budget, start_date, end_date,
	progress, status, manager_id, created_by, created_at, updated_at`

// ProjectRepository implements port.ProjectRepository
type ProjectRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sqlite.DB, logger *zap.Logger) port.ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

// Create inserts a new project and sets its ID
func (r *ProjectRepository) Create(ctx context.Context, p *entity.Project) error {
	query := `
		INSERT INTO projects (
			code, contract_id, name, description, budget, start_date, end_date,
			progress, status, manager_id, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		p.Code, p.ContractID, p.Name, p.Description, p.Budget, p.StartDate, p.EndDate,
		p.Progress, p.Status, p.ManagerID, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create project", zap.String("code", p.Code), zap.Error(err))
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	p.ID = id
	return nil
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*entity.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`

	p, err := scanProject(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, entity.KindProject, id)
	}
	return p, nil
}

// Update persists the mutable fields of a project
func (r *ProjectRepository) Update(ctx context.Context, p *entity.Project) error {
	query := `
		UPDATE projects
		SET name = ?, description = ?, budget = ?, start_date = ?, end_date = ?,
			progress = ?, status = ?, manager_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		p.Name, p.Description, p.Budget, p.StartDate, p.EndDate,
		p.Progress, p.Status, p.ManagerID, p.UpdatedAt, p.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update project", zap.Int64("id", p.ID), zap.Error(err))
		return fmt.Errorf("failed to update project: %w", err)
	}
	return checkAffected(result, entity.KindProject, p.ID)
}

// List returns projects matching the filter ordered by ID
func (r *ProjectRepository) List(ctx context.Context, filter port.ProjectFilter) ([]*entity.Project, error) {
	var c conditions
	c.addInt64("contract_id", filter.ContractID)
	c.addString("status", filter.Status)

	query := `SELECT ` + projectColumns + ` FROM projects` + c.where() + ` ORDER BY id`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var result []*entity.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanProject(s rowScanner) (*entity.Project, error) {
	var p entity.Project
	err := s.Scan(
		&p.ID, &p.Code, &p.ContractID, &p.Name, &p.Description, &p.Budget, &p.StartDate, &p.EndDate,
		&p.Progress, &p.Status, &p.ManagerID, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Verify interface compliance
var _ port.ProjectRepository = (*ProjectRepository)(nil)
