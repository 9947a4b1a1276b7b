package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/lifecycle"
)

// CreateProjectInput holds the fields of a new project
type CreateProjectInput struct {
	ContractID  int64           `validate:"gt=0"`
	Name        string          `validate:"required,max=200"`
	Description string          `validate:"max=2000"`
	Budget      decimal.Decimal `validate:"gte=0"`
	StartDate   time.Time
	EndDate     time.Time
	ManagerID   int64 `validate:"gte=0"`
	CreatedBy   int64 `validate:"gte=0"`
}

// ProjectService manages delivery projects
type ProjectService interface {
	Create(ctx context.Context, input CreateProjectInput) (*entity.Project, error)
	Get(ctx context.Context, id int64) (*entity.Project, error)
	SetProgress(ctx context.Context, id int64, progress int) (*entity.Project, error)
	StartTesting(ctx context.Context, id int64) (*entity.Project, error)
	Suspend(ctx context.Context, id int64) (*entity.Project, error)
	Resume(ctx context.Context, id int64) (*entity.Project, error)
	Cancel(ctx context.Context, id int64) (*entity.Project, error)
}

type projectService struct {
	base
	repo      port.ProjectRepository
	contracts port.ContractRepository
}

// NewProjectService creates a new ProjectService
func NewProjectService(repo port.ProjectRepository, contracts port.ContractRepository, deps Deps) ProjectService {
	return &projectService{base: newBase(deps), repo: repo, contracts: contracts}
}

// Create stores a new project in PLANNING with zero progress.
// The contract must exist.
func (s *projectService) Create(ctx context.Context, input CreateProjectInput) (*entity.Project, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}

	p := &entity.Project{
		ContractID:  input.ContractID,
		Name:        input.Name,
		Description: input.Description,
		Budget:      input.Budget,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		ManagerID:   input.ManagerID,
		CreatedBy:   input.CreatedBy,
	}
	lifecycle.NewProject(p, s.now())

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.contracts.GetByID(ctx, input.ContractID); err != nil {
			return err
		}
		code, err := s.nextCode(ctx, entity.KindProject)
		if err != nil {
			return err
		}
		p.Code = code
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		s.logger.Error("Failed to create project", "contract_id", input.ContractID, "error", err)
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.Info("Project created", "id", p.ID, "code", p.Code, "contract_id", p.ContractID)
	s.publish(ctx, createdEvent(ctx, entity.KindProject, p.ID, p.Code, p.Status))
	return p, nil
}

// Get returns a project by id
func (s *projectService) Get(ctx context.Context, id int64) (*entity.Project, error) {
	return s.repo.GetByID(ctx, id)
}

// SetProgress records progress and derives the project status from it
func (s *projectService) SetProgress(ctx context.Context, id int64, progress int) (*entity.Project, error) {
	return s.advance(ctx, id, func(ctx context.Context, p *entity.Project) error {
		return lifecycle.SetProgress(ctx, p, progress, s.now())
	})
}

// StartTesting moves an executing project to TESTING
func (s *projectService) StartTesting(ctx context.Context, id int64) (*entity.Project, error) {
	return s.advance(ctx, id, func(ctx context.Context, p *entity.Project) error {
		return lifecycle.StartTesting(ctx, p, s.now())
	})
}

// Suspend pauses an open project
func (s *projectService) Suspend(ctx context.Context, id int64) (*entity.Project, error) {
	return s.advance(ctx, id, func(ctx context.Context, p *entity.Project) error {
		return lifecycle.SuspendProject(ctx, p, s.now())
	})
}

// Resume restarts a suspended project
func (s *projectService) Resume(ctx context.Context, id int64) (*entity.Project, error) {
	return s.advance(ctx, id, func(ctx context.Context, p *entity.Project) error {
		return lifecycle.ResumeProject(ctx, p, s.now())
	})
}

// Cancel moves an open project to CANCELLED
func (s *projectService) Cancel(ctx context.Context, id int64) (*entity.Project, error) {
	return s.advance(ctx, id, func(ctx context.Context, p *entity.Project) error {
		return lifecycle.CancelProject(ctx, p, s.now())
	})
}

func (s *projectService) advance(ctx context.Context, id int64, apply func(ctx context.Context, p *entity.Project) error) (*entity.Project, error) {
	return transition(ctx, &s.base, entity.KindProject, id, s.repo.GetByID, s.repo.Update,
		func(p *entity.Project) (string, string) { return p.Code, p.Status },
		apply,
	)
}
