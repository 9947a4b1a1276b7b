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

// CreateOpportunityInput holds the fields of a new sales opportunity
type CreateOpportunityInput struct {
	CustomerID        int64           `validate:"gt=0"`
	Name              string          `validate:"required,max=200"`
	Description       string          `validate:"max=2000"`
	Amount            decimal.Decimal `validate:"gt=0"`
	WinProbability    int             `validate:"min=0,max=100"`
	ExpectedCloseDate time.Time
	Source            string
	OwnerID           int64 `validate:"gte=0"`
	CreatedBy         int64 `validate:"gte=0"`
}

// OpportunityService manages sales opportunities
type OpportunityService interface {
	Create(ctx context.Context, input CreateOpportunityInput) (*entity.SalesOpportunity, error)
	Get(ctx context.Context, id int64) (*entity.SalesOpportunity, error)
	Qualify(ctx context.Context, id int64) (*entity.SalesOpportunity, error)
	Propose(ctx context.Context, id int64) (*entity.SalesOpportunity, error)
	Negotiate(ctx context.Context, id int64) (*entity.SalesOpportunity, error)
	Close(ctx context.Context, id int64, won bool) (*entity.SalesOpportunity, error)
}

type opportunityService struct {
	base
	repo port.OpportunityRepository
}

// NewOpportunityService creates a new OpportunityService
func NewOpportunityService(repo port.OpportunityRepository, deps Deps) OpportunityService {
	return &opportunityService{base: newBase(deps), repo: repo}
}

// Create stores a new opportunity in LEAD
func (s *opportunityService) Create(ctx context.Context, input CreateOpportunityInput) (*entity.SalesOpportunity, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}

	o := &entity.SalesOpportunity{
		CustomerID:        input.CustomerID,
		Name:              input.Name,
		Description:       input.Description,
		Amount:            input.Amount,
		WinProbability:    input.WinProbability,
		ExpectedCloseDate: input.ExpectedCloseDate,
		Source:            input.Source,
		OwnerID:           input.OwnerID,
		CreatedBy:         input.CreatedBy,
	}
	lifecycle.NewOpportunity(o, s.now())

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		code, err := s.nextCode(ctx, entity.KindOpportunity)
		if err != nil {
			return err
		}
		o.Code = code
		return s.repo.Create(ctx, o)
	})
	if err != nil {
		s.logger.Error("Failed to create opportunity", "customer_id", input.CustomerID, "error", err)
		return nil, fmt.Errorf("failed to create opportunity: %w", err)
	}

	s.logger.Info("Opportunity created", "id", o.ID, "code", o.Code, "amount", o.Amount.String())
	s.publish(ctx, createdEvent(ctx, entity.KindOpportunity, o.ID, o.Code, o.Status))
	return o, nil
}

// Get returns an opportunity by id
func (s *opportunityService) Get(ctx context.Context, id int64) (*entity.SalesOpportunity, error) {
	return s.repo.GetByID(ctx, id)
}

// Qualify moves a lead to QUALIFIED
func (s *opportunityService) Qualify(ctx context.Context, id int64) (*entity.SalesOpportunity, error) {
	return s.advance(ctx, id, func(ctx context.Context, o *entity.SalesOpportunity) error {
		return lifecycle.Qualify(ctx, o, s.now())
	})
}

// Propose moves a qualified opportunity to PROPOSAL
func (s *opportunityService) Propose(ctx context.Context, id int64) (*entity.SalesOpportunity, error) {
	return s.advance(ctx, id, func(ctx context.Context, o *entity.SalesOpportunity) error {
		return lifecycle.Propose(ctx, o, s.now())
	})
}

// Negotiate moves a proposal to NEGOTIATION
func (s *opportunityService) Negotiate(ctx context.Context, id int64) (*entity.SalesOpportunity, error) {
	return s.advance(ctx, id, func(ctx context.Context, o *entity.SalesOpportunity) error {
		return lifecycle.Negotiate(ctx, o, s.now())
	})
}

// Close ends an open opportunity as won or lost
func (s *opportunityService) Close(ctx context.Context, id int64, won bool) (*entity.SalesOpportunity, error) {
	return s.advance(ctx, id, func(ctx context.Context, o *entity.SalesOpportunity) error {
		return lifecycle.Close(ctx, o, won, s.now())
	})
}

func (s *opportunityService) advance(ctx context.Context, id int64, apply func(ctx context.Context, o *entity.SalesOpportunity) error) (*entity.SalesOpportunity, error) {
	return transition(ctx, &s.base, entity.KindOpportunity, id, s.repo.GetByID, s.repo.Update,
		func(o *entity.SalesOpportunity) (string, string) { return o.Code, o.Status },
		apply,
	)
}
