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

// CreateContractInput holds the fields of a new contract
type CreateContractInput struct {
	OpportunityID *int64
	CustomerID    int64           `validate:"gt=0"`
	Name          string          `validate:"required,max=200"`
	ContractType  string          `validate:"oneof=SALES SERVICE MAINTENANCE"`
	Amount        decimal.Decimal `validate:"gt=0"`
	Currency      string          `validate:"omitempty,len=3"`
	StartDate     time.Time
	EndDate       time.Time
	PaymentTerms  string
	OwnerID       int64 `validate:"gte=0"`
	CreatedBy     int64 `validate:"gte=0"`
}

// Decision is one approver's verdict at a gate
type Decision struct {
	ApproverID int64
	Approved   bool
	Comments   string
}

// ContractService manages contracts and their single approval gate
type ContractService interface {
	Create(ctx context.Context, input CreateContractInput) (*entity.Contract, error)
	Get(ctx context.Context, id int64) (*entity.Contract, error)
	Decide(ctx context.Context, id int64, decision Decision) (*entity.Contract, error)
	Resubmit(ctx context.Context, id int64) (*entity.Contract, error)
	Sign(ctx context.Context, id int64) (*entity.Contract, error)
	Execute(ctx context.Context, id int64) (*entity.Contract, error)
	Complete(ctx context.Context, id int64) (*entity.Contract, error)
	Terminate(ctx context.Context, id int64) (*entity.Contract, error)
}

type contractService struct {
	base
	repo          port.ContractRepository
	opportunities port.OpportunityRepository
	ledger        *ledgerService
}

// NewContractService creates a new ContractService
func NewContractService(repo port.ContractRepository, opportunities port.OpportunityRepository, approvals port.ApprovalRepository, deps Deps) ContractService {
	return &contractService{
		base:          newBase(deps),
		repo:          repo,
		opportunities: opportunities,
		ledger:        newLedger(approvals, deps),
	}
}

// Create stores a new contract in DRAFT awaiting approval
func (s *contractService) Create(ctx context.Context, input CreateContractInput) (*entity.Contract, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}
	if !input.EndDate.IsZero() && input.EndDate.Before(input.StartDate) {
		return nil, fmt.Errorf("%w: contract end date precedes start date", entity.ErrValidation)
	}

	c := &entity.Contract{
		OpportunityID: input.OpportunityID,
		CustomerID:    input.CustomerID,
		Name:          input.Name,
		ContractType:  input.ContractType,
		Amount:        input.Amount,
		Currency:      input.Currency,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		PaymentTerms:  input.PaymentTerms,
		OwnerID:       input.OwnerID,
		CreatedBy:     input.CreatedBy,
	}
	if c.Currency == "" {
		c.Currency = entity.DefaultCurrency
	}
	lifecycle.NewContract(c, s.now())

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if c.OpportunityID != nil {
			if _, err := s.opportunities.GetByID(ctx, *c.OpportunityID); err != nil {
				return err
			}
		}
		code, err := s.nextCode(ctx, entity.KindContract)
		if err != nil {
			return err
		}
		c.Code = code
		return s.repo.Create(ctx, c)
	})
	if err != nil {
		s.logger.Error("Failed to create contract", "customer_id", input.CustomerID, "error", err)
		return nil, fmt.Errorf("failed to create contract: %w", err)
	}

	s.logger.Info("Contract created", "id", c.ID, "code", c.Code, "amount", c.Amount.String())
	s.publish(ctx, createdEvent(ctx, entity.KindContract, c.ID, c.Code, c.Status))
	return c, nil
}

// Get returns a contract by id
func (s *contractService) Get(ctx context.Context, id int64) (*entity.Contract, error) {
	return s.repo.GetByID(ctx, id)
}

// Decide applies an approval decision and records it in the ledger
func (s *contractService) Decide(ctx context.Context, id int64, decision Decision) (*entity.Contract, error) {
	var record *entity.Approval
	c, err := s.advance(ctx, id, func(ctx context.Context, c *entity.Contract) error {
		if err := lifecycle.DecideContract(ctx, c, decision.Approved, s.now()); err != nil {
			return err
		}
		var err error
		record, err = s.ledger.append(ctx, RecordInput{
			BusinessType: entity.BusinessTypeContract,
			BusinessID:   c.ID,
			ApproverID:   decision.ApproverID,
			Level:        entity.ApprovalLevelSingleGate,
			Result:       entity.ApprovalResult(decision.Approved),
			Comments:     decision.Comments,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, approvalEvent(ctx, record))
	return c, nil
}

// Resubmit reopens a rejected contract for approval
func (s *contractService) Resubmit(ctx context.Context, id int64) (*entity.Contract, error) {
	return s.advance(ctx, id, func(ctx context.Context, c *entity.Contract) error {
		return lifecycle.ResubmitContract(ctx, c, s.now())
	})
}

// Sign moves an approved contract to SIGNED
func (s *contractService) Sign(ctx context.Context, id int64) (*entity.Contract, error) {
	return s.advance(ctx, id, func(ctx context.Context, c *entity.Contract) error {
		return lifecycle.SignContract(ctx, c, s.now())
	})
}

// Execute moves a signed contract to EXECUTING
func (s *contractService) Execute(ctx context.Context, id int64) (*entity.Contract, error) {
	return s.advance(ctx, id, func(ctx context.Context, c *entity.Contract) error {
		return lifecycle.ExecuteContract(ctx, c, s.now())
	})
}

// Complete moves an executing contract to COMPLETED
func (s *contractService) Complete(ctx context.Context, id int64) (*entity.Contract, error) {
	return s.advance(ctx, id, func(ctx context.Context, c *entity.Contract) error {
		return lifecycle.CompleteContract(ctx, c, s.now())
	})
}

// Terminate moves an open contract to TERMINATED
func (s *contractService) Terminate(ctx context.Context, id int64) (*entity.Contract, error) {
	return s.advance(ctx, id, func(ctx context.Context, c *entity.Contract) error {
		return lifecycle.TerminateContract(ctx, c, s.now())
	})
}

func (s *contractService) advance(ctx context.Context, id int64, apply func(ctx context.Context, c *entity.Contract) error) (*entity.Contract, error) {
	return transition(ctx, &s.base, entity.KindContract, id, s.repo.GetByID, s.repo.Update,
		func(c *entity.Contract) (string, string) { return c.Code, c.Status },
		apply,
	)
}
