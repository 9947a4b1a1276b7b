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

// CreateExpenseInput holds the fields of a new expense request
type CreateExpenseInput struct {
	EmployeeID  int64           `validate:"gt=0"`
	ExpenseType string          `validate:"oneof=TRAVEL MEAL OFFICE TRANSPORT OTHER"`
	Amount      decimal.Decimal `validate:"gt=0"`
	Description string          `validate:"max=2000"`
	ExpenseDate time.Time
}

// ExpenseService manages expense reimbursement requests through their
// manager, finance and CEO gates
type ExpenseService interface {
	Create(ctx context.Context, input CreateExpenseInput) (*entity.ExpenseRequest, error)
	Get(ctx context.Context, id int64) (*entity.ExpenseRequest, error)
	Submit(ctx context.Context, id int64, attachmentRef string) (*entity.ExpenseRequest, error)
	ManagerDecision(ctx context.Context, id int64, decision Decision) (*entity.ExpenseRequest, error)
	FinanceDecision(ctx context.Context, id int64, decision Decision) (*entity.ExpenseRequest, error)
	CEODecision(ctx context.Context, id int64, decision Decision) (*entity.ExpenseRequest, error)
	Pay(ctx context.Context, id int64, paymentMethod string) (*entity.ExpenseRequest, error)

	// RequiresCEO reports whether the amount needs the CEO gate
	RequiresCEO(amount decimal.Decimal) bool
}

type expenseService struct {
	base
	repo   port.ExpenseRequestRepository
	ledger *ledgerService
	policy lifecycle.ExpensePolicy
}

// NewExpenseService creates a new ExpenseService. A non-positive threshold
// selects the default.
func NewExpenseService(repo port.ExpenseRequestRepository, approvals port.ApprovalRepository, threshold decimal.Decimal, deps Deps) ExpenseService {
	return &expenseService{
		base:   newBase(deps),
		repo:   repo,
		ledger: newLedger(approvals, deps),
		policy: lifecycle.NewExpensePolicy(threshold),
	}
}

// Create stores a new expense request in DRAFT
func (s *expenseService) Create(ctx context.Context, input CreateExpenseInput) (*entity.ExpenseRequest, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}

	now := s.now()
	req := &entity.ExpenseRequest{
		EmployeeID:  input.EmployeeID,
		ExpenseType: input.ExpenseType,
		Amount:      input.Amount,
		Description: input.Description,
		ExpenseDate: input.ExpenseDate,
	}
	if req.ExpenseDate.IsZero() {
		req.ExpenseDate = now
	}
	lifecycle.NewExpenseRequest(req, now)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		code, err := s.nextCode(ctx, entity.KindExpenseRequest)
		if err != nil {
			return err
		}
		req.Code = code
		return s.repo.Create(ctx, req)
	})
	if err != nil {
		s.logger.Error("Failed to create expense request", "employee_id", input.EmployeeID, "error", err)
		return nil, fmt.Errorf("failed to create expense request: %w", err)
	}

	s.logger.Info("Expense request created", "id", req.ID, "code", req.Code, "amount", req.Amount.String())
	s.publish(ctx, createdEvent(ctx, entity.KindExpenseRequest, req.ID, req.Code, req.Status))
	return req, nil
}

// Get returns an expense request by id
func (s *expenseService) Get(ctx context.Context, id int64) (*entity.ExpenseRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// RequiresCEO reports whether the amount strictly exceeds the threshold
func (s *expenseService) RequiresCEO(amount decimal.Decimal) bool {
	return s.policy.RequiresCEO(amount)
}

// Submit attaches the supporting document and submits the request
func (s *expenseService) Submit(ctx context.Context, id int64, attachmentRef string) (*entity.ExpenseRequest, error) {
	return s.advance(ctx, id, func(ctx context.Context, req *entity.ExpenseRequest) error {
		return s.policy.Submit(ctx, req, attachmentRef, s.now())
	})
}

// ManagerDecision applies the level 1 decision
func (s *expenseService) ManagerDecision(ctx context.Context, id int64, decision Decision) (*entity.ExpenseRequest, error) {
	return s.decide(ctx, id, entity.ApprovalLevelManager, decision, s.policy.ManagerDecision)
}

// FinanceDecision applies the level 2 decision
func (s *expenseService) FinanceDecision(ctx context.Context, id int64, decision Decision) (*entity.ExpenseRequest, error) {
	return s.decide(ctx, id, entity.ApprovalLevelFinance, decision, s.policy.FinanceDecision)
}

// CEODecision applies the level 3 decision
func (s *expenseService) CEODecision(ctx context.Context, id int64, decision Decision) (*entity.ExpenseRequest, error) {
	return s.decide(ctx, id, entity.ApprovalLevelCEO, decision, s.policy.CEODecision)
}

// Pay marks a fully approved request as PAID
func (s *expenseService) Pay(ctx context.Context, id int64, paymentMethod string) (*entity.ExpenseRequest, error) {
	return s.advance(ctx, id, func(ctx context.Context, req *entity.ExpenseRequest) error {
		return s.policy.Pay(ctx, req, paymentMethod, s.now())
	})
}

type gateDecision func(ctx context.Context, req *entity.ExpenseRequest, approverID int64, approved bool, now time.Time) error

func (s *expenseService) decide(ctx context.Context, id int64, level int, decision Decision, gate gateDecision) (*entity.ExpenseRequest, error) {
	var record *entity.Approval
	req, err := s.advance(ctx, id, func(ctx context.Context, req *entity.ExpenseRequest) error {
		if err := gate(ctx, req, decision.ApproverID, decision.Approved, s.now()); err != nil {
			return err
		}
		var err error
		record, err = s.ledger.append(ctx, RecordInput{
			BusinessType: entity.BusinessTypeExpenseRequest,
			BusinessID:   req.ID,
			ApproverID:   decision.ApproverID,
			Level:        level,
			Result:       entity.ApprovalResult(decision.Approved),
			Comments:     decision.Comments,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, approvalEvent(ctx, record))
	return req, nil
}

func (s *expenseService) advance(ctx context.Context, id int64, apply func(ctx context.Context, req *entity.ExpenseRequest) error) (*entity.ExpenseRequest, error) {
	return transition(ctx, &s.base, entity.KindExpenseRequest, id, s.repo.GetByID, s.repo.Update,
		func(req *entity.ExpenseRequest) (string, string) { return req.Code, req.Status },
		apply,
	)
}
