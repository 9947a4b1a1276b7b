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

// CreatePurchaseInput holds the fields of a new purchase request
type CreatePurchaseInput struct {
	DepartmentID         int64           `validate:"gt=0"`
	RequesterID          int64           `validate:"gte=0"`
	ItemName             string          `validate:"required,max=200"`
	ItemDescription      string          `validate:"max=2000"`
	Specification        string          `validate:"max=500"`
	Quantity             int             `validate:"gt=0"`
	Unit                 string          `validate:"max=20"`
	EstimatedTotalAmount decimal.Decimal `validate:"gt=0"`
	RequiredDate         time.Time
	Reason               string `validate:"max=1000"`
}

// PurchaseService manages purchase requests
type PurchaseService interface {
	Create(ctx context.Context, input CreatePurchaseInput) (*entity.PurchaseRequest, error)
	Get(ctx context.Context, id int64) (*entity.PurchaseRequest, error)
	Submit(ctx context.Context, id int64) (*entity.PurchaseRequest, error)
	Decide(ctx context.Context, id int64, decision Decision) (*entity.PurchaseRequest, error)
	SelectSupplier(ctx context.Context, id int64, supplierName string) (*entity.PurchaseRequest, error)
	Receive(ctx context.Context, id int64) (*entity.PurchaseRequest, error)
}

type purchaseService struct {
	base
	repo   port.PurchaseRequestRepository
	ledger *ledgerService
}

// NewPurchaseService creates a new PurchaseService
func NewPurchaseService(repo port.PurchaseRequestRepository, approvals port.ApprovalRepository, deps Deps) PurchaseService {
	return &purchaseService{base: newBase(deps), repo: repo, ledger: newLedger(approvals, deps)}
}

// Create stores a new purchase request in DRAFT
func (s *purchaseService) Create(ctx context.Context, input CreatePurchaseInput) (*entity.PurchaseRequest, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}

	pr := &entity.PurchaseRequest{
		DepartmentID:         input.DepartmentID,
		RequesterID:          input.RequesterID,
		ItemName:             input.ItemName,
		ItemDescription:      input.ItemDescription,
		Specification:        input.Specification,
		Quantity:             input.Quantity,
		Unit:                 input.Unit,
		EstimatedTotalAmount: input.EstimatedTotalAmount,
		RequiredDate:         input.RequiredDate,
		Reason:               input.Reason,
	}
	lifecycle.NewPurchaseRequest(pr, s.now())

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		code, err := s.nextCode(ctx, entity.KindPurchaseRequest)
		if err != nil {
			return err
		}
		pr.Code = code
		return s.repo.Create(ctx, pr)
	})
	if err != nil {
		s.logger.Error("Failed to create purchase request", "department_id", input.DepartmentID, "error", err)
		return nil, fmt.Errorf("failed to create purchase request: %w", err)
	}

	s.logger.Info("Purchase request created", "id", pr.ID, "code", pr.Code, "amount", pr.EstimatedTotalAmount.String())
	s.publish(ctx, createdEvent(ctx, entity.KindPurchaseRequest, pr.ID, pr.Code, pr.Status))
	return pr, nil
}

// Get returns a purchase request by id
func (s *purchaseService) Get(ctx context.Context, id int64) (*entity.PurchaseRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// Submit sends a draft request for approval
func (s *purchaseService) Submit(ctx context.Context, id int64) (*entity.PurchaseRequest, error) {
	return s.advance(ctx, id, func(ctx context.Context, pr *entity.PurchaseRequest) error {
		return lifecycle.SubmitPurchaseRequest(ctx, pr, s.now())
	})
}

// Decide applies the approval decision and records it in the ledger
func (s *purchaseService) Decide(ctx context.Context, id int64, decision Decision) (*entity.PurchaseRequest, error) {
	var record *entity.Approval
	pr, err := s.advance(ctx, id, func(ctx context.Context, pr *entity.PurchaseRequest) error {
		if err := lifecycle.DecidePurchaseRequest(ctx, pr, decision.Approved, s.now()); err != nil {
			return err
		}
		var err error
		record, err = s.ledger.append(ctx, RecordInput{
			BusinessType: entity.BusinessTypePurchaseRequest,
			BusinessID:   pr.ID,
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
	return pr, nil
}

// SelectSupplier records the chosen supplier and starts processing
func (s *purchaseService) SelectSupplier(ctx context.Context, id int64, supplierName string) (*entity.PurchaseRequest, error) {
	if supplierName == "" {
		return nil, fmt.Errorf("%w: supplier name is required", entity.ErrValidation)
	}
	return s.advance(ctx, id, func(ctx context.Context, pr *entity.PurchaseRequest) error {
		return lifecycle.SelectSupplier(ctx, pr, supplierName, s.now())
	})
}

// Receive marks the goods as received
func (s *purchaseService) Receive(ctx context.Context, id int64) (*entity.PurchaseRequest, error) {
	return s.advance(ctx, id, func(ctx context.Context, pr *entity.PurchaseRequest) error {
		return lifecycle.ReceiveGoods(ctx, pr, s.now())
	})
}

func (s *purchaseService) advance(ctx context.Context, id int64, apply func(ctx context.Context, pr *entity.PurchaseRequest) error) (*entity.PurchaseRequest, error) {
	return transition(ctx, &s.base, entity.KindPurchaseRequest, id, s.repo.GetByID, s.repo.Update,
		func(pr *entity.PurchaseRequest) (string, string) { return pr.Code, pr.Status },
		apply,
	)
}
