package service

import (
	"context"
	"fmt"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
	"github.com/garyjia/bizflow/internal/domain/event"
)

// RecordInput describes one approval decision
type RecordInput struct {
	BusinessType string `validate:"oneof=CONTRACT PURCHASE_REQUEST INVOICE EXPENSE_REQUEST"`
	BusinessID   int64  `validate:"gt=0"`
	ApproverID   int64  `validate:"gt=0"`
	Level        int    `validate:"min=1,max=3"`
	Result       string `validate:"oneof=APPROVED REJECTED"`
	Comments     string `validate:"max=1000"`
}

// LedgerService is the append-only approval ledger
type LedgerService interface {
	// Record appends an immutable approval record
	Record(ctx context.Context, input RecordInput) (*entity.Approval, error)

	// Query returns records ordered by level, then decision time
	Query(ctx context.Context, filter port.ApprovalFilter) ([]*entity.Approval, error)
}

type ledgerService struct {
	base
	approvals port.ApprovalRepository
}

// NewLedgerService creates the approval ledger
func NewLedgerService(approvals port.ApprovalRepository, deps Deps) LedgerService {
	return newLedger(approvals, deps)
}

func newLedger(approvals port.ApprovalRepository, deps Deps) *ledgerService {
	return &ledgerService{base: newBase(deps), approvals: approvals}
}

// Record appends an immutable approval record in its own transaction
func (s *ledgerService) Record(ctx context.Context, input RecordInput) (*entity.Approval, error) {
	var record *entity.Approval
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.append(ctx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, approvalEvent(ctx, record))
	return record, nil
}

// append validates and stores a record within the caller's transaction.
// The caller publishes the approval event after commit.
func (s *ledgerService) append(ctx context.Context, input RecordInput) (*entity.Approval, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}

	record := &entity.Approval{
		BusinessType:  input.BusinessType,
		BusinessID:    input.BusinessID,
		ApproverID:    input.ApproverID,
		ApprovalLevel: input.Level,
		Result:        input.Result,
		Comments:      input.Comments,
		ApprovedAt:    s.now(),
	}
	if err := s.approvals.Append(ctx, record); err != nil {
		s.logger.Error("Failed to append approval", "business_type", input.BusinessType, "business_id", input.BusinessID, "error", err)
		return nil, fmt.Errorf("failed to append approval: %w", err)
	}

	s.logger.Info("Approval recorded",
		"business_type", record.BusinessType,
		"business_id", record.BusinessID,
		"level", record.ApprovalLevel,
		"result", record.Result,
	)
	return record, nil
}

// Query returns ledger records matching the filter
func (s *ledgerService) Query(ctx context.Context, filter port.ApprovalFilter) ([]*entity.Approval, error) {
	records, err := s.approvals.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	return records, nil
}

func approvalEvent(ctx context.Context, a *entity.Approval) *event.Event {
	return event.NewEvent(ctx, event.TypeApprovalRecorded, a.BusinessType, a.BusinessID, "", event.Payload{
		"approval_id": a.ID,
		"approver_id": a.ApproverID,
		"level":       a.ApprovalLevel,
		"result":      a.Result,
	})
}
